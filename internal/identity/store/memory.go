package store

import (
	"context"
	"sync"
	"time"

	"finflow/internal/identity/models"
	id "finflow/pkg/domain"
	"finflow/pkg/platform/sentinel"
)

// InMemory keeps the directory lightweight and testable. It intentionally
// favors clarity over performance.
type InMemory struct {
	mu    sync.RWMutex
	users map[id.UserID]*models.User
}

func NewInMemory() *InMemory {
	return &InMemory{users: make(map[id.UserID]*models.User)}
}

// Seed inserts a user directly; wiring and test helper.
func (s *InMemory) Seed(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = cloneUser(user)
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID]; ok {
		return cloneUser(u), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) GrantRole(_ context.Context, userID id.UserID, role models.Role, now time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	u.AddRole(role, now)
	return cloneUser(u), nil
}

func (s *InMemory) RevokeRole(_ context.Context, userID id.UserID, role models.Role, now time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	u.RemoveRole(role, now)
	return cloneUser(u), nil
}

func cloneUser(u *models.User) *models.User {
	cp := *u
	cp.Roles = append([]models.Role(nil), u.Roles...)
	return &cp
}
