package store

import (
	"context"
	"sort"
	"sync"

	"finflow/internal/institution/models"
	id "finflow/pkg/domain"
	"finflow/pkg/platform/sentinel"
)

// InMemory holds institutions in process memory. It intentionally favors
// clarity over performance.
type InMemory struct {
	mu           sync.RWMutex
	institutions map[id.InstitutionID]*models.Institution
	byOwner      map[id.UserID]id.InstitutionID
}

func NewInMemory() *InMemory {
	return &InMemory{
		institutions: make(map[id.InstitutionID]*models.Institution),
		byOwner:      make(map[id.UserID]id.InstitutionID),
	}
}

// Create persists a new institution. Returns ErrConflict when the owner
// already holds one; this closes the window between the service's by-owner
// check and the write.
func (s *InMemory) Create(_ context.Context, inst *models.Institution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byOwner[inst.OwnerUserID]; taken {
		return sentinel.ErrConflict
	}
	cp := *inst
	s.institutions[inst.ID] = &cp
	s.byOwner[inst.OwnerUserID] = inst.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, instID id.InstitutionID) (*models.Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if inst, ok := s.institutions[instID]; ok {
		cp := *inst
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByOwner(_ context.Context, owner id.UserID) (*models.Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if instID, ok := s.byOwner[owner]; ok {
		cp := *s.institutions[instID]
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindAll(_ context.Context) ([]*models.Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Institution, 0, len(s.institutions))
	for _, inst := range s.institutions {
		cp := *inst
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemory) Update(_ context.Context, inst *models.Institution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.institutions[inst.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *inst
	s.institutions[inst.ID] = &cp
	return nil
}

func (s *InMemory) Delete(_ context.Context, instID id.InstitutionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.institutions[instID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byOwner, inst.OwnerUserID)
	delete(s.institutions, instID)
	return nil
}
