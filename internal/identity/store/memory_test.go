package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"finflow/internal/identity/models"
	id "finflow/pkg/domain"
	"finflow/pkg/platform/sentinel"
)

type DirectorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestDirectorySuite(t *testing.T) {
	suite.Run(t, new(DirectorySuite))
}

func (s *DirectorySuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *DirectorySuite) newUser() *models.User {
	now := time.Now()
	return &models.User{
		ID:        id.NewUserID(),
		Email:     "u@example.com",
		Name:      "U Example",
		Roles:     []models.Role{models.RoleBuyer},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *DirectorySuite) TestFindByID() {
	s.Run("returns seeded user", func() {
		u := s.newUser()
		s.store.Seed(u)

		found, err := s.store.FindByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Equal(u.Email, found.Email)
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.FindByID(s.ctx, id.NewUserID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *DirectorySuite) TestRoleMutation() {
	now := time.Now()

	s.Run("grant adds the marker once", func() {
		u := s.newUser()
		s.store.Seed(u)

		got, err := s.store.GrantRole(s.ctx, u.ID, models.RoleFinancialInstitution, now)
		s.Require().NoError(err)
		s.True(got.HasRole(models.RoleFinancialInstitution))

		// Granting again is a no-op, not a duplicate.
		got, err = s.store.GrantRole(s.ctx, u.ID, models.RoleFinancialInstitution, now)
		s.Require().NoError(err)
		s.Len(got.Roles, 2)
	})

	s.Run("revoke removes the marker and is idempotent", func() {
		u := s.newUser()
		u.Roles = append(u.Roles, models.RoleFinancialInstitution)
		s.store.Seed(u)

		got, err := s.store.RevokeRole(s.ctx, u.ID, models.RoleFinancialInstitution, now)
		s.Require().NoError(err)
		s.False(got.HasRole(models.RoleFinancialInstitution))

		got, err = s.store.RevokeRole(s.ctx, u.ID, models.RoleFinancialInstitution, now)
		s.Require().NoError(err)
		s.False(got.HasRole(models.RoleFinancialInstitution))
	})

	s.Run("grant on unknown user returns ErrNotFound", func() {
		_, err := s.store.GrantRole(s.ctx, id.NewUserID(), models.RoleAdmin, now)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned user is a copy", func() {
		u := s.newUser()
		s.store.Seed(u)

		got, err := s.store.FindByID(s.ctx, u.ID)
		s.Require().NoError(err)
		got.Roles = append(got.Roles, models.RoleAdmin)

		again, err := s.store.FindByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Len(again.Roles, 1)
	})
}
