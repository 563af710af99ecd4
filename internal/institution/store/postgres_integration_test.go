//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"finflow/internal/institution/models"
	"finflow/internal/institution/store"
	id "finflow/pkg/domain"
	"finflow/pkg/platform/sentinel"
	"finflow/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx   context.Context
	pg    *containers.PostgresContainer
	store *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx, "institutions"))
}

func (s *PostgresStoreSuite) newInstitution(owner id.UserID) *models.Institution {
	inst, err := models.NewInstitution(id.NewInstitutionID(), owner,
		"Integration Bank", "Bank", "it@bank.com", time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return inst
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	owner := id.NewUserID()
	inst := s.newInstitution(owner)
	s.Require().NoError(s.store.Create(s.ctx, inst))

	got, err := s.store.FindByID(s.ctx, inst.ID)
	s.Require().NoError(err)
	s.Equal(inst.Name, got.Name)
	s.Equal(owner, got.OwnerUserID)

	byOwner, err := s.store.FindByOwner(s.ctx, owner)
	s.Require().NoError(err)
	s.Equal(inst.ID, byOwner.ID)
}

func (s *PostgresStoreSuite) TestOwnerUniqueness() {
	owner := id.NewUserID()
	s.Require().NoError(s.store.Create(s.ctx, s.newInstitution(owner)))

	err := s.store.Create(s.ctx, s.newInstitution(owner))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestUpdate() {
	inst := s.newInstitution(id.NewUserID())
	s.Require().NoError(s.store.Create(s.ctx, inst))

	inst.Name = "Renamed Bank"
	inst.UpdatedAt = inst.UpdatedAt.Add(time.Minute)
	s.Require().NoError(s.store.Update(s.ctx, inst))

	got, err := s.store.FindByID(s.ctx, inst.ID)
	s.Require().NoError(err)
	s.Equal("Renamed Bank", got.Name)
}

func (s *PostgresStoreSuite) TestDelete() {
	inst := s.newInstitution(id.NewUserID())
	s.Require().NoError(s.store.Create(s.ctx, inst))

	s.Require().NoError(s.store.Delete(s.ctx, inst.ID))

	_, err := s.store.FindByID(s.ctx, inst.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().ErrorIs(s.store.Delete(s.ctx, inst.ID), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindAllOrdersByCreation() {
	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 3; i++ {
		inst, err := models.NewInstitution(id.NewInstitutionID(), id.NewUserID(),
			"Bank", "Bank", "a@b.com", base.Add(time.Duration(i)*time.Second))
		s.Require().NoError(err)
		s.Require().NoError(s.store.Create(s.ctx, inst))
	}

	insts, err := s.store.FindAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(insts, 3)
	s.True(insts[0].CreatedAt.Before(insts[2].CreatedAt))
}
