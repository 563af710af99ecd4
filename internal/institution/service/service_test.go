package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"finflow/internal/cache"
	identitymodels "finflow/internal/identity/models"
	identitystore "finflow/internal/identity/store"
	"finflow/internal/institution/models"
	"finflow/internal/institution/store"
	"finflow/internal/notify"
	id "finflow/pkg/domain"
	dErrors "finflow/pkg/domain-errors"
)

type InstitutionServiceSuite struct {
	suite.Suite
	ctx       context.Context
	store     *store.InMemory
	directory *identitystore.InMemory
	cache     *cache.InMemory
	notifier  *notify.Recorder
	service   *Service
}

func TestInstitutionServiceSuite(t *testing.T) {
	suite.Run(t, new(InstitutionServiceSuite))
}

func (s *InstitutionServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.directory = identitystore.NewInMemory()
	s.cache = cache.NewInMemory()
	s.notifier = notify.NewRecorder()
	s.service = New(s.store, s.directory, s.cache, WithNotifier(s.notifier))
}

func (s *InstitutionServiceSuite) seedUser() *identitymodels.User {
	u := &identitymodels.User{
		ID:    id.NewUserID(),
		Email: "owner@example.com",
		Name:  "Owner",
		Roles: []identitymodels.Role{identitymodels.RoleSeller},
	}
	s.directory.Seed(u)
	return u
}

func (s *InstitutionServiceSuite) create(owner id.UserID) *models.Institution {
	inst, warning, err := s.service.CreateInstitution(s.ctx, CreateInstitutionRequest{
		OwnerUserID:  owner,
		Name:         "Test Bank",
		Type:         "Bank",
		ContactEmail: "t@bank.com",
	})
	s.Require().NoError(err)
	s.Require().Nil(warning)
	return inst
}

func (s *InstitutionServiceSuite) TestCreateInstitution() {
	s.Run("creates institution and grants role", func() {
		owner := s.seedUser()
		inst := s.create(owner.ID)

		s.Equal(owner.ID, inst.OwnerUserID)
		s.Equal("Test Bank", inst.Name)

		user, err := s.directory.FindByID(s.ctx, owner.ID)
		s.Require().NoError(err)
		s.True(user.HasRole(identitymodels.RoleFinancialInstitution))

		last, ok := s.notifier.Last()
		s.Require().True(ok)
		s.Equal(notify.EventInstitutionRegistered, last.Kind)
		s.Equal(owner.ID, last.TargetUserID)
	})

	s.Run("unknown owner fails with not found", func() {
		_, _, err := s.service.CreateInstitution(s.ctx, CreateInstitutionRequest{
			OwnerUserID:  id.NewUserID(),
			Name:         "Ghost Bank",
			ContactEmail: "g@bank.com",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("second institution for same owner conflicts regardless of payload", func() {
		owner := s.seedUser()
		s.create(owner.ID)

		_, _, err := s.service.CreateInstitution(s.ctx, CreateInstitutionRequest{
			OwnerUserID:  owner.ID,
			Name:         "Other Bank",
			Type:         "Credit Union",
			ContactEmail: "o@bank.com",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal("user already has an institution", dErrors.MessageOf(err))
	})

	s.Run("invalid payload fails validation before any write", func() {
		owner := s.seedUser()
		_, _, err := s.service.CreateInstitution(s.ctx, CreateInstitutionRequest{
			OwnerUserID:  owner.ID,
			Name:         "",
			ContactEmail: "x@bank.com",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.store.FindByOwner(s.ctx, owner.ID)
		s.Require().Error(err)
	})

	s.Run("notification failure does not fail the create", func() {
		owner := s.seedUser()
		s.notifier.FailWith(errors.New("smtp down"))
		defer s.notifier.FailWith(nil)

		inst, warning, err := s.service.CreateInstitution(s.ctx, CreateInstitutionRequest{
			OwnerUserID:  owner.ID,
			Name:         "Resilient Bank",
			ContactEmail: "r@bank.com",
		})
		s.Require().NoError(err)
		s.Require().NotNil(warning)
		s.Equal(notify.EventInstitutionRegistered, warning.Kind)

		found, err := s.store.FindByID(s.ctx, inst.ID)
		s.Require().NoError(err)
		s.Equal(inst.ID, found.ID)
	})
}

// failingDirectory rejects role grants to exercise the compensation path.
type failingDirectory struct {
	*identitystore.InMemory
}

func (d *failingDirectory) GrantRole(context.Context, id.UserID, identitymodels.Role, time.Time) (*identitymodels.User, error) {
	return nil, errors.New("directory unavailable")
}

func (s *InstitutionServiceSuite) TestCreateCompensatesFailedRoleGrant() {
	owner := s.seedUser()
	svc := New(s.store, &failingDirectory{s.directory}, s.cache)

	_, _, err := svc.CreateInstitution(s.ctx, CreateInstitutionRequest{
		OwnerUserID:  owner.ID,
		Name:         "Doomed Bank",
		ContactEmail: "d@bank.com",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	// The institution write was undone, so the owner can retry.
	_, err = s.store.FindByOwner(s.ctx, owner.ID)
	s.Require().Error(err)
}

func (s *InstitutionServiceSuite) TestReadsGoThroughCache() {
	owner := s.seedUser()
	inst := s.create(owner.ID)

	got, err := s.service.GetInstitution(s.ctx, inst.ID)
	s.Require().NoError(err)
	s.Equal(inst.ID, got.ID)

	// A second read is served from the cache even if the store record
	// changes underneath it.
	inst.Name = "Renamed Behind The Cache"
	s.Require().NoError(s.store.Update(s.ctx, inst))

	got, err = s.service.GetInstitution(s.ctx, inst.ID)
	s.Require().NoError(err)
	s.Equal("Test Bank", got.Name)
}

func (s *InstitutionServiceSuite) TestGetUnknownInstitution() {
	_, err := s.service.GetInstitution(s.ctx, id.NewInstitutionID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *InstitutionServiceSuite) TestListReflectsWrites() {
	owner := s.seedUser()

	list, err := s.service.ListInstitutions(s.ctx)
	s.Require().NoError(err)
	s.Empty(list)

	inst := s.create(owner.ID)

	list, err = s.service.ListInstitutions(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(inst.ID, list[0].ID)

	name := "Updated Bank"
	_, err = s.service.UpdateInstitution(s.ctx, inst.ID, &models.UpdateRequest{Name: &name})
	s.Require().NoError(err)

	list, err = s.service.ListInstitutions(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("Updated Bank", list[0].Name)

	s.Require().NoError(s.service.DeleteInstitution(s.ctx, inst.ID))

	list, err = s.service.ListInstitutions(s.ctx)
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *InstitutionServiceSuite) TestDeleteRevokesRole() {
	owner := s.seedUser()
	inst := s.create(owner.ID)

	s.Require().NoError(s.service.DeleteInstitution(s.ctx, inst.ID))

	user, err := s.directory.FindByID(s.ctx, owner.ID)
	s.Require().NoError(err)
	s.False(user.HasRole(identitymodels.RoleFinancialInstitution))

	err = s.service.DeleteInstitution(s.ctx, inst.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
