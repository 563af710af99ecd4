// Package service orchestrates institution onboarding and lifecycle.
//
// Operations follow the workflow ordering contract: validate against current
// state, write, invalidate cache entries, then dispatch notifications.
// Cache invalidation and notification are best-effort once the primary
// write has committed.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"finflow/internal/cache"
	identitymodels "finflow/internal/identity/models"
	"finflow/internal/institution/metrics"
	"finflow/internal/institution/models"
	"finflow/internal/notify"
	id "finflow/pkg/domain"
	dErrors "finflow/pkg/domain-errors"
	"finflow/pkg/platform/sentinel"
	"finflow/pkg/requestcontext"
)

// Cache keys for the institution read paths. Every successful write
// invalidates the whole family.
const (
	cacheKeyAll    = "institutions:all"
	cacheKeyPrefix = "institutions:"
)

func cacheKeyID(instID id.InstitutionID) string {
	return "institutions:id:" + instID.String()
}

// InstitutionStore is the persistence port for institutions.
type InstitutionStore interface {
	Create(ctx context.Context, inst *models.Institution) error
	FindByID(ctx context.Context, instID id.InstitutionID) (*models.Institution, error)
	FindByOwner(ctx context.Context, owner id.UserID) (*models.Institution, error)
	FindAll(ctx context.Context) ([]*models.Institution, error)
	Update(ctx context.Context, inst *models.Institution) error
	Delete(ctx context.Context, instID id.InstitutionID) error
}

// Directory resolves platform users and mutates their role set.
type Directory interface {
	FindByID(ctx context.Context, userID id.UserID) (*identitymodels.User, error)
	GrantRole(ctx context.Context, userID id.UserID, role identitymodels.Role, now time.Time) (*identitymodels.User, error)
	RevokeRole(ctx context.Context, userID id.UserID, role identitymodels.Role, now time.Time) (*identitymodels.User, error)
}

// Service orchestrates institution lifecycle management.
type Service struct {
	institutions InstitutionStore
	directory    Directory
	cache        cache.Cache
	notifier     notify.Notifier
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// New constructs a Service. The cache is injected rather than reached
// globally so tests can substitute a deterministic or no-op cache.
func New(institutions InstitutionStore, directory Directory, c cache.Cache, opts ...Option) *Service {
	s := &Service{
		institutions: institutions,
		directory:    directory,
		cache:        c,
		logger:       slog.Default(),
		tracer:       otel.Tracer("finflow/institution"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInstitutionRequest carries the onboarding input.
type CreateInstitutionRequest struct {
	OwnerUserID  id.UserID
	Name         string
	Type         string
	ContactEmail string
}

// CreateInstitution onboards a financial institution for the owner user.
//
// Two sequenced steps make up the logical operation: persist the
// institution, then grant the owner the financial-institution role marker.
// The role grant is idempotent, so it is the step retried on partial
// failure; when it cannot be completed the created institution is removed
// again and the whole operation fails.
func (s *Service) CreateInstitution(ctx context.Context, req CreateInstitutionRequest) (*models.Institution, *notify.Warning, error) {
	ctx, span := s.tracer.Start(ctx, "institution.Create")
	defer span.End()

	if _, err := s.directory.FindByID(ctx, req.OwnerUserID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve owner user")
	}

	if _, err := s.institutions.FindByOwner(ctx, req.OwnerUserID); err == nil {
		return nil, nil, dErrors.New(dErrors.CodeConflict, "user already has an institution")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing institution")
	}

	now := requestcontext.Now(ctx)
	inst, err := models.NewInstitution(id.NewInstitutionID(), req.OwnerUserID, req.Name, req.Type, req.ContactEmail, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, nil, err
	}

	if err := s.institutions.Create(ctx, inst); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, nil, dErrors.New(dErrors.CodeConflict, "user already has an institution")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create institution")
	}

	if _, err := s.directory.GrantRole(ctx, req.OwnerUserID, identitymodels.RoleFinancialInstitution, now); err != nil {
		// Compensate: the role marker is part of the same logical operation
		// and must not be skipped, so undo the institution write.
		if derr := s.institutions.Delete(ctx, inst.ID); derr != nil {
			s.logger.ErrorContext(ctx, "compensation failed after role grant error",
				"institution_id", inst.ID, "error", derr)
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant institution role")
	}

	s.invalidate(ctx)

	warning := s.dispatch(ctx, notify.Notification{
		TargetUserID: inst.OwnerUserID,
		Kind:         notify.EventInstitutionRegistered,
		Payload: map[string]string{
			"institution_name": inst.Name,
		},
	})

	if s.metrics != nil {
		s.metrics.Created.Inc()
	}
	s.logger.InfoContext(ctx, "institution created",
		"institution_id", inst.ID, "owner_user_id", inst.OwnerUserID)
	return inst, warning, nil
}

// GetInstitution returns an institution by id, read through the cache.
func (s *Service) GetInstitution(ctx context.Context, instID id.InstitutionID) (*models.Institution, error) {
	ctx, span := s.tracer.Start(ctx, "institution.Get")
	defer span.End()

	return cache.GetOrSet(ctx, s.cache, cacheKeyID(instID), func(ctx context.Context) (*models.Institution, error) {
		inst, err := s.institutions.FindByID(ctx, instID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "institution not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load institution")
		}
		return inst, nil
	})
}

// ListInstitutions returns all institutions, cached as a single list entry.
func (s *Service) ListInstitutions(ctx context.Context) ([]*models.Institution, error) {
	ctx, span := s.tracer.Start(ctx, "institution.List")
	defer span.End()

	return cache.GetOrSet(ctx, s.cache, cacheKeyAll, func(ctx context.Context) ([]*models.Institution, error) {
		insts, err := s.institutions.FindAll(ctx)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list institutions")
		}
		return insts, nil
	})
}

// UpdateInstitution applies the requested field changes.
func (s *Service) UpdateInstitution(ctx context.Context, instID id.InstitutionID, req *models.UpdateRequest) (*models.Institution, error) {
	ctx, span := s.tracer.Start(ctx, "institution.Update")
	defer span.End()

	inst, err := s.institutions.FindByID(ctx, instID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "institution not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load institution")
	}

	if err := req.Apply(inst, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}

	if err := s.institutions.Update(ctx, inst); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "institution not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update institution")
	}

	s.invalidate(ctx)
	return inst, nil
}

// DeleteInstitution removes an institution and revokes the owner's role
// marker. The revocation is best-effort: the delete is the primary write.
func (s *Service) DeleteInstitution(ctx context.Context, instID id.InstitutionID) error {
	ctx, span := s.tracer.Start(ctx, "institution.Delete")
	defer span.End()

	inst, err := s.institutions.FindByID(ctx, instID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "institution not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load institution")
	}

	if err := s.institutions.Delete(ctx, instID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "institution not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete institution")
	}

	if _, err := s.directory.RevokeRole(ctx, inst.OwnerUserID, identitymodels.RoleFinancialInstitution, requestcontext.Now(ctx)); err != nil {
		s.logger.WarnContext(ctx, "failed to revoke institution role",
			"owner_user_id", inst.OwnerUserID, "error", err)
	}

	s.invalidate(ctx)
	if s.metrics != nil {
		s.metrics.Deleted.Inc()
	}
	return nil
}

// invalidate drops the whole institution cache family. Invalidation always
// follows the write it covers; a failure here only costs staleness until
// the TTL backstop, so it is logged rather than propagated.
func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKeyPrefix+"*"); err != nil {
		s.logger.WarnContext(ctx, "institution cache invalidation failed", "error", err)
	}
}

func (s *Service) dispatch(ctx context.Context, n notify.Notification) *notify.Warning {
	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		notify.CountFailure(n.Kind)
		s.logger.WarnContext(ctx, "notification dispatch failed",
			"kind", string(n.Kind), "target_user_id", n.TargetUserID, "error", err)
		return &notify.Warning{Kind: n.Kind, Err: err}
	}
	return nil
}
