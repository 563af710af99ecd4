// Package service runs the financing application workflow: submission
// through the pending state, then a single terminal decision.
//
// Operations follow the workflow ordering contract: validate against current
// state, write, invalidate cache entries, then dispatch notifications.
// The decision write is atomic with its terminal-state check; everything
// after the write is best-effort.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"finflow/internal/application/metrics"
	"finflow/internal/application/models"
	"finflow/internal/cache"
	identitymodels "finflow/internal/identity/models"
	institutionmodels "finflow/internal/institution/models"
	"finflow/internal/notify"
	productmodels "finflow/internal/product/models"
	id "finflow/pkg/domain"
	dErrors "finflow/pkg/domain-errors"
	"finflow/pkg/platform/sentinel"
	"finflow/pkg/requestcontext"
)

const cacheKeyPrefix = "applications:"

func cacheKeyID(appID id.ApplicationID) string {
	return "applications:id:" + appID.String()
}

func cacheKeyUser(userID id.UserID) string {
	return "applications:user:" + userID.String()
}

func cacheKeyProduct(productID id.ProductID) string {
	return "applications:product:" + productID.String()
}

func cacheKeyInstitution(instID id.InstitutionID) string {
	return "applications:institution:" + instID.String()
}

// ApplicationStore is the persistence port for applications. Execute runs
// its closure atomically against the current record, so status checks and
// the status write cannot interleave with a concurrent decision.
type ApplicationStore interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	FindByUser(ctx context.Context, userID id.UserID) ([]*models.Application, error)
	FindByProduct(ctx context.Context, productID id.ProductID) ([]*models.Application, error)
	FindPending(ctx context.Context, userID id.UserID, productID id.ProductID) (*models.Application, error)
	Execute(ctx context.Context, appID id.ApplicationID, fn func(app *models.Application) error) (*models.Application, error)
}

// Directory resolves platform users.
type Directory interface {
	FindByID(ctx context.Context, userID id.UserID) (*identitymodels.User, error)
}

// ProductCatalog is the slice of the product service this workflow needs.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID id.ProductID) (*productmodels.Product, error)
	ListProductsByInstitution(ctx context.Context, institutionID id.InstitutionID) ([]*productmodels.Product, error)
}

// InstitutionRegistry is the slice of the institution service this workflow needs.
type InstitutionRegistry interface {
	GetInstitution(ctx context.Context, instID id.InstitutionID) (*institutionmodels.Institution, error)
}

// Service orchestrates the application lifecycle.
type Service struct {
	applications ApplicationStore
	directory    Directory
	products     ProductCatalog
	institutions InstitutionRegistry
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

func New(applications ApplicationStore, directory Directory, products ProductCatalog, institutions InstitutionRegistry, c cache.Cache, opts ...Option) *Service {
	s := &Service{
		applications: applications,
		directory:    directory,
		products:     products,
		institutions: institutions,
		cache:        c,
		logger:       slog.Default(),
		tracer:       otel.Tracer("finflow/application"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateApplicationRequest carries the submission input.
type CreateApplicationRequest struct {
	ApplicantUserID id.UserID
	ProductID       id.ProductID
	Data            models.Data
	Documents       []models.DocumentRef
}

// CreateApplication submits a financing application against a product.
//
// All validation happens before any write: the applicant and product must
// exist, the product must be accepting applications, and the applicant must
// not already have a pending application for the same product. The
// institution owner is notified best-effort after the persist.
func (s *Service) CreateApplication(ctx context.Context, req CreateApplicationRequest) (*models.Application, *notify.Warning, error) {
	ctx, span := s.tracer.Start(ctx, "application.Create")
	defer span.End()

	applicant, err := s.directory.FindByID(ctx, req.ApplicantUserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve applicant")
	}

	product, err := s.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "product not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve product")
	}

	// An inactive product is a business rejection, not a missing resource.
	if !product.Active {
		return nil, nil, dErrors.New(dErrors.CodeInvalidState, "product is not accepting applications")
	}

	institution, err := s.institutions.GetInstitution(ctx, product.InstitutionID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "institution not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve institution")
	}

	if _, err := s.applications.FindPending(ctx, req.ApplicantUserID, req.ProductID); err == nil {
		return nil, nil, dErrors.New(dErrors.CodeConflict, "user already has a pending application for this product")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check pending applications")
	}

	now := requestcontext.Now(ctx)
	app, err := models.NewApplication(id.NewApplicationID(), req.ApplicantUserID, req.ProductID, req.Data, req.Documents, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, nil, err
	}

	if err := s.applications.Create(ctx, app); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create application")
	}

	s.invalidate(ctx)

	payload := map[string]string{
		"applicant_name": applicant.Name,
		"product_name":   product.Name,
	}
	if amount, ok := app.Data.Amount(); ok {
		payload["requested_amount"] = fmt.Sprintf("%.2f", amount)
	}
	warning := s.dispatch(ctx, notify.Notification{
		TargetUserID: institution.OwnerUserID,
		Kind:         notify.EventApplicationReceived,
		Payload:      payload,
	})

	if s.metrics != nil {
		s.metrics.Submitted.Inc()
	}
	s.logger.InfoContext(ctx, "application submitted",
		"application_id", app.ID, "applicant_user_id", app.ApplicantUserID, "product_id", app.ProductID)
	return app, warning, nil
}

// DecisionRequest carries a terminal decision for a pending application.
type DecisionRequest struct {
	Status          id.ApplicationStatus
	RejectionReason string
	ApprovalAmount  *float64
}

// PopulatedApplication is the application joined with the entities a
// decision notification talks about.
type PopulatedApplication struct {
	*models.Application
	Applicant   *identitymodels.User           `json:"applicant,omitempty"`
	Product     *productmodels.Product         `json:"product,omitempty"`
	Institution *institutionmodels.Institution `json:"institution,omitempty"`
}

// UpdateApplicationStatus applies a terminal decision.
//
// The terminal-state check and the status write happen inside the store's
// Execute closure, so two racing decisions serialize and the loser sees the
// already-terminal record. After the write the populated view is built and
// the applicant notified, both best-effort.
func (s *Service) UpdateApplicationStatus(ctx context.Context, appID id.ApplicationID, req DecisionRequest) (*PopulatedApplication, *notify.Warning, error) {
	ctx, span := s.tracer.Start(ctx, "application.Decide")
	defer span.End()

	now := requestcontext.Now(ctx)
	app, err := s.applications.Execute(ctx, appID, func(app *models.Application) error {
		return app.Decide(req.Status, req.RejectionReason, req.ApprovalAmount, now)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		var coded *dErrors.Error
		if errors.As(err, &coded) {
			return nil, nil, err
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decide application")
	}

	populated := s.BuildNotificationView(ctx, app)

	s.invalidate(ctx)

	warning := s.dispatch(ctx, populated.notification())

	if s.metrics != nil {
		s.metrics.Decided.WithLabelValues(app.Status.String()).Inc()
	}
	s.logger.InfoContext(ctx, "application decided",
		"application_id", app.ID, "status", app.Status)
	return populated, warning, nil
}

// BuildNotificationView resolves the applicant, product and institution an
// application refers to, in parallel. Resolution is best-effort: a missing
// collaborator leaves its field nil rather than failing the decision that
// already committed.
func (s *Service) BuildNotificationView(ctx context.Context, app *models.Application) *PopulatedApplication {
	view := &PopulatedApplication{Application: app}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		applicant, err := s.directory.FindByID(gctx, app.ApplicantUserID)
		if err != nil {
			return fmt.Errorf("applicant: %w", err)
		}
		view.Applicant = applicant
		return nil
	})
	g.Go(func() error {
		product, err := s.products.GetProduct(gctx, app.ProductID)
		if err != nil {
			return fmt.Errorf("product: %w", err)
		}
		view.Product = product
		institution, err := s.institutions.GetInstitution(gctx, product.InstitutionID)
		if err != nil {
			return fmt.Errorf("institution: %w", err)
		}
		view.Institution = institution
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "notification view incomplete",
			"application_id", app.ID, "error", err)
	}
	return view
}

// notification builds the applicant-facing decision notification from
// whatever the view managed to resolve.
func (p *PopulatedApplication) notification() notify.Notification {
	kind := notify.EventApplicationApproved
	payload := map[string]string{}
	if p.Status == id.ApplicationRejected {
		kind = notify.EventApplicationRejected
		payload["rejection_reason"] = p.RejectionReason
	} else if p.ApprovalAmount != nil {
		payload["approval_amount"] = fmt.Sprintf("%.2f", *p.ApprovalAmount)
	}
	if p.Product != nil {
		payload["product_name"] = p.Product.Name
	}
	if p.Institution != nil {
		payload["institution_name"] = p.Institution.Name
	}
	return notify.Notification{
		TargetUserID: p.ApplicantUserID,
		Kind:         kind,
		Payload:      payload,
	}
}

// GetApplication returns an application by id, read through the cache.
func (s *Service) GetApplication(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "application.Get")
	defer span.End()

	return cache.GetOrSet(ctx, s.cache, cacheKeyID(appID), func(ctx context.Context) (*models.Application, error) {
		app, err := s.applications.FindByID(ctx, appID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
		}
		return app, nil
	})
}

// ListApplicationsByUser returns a user's applications.
func (s *Service) ListApplicationsByUser(ctx context.Context, userID id.UserID) ([]*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "application.ListByUser")
	defer span.End()

	return cache.GetOrSet(ctx, s.cache, cacheKeyUser(userID), func(ctx context.Context) ([]*models.Application, error) {
		apps, err := s.applications.FindByUser(ctx, userID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
		}
		return apps, nil
	})
}

// ListApplicationsByProduct returns the applications submitted against a product.
func (s *Service) ListApplicationsByProduct(ctx context.Context, productID id.ProductID) ([]*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "application.ListByProduct")
	defer span.End()

	return cache.GetOrSet(ctx, s.cache, cacheKeyProduct(productID), func(ctx context.Context) ([]*models.Application, error) {
		apps, err := s.applications.FindByProduct(ctx, productID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
		}
		return apps, nil
	})
}

// ListApplicationsByInstitution is the back-office view: every application
// against any of the institution's products.
func (s *Service) ListApplicationsByInstitution(ctx context.Context, instID id.InstitutionID) ([]*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "application.ListByInstitution")
	defer span.End()

	return cache.GetOrSet(ctx, s.cache, cacheKeyInstitution(instID), func(ctx context.Context) ([]*models.Application, error) {
		if _, err := s.institutions.GetInstitution(ctx, instID); err != nil {
			if isNotFound(err) {
				return nil, dErrors.New(dErrors.CodeNotFound, "institution not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve institution")
		}
		products, err := s.products.ListProductsByInstitution(ctx, instID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list institution products")
		}
		var out []*models.Application
		for _, product := range products {
			apps, err := s.applications.FindByProduct(ctx, product.ID)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
			}
			out = append(out, apps...)
		}
		return out, nil
	})
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKeyPrefix+"*"); err != nil {
		s.logger.WarnContext(ctx, "application cache invalidation failed", "error", err)
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

// isNotFound matches both the sentinel form stores return and the coded
// form collaborating services return.
func isNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound) || dErrors.HasCode(err, dErrors.CodeNotFound)
}
