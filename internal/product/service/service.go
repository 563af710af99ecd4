// Package service manages the loan product catalog.
//
// Products belong to an institution and gate application intake through
// their active flag. Reads go through the cache; every write invalidates
// the whole product key family.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"finflow/internal/cache"
	"finflow/internal/product/metrics"
	"finflow/internal/product/models"
	id "finflow/pkg/domain"
	dErrors "finflow/pkg/domain-errors"
	"finflow/pkg/platform/sentinel"
	"finflow/pkg/requestcontext"
)

const (
	cacheKeyAll    = "products:all"
	cacheKeyPrefix = "products:"

	// The institution application views join applications against the
	// catalog, so catalog writes invalidate them too.
	applicationViewPrefix = "applications:institution:"
)

func cacheKeyID(productID id.ProductID) string {
	return "products:id:" + productID.String()
}

func cacheKeyInstitution(institutionID id.InstitutionID) string {
	return "products:institution:" + institutionID.String()
}

// ProductStore is the persistence port for products.
type ProductStore interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, productID id.ProductID) (*models.Product, error)
	FindAll(ctx context.Context) ([]*models.Product, error)
	FindByInstitution(ctx context.Context, institutionID id.InstitutionID) ([]*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, productID id.ProductID) error
}

// institutionChecker reports whether the owning institution exists.
// It is the narrow slice of the institution service the catalog needs.
type institutionChecker func(ctx context.Context, instID id.InstitutionID) error

// Service manages the product catalog for institutions.
type Service struct {
	products    ProductStore
	institution institutionChecker
	cache       cache.Cache
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a Service. checkInstitution reports whether the given
// institution exists; it is consulted on product creation only.
func New(products ProductStore, checkInstitution func(ctx context.Context, instID id.InstitutionID) error, c cache.Cache, opts ...Option) *Service {
	s := &Service{
		products:    products,
		institution: checkInstitution,
		cache:       c,
		logger:      slog.Default(),
		tracer:      otel.Tracer("finflow/product"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateProductRequest carries the catalog input.
type CreateProductRequest struct {
	InstitutionID id.InstitutionID
	Name          string
	Type          string
	RateMin       float64
	RateMax       float64
	Active        bool
}

// CreateProduct adds a product to an existing institution's catalog.
func (s *Service) CreateProduct(ctx context.Context, req CreateProductRequest) (*models.Product, error) {
	ctx, span := s.tracer.Start(ctx, "product.Create")
	defer span.End()

	if err := s.institution(ctx, req.InstitutionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "institution not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve institution")
	}

	product, err := models.NewProduct(id.NewProductID(), req.InstitutionID,
		req.Name, req.Type, req.RateMin, req.RateMax, req.Active, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create product")
	}

	s.invalidate(ctx)
	if s.metrics != nil {
		s.metrics.Created.Inc()
	}
	s.logger.InfoContext(ctx, "product created",
		"product_id", product.ID, "institution_id", product.InstitutionID)
	return product, nil
}

// GetProduct returns a product by id, read through the cache.
func (s *Service) GetProduct(ctx context.Context, productID id.ProductID) (*models.Product, error) {
	ctx, span := s.tracer.Start(ctx, "product.Get")
	defer span.End()

	return cache.GetOrSet(ctx, s.cache, cacheKeyID(productID), func(ctx context.Context) (*models.Product, error) {
		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "product not found")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load product")
		}
		return product, nil
	})
}

// ListProducts returns the full catalog.
func (s *Service) ListProducts(ctx context.Context) ([]*models.Product, error) {
	ctx, span := s.tracer.Start(ctx, "product.List")
	defer span.End()

	return cache.GetOrSet(ctx, s.cache, cacheKeyAll, func(ctx context.Context) ([]*models.Product, error) {
		products, err := s.products.FindAll(ctx)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list products")
		}
		return products, nil
	})
}

// ListProductsByInstitution returns one institution's catalog.
func (s *Service) ListProductsByInstitution(ctx context.Context, institutionID id.InstitutionID) ([]*models.Product, error) {
	ctx, span := s.tracer.Start(ctx, "product.ListByInstitution")
	defer span.End()

	return cache.GetOrSet(ctx, s.cache, cacheKeyInstitution(institutionID), func(ctx context.Context) ([]*models.Product, error) {
		products, err := s.products.FindByInstitution(ctx, institutionID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list products")
		}
		return products, nil
	})
}

// UpdateProduct applies the requested field changes, including toggling
// the active flag that gates new applications.
func (s *Service) UpdateProduct(ctx context.Context, productID id.ProductID, req *models.UpdateRequest) (*models.Product, error) {
	ctx, span := s.tracer.Start(ctx, "product.Update")
	defer span.End()

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "product not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load product")
	}

	if err := req.Apply(product, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}

	if err := s.products.Update(ctx, product); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "product not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update product")
	}

	s.invalidate(ctx)
	return product, nil
}

// DeleteProduct removes a product from the catalog.
func (s *Service) DeleteProduct(ctx context.Context, productID id.ProductID) error {
	ctx, span := s.tracer.Start(ctx, "product.Delete")
	defer span.End()

	if err := s.products.Delete(ctx, productID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "product not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete product")
	}

	s.invalidate(ctx)
	if s.metrics != nil {
		s.metrics.Deleted.Inc()
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKeyPrefix+"*", applicationViewPrefix+"*"); err != nil {
		s.logger.WarnContext(ctx, "product cache invalidation failed", "error", err)
	}
}
