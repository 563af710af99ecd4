package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"finflow/internal/cache"
	"finflow/internal/product/models"
	"finflow/internal/product/store"
	id "finflow/pkg/domain"
	dErrors "finflow/pkg/domain-errors"
	"finflow/pkg/platform/sentinel"
)

type ProductServiceSuite struct {
	suite.Suite
	ctx          context.Context
	store        *store.InMemory
	cache        *cache.InMemory
	institutions map[id.InstitutionID]bool
	service      *Service
}

func TestProductServiceSuite(t *testing.T) {
	suite.Run(t, new(ProductServiceSuite))
}

func (s *ProductServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.cache = cache.NewInMemory()
	s.institutions = make(map[id.InstitutionID]bool)
	checkInstitution := func(_ context.Context, instID id.InstitutionID) error {
		if !s.institutions[instID] {
			return sentinel.ErrNotFound
		}
		return nil
	}
	s.service = New(s.store, checkInstitution, s.cache)
}

func (s *ProductServiceSuite) seedInstitution() id.InstitutionID {
	instID := id.NewInstitutionID()
	s.institutions[instID] = true
	return instID
}

func (s *ProductServiceSuite) create(instID id.InstitutionID, name string) *models.Product {
	product, err := s.service.CreateProduct(s.ctx, CreateProductRequest{
		InstitutionID: instID,
		Name:          name,
		Type:          "working_capital",
		RateMin:       1.5,
		RateMax:       4.0,
		Active:        true,
	})
	s.Require().NoError(err)
	return product
}

func (s *ProductServiceSuite) TestCreateProduct() {
	s.Run("creates product for existing institution", func() {
		instID := s.seedInstitution()
		product := s.create(instID, "Invoice Financing")

		s.Equal(instID, product.InstitutionID)
		s.Equal("Invoice Financing", product.Name)
		s.True(product.Active)
		s.False(product.ID.IsNil())
	})

	s.Run("unknown institution fails with not found", func() {
		_, err := s.service.CreateProduct(s.ctx, CreateProductRequest{
			InstitutionID: id.NewInstitutionID(),
			Name:          "Orphan Product",
			RateMin:       1,
			RateMax:       2,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("inverted rate range fails validation", func() {
		instID := s.seedInstitution()
		_, err := s.service.CreateProduct(s.ctx, CreateProductRequest{
			InstitutionID: instID,
			Name:          "Bad Rates",
			RateMin:       5,
			RateMax:       2,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		products, ferr := s.store.FindByInstitution(s.ctx, instID)
		s.Require().NoError(ferr)
		s.Empty(products)
	})

	s.Run("empty name fails validation", func() {
		instID := s.seedInstitution()
		_, err := s.service.CreateProduct(s.ctx, CreateProductRequest{
			InstitutionID: instID,
			Name:          "   ",
			RateMin:       1,
			RateMax:       2,
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ProductServiceSuite) TestGetProduct() {
	s.Run("returns product through cache", func() {
		instID := s.seedInstitution()
		product := s.create(instID, "Term Loan")

		got, err := s.service.GetProduct(s.ctx, product.ID)
		s.Require().NoError(err)
		s.Equal(product.ID, got.ID)

		// A second read must be served from the cache: delete the backing
		// row and observe the stale entry until invalidation.
		s.Require().NoError(s.store.Delete(s.ctx, product.ID))
		got, err = s.service.GetProduct(s.ctx, product.ID)
		s.Require().NoError(err)
		s.Equal(product.ID, got.ID)
	})

	s.Run("unknown product fails with not found", func() {
		_, err := s.service.GetProduct(s.ctx, id.NewProductID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ProductServiceSuite) TestListReflectsWrites() {
	instID := s.seedInstitution()
	first := s.create(instID, "Product A")

	products, err := s.service.ListProducts(s.ctx)
	s.Require().NoError(err)
	s.Len(products, 1)

	// The create after a cached list must invalidate it.
	s.create(instID, "Product B")
	products, err = s.service.ListProducts(s.ctx)
	s.Require().NoError(err)
	s.Len(products, 2)

	inactive := false
	_, err = s.service.UpdateProduct(s.ctx, first.ID, &models.UpdateRequest{Active: &inactive})
	s.Require().NoError(err)

	products, err = s.service.ListProductsByInstitution(s.ctx, instID)
	s.Require().NoError(err)
	s.Require().Len(products, 2)
	s.False(products[0].Active)
	s.True(products[1].Active)

	s.Require().NoError(s.service.DeleteProduct(s.ctx, first.ID))
	products, err = s.service.ListProducts(s.ctx)
	s.Require().NoError(err)
	s.Len(products, 1)
}

func (s *ProductServiceSuite) TestUpdateProduct() {
	s.Run("applies field changes", func() {
		instID := s.seedInstitution()
		product := s.create(instID, "Old Name")

		name := "New Name"
		rateMax := 6.5
		updated, err := s.service.UpdateProduct(s.ctx, product.ID, &models.UpdateRequest{
			Name:    &name,
			RateMax: &rateMax,
		})
		s.Require().NoError(err)
		s.Equal("New Name", updated.Name)
		s.Equal(6.5, updated.RateMax)
	})

	s.Run("rejects range that inverts existing bounds", func() {
		instID := s.seedInstitution()
		product := s.create(instID, "Stable Product")

		rateMin := 9.0
		_, err := s.service.UpdateProduct(s.ctx, product.ID, &models.UpdateRequest{RateMin: &rateMin})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		got, ferr := s.store.FindByID(s.ctx, product.ID)
		s.Require().NoError(ferr)
		s.Equal(1.5, got.RateMin)
	})

	s.Run("unknown product fails with not found", func() {
		name := "x"
		_, err := s.service.UpdateProduct(s.ctx, id.NewProductID(), &models.UpdateRequest{Name: &name})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// Catalog writes must also drop the cached institution application views:
// they are built by joining applications against the product list, so a
// product create or delete changes what they should contain.
func (s *ProductServiceSuite) TestWritesInvalidateInstitutionApplicationViews() {
	instID := s.seedInstitution()
	viewKey := "applications:institution:" + instID.String()

	s.Require().NoError(s.cache.Set(s.ctx, viewKey, []byte(`[]`)))
	product := s.create(instID, "New Product")
	_, err := s.cache.Get(s.ctx, viewKey)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.cache.Set(s.ctx, viewKey, []byte(`[]`)))
	s.Require().NoError(s.service.DeleteProduct(s.ctx, product.ID))
	_, err = s.cache.Get(s.ctx, viewKey)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ProductServiceSuite) TestDeleteProduct() {
	instID := s.seedInstitution()
	product := s.create(instID, "Doomed Product")

	s.Require().NoError(s.service.DeleteProduct(s.ctx, product.ID))

	err := s.service.DeleteProduct(s.ctx, product.ID)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
