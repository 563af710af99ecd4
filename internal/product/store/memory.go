package store

import (
	"context"
	"sort"
	"sync"

	"finflow/internal/product/models"
	id "finflow/pkg/domain"
	"finflow/pkg/platform/sentinel"
)

// InMemory is a process-local product store used in tests and when no
// database is configured.
type InMemory struct {
	mu       sync.RWMutex
	products map[id.ProductID]*models.Product
}

func NewInMemory() *InMemory {
	return &InMemory{products: make(map[id.ProductID]*models.Product)}
}

func (s *InMemory) Create(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.ID]; ok {
		return sentinel.ErrConflict
	}
	s.products[product.ID] = cloneProduct(product)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, productID id.ProductID) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[productID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneProduct(product), nil
}

func (s *InMemory) FindAll(_ context.Context) ([]*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Product, 0, len(s.products))
	for _, product := range s.products {
		out = append(out, cloneProduct(product))
	}
	sortProducts(out)
	return out, nil
}

func (s *InMemory) FindByInstitution(_ context.Context, institutionID id.InstitutionID) ([]*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Product
	for _, product := range s.products {
		if product.InstitutionID == institutionID {
			out = append(out, cloneProduct(product))
		}
	}
	sortProducts(out)
	return out, nil
}

func (s *InMemory) Update(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.products[product.ID] = cloneProduct(product)
	return nil
}

func (s *InMemory) Delete(_ context.Context, productID id.ProductID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[productID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.products, productID)
	return nil
}

func sortProducts(products []*models.Product) {
	sort.Slice(products, func(i, j int) bool {
		if products[i].CreatedAt.Equal(products[j].CreatedAt) {
			return products[i].ID.String() < products[j].ID.String()
		}
		return products[i].CreatedAt.Before(products[j].CreatedAt)
	})
}

func cloneProduct(p *models.Product) *models.Product {
	cp := *p
	return &cp
}
