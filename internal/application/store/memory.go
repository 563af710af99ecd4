package store

import (
	"context"
	"sort"
	"sync"

	"finflow/internal/application/models"
	id "finflow/pkg/domain"
	"finflow/pkg/platform/sentinel"
)

// InMemory is a process-local application store. Execute runs its closure
// under the store lock, giving the same check-then-mutate atomicity the
// Postgres store gets from row locking.
type InMemory struct {
	mu           sync.Mutex
	applications map[id.ApplicationID]*models.Application
}

func NewInMemory() *InMemory {
	return &InMemory{applications: make(map[id.ApplicationID]*models.Application)}
}

func (s *InMemory) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.applications[app.ID]; ok {
		return sentinel.ErrConflict
	}
	s.applications[app.ID] = cloneApplication(app)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, appID id.ApplicationID) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.applications[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneApplication(app), nil
}

func (s *InMemory) FindByUser(_ context.Context, userID id.UserID) ([]*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Application
	for _, app := range s.applications {
		if app.ApplicantUserID == userID {
			out = append(out, cloneApplication(app))
		}
	}
	sortApplications(out)
	return out, nil
}

func (s *InMemory) FindByProduct(_ context.Context, productID id.ProductID) ([]*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Application
	for _, app := range s.applications {
		if app.ProductID == productID {
			out = append(out, cloneApplication(app))
		}
	}
	sortApplications(out)
	return out, nil
}

// FindPending returns the user's pending application for a product, if one
// exists. The duplicate guard only cares about pending records; decided
// ones never block a new submission.
func (s *InMemory) FindPending(_ context.Context, userID id.UserID, productID id.ProductID) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, app := range s.applications {
		if app.ApplicantUserID == userID && app.ProductID == productID && app.Status == id.ApplicationPending {
			return cloneApplication(app), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// Execute loads the application, applies fn to it and persists the result,
// all under the store lock. When fn fails nothing is written and its error
// is returned as-is.
func (s *InMemory) Execute(_ context.Context, appID id.ApplicationID, fn func(app *models.Application) error) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.applications[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	app := cloneApplication(current)
	if err := fn(app); err != nil {
		return nil, err
	}
	s.applications[appID] = cloneApplication(app)
	return app, nil
}

func sortApplications(apps []*models.Application) {
	sort.Slice(apps, func(i, j int) bool {
		if apps[i].CreatedAt.Equal(apps[j].CreatedAt) {
			return apps[i].ID.String() < apps[j].ID.String()
		}
		return apps[i].CreatedAt.Before(apps[j].CreatedAt)
	})
}

func cloneApplication(a *models.Application) *models.Application {
	cp := *a
	if a.Data != nil {
		cp.Data = make(models.Data, len(a.Data))
		for k, v := range a.Data {
			cp.Data[k] = v
		}
	}
	if a.Documents != nil {
		cp.Documents = append([]models.DocumentRef(nil), a.Documents...)
	}
	if a.ApprovalAmount != nil {
		amount := *a.ApprovalAmount
		cp.ApprovalAmount = &amount
	}
	if a.DecidedAt != nil {
		t := *a.DecidedAt
		cp.DecidedAt = &t
	}
	return &cp
}
