package models

import (
	"strings"
	"time"

	id "finflow/pkg/domain"
	dErrors "finflow/pkg/domain-errors"
)

// Product is a loan/financing offering published by an institution.
//
// Invariants:
//   - Name is non-empty and at most 128 characters
//   - 0 <= RateMin <= RateMax
//   - InstitutionID references an existing institution at creation time
//     (checked by the workflow before the write)
type Product struct {
	ID            id.ProductID     `json:"id"`
	InstitutionID id.InstitutionID `json:"institution_id"`
	Name          string           `json:"name"`
	Type          string           `json:"type"`
	RateMin       float64          `json:"rate_min"`
	RateMax       float64          `json:"rate_max"`
	Active        bool             `json:"is_active"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func NewProduct(productID id.ProductID, institutionID id.InstitutionID, name, productType string, rateMin, rateMax float64, active bool, now time.Time) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "product name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "product name must be 128 characters or less")
	}
	if rateMin < 0 || rateMax < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "interest rates cannot be negative")
	}
	if rateMin > rateMax {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "minimum rate cannot exceed maximum rate")
	}
	return &Product{
		ID:            productID,
		InstitutionID: institutionID,
		Name:          name,
		Type:          strings.TrimSpace(productType),
		RateMin:       rateMin,
		RateMax:       rateMax,
		Active:        active,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// UpdateRequest carries the mutable product fields; nil leaves a field
// unchanged. Toggling Active controls whether new applications are accepted.
type UpdateRequest struct {
	Name    *string  `json:"name,omitempty"`
	Type    *string  `json:"type,omitempty"`
	RateMin *float64 `json:"rate_min,omitempty"`
	RateMax *float64 `json:"rate_max,omitempty"`
	Active  *bool    `json:"is_active,omitempty"`
}

// Apply mutates the product with the requested changes after validating
// them against the model invariants.
func (r *UpdateRequest) Apply(p *Product, now time.Time) error {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if name == "" || len(name) > 128 {
			return dErrors.New(dErrors.CodeValidation, "product name must be 1-128 characters")
		}
		p.Name = name
	}
	if r.Type != nil {
		p.Type = strings.TrimSpace(*r.Type)
	}
	rateMin, rateMax := p.RateMin, p.RateMax
	if r.RateMin != nil {
		rateMin = *r.RateMin
	}
	if r.RateMax != nil {
		rateMax = *r.RateMax
	}
	if rateMin < 0 || rateMin > rateMax {
		return dErrors.New(dErrors.CodeValidation, "interest rate range is invalid")
	}
	p.RateMin, p.RateMax = rateMin, rateMax
	if r.Active != nil {
		p.Active = *r.Active
	}
	p.UpdatedAt = now
	return nil
}
