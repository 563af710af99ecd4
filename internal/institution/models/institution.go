package models

import (
	"strings"
	"time"

	id "finflow/pkg/domain"
	dErrors "finflow/pkg/domain-errors"
)

// Institution is a financial-services provider account.
//
// Invariants:
//   - Name is non-empty and at most 128 characters
//   - ContactEmail is non-empty and contains '@'
//   - OwnerUserID is unique across all institutions; the workflow enforces
//     this with a by-owner lookup before any write, backed by the store's
//     owner uniqueness guard for the concurrent window
type Institution struct {
	ID           id.InstitutionID `json:"id"`
	OwnerUserID  id.UserID        `json:"owner_user_id"`
	Name         string           `json:"name"`
	Type         string           `json:"type"`
	ContactEmail string           `json:"contact_email"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func NewInstitution(instID id.InstitutionID, owner id.UserID, name, instType, contactEmail string, now time.Time) (*Institution, error) {
	name = strings.TrimSpace(name)
	contactEmail = strings.TrimSpace(contactEmail)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "institution name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "institution name must be 128 characters or less")
	}
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "institution owner is required")
	}
	if !strings.Contains(contactEmail, "@") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "contact email must be a valid address")
	}
	return &Institution{
		ID:           instID,
		OwnerUserID:  owner,
		Name:         name,
		Type:         strings.TrimSpace(instType),
		ContactEmail: contactEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// UpdateRequest carries the mutable institution fields; nil leaves a field
// unchanged.
type UpdateRequest struct {
	Name         *string `json:"name,omitempty"`
	Type         *string `json:"type,omitempty"`
	ContactEmail *string `json:"contact_email,omitempty"`
}

// Apply mutates the institution with the requested changes after validating
// them against the model invariants.
func (r *UpdateRequest) Apply(inst *Institution, now time.Time) error {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if name == "" || len(name) > 128 {
			return dErrors.New(dErrors.CodeValidation, "institution name must be 1-128 characters")
		}
		inst.Name = name
	}
	if r.Type != nil {
		inst.Type = strings.TrimSpace(*r.Type)
	}
	if r.ContactEmail != nil {
		email := strings.TrimSpace(*r.ContactEmail)
		if !strings.Contains(email, "@") {
			return dErrors.New(dErrors.CodeValidation, "contact email must be a valid address")
		}
		inst.ContactEmail = email
	}
	inst.UpdatedAt = now
	return nil
}
