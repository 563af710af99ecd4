package models

import (
	"strings"
	"time"

	id "finflow/pkg/domain"
	dErrors "finflow/pkg/domain-errors"
)

// DocumentRef points at an already-uploaded supporting document. Upload
// handling lives outside this service; only the reference travels with
// the application.
type DocumentRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Application is a financing request moving through the pending →
// approved/rejected state machine. Terminal records never change again.
type Application struct {
	ID              id.ApplicationID     `json:"id"`
	ApplicantUserID id.UserID            `json:"applicant_user_id"`
	ProductID       id.ProductID         `json:"product_id"`
	Status          id.ApplicationStatus `json:"status"`
	Data            Data                 `json:"data"`
	Documents       []DocumentRef        `json:"documents,omitempty"`
	RejectionReason string               `json:"rejection_reason,omitempty"`
	ApprovalAmount  *float64             `json:"approval_amount,omitempty"`
	DecidedAt       *time.Time           `json:"decided_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func NewApplication(appID id.ApplicationID, applicant id.UserID, productID id.ProductID, data Data, documents []DocumentRef, now time.Time) (*Application, error) {
	if data == nil {
		data = Data{}
	}
	for _, doc := range documents {
		if strings.TrimSpace(doc.Name) == "" || strings.TrimSpace(doc.URL) == "" {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "document references need a name and a url")
		}
	}
	return &Application{
		ID:              appID,
		ApplicantUserID: applicant,
		ProductID:       productID,
		Status:          id.ApplicationPending,
		Data:            data,
		Documents:       documents,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Decide moves a pending application into a terminal status.
//
// On approval the approval amount is the override when given, otherwise the
// requested amount from the payload. On rejection a reason is required.
func (a *Application) Decide(status id.ApplicationStatus, reason string, amountOverride *float64, now time.Time) error {
	if !a.Status.CanTransitionTo(status) {
		return dErrors.Newf(dErrors.CodeInvalidState, "application is already %s", a.Status)
	}

	switch status {
	case id.ApplicationApproved:
		amount := amountOverride
		if amount == nil {
			if requested, ok := a.Data.Amount(); ok {
				amount = &requested
			}
		}
		a.ApprovalAmount = amount
		a.RejectionReason = ""
	case id.ApplicationRejected:
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return dErrors.New(dErrors.CodeValidation, "rejection requires a reason")
		}
		a.RejectionReason = reason
		a.ApprovalAmount = nil
	default:
		return dErrors.Newf(dErrors.CodeValidation, "%q is not a decision status", status)
	}

	a.Status = status
	a.DecidedAt = &now
	a.UpdatedAt = now
	return nil
}
