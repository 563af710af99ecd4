package domain

import dErrors "finflow/pkg/domain-errors"

// ApplicationStatus is the decision state of a financing application.
// Invariant: pending is the only initial state; approved and rejected are
// terminal and no transition leaves a terminal state.
//
// Usage: construct via ParseApplicationStatus at trust boundaries to enforce
// the allowlist; direct casting bypasses validation.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// validApplicationStatuses is the single source of truth for valid statuses.
var validApplicationStatuses = map[ApplicationStatus]bool{
	ApplicationPending:  true,
	ApplicationApproved: true,
	ApplicationRejected: true,
}

// ParseApplicationStatus constructs an ApplicationStatus from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "status cannot be empty")
	}
	st := ApplicationStatus(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid application status")
	}
	return st, nil
}

// ParseDecision is ParseApplicationStatus restricted to decision outcomes.
// A decision can only move an application to approved or rejected; asking
// for pending is rejected here rather than deeper in the workflow.
func ParseDecision(s string) (ApplicationStatus, error) {
	st, err := ParseApplicationStatus(s)
	if err != nil {
		return "", err
	}
	if !st.IsTerminal() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "decision must be approved or rejected")
	}
	return st, nil
}

// IsValid checks the status is one of the supported enum values.
func (s ApplicationStatus) IsValid() bool {
	return validApplicationStatuses[s]
}

// IsTerminal reports whether the status permits no further transitions.
func (s ApplicationStatus) IsTerminal() bool {
	return s == ApplicationApproved || s == ApplicationRejected
}

// CanTransitionTo reports whether a transition from s to target is legal.
// The only legal transitions are pending -> approved and pending -> rejected.
func (s ApplicationStatus) CanTransitionTo(target ApplicationStatus) bool {
	return s == ApplicationPending && target.IsTerminal()
}

// String returns the string representation of the status.
func (s ApplicationStatus) String() string {
	return string(s)
}
