// Package notify defines the notification sink the workflow dispatches to
// after successful writes, plus the sink implementations.
//
// Dispatch is best-effort by contract: a sink failure never unwinds the
// write that triggered it. Services surface sink failures as a warning on
// an otherwise successful result.
package notify

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	id "finflow/pkg/domain"
)

// EventKind identifies what happened to the entity the notification is about.
type EventKind string

const (
	EventApplicationReceived   EventKind = "application_received"
	EventApplicationApproved   EventKind = "application_approved"
	EventApplicationRejected   EventKind = "application_rejected"
	EventInstitutionRegistered EventKind = "institution_registered"
)

// Notification is a structured "notify user X about event Y on entity Z"
// request. Payload values are already human-readable; sinks never reach back
// into stores for formatting.
type Notification struct {
	TargetUserID id.UserID         `json:"target_user_id"`
	Kind         EventKind         `json:"kind"`
	Payload      map[string]string `json:"payload"`
}

// Notifier is the sink port. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

var failures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "finflow_notification_failures_total",
	Help: "Notification dispatch failures by event kind",
}, []string{"kind"})

// CountFailure records a dispatch failure for the given event kind.
// Services call this when converting a sink error into a warning.
func CountFailure(kind EventKind) {
	failures.WithLabelValues(string(kind)).Inc()
}
