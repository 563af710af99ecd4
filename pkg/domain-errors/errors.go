// Package domainerrors provides coded domain errors for the workflow core.
//
// Services return these so transport layers can map failures to user-visible
// responses without string matching. Stores and infrastructure return
// pkg/platform/sentinel errors instead; services translate at the boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error. Codes are part of the service contract:
// handlers map them to HTTP status codes and clients branch on them.
type Code string

const (
	// CodeBadRequest marks a malformed request (unparseable body, bad ids).
	CodeBadRequest Code = "bad_request"
	// CodeValidation marks input that parsed but failed validation rules.
	CodeValidation Code = "validation"
	// CodeInvalidInput marks a domain value that failed its parsing invariant.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound marks a referenced entity that does not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a uniqueness invariant violation.
	CodeConflict Code = "conflict"
	// CodeInvalidState marks an operation against an entity whose current
	// state forbids it (deciding a terminal application, applying against
	// an inactive product).
	CodeInvalidState Code = "invalid_state"
	// CodeForbidden marks an operation the caller may not perform.
	CodeForbidden Code = "forbidden"
	// CodeUnauthorized marks a missing or invalid caller identity.
	CodeUnauthorized Code = "unauthorized"
	// CodeInvariantViolation marks a broken model invariant detected at
	// construction time. Services usually re-code these as validation.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeTimeout marks an aborted operation whose outcome is unknown.
	CodeTimeout Code = "timeout"
	// CodeUnavailable marks a dependency that is temporarily unreachable.
	CodeUnavailable Code = "unavailable"
	// CodeInternal marks an unexpected failure; details stay server-side.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. It may wrap an underlying cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is/As inspection.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err carries the given code directly.
// Only the outermost coded error is consulted: re-coding at a service
// boundary deliberately replaces the classification.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the message from err, or the raw error text when err
// carries no code.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
