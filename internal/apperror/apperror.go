// Package apperror defines the error kinds shared by services and handlers.
//
// Each constructor returns an *AppError that wraps one of the sentinel
// errors below. Callers test the kind with errors.Is and read Message for
// the text shown to the user; Field names the offending input on
// validation failures.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")

	// Authentication and session failures.
	ErrVerification    = errors.New("identity verification failed")
	ErrDomainRejected  = errors.New("domain rejected")
	ErrAccessDenied    = errors.New("access denied")
	ErrSessionNotFound = errors.New("session not found")

	// ErrLastLeader is deliberately not wrapped in ErrForbidden: the caller has
	// the right to manage the roster, the removal itself would break it.
	ErrLastLeader = errors.New("last leader")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// VerificationFailed wraps the identity provider's failure. The cause is kept
// in the chain for logging but never shown to the client.
func VerificationFailed(cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrVerification, cause),
		Message: "identity credential could not be verified",
	}
}

func DomainRejected(email, domain string) *AppError {
	return &AppError{
		Err:     ErrDomainRejected,
		Message: fmt.Sprintf("%s is not an @%s account", email, domain),
	}
}

func AccessDenied(email string) *AppError {
	return &AppError{
		Err:     ErrAccessDenied,
		Message: fmt.Sprintf("%s is not registered in the staff directory", email),
	}
}

func SessionNotFound() *AppError {
	return &AppError{
		Err:     ErrSessionNotFound,
		Message: "session not found, please sign in again",
	}
}

func LastLeader(recordID string) *AppError {
	return &AppError{
		Err:     ErrLastLeader,
		Message: fmt.Sprintf("innovation %s must keep at least one leader or co-leader", recordID),
	}
}
