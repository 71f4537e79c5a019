// Package apperror defines the application's error taxonomy.
//
// Services return these errors; the HTTP layer maps them to status codes
// in handler/response.go. The sentinel errors below are the "kinds" —
// callers test for them with errors.Is, which walks the wrap chain, so a
// service can add context with fmt.Errorf("...: %w", err) without losing
// the kind.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")

	// Token problems — recoverable by logging in again.
	// Expired and invalid are separate kinds so clients can decide whether
	// to prompt re-login (expired) or treat the token as garbage (invalid).
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrCredentialExpired = errors.New("credential expired")

	// Account-state problems — the token was fine, the account is not.
	ErrUnknownPrincipal = errors.New("unknown principal")
	ErrAccountDisabled  = errors.New("account disabled")
	ErrAccountLocked    = errors.New("account locked")

	// Storage/signing backend failure. Fatal to the request, logged,
	// never retried inline.
	ErrInfrastructure = errors.New("infrastructure error")
)

type AppError struct {
	Err     error  // sentinel kind (one of the errors above)
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

func Conflict(resource, detail string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict: %s", resource, detail),
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

// Unauthenticated returns the generic "log in first" error.
// HTTP handlers map this to 401 Unauthorized.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// AccountLocked carries the remaining lock duration in whole minutes so
// the client can show a retry-after hint. HTTP handlers map it to 423.
func AccountLocked(remainingMinutes int) *AppError {
	return &AppError{
		Err:     ErrAccountLocked,
		Message: fmt.Sprintf("account is temporarily locked, try again in %d minutes", remainingMinutes),
	}
}

// Infrastructure wraps a backend failure (database, signing) that should
// surface as a 500 without leaking the underlying error to the client.
func Infrastructure(op string, err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %s: %w", ErrInfrastructure, op, err),
		Message: "an internal error occurred",
	}
}
