package shared

import "errors"

var (
	// ErrValidation indicates a missing or empty required field.
	ErrValidation = errors.New("validation failed")
	// ErrNotAuthorized indicates a failed role or ownership check.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrNotFound indicates the referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition indicates the lifecycle guard rejected the move.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrExternal indicates an attachment store or dispatcher failure.
	ErrExternal = errors.New("external service failure")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
