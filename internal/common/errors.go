package common

import "errors"

// Callers should use errors.Is to match these values.
var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrVersionConflict = errors.New("version conflict")

	// Service-level errors.
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrValidation      = errors.New("validation error")
	ErrTooManyRequests = errors.New("too many requests")

	// Auth errors.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingToken       = errors.New("token is missing")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
)
