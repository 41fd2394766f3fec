package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrBadRequest = errors.New("bad request")

	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUnverifiedAccount     = errors.New("unverified account")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	// ErrInvalidOTP covers both a wrong code and an expired one.
	ErrInvalidOTP = errors.New("invalid otp")

	// ErrStorage marks an unexpected store failure. It is the only kind that is logged.
	ErrStorage = errors.New("storage failure")
)

// StorageError wraps a backend error so that it matches both ErrStorage and the cause.
func StorageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// FieldError reports a problem with one request field. It matches Err with errors.Is.
type FieldError struct {
	Field   string
	Message string
	Err     error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
