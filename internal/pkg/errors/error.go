// internal/pkg/errors/error.go
package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized access")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict: resource already exists")
)

// ValidationError carries every problem found in one request so the client
// can fix them in a single round trip.
type ValidationError struct {
	Message string
	Errors  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s (%d problems)", e.Message, len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidation returns nil when there is nothing to report.
func NewValidation(message string, errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Message: message, Errors: errs}
}

// ForbiddenError is an authorization failure with a fixed client message and
// optional detail list.
type ForbiddenError struct {
	Message string
	Errors  []string
}

func (e *ForbiddenError) Error() string { return e.Message }

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

func Forbidden(message string, errs ...string) error {
	return &ForbiddenError{Message: message, Errors: errs}
}

// NotFoundError names the missing resource for the client.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func NotFound(message string) error {
	return &NotFoundError{Message: message}
}
