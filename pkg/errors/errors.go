package errors

import (
	"errors"
	"fmt"
)

// Common application errors. Handlers map these to HTTP status codes.

var (
	// ErrNotFound indicates a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates a conflict with existing data
	ErrConflict = errors.New("conflict")

	// ErrStorage indicates a failure in attachment or record persistence
	ErrStorage = errors.New("storage failure")

	// ErrUpstream indicates an external API returned an unusable result
	ErrUpstream = errors.New("upstream failure")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")
)

// NotFoundError creates a not found error with context
func NotFoundError(resource string) error {
	return fmt.Errorf("%s %w", resource, ErrNotFound)
}

// InvalidInputError creates an invalid input error with context
func InvalidInputError(field, reason string) error {
	return fmt.Errorf("%s: %s: %w", field, reason, ErrInvalidInput)
}

// ConflictError creates a conflict error with context
func ConflictError(resource, id string) error {
	return fmt.Errorf("%s %s already exists: %w", resource, id, ErrConflict)
}

// StorageError wraps a persistence failure for the given operation
func StorageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// UpstreamError creates an upstream error with context
func UpstreamError(service, reason string) error {
	return fmt.Errorf("%s: %s: %w", service, reason, ErrUpstream)
}

// InternalError creates an internal error with context
func InternalError(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrInternal)
}

// Is checks if an error matches a target error (works with wrapped errors)
func Is(err, target error) bool {
	return errors.Is(err, target)
}
