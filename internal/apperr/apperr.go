// Package apperr separates operational errors, which the caller can report
// as a 4xx-style failure, from infrastructure errors which are surfaced as-is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNoReading     = errors.New("no sensor reading available")
	ErrNoObservation = errors.New("no temperature observation for date")
)

// NotFoundError reports an unknown resource (crop, field, soil texture).
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %q not found", e.Resource, e.ID) }

func NotFound(resource, id string) error { return &NotFoundError{Resource: resource, ID: id} }

// ValidationError reports a resource that exists but lacks required configuration.
type ValidationError struct {
	Resource string
	ID       string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Resource, e.ID, e.Reason)
}

func Invalid(resource, id, reason string) error {
	return &ValidationError{Resource: resource, ID: id, Reason: reason}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsOperational reports whether err is expected and recoverable by the caller.
func IsOperational(err error) bool {
	if err == nil {
		return false
	}
	return IsNotFound(err) || IsValidation(err) ||
		errors.Is(err, ErrNoReading) || errors.Is(err, ErrNoObservation)
}
