package shared

import (
	"errors"
	"fmt"
)

// NotFoundError is implemented by every "record does not exist" error so
// adapters can map them without knowing each bounded context
type NotFoundError interface {
	error
	NotFound() bool
}

// IsNotFound reports whether err (or anything it wraps) is a NotFoundError
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf) && nf.NotFound()
}

// ValidationError rejects a request field before any state changes
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err (or anything it wraps) is a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
