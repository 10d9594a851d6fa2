package models

import (
	"errors"
	"fmt"
)

// ErrAuditImmutable is returned when something tries to change a stored audit record
var ErrAuditImmutable = errors.New("pricing calculation audits are immutable")

// ValidationError reports a rejected input; callers map it to a 4xx response
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err wraps a *ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
