package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransientExternalService marks a failure of an embedding or completion
	// backend that may succeed on retry (timeouts, 5xx, refused connections).
	ErrTransientExternalService = errors.New("external service temporarily unavailable")

	// ErrMalformedCompletionResponse is returned when no known shape matches a completion body.
	ErrMalformedCompletionResponse = errors.New("malformed completion response")

	// ErrNoEmbeddingAvailable is returned when no usable vector could be produced.
	ErrNoEmbeddingAvailable = errors.New("no embedding available")

	ErrNotFoundOrUnauthorized = errors.New("resource not found or access denied")

	ErrInternal = errors.New("internal error")
)

// ValidationError describes a rejected input field.
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

// ValidationErrors aggregates several field failures into one error.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

// IsValidation reports whether err is, or wraps, a validation failure.
func IsValidation(err error) bool {
	var single *ValidationError
	if errors.As(err, &single) {
		return true
	}
	var many ValidationErrors
	return errors.As(err, &many)
}
