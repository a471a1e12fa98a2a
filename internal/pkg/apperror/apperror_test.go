package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{"with field", NewValidationError("persona", "unknown persona"), "persona: unknown persona"},
		{"without field", NewValidationError("", "bad input"), "bad input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIsValidation(t *testing.T) {
	wrapped := fmt.Errorf("create session: %w", NewValidationError("title", "too long"))
	assert.True(t, IsValidation(wrapped))

	many := ValidationErrors{NewValidationError("a", "x"), NewValidationError("b", "y")}
	assert.True(t, IsValidation(fmt.Errorf("request: %w", many)))
	assert.Equal(t, "a: x; b: y", many.Error())

	assert.False(t, IsValidation(ErrNotFoundOrUnauthorized))
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("embed query: %w", ErrNoEmbeddingAvailable)
	assert.True(t, errors.Is(err, ErrNoEmbeddingAvailable))
	assert.False(t, errors.Is(err, ErrTransientExternalService))
}
