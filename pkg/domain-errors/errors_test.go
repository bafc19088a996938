package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := map[Code]int{
		CodeBadRequest:       http.StatusBadRequest,
		CodeValidation:       http.StatusBadRequest,
		CodeForbidden:        http.StatusForbidden,
		CodeMethodNotAllowed: http.StatusMethodNotAllowed,
		CodeRateLimited:      http.StatusTooManyRequests,
		CodeInternal:         http.StatusInternalServerError,
		Code("unknown"):      http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, HTTPStatus(code), code)
	}
}

func TestWrappedErrorsKeepTheirCode(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := fmt.Errorf("decode: %w", Wrap(cause, CodeBadRequest, "Invalid JSON"))

	de, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid JSON", de.Message)
	assert.True(t, HasCode(err, CodeBadRequest))
	assert.False(t, HasCode(err, CodeForbidden))
	assert.ErrorIs(t, err, cause)
	assert.False(t, HasCode(cause, CodeBadRequest))
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "Validation failed").WithDetails([]string{"email is required"})

	assert.Equal(t, []string{"email is required"}, err.Details)
	assert.Equal(t, "validation_failed: Validation failed", err.Error())
}
