package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Classification(t *testing.T) {
	tests := []struct {
		name      string
		err       *Error
		retryable bool
		status    int
	}{
		{"reference data", ErrReferenceData, true, http.StatusServiceUnavailable},
		{"too many requests", ErrTooManyRequests, true, http.StatusTooManyRequests},
		{"delivery", ErrDelivery, true, http.StatusBadGateway},
		{"dispatcher config", ErrDispatcherConfig, false, http.StatusInternalServerError},
		{"validation", ErrValidation, false, http.StatusBadRequest},
		{"delivery forced fatal", ErrDelivery.AsFatal(), false, http.StatusBadGateway},
		{"validation forced retryable", ErrValidation.AsRetryable(), true, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.err.IsRetryable())
			assert.Equal(t, !tt.retryable, tt.err.IsFatal())
			assert.Equal(t, !tt.retryable, IsFatal(fmt.Errorf("wrapped: %w", tt.err)))
			assert.Equal(t, tt.status, ToHTTPStatus(tt.err))
		})
	}
}

func TestError_CauseIsReachable(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("resolve: %w", ErrReferenceData.WithCause(cause).WithDetail("id", "abc"))

	assert.True(t, IsReferenceData(err))
	assert.False(t, IsDelivery(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")

	var appErr *Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "abc", appErr.Details["id"])
}

func TestError_WithDetailDoesNotMutateSentinel(t *testing.T) {
	_ = ErrDelivery.WithDetail("status_code", 500)

	assert.Empty(t, ErrDelivery.Details)
}

func TestIsFatal_PlainError(t *testing.T) {
	assert.False(t, IsFatal(errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(errors.New("boom")))
}

func TestToErrorResponse(t *testing.T) {
	resp := ToErrorResponse(ErrTooManyRequests.WithDetail("key", "https://example.org"))

	assert.Equal(t, "TOO_MANY_REQUESTS", resp["error_code"])
	assert.NotEmpty(t, resp["error"])
	assert.Equal(t, map[string]interface{}{"key": "https://example.org"}, resp["details"])

	resp = ToErrorResponse(errors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", resp["error_code"])
	assert.NotContains(t, resp, "details")
}

func TestRecoverPanic(t *testing.T) {
	assert.NoError(t, RecoverPanic(nil))

	err := RecoverPanic("nil map write")
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Contains(t, err.Error(), "nil map write")

	cause := errors.New("index out of range")
	err = RecoverPanic(cause)
	assert.ErrorIs(t, err, cause)
}
