package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatcher/internal/config"
)

var errUpstream = errors.New("upstream down")

func testSettings() Settings {
	return Settings{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  2,
		FailureRatio: 0.5,
	}
}

func TestExecute_Trips(t *testing.T) {
	b := New("test-trips", testSettings())
	ctx := context.Background()
	calls := 0
	fail := func() (string, error) {
		calls++
		return "", errUpstream
	}

	for i := 0; i < 2; i++ {
		_, err := Execute(ctx, b, fail)
		assert.ErrorIs(t, err, errUpstream)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := Execute(ctx, b, fail)
	require.Error(t, err)
	assert.True(t, IsRejected(err))
	assert.Contains(t, err.Error(), "circuit breaker is open for test-trips")
	assert.Equal(t, 2, calls)
}

func TestExecute_IgnoredFailures(t *testing.T) {
	s := testSettings()
	s.IsFailure = func(err error) bool { return !errors.Is(err, errUpstream) }
	b := New("test-ignored", s)

	for i := 0; i < 5; i++ {
		_, err := Execute(context.Background(), b, func() (int, error) { return 0, errUpstream })
		assert.ErrorIs(t, err, errUpstream)
		assert.False(t, IsRejected(err))
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestExecute_Result(t *testing.T) {
	b := New("test-result", testSettings())
	v, err := Execute(context.Background(), b, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestExecute_CanceledContext(t *testing.T) {
	b := New("test-canceled", testSettings())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := Execute(ctx, b, func() (int, error) {
		called = true
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestFromConfig(t *testing.T) {
	s := FromConfig(config.CircuitBreakerConfig{MaxRequests: 7, FailureRatio: 0.9})
	assert.Equal(t, uint32(7), s.MaxRequests)
	assert.Equal(t, 0.9, s.FailureRatio)
	assert.Equal(t, DefaultSettings().Timeout, s.Timeout)
	assert.Equal(t, DefaultSettings().MinRequests, s.MinRequests)
}
