package dispatch

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatcher/internal/logger"
	"dispatcher/internal/ratelimit"
	apperrors "dispatcher/pkg/errors"
	"dispatcher/pkg/models"
)

const endpoint = "https://wpswatch.example.org"

func setupExecutor(t *testing.T, adapter Adapter) (*Executor, *ratelimit.Limiter) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := ratelimit.NewLimiter(client, 3, time.Second, logger.NopLogger())
	registry := NewRegistry()
	registry.Register(models.StreamCameraTrap, adapter)
	return NewExecutor(registry, limiter, logger.NopLogger()), limiter
}

func cameraTrapRequest() Request {
	return Request{
		StreamType:     models.StreamCameraTrap,
		GundiID:        "b1c2d3",
		DataProviderID: "provider-1",
		Destination:    Destination{ID: "dest-1", Endpoint: endpoint, APIKey: "abc"},
		Payload:        []byte(`{"Attachment1":"img.jpg"}`),
	}
}

func TestExecutor_Delivered(t *testing.T) {
	var calls atomic.Int32
	exec, limiter := setupExecutor(t, AdapterFunc(func(ctx context.Context, req Request) (*Response, error) {
		calls.Add(1)
		assert.Equal(t, "abc", req.Destination.APIKey)
		return &Response{StatusCode: http.StatusOK}, nil
	}))

	outcome, err := exec.Dispatch(context.Background(), cameraTrapRequest())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, models.OutcomeDelivered, outcome.Status)
	assert.Equal(t, "b1c2d3", outcome.CorrelationID)
	assert.Equal(t, "dest-1", outcome.DestinationID)
	assert.Equal(t, "provider-1", outcome.DataProviderID)
	assert.Equal(t, http.StatusOK, outcome.StatusCode)
	require.NotNil(t, outcome.DeliveredAt)
	assert.Nil(t, outcome.FailedAt)

	count, err := limiter.Count(context.Background(), endpoint)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestExecutor_FailureKeepsOriginalErrorAndReleases(t *testing.T) {
	cause := apperrors.ErrDelivery.WithDetail("status_code", http.StatusInternalServerError)
	exec, limiter := setupExecutor(t, AdapterFunc(func(ctx context.Context, req Request) (*Response, error) {
		return &Response{StatusCode: http.StatusInternalServerError}, cause
	}))

	outcome, err := exec.Dispatch(context.Background(), cameraTrapRequest())
	require.Error(t, err)
	assert.Same(t, cause, err)
	assert.Equal(t, models.OutcomeFailed, outcome.Status)
	assert.Equal(t, http.StatusInternalServerError, outcome.StatusCode)
	require.NotNil(t, outcome.FailedAt)

	count, err := limiter.Count(context.Background(), endpoint)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestExecutor_NoAdapterIsConfigurationError(t *testing.T) {
	exec, _ := setupExecutor(t, AdapterFunc(func(ctx context.Context, req Request) (*Response, error) {
		t.Fatal("adapter must not run")
		return nil, nil
	}))

	req := cameraTrapRequest()
	req.StreamType = models.StreamPosition

	outcome, err := exec.Dispatch(context.Background(), req)
	assert.Nil(t, outcome)
	assert.True(t, apperrors.IsDispatcherConfig(err))
	assert.True(t, apperrors.IsFatal(err))
}

func TestExecutor_MissingEndpoint(t *testing.T) {
	exec, _ := setupExecutor(t, AdapterFunc(func(ctx context.Context, req Request) (*Response, error) {
		return &Response{StatusCode: http.StatusOK}, nil
	}))

	req := cameraTrapRequest()
	req.Destination.Endpoint = ""

	_, err := exec.Dispatch(context.Background(), req)
	assert.True(t, apperrors.IsDispatcherConfig(err))
}

// Four rapid dispatches against a 3 per second limit: the first three are
// admitted while in flight, the fourth is rejected and never delivered.
func TestExecutor_RateLimitScenario(t *testing.T) {
	var delivered atomic.Int32
	admitted := make(chan struct{}, 3)
	proceed := make(chan struct{})

	exec, _ := setupExecutor(t, AdapterFunc(func(ctx context.Context, req Request) (*Response, error) {
		admitted <- struct{}{}
		<-proceed
		delivered.Add(1)
		return &Response{StatusCode: http.StatusOK}, nil
	}))

	ctx := context.Background()
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, err := exec.Dispatch(ctx, cameraTrapRequest())
			errs <- err
		}()
	}
	for i := 0; i < 3; i++ {
		select {
		case <-admitted:
		case <-time.After(5 * time.Second):
			t.Fatal("dispatch was not admitted")
		}
	}

	outcome, err := exec.Dispatch(ctx, cameraTrapRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsTooManyRequests(err))
	assert.False(t, apperrors.IsFatal(err))
	assert.Equal(t, models.OutcomeFailed, outcome.Status)

	close(proceed)
	for i := 0; i < 3; i++ {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, int32(3), delivered.Load())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.Supports(models.StreamAttachment))

	r.Register(models.StreamAttachment, AdapterFunc(func(context.Context, Request) (*Response, error) {
		return nil, errors.New("boom")
	}))
	a, ok := r.Lookup(models.StreamAttachment)
	require.True(t, ok)
	_, err := a.Deliver(context.Background(), Request{})
	assert.EqualError(t, err, "boom")
}
