package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatcher/internal/config"
	"dispatcher/pkg/models"
)

const integrationID = "338225f3-91f9-4fe1-b013-353a229ce504"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", srv.URL+"/api", "secret-token", srv.Client())
}

func TestClient_GetOutboundIntegration(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1.0/integrations/outbound/configurations/"+integrationID, r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":%q,"type_slug":"wps_watch","endpoint":"https://wpswatch.example.org","token":"abc","state":{}}`, integrationID)
	})

	out, err := c.GetOutboundIntegration(context.Background(), integrationID)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, integrationID, out.ID)
	assert.Equal(t, "https://wpswatch.example.org", out.Endpoint)
	assert.Equal(t, "abc", out.Token)
}

func TestClient_GetInboundIntegration(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1.0/integrations/inbound/configurations/"+integrationID, r.URL.Path)
		fmt.Fprintf(w, `{"id":%q,"provider":"gundi_cameratrap"}`, integrationID)
	})

	in, err := c.GetInboundIntegration(context.Background(), integrationID)
	require.NoError(t, err)
	require.NotNil(t, in)
	assert.Equal(t, "gundi_cameratrap", in.Provider)
}

func TestClient_GetIntegrationDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/integrations/"+integrationID+"/", r.URL.Path)
		fmt.Fprintf(w, `{
			"id": %q,
			"base_url": "https://wpswatch.example.org",
			"configurations": [
				{"id": "c1", "action": {"type": "auth", "value": "auth"}, "data": {"api_key": "key-1"}},
				{"id": "c2", "action": {"type": "push", "value": "push_events"}, "data": {"upload_domain": "upload.example.org"}}
			]
		}`, integrationID)
	})

	details, err := c.GetIntegrationDetails(context.Background(), integrationID)
	require.NoError(t, err)
	require.NotNil(t, details)
	assert.Equal(t, "key-1", details.FindConfigForAction(models.ActionAuthenticate).StringValue("api_key"))
	assert.Equal(t, "upload.example.org", details.FindConfigForAction(models.ActionPushEvents).StringValue("upload_domain"))
}

func TestClient_NotFoundIsNilWithoutError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	out, err := c.GetOutboundIntegration(context.Background(), integrationID)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestClient_ServerErrorIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := c.GetIntegrationDetails(context.Background(), integrationID)
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "upstream exploded")
	assert.True(t, IsTransient(err))
}

func TestClient_DecodeErrorIsNotTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 42`)
	})

	_, err := c.GetInboundIntegration(context.Background(), integrationID)
	require.Error(t, err)

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, "inbound", decodeErr.Resource)
	assert.False(t, IsTransient(err))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"forbidden", &StatusError{StatusCode: http.StatusForbidden}, false},
		{"too many requests", &StatusError{StatusCode: http.StatusTooManyRequests}, true},
		{"request timeout", &StatusError{StatusCode: http.StatusRequestTimeout}, true},
		{"service unavailable", fmt.Errorf("wrapped: %w", &StatusError{StatusCode: http.StatusServiceUnavailable}), true},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

type fakePortal struct {
	calls atomic.Int32
	err   error
}

func (f *fakePortal) GetOutboundIntegration(context.Context, string) (*models.OutboundConfiguration, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &models.OutboundConfiguration{ID: integrationID}, nil
}

func (f *fakePortal) GetInboundIntegration(context.Context, string) (*models.InboundIntegration, error) {
	f.calls.Add(1)
	return nil, f.err
}

func (f *fakePortal) GetIntegrationDetails(context.Context, string) (*models.Integration, error) {
	f.calls.Add(1)
	return nil, f.err
}

func breakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		Enabled:      true,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  2,
	}
}

func TestCircuitBreakerClient_Disabled(t *testing.T) {
	inner := &fakePortal{}
	cfg := breakerConfig()
	cfg.Enabled = false

	assert.Same(t, Portal(inner), NewCircuitBreakerClient(inner, cfg))
}

func TestCircuitBreakerClient_OpensOnTransientFailures(t *testing.T) {
	inner := &fakePortal{err: &StatusError{StatusCode: http.StatusServiceUnavailable}}
	p := NewCircuitBreakerClient(inner, breakerConfig())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := p.GetIntegrationDetails(ctx, integrationID)
		require.Error(t, err)
	}
	assert.Equal(t, int32(2), inner.calls.Load())

	_, err := p.GetIntegrationDetails(ctx, integrationID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCircuitBreakerClient_PermanentFailuresDoNotTrip(t *testing.T) {
	inner := &fakePortal{err: &StatusError{StatusCode: http.StatusForbidden}}
	p := NewCircuitBreakerClient(inner, breakerConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := p.GetInboundIntegration(ctx, integrationID)
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
	}
	assert.Equal(t, int32(5), inner.calls.Load())
}

func TestCircuitBreakerClient_PassesResults(t *testing.T) {
	p := NewCircuitBreakerClient(&fakePortal{}, breakerConfig())

	out, err := p.GetOutboundIntegration(context.Background(), integrationID)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, integrationID, out.ID)

	details, err := p.GetIntegrationDetails(context.Background(), integrationID)
	require.NoError(t, err)
	assert.Nil(t, details)
}
