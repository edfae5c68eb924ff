// Package portal talks to the Gundi portal, the authority for integration
// and destination configuration.
package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dispatcher/internal/constants"
	"dispatcher/pkg/metrics"
	"dispatcher/pkg/models"
)

// Portal is the read-only view of the configuration authority. A nil result
// with a nil error means the entity does not exist.
type Portal interface {
	GetOutboundIntegration(ctx context.Context, id string) (*models.OutboundConfiguration, error)
	GetInboundIntegration(ctx context.Context, id string) (*models.InboundIntegration, error)
	GetIntegrationDetails(ctx context.Context, id string) (*models.Integration, error)
}

// StatusError is a non-2xx answer from the portal.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("portal returned status %d for %s: %s", e.StatusCode, e.URL, e.Body)
}

// IsTransient reports whether another attempt could succeed.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError ||
			statusErr.StatusCode == http.StatusTooManyRequests ||
			statusErr.StatusCode == http.StatusRequestTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

// DecodeError is a 2xx answer whose body does not match the expected schema.
type DecodeError struct {
	Resource string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed decoding response for %s: %v", e.Resource, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type Client struct {
	adminEndpoint string
	apiEndpoint   string
	authToken     string
	httpClient    *http.Client
}

func NewClient(adminEndpoint, apiEndpoint, authToken string, httpClient *http.Client) *Client {
	return &Client{
		adminEndpoint: strings.TrimRight(adminEndpoint, "/"),
		apiEndpoint:   strings.TrimRight(apiEndpoint, "/"),
		authToken:     authToken,
		httpClient:    httpClient,
	}
}

func (c *Client) GetOutboundIntegration(ctx context.Context, id string) (*models.OutboundConfiguration, error) {
	var out models.OutboundConfiguration
	found, err := c.get(ctx, "outbound", c.adminEndpoint+"/api/v1.0/integrations/outbound/configurations/"+url.PathEscape(id), &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetInboundIntegration(ctx context.Context, id string) (*models.InboundIntegration, error) {
	var out models.InboundIntegration
	found, err := c.get(ctx, "inbound", c.adminEndpoint+"/api/v1.0/integrations/inbound/configurations/"+url.PathEscape(id), &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetIntegrationDetails(ctx context.Context, id string) (*models.Integration, error) {
	var out models.Integration
	found, err := c.get(ctx, "integration", c.apiEndpoint+"/v2/integrations/"+url.PathEscape(id)+"/", &out)
	if err != nil || !found {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, resource, target string, out interface{}) (bool, error) {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.ObservePortalRequest(resource, status, time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("portal request failed: %w", err)
	}
	defer resp.Body.Close()

	status = fmt.Sprintf("%d", resp.StatusCode)

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return false, &StatusError{StatusCode: resp.StatusCode, URL: target, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, &DecodeError{Resource: resource, Err: err}
	}

	return true, nil
}
