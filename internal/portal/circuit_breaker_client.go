package portal

import (
	"context"

	"dispatcher/internal/config"
	"dispatcher/pkg/circuitbreaker"
	"dispatcher/pkg/models"
)

// CircuitBreakerClient stops hammering the portal while it is failing.
// Only transient failures count against the breaker.
type CircuitBreakerClient struct {
	portal Portal
	cb     *circuitbreaker.Breaker
}

func NewCircuitBreakerClient(p Portal, cfg config.CircuitBreakerConfig) Portal {
	if !cfg.Enabled {
		return p
	}

	settings := circuitbreaker.FromConfig(cfg)
	settings.IsFailure = IsTransient
	return &CircuitBreakerClient{
		portal: p,
		cb:     circuitbreaker.New("portal", settings),
	}
}

func (c *CircuitBreakerClient) GetOutboundIntegration(ctx context.Context, id string) (*models.OutboundConfiguration, error) {
	return circuitbreaker.Execute(ctx, c.cb, func() (*models.OutboundConfiguration, error) {
		return c.portal.GetOutboundIntegration(ctx, id)
	})
}

func (c *CircuitBreakerClient) GetInboundIntegration(ctx context.Context, id string) (*models.InboundIntegration, error) {
	return circuitbreaker.Execute(ctx, c.cb, func() (*models.InboundIntegration, error) {
		return c.portal.GetInboundIntegration(ctx, id)
	})
}

func (c *CircuitBreakerClient) GetIntegrationDetails(ctx context.Context, id string) (*models.Integration, error) {
	return circuitbreaker.Execute(ctx, c.cb, func() (*models.Integration, error) {
		return c.portal.GetIntegrationDetails(ctx, id)
	})
}
