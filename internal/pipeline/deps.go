package pipeline

import (
	"context"

	"dispatcher/internal/correlation"
	"dispatcher/internal/dispatch"
	"dispatcher/pkg/models"
)

// ReferenceData is implemented by refdata.Resolver.
type ReferenceData interface {
	OutboundConfig(ctx context.Context, id string) (*models.OutboundConfiguration, error)
	InboundIntegration(ctx context.Context, id string) (*models.InboundIntegration, error)
	IntegrationDetails(ctx context.Context, id string) (*models.Integration, error)
}

// Dispatcher is implemented by dispatch.Executor.
type Dispatcher interface {
	Supports(streamType models.StreamType) bool
	Dispatch(ctx context.Context, req dispatch.Request) (*models.DeliveryOutcome, error)
}

// CorrelationStore is implemented by correlation.Store.
type CorrelationStore interface {
	Put(ctx context.Context, k correlation.Key, value interface{}) error
	MustGet(ctx context.Context, k correlation.Key, out interface{}) error
}

// LifecycleEmitter is implemented by events.Emitter.
type LifecycleEmitter interface {
	Delivered(ctx context.Context, obs models.DispatchedObservation) error
	DeliveryFailed(ctx context.Context, obs models.DispatchedObservation) error
	Buffered(ctx context.Context, obs models.DispatchedObservation) error
}
