package dispatch

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"dispatcher/internal/logger"
	apperrors "dispatcher/pkg/errors"
	"dispatcher/pkg/metrics"
	"dispatcher/pkg/models"
	"dispatcher/pkg/tracing"
)

// Limiter admits a guarded call for a key. Implemented by ratelimit.Limiter.
type Limiter interface {
	Do(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type Executor struct {
	registry *Registry
	limiter  Limiter
	logger   logger.Logger
}

func NewExecutor(registry *Registry, limiter Limiter, log logger.Logger) *Executor {
	return &Executor{
		registry: registry,
		limiter:  limiter,
		logger:   log,
	}
}

// Dispatch runs the adapter registered for req.StreamType inside a rate-limit
// slot for the destination endpoint. On failure the outcome is still returned
// alongside the adapter's original error.
func (e *Executor) Dispatch(ctx context.Context, req Request) (*models.DeliveryOutcome, error) {
	adapter, ok := e.registry.Lookup(req.StreamType)
	if !ok {
		e.logger.ErrorwCtx(ctx, "No dispatcher registered for stream type",
			"stream_type", req.StreamType,
			"destination_id", req.Destination.ID,
			"attention_needed", true,
		)
		return nil, apperrors.ErrDispatcherConfig.
			WithMessage("no dispatcher found for stream type " + string(req.StreamType)).
			WithDetail("stream_type", string(req.StreamType))
	}
	if req.Destination.Endpoint == "" {
		return nil, apperrors.ErrDispatcherConfig.
			WithMessage("destination " + req.Destination.ID + " has no endpoint").
			WithDetail("destination_id", req.Destination.ID)
	}

	ctx, span := tracing.StartClientSpan(ctx, "dispatch."+string(req.StreamType),
		attribute.String("gundi.id", req.GundiID),
		attribute.String("destination.id", req.Destination.ID),
	)
	start := time.Now()
	var resp *Response
	err := e.limiter.Do(ctx, req.Destination.Endpoint, func(ctx context.Context) error {
		var deliverErr error
		resp, deliverErr = adapter.Deliver(ctx, req)
		return deliverErr
	})
	tracing.EndSpan(span, err)

	outcome := &models.DeliveryOutcome{
		CorrelationID:  req.GundiID,
		DestinationID:  req.Destination.ID,
		DataProviderID: req.DataProviderID,
		StreamType:     req.StreamType,
	}
	if resp != nil {
		outcome.StatusCode = resp.StatusCode
	}
	now := time.Now().UTC()

	if err != nil {
		status := "failed"
		if apperrors.IsTooManyRequests(err) {
			status = "throttled"
		}
		metrics.ObserveDispatch(string(req.StreamType), status, time.Since(start))

		outcome.Status = models.OutcomeFailed
		outcome.FailedAt = &now
		e.logger.WarnwCtx(ctx, "Dispatch failed",
			"stream_type", req.StreamType,
			"destination_id", req.Destination.ID,
			"error", err,
		)
		return outcome, err
	}

	metrics.ObserveDispatch(string(req.StreamType), "delivered", time.Since(start))
	outcome.Status = models.OutcomeDelivered
	outcome.DeliveredAt = &now

	e.logger.InfowCtx(ctx, "Dispatched",
		"stream_type", req.StreamType,
		"destination_id", req.Destination.ID,
		"status_code", outcome.StatusCode,
	)
	return outcome, nil
}

// Supports reports whether an adapter is registered for streamType.
func (e *Executor) Supports(streamType models.StreamType) bool {
	return e.registry.Supports(streamType)
}
