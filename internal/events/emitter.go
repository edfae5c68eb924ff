// Package events publishes delivery lifecycle events for other services.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dispatcher/internal/broker"
	"dispatcher/internal/logger"
	"dispatcher/pkg/metrics"
	"dispatcher/pkg/models"
	"dispatcher/pkg/retry"
)

const schemaVersion = "v1"

// DefaultPolicy retries transient publish errors five times.
func DefaultPolicy() retry.Policy {
	return retry.ExponentialPolicy(5)
}

type Emitter struct {
	producer broker.Producer
	topic    string
	policy   retry.Policy
	logger   logger.Logger
}

func NewEmitter(producer broker.Producer, topic string, policy retry.Policy, log logger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		topic:    topic,
		policy:   policy,
		logger:   log,
	}
}

// Publish wraps payload in a system event and publishes it. The error is
// returned once retries are exhausted: an unreported outcome fails the message.
func (e *Emitter) Publish(ctx context.Context, eventType string, payload interface{}) error {
	event := models.SystemEvent{
		EventID:       uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
		EventType:     eventType,
		Payload:       payload,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	msg := models.NewMessageBuilder().
		WithID(event.EventID).
		WithData(data).
		Build()

	err = retry.RetryWithCallback(ctx, e.policy, func() error {
		return e.producer.Publish(ctx, e.topic, *msg)
	}, func(attempt int, err error, nextDelay time.Duration) {
		e.logger.WarnwCtx(ctx, "Error publishing system event, retrying",
			"event_type", eventType,
			"topic", e.topic,
			"attempt", attempt,
			"next_delay", nextDelay,
			"error", err,
		)
	})
	if err != nil {
		metrics.IncLifecycleEvent(eventType, "error")
		e.logger.ErrorwCtx(ctx, "Error publishing system event",
			"event_type", eventType,
			"topic", e.topic,
			"error", err,
		)
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}

	metrics.IncLifecycleEvent(eventType, "published")
	e.logger.DebugwCtx(ctx, "System event published", "event_type", eventType, "event_id", event.EventID)
	return nil
}

func (e *Emitter) Delivered(ctx context.Context, obs models.DispatchedObservation) error {
	return e.Publish(ctx, models.SystemEventObservationDelivered, obs)
}

func (e *Emitter) DeliveryFailed(ctx context.Context, obs models.DispatchedObservation) error {
	return e.Publish(ctx, models.SystemEventObservationDeliveryFailed, obs)
}

// Buffered reports the first half of a split delivery as waiting for its
// companion.
func (e *Emitter) Buffered(ctx context.Context, obs models.DispatchedObservation) error {
	return e.Publish(ctx, models.SystemEventDispatcherCustomLog, models.CustomDispatcherLog{
		GundiID:        obs.GundiID,
		RelatedTo:      obs.RelatedTo,
		DataProviderID: obs.DataProviderID,
		DestinationID:  obs.DestinationID,
		Title:          fmt.Sprintf("Observation %s buffered in wait for attachment", obs.GundiID),
		Level:          models.LogLevelInfo,
	})
}

// ObservationFromOutcome builds the event payload for one dispatch attempt.
// The id in the destination system is the gundi id.
func ObservationFromOutcome(outcome *models.DeliveryOutcome, relatedTo string) models.DispatchedObservation {
	at := time.Now().UTC()
	switch {
	case outcome.DeliveredAt != nil:
		at = *outcome.DeliveredAt
	case outcome.FailedAt != nil:
		at = *outcome.FailedAt
	}
	return models.DispatchedObservation{
		GundiID:        outcome.CorrelationID,
		RelatedTo:      relatedTo,
		ExternalID:     outcome.CorrelationID,
		DataProviderID: outcome.DataProviderID,
		DestinationID:  outcome.DestinationID,
		DeliveredAt:    at,
	}
}
