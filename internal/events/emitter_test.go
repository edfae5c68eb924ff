package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatcher/internal/broker"
	"dispatcher/internal/logger"
	"dispatcher/pkg/models"
	"dispatcher/pkg/retry"
)

const topic = "dispatcher-events-dev"

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 5, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 1}
}

func setupEmitter() (*Emitter, *broker.MemoryProducer) {
	producer := broker.NewMemoryProducer()
	return NewEmitter(producer, topic, fastPolicy(), logger.NopLogger()), producer
}

type decodedEvent struct {
	EventID       string          `json:"event_id"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
}

func published(t *testing.T, producer *broker.MemoryProducer) []decodedEvent {
	t.Helper()
	var out []decodedEvent
	for _, msg := range producer.MessagesFor(topic) {
		var ev decodedEvent
		require.NoError(t, json.Unmarshal(msg.Data, &ev))
		assert.Equal(t, msg.ID, ev.EventID)
		out = append(out, ev)
	}
	return out
}

var observation = models.DispatchedObservation{
	GundiID:        "att-1",
	RelatedTo:      "ev-1",
	ExternalID:     "att-1",
	DataProviderID: "provider-1",
	DestinationID:  "dest-1",
	DeliveredAt:    time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
}

func TestEmitter_Delivered(t *testing.T) {
	e, producer := setupEmitter()

	require.NoError(t, e.Delivered(context.Background(), observation))

	events := published(t, producer)
	require.Len(t, events, 1)
	assert.Equal(t, "ObservationDelivered", events[0].EventType)
	assert.Equal(t, "v1", events[0].SchemaVersion)
	assert.NotEmpty(t, events[0].EventID)
	assert.JSONEq(t, `{
		"gundi_id": "att-1",
		"related_to": "ev-1",
		"external_id": "att-1",
		"data_provider_id": "provider-1",
		"destination_id": "dest-1",
		"delivered_at": "2024-03-01T10:00:00Z"
	}`, string(events[0].Payload))
}

func TestEmitter_DeliveryFailed(t *testing.T) {
	e, producer := setupEmitter()

	require.NoError(t, e.DeliveryFailed(context.Background(), observation))

	events := published(t, producer)
	require.Len(t, events, 1)
	assert.Equal(t, "ObservationDeliveryFailed", events[0].EventType)
}

func TestEmitter_Buffered(t *testing.T) {
	e, producer := setupEmitter()

	require.NoError(t, e.Buffered(context.Background(), models.DispatchedObservation{
		GundiID:       "ev-1",
		DestinationID: "dest-1",
	}))

	events := published(t, producer)
	require.Len(t, events, 1)
	assert.Equal(t, "DispatcherCustomLog", events[0].EventType)

	var payload models.CustomDispatcherLog
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, "Observation ev-1 buffered in wait for attachment", payload.Title)
	assert.Equal(t, models.LogLevelInfo, payload.Level)
	assert.Equal(t, "dest-1", payload.DestinationID)
}

func TestEmitter_RetriesTransientFailures(t *testing.T) {
	e, producer := setupEmitter()
	producer.FailNext(3, errors.New("broker unavailable"))

	require.NoError(t, e.Delivered(context.Background(), observation))
	assert.Len(t, published(t, producer), 1)
}

func TestEmitter_PropagatesAfterRetries(t *testing.T) {
	e, producer := setupEmitter()
	boom := errors.New("broker unavailable")
	producer.FailNext(5, boom)

	err := e.Delivered(context.Background(), observation)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, producer.Messages())
}

func TestObservationFromOutcome(t *testing.T) {
	delivered := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	obs := ObservationFromOutcome(&models.DeliveryOutcome{
		CorrelationID:  "att-1",
		DestinationID:  "dest-1",
		DataProviderID: "provider-1",
		DeliveredAt:    &delivered,
	}, "ev-1")

	assert.Equal(t, observation, obs)

	failed := delivered.Add(time.Minute)
	obs = ObservationFromOutcome(&models.DeliveryOutcome{CorrelationID: "att-1", FailedAt: &failed}, "")
	assert.Equal(t, failed, obs.DeliveredAt)
	assert.Equal(t, "att-1", obs.ExternalID)
}
