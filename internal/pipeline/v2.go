package pipeline

import (
	"context"
	"encoding/json"

	"dispatcher/internal/logger"
	apperrors "dispatcher/pkg/errors"
	"dispatcher/pkg/models"
)

// EventHandler processes one decoded transformer event.
type EventHandler func(ctx context.Context, event models.TransformerEvent, msg models.Message) (models.Result, error)

// EventRouter dispatches Gundi v2 messages on their event type. Unknown
// event types are dropped so new producers cannot jam the pipeline.
type EventRouter struct {
	handlers map[string]EventHandler
	logger   logger.Logger
}

func NewEventRouter(log logger.Logger) *EventRouter {
	return &EventRouter{
		handlers: make(map[string]EventHandler),
		logger:   log,
	}
}

func (r *EventRouter) Handle(eventType string, h EventHandler) {
	r.handlers[eventType] = h
}

func (r *EventRouter) Process(ctx context.Context, msg models.Message) (models.Result, error) {
	var event models.TransformerEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return models.Result{}, apperrors.ErrValidation.WithMessage("invalid transformer event").WithCause(err)
	}

	if event.SchemaVersion != models.SupportedSchemaVersion {
		r.logger.WarnwCtx(ctx, "Schema version not supported, message discarded",
			"schema_version", event.SchemaVersion,
			"event_type", event.EventType,
		)
		return models.Discarded("schema version '" + event.SchemaVersion + "' is not supported"), nil
	}

	h, ok := r.handlers[event.EventType]
	if !ok {
		r.logger.InfowCtx(ctx, "Event type not supported, message ignored", "event_type", event.EventType)
		return models.Discarded("event type '" + event.EventType + "' is not supported"), nil
	}

	return h(ctx, event, msg)
}
