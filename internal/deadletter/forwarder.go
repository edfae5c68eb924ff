// Package deadletter republishes messages that will never be processed.
package deadletter

import (
	"context"
	"fmt"

	"dispatcher/internal/broker"
	"dispatcher/internal/config"
	"dispatcher/internal/constants"
	"dispatcher/internal/logger"
	"dispatcher/pkg/metrics"
	"dispatcher/pkg/models"
)

// Reasons with a metric label of their own. Anything else counts as
// ReasonProcessingFailed.
const (
	ReasonStale              = "stale"
	ReasonUnsupportedVersion = "unsupported_version"
	ReasonProcessingFailed   = "processing_failed"
)

type Forwarder struct {
	producer broker.Producer
	topics   config.DeadLetterConfig
	logger   logger.Logger
}

func NewForwarder(producer broker.Producer, topics config.DeadLetterConfig, log logger.Logger) *Forwarder {
	return &Forwarder{
		producer: producer,
		topics:   topics,
		logger:   log,
	}
}

// TopicFor picks the dead-letter topic. v2 messages are split by stream
// type; v1 and unknown stream types share the legacy topic.
func (f *Forwarder) TopicFor(attrs map[string]string) string {
	version := attrs[models.AttrGundiVersion]
	if version != models.GundiV2 {
		return f.topics.Legacy
	}

	switch models.StreamType(attrs[models.AttrStreamType]) {
	case models.StreamObservation:
		return f.topics.Observations
	case models.StreamEvent:
		return f.topics.Events
	case models.StreamEventUpdate:
		return f.topics.EventUpdates
	case models.StreamAttachment:
		return f.topics.Attachments
	case models.StreamTextMessage:
		return f.topics.TextMessages
	default:
		return f.topics.Legacy
	}
}

// Forward republishes payload and attributes unchanged.
func (f *Forwarder) Forward(ctx context.Context, msg models.Message, reason string) error {
	topic := f.TopicFor(msg.Attributes)

	f.logger.InfowCtx(ctx, "Forwarding message to dead letter topic",
		"dead_letter", true,
		"topic", topic,
		"reason", reason,
	)

	out := models.Message{
		ID:          msg.ID,
		Data:        msg.Data,
		Attributes:  msg.CopyAttributes(),
		PublishTime: msg.PublishTime,
	}
	if err := f.producer.Publish(ctx, topic, out); err != nil {
		f.logger.ErrorwCtx(ctx, "Error sending message to dead letter topic. Please check if the topic exists or review settings.",
			"topic", topic,
			"error", err,
		)
		return fmt.Errorf("failed to forward message to %s: %w", topic, err)
	}

	metrics.IncDLQMessage(constants.ServiceName, topic, reasonLabel(reason))
	return nil
}

func reasonLabel(reason string) string {
	switch reason {
	case ReasonStale, ReasonUnsupportedVersion:
		return reason
	default:
		return ReasonProcessingFailed
	}
}
