package broker

import (
	"context"

	"dispatcher/pkg/models"
)

// Producer publishes a payload with its attributes. Attributes travel as
// message headers.
type Producer interface {
	Publish(ctx context.Context, topic string, msg models.Message) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type HandlerFunc func(ctx context.Context, msg models.Message) error

// DeadLetterSink receives messages that cannot be processed.
type DeadLetterSink interface {
	Forward(ctx context.Context, msg models.Message, reason string) error
}
