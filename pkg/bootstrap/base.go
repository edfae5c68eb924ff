package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"dispatcher/internal/broker"
	"dispatcher/internal/config"
	"dispatcher/internal/deadletter"
	"dispatcher/internal/logger"
)

type Base struct {
	Config     *config.Config
	Logger     logger.Logger
	Producer   broker.Producer
	Consumer   broker.Consumer
	DeadLetter *deadletter.Forwarder
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

// InitBroker creates the producer, the dead-letter forwarder on top of it and,
// for brokers that support it, the input consumer. Consumer stays nil when
// messages only arrive through the push endpoint.
func (b *Base) InitBroker(serviceName string) error {
	producer, err := broker.NewProducer(b.Config.Broker, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create producer: %w", err)
	}
	forwarder := deadletter.NewForwarder(producer, b.Config.Topics.DeadLetter, b.Logger)

	consumer, err := broker.NewConsumer(b.Config.Broker, forwarder, b.Logger)
	if err != nil {
		producer.Close()
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	if consumer != nil && serviceName != "" {
		consumer.SetServiceName(serviceName)
	}

	b.Producer = producer
	b.Consumer = consumer
	b.DeadLetter = forwarder
	return nil
}

func (b *Base) ShutdownBroker() []error {
	var errs []error

	if b.Consumer != nil {
		if err := b.Consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("consumer close error: %w", err))
		}
	}

	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	return errs
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Infow("Shutting down application")

	var errs []error

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	errs = append(errs, b.ShutdownBroker()...)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	b.Logger.Infow("Application exited successfully")
	return nil
}
