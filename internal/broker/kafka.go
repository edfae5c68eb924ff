package broker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"dispatcher/internal/config"
	"dispatcher/internal/constants"
	"dispatcher/internal/logger"
	"dispatcher/pkg/errors"
	"dispatcher/pkg/logging"
	"dispatcher/pkg/metrics"
	"dispatcher/pkg/models"
	"dispatcher/pkg/retry"
	"dispatcher/pkg/tracing"
)

const (
	messageIDHeader = "message_id"
	publishTimeFmt  = "2006-01-02T15:04:05.000000Z"
)

type KafkaProducer struct {
	writer      *kafka.Writer
	logger      logger.Logger
	serviceName string
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           constants.KafkaBatchTimeout,
		WriteTimeout:           constants.KafkaWriteTimeout,
		AllowAutoTopicCreation: false,
		Async:                  false,
	}
	return &KafkaProducer{writer: w, logger: log, serviceName: constants.ServiceName}
}

func (p *KafkaProducer) Publish(ctx context.Context, topic string, msg models.Message) error {
	attrs := msg.CopyAttributes()
	tracing.InjectAttributes(ctx, attrs)
	if msg.ID != "" {
		attrs[messageIDHeader] = msg.ID
	}

	key := msg.Attr(models.AttrGundiID)
	if key == "" {
		key = msg.ID
	}

	start := time.Now()
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   msg.Data,
		Headers: toHeaders(attrs),
		Time:    time.Now(),
	})
	metrics.ObserveKafkaWriteDuration(p.serviceName, topic, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	metrics.IncKafkaMessagesWritten(p.serviceName, topic)
	metrics.ObserveKafkaMessageSize(p.serviceName, topic, "out", len(msg.Data))
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// KafkaConsumer feeds one topic to a handler. A failed message is retried in
// place with the configured policy; fatal or exhausted messages go to the
// dead-letter sink and are committed so the partition keeps moving.
type KafkaConsumer struct {
	cfg         config.KafkaConfig
	wg          sync.WaitGroup
	reader      *kafka.Reader
	logger      logger.Logger
	deadLetter  DeadLetterSink
	serviceName string
}

func NewKafkaConsumer(cfg config.KafkaConfig, deadLetter DeadLetterSink, log logger.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		cfg:         cfg,
		logger:      log,
		deadLetter:  deadLetter,
		serviceName: constants.ServiceName,
	}
}

func (c *KafkaConsumer) SetServiceName(name string) {
	c.serviceName = name
}

func (c *KafkaConsumer) Consume(ctx context.Context, topic string, handler HandlerFunc) error {
	c.logger.Infow("Creating Kafka reader",
		"topic", topic,
		"brokers", c.cfg.Brokers,
		"group_id", c.cfg.GroupID,
	)

	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.cfg.Brokers,
		GroupID:  c.cfg.GroupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		consumeCtx := logging.WithServiceName(ctx, c.serviceName)
		c.logger.InfowCtx(consumeCtx, "Started consuming", "topic", topic)

		for {
			m, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.InfowCtx(consumeCtx, "Stopped consuming",
						"topic", topic,
						"reason", "context canceled",
					)
					return
				}
				c.logger.ErrorwCtx(consumeCtx, "Error fetching kafka message", "error", err, "topic", topic)
				time.Sleep(time.Second)
				continue
			}

			metrics.IncKafkaMessagesRead(c.serviceName, topic)
			metrics.ObserveKafkaMessageSize(c.serviceName, topic, "in", len(m.Value))

			c.handle(consumeCtx, topic, FromKafka(m), handler)

			if err := c.reader.CommitMessages(ctx, m); err != nil {
				c.logger.ErrorwCtx(consumeCtx, "Failed to commit message", "error", err, "topic", topic)
			}
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}

func (c *KafkaConsumer) handle(ctx context.Context, topic string, msg models.Message, handler HandlerFunc) {
	msgCtx, span := tracing.StartSpanFromAttributes(ctx, "kafka.consume", msg.Attributes)
	defer span.End()

	if traceID := tracing.TraceID(msgCtx); traceID != "" {
		msgCtx = logging.WithTraceID(msgCtx, traceID)
	}
	msgCtx = logging.WithMessageID(msgCtx, msg.ID)

	err := c.processWithRetry(msgCtx, msg, handler, topic)
	if err == nil {
		return
	}

	c.logger.ErrorwCtx(msgCtx, "Failed to process message",
		"error", err,
		"topic", topic,
		"fatal", errors.IsFatal(err),
	)
	if c.deadLetter == nil {
		c.logger.WarnwCtx(msgCtx, "No dead letter sink configured, committing message to avoid blocking", "topic", topic)
		return
	}
	if dlqErr := c.deadLetter.Forward(msgCtx, msg, err.Error()); dlqErr != nil {
		c.logger.ErrorwCtx(msgCtx, "Failed to send message to dead letter topic",
			"error", dlqErr,
			"topic", topic,
			"attention_needed", true,
		)
	}
}

func (c *KafkaConsumer) processWithRetry(ctx context.Context, msg models.Message, handler HandlerFunc, topic string) error {
	policy := retry.DefaultPolicy()
	if c.cfg.Retry.MaxAttempts > 0 {
		policy = c.cfg.Retry.Policy()
	}

	return retry.RetryWithCallback(ctx, policy, func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.RecoverPanic(r)
				c.logger.ErrorwCtx(ctx, "Panic recovered during message processing",
					"error", err,
					"topic", topic,
				)
			}
		}()
		return handler(ctx, msg)
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues(c.serviceName, topic).Inc()
		c.logger.WarnwCtx(ctx, "Retrying message processing",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"next_delay", nextDelay,
			"error", err,
			"topic", topic,
		)
	})
}

func (c *KafkaConsumer) Close() error {
	var err error
	if c.reader != nil {
		err = c.reader.Close()
	}
	c.wg.Wait()
	return err
}

// FromKafka maps a record to an inbound message. Headers become attributes;
// the production time is the ce-time header when present, else the record time.
func FromKafka(m kafka.Message) models.Message {
	attrs := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		attrs[h.Key] = string(h.Value)
	}

	id := attrs[messageIDHeader]
	if id == "" {
		id = m.Topic + "/" + strconv.Itoa(m.Partition) + "/" + strconv.FormatInt(m.Offset, 10)
	}
	delete(attrs, messageIDHeader)

	publishTime := attrs[constants.TimestampHeader]
	if publishTime == "" && !m.Time.IsZero() {
		publishTime = m.Time.UTC().Format(publishTimeFmt)
	}

	return models.Message{
		ID:          id,
		Data:        m.Value,
		Attributes:  attrs,
		PublishTime: publishTime,
		ReceivedAt:  time.Now(),
	}
}

func toHeaders(attrs map[string]string) []kafka.Header {
	headers := make([]kafka.Header, 0, len(attrs))
	for k, v := range attrs {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return headers
}
