package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidateStatic checks everything that can be verified without network access.
// All problems are reported at once.
func ValidateStatic(cfg *Config) error {
	validators := []func(*Config) error{
		func(c *Config) error { return validateServer(c.Server) },
		func(c *Config) error { return validateBroker(c.Broker) },
		func(c *Config) error { return validateRedis(c.Database.Redis) },
		func(c *Config) error { return validateCache(c.Cache) },
		func(c *Config) error { return validateDispatcher(c.Dispatcher) },
		func(c *Config) error { return validateRateLimit(c.RateLimit) },
		func(c *Config) error { return validatePortal(c.Portal) },
		func(c *Config) error { return validateStorage(c.Storage) },
		func(c *Config) error { return validateTopics(c.Topics) },
		func(c *Config) error { return validatePush(c.Push) },
		func(c *Config) error { return validateCircuitBreaker(c.CircuitBreaker) },
	}

	var errs []error
	for _, validate := range validators {
		if err := validate(cfg); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	switch cfg.Type {
	case "kafka":
		return validateKafka(cfg.Kafka)
	case "memory":
		return nil
	case "":
		return &ValidationError{
			Field:   "broker.type",
			Message: "broker type is required",
		}
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka, memory)", cfg.Type),
		}
	}
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.GroupID == "" {
		return &ValidationError{
			Field:   "broker.kafka.group_id",
			Message: "Kafka consumer group ID is required",
		}
	}

	if cfg.InputTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.input_topic",
			Message: "input topic is required",
		}
	}

	return validateRetry("broker.kafka.retry", cfg.Retry)
}

func validateRetry(prefix string, cfg RetryConfig) error {
	if cfg.MaxAttempts < 0 {
		return &ValidationError{
			Field:   prefix + ".max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.InitialInterval < 0 || cfg.MaxInterval < 0 {
		return &ValidationError{
			Field:   prefix,
			Message: "intervals must be non-negative",
		}
	}

	if cfg.MaxInterval > 0 && cfg.InitialInterval > 0 && cfg.MaxInterval < cfg.InitialInterval {
		return &ValidationError{
			Field:   prefix + ".max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Multiplier <= 0 {
		return &ValidationError{
			Field:   prefix + ".multiplier",
			Message: "multiplier must be positive",
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateCache(cfg CacheConfig) error {
	if cfg.ConfigTTLSeconds <= 0 {
		return &ValidationError{
			Field:   "cache.config_ttl_seconds",
			Message: "TTL must be positive",
		}
	}

	if cfg.CorrelationTTLSeconds <= 0 {
		return &ValidationError{
			Field:   "cache.correlation_ttl_seconds",
			Message: "TTL must be positive",
		}
	}

	if cfg.CorrelationKeyPrefix == "" {
		return &ValidationError{
			Field:   "cache.correlation_key_prefix",
			Message: "key prefix is required",
		}
	}

	return nil
}

func validateDispatcher(cfg DispatcherConfig) error {
	if cfg.MaxEventAgeSeconds <= 0 {
		return &ValidationError{
			Field:   "dispatcher.max_event_age_seconds",
			Message: "maximum event age must be positive",
		}
	}

	if cfg.RequestConnectTimeout <= 0 || cfg.RequestReadTimeout <= 0 {
		return &ValidationError{
			Field:   "dispatcher.request_timeout",
			Message: "request timeouts must be positive",
		}
	}

	return nil
}

func validateRateLimit(cfg RateLimitConfig) error {
	if cfg.MaxRequests < 1 {
		return &ValidationError{
			Field:   "rate_limit.max_requests",
			Message: "at least one request per window must be allowed",
		}
	}

	if cfg.WindowSeconds < 1 {
		return &ValidationError{
			Field:   "rate_limit.window_seconds",
			Message: "window must be at least one second",
		}
	}

	return nil
}

func validatePortal(cfg PortalConfig) error {
	endpoints := map[string]string{
		"portal.admin_endpoint": cfg.AdminEndpoint,
		"portal.api_endpoint":   cfg.APIEndpoint,
	}
	for field, endpoint := range endpoints {
		if endpoint == "" {
			return &ValidationError{Field: field, Message: "endpoint is required"}
		}
		u, err := url.Parse(endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &ValidationError{Field: field, Message: fmt.Sprintf("invalid URL: %s", endpoint)}
		}
	}

	return validateRetry("portal.retry", cfg.Retry)
}

func validateStorage(cfg StorageConfig) error {
	switch cfg.Type {
	case "memory":
		return nil
	case "minio":
		if cfg.Endpoint == "" {
			return &ValidationError{
				Field:   "storage.endpoint",
				Message: "object storage endpoint is required",
			}
		}
		if cfg.Bucket == "" {
			return &ValidationError{
				Field:   "storage.bucket",
				Message: "bucket is required",
			}
		}
		return nil
	default:
		return &ValidationError{
			Field:   "storage.type",
			Message: fmt.Sprintf("unknown storage type: %s (supported: minio, memory)", cfg.Type),
		}
	}
}

func validateTopics(cfg TopicsConfig) error {
	topics := map[string]string{
		"topics.dispatcher_events":         cfg.DispatcherEvents,
		"topics.dead_letter.legacy":        cfg.DeadLetter.Legacy,
		"topics.dead_letter.observations":  cfg.DeadLetter.Observations,
		"topics.dead_letter.events":        cfg.DeadLetter.Events,
		"topics.dead_letter.event_updates": cfg.DeadLetter.EventUpdates,
		"topics.dead_letter.attachments":   cfg.DeadLetter.Attachments,
		"topics.dead_letter.text_messages": cfg.DeadLetter.TextMessages,
	}
	for field, topic := range topics {
		if topic == "" {
			return &ValidationError{Field: field, Message: "topic name is required"}
		}
	}
	return nil
}

func validatePush(cfg PushConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if !strings.HasPrefix(cfg.Path, "/") {
		return &ValidationError{
			Field:   "push.path",
			Message: fmt.Sprintf("path must start with '/', got %q", cfg.Path),
		}
	}
	if cfg.RPS < 0 || cfg.Burst < 0 {
		return &ValidationError{
			Field:   "push.rps",
			Message: "throttle rate and burst must be non-negative",
		}
	}
	return nil
}

func validateCircuitBreaker(cfg CircuitBreakerConfig) error {
	if cfg.FailureRatio < 0 || cfg.FailureRatio > 1 {
		return &ValidationError{
			Field:   "circuit_breaker.failure_ratio",
			Message: fmt.Sprintf("failure ratio must be within [0, 1], got %v", cfg.FailureRatio),
		}
	}
	return nil
}
