package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoadConfig reads configFile (optional) and the environment. Without a file
// the service is configured entirely from env vars, as in container deploys.
func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	applyDefaults()
	bindEnvVariables()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func applyDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout_seconds", 30*time.Second)
	viper.SetDefault("server.write_timeout_seconds", 30*time.Second)

	viper.SetDefault("database.redis.host", "localhost")
	viper.SetDefault("database.redis.port", 6379)
	viper.SetDefault("database.redis.db", 0)
	viper.SetDefault("database.redis.pool_size", 20)

	viper.SetDefault("broker.type", "kafka")
	viper.SetDefault("broker.kafka.group_id", "dispatcher-service")
	viper.SetDefault("broker.kafka.input_topic", "dispatcher-input")
	viper.SetDefault("broker.kafka.retry.max_attempts", 3)
	viper.SetDefault("broker.kafka.retry.initial_interval", time.Second)
	viper.SetDefault("broker.kafka.retry.max_interval", 30*time.Second)
	viper.SetDefault("broker.kafka.retry.multiplier", 2.0)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("cache.config_ttl_seconds", 60)
	viper.SetDefault("cache.correlation_ttl_seconds", 3600)
	viper.SetDefault("cache.correlation_key_prefix", "wps_image_metadata")

	viper.SetDefault("dispatcher.max_event_age_seconds", 86400)
	viper.SetDefault("dispatcher.delete_files_after_delivery", false)
	viper.SetDefault("dispatcher.request_connect_timeout", 10*time.Second)
	viper.SetDefault("dispatcher.request_read_timeout", 20*time.Second)

	viper.SetDefault("rate_limit.max_requests", 3)
	viper.SetDefault("rate_limit.window_seconds", 1)

	viper.SetDefault("portal.retry.max_attempts", 5)
	viper.SetDefault("portal.retry.initial_interval", 500*time.Millisecond)
	viper.SetDefault("portal.retry.max_interval", 10*time.Second)
	viper.SetDefault("portal.retry.multiplier", 2.0)

	viper.SetDefault("storage.type", "minio")
	viper.SetDefault("storage.bucket", "cdip-files-dev")

	viper.SetDefault("topics.dispatcher_events", "dispatcher-events-dev")
	viper.SetDefault("topics.dead_letter.legacy", "dispatchers-dead-letter-prod")
	viper.SetDefault("topics.dead_letter.observations", "observations-dead-letter")
	viper.SetDefault("topics.dead_letter.events", "events-dead-letter")
	viper.SetDefault("topics.dead_letter.event_updates", "events-updates-dead-letter")
	viper.SetDefault("topics.dead_letter.attachments", "attachments-dead-letter")
	viper.SetDefault("topics.dead_letter.text_messages", "text-messages-dead-letter")

	viper.SetDefault("push.enabled", true)
	viper.SetDefault("push.path", "/")
	viper.SetDefault("push.rps", 100.0)
	viper.SetDefault("push.burst", 200)

	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 3)
	viper.SetDefault("circuit_breaker.interval", 60*time.Second)
	viper.SetDefault("circuit_breaker.timeout", 30*time.Second)
	viper.SetDefault("circuit_breaker.failure_ratio", 0.6)
	viper.SetDefault("circuit_breaker.min_requests", 5)

	viper.SetDefault("tracing.service_name", "dispatcher-service")
}

func bindEnvVariables() {
	viper.BindEnv("broker.type", "BROKER_TYPE")
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.group_id", "BROKER_KAFKA_GROUP_ID")
	viper.BindEnv("broker.kafka.input_topic", "BROKER_KAFKA_INPUT_TOPIC")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST", "REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT", "REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB", "REDIS_DB")

	viper.BindEnv("server.port", "SERVER_PORT", "PORT")

	viper.BindEnv("logging.level", "LOGGING_LEVEL", "LOG_LEVEL")

	viper.BindEnv("cache.config_ttl_seconds", "PORTAL_CONFIG_OBJECT_CACHE_TTL")
	viper.BindEnv("cache.correlation_ttl_seconds", "IMAGE_METADATA_CACHE_TTL")

	viper.BindEnv("dispatcher.max_event_age_seconds", "MAX_EVENT_AGE_SECONDS")
	viper.BindEnv("dispatcher.delete_files_after_delivery", "DELETE_FILES_AFTER_DELIVERY")

	viper.BindEnv("rate_limit.max_requests", "MAX_REQUESTS")
	viper.BindEnv("rate_limit.window_seconds", "MAX_REQUESTS_TIME_WINDOW_SEC")

	viper.BindEnv("portal.admin_endpoint", "PORTAL_ADMIN_ENDPOINT")
	viper.BindEnv("portal.api_endpoint", "GUNDI_API_BASE_URL")
	viper.BindEnv("portal.auth_token", "PORTAL_AUTH_TOKEN")

	viper.BindEnv("storage.type", "STORAGE_TYPE")
	viper.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	viper.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	viper.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	viper.BindEnv("storage.bucket", "BUCKET_NAME")

	viper.BindEnv("topics.dispatcher_events", "DISPATCHER_EVENTS_TOPIC")
	viper.BindEnv("topics.dead_letter.legacy", "LEGACY_DEAD_LETTER_TOPIC")
	viper.BindEnv("topics.dead_letter.observations", "OBSERVATIONS_DEAD_LETTER_TOPIC")
	viper.BindEnv("topics.dead_letter.events", "EVENTS_DEAD_LETTER_TOPIC")
	viper.BindEnv("topics.dead_letter.event_updates", "EVENTS_UPDATES_DEAD_LETTER_TOPIC")
	viper.BindEnv("topics.dead_letter.attachments", "ATTACHMENTS_DEAD_LETTER_TOPIC")
	viper.BindEnv("topics.dead_letter.text_messages", "TEXT_MESSAGES_DEAD_LETTER_TOPIC")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func applyEnvOverrides(cfg *Config) {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := strings.Split(brokersEnv, ",")
		for i := range brokers {
			brokers[i] = strings.TrimSpace(brokers[i])
		}
		if len(brokers) > 0 && brokers[0] != "" {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}
}
