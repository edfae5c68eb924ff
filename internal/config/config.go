package config

import (
	"fmt"
	"time"

	"dispatcher/pkg/retry"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Broker         BrokerConfig         `mapstructure:"broker"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Cache          CacheConfig          `mapstructure:"cache"`
	Dispatcher     DispatcherConfig     `mapstructure:"dispatcher"`
	RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`
	Portal         PortalConfig         `mapstructure:"portal"`
	Storage        StorageConfig        `mapstructure:"storage"`
	Topics         TopicsConfig         `mapstructure:"topics"`
	Push           PushConfig           `mapstructure:"push"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers    []string    `mapstructure:"brokers"`
	GroupID    string      `mapstructure:"group_id"`
	InputTopic string      `mapstructure:"input_topic"`
	Retry      RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

func (c RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:     c.MaxAttempts,
		InitialInterval: c.InitialInterval,
		MaxInterval:     c.MaxInterval,
		Multiplier:      c.Multiplier,
		MaxElapsedTime:  c.MaxElapsedTime,
	}
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CacheConfig struct {
	ConfigTTLSeconds      int    `mapstructure:"config_ttl_seconds"`
	CorrelationTTLSeconds int    `mapstructure:"correlation_ttl_seconds"`
	CorrelationKeyPrefix  string `mapstructure:"correlation_key_prefix"`
}

func (c CacheConfig) ConfigTTL() time.Duration {
	return time.Duration(c.ConfigTTLSeconds) * time.Second
}

func (c CacheConfig) CorrelationTTL() time.Duration {
	return time.Duration(c.CorrelationTTLSeconds) * time.Second
}

type DispatcherConfig struct {
	MaxEventAgeSeconds       int           `mapstructure:"max_event_age_seconds"`
	DeleteFilesAfterDelivery bool          `mapstructure:"delete_files_after_delivery"`
	RequestConnectTimeout    time.Duration `mapstructure:"request_connect_timeout"`
	RequestReadTimeout       time.Duration `mapstructure:"request_read_timeout"`
}

func (c DispatcherConfig) MaxEventAge() time.Duration {
	return time.Duration(c.MaxEventAgeSeconds) * time.Second
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

type PortalConfig struct {
	AdminEndpoint string      `mapstructure:"admin_endpoint"`
	APIEndpoint   string      `mapstructure:"api_endpoint"`
	AuthToken     string      `mapstructure:"auth_token"`
	Retry         RetryConfig `mapstructure:"retry"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseTLS    bool   `mapstructure:"use_tls"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
}

type TopicsConfig struct {
	DispatcherEvents string           `mapstructure:"dispatcher_events"`
	DeadLetter       DeadLetterConfig `mapstructure:"dead_letter"`
}

type DeadLetterConfig struct {
	Legacy       string `mapstructure:"legacy"`
	Observations string `mapstructure:"observations"`
	Events       string `mapstructure:"events"`
	EventUpdates string `mapstructure:"event_updates"`
	Attachments  string `mapstructure:"attachments"`
	TextMessages string `mapstructure:"text_messages"`
}

type PushConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Path    string  `mapstructure:"path"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
