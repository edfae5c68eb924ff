package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	PipelineMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_messages_total",
			Help: "Total number of messages processed by the dispatcher pipeline (count)",
		},
		[]string{"version", "status"},
	)

	PipelineProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatcher_processing_duration_ms",
			Help:    "Processing duration of one message in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"status"},
	)

	DispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatcher_deliveries_total",
			Help: "Total number of delivery attempts to destinations (count)",
		},
		[]string{"stream_type", "status"},
	)

	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatcher_delivery_duration_ms",
			Help:    "Duration of destination delivery calls in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 20000},
		},
		[]string{"stream_type"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of admissions checked against the destination rate limit (count)",
		},
		[]string{"status"},
	)

	PushThrottledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "push_throttled_total",
			Help: "Total number of push requests rejected by the HTTP throttle (count)",
		},
	)

	ReferenceDataLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reference_data_lookups_total",
			Help: "Total number of reference data lookups by cache result (count)",
		},
		[]string{"kind", "result"},
	)

	PortalRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_requests_total",
			Help: "Total number of requests to the portal API (count)",
		},
		[]string{"resource", "status"},
	)

	PortalRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_request_duration_ms",
			Help:    "Duration of portal API requests in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"resource"},
	)

	CorrelationOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "correlation_store_operations_total",
			Help: "Total number of correlation store operations (count)",
		},
		[]string{"operation", "result"},
	)

	LifecycleEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_events_total",
			Help: "Total number of lifecycle events published (count)",
		},
		[]string{"event_type", "status"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"service", "topic"},
	)

	DLQMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dlq_messages_total",
			Help: "Total number of messages sent to a dead-letter topic (count)",
		},
		[]string{"service", "topic", "reason"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"service", "topic"},
	)

	KafkaMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_size_bytes",
			Help:    "Size of Kafka messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"service", "topic", "direction"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"service", "topic"},
	)
)

func RegisterDispatcherMetrics() {
	prometheus.MustRegister(PipelineMessagesTotal)
	prometheus.MustRegister(PipelineProcessingDuration)
	prometheus.MustRegister(DispatchTotal)
	prometheus.MustRegister(DispatchDuration)
	prometheus.MustRegister(RateLimitRequestsTotal)
	prometheus.MustRegister(PushThrottledTotal)
	prometheus.MustRegister(ReferenceDataLookupsTotal)
	prometheus.MustRegister(PortalRequestsTotal)
	prometheus.MustRegister(PortalRequestDuration)
	prometheus.MustRegister(CorrelationOperationsTotal)
	prometheus.MustRegister(LifecycleEventsTotal)
}

func RegisterBrokerMetrics() {
	prometheus.MustRegister(RetryAttemptsTotal)
	prometheus.MustRegister(DLQMessagesTotal)
	prometheus.MustRegister(KafkaMessagesReadTotal)
	prometheus.MustRegister(KafkaMessagesWrittenTotal)
	prometheus.MustRegister(KafkaMessageSizeBytes)
	prometheus.MustRegister(KafkaWriteDuration)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func ObservePipeline(version, status string, duration time.Duration) {
	PipelineMessagesTotal.WithLabelValues(version, status).Inc()
	PipelineProcessingDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func ObserveDispatch(streamType, status string, duration time.Duration) {
	DispatchTotal.WithLabelValues(streamType, status).Inc()
	DispatchDuration.WithLabelValues(streamType).Observe(float64(duration.Milliseconds()))
}

func IncRateLimit(status string) {
	RateLimitRequestsTotal.WithLabelValues(status).Inc()
}

func IncReferenceDataLookup(kind, result string) {
	ReferenceDataLookupsTotal.WithLabelValues(kind, result).Inc()
}

func ObservePortalRequest(resource, status string, duration time.Duration) {
	PortalRequestsTotal.WithLabelValues(resource, status).Inc()
	PortalRequestDuration.WithLabelValues(resource).Observe(float64(duration.Milliseconds()))
}

func IncCorrelationOperation(operation, result string) {
	CorrelationOperationsTotal.WithLabelValues(operation, result).Inc()
}

func IncLifecycleEvent(eventType, status string) {
	LifecycleEventsTotal.WithLabelValues(eventType, status).Inc()
}

func IncDLQMessage(service, topic, reason string) {
	DLQMessagesTotal.WithLabelValues(service, topic, reason).Inc()
}

func IncKafkaMessagesRead(service, topic string) {
	KafkaMessagesReadTotal.WithLabelValues(service, topic).Inc()
}

func IncKafkaMessagesWritten(service, topic string) {
	KafkaMessagesWrittenTotal.WithLabelValues(service, topic).Inc()
}

func ObserveKafkaMessageSize(service, topic, direction string, sizeBytes int) {
	KafkaMessageSizeBytes.WithLabelValues(service, topic, direction).Observe(float64(sizeBytes))
}

func ObserveKafkaWriteDuration(service, topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(service, topic).Observe(float64(duration.Milliseconds()))
}
