package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "dispatcher"

// Message attributes double as the propagation carrier, both for Kafka
// headers and for push envelopes.

// InjectAttributes writes the trace context of ctx into attrs.
func InjectAttributes(ctx context.Context, attrs map[string]string) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(attrs))
}

func ExtractAttributes(ctx context.Context, attrs map[string]string) context.Context {
	if len(attrs) == 0 {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(attrs))
}

// StartSpanFromAttributes continues the producer's trace, if any.
func StartSpanFromAttributes(ctx context.Context, operationName string, attrs map[string]string) (context.Context, trace.Span) {
	ctx = ExtractAttributes(ctx, attrs)
	return otel.Tracer(tracerName).Start(ctx, operationName, trace.WithSpanKind(trace.SpanKindConsumer))
}
