package logging

import (
	"context"
)

const (
	TraceIDKey       = "trace_id"
	MessageIDKey     = "message_id"
	ServiceNameKey   = "service_name"
	GundiIDKey       = "gundi_id"
	DestinationIDKey = "destination_id"
	StreamTypeKey    = "stream_type"
)

type ctxKey string

// orderedKeys fixes the order fields appear in log lines.
var orderedKeys = []string{
	TraceIDKey,
	MessageIDKey,
	ServiceNameKey,
	GundiIDKey,
	DestinationIDKey,
	StreamTypeKey,
}

func with(ctx context.Context, key, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey(key), value)
}

func get(ctx context.Context, key string) string {
	if v, ok := ctx.Value(ctxKey(key)).(string); ok {
		return v
	}
	return ""
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return with(ctx, TraceIDKey, traceID)
}

func WithMessageID(ctx context.Context, messageID string) context.Context {
	return with(ctx, MessageIDKey, messageID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return with(ctx, ServiceNameKey, serviceName)
}

// WithDelivery tags ctx with the identifiers of the message being dispatched.
func WithDelivery(ctx context.Context, gundiID, destinationID, streamType string) context.Context {
	ctx = with(ctx, GundiIDKey, gundiID)
	ctx = with(ctx, DestinationIDKey, destinationID)
	return with(ctx, StreamTypeKey, streamType)
}

func GetServiceName(ctx context.Context) string {
	return get(ctx, ServiceNameKey)
}

func GetGundiID(ctx context.Context) string {
	return get(ctx, GundiIDKey)
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, len(orderedKeys)*2)
	for _, key := range orderedKeys {
		if v := get(ctx, key); v != "" {
			fields = append(fields, key, v)
		}
	}
	return fields
}
