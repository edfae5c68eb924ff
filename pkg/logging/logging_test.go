package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLogFields(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetLogFields(ctx))

	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithMessageID(ctx, "msg-1")
	ctx = WithDelivery(ctx, "gundi-1", "dest-1", "att")

	assert.Equal(t, []interface{}{
		"trace_id", "trace-1",
		"message_id", "msg-1",
		"gundi_id", "gundi-1",
		"destination_id", "dest-1",
		"stream_type", "att",
	}, GetLogFields(ctx))
	assert.Equal(t, "gundi-1", GetGundiID(ctx))
}

func TestWith_EmptyValueIsSkipped(t *testing.T) {
	ctx := WithServiceName(context.Background(), "")
	assert.Equal(t, "", GetServiceName(ctx))
	assert.Empty(t, GetLogFields(ctx))
}

func TestEarlyLog(t *testing.T) {
	var buf bytes.Buffer
	code := -1
	l := &EarlyLog{out: &buf, exit: func(c int) { code = c }}

	l.Info("loading %s", "config.yaml")
	l.Fatal("cannot start: %v", "boom")

	assert.Contains(t, buf.String(), "INFO: loading config.yaml\n")
	assert.Contains(t, buf.String(), "FATAL: cannot start: boom\n")
	assert.Equal(t, 1, code)
}
