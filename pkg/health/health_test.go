package health

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckerRegistry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	down := pingFunc(func(context.Context) error { return errors.New("bucket unreachable") })
	up := pingFunc(func(context.Context) error { return nil })

	tests := []struct {
		name    string
		storage Pinger
		want    Status
	}{
		{"all healthy", up, StatusHealthy},
		{"optional check failing", down, StatusDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCheckerRegistry()
			r.Register(NewRedisChecker(client))
			r.RegisterOptional(NewPingChecker("storage", tt.storage))

			h := r.Check(context.Background())
			assert.Equal(t, tt.want, h.Status)
			assert.Equal(t, StatusHealthy, h.Checks["redis"].Status)
		})
	}
}

func TestCheckerRegistry_RequiredFailing(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	r := NewCheckerRegistry()
	r.Register(NewRedisChecker(client))

	h := r.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, h.Status)
	require.Contains(t, h.Checks, "redis")
	assert.Contains(t, h.Checks["redis"].Message, "redis ping failed")
}
