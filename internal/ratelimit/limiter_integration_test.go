//go:build integration

package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	redismodule "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"dispatcher/internal/logger"
	apperrors "dispatcher/pkg/errors"
)

func setupRedisContainer(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := redismodule.Run(ctx, "redis:8.4.0-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("6379/tcp").WithStartupTimeout(10*time.Second),
		),
	)
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opt, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(pingCtx).Err())

	return client
}

// Several dispatcher instances share one counter without any coordination.
func TestLimiter_ConcurrentInstances(t *testing.T) {
	client := setupRedisContainer(t)
	ctx := context.Background()

	const (
		instances   = 4
		perInstance = 5
		maxRequests = 3
	)

	var admitted, limited atomic.Int64
	var wg sync.WaitGroup
	release := make(chan struct{})

	for i := 0; i < instances; i++ {
		l := NewLimiter(client, maxRequests, 5*time.Second, logger.NopLogger())
		for j := 0; j < perInstance; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := l.Do(ctx, "https://wpswatch.example.org", func(context.Context) error {
					admitted.Add(1)
					<-release
					return nil
				})
				if apperrors.IsTooManyRequests(err) {
					limited.Add(1)
				}
			}()
		}
	}

	require.Eventually(t, func() bool {
		return admitted.Load()+limited.Load() == instances*perInstance
	}, 5*time.Second, 10*time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(maxRequests), admitted.Load())
	assert.Equal(t, int64(instances*perInstance-maxRequests), limited.Load())
}
