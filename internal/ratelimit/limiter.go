// Package ratelimit implements a fixed-window admission counter shared by all
// dispatcher instances through Redis.
//
// Each endpoint gets one counter. Acquire increments it and starts the window
// expiry on the first increment; Release decrements it once the guarded call
// is over. A rejected Acquire is not rolled back, so it keeps consuming budget
// until the window expires.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dispatcher/internal/logger"
	apperrors "dispatcher/pkg/errors"
	"dispatcher/pkg/metrics"
)

var acquireScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// releaseScript never recreates a counter whose window already expired.
var releaseScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return redis.call('DECR', KEYS[1])
end
return 0
`)

type Limiter struct {
	client      redis.Cmdable
	maxRequests int64
	window      time.Duration
	logger      logger.Logger
}

func NewLimiter(client redis.Cmdable, maxRequests int, window time.Duration, log logger.Logger) *Limiter {
	return &Limiter{
		client:      client,
		maxRequests: int64(maxRequests),
		window:      window,
		logger:      log,
	}
}

// Acquire admits one operation against key or fails with a TOO_MANY_REQUESTS error.
func (l *Limiter) Acquire(ctx context.Context, key string) error {
	count, err := acquireScript.Run(ctx, l.client, []string{key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return apperrors.ErrInternal.
			WithMessage("rate limiter unavailable").
			WithCause(err).
			WithDetail("key", key)
	}

	if count > l.maxRequests {
		metrics.IncRateLimit("limited")
		l.logger.WarnwCtx(ctx, "Rate limit exceeded",
			"url", key,
			"count", count,
			"max_requests", l.maxRequests,
		)
		return apperrors.ErrTooManyRequests.
			WithMessage(fmt.Sprintf("max requests reached for %s (%d/%d)", key, count, l.maxRequests)).
			WithDetail("key", key)
	}

	metrics.IncRateLimit("allowed")
	return nil
}

// Release returns the slot taken by a successful Acquire.
func (l *Limiter) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, l.client, []string{key}).Err(); err != nil {
		l.logger.WarnwCtx(ctx, "Failed to release rate limit slot", "url", key, "error", err)
		return err
	}
	return nil
}

// Do runs fn inside an admitted slot. The slot is released on every exit path
// of fn; it is not taken at all when admission is rejected.
func (l *Limiter) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := l.Acquire(ctx, key); err != nil {
		return err
	}
	defer func() {
		// Release must run even when ctx was cancelled during fn.
		_ = l.Release(context.WithoutCancel(ctx), key)
	}()

	return fn(ctx)
}

// Count returns the current counter value for key, 0 when no window is open.
func (l *Limiter) Count(ctx context.Context, key string) (int64, error) {
	n, err := l.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}
