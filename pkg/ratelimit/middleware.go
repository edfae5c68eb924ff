// Package ratelimit throttles push deliveries per client before they reach
// the pipeline. Per-destination limits live in internal/ratelimit.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"dispatcher/internal/config"
	apperrors "dispatcher/pkg/errors"
	"dispatcher/pkg/metrics"
)

type ThrottleConfig struct {
	RPS             float64
	Burst           int
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

func DefaultConfig() ThrottleConfig {
	return ThrottleConfig{
		RPS:             50.0,
		Burst:           100,
		CleanupInterval: 5 * time.Minute,
		MaxAge:          10 * time.Minute,
	}
}

// FromPushConfig overlays the configured rate on the defaults.
func FromPushConfig(cfg config.PushConfig) ThrottleConfig {
	c := DefaultConfig()
	if cfg.RPS > 0 {
		c.RPS = cfg.RPS
	}
	if cfg.Burst > 0 {
		c.Burst = cfg.Burst
	}
	return c
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle holds one token bucket per client address.
type Throttle struct {
	cfg     ThrottleConfig
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

func NewThrottle(cfg ThrottleConfig) *Throttle {
	return &Throttle{
		cfg:     cfg,
		clients: make(map[string]*clientLimiter),
	}
}

// Run evicts idle clients until ctx is done.
func (t *Throttle) Run(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.evict(now)
		}
	}
}

func (t *Throttle) evict(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for ip, c := range t.clients {
		if now.Sub(c.lastSeen) > t.cfg.MaxAge {
			delete(t.clients, ip)
		}
	}
}

func (t *Throttle) allow(ip string) (bool, int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.clients[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(t.cfg.RPS), t.cfg.Burst)}
		t.clients[ip] = c
	}
	c.lastSeen = time.Now()

	allowed := c.limiter.Allow()
	remaining := int(c.limiter.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining
}

// Middleware rejects requests over the client's rate with 429 so the
// publisher backs off and redelivers.
func (t *Throttle) Middleware() gin.HandlerFunc {
	limit := strconv.Itoa(int(t.cfg.RPS))

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if clientIP == "" {
			clientIP = c.RemoteIP()
		}

		allowed, remaining := t.allow(clientIP)
		c.Header("X-RateLimit-Limit", limit)
		if !allowed {
			metrics.PushThrottledTotal.Inc()
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				apperrors.ToErrorResponse(apperrors.ErrTooManyRequests.WithDetail("client_ip", clientIP)))
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Next()
	}
}
