// Package circuitbreaker guards calls to an upstream with a gobreaker
// instance that reports its state to Prometheus.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"dispatcher/internal/config"
	"dispatcher/pkg/metrics"
)

// Settings tune when a breaker trips and how it recovers.
type Settings struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
	// IsFailure decides which errors count against the breaker. Nil counts all.
	IsFailure func(err error) bool
}

func DefaultSettings() Settings {
	return Settings{
		MaxRequests:  3,
		Interval:     60 * time.Second,
		Timeout:      60 * time.Second,
		MinRequests:  3,
		FailureRatio: 0.5,
	}
}

// FromConfig overlays the non-zero values of cfg on DefaultSettings.
func FromConfig(cfg config.CircuitBreakerConfig) Settings {
	s := DefaultSettings()
	if cfg.MaxRequests > 0 {
		s.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		s.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		s.Timeout = cfg.Timeout
	}
	if cfg.MinRequests > 0 {
		s.MinRequests = cfg.MinRequests
	}
	if cfg.FailureRatio > 0 {
		s.FailureRatio = cfg.FailureRatio
	}
	return s
}

type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

func New(name string, s Settings) *Breaker {
	minRequests, ratio := s.MinRequests, s.FailureRatio
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			setStateMetric(name, to)
		},
	}
	if s.IsFailure != nil {
		isFailure := s.IsFailure
		settings.IsSuccessful = func(err error) bool { return err == nil || !isFailure(err) }
	}

	cb := gobreaker.NewCircuitBreaker(settings)
	setStateMetric(name, cb.State())
	return &Breaker{name: name, cb: cb}
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) State() gobreaker.State { return b.cb.State() }

// Execute runs fn through b. A rejected call wraps gobreaker.ErrOpenState or
// gobreaker.ErrTooManyRequests with the breaker name.
func Execute[T any](ctx context.Context, b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	b.record(err)

	if IsRejected(err) {
		return zero, fmt.Errorf("circuit breaker is open for %s: %w", b.name, err)
	}
	if err != nil {
		return zero, err
	}
	typed, _ := result.(T)
	return typed, nil
}

// IsRejected reports whether err came from the breaker rather than the call.
func IsRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func (b *Breaker) record(err error) {
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, b.cb.State().String()).Inc()
	if err != nil {
		metrics.CircuitBreakerFailures.WithLabelValues(b.name).Inc()
	}
}

func setStateMetric(name string, state gobreaker.State) {
	var value float64
	switch state {
	case gobreaker.StateHalfOpen:
		value = 1
	case gobreaker.StateOpen:
		value = 2
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(value)
}
