// Package refdata resolves integration configuration through a shared cache
// in front of the portal.
package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"dispatcher/internal/constants"
	"dispatcher/internal/logger"
	"dispatcher/internal/portal"
	apperrors "dispatcher/pkg/errors"
	"dispatcher/pkg/metrics"
	"dispatcher/pkg/models"
	"dispatcher/pkg/retry"
)

const (
	kindOutbound    = "outbound"
	kindInbound     = "inbound"
	kindIntegration = "integration"
)

// DefaultPolicy is used for portal calls when the caller supplies none.
func DefaultPolicy() retry.Policy {
	return retry.ExponentialPolicy(5).WithPredicate(portal.IsTransient)
}

type Resolver struct {
	cache  redis.Cmdable
	portal portal.Portal
	ttl    time.Duration
	policy retry.Policy
	logger logger.Logger
}

func NewResolver(cache redis.Cmdable, p portal.Portal, ttl time.Duration, policy retry.Policy, log logger.Logger) *Resolver {
	if policy.Retryable == nil {
		policy = policy.WithPredicate(portal.IsTransient)
	}
	return &Resolver{
		cache:  cache,
		portal: p,
		ttl:    ttl,
		policy: policy,
		logger: log,
	}
}

// OutboundConfig returns the v1 destination configuration, or nil when the
// portal does not know the id.
func (r *Resolver) OutboundConfig(ctx context.Context, id string) (*models.OutboundConfiguration, error) {
	return resolve(ctx, r, kindOutbound, constants.CacheKeyPrefixOutbound, id,
		r.portal.GetOutboundIntegration,
		(*models.OutboundConfiguration).IsEmpty,
	)
}

func (r *Resolver) InboundIntegration(ctx context.Context, id string) (*models.InboundIntegration, error) {
	return resolve(ctx, r, kindInbound, constants.CacheKeyPrefixInbound, id,
		r.portal.GetInboundIntegration,
		(*models.InboundIntegration).IsEmpty,
	)
}

// IntegrationDetails returns the v2 integration with its action configurations.
func (r *Resolver) IntegrationDetails(ctx context.Context, id string) (*models.Integration, error) {
	return resolve(ctx, r, kindIntegration, constants.CacheKeyPrefixIntegrationDetails, id,
		r.portal.GetIntegrationDetails,
		(*models.Integration).IsEmpty,
	)
}

func resolve[T any](
	ctx context.Context,
	r *Resolver,
	kind, prefix, id string,
	fetch func(context.Context, string) (*T, error),
	isEmpty func(*T) bool,
) (*T, error) {
	if id == "" {
		return nil, apperrors.ErrValidation.
			WithMessage(kind + " id is required").
			WithDetail("kind", kind)
	}

	key := prefix + id

	if cached, ok := readCache[T](ctx, r, key); ok {
		metrics.IncReferenceDataLookup(kind, "hit")
		return cached, nil
	}
	metrics.IncReferenceDataLookup(kind, "miss")

	var result *T
	err := retry.RetryWithCallback(ctx, r.policy, func() error {
		var fetchErr error
		result, fetchErr = fetch(ctx, id)
		return fetchErr
	}, func(attempt int, err error, nextDelay time.Duration) {
		r.logger.WarnwCtx(ctx, "Portal lookup failed, retrying",
			"kind", kind,
			"id", id,
			"attempt", attempt,
			"next_delay", nextDelay,
			"error", err,
		)
	})
	if err != nil {
		metrics.IncReferenceDataLookup(kind, "error")
		return nil, apperrors.ErrReferenceData.
			WithMessage("error retrieving " + kind + " configuration").
			WithDetail("kind", kind).
			WithDetail("id", id).
			WithCause(err)
	}

	if result == nil || isEmpty(result) {
		metrics.IncReferenceDataLookup(kind, "empty")
		return nil, nil
	}

	writeCache(ctx, r, key, result)
	return result, nil
}

// readCache treats any cache failure as a miss.
func readCache[T any](ctx context.Context, r *Resolver, key string) (*T, bool) {
	raw, err := r.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.WarnwCtx(ctx, "Cache read failed, falling back to portal", "key", key, "error", err)
		}
		return nil, false
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		r.logger.WarnwCtx(ctx, "Cached value is corrupt, falling back to portal", "key", key, "error", err)
		return nil, false
	}
	return &out, true
}

func writeCache(ctx context.Context, r *Resolver, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		r.logger.WarnwCtx(ctx, "Failed to encode value for cache", "key", key, "error", err)
		return
	}
	if err := r.cache.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.WarnwCtx(ctx, "Cache write failed", "key", key, "error", err)
	}
}
