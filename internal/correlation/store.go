package correlation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "dispatcher/pkg/errors"
	"dispatcher/pkg/metrics"
)

const DefaultKeyPrefix = "wps_image_metadata"

// Key joins the two halves of a split delivery.
type Key struct {
	CorrelationID string
	DestinationID string
}

func (k Key) validate() error {
	if k.CorrelationID == "" || k.DestinationID == "" {
		return apperrors.ErrValidation.
			WithMessage("correlation id and destination id must be valid").
			WithDetail("correlation_id", k.CorrelationID).
			WithDetail("destination_id", k.DestinationID)
	}
	return nil
}

// Store buffers the first half of a split delivery until its companion
// arrives. Records self-expire after ttl. A cache failure is never reported
// as a missing record.
type Store struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewStore(client redis.Cmdable, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) key(k Key) string {
	return fmt.Sprintf("%s.%s.%s", s.prefix, k.CorrelationID, k.DestinationID)
}

func (s *Store) Put(ctx context.Context, k Key, value interface{}) error {
	if err := k.validate(); err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return apperrors.ErrValidation.WithCause(err).WithMessage("correlation record is not serializable")
	}

	if err := s.client.Set(ctx, s.key(k), data, s.ttl).Err(); err != nil {
		metrics.IncCorrelationOperation("put", "error")
		return apperrors.ErrReferenceData.
			WithMessage("failed to cache correlation record").
			WithCause(err).
			WithDetail("key", s.key(k))
	}

	metrics.IncCorrelationOperation("put", "ok")
	return nil
}

// Get decodes the record into out. It reports false when no record exists.
func (s *Store) Get(ctx context.Context, k Key, out interface{}) (bool, error) {
	if err := k.validate(); err != nil {
		return false, err
	}

	data, err := s.client.Get(ctx, s.key(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.IncCorrelationOperation("get", "miss")
		return false, nil
	}
	if err != nil {
		metrics.IncCorrelationOperation("get", "error")
		return false, apperrors.ErrReferenceData.
			WithMessage("failed to read correlation record").
			WithCause(err).
			WithDetail("key", s.key(k))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, apperrors.ErrValidation.
			WithMessage("corrupt correlation record").
			WithCause(err).
			WithDetail("key", s.key(k))
	}

	metrics.IncCorrelationOperation("get", "hit")
	return true, nil
}

// MustGet is Get where a missing record is a retryable reference data error,
// giving the companion part time to arrive before the bus redelivers.
func (s *Store) MustGet(ctx context.Context, k Key, out interface{}) error {
	found, err := s.Get(ctx, k, out)
	if err != nil {
		return err
	}
	if !found {
		return apperrors.ErrReferenceData.
			WithMessage(fmt.Sprintf("related record %s not found for destination %s, will retry later", k.CorrelationID, k.DestinationID)).
			WithDetail("related_to", k.CorrelationID).
			WithDetail("destination_id", k.DestinationID)
	}
	return nil
}
