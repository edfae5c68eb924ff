package pipeline

import (
	"time"

	apperrors "dispatcher/pkg/errors"
)

// FreshnessGate rejects messages older than a maximum age. Messages
// stamped in the future are never too old.
type FreshnessGate struct {
	maxAge time.Duration
	now    func() time.Time
}

func NewFreshnessGate(maxAge time.Duration) *FreshnessGate {
	return &FreshnessGate{
		maxAge: maxAge,
		now:    time.Now,
	}
}

// IsTooOld reports whether ts is older than the configured maximum age. An
// empty timestamp is never too old. RFC 3339 with or without fractional
// seconds is accepted; anything else is a validation error.
func (g *FreshnessGate) IsTooOld(ts string) (bool, error) {
	if ts == "" {
		return false, nil
	}

	published, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return false, apperrors.ErrValidation.
			WithMessage("invalid message timestamp " + ts).
			WithCause(err)
	}

	age := g.now().UTC().Sub(published.UTC())
	if age < 0 {
		return false, nil
	}
	return age > g.maxAge, nil
}
