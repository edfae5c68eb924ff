// Package pipeline routes one inbound message through freshness, version and
// event-type checks to the matching dispatch path.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"dispatcher/internal/broker"
	"dispatcher/internal/constants"
	"dispatcher/internal/deadletter"
	"dispatcher/internal/logger"
	apperrors "dispatcher/pkg/errors"
	"dispatcher/pkg/logging"
	"dispatcher/pkg/metrics"
	"dispatcher/pkg/models"
)

// Processor handles messages of one Gundi version.
type Processor interface {
	Process(ctx context.Context, msg models.Message) (models.Result, error)
}

type Router struct {
	gate       *FreshnessGate
	processors map[string]Processor
	deadLetter broker.DeadLetterSink
	logger     logger.Logger
}

func NewRouter(gate *FreshnessGate, deadLetter broker.DeadLetterSink, log logger.Logger) *Router {
	return &Router{
		gate:       gate,
		processors: make(map[string]Processor),
		deadLetter: deadLetter,
		logger:     log,
	}
}

// Handle registers the processor for a Gundi version.
func (r *Router) Handle(version string, p Processor) {
	r.processors[version] = p
}

// Process runs msg through the pipeline. Stale messages, unsupported versions
// and fatal errors are dead-lettered and reported as discarded. Any returned
// error is retryable and should make the transport redeliver.
func (r *Router) Process(ctx context.Context, msg models.Message) (models.Result, error) {
	start := time.Now()
	version := msg.Version()
	ctx = logging.WithDelivery(ctx,
		msg.Attr(models.AttrGundiID),
		msg.Attr(models.AttrDestinationID),
		msg.Attr(models.AttrStreamType),
	)

	result, err := r.process(ctx, version, msg)
	if err != nil && apperrors.IsFatal(err) {
		result, err = r.discardFatal(ctx, msg, err)
	}

	status := result.Status
	if err != nil {
		status = "error"
	}
	metrics.ObservePipeline(version, status, time.Since(start))
	return result, err
}

func (r *Router) process(ctx context.Context, version string, msg models.Message) (models.Result, error) {
	tooOld, err := r.gate.IsTooOld(msg.PublishTime)
	if err != nil {
		return models.Result{}, err
	}
	if tooOld {
		r.logger.WarnwCtx(ctx, "Message discarded",
			"reason", constants.ReasonTooOld,
			"publish_time", msg.PublishTime,
			"attributes", msg.Attributes,
		)
		if err := r.deadLetter.Forward(ctx, msg, deadletter.ReasonStale); err != nil {
			return models.Result{}, err
		}
		return models.Discarded(constants.ReasonTooOld), nil
	}

	if err := models.ValidateMessage(&msg); err != nil {
		return models.Result{}, apperrors.Wrap(err, apperrors.ErrValidation)
	}

	p, ok := r.processors[version]
	if !ok {
		reason := fmt.Sprintf("Gundi '%s' messages are not supported", version)
		r.logger.WarnwCtx(ctx, "Message discarded", "reason", reason, "attributes", msg.Attributes)
		if err := r.deadLetter.Forward(ctx, msg, deadletter.ReasonUnsupportedVersion); err != nil {
			return models.Result{}, err
		}
		return models.Discarded(reason), nil
	}

	return p.Process(ctx, msg)
}

// discardFatal dead-letters a message that redelivery can never fix.
func (r *Router) discardFatal(ctx context.Context, msg models.Message, cause error) (models.Result, error) {
	r.logger.ErrorwCtx(ctx, "Message cannot be processed, sending to dead letter",
		"error", cause,
		"attributes", msg.Attributes,
		"attention_needed", apperrors.IsDispatcherConfig(cause),
	)
	if err := r.deadLetter.Forward(ctx, msg, cause.Error()); err != nil {
		return models.Result{}, err
	}
	return models.Discarded(cause.Error()), nil
}
