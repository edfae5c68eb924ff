package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"dispatcher/internal/correlation"
	"dispatcher/internal/dispatch"
	"dispatcher/internal/events"
	"dispatcher/internal/logger"
	apperrors "dispatcher/pkg/errors"
	"dispatcher/pkg/models"
)

// WPSWatchHandlers join the two halves of a WPS Watch delivery: the event
// carries the camera metadata and is buffered, the attachment carries the
// image and is dispatched once its event is found.
type WPSWatchHandlers struct {
	refdata    ReferenceData
	store      CorrelationStore
	dispatcher Dispatcher
	emitter    LifecycleEmitter
	logger     logger.Logger
}

func NewWPSWatchHandlers(
	refdata ReferenceData,
	store CorrelationStore,
	dispatcher Dispatcher,
	emitter LifecycleEmitter,
	log logger.Logger,
) *WPSWatchHandlers {
	return &WPSWatchHandlers{
		refdata:    refdata,
		store:      store,
		dispatcher: dispatcher,
		emitter:    emitter,
		logger:     log,
	}
}

// Register wires both handlers into r.
func (h *WPSWatchHandlers) Register(r *EventRouter) {
	r.Handle(models.EventTypeEventTransformedWPSWatch, h.HandleEvent)
	r.Handle(models.EventTypeAttachmentTransformedWPSWatch, h.HandleAttachment)
}

func (h *WPSWatchHandlers) HandleEvent(ctx context.Context, event models.TransformerEvent, msg models.Message) (models.Result, error) {
	if err := models.RequireAttributes(&msg, models.AttrGundiID, models.AttrDestinationID); err != nil {
		return models.Result{}, apperrors.Wrap(err, apperrors.ErrValidation)
	}

	var metadata models.ImageMetadata
	if err := json.Unmarshal(event.Payload, &metadata); err != nil {
		return models.Result{}, apperrors.ErrValidation.WithMessage("invalid event payload").WithCause(err)
	}

	obs := models.DispatchedObservation{
		GundiID:        msg.Attr(models.AttrGundiID),
		RelatedTo:      relatedTo(msg),
		DataProviderID: msg.Attr(models.AttrDataProviderID),
		DestinationID:  msg.Attr(models.AttrDestinationID),
		DeliveredAt:    time.Now().UTC(),
	}

	key := correlation.Key{CorrelationID: obs.GundiID, DestinationID: obs.DestinationID}
	if err := h.store.Put(ctx, key, metadata); err != nil {
		h.logger.ErrorwCtx(ctx, "Error buffering event for attachment", "error", err)
		h.reportFailure(ctx, obs)
		return models.Result{}, err
	}

	if err := h.emitter.Buffered(ctx, obs); err != nil {
		return models.Result{}, err
	}

	h.logger.InfowCtx(ctx, "Event buffered in wait for attachment", "camera_id", metadata.CameraID)
	return models.Buffered(), nil
}

func (h *WPSWatchHandlers) HandleAttachment(ctx context.Context, event models.TransformerEvent, msg models.Message) (models.Result, error) {
	if err := models.RequireAttributes(&msg, models.AttrGundiID, models.AttrDestinationID); err != nil {
		return models.Result{}, apperrors.Wrap(err, apperrors.ErrValidation)
	}
	destinationID := msg.Attr(models.AttrDestinationID)
	gundiID := msg.Attr(models.AttrGundiID)

	integration, err := h.refdata.IntegrationDetails(ctx, destinationID)
	if err != nil {
		return models.Result{}, err
	}
	if integration.IsEmpty() {
		h.logger.ErrorwCtx(ctx, "No destination config details found",
			"destination_id", destinationID,
			"attention_needed", true,
		)
		return models.Result{}, apperrors.ErrReferenceData.
			WithMessage("no destination config details found for destination " + destinationID).
			WithDetail("destination_id", destinationID)
	}

	related := relatedTo(msg)
	if related == "" {
		return models.Result{}, apperrors.ErrValidation.
			WithMessage("attachment " + gundiID + " has no related_to").
			WithDetail("gundi_id", gundiID)
	}

	var metadata json.RawMessage
	if err := h.store.MustGet(ctx, correlation.Key{CorrelationID: related, DestinationID: destinationID}, &metadata); err != nil {
		h.logger.WarnwCtx(ctx, "Related event not available yet", "related_to", related, "error", err)
		return models.Result{}, err
	}

	obs := models.DispatchedObservation{
		GundiID:        gundiID,
		RelatedTo:      related,
		ExternalID:     gundiID,
		DataProviderID: msg.Attr(models.AttrDataProviderID),
		DestinationID:  destinationID,
		DeliveredAt:    time.Now().UTC(),
	}

	dest, err := dispatch.DestinationFromIntegration(integration)
	if err != nil {
		h.logger.ErrorwCtx(ctx, "Invalid destination configuration", "error", err, "attention_needed", true)
		h.reportFailure(ctx, obs)
		return models.Result{}, err
	}

	outcome, err := h.dispatcher.Dispatch(ctx, dispatch.Request{
		StreamType:     models.StreamAttachment,
		GundiID:        gundiID,
		RelatedTo:      related,
		DataProviderID: obs.DataProviderID,
		Destination:    dest,
		Payload:        event.Payload,
		Related:        metadata,
	})
	if err != nil {
		if outcome != nil {
			obs = events.ObservationFromOutcome(outcome, related)
		}
		h.reportFailure(ctx, obs)
		return models.Result{}, err
	}

	if err := h.emitter.Delivered(ctx, events.ObservationFromOutcome(outcome, related)); err != nil {
		return models.Result{}, err
	}
	return models.Processed(), nil
}

// reportFailure publishes a delivery failure. The caller's error is the one
// returned, so a publish error is only logged.
func (h *WPSWatchHandlers) reportFailure(ctx context.Context, obs models.DispatchedObservation) {
	if err := h.emitter.DeliveryFailed(ctx, obs); err != nil {
		h.logger.ErrorwCtx(ctx, "Error reporting delivery failure", "error", err)
	}
}

// relatedTo reads related_to, treating serialized nulls as absent.
func relatedTo(msg models.Message) string {
	switch v := msg.Attr(models.AttrRelatedTo); v {
	case "None", "null":
		return ""
	default:
		return v
	}
}
