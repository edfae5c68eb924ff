package pipeline

import (
	"bytes"
	"context"
	"encoding/json"

	"dispatcher/internal/dispatch"
	"dispatcher/internal/logger"
	apperrors "dispatcher/pkg/errors"
	"dispatcher/pkg/models"
)

// LegacyProcessor dispatches Gundi v1 observations to their outbound
// configuration.
type LegacyProcessor struct {
	refdata    ReferenceData
	dispatcher Dispatcher
	logger     logger.Logger
}

func NewLegacyProcessor(refdata ReferenceData, dispatcher Dispatcher, log logger.Logger) *LegacyProcessor {
	return &LegacyProcessor{
		refdata:    refdata,
		dispatcher: dispatcher,
		logger:     log,
	}
}

func (p *LegacyProcessor) Process(ctx context.Context, msg models.Message) (models.Result, error) {
	streamType := models.StreamType(msg.Attr(models.AttrObservationType))
	if !p.dispatcher.Supports(streamType) {
		return models.Result{}, apperrors.ErrDispatcherConfig.
			WithMessage("no dispatcher found for observation type " + string(streamType)).
			WithDetail("observation_type", string(streamType))
	}

	payload, providerKey, err := stripProviderKey(msg.Data)
	if err != nil {
		return models.Result{}, err
	}
	if providerKey == "" {
		providerKey = msg.Attr(models.AttrProviderKey)
	}

	outboundID := msg.Attr(models.AttrOutboundConfigID)
	if outboundID == "" {
		return models.Result{}, apperrors.ErrDispatcherConfig.
			WithMessage("no destination set for the observation").
			WithDetail("device_id", msg.Attr(models.AttrDeviceID))
	}

	outbound, err := p.refdata.OutboundConfig(ctx, outboundID)
	if err != nil {
		return models.Result{}, err
	}
	if outbound.IsEmpty() {
		p.logger.ErrorwCtx(ctx, "Outbound configuration not found",
			"outbound_config_id", outboundID,
			"attention_needed", true,
		)
		return models.Result{}, apperrors.ErrReferenceData.
			WithMessage("outbound configuration " + outboundID + " not found").
			WithDetail("outbound_config_id", outboundID)
	}

	provider := ""
	if integrationID := msg.Attr(models.AttrIntegrationID); integrationID != "" {
		inbound, err := p.refdata.InboundIntegration(ctx, integrationID)
		if err != nil {
			return models.Result{}, err
		}
		if !inbound.IsEmpty() {
			provider = inbound.Provider
		}
	}

	dest, err := dispatch.DestinationFromOutbound(outbound)
	if err != nil {
		return models.Result{}, err
	}

	if _, err := p.dispatcher.Dispatch(ctx, dispatch.Request{
		StreamType:     streamType,
		GundiID:        msg.Attr(models.AttrGundiID),
		DataProviderID: msg.Attr(models.AttrDataProviderID),
		Destination:    dest,
		Payload:        payload,
	}); err != nil {
		p.logger.ErrorwCtx(ctx, "Error dispatching observation",
			"device_id", msg.Attr(models.AttrDeviceID),
			"provider", provider,
			"provider_key", providerKey,
			"outbound_config_id", outboundID,
			"error", err,
		)
		return models.Result{}, err
	}

	p.logger.InfowCtx(ctx, "Observation dispatched",
		"device_id", msg.Attr(models.AttrDeviceID),
		"provider", provider,
		"outbound_config_id", outboundID,
	)
	return models.Processed(), nil
}

// stripProviderKey removes provider_key from a v1 payload. It is routing
// metadata and must not reach the destination.
func stripProviderKey(data []byte) (json.RawMessage, string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, "", apperrors.ErrValidation.WithMessage("invalid observation payload").WithCause(err)
	}

	providerKey, _ := payload[models.AttrProviderKey].(string)
	delete(payload, models.AttrProviderKey)

	out, err := json.Marshal(payload)
	if err != nil {
		return nil, "", apperrors.ErrValidation.WithMessage("invalid observation payload").WithCause(err)
	}
	return out, providerKey, nil
}
