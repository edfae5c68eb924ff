package wpswatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"dispatcher/internal/constants"
	"dispatcher/internal/dispatch"
	"dispatcher/internal/logger"
	"dispatcher/internal/storage"
	apperrors "dispatcher/pkg/errors"
)

// CameraTrapAdapter delivers Gundi v1 camera trap payloads. The payload keys
// are sent as form fields; Attachment1 names the blob to upload.
type CameraTrapAdapter struct {
	client
}

func NewCameraTrapAdapter(httpClient *http.Client, store storage.BlobStore, deleteFiles bool, log logger.Logger) *CameraTrapAdapter {
	return &CameraTrapAdapter{client: client{
		httpClient:  httpClient,
		store:       store,
		deleteFiles: deleteFiles,
		logger:      log,
	}}
}

func (a *CameraTrapAdapter) Deliver(ctx context.Context, req dispatch.Request) (*dispatch.Response, error) {
	payload, err := decodePayload(req.Payload)
	if err != nil {
		return nil, apperrors.ErrValidation.WithMessage("invalid camera trap payload").WithCause(err)
	}

	fileName, _ := payload[constants.WPSWatchFilePart].(string)
	if fileName == "" {
		return nil, apperrors.ErrValidation.
			WithMessage("camera trap payload has no " + constants.WPSWatchFilePart)
	}

	target, err := uploadURL(req.Destination.Endpoint, true)
	if err != nil {
		return nil, apperrors.ErrDispatcherConfig.
			WithMessage("invalid WPS Watch endpoint").
			WithDetail("outbound_integration_id", req.Destination.ID).
			WithCause(err)
	}

	data, err := a.download(ctx, fileName)
	if err != nil {
		return nil, err
	}

	fields, err := formFields(payload)
	if err != nil {
		return nil, apperrors.ErrValidation.WithMessage("invalid camera trap payload").WithCause(err)
	}

	resp, err := a.post(ctx, upload{
		url:      target,
		apiKey:   req.Destination.APIKey,
		fields:   fields,
		fileName: fileName,
		data:     data,
	})
	if err != nil {
		return resp, err
	}

	a.logger.InfowCtx(ctx, "File delivered to WPS Watch with success", "file", fileName)
	a.cleanup(ctx, fileName)
	return resp, nil
}

func decodePayload(raw json.RawMessage) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, fmt.Errorf("payload is empty")
	}
	return payload, nil
}

// formFields renders the payload in key order. Null values are omitted.
func formFields(payload map[string]interface{}) ([]field, error) {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]field, 0, len(keys))
	for _, k := range keys {
		var value string
		switch v := payload[k].(type) {
		case nil:
			continue
		case string:
			value = v
		case json.Number:
			value = v.String()
		case bool:
			value = strconv.FormatBool(v)
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", k, err)
			}
			value = string(encoded)
		}
		fields = append(fields, field{name: k, value: value})
	}
	return fields, nil
}
