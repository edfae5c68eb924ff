package wpswatch

import (
	"context"
	"encoding/json"
	"net/http"
	"path"

	"dispatcher/internal/constants"
	"dispatcher/internal/dispatch"
	"dispatcher/internal/logger"
	"dispatcher/internal/storage"
	apperrors "dispatcher/pkg/errors"
	"dispatcher/pkg/models"
)

// ImageAdapter delivers Gundi v2 attachments. The camera comes from the
// buffered event metadata in req.Related.
type ImageAdapter struct {
	client
}

func NewImageAdapter(httpClient *http.Client, store storage.BlobStore, deleteFiles bool, log logger.Logger) *ImageAdapter {
	return &ImageAdapter{client: client{
		httpClient:  httpClient,
		store:       store,
		deleteFiles: deleteFiles,
		logger:      log,
	}}
}

func (a *ImageAdapter) Deliver(ctx context.Context, req dispatch.Request) (*dispatch.Response, error) {
	if len(req.Related) == 0 {
		return nil, apperrors.ErrValidation.WithMessage("related event is required")
	}
	var related models.ImageMetadata
	if err := json.Unmarshal(req.Related, &related); err != nil {
		return nil, apperrors.ErrValidation.WithMessage("invalid related event").WithCause(err)
	}
	if related.CameraID == "" {
		return nil, apperrors.ErrValidation.WithMessage("camera_id is required")
	}

	var image models.Image
	if err := json.Unmarshal(req.Payload, &image); err != nil {
		return nil, apperrors.ErrValidation.WithMessage("invalid image payload").WithCause(err)
	}
	if image.FilePath == "" {
		return nil, apperrors.ErrValidation.WithMessage("file_path is required")
	}

	target, err := uploadURL(req.Destination.Endpoint, false)
	if err != nil {
		return nil, apperrors.ErrDispatcherConfig.
			WithMessage("invalid WPS Watch base url").
			WithDetail("integration_id", req.Destination.ID).
			WithCause(err)
	}

	data, err := a.download(ctx, image.FilePath)
	if err != nil {
		return nil, err
	}

	domain := req.Destination.Setting(dispatch.SettingUploadDomain, constants.WPSWatchDefaultUploadDomain)
	resp, err := a.post(ctx, upload{
		url:    target,
		apiKey: req.Destination.APIKey,
		fields: []field{
			{name: "From", value: constants.WPSWatchSender},
			{name: "To", value: related.CameraID + "@" + domain},
		},
		fileName: path.Base(image.FilePath),
		data:     data,
	})
	if err != nil {
		return resp, err
	}

	a.logger.InfowCtx(ctx, "File delivered to WPS Watch with success", "file", image.FilePath)
	a.cleanup(ctx, image.FilePath)
	return resp, nil
}
