package dispatch

import (
	apperrors "dispatcher/pkg/errors"
	"dispatcher/pkg/models"
)

// Setting keys read from v2 action configurations.
const (
	SettingUploadDomain = "upload_domain"
	settingAPIKey       = "api_key"
)

// Destination is the resolved, read-only view of where a delivery goes.
// Endpoint doubles as the rate-limit key.
type Destination struct {
	ID       string
	Endpoint string
	APIKey   string
	Settings map[string]string
}

func (d Destination) Setting(key, fallback string) string {
	if v := d.Settings[key]; v != "" {
		return v
	}
	return fallback
}

// DestinationFromOutbound adapts a v1 outbound configuration.
func DestinationFromOutbound(cfg *models.OutboundConfiguration) (Destination, error) {
	if cfg.IsEmpty() {
		return Destination{}, apperrors.ErrDispatcherConfig.WithMessage("outbound configuration is empty")
	}
	if cfg.Endpoint == "" {
		return Destination{}, apperrors.ErrDispatcherConfig.
			WithMessage("endpoint for outbound integration " + cfg.ID + " is missing. Please fix the integration setup in the portal.").
			WithDetail("outbound_integration_id", cfg.ID)
	}
	return Destination{
		ID:       cfg.ID,
		Endpoint: cfg.Endpoint,
		APIKey:   cfg.Token,
	}, nil
}

// DestinationFromIntegration adapts a v2 integration. The api key comes from
// the authentication action and is required.
func DestinationFromIntegration(integration *models.Integration) (Destination, error) {
	if integration.IsEmpty() {
		return Destination{}, apperrors.ErrDispatcherConfig.WithMessage("integration is empty")
	}

	auth := integration.FindConfigForAction(models.ActionAuthenticate)
	if auth == nil {
		return Destination{}, apperrors.ErrDispatcherConfig.
			WithMessage("authentication settings for integration " + integration.ID + " are missing. Please fix the integration setup in the portal.").
			WithDetail("integration_id", integration.ID)
	}
	apiKey := auth.StringValue(settingAPIKey)
	if apiKey == "" {
		return Destination{}, apperrors.ErrDispatcherConfig.
			WithMessage("token for integration " + integration.ID + " is missing. Please fix the integration setup in the portal.").
			WithDetail("integration_id", integration.ID)
	}
	if integration.BaseURL == "" {
		return Destination{}, apperrors.ErrDispatcherConfig.
			WithMessage("base url for integration " + integration.ID + " is missing. Please fix the integration setup in the portal.").
			WithDetail("integration_id", integration.ID)
	}

	settings := map[string]string{}
	if push := integration.FindConfigForAction(models.ActionPushEvents); push != nil {
		if domain := push.StringValue(SettingUploadDomain); domain != "" {
			settings[SettingUploadDomain] = domain
		}
	}

	return Destination{
		ID:       integration.ID,
		Endpoint: integration.BaseURL,
		APIKey:   apiKey,
		Settings: settings,
	}, nil
}
