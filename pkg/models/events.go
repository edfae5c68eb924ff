package models

import (
	"encoding/json"
	"time"
)

// Event types produced by the transformer stage for Gundi v2.
const (
	EventTypeEventTransformedWPSWatch      = "EventTransformedWPSWatch"
	EventTypeAttachmentTransformedWPSWatch = "AttachmentTransformedWPSWatch"
)

const SupportedSchemaVersion = "v1"

// TransformerEvent is the typed envelope of a v2 message. Payload is decoded
// by the handler registered for EventType.
type TransformerEvent struct {
	EventID       string          `json:"event_id,omitempty"`
	Timestamp     string          `json:"timestamp,omitempty"`
	SchemaVersion string          `json:"schema_version"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
}

// ImageMetadata is the metadata half of a split WPS Watch delivery.
type ImageMetadata struct {
	CameraID string `json:"camera_id"`
}

// Image is the binary half of a split WPS Watch delivery.
type Image struct {
	FilePath string `json:"file_path"`
}

// System event types published on the dispatcher events topic.
const (
	SystemEventObservationDelivered      = "ObservationDelivered"
	SystemEventObservationDeliveryFailed = "ObservationDeliveryFailed"
	SystemEventDispatcherCustomLog       = "DispatcherCustomLog"
)

type LogLevel int

const (
	LogLevelDebug   LogLevel = 10
	LogLevelInfo    LogLevel = 20
	LogLevelWarning LogLevel = 30
	LogLevelError   LogLevel = 40
)

// SystemEvent is the envelope consumed by other services for auditing.
type SystemEvent struct {
	EventID       string      `json:"event_id"`
	Timestamp     time.Time   `json:"timestamp"`
	SchemaVersion string      `json:"schema_version"`
	EventType     string      `json:"event_type"`
	Payload       interface{} `json:"payload"`
}

type DispatchedObservation struct {
	GundiID        string    `json:"gundi_id"`
	RelatedTo      string    `json:"related_to,omitempty"`
	ExternalID     string    `json:"external_id,omitempty"`
	DataProviderID string    `json:"data_provider_id,omitempty"`
	DestinationID  string    `json:"destination_id"`
	DeliveredAt    time.Time `json:"delivered_at"`
}

type CustomDispatcherLog struct {
	GundiID        string                 `json:"gundi_id"`
	RelatedTo      string                 `json:"related_to,omitempty"`
	DataProviderID string                 `json:"data_provider_id,omitempty"`
	DestinationID  string                 `json:"destination_id"`
	Title          string                 `json:"title"`
	Level          LogLevel               `json:"level"`
	Data           map[string]interface{} `json:"data,omitempty"`
}
