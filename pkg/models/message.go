package models

import "time"

// Attribute keys carried by every inbound message.
const (
	AttrGundiVersion     = "gundi_version"
	AttrGundiID          = "gundi_id"
	AttrRelatedTo        = "related_to"
	AttrDestinationID    = "destination_id"
	AttrDataProviderID   = "data_provider_id"
	AttrObservationType  = "observation_type"
	AttrStreamType       = "stream_type"
	AttrProviderKey      = "provider_key"
	AttrDeviceID         = "device_id"
	AttrIntegrationID    = "integration_id"
	AttrOutboundConfigID = "outbound_config_id"
)

const (
	GundiV1 = "v1"
	GundiV2 = "v2"
)

type StreamType string

const (
	// Gundi v2 stream prefixes.
	StreamObservation StreamType = "obv"
	StreamEvent       StreamType = "ev"
	StreamEventUpdate StreamType = "evu"
	StreamAttachment  StreamType = "att"
	StreamTextMessage StreamType = "txt"

	// Gundi v1 observation types.
	StreamPosition   StreamType = "ps"
	StreamGeoEvent   StreamType = "ge"
	StreamCameraTrap StreamType = "ct"
)

// Message is one inbound delivery from the transport. It may recur with
// identical content when the bus redelivers it.
type Message struct {
	ID          string            `json:"message_id"`
	Data        []byte            `json:"data"`
	Attributes  map[string]string `json:"attributes"`
	PublishTime string            `json:"publish_time,omitempty"`
	ReceivedAt  time.Time         `json:"-"`
}

func (m *Message) Attr(key string) string {
	if m.Attributes == nil {
		return ""
	}
	return m.Attributes[key]
}

// Version defaults to v1 when the attribute is missing.
func (m *Message) Version() string {
	if v := m.Attr(AttrGundiVersion); v != "" {
		return v
	}
	return GundiV1
}

// CopyAttributes returns a detached copy safe to republish.
func (m *Message) CopyAttributes() map[string]string {
	out := make(map[string]string, len(m.Attributes))
	for k, v := range m.Attributes {
		out[k] = v
	}
	return out
}

const (
	StatusProcessed = "processed"
	StatusDiscarded = "discarded"
	StatusBuffered  = "buffered"
)

// Result is the terminal, non-error outcome of processing one message.
type Result struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func Processed() Result {
	return Result{Status: StatusProcessed}
}

func Buffered() Result {
	return Result{Status: StatusBuffered}
}

func Discarded(reason string) Result {
	return Result{Status: StatusDiscarded, Reason: reason}
}

// DeliveryOutcome is produced once per dispatch attempt.
type DeliveryOutcome struct {
	CorrelationID  string     `json:"correlation_id"`
	DestinationID  string     `json:"destination_id"`
	DataProviderID string     `json:"data_provider_id,omitempty"`
	StreamType     StreamType `json:"stream_type"`
	Status         string     `json:"status"`
	StatusCode     int        `json:"status_code,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	FailedAt       *time.Time `json:"failed_at,omitempty"`
}

const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "delivery_failed"
)
