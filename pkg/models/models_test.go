package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_VersionDefaultsToV1(t *testing.T) {
	msg := NewMessageBuilder().WithData([]byte(`{}`)).Build()
	assert.Equal(t, GundiV1, msg.Version())
	assert.False(t, msg.ReceivedAt.IsZero())

	msg = NewMessageBuilder().WithAttribute(AttrGundiVersion, GundiV2).Build()
	assert.Equal(t, GundiV2, msg.Version())

	var empty Message
	assert.Equal(t, GundiV1, empty.Version())
	assert.Equal(t, "", empty.Attr(AttrGundiID))
}

func TestMessage_CopyAttributesIsDetached(t *testing.T) {
	msg := NewMessageBuilder().WithAttribute(AttrGundiID, "g-1").Build()
	attrs := msg.CopyAttributes()
	attrs[AttrGundiID] = "changed"

	assert.Equal(t, "g-1", msg.Attr(AttrGundiID))
}

func TestValidateMessage(t *testing.T) {
	assert.Error(t, ValidateMessage(nil))
	assert.Error(t, ValidateMessage(&Message{}))
	assert.NoError(t, ValidateMessage(&Message{Data: []byte("{}")}))
}

func TestRequireAttributes(t *testing.T) {
	msg := NewMessageBuilder().WithAttribute(AttrDestinationID, "d-1").Build()

	assert.NoError(t, RequireAttributes(msg, AttrDestinationID))

	err := RequireAttributes(msg, AttrDestinationID, AttrRelatedTo)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, AttrRelatedTo, vErr.Field)
}

func TestIntegration_FindConfigForAction(t *testing.T) {
	raw := `{
		"id": "779ff3ab-5589-4f4c-9e0a-ae8d6c9edff0",
		"base_url": "https://api.wpswatch.org",
		"type": {"value": "wps_watch"},
		"configurations": [
			{"action": {"value": "auth"}, "data": {"api_key": "secret"}},
			{"action": {"value": "push_events"}, "data": {"upload_domain": "upload.example.org"}}
		]
	}`
	var integration Integration
	require.NoError(t, json.Unmarshal([]byte(raw), &integration))

	assert.False(t, integration.IsEmpty())
	assert.Equal(t, "secret", integration.FindConfigForAction(ActionAuthenticate).StringValue("api_key"))
	assert.Equal(t, "upload.example.org", integration.FindConfigForAction(ActionPushEvents).StringValue("upload_domain"))
	assert.Nil(t, integration.FindConfigForAction("pull_events"))

	var missing *IntegrationActionConfiguration
	assert.Equal(t, "", missing.StringValue("api_key"))
}

func TestReferenceData_IsEmpty(t *testing.T) {
	var outbound *OutboundConfiguration
	assert.True(t, outbound.IsEmpty())
	assert.True(t, (&OutboundConfiguration{}).IsEmpty())
	assert.False(t, (&OutboundConfiguration{ID: "x"}).IsEmpty())

	var inbound *InboundIntegration
	assert.True(t, inbound.IsEmpty())

	var integration *Integration
	assert.True(t, integration.IsEmpty())
}
