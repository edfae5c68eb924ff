package models

// OutboundConfiguration is a v1 destination as returned by the portal admin API.
type OutboundConfiguration struct {
	ID              string                 `json:"id"`
	Type            string                 `json:"type,omitempty"`
	Owner           string                 `json:"owner,omitempty"`
	Name            string                 `json:"name,omitempty"`
	Endpoint        string                 `json:"endpoint,omitempty"`
	State           map[string]interface{} `json:"state,omitempty"`
	Login           string                 `json:"login,omitempty"`
	Password        string                 `json:"password,omitempty"`
	Token           string                 `json:"token,omitempty"`
	TypeSlug        string                 `json:"type_slug,omitempty"`
	InboundTypeSlug string                 `json:"inbound_type_slug,omitempty"`
	Additional      map[string]interface{} `json:"additional,omitempty"`
}

func (c *OutboundConfiguration) IsEmpty() bool {
	return c == nil || c.ID == ""
}

// InboundIntegration is a v1 data source.
type InboundIntegration struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name,omitempty"`
	Provider string                 `json:"provider,omitempty"`
	TypeSlug string                 `json:"type_slug,omitempty"`
	Enabled  bool                   `json:"enabled,omitempty"`
	Endpoint string                 `json:"endpoint,omitempty"`
	State    map[string]interface{} `json:"state,omitempty"`
}

func (i *InboundIntegration) IsEmpty() bool {
	return i == nil || i.ID == ""
}

// Action values understood by the WPS Watch integration type.
const (
	ActionAuthenticate = "auth"
	ActionPushEvents   = "push_events"
)

type IntegrationAction struct {
	ID    string `json:"id,omitempty"`
	Type  string `json:"type,omitempty"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value"`
}

type IntegrationActionConfiguration struct {
	ID     string                 `json:"id,omitempty"`
	Action IntegrationAction      `json:"action"`
	Data   map[string]interface{} `json:"data"`
}

// StringValue returns a string setting, or "" when absent or not a string.
func (c *IntegrationActionConfiguration) StringValue(key string) string {
	if c == nil || c.Data == nil {
		return ""
	}
	s, _ := c.Data[key].(string)
	return s
}

type IntegrationType struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Value string `json:"value,omitempty"`
}

// Integration is the v2 description of a connection, with per-action settings.
type Integration struct {
	ID             string                           `json:"id"`
	Name           string                           `json:"name,omitempty"`
	BaseURL        string                           `json:"base_url,omitempty"`
	Enabled        bool                             `json:"enabled,omitempty"`
	Type           IntegrationType                  `json:"type"`
	Owner          map[string]interface{}           `json:"owner,omitempty"`
	Configurations []IntegrationActionConfiguration `json:"configurations,omitempty"`
	Additional     map[string]interface{}           `json:"additional,omitempty"`
}

func (i *Integration) IsEmpty() bool {
	return i == nil || i.ID == ""
}

func (i *Integration) FindConfigForAction(action string) *IntegrationActionConfiguration {
	if i == nil {
		return nil
	}
	for idx := range i.Configurations {
		if i.Configurations[idx].Action.Value == action {
			return &i.Configurations[idx]
		}
	}
	return nil
}
