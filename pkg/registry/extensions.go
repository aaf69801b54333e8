package registry

// Helpdesk is the helpdesk extension of a service.
type Helpdesk struct {
	ResourceBase
	ServiceID     string   `json:"serviceId,omitempty"`
	HelpdeskType  string   `json:"helpdeskType,omitempty"`
	SupportGroups []string `json:"supportGroups,omitempty"`
	Organisation  string   `json:"organisation,omitempty"`
	Emails        []string `json:"emails,omitempty"`
	Agents        []string `json:"agents,omitempty"`
}

// Monitoring is the monitoring extension of a service.
type Monitoring struct {
	ResourceBase
	ServiceID         string            `json:"serviceId,omitempty"`
	MonitoredBy       string            `json:"monitoredBy,omitempty"`
	MonitoringGroups  []MonitoringGroup `json:"monitoringGroups,omitempty"`
}

// MonitoringGroup pairs a service endpoint with its probe type.
type MonitoringGroup struct {
	ServiceType string `json:"serviceType,omitempty"`
	Endpoint    string `json:"endpoint,omitempty"`
}

// ResourceInteroperabilityRecord links a resource to the interoperability
// guidelines it implements.
type ResourceInteroperabilityRecord struct {
	ResourceBase
	ResourceID               string   `json:"resourceId,omitempty"`
	InteroperabilityRecordIDs []string `json:"interoperabilityRecordIds,omitempty"`
}

// ConfigurationTemplateInstance is a filled-in configuration template
// attached to a resource.
type ConfigurationTemplateInstance struct {
	ResourceBase
	ResourceID              string `json:"resourceId,omitempty"`
	ConfigurationTemplateID string `json:"configurationTemplateId,omitempty"`
	Payload                 string `json:"payload,omitempty"` // opaque JSON document
}
