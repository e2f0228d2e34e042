package platform

import "conduit/core"

// ActionTemplate is an action definition published to the platform.
type ActionTemplate struct {
	Key           string          `json:"key" yaml:"key"`
	Name          string          `json:"name" yaml:"name"`
	IntegrationID string          `json:"integrationId" yaml:"integrationId"`
	Type          string          `json:"type" yaml:"type"`
	InputSchema   core.DataSchema `json:"inputSchema" yaml:"inputSchema"`
	Config        map[string]any  `json:"config" yaml:"config"`
}

// FlowTemplate is a flow definition published to the platform.
type FlowTemplate struct {
	Key              string                      `json:"key" yaml:"key"`
	Name             string                      `json:"name" yaml:"name"`
	IntegrationID    string                      `json:"integrationId" yaml:"integrationId"`
	ParametersSchema core.DataSchema             `json:"parametersSchema,omitempty" yaml:"parametersSchema,omitempty"`
	Nodes            map[string]FlowNodeTemplate `json:"nodes" yaml:"nodes"`
}

// FlowNodeTemplate is one node of a flow template.
type FlowNodeTemplate struct {
	Type   string         `json:"type" yaml:"type"`
	Name   string         `json:"name" yaml:"name"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	Links  []FlowLink     `json:"links,omitempty" yaml:"links,omitempty"`
}

// FlowLink points a flow node at the next node.
type FlowLink struct {
	Key string `json:"key" yaml:"key"`
}
