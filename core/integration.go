package core

import (
	"encoding/json"
	"sort"
	"time"
)

// DataSchema is a JSON-schema-like document as served by the integration
// platform. It may contain formulas such as {"$var": "$.parameters"}.
type DataSchema map[string]any

// Clone returns a deep copy of the schema.
func (s DataSchema) Clone() DataSchema {
	if s == nil {
		return nil
	}
	return DataSchema(cloneMap(s))
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies a decoded JSON value.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case DataSchema:
		return DataSchema(cloneMap(t))
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Integration is an external connector known to the platform.
type Integration struct {
	ID         string      `json:"id" bson:"id"`
	Key        string      `json:"key" bson:"key"`
	Name       string      `json:"name" bson:"name"`
	LogoURI    string      `json:"logoUri,omitempty" bson:"logo_uri,omitempty"`
	Connection *Connection `json:"connection,omitempty" bson:"connection,omitempty"`
}

// Connected reports whether the current customer has a connection to the integration.
func (i *Integration) Connected() bool {
	return i.Connection != nil && !i.Connection.Disconnected
}

// Connection is a customer's authenticated link to an integration.
type Connection struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	IntegrationID string       `json:"integrationId,omitempty"`
	Integration   *Integration `json:"integration,omitempty"`
	Disconnected  bool         `json:"disconnected,omitempty"`
	CreatedAt     *time.Time   `json:"createdAt,omitempty" swaggertype:"string"`
}

// DisplayName falls back to the integration key when the connection has no name.
func (c *Connection) DisplayName() string {
	if c == nil {
		return ""
	}
	if c.Name != "" {
		return c.Name
	}
	if c.Integration != nil {
		return c.Integration.Key
	}
	return ""
}

// DataCollection is a catalog entry of an integration's data collections.
type DataCollection struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// specMethodKeys maps keys present in a collection specification to method names.
var specMethodKeys = map[string]Method{
	"list":     MethodList,
	"create":   MethodCreate,
	"update":   MethodUpdate,
	"delete":   MethodDelete,
	"search":   MethodSearch,
	"findById": MethodFindByID,
}

// DataCollectionSpec is the full specification of a data collection. The
// platform returns a loosely structured document, so the raw form is kept and
// served back unchanged; the commonly used parts are decoded alongside.
type DataCollectionSpec struct {
	Key              string
	Name             string
	FieldsSchema     DataSchema
	ParametersSchema DataSchema
	Events           map[string]json.RawMessage
	Raw              map[string]any
}

// UnmarshalJSON decodes the known parts and keeps the raw document.
func (s *DataCollectionSpec) UnmarshalJSON(data []byte) error {
	var known struct {
		Key              string                     `json:"key"`
		Name             string                     `json:"name"`
		FieldsSchema     DataSchema                 `json:"fieldsSchema"`
		ParametersSchema DataSchema                 `json:"parametersSchema"`
		Events           map[string]json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = DataCollectionSpec{
		Key:              known.Key,
		Name:             known.Name,
		FieldsSchema:     known.FieldsSchema,
		ParametersSchema: known.ParametersSchema,
		Events:           known.Events,
		Raw:              raw,
	}
	return nil
}

// MarshalJSON serialises the raw document with the key filled in.
func (s DataCollectionSpec) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Raw)+2)
	for k, v := range s.Raw {
		out[k] = v
	}
	if s.Key != "" {
		out["key"] = s.Key
	}
	if s.Name != "" {
		out["name"] = s.Name
	}
	return json.Marshal(out)
}

// Methods returns the methods the collection supports, in table order.
func (s *DataCollectionSpec) Methods() []Method {
	var methods []Method
	for key, m := range specMethodKeys {
		if _, ok := s.Raw[key]; ok {
			methods = append(methods, m)
		}
	}
	sort.Slice(methods, func(i, j int) bool { return methodOrder[methods[i]] < methodOrder[methods[j]] })
	return methods
}

// Supports reports whether the collection exposes the given method.
func (s *DataCollectionSpec) Supports(m Method) bool {
	for key, sm := range specMethodKeys {
		if sm == m {
			_, ok := s.Raw[key]
			return ok
		}
	}
	return false
}

// EventNames returns the collection's event names sorted alphabetically.
func (s *DataCollectionSpec) EventNames() []string {
	names := make([]string, 0, len(s.Events))
	for name := range s.Events {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PlatformAction is an action template defined on the platform.
type PlatformAction struct {
	ID            string     `json:"id"`
	Key           string     `json:"key"`
	Name          string     `json:"name"`
	IntegrationID string     `json:"integrationId,omitempty"`
	InputSchema   DataSchema `json:"inputSchema,omitempty" swaggertype:"object"`
}

// DisplayName returns the name or, failing that, the key.
func (a *PlatformAction) DisplayName() string {
	if a == nil {
		return ""
	}
	if a.Name != "" {
		return a.Name
	}
	return a.Key
}

// Flow is a platform flow; console workflows use flows as triggers.
type Flow struct {
	ID               string     `json:"id"`
	Key              string     `json:"key"`
	Name             string     `json:"name"`
	IntegrationID    string     `json:"integrationId,omitempty"`
	ParametersSchema DataSchema `json:"parametersSchema,omitempty" swaggertype:"object"`
}

// FlowInstance is a flow enabled on a particular connection.
type FlowInstance struct {
	ID           string         `json:"id"`
	FlowID       string         `json:"flowId,omitempty"`
	ConnectionID string         `json:"connectionId,omitempty"`
	InstanceKey  string         `json:"instanceKey,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Enabled      bool           `json:"enabled"`
}
