package generator

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"conduit/core"
	"conduit/platform"
)

// Platform action and flow node types
const (
	ActionTypeList   = "list-data-records"
	ActionTypeCreate = "create-data-record"

	nodeTrigger      = "trigger"
	nodeFindByID     = "find-data-record-by-id"
	nodeSendToApp    = "api-request-to-your-app"
	eventDeleted     = "deleted"
	eventsRequestURI = "/events"
)

// templateMethods are the data collection methods that get an action template.
var templateMethods = []core.Method{core.MethodList, core.MethodCreate}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func collectionName(spec *core.DataCollectionSpec) string {
	if spec.Name != "" {
		return spec.Name
	}
	return spec.Key
}

func dataSource(spec *core.DataCollectionSpec, parametersVar string) map[string]any {
	ds := map[string]any{"collectionKey": spec.Key}
	if spec.ParametersSchema != nil {
		ds["collectionParameters"] = map[string]any{"$var": parametersVar}
	}
	return ds
}

func baseActionTemplate(method core.Method, spec *core.DataCollectionSpec, integration core.Integration) *platform.ActionTemplate {
	props := map[string]any{}
	if spec.ParametersSchema != nil {
		props["parameters"] = map[string]any(spec.ParametersSchema.Clone())
	}
	return &platform.ActionTemplate{
		Key:           fmt.Sprintf("%s-%s-%s", method, spec.Key, integration.Key),
		Name:          fmt.Sprintf("%s %s", capitalize(string(method)), capitalize(collectionName(spec))),
		IntegrationID: integration.ID,
		InputSchema:   core.DataSchema{"type": "object", "properties": props},
		Config: map[string]any{
			"dataSource": dataSource(spec, "$.input.parameters"),
		},
	}
}

// ListActionTemplate builds the paginated list action of a collection.
func ListActionTemplate(spec *core.DataCollectionSpec, integration core.Integration) *platform.ActionTemplate {
	tmpl := baseActionTemplate(core.MethodList, spec, integration)
	tmpl.Type = ActionTypeList
	tmpl.Config["cursor"] = map[string]any{"$var": "$.input.cursor"}
	tmpl.InputSchema["properties"].(map[string]any)["cursor"] = map[string]any{
		"type":        "string",
		"description": "The cursor to use for pagination",
	}
	return tmpl
}

// CreateActionTemplate builds the create action of a collection. Its fields
// schema is a reference resolved against the collection at form time.
func CreateActionTemplate(spec *core.DataCollectionSpec, integration core.Integration) *platform.ActionTemplate {
	tmpl := baseActionTemplate(core.MethodCreate, spec, integration)
	tmpl.Type = ActionTypeCreate
	tmpl.InputSchema["properties"].(map[string]any)["fields"] = map[string]any{
		"$dataSchemaRef": map[string]any{
			"type":       "data-collection",
			"key":        spec.Key,
			"parameters": map[string]any{"$var": "$.parameters"},
		},
	}
	return tmpl
}

// ActionTemplateFor returns the template of a supported method.
func ActionTemplateFor(method core.Method, spec *core.DataCollectionSpec, integration core.Integration) (*platform.ActionTemplate, error) {
	switch method {
	case core.MethodList:
		return ListActionTemplate(spec, integration), nil
	case core.MethodCreate:
		return CreateActionTemplate(spec, integration), nil
	}
	return nil, fmt.Errorf("%w: no action template for %q", core.ErrUnknownMethod, method)
}

// FlowTemplate builds the flow forwarding a collection event to the app:
// trigger, then a record lookup (skipped for deletions), then the API request.
func FlowTemplate(event string, spec *core.DataCollectionSpec, integration core.Integration) *platform.FlowTemplate {
	deleted := event == eventDeleted
	name := capitalize(collectionName(spec))

	firstHop := nodeFindByID
	if deleted {
		firstHop = nodeSendToApp
	}

	nodes := map[string]platform.FlowNodeTemplate{
		nodeTrigger: {
			Type:   fmt.Sprintf("data-record-%s-trigger", event),
			Name:   fmt.Sprintf("%s: %s", capitalize(strings.ReplaceAll(event, "-", " ")), collectionName(spec)),
			Config: map[string]any{"dataSource": dataSource(spec, "$.flowInstance.parameters")},
			Links:  []platform.FlowLink{{Key: firstHop}},
		},
	}

	body := map[string]any{
		"integrationKey": map[string]any{"$var": "$.integration.key"},
		"connectionId":   map[string]any{"$var": "$.connection.id"},
		"instanceKey":    map[string]any{"$var": "$.flowInstance.instanceKey"},
		"recordId":       map[string]any{"$var": "$.input.trigger.record.id"},
	}
	if !deleted {
		body["data"] = map[string]any{"$var": "$.input." + nodeFindByID}
		nodes[nodeFindByID] = platform.FlowNodeTemplate{
			Type: nodeFindByID,
			Name: "Find Data Record By Id",
			Config: map[string]any{
				"dataSource": dataSource(spec, "$.flowInstance.parameters"),
				"id":         map[string]any{"$var": "$.input.trigger.record.id"},
			},
			Links: []platform.FlowLink{{Key: nodeSendToApp}},
		}
	}
	nodes[nodeSendToApp] = platform.FlowNodeTemplate{
		Type: nodeSendToApp,
		Name: "Send event to your app",
		Config: map[string]any{
			"request": map[string]any{
				"uri":    eventsRequestURI,
				"method": "POST",
				"body":   body,
			},
		},
	}

	var params core.DataSchema
	if spec.ParametersSchema != nil {
		params = spec.ParametersSchema.Clone()
	}
	return &platform.FlowTemplate{
		Key:              fmt.Sprintf("%s-%s-%s", event, spec.Key, integration.Key),
		Name:             fmt.Sprintf("%s %s", capitalize(event), name),
		IntegrationID:    integration.ID,
		ParametersSchema: params,
		Nodes:            nodes,
	}
}
