package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"conduit/core"
)

// maxListPages bounds cursor pagination so a misbehaving cursor cannot loop forever
const maxListPages = 1000

type page[T any] struct {
	Items  []T    `json:"items"`
	Cursor string `json:"cursor"`
}

// listAll follows the cursor of a paginated list endpoint until it is exhausted.
func listAll[T any](ctx context.Context, c *Client, operation, path string, query url.Values) ([]T, error) {
	items := []T{}
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	for i := 0; i < maxListPages; i++ {
		var p page[T]
		if err := c.do(ctx, operation, http.MethodGet, path, q, nil, &p); err != nil {
			return nil, err
		}
		items = append(items, p.Items...)
		if p.Cursor == "" {
			return items, nil
		}
		q.Set("cursor", p.Cursor)
	}
	return nil, fmt.Errorf("%s: more than %d pages", operation, maxListPages)
}

func seg(s string) string {
	return url.PathEscape(s)
}

// ListIntegrations returns every integration of the workspace. Connected
// integrations carry the customer's connection.
func (c *Client) ListIntegrations(ctx context.Context) ([]core.Integration, error) {
	return listAll[core.Integration](ctx, c, "list_integrations", "/integrations", nil)
}

// GetIntegration returns one integration by key.
func (c *Client) GetIntegration(ctx context.Context, key string) (*core.Integration, error) {
	var out core.Integration
	if err := c.do(ctx, "get_integration", http.MethodGet, "/integrations/"+seg(key), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDataCollections returns the catalog of an integration's data collections.
func (c *Client) ListDataCollections(ctx context.Context, integrationKey string) ([]core.DataCollection, error) {
	return listAll[core.DataCollection](ctx, c, "list_data_collections", "/integrations/"+seg(integrationKey)+"/data", nil)
}

// GetDataCollection returns the specification of a data collection. The key
// is filled in since the platform omits it.
func (c *Client) GetDataCollection(ctx context.Context, integrationKey, collectionKey string) (*core.DataCollectionSpec, error) {
	var out core.DataCollectionSpec
	path := "/integrations/" + seg(integrationKey) + "/data/" + seg(collectionKey)
	if err := c.do(ctx, "get_data_collection", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	out.Key = collectionKey
	return &out, nil
}

// GetConnectionDataCollection returns a data collection specification as seen
// through a connection, with collection parameters applied. Its fields schema
// may depend on the parameters.
func (c *Client) GetConnectionDataCollection(ctx context.Context, connectionID, key string, parameters any) (*core.DataCollectionSpec, error) {
	var query url.Values
	if parameters != nil {
		encoded, err := json.Marshal(parameters)
		if err != nil {
			return nil, fmt.Errorf("failed to encode collection parameters: %w", err)
		}
		query = url.Values{"parameters": {string(encoded)}}
	}

	var out core.DataCollectionSpec
	path := "/connections/" + seg(connectionID) + "/data/" + seg(key)
	if err := c.do(ctx, "get_connection_data_collection", http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	out.Key = key
	return &out, nil
}

// ListConnections returns the customer's connections.
func (c *Client) ListConnections(ctx context.Context) ([]core.Connection, error) {
	return listAll[core.Connection](ctx, c, "list_connections", "/connections", nil)
}

// GetConnection returns one connection by id.
func (c *Client) GetConnection(ctx context.Context, id string) (*core.Connection, error) {
	var out core.Connection
	if err := c.do(ctx, "get_connection", http.MethodGet, "/connections/"+seg(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunDataCollectionMethod calls a data collection method through a
// connection. Object inputs are sent as the request body together with the
// collection parameters; other inputs are sent under "input".
func (c *Client) RunDataCollectionMethod(ctx context.Context, connectionID, key string, method core.Method, parameters map[string]any, input any) (any, error) {
	if !method.IsValid() {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownMethod, method)
	}

	body := map[string]any{}
	switch v := input.(type) {
	case nil:
	case map[string]any:
		for k, val := range v {
			body[k] = val
		}
	default:
		body["input"] = v
	}
	if parameters != nil {
		body["parameters"] = parameters
	}

	var out any
	path := "/connections/" + seg(connectionID) + "/data/" + seg(key) + "/" + seg(method.String())
	if err := c.do(ctx, "run_data_collection_method", http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListIntegrationActions returns the platform actions defined for an integration.
func (c *Client) ListIntegrationActions(ctx context.Context, integrationKey string) ([]core.PlatformAction, error) {
	return listAll[core.PlatformAction](ctx, c, "list_integration_actions", "/integrations/"+seg(integrationKey)+"/actions", nil)
}

// GetAction returns a platform action by id.
func (c *Client) GetAction(ctx context.Context, id string) (*core.PlatformAction, error) {
	var out core.PlatformAction
	if err := c.do(ctx, "get_action", http.MethodGet, "/actions/"+seg(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunAction runs a platform action on a connection and returns its output.
func (c *Client) RunAction(ctx context.Context, connectionID, actionKey string, input any) (any, error) {
	var out any
	path := "/connections/" + seg(connectionID) + "/actions/" + seg(actionKey) + "/run"
	if err := c.do(ctx, "run_action", http.MethodPost, path, nil, input, &out); err != nil {
		return nil, err
	}
	if obj, ok := out.(map[string]any); ok {
		if output, ok := obj["output"]; ok {
			return output, nil
		}
	}
	return out, nil
}

// ListFlows returns the flows of an integration; workflows use them as triggers.
func (c *Client) ListFlows(ctx context.Context, integrationKey string) ([]core.Flow, error) {
	return listAll[core.Flow](ctx, c, "list_flows", "/integrations/"+seg(integrationKey)+"/flows", nil)
}

// GetFlowInstance returns a flow as enabled on a connection.
func (c *Client) GetFlowInstance(ctx context.Context, connectionID, flowKey string) (*core.FlowInstance, error) {
	var out core.FlowInstance
	path := "/connections/" + seg(connectionID) + "/flows/" + seg(flowKey)
	if err := c.do(ctx, "get_flow_instance", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAction publishes an action template.
func (c *Client) CreateAction(ctx context.Context, tmpl *ActionTemplate) error {
	return c.do(ctx, "create_action", http.MethodPost, "/actions", nil, tmpl, nil)
}

// PatchAction updates an existing action template of an integration.
func (c *Client) PatchAction(ctx context.Context, integrationKey string, tmpl *ActionTemplate) error {
	path := "/integrations/" + seg(integrationKey) + "/actions/" + seg(tmpl.Key)
	return c.do(ctx, "patch_action", http.MethodPatch, path, nil, tmpl, nil)
}

// CreateFlow publishes a flow template.
func (c *Client) CreateFlow(ctx context.Context, tmpl *FlowTemplate) error {
	return c.do(ctx, "create_flow", http.MethodPost, "/flows", nil, tmpl, nil)
}

// PatchFlow updates an existing flow template of an integration.
func (c *Client) PatchFlow(ctx context.Context, integrationKey string, tmpl *FlowTemplate) error {
	path := "/integrations/" + seg(integrationKey) + "/flows/" + seg(tmpl.Key)
	return c.do(ctx, "patch_flow", http.MethodPatch, path, nil, tmpl, nil)
}
