package storage

import (
	"context"
	"testing"

	"conduit/core"
	"conduit/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func roundTrip(t *testing.T, in, out interface{}) {
	t.Helper()
	data, err := bson.MarshalWithRegistry(NewRegistry(), in)
	require.NoError(t, err)
	require.NoError(t, bson.UnmarshalWithRegistry(NewRegistry(), data, out))
}

func TestRegistry_ActionInputDecodesAsPlainMaps(t *testing.T) {
	saved := core.Action{
		ConnectionID:  "c1",
		CollectionKey: "contacts",
		Method:        core.MethodCreate,
		Input: map[string]any{
			"fields": map[string]any{"name": "Ada", "tags": []any{"vip", "beta"}},
		},
		Parameters: map[string]any{"filter": map[string]any{"active": true}},
	}

	var got core.Action
	roundTrip(t, saved, &got)

	assert.Equal(t, saved.Input, got.Input)
	assert.Equal(t, saved.Parameters, got.Parameters)
}

func TestRegistry_InputMappingFormulasResolveAfterDecode(t *testing.T) {
	saved := core.WorkflowNode{
		ID:           "n1",
		Name:         "Create",
		Type:         core.NodeTypeAction,
		ConnectionID: "c1",
		ActionKey:    "create-contact",
		InputMapping: map[string]any{
			"fullName": map[string]any{"$concat": []any{
				map[string]any{"$var": "$.first"},
				" ",
				map[string]any{"$var": "$.last"},
			}},
			"email": map[string]any{"$firstNotEmpty": []any{"", map[string]any{"$var": "$.email"}}},
		},
	}

	var got core.WorkflowNode
	roundTrip(t, saved, &got)

	args, ok := got.InputMapping["fullName"].(map[string]any)["$concat"].([]any)
	require.True(t, ok, "array decoded as %T", got.InputMapping["fullName"].(map[string]any)["$concat"])
	assert.Len(t, args, 3)

	out, err := schema.ResolveFormulas(context.Background(), got.InputMapping, schema.Options{
		Variables: map[string]any{"first": "Ada", "last": "Lovelace", "email": "ada@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"fullName": "Ada Lovelace", "email": "ada@example.com"}, out)
}
