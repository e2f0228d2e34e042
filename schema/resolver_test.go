package schema

import (
	"context"
	"errors"
	"testing"

	"conduit/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLookup struct {
	mock.Mock
}

func (m *mockLookup) GetConnectionDataCollection(ctx context.Context, connectionID, key string, parameters any) (*core.DataCollectionSpec, error) {
	args := m.Called(ctx, connectionID, key, parameters)
	spec, _ := args.Get(0).(*core.DataCollectionSpec)
	return spec, args.Error(1)
}

var createInputSchema = core.DataSchema{
	"type": "object",
	"properties": map[string]any{
		"parameters": map[string]any{"type": "object"},
		"fields": map[string]any{
			"$dataSchemaRef": map[string]any{
				"type":       "data-collection",
				"key":        "contacts",
				"parameters": map[string]any{"$var": "$.parameters"},
			},
		},
	},
}

func TestResolver_ResolvesThroughConnection(t *testing.T) {
	lookup := &mockLookup{}
	lookup.On("GetConnectionDataCollection", mock.Anything, "conn-1", "contacts", map[string]any{"listId": "l-1"}).
		Return(&core.DataCollectionSpec{FieldsSchema: core.DataSchema{"type": "object"}}, nil).Once()

	value := map[string]any{"parameters": map[string]any{"listId": "l-1"}}
	res := NewResolver(lookup).Resolve(context.Background(), createInputSchema, "conn-1", value)

	require.NoError(t, res.Err)
	assert.Empty(t, res.Error)
	fields := res.Schema["properties"].(map[string]any)["fields"]
	assert.Equal(t, map[string]any{"type": "object"}, fields)
	lookup.AssertExpectations(t)
}

func TestResolver_ValueFormulasBecomeVariables(t *testing.T) {
	lookup := &mockLookup{}
	lookup.On("GetConnectionDataCollection", mock.Anything, "conn-1", "contacts", map[string]any{"listId": "fixed"}).
		Return(&core.DataCollectionSpec{FieldsSchema: core.DataSchema{"type": "object"}}, nil).Once()

	// formulas inside the value are evaluated against an empty context first
	value := map[string]any{"parameters": map[string]any{"listId": map[string]any{"$literal": "fixed"}}}
	res := NewResolver(lookup).Resolve(context.Background(), createInputSchema, "conn-1", value)
	require.NoError(t, res.Err)
	lookup.AssertExpectations(t)
}

func TestResolver_NoConnectionKeepsReference(t *testing.T) {
	lookup := &mockLookup{}
	res := NewResolver(lookup).Resolve(context.Background(), createInputSchema, "", nil)

	require.NoError(t, res.Err)
	fields := res.Schema["properties"].(map[string]any)["fields"].(map[string]any)
	assert.Contains(t, fields, "$dataSchemaRef")
	lookup.AssertNotCalled(t, "GetConnectionDataCollection")
}

func TestResolver_FailureReturnsStaticSchema(t *testing.T) {
	lookup := &mockLookup{}
	lookup.On("GetConnectionDataCollection", mock.Anything, "conn-1", "contacts", mock.Anything).
		Return(nil, errors.New("connection is disconnected"))

	res := NewResolver(lookup).Resolve(context.Background(), createInputSchema, "conn-1", nil)
	require.Error(t, res.Err)
	assert.Contains(t, res.Error, "disconnected")
	assert.Equal(t, createInputSchema, res.Schema)
}

func TestResolver_NilSchema(t *testing.T) {
	res := NewResolver(nil).Resolve(context.Background(), nil, "conn-1", nil)
	assert.Nil(t, res.Schema)
	assert.NoError(t, res.Err)
}
