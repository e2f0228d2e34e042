package schema

import (
	"testing"

	"conduit/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contactSchema = core.DataSchema{
	"type":     "object",
	"required": []any{"email"},
	"properties": map[string]any{
		"email": map[string]any{"type": "string"},
		"age":   map[string]any{"type": "integer", "minimum": 0},
	},
}

func TestCheck(t *testing.T) {
	fields, err := Check(contactSchema, map[string]any{"email": "a@b.c", "age": 3})
	require.NoError(t, err)
	assert.Empty(t, fields)

	fields, err = Check(contactSchema, map[string]any{"age": -1})
	require.NoError(t, err)
	require.Len(t, fields, 2)
	names := []string{fields[0].Field, fields[1].Field}
	assert.Contains(t, names, "age")
}

func TestCheck_NilSchemaAcceptsAnything(t *testing.T) {
	fields, err := Check(nil, "whatever")
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestCheck_InvalidSchema(t *testing.T) {
	_, err := Check(core.DataSchema{"type": 12}, map[string]any{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestValidate(t *testing.T) {
	err := Validate(contactSchema, map[string]any{})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 1)

	assert.NoError(t, Validate(contactSchema, map[string]any{"email": "x"}))
}
