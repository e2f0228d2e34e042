package schema

import (
	"fmt"
	"sort"

	"conduit/core"

	"github.com/xeipuuv/gojsonschema"
)

// Check validates value against a JSON schema and returns the failing
// fields. The error is reserved for schemas that cannot be compiled.
func Check(schema core.DataSchema, value any) ([]core.FieldError, error) {
	if schema == nil {
		return nil, nil
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(map[string]any(schema)),
		gojsonschema.NewGoLoader(value),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid schema: %v", core.ErrInvalidInput, err)
	}
	if result.Valid() {
		return nil, nil
	}

	fields := make([]core.FieldError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		fields = append(fields, core.FieldError{Field: re.Field(), Message: re.Description()})
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return fields, nil
}

// Validate is Check reporting failures as a *core.ValidationError.
func Validate(schema core.DataSchema, value any) error {
	fields, err := Check(schema, value)
	if err != nil {
		return err
	}
	if len(fields) > 0 {
		return &core.ValidationError{Fields: fields}
	}
	return nil
}
