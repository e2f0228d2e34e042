package schema

import (
	"context"
	"fmt"

	"conduit/core"
)

// CollectionLookup fetches data collections through a connection.
type CollectionLookup interface {
	GetConnectionDataCollection(ctx context.Context, connectionID, key string, parameters any) (*core.DataCollectionSpec, error)
}

// Result of resolving a dynamic data schema. When resolution fails Schema
// holds the static schema so forms can still render, and Err says why.
type Result struct {
	Schema core.DataSchema `json:"schema" swaggertype:"object"`
	Error  string          `json:"error,omitempty"`
	Err    error           `json:"-"`
}

// Resolver resolves the dynamic parts of data schemas used by input forms.
type Resolver struct {
	lookup CollectionLookup
}

// NewResolver creates a resolver. lookup may be nil, in which case
// data collection references are never resolved.
func NewResolver(lookup CollectionLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve evaluates the formulas of schema against value. Formulas inside
// value are resolved first and the result becomes the variables. Data
// collections are looked up through connectionID when it is set.
func (r *Resolver) Resolve(ctx context.Context, schema core.DataSchema, connectionID string, value any) Result {
	if schema == nil {
		return Result{}
	}

	variables, err := ResolveFormulas(ctx, value, Options{})
	if err != nil {
		return failed(schema, err)
	}

	opts := Options{Variables: variables}
	if connectionID != "" && r.lookup != nil {
		opts.GetDataCollection = func(ctx context.Context, key string, parameters any) (*core.DataCollectionSpec, error) {
			return r.lookup.GetConnectionDataCollection(ctx, connectionID, key, parameters)
		}
	}

	resolved, err := ResolveFormulas(ctx, schema, opts)
	if err != nil {
		return failed(schema, err)
	}
	out, ok := resolved.(map[string]any)
	if !ok {
		if resolved == nil {
			return Result{}
		}
		return failed(schema, fmt.Errorf("%w: schema resolved to %T, not an object", core.ErrInvalidInput, resolved))
	}
	return Result{Schema: core.DataSchema(out)}
}

func failed(schema core.DataSchema, err error) Result {
	return Result{Schema: schema, Error: err.Error(), Err: err}
}
