package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"conduit/core"

	"github.com/PaesslerAG/jsonpath"
)

// Formula keys understood by ResolveFormulas
const (
	FormulaVar           = "$var"
	FormulaDataSchemaRef = "$dataSchemaRef"
	FormulaFirstNotEmpty = "$firstNotEmpty"
	FormulaConcat        = "$concat"
	FormulaLiteral       = "$literal"
)

// DataSchemaRefCollection is the only $dataSchemaRef type resolved here
const DataSchemaRefCollection = "data-collection"

// maxDepth bounds recursion through nested values and referenced schemas
const maxDepth = 64

// DataCollectionGetter fetches a data collection specification with the
// given collection parameters applied.
type DataCollectionGetter func(ctx context.Context, key string, parameters any) (*core.DataCollectionSpec, error)

// Options controls formula resolution.
type Options struct {
	// Variables is the document $var paths are evaluated against
	Variables any
	// GetDataCollection resolves $dataSchemaRef; when nil references are left as they are
	GetDataCollection DataCollectionGetter
}

// ResolveFormulas returns a copy of value with every formula replaced by its
// result. An object is a formula when it has exactly one key and that key
// starts with "$". Unknown formulas are returned unchanged.
func ResolveFormulas(ctx context.Context, value any, opts Options) (any, error) {
	vars, err := plain(opts.Variables)
	if err != nil {
		return nil, fmt.Errorf("invalid variables: %w", err)
	}
	r := &resolver{vars: vars, getCollection: opts.GetDataCollection}
	return r.resolve(ctx, value, 0)
}

type resolver struct {
	vars          any
	getCollection DataCollectionGetter
}

func (r *resolver) resolve(ctx context.Context, value any, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: value nested deeper than %d levels", core.ErrInvalidInput, maxDepth)
	}
	switch v := value.(type) {
	case core.DataSchema:
		return r.resolveObject(ctx, v, depth)
	case map[string]any:
		return r.resolveObject(ctx, v, depth)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			resolved, err := r.resolve(ctx, item, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

func (r *resolver) resolveObject(ctx context.Context, obj map[string]any, depth int) (any, error) {
	if key, arg, ok := formula(obj); ok {
		return r.evaluate(ctx, key, arg, obj, depth)
	}
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		resolved, err := r.resolve(ctx, v, depth+1)
		if err != nil {
			return nil, err
		}
		out[k] = resolved
	}
	return out, nil
}

func formula(obj map[string]any) (string, any, bool) {
	if len(obj) != 1 {
		return "", nil, false
	}
	for k, v := range obj {
		if strings.HasPrefix(k, "$") {
			return k, v, true
		}
	}
	return "", nil, false
}

func (r *resolver) evaluate(ctx context.Context, key string, arg any, original map[string]any, depth int) (any, error) {
	switch key {
	case FormulaLiteral:
		return core.CloneValue(arg), nil

	case FormulaVar:
		path, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects a path string", core.ErrInvalidInput, FormulaVar)
		}
		return r.lookup(path), nil

	case FormulaFirstNotEmpty:
		items, ok := arg.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects a list", core.ErrInvalidInput, FormulaFirstNotEmpty)
		}
		for _, item := range items {
			resolved, err := r.resolve(ctx, item, depth+1)
			if err != nil {
				return nil, err
			}
			if !isEmpty(resolved) {
				return resolved, nil
			}
		}
		return nil, nil

	case FormulaConcat:
		items, ok := arg.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects a list", core.ErrInvalidInput, FormulaConcat)
		}
		resolved := make([]any, 0, len(items))
		for _, item := range items {
			v, err := r.resolve(ctx, item, depth+1)
			if err != nil {
				return nil, err
			}
			resolved = append(resolved, v)
		}
		return concat(resolved), nil

	case FormulaDataSchemaRef:
		return r.dataSchemaRef(ctx, arg, original, depth)

	default:
		return core.CloneValue(map[string]any(original)), nil
	}
}

// lookup evaluates a JSONPath against the variables; paths that match
// nothing resolve to nil.
func (r *resolver) lookup(path string) any {
	if !strings.HasPrefix(path, "$") {
		path = "$." + path
	}
	if r.vars == nil {
		return nil
	}
	v, err := jsonpath.Get(path, r.vars)
	if err != nil {
		return nil
	}
	return core.CloneValue(v)
}

func (r *resolver) dataSchemaRef(ctx context.Context, arg any, original map[string]any, depth int) (any, error) {
	var ref map[string]any
	switch v := arg.(type) {
	case map[string]any:
		ref = v
	case core.DataSchema:
		ref = v
	default:
		return nil, fmt.Errorf("%w: %s expects an object", core.ErrInvalidInput, FormulaDataSchemaRef)
	}
	refType, _ := ref["type"].(string)
	if refType != DataSchemaRefCollection || r.getCollection == nil {
		return core.CloneValue(map[string]any(original)), nil
	}
	key, _ := ref["key"].(string)
	if key == "" {
		return nil, fmt.Errorf("%w: %s without a collection key", core.ErrInvalidInput, FormulaDataSchemaRef)
	}

	params, err := r.resolve(ctx, ref["parameters"], depth+1)
	if err != nil {
		return nil, err
	}
	spec, err := r.getCollection(ctx, key, params)
	if err != nil {
		return nil, fmt.Errorf("failed to load data collection %q: %w", key, err)
	}
	if spec == nil || spec.FieldsSchema == nil {
		return nil, nil
	}
	return r.resolve(ctx, map[string]any(spec.FieldsSchema), depth+1)
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// concat joins lists into one list when every non-nil part is a list, and
// otherwise joins the parts as text.
func concat(parts []any) any {
	allLists := true
	for _, p := range parts {
		if p == nil {
			continue
		}
		if _, ok := p.([]any); !ok {
			allLists = false
			break
		}
	}
	if allLists {
		out := []any{}
		for _, p := range parts {
			if l, ok := p.([]any); ok {
				out = append(out, l...)
			}
		}
		return out
	}

	var b strings.Builder
	for _, p := range parts {
		switch t := p.(type) {
		case nil:
		case string:
			b.WriteString(t)
		default:
			data, err := json.Marshal(t)
			if err == nil {
				b.Write(data)
			}
		}
	}
	return b.String()
}

// plain converts v into the generic form produced by encoding/json so path
// lookups see only maps, slices and scalars.
func plain(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
