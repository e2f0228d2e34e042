package core

import "fmt"

// Method is a data collection operation a saved action can perform.
type Method string

const (
	MethodList     Method = "list"
	MethodCreate   Method = "create"
	MethodUpdate   Method = "update"
	MethodDelete   Method = "delete"
	MethodSearch   Method = "search"
	MethodFindByID Method = "find-by-id"
)

var methodOrder = map[Method]int{
	MethodList:     0,
	MethodCreate:   1,
	MethodUpdate:   2,
	MethodDelete:   3,
	MethodSearch:   4,
	MethodFindByID: 5,
}

// Methods returns every known method in display order.
func Methods() []Method {
	return []Method{MethodList, MethodCreate, MethodUpdate, MethodDelete, MethodSearch, MethodFindByID}
}

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	m := Method(s)
	if _, ok := methodOrder[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
	return m, nil
}

// String returns the method name
func (m Method) String() string {
	return string(m)
}

// IsValid reports whether the method is in the method table
func (m Method) IsValid() bool {
	_, ok := methodOrder[m]
	return ok
}

// WritesFields reports whether the method's input embeds the collection's fields schema.
func (m Method) WritesFields() bool {
	return m == MethodCreate || m == MethodUpdate
}

func stringProp() map[string]any {
	return map[string]any{"type": "string"}
}

func objectSchema(props map[string]any) DataSchema {
	return DataSchema{"type": "object", "properties": props}
}

// baseInputSchema returns the static input schema of a method.
func baseInputSchema(m Method) DataSchema {
	switch m {
	case MethodList:
		return objectSchema(map[string]any{"cursor": stringProp()})
	case MethodCreate, MethodUpdate:
		return objectSchema(map[string]any{"fields": map[string]any{}})
	case MethodDelete, MethodFindByID:
		return objectSchema(map[string]any{"id": stringProp()})
	case MethodSearch:
		return objectSchema(map[string]any{"query": stringProp(), "cursor": stringProp()})
	}
	return nil
}

// MethodInputSchema returns the input schema for a method. Create and update
// take the collection's fields schema under "fields"; the other methods ignore
// fieldsSchema.
func MethodInputSchema(m Method, fieldsSchema DataSchema) (DataSchema, error) {
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
	}
	schema := baseInputSchema(m)
	if m.WritesFields() {
		props := schema["properties"].(map[string]any)
		if fieldsSchema != nil {
			props["fields"] = map[string]any(fieldsSchema.Clone())
		} else {
			delete(props, "fields")
		}
	}
	return schema, nil
}

// MethodDescriptor describes a method for clients.
type MethodDescriptor struct {
	Method      Method     `json:"method"`
	InputSchema DataSchema `json:"inputSchema" swaggertype:"object"`
}

// MethodTable returns the static input schema of every method.
func MethodTable() []MethodDescriptor {
	table := make([]MethodDescriptor, 0, len(methodOrder))
	for _, m := range Methods() {
		table = append(table, MethodDescriptor{Method: m, InputSchema: baseInputSchema(m)})
	}
	return table
}
