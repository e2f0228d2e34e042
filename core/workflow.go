package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// NodeType distinguishes the trigger of a workflow from its action steps.
type NodeType string

const (
	NodeTypeTrigger NodeType = "trigger"
	NodeTypeAction  NodeType = "action"
)

// Workflow is an ordered list of nodes: an optional trigger first, then actions.
type Workflow struct {
	ID        string         `json:"_id" bson:"_id,omitempty" example:"665f1c2e9b1e8a3d4c2b1a01"`
	Name      string         `json:"name" bson:"name"`
	Nodes     []WorkflowNode `json:"nodes" bson:"nodes"`
	Version   int64          `json:"version" bson:"version"`
	CreatedAt time.Time      `json:"createdAt" bson:"createdAt" swaggertype:"string"`
	UpdatedAt *time.Time     `json:"updatedAt,omitempty" bson:"updatedAt,omitempty" swaggertype:"string"`
}

// WorkflowNode is one step of a workflow.
type WorkflowNode struct {
	ID               string         `json:"id" bson:"id" validate:"required,max=64"`
	Name             string         `json:"name" bson:"name" validate:"required,max=200"`
	Type             NodeType       `json:"type" bson:"type" validate:"required,oneof=trigger action"`
	IntegrationKey   string         `json:"integrationKey" bson:"integrationKey" validate:"max=200"`
	ConnectionID     string         `json:"connectionId" bson:"connectionId" validate:"required,max=200"`
	FlowKey          string         `json:"flowKey,omitempty" bson:"flowKey,omitempty" validate:"required_if=Type trigger,max=200"`
	ActionKey        string         `json:"actionKey,omitempty" bson:"actionKey,omitempty" validate:"required_if=Type action,max=200"`
	InstanceKey      string         `json:"instanceKey,omitempty" bson:"instanceKey,omitempty" validate:"max=200"`
	ParametersSchema DataSchema     `json:"parametersSchema,omitempty" bson:"parametersSchema,omitempty" swaggertype:"object"`
	InputMapping     map[string]any `json:"inputMapping" bson:"inputMapping" swaggertype:"object"`
}

// Trigger returns the workflow's trigger node, or nil.
func (w *Workflow) Trigger() *WorkflowNode {
	if len(w.Nodes) > 0 && w.Nodes[0].Type == NodeTypeTrigger {
		return &w.Nodes[0]
	}
	return nil
}

// ActionNodes returns the action steps in execution order.
func (w *Workflow) ActionNodes() []WorkflowNode {
	out := make([]WorkflowNode, 0, len(w.Nodes))
	for _, n := range w.Nodes {
		if n.Type == NodeTypeAction {
			out = append(out, n)
		}
	}
	return out
}

var nodeValidator = newValidator()

// newValidator reports field names by their JSON tag.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// NewNodeID returns a fresh node identifier.
func NewNodeID() string {
	return uuid.New().String()
}

// ValidateNodes checks the node list invariants: unique ids, at most one
// trigger placed first, and per-type required fields.
func ValidateNodes(nodes []WorkflowNode) error {
	if len(nodes) > MaxWorkflowNodes {
		return &ValidationError{Fields: []FieldError{{
			Field:   "nodes",
			Message: fmt.Sprintf("must contain at most %d nodes", MaxWorkflowNodes),
		}}}
	}

	var fieldErrs []FieldError
	seen := make(map[string]int, len(nodes))
	for i, n := range nodes {
		prefix := fmt.Sprintf("nodes[%d]", i)
		if err := nodeValidator.Struct(n); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				for _, fe := range verrs {
					fieldErrs = append(fieldErrs, FieldError{
						Field:   prefix + "." + fe.Field(),
						Message: describeTag(fe),
					})
				}
			} else {
				return fmt.Errorf("validate node %d: %w", i, err)
			}
		}
		if n.ID != "" {
			if first, dup := seen[n.ID]; dup {
				fieldErrs = append(fieldErrs, FieldError{
					Field:   prefix + ".id",
					Message: fmt.Sprintf("duplicates nodes[%d].id", first),
				})
			} else {
				seen[n.ID] = i
			}
		}
		if n.Type == NodeTypeTrigger && i != 0 {
			fieldErrs = append(fieldErrs, FieldError{
				Field:   prefix + ".type",
				Message: "trigger must be the first node",
			})
		}
	}

	if len(fieldErrs) > 0 {
		return &ValidationError{Fields: fieldErrs}
	}
	return nil
}

// ValidateStruct checks v against its validate tags and reports failures as
// a *ValidationError keyed by JSON field names.
func ValidateStruct(v any) error {
	err := nodeValidator.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	fieldErrs := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fieldErrs = append(fieldErrs, FieldError{Field: fe.Field(), Message: describeTag(fe)})
	}
	return &ValidationError{Fields: fieldErrs}
}

// InsertNodeAfter inserts an action node after the node with id afterID, or
// appends it when afterID is empty. The node gets a fresh id.
func InsertNodeAfter(nodes []WorkflowNode, afterID string, node WorkflowNode) ([]WorkflowNode, WorkflowNode, error) {
	if node.Type == NodeTypeTrigger {
		return nil, WorkflowNode{}, fmt.Errorf("%w: use the trigger endpoint to set a trigger", ErrInvalidInput)
	}
	node.Type = NodeTypeAction
	node.ID = NewNodeID()

	pos := len(nodes)
	if afterID != "" {
		idx := indexOfNode(nodes, afterID)
		if idx < 0 {
			return nil, WorkflowNode{}, fmt.Errorf("%w: %s", ErrNodeNotFound, afterID)
		}
		pos = idx + 1
	}

	out := make([]WorkflowNode, 0, len(nodes)+1)
	out = append(out, nodes[:pos]...)
	out = append(out, node)
	out = append(out, nodes[pos:]...)
	return out, node, nil
}

// ReplaceNode swaps the configuration of node id, keeping its id and type.
func ReplaceNode(nodes []WorkflowNode, id string, node WorkflowNode) ([]WorkflowNode, error) {
	idx := indexOfNode(nodes, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	node.ID = id
	node.Type = nodes[idx].Type

	out := make([]WorkflowNode, len(nodes))
	copy(out, nodes)
	out[idx] = node
	return out, nil
}

// RemoveNode deletes node id from the list.
func RemoveNode(nodes []WorkflowNode, id string) ([]WorkflowNode, error) {
	idx := indexOfNode(nodes, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	out := make([]WorkflowNode, 0, len(nodes)-1)
	out = append(out, nodes[:idx]...)
	out = append(out, nodes[idx+1:]...)
	return out, nil
}

// SetTrigger replaces the existing trigger in place, or puts a new one first.
func SetTrigger(nodes []WorkflowNode, trigger WorkflowNode) ([]WorkflowNode, WorkflowNode) {
	trigger.Type = NodeTypeTrigger
	if len(nodes) > 0 && nodes[0].Type == NodeTypeTrigger {
		trigger.ID = nodes[0].ID
		out := make([]WorkflowNode, len(nodes))
		copy(out, nodes)
		out[0] = trigger
		return out, trigger
	}

	trigger.ID = NewNodeID()
	out := make([]WorkflowNode, 0, len(nodes)+1)
	out = append(out, trigger)
	for _, n := range nodes {
		if n.Type != NodeTypeTrigger {
			out = append(out, n)
		}
	}
	return out, trigger
}

func indexOfNode(nodes []WorkflowNode, id string) int {
	for i := range nodes {
		if nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
