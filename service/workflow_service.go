package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"conduit/core"
	"conduit/metrics"
	"conduit/schema"

	"go.uber.org/zap"
)

// maxNodeWriteAttempts bounds the load-modify-save loop of node edits
const maxNodeWriteAttempts = 3

// WorkflowStorage defines workflow storage operations needed by the service.
type WorkflowStorage interface {
	CreateWorkflow(ctx context.Context, name string) (*core.Workflow, error)
	ListWorkflows(ctx context.Context, offset, limit int) ([]core.Workflow, error)
	CountWorkflows(ctx context.Context) (int64, error)
	GetWorkflow(ctx context.Context, id string) (*core.Workflow, error)
	RenameWorkflow(ctx context.Context, id, name string) (*core.Workflow, error)
	UpdateNodes(ctx context.Context, id string, nodes []core.WorkflowNode, expectedVersion int64) (*core.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
}

// PlatformActionRunner runs platform actions for workflow nodes.
type PlatformActionRunner interface {
	RunAction(ctx context.Context, connectionID, actionKey string, input any) (any, error)
}

// WorkflowServiceImpl manages workflows and their node lists.
//
// Node edits load the workflow, apply a pure node-list operation from core,
// validate the result and save it with the loaded version. A concurrent
// write makes the save fail with core.ErrVersionConflict and the edit is
// retried on fresh data.
type WorkflowServiceImpl struct {
	storage     WorkflowStorage
	runner      PlatformActionRunner
	nodeTimeout time.Duration
	logger      *zap.SugaredLogger
}

// NewWorkflowService creates a workflow service. nodeTimeout bounds each
// node of a test run; zero means no per-node limit.
func NewWorkflowService(storage WorkflowStorage, runner PlatformActionRunner, nodeTimeout time.Duration, logger *zap.SugaredLogger) *WorkflowServiceImpl {
	if storage == nil {
		panic("storage is required")
	}
	if runner == nil {
		panic("runner is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &WorkflowServiceImpl{storage: storage, runner: runner, nodeTimeout: nodeTimeout, logger: logger}
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", &core.ValidationError{Fields: []core.FieldError{{Field: "name", Message: "is required"}}}
	case len(name) > core.MaxWorkflowNameLength:
		return "", &core.ValidationError{Fields: []core.FieldError{{
			Field:   "name",
			Message: fmt.Sprintf("must be at most %d characters", core.MaxWorkflowNameLength),
		}}}
	}
	return name, nil
}

// Create stores an empty workflow.
func (s *WorkflowServiceImpl) Create(ctx context.Context, name string) (*core.Workflow, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	wf, err := s.storage.CreateWorkflow(ctx, name)
	if err != nil {
		return nil, err
	}
	s.logger.Infow("Workflow created", "id", wf.ID, "name", name)
	return wf, nil
}

// List returns a page of workflows, newest first, and the total count.
func (s *WorkflowServiceImpl) List(ctx context.Context, offset, limit int) ([]core.Workflow, int64, error) {
	workflows, err := s.storage.ListWorkflows(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.storage.CountWorkflows(ctx)
	if err != nil {
		return nil, 0, err
	}
	return workflows, total, nil
}

// Get returns a workflow.
func (s *WorkflowServiceImpl) Get(ctx context.Context, id string) (*core.Workflow, error) {
	return s.storage.GetWorkflow(ctx, id)
}

// Rename changes a workflow's name.
func (s *WorkflowServiceImpl) Rename(ctx context.Context, id, name string) (*core.Workflow, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	return s.storage.RenameWorkflow(ctx, id, name)
}

// Delete removes a workflow.
func (s *WorkflowServiceImpl) Delete(ctx context.Context, id string) error {
	if err := s.storage.DeleteWorkflow(ctx, id); err != nil {
		return err
	}
	s.logger.Infow("Workflow deleted", "id", id)
	return nil
}

// ReplaceNodes swaps the whole node list. Nodes without an id get one.
// A nil expectedVersion saves unconditionally.
func (s *WorkflowServiceImpl) ReplaceNodes(ctx context.Context, id string, nodes []core.WorkflowNode, expectedVersion *int64) (*core.Workflow, error) {
	out := make([]core.WorkflowNode, len(nodes))
	copy(out, nodes)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = core.NewNodeID()
		}
	}
	if err := core.ValidateNodes(out); err != nil {
		return nil, err
	}

	version := int64(-1)
	if expectedVersion != nil {
		version = *expectedVersion
	}
	return s.storage.UpdateNodes(ctx, id, out, version)
}

// AddNode inserts an action node after afterID, or at the end when afterID is empty.
func (s *WorkflowServiceImpl) AddNode(ctx context.Context, id, afterID string, node core.WorkflowNode) (*core.Workflow, *core.WorkflowNode, error) {
	var added core.WorkflowNode
	wf, err := s.mutate(ctx, id, func(nodes []core.WorkflowNode) ([]core.WorkflowNode, error) {
		out, n, err := core.InsertNodeAfter(nodes, afterID, node)
		added = n
		return out, err
	})
	if err != nil {
		return nil, nil, err
	}
	return wf, &added, nil
}

// UpdateNode replaces the configuration of a node.
func (s *WorkflowServiceImpl) UpdateNode(ctx context.Context, id, nodeID string, node core.WorkflowNode) (*core.Workflow, error) {
	return s.mutate(ctx, id, func(nodes []core.WorkflowNode) ([]core.WorkflowNode, error) {
		return core.ReplaceNode(nodes, nodeID, node)
	})
}

// RemoveNode deletes a node.
func (s *WorkflowServiceImpl) RemoveNode(ctx context.Context, id, nodeID string) (*core.Workflow, error) {
	return s.mutate(ctx, id, func(nodes []core.WorkflowNode) ([]core.WorkflowNode, error) {
		return core.RemoveNode(nodes, nodeID)
	})
}

// SetTrigger sets or replaces the workflow's trigger.
func (s *WorkflowServiceImpl) SetTrigger(ctx context.Context, id string, trigger core.WorkflowNode) (*core.Workflow, error) {
	return s.mutate(ctx, id, func(nodes []core.WorkflowNode) ([]core.WorkflowNode, error) {
		out, _ := core.SetTrigger(nodes, trigger)
		return out, nil
	})
}

// mutate applies edit to the current node list and saves it, retrying on
// version conflicts.
func (s *WorkflowServiceImpl) mutate(ctx context.Context, id string, edit func([]core.WorkflowNode) ([]core.WorkflowNode, error)) (*core.Workflow, error) {
	var lastErr error
	for attempt := 1; attempt <= maxNodeWriteAttempts; attempt++ {
		wf, err := s.storage.GetWorkflow(ctx, id)
		if err != nil {
			return nil, err
		}

		nodes, err := edit(wf.Nodes)
		if err != nil {
			return nil, err
		}
		if err := core.ValidateNodes(nodes); err != nil {
			return nil, err
		}

		updated, err := s.storage.UpdateNodes(ctx, id, nodes, wf.Version)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, core.ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
		s.logger.Debugw("Retrying node edit after version conflict", "id", id, "attempt", attempt)
	}
	return nil, lastErr
}

// Graph returns the positioned editor view of a workflow.
func (s *WorkflowServiceImpl) Graph(ctx context.Context, id string) (*core.Graph, error) {
	wf, err := s.storage.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	g := core.BuildGraph(wf)
	return &g, nil
}

// Run test-runs a workflow.
//
// BUSINESS LOGIC:
//  1. The trigger node is reported as skipped; triggers fire from platform events
//  2. Action nodes run in order; each node's inputMapping is resolved against
//     {trigger: triggerInput, nodes: {<id>: {output}}}
//  3. The first failing node stops the run; later nodes are reported as not run
//
// observer, when set, receives every step as soon as it is known.
func (s *WorkflowServiceImpl) Run(ctx context.Context, id string, triggerInput any, observer func(core.StepResult)) (*core.RunResult, error) {
	wf, err := s.storage.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &core.RunResult{WorkflowID: wf.ID, Success: true, Steps: make([]core.StepResult, 0, len(wf.Nodes))}
	emit := func(step core.StepResult) {
		result.Steps = append(result.Steps, step)
		if observer != nil {
			observer(step)
		}
	}

	outputs := make(map[string]any, len(wf.Nodes))
	variables := map[string]any{"trigger": triggerInput, "nodes": outputs}

	for _, node := range wf.Nodes {
		step := core.StepResult{NodeID: node.ID, Name: node.Name, Type: node.Type}

		switch {
		case node.Type == core.NodeTypeTrigger:
			step.Status = core.StepSkipped
		case !result.Success:
			step.Status = core.StepNotRun
		default:
			step = s.runNode(ctx, node, variables)
			if step.Status == core.StepSucceeded {
				outputs[node.ID] = map[string]any{"output": step.Output}
			} else {
				result.Success = false
			}
		}
		emit(step)
	}

	result.DurationMS = time.Since(start).Milliseconds()
	metrics.RecordWorkflowRun(result.Success)
	s.logger.Infow("Workflow test run finished", "id", wf.ID, "success", result.Success, "steps", len(result.Steps), "duration_ms", result.DurationMS)
	return result, nil
}

func (s *WorkflowServiceImpl) runNode(ctx context.Context, node core.WorkflowNode, variables map[string]any) core.StepResult {
	step := core.StepResult{NodeID: node.ID, Name: node.Name, Type: node.Type}
	start := time.Now()

	var input any = map[string]any{}
	if len(node.InputMapping) > 0 {
		resolved, err := schema.ResolveFormulas(ctx, map[string]any(node.InputMapping), schema.Options{Variables: variables})
		if err != nil {
			step.Status = core.StepFailed
			step.Error = &core.PlatformError{Message: "resolve input mapping: " + err.Error()}
			step.DurationMS = time.Since(start).Milliseconds()
			return step
		}
		input = resolved
	}
	step.Input = input

	if s.nodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.nodeTimeout)
		defer cancel()
	}

	output, err := s.runner.RunAction(ctx, node.ConnectionID, node.ActionKey, input)
	step.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		step.Status = core.StepFailed
		step.Error = asPlatformError(err)
		return step
	}
	step.Status = core.StepSucceeded
	step.Output = output
	return step
}
