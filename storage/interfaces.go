package storage

import (
	"context"

	"conduit/core"
)

// ActionStorageInterface defines the interface for saved action storage
type ActionStorageInterface interface {
	CreateAction(ctx context.Context, action *core.Action) (string, error)
	ListActions(ctx context.Context, offset, limit int) ([]core.Action, error)
	CountActions(ctx context.Context) (int64, error)
	GetAction(ctx context.Context, id string) (*core.Action, error)
	DeleteAction(ctx context.Context, id string) error
	EnsureIndexes(ctx context.Context) error
}

// WorkflowStorageInterface defines the interface for workflow storage
type WorkflowStorageInterface interface {
	CreateWorkflow(ctx context.Context, name string) (*core.Workflow, error)
	ListWorkflows(ctx context.Context, offset, limit int) ([]core.Workflow, error)
	CountWorkflows(ctx context.Context) (int64, error)
	GetWorkflow(ctx context.Context, id string) (*core.Workflow, error)
	RenameWorkflow(ctx context.Context, id, name string) (*core.Workflow, error)
	// UpdateNodes replaces the node list. A negative expectedVersion skips the
	// version check; otherwise core.ErrVersionConflict is returned when the
	// stored version differs.
	UpdateNodes(ctx context.Context, id string, nodes []core.WorkflowNode, expectedVersion int64) (*core.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
	EnsureIndexes(ctx context.Context) error
}

var (
	_ ActionStorageInterface   = (*ActionStorage)(nil)
	_ WorkflowStorageInterface = (*WorkflowStorage)(nil)
)
