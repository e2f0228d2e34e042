package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"conduit/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const wfID = "665f1c2e9b1e8a3d4c2b1a01"

func trigger(id string) core.WorkflowNode {
	return core.WorkflowNode{ID: id, Name: "Contact created", Type: core.NodeTypeTrigger, ConnectionID: "conn-1", FlowKey: "contact-created"}
}

func action(id, key string, mapping map[string]any) core.WorkflowNode {
	return core.WorkflowNode{ID: id, Name: key, Type: core.NodeTypeAction, ConnectionID: "conn-1", ActionKey: key, InputMapping: mapping}
}

func newWorkflowFixture(timeout time.Duration) (*MockWorkflowStorage, *MockRunner, *WorkflowServiceImpl) {
	st := &MockWorkflowStorage{}
	runner := &MockRunner{}
	return st, runner, NewWorkflowService(st, runner, timeout, zap.NewNop().Sugar())
}

func TestWorkflowService_Create(t *testing.T) {
	st, _, svc := newWorkflowFixture(0)
	st.On("CreateWorkflow", mock.Anything, "Sync").Return(&core.Workflow{ID: wfID, Name: "Sync", Nodes: []core.WorkflowNode{}}, nil)

	wf, err := svc.Create(context.Background(), "  Sync ")
	require.NoError(t, err)
	assert.Equal(t, wfID, wf.ID)

	_, err = svc.Create(context.Background(), "   ")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = svc.Rename(context.Background(), wfID, strings.Repeat("n", core.MaxWorkflowNameLength+1))
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestWorkflowService_AddNode(t *testing.T) {
	st, _, svc := newWorkflowFixture(0)
	current := &core.Workflow{ID: wfID, Version: 2, Nodes: []core.WorkflowNode{trigger("t"), action("a", "first", nil)}}
	st.On("GetWorkflow", mock.Anything, wfID).Return(current, nil)
	st.On("UpdateNodes", mock.Anything, wfID, mock.MatchedBy(func(nodes []core.WorkflowNode) bool {
		return len(nodes) == 3 && nodes[0].ID == "t" && nodes[1].ActionKey == "second" && nodes[2].ID == "a"
	}), int64(2)).Return(&core.Workflow{ID: wfID, Version: 3}, nil)

	wf, added, err := svc.AddNode(context.Background(), wfID, "t", action("", "second", nil))

	require.NoError(t, err)
	assert.Equal(t, int64(3), wf.Version)
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, core.NodeTypeAction, added.Type)
}

func TestWorkflowService_AddNode_UnknownAfter(t *testing.T) {
	st, _, svc := newWorkflowFixture(0)
	st.On("GetWorkflow", mock.Anything, wfID).Return(&core.Workflow{ID: wfID}, nil)

	_, _, err := svc.AddNode(context.Background(), wfID, "nope", action("", "x", nil))

	assert.ErrorIs(t, err, core.ErrNodeNotFound)
	st.AssertNotCalled(t, "UpdateNodes", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWorkflowService_RetriesOnVersionConflict(t *testing.T) {
	st, _, svc := newWorkflowFixture(0)
	st.On("GetWorkflow", mock.Anything, wfID).Return(&core.Workflow{ID: wfID, Version: 1, Nodes: []core.WorkflowNode{action("a", "x", nil)}}, nil).Once()
	st.On("GetWorkflow", mock.Anything, wfID).Return(&core.Workflow{ID: wfID, Version: 2, Nodes: []core.WorkflowNode{action("a", "x", nil)}}, nil).Once()
	st.On("UpdateNodes", mock.Anything, wfID, mock.Anything, int64(1)).Return(nil, core.ErrVersionConflict).Once()
	st.On("UpdateNodes", mock.Anything, wfID, mock.Anything, int64(2)).Return(&core.Workflow{ID: wfID, Version: 3}, nil).Once()

	wf, err := svc.RemoveNode(context.Background(), wfID, "a")

	require.NoError(t, err)
	assert.Equal(t, int64(3), wf.Version)
	st.AssertExpectations(t)
}

func TestWorkflowService_GivesUpAfterRepeatedConflicts(t *testing.T) {
	st, _, svc := newWorkflowFixture(0)
	st.On("GetWorkflow", mock.Anything, wfID).Return(&core.Workflow{ID: wfID, Nodes: []core.WorkflowNode{}}, nil)
	st.On("UpdateNodes", mock.Anything, wfID, mock.Anything, mock.Anything).Return(nil, core.ErrVersionConflict)

	_, err := svc.SetTrigger(context.Background(), wfID, trigger(""))

	assert.ErrorIs(t, err, core.ErrVersionConflict)
	st.AssertNumberOfCalls(t, "UpdateNodes", maxNodeWriteAttempts)
}

func TestWorkflowService_SetTrigger(t *testing.T) {
	st, _, svc := newWorkflowFixture(0)
	st.On("GetWorkflow", mock.Anything, wfID).Return(&core.Workflow{ID: wfID, Nodes: []core.WorkflowNode{action("a", "x", nil)}}, nil)
	st.On("UpdateNodes", mock.Anything, wfID, mock.MatchedBy(func(nodes []core.WorkflowNode) bool {
		return len(nodes) == 2 && nodes[0].Type == core.NodeTypeTrigger && nodes[0].ID != ""
	}), int64(0)).Return(&core.Workflow{ID: wfID, Version: 1}, nil)

	_, err := svc.SetTrigger(context.Background(), wfID, trigger(""))
	require.NoError(t, err)
}

func TestWorkflowService_ReplaceNodes(t *testing.T) {
	st, _, svc := newWorkflowFixture(0)
	st.On("UpdateNodes", mock.Anything, wfID, mock.MatchedBy(func(nodes []core.WorkflowNode) bool {
		return len(nodes) == 2 && nodes[1].ID != ""
	}), int64(-1)).Return(&core.Workflow{ID: wfID}, nil)

	_, err := svc.ReplaceNodes(context.Background(), wfID, []core.WorkflowNode{trigger("t"), action("", "x", nil)}, nil)
	require.NoError(t, err)

	_, err = svc.ReplaceNodes(context.Background(), wfID, []core.WorkflowNode{action("a", "x", nil), trigger("t")}, nil)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	version := int64(4)
	st.On("UpdateNodes", mock.Anything, wfID, mock.Anything, int64(4)).Return(nil, core.ErrVersionConflict)
	_, err = svc.ReplaceNodes(context.Background(), wfID, []core.WorkflowNode{action("a", "x", nil)}, &version)
	assert.ErrorIs(t, err, core.ErrVersionConflict)
}

func TestWorkflowService_Graph(t *testing.T) {
	st, _, svc := newWorkflowFixture(0)
	st.On("GetWorkflow", mock.Anything, wfID).Return(&core.Workflow{ID: wfID, Nodes: []core.WorkflowNode{trigger("t"), action("a", "x", nil)}}, nil)

	g, err := svc.Graph(context.Background(), wfID)

	require.NoError(t, err)
	assert.NotEmpty(t, g.Nodes)
	assert.NotEmpty(t, g.Edges)
}

func TestWorkflowService_Run(t *testing.T) {
	st, runner, svc := newWorkflowFixture(time.Second)
	nodes := []core.WorkflowNode{
		trigger("t"),
		action("a1", "find-contact", map[string]any{"id": map[string]any{"$var": "$.trigger.contactId"}}),
		action("a2", "notify", map[string]any{
			"email": map[string]any{"$var": `$.nodes["a1"].output.email`},
			"note":  map[string]any{"$literal": "hello"},
		}),
	}
	st.On("GetWorkflow", mock.Anything, wfID).Return(&core.Workflow{ID: wfID, Nodes: nodes}, nil)
	runner.On("RunAction", mock.Anything, "conn-1", "find-contact", map[string]any{"id": "c-9"}).
		Return(map[string]any{"email": "ada@example.com"}, nil)
	runner.On("RunAction", mock.Anything, "conn-1", "notify", map[string]any{"email": "ada@example.com", "note": "hello"}).
		Return(map[string]any{"ok": true}, nil)

	var observed []core.StepStatus
	res, err := svc.Run(context.Background(), wfID, map[string]any{"contactId": "c-9"}, func(step core.StepResult) {
		observed = append(observed, step.Status)
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, res.Steps, 3)
	assert.Equal(t, []core.StepStatus{core.StepSkipped, core.StepSucceeded, core.StepSucceeded}, observed)
	assert.Equal(t, map[string]any{"ok": true}, res.Steps[2].Output)
	runner.AssertExpectations(t)
}

func TestWorkflowService_Run_StopsAtFirstFailure(t *testing.T) {
	st, runner, svc := newWorkflowFixture(0)
	nodes := []core.WorkflowNode{action("a1", "first", nil), action("a2", "second", nil)}
	st.On("GetWorkflow", mock.Anything, wfID).Return(&core.Workflow{ID: wfID, Nodes: nodes}, nil)
	runner.On("RunAction", mock.Anything, "conn-1", "first", map[string]any{}).
		Return(nil, &core.PlatformError{Status: 400, Message: "bad"})

	res, err := svc.Run(context.Background(), wfID, nil, nil)

	require.NoError(t, err)
	assert.False(t, res.Success)
	require.Len(t, res.Steps, 2)
	assert.Equal(t, core.StepFailed, res.Steps[0].Status)
	assert.Equal(t, "bad", res.Steps[0].Error.Message)
	assert.Equal(t, core.StepNotRun, res.Steps[1].Status)
	runner.AssertNumberOfCalls(t, "RunAction", 1)
}

func TestWorkflowService_Run_NodeTimeout(t *testing.T) {
	st, runner, svc := newWorkflowFixture(20 * time.Millisecond)
	st.On("GetWorkflow", mock.Anything, wfID).Return(&core.Workflow{ID: wfID, Nodes: []core.WorkflowNode{action("a1", "slow", nil)}}, nil)
	runner.On("RunAction", mock.Anything, "conn-1", "slow", mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	res, err := svc.Run(context.Background(), wfID, nil, nil)

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 504, res.Steps[0].Error.Status)
}

func TestWorkflowService_Run_NotFound(t *testing.T) {
	st, _, svc := newWorkflowFixture(0)
	st.On("GetWorkflow", mock.Anything, wfID).Return(nil, core.ErrWorkflowNotFound)

	_, err := svc.Run(context.Background(), wfID, nil, nil)

	assert.ErrorIs(t, err, core.ErrWorkflowNotFound)
}
