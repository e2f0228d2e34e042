package api

import (
	"net/http"
	"testing"

	"conduit/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleWorkflow() *core.Workflow {
	return &core.Workflow{
		ID:      "665f1c2e9b1e8a3d4c2b1a01",
		Name:    "Sync leads",
		Version: 2,
		Nodes: []core.WorkflowNode{
			{ID: "t1", Name: "New lead", Type: core.NodeTypeTrigger, ConnectionID: "c1", FlowKey: "lead-created"},
			{ID: "n1", Name: "Create contact", Type: core.NodeTypeAction, ConnectionID: "c2", ActionKey: "create-contact"},
		},
	}
}

func TestCreateWorkflow(t *testing.T) {
	a, deps := setupTestAPI(t, nil)
	deps.workflows.On("Create", mock.Anything, "Sync leads").Return(sampleWorkflow(), nil)

	rr := doRequest(t, a, http.MethodPost, "/api/workflows", WorkflowNameRequest{Name: "Sync leads"})

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"id":"665f1c2e9b1e8a3d4c2b1a01"}`, rr.Body.String())
}

func TestCreateWorkflowRejectsBlankName(t *testing.T) {
	a, deps := setupTestAPI(t, nil)
	deps.workflows.On("Create", mock.Anything, "").Return(nil, &core.ValidationError{
		Fields: []core.FieldError{{Field: "name", Message: "is required"}},
	})

	rr := doRequest(t, a, http.MethodPost, "/api/workflows", WorkflowNameRequest{})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetWorkflows(t *testing.T) {
	a, deps := setupTestAPI(t, nil)
	deps.workflows.On("List", mock.Anything, 0, 5).Return([]core.Workflow{*sampleWorkflow()}, int64(1), nil)

	rr := doRequest(t, a, http.MethodGet, "/api/workflows?limit=5&page=abc", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Items []core.Workflow `json:"items"`
		Total int64          `json:"total"`
		Page  int            `json:"page"`
	}
	require.NoError(t, jsonUnmarshal(rr, &body))
	assert.Len(t, body.Items, 1)
	assert.Equal(t, 1, body.Page)
}

func TestGetWorkflowNotFound(t *testing.T) {
	a, deps := setupTestAPI(t, nil)
	deps.workflows.On("Get", mock.Anything, "665f1c2e9b1e8a3d4c2b1a09").Return(nil, core.ErrWorkflowNotFound)

	rr := doRequest(t, a, http.MethodGet, "/api/workflows/665f1c2e9b1e8a3d4c2b1a09", nil)

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Workflow not found", decodeBody[ErrorResponse](t, rr).Error)
}

func TestRenameWorkflow(t *testing.T) {
	a, deps := setupTestAPI(t, nil)
	wf := sampleWorkflow()
	wf.Name = "Renamed"
	deps.workflows.On("Rename", mock.Anything, wf.ID, "Renamed").Return(wf, nil)

	rr := doRequest(t, a, http.MethodPatch, "/api/workflows/"+wf.ID, WorkflowNameRequest{Name: "Renamed"})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Renamed", decodeBody[core.Workflow](t, rr).Name)
}

func TestDeleteWorkflow(t *testing.T) {
	a, deps := setupTestAPI(t, nil)
	deps.workflows.On("Delete", mock.Anything, "w1").Return(nil)

	rr := doRequest(t, a, http.MethodDelete, "/api/workflows/w1", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true}`, rr.Body.String())
}

func TestReplaceNodes(t *testing.T) {
	t.Run("version conflict", func(t *testing.T) {
		a, deps := setupTestAPI(t, nil)
		deps.workflows.On("ReplaceNodes", mock.Anything, "w1", mock.Anything,
			mock.MatchedBy(func(v *int64) bool { return v != nil && *v == 3 })).
			Return(nil, core.ErrVersionConflict)

		rr := doRequest(t, a, http.MethodPut, "/api/workflows/w1/nodes", map[string]any{
			"nodes":   sampleWorkflow().Nodes,
			"version": 3,
		})

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("without version", func(t *testing.T) {
		a, deps := setupTestAPI(t, nil)
		deps.workflows.On("ReplaceNodes", mock.Anything, "w1",
			mock.MatchedBy(func(nodes []core.WorkflowNode) bool { return len(nodes) == 2 }),
			(*int64)(nil)).
			Return(sampleWorkflow(), nil)

		rr := doRequest(t, a, http.MethodPut, "/api/workflows/w1/nodes", map[string]any{"nodes": sampleWorkflow().Nodes})

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, int64(2), decodeBody[core.Workflow](t, rr).Version)
	})
}

func TestAddNode(t *testing.T) {
	a, deps := setupTestAPI(t, nil)
	node := core.WorkflowNode{Name: "Notify", Type: core.NodeTypeAction, ConnectionID: "c3", ActionKey: "send-message"}
	inserted := node
	inserted.ID = "n2"
	deps.workflows.On("AddNode", mock.Anything, "w1", "n1", node).Return(sampleWorkflow(), &inserted, nil)

	rr := doRequest(t, a, http.MethodPost, "/api/workflows/w1/nodes", AddNodeRequest{AfterID: "n1", Node: node})

	require.Equal(t, http.StatusCreated, rr.Code)
	body := decodeBody[AddNodeResponse](t, rr)
	require.NotNil(t, body.Node)
	assert.Equal(t, "n2", body.Node.ID)
	assert.NotNil(t, body.Workflow)
}

func TestAddNodeAfterMissingNode(t *testing.T) {
	a, deps := setupTestAPI(t, nil)
	deps.workflows.On("AddNode", mock.Anything, "w1", "ghost", mock.Anything).Return(nil, nil, core.ErrNodeNotFound)

	rr := doRequest(t, a, http.MethodPost, "/api/workflows/w1/nodes", AddNodeRequest{AfterID: "ghost"})

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateAndRemoveNode(t *testing.T) {
	a, deps := setupTestAPI(t, nil)
	node := sampleWorkflow().Nodes[1]
	deps.workflows.On("UpdateNode", mock.Anything, "w1", "n1", node).Return(sampleWorkflow(), nil)
	deps.workflows.On("RemoveNode", mock.Anything, "w1", "n1").Return(sampleWorkflow(), nil)

	rr := doRequest(t, a, http.MethodPut, "/api/workflows/w1/nodes/n1", node)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, a, http.MethodDelete, "/api/workflows/w1/nodes/n1", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSetTrigger(t *testing.T) {
	a, deps := setupTestAPI(t, nil)
	trigger := sampleWorkflow().Nodes[0]
	deps.workflows.On("SetTrigger", mock.Anything, "w1", trigger).Return(sampleWorkflow(), nil)

	rr := doRequest(t, a, http.MethodPut, "/api/workflows/w1/trigger", trigger)

	require.Equal(t, http.StatusOK, rr.Code)
}

func TestGetWorkflowGraph(t *testing.T) {
	a, deps := setupTestAPI(t, nil)
	graph := core.BuildGraph(sampleWorkflow())
	deps.workflows.On("Graph", mock.Anything, "w1").Return(&graph, nil)

	rr := doRequest(t, a, http.MethodGet, "/api/workflows/w1/graph", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody[core.Graph](t, rr)
	assert.Len(t, body.Nodes, len(graph.Nodes))
	assert.Len(t, body.Edges, len(graph.Edges))
}

func TestRunWorkflow(t *testing.T) {
	a, deps := setupTestAPI(t, nil)
	result := &core.RunResult{
		WorkflowID: "w1",
		Success:    true,
		Steps: []core.StepResult{
			{NodeID: "t1", Type: core.NodeTypeTrigger, Status: core.StepSkipped},
			{NodeID: "n1", Type: core.NodeTypeAction, Status: core.StepSucceeded, Output: map[string]any{"id": "42"}},
		},
	}
	deps.workflows.On("Run", mock.Anything, "w1", map[string]any{"email": "a@b.c"}).Return(result, nil)

	rr := doRequest(t, a, http.MethodPost, "/api/workflows/w1/run", RunWorkflowRequest{Input: map[string]any{"email": "a@b.c"}})

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody[core.RunResult](t, rr)
	assert.True(t, body.Success)
	require.Len(t, body.Steps, 2)
	assert.Equal(t, core.StepSkipped, body.Steps[0].Status)
}
