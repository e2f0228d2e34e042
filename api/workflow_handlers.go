package api

import (
	"net/http"

	"conduit/core"
)

// WorkflowNameRequest is the body of workflow create and rename
type WorkflowNameRequest struct {
	Name string `json:"name" example:"Sync new leads"`
}

// ReplaceNodesRequest replaces a workflow's node list. Version, when set,
// must match the stored version.
type ReplaceNodesRequest struct {
	Nodes   []core.WorkflowNode `json:"nodes"`
	Version *int64              `json:"version,omitempty"`
}

// AddNodeRequest inserts a node after AfterID, or appends it when AfterID is empty
type AddNodeRequest struct {
	AfterID string            `json:"afterId,omitempty"`
	Node    core.WorkflowNode `json:"node"`
}

// AddNodeResponse returns the updated workflow and the inserted node
type AddNodeResponse struct {
	Workflow *core.Workflow     `json:"workflow"`
	Node     *core.WorkflowNode `json:"node"`
}

// RunWorkflowRequest is the body of a workflow test run
type RunWorkflowRequest struct {
	Input any `json:"input" swaggertype:"object"`
}

// createWorkflow godoc
//
//	@Summary	Create a workflow
//	@Tags		workflows
//	@Accept		json
//	@Produce	json
//	@Param		request	body		WorkflowNameRequest	true	"Workflow name"
//	@Success	201		{object}	IDResponse
//	@Failure	400		{object}	ErrorResponse
//	@Failure	500		{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/workflows [post]
func (a *API) createWorkflow(w http.ResponseWriter, r *http.Request) {
	var req WorkflowNameRequest
	if err := a.decodeJSONBody(w, r, &req, false); err != nil {
		return
	}
	wf, err := a.workflows.Create(r.Context(), req.Name)
	if err != nil {
		a.handleError(w, r, "create workflow", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, IDResponse{ID: wf.ID})
}

// getWorkflows godoc
//
//	@Summary	List workflows
//	@Tags		workflows
//	@Produce	json
//	@Param		page	query		int	false	"Page (1-based)"
//	@Param		limit	query		int	false	"Items per page"
//	@Success	200		{object}	PaginationResponse
//	@Failure	500		{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/workflows [get]
func (a *API) getWorkflows(w http.ResponseWriter, r *http.Request) {
	params := ParsePaginationParams(r, defaultPageLimit, maxPageLimit)
	items, total, err := a.workflows.List(r.Context(), params.CalculateOffset(), params.Limit)
	if err != nil {
		a.handleError(w, r, "list workflows", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, NewPaginationResponse(items, total, params.Page, params.Limit))
}

// getWorkflow godoc
//
//	@Summary	Get a workflow
//	@Tags		workflows
//	@Produce	json
//	@Param		id	path		string	true	"Workflow ID"
//	@Success	200	{object}	core.Workflow
//	@Failure	400	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/workflows/{id} [get]
func (a *API) getWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := a.workflows.Get(r.Context(), pathVar(r, "id"))
	if err != nil {
		a.handleError(w, r, "get workflow", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

// renameWorkflow godoc
//
//	@Summary	Rename a workflow
//	@Tags		workflows
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string				true	"Workflow ID"
//	@Param		request	body		WorkflowNameRequest	true	"New name"
//	@Success	200		{object}	core.Workflow
//	@Failure	400		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/workflows/{id} [patch]
func (a *API) renameWorkflow(w http.ResponseWriter, r *http.Request) {
	var req WorkflowNameRequest
	if err := a.decodeJSONBody(w, r, &req, false); err != nil {
		return
	}
	wf, err := a.workflows.Rename(r.Context(), pathVar(r, "id"), req.Name)
	if err != nil {
		a.handleError(w, r, "rename workflow", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

// deleteWorkflow godoc
//
//	@Summary	Delete a workflow
//	@Tags		workflows
//	@Produce	json
//	@Param		id	path		string	true	"Workflow ID"
//	@Success	200	{object}	SuccessResponse
//	@Failure	404	{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/workflows/{id} [delete]
func (a *API) deleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := a.workflows.Delete(r.Context(), pathVar(r, "id")); err != nil {
		a.handleError(w, r, "delete workflow", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// replaceNodes godoc
//
//	@Summary	Replace the node list of a workflow
//	@Tags		workflows
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string				true	"Workflow ID"
//	@Param		request	body		ReplaceNodesRequest	true	"Nodes"
//	@Success	200		{object}	core.Workflow
//	@Failure	400		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Failure	409		{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/workflows/{id}/nodes [put]
func (a *API) replaceNodes(w http.ResponseWriter, r *http.Request) {
	var req ReplaceNodesRequest
	if err := a.decodeJSONBody(w, r, &req, false); err != nil {
		return
	}
	wf, err := a.workflows.ReplaceNodes(r.Context(), pathVar(r, "id"), req.Nodes, req.Version)
	if err != nil {
		a.handleError(w, r, "update workflow", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

// addNode godoc
//
//	@Summary	Add a node to a workflow
//	@Tags		workflows
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string			true	"Workflow ID"
//	@Param		request	body		AddNodeRequest	true	"Node and insert position"
//	@Success	201		{object}	AddNodeResponse
//	@Failure	400		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/workflows/{id}/nodes [post]
func (a *API) addNode(w http.ResponseWriter, r *http.Request) {
	var req AddNodeRequest
	if err := a.decodeJSONBody(w, r, &req, false); err != nil {
		return
	}
	wf, node, err := a.workflows.AddNode(r.Context(), pathVar(r, "id"), req.AfterID, req.Node)
	if err != nil {
		a.handleError(w, r, "add node", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, AddNodeResponse{Workflow: wf, Node: node})
}

// updateNode godoc
//
//	@Summary	Configure a workflow node
//	@Tags		workflows
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string				true	"Workflow ID"
//	@Param		nodeId	path		string				true	"Node ID"
//	@Param		node	body		core.WorkflowNode	true	"Node"
//	@Success	200		{object}	core.Workflow
//	@Failure	400		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/workflows/{id}/nodes/{nodeId} [put]
func (a *API) updateNode(w http.ResponseWriter, r *http.Request) {
	var node core.WorkflowNode
	if err := a.decodeJSONBody(w, r, &node, false); err != nil {
		return
	}
	wf, err := a.workflows.UpdateNode(r.Context(), pathVar(r, "id"), pathVar(r, "nodeId"), node)
	if err != nil {
		a.handleError(w, r, "update node", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

// removeNode godoc
//
//	@Summary	Remove a workflow node
//	@Tags		workflows
//	@Produce	json
//	@Param		id		path		string	true	"Workflow ID"
//	@Param		nodeId	path		string	true	"Node ID"
//	@Success	200		{object}	core.Workflow
//	@Failure	404		{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/workflows/{id}/nodes/{nodeId} [delete]
func (a *API) removeNode(w http.ResponseWriter, r *http.Request) {
	wf, err := a.workflows.RemoveNode(r.Context(), pathVar(r, "id"), pathVar(r, "nodeId"))
	if err != nil {
		a.handleError(w, r, "remove node", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

// setTrigger godoc
//
//	@Summary	Set or replace the workflow trigger
//	@Tags		workflows
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string				true	"Workflow ID"
//	@Param		trigger	body		core.WorkflowNode	true	"Trigger node"
//	@Success	200		{object}	core.Workflow
//	@Failure	400		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/workflows/{id}/trigger [put]
func (a *API) setTrigger(w http.ResponseWriter, r *http.Request) {
	var trigger core.WorkflowNode
	if err := a.decodeJSONBody(w, r, &trigger, false); err != nil {
		return
	}
	wf, err := a.workflows.SetTrigger(r.Context(), pathVar(r, "id"), trigger)
	if err != nil {
		a.handleError(w, r, "set trigger", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

// getWorkflowGraph godoc
//
//	@Summary	Workflow editor graph
//	@Tags		workflows
//	@Produce	json
//	@Param		id	path		string	true	"Workflow ID"
//	@Success	200	{object}	core.Graph
//	@Failure	404	{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/workflows/{id}/graph [get]
func (a *API) getWorkflowGraph(w http.ResponseWriter, r *http.Request) {
	graph, err := a.workflows.Graph(r.Context(), pathVar(r, "id"))
	if err != nil {
		a.handleError(w, r, "build workflow graph", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, graph)
}

// runWorkflow godoc
//
//	@Summary		Test-run a workflow
//	@Description	Runs the action nodes in order with the given trigger input. Node failures are reported in the result.
//	@Tags			workflows
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Workflow ID"
//	@Param			request	body		RunWorkflowRequest	false	"Trigger input"
//	@Success		200		{object}	core.RunResult
//	@Failure		404		{object}	ErrorResponse
//	@Security		BasicAuth
//	@Router			/api/workflows/{id}/run [post]
func (a *API) runWorkflow(w http.ResponseWriter, r *http.Request) {
	var req RunWorkflowRequest
	if err := a.decodeJSONBody(w, r, &req, true); err != nil {
		return
	}
	result, err := a.workflows.Run(r.Context(), pathVar(r, "id"), req.Input, nil)
	if err != nil {
		a.handleError(w, r, "run workflow", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
