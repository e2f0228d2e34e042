package api

import (
	"net/http"

	"conduit/core"
)

// TestMethodRequest is the body of a method test run
type TestMethodRequest struct {
	Parameters map[string]any `json:"parameters" swaggertype:"object"`
	Input      any            `json:"input" swaggertype:"object"`
}

// RunActionRequest is the body of a platform action run
type RunActionRequest struct {
	Input any `json:"input" swaggertype:"object"`
}

// testMethod godoc
//
//	@Summary		Test-run a data collection method
//	@Description	Runs the method through a connection. Platform failures are reported in the result, not as an HTTP error.
//	@Tags			actions
//	@Accept			json
//	@Produce		json
//	@Param			id				path		string				true	"Connection ID"
//	@Param			collectionKey	path		string				true	"Data collection key"
//	@Param			method			path		string				true	"Method"
//	@Param			request			body		TestMethodRequest	false	"Parameters and input"
//	@Success		200				{object}	core.TestResult
//	@Failure		400				{object}	ErrorResponse
//	@Security		BasicAuth
//	@Router			/api/connections/{id}/collections/{collectionKey}/methods/{method}/test [post]
func (a *API) testMethod(w http.ResponseWriter, r *http.Request) {
	method, err := core.ParseMethod(pathVar(r, "method"))
	if err != nil {
		a.handleError(w, r, "test method", err, http.StatusBadRequest)
		return
	}
	var req TestMethodRequest
	if err := a.decodeJSONBody(w, r, &req, true); err != nil {
		return
	}
	result, err := a.actions.TestMethod(r.Context(), pathVar(r, "id"), pathVar(r, "collectionKey"), method, req.Parameters, req.Input)
	if err != nil {
		a.handleError(w, r, "test method", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// runPlatformAction godoc
//
//	@Summary	Run a platform action
//	@Tags		actions
//	@Accept		json
//	@Produce	json
//	@Param		id			path		string				true	"Connection ID"
//	@Param		actionKey	path		string				true	"Action key"
//	@Param		request		body		RunActionRequest	false	"Action input"
//	@Success	200			{object}	core.TestResult
//	@Failure	400			{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/connections/{id}/actions/{actionKey}/run [post]
func (a *API) runPlatformAction(w http.ResponseWriter, r *http.Request) {
	var req RunActionRequest
	if err := a.decodeJSONBody(w, r, &req, true); err != nil {
		return
	}
	result, err := a.actions.RunPlatformAction(r.Context(), pathVar(r, "id"), pathVar(r, "actionKey"), req.Input)
	if err != nil {
		a.handleError(w, r, "run action", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// createAction godoc
//
//	@Summary	Save an action
//	@Tags		actions
//	@Accept		json
//	@Produce	json
//	@Param		action	body		core.Action	true	"Action"
//	@Success	201		{object}	IDResponse
//	@Failure	400		{object}	ErrorResponse
//	@Failure	500		{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/actions [post]
func (a *API) createAction(w http.ResponseWriter, r *http.Request) {
	var action core.Action
	if err := a.decodeJSONBody(w, r, &action, false); err != nil {
		return
	}
	id, err := a.actions.Save(r.Context(), &action)
	if err != nil {
		a.handleError(w, r, "save action", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, IDResponse{ID: id})
}

// getActions godoc
//
//	@Summary	List saved actions
//	@Tags		actions
//	@Produce	json
//	@Param		page	query		int	false	"Page (1-based)"
//	@Param		limit	query		int	false	"Items per page"
//	@Success	200		{object}	PaginationResponse
//	@Failure	500		{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/actions [get]
func (a *API) getActions(w http.ResponseWriter, r *http.Request) {
	params := ParsePaginationParams(r, defaultPageLimit, maxPageLimit)
	items, total, err := a.actions.List(r.Context(), params.CalculateOffset(), params.Limit)
	if err != nil {
		a.handleError(w, r, "list actions", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, NewPaginationResponse(items, total, params.Page, params.Limit))
}

// getAction godoc
//
//	@Summary	Get a saved action
//	@Tags		actions
//	@Produce	json
//	@Param		id	path		string	true	"Action ID"
//	@Success	200	{object}	core.Action
//	@Failure	400	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/actions/{id} [get]
func (a *API) getAction(w http.ResponseWriter, r *http.Request) {
	action, err := a.actions.Get(r.Context(), pathVar(r, "id"))
	if err != nil {
		a.handleError(w, r, "get action", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, action)
}

// deleteAction godoc
//
//	@Summary	Delete a saved action
//	@Tags		actions
//	@Produce	json
//	@Param		id	path		string	true	"Action ID"
//	@Success	200	{object}	SuccessResponse
//	@Failure	404	{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/actions/{id} [delete]
func (a *API) deleteAction(w http.ResponseWriter, r *http.Request) {
	if err := a.actions.Delete(r.Context(), pathVar(r, "id")); err != nil {
		a.handleError(w, r, "delete action", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// testAction godoc
//
//	@Summary	Re-run a saved action
//	@Tags		actions
//	@Produce	json
//	@Param		id	path		string	true	"Action ID"
//	@Success	200	{object}	core.TestResult
//	@Failure	404	{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/actions/{id}/test [post]
func (a *API) testAction(w http.ResponseWriter, r *http.Request) {
	result, err := a.actions.TestSaved(r.Context(), pathVar(r, "id"))
	if err != nil {
		a.handleError(w, r, "test action", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
