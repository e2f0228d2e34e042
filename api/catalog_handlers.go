package api

import (
	"net/http"

	"conduit/core"
)

// listIntegrations godoc
//
//	@Summary		List integrations
//	@Description	Integrations available on the platform, with their connection state
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{array}		core.Integration
//	@Failure		502	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Security		BasicAuth
//	@Router			/api/integrations [get]
func (a *API) listIntegrations(w http.ResponseWriter, r *http.Request) {
	items, err := a.catalog.ListIntegrations(r.Context())
	if err != nil {
		a.handleError(w, r, "list integrations", err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// getIntegration godoc
//
//	@Summary	Get integration
//	@Tags		catalog
//	@Produce	json
//	@Param		key	path		string	true	"Integration key"
//	@Success	200	{object}	core.Integration
//	@Failure	404	{object}	ErrorResponse
//	@Failure	502	{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/integrations/{key} [get]
func (a *API) getIntegration(w http.ResponseWriter, r *http.Request) {
	integration, err := a.catalog.GetIntegration(r.Context(), pathVar(r, "key"))
	if err != nil {
		a.handleError(w, r, "get integration", err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, integration)
}

// listDataCollections godoc
//
//	@Summary	List data collections of an integration
//	@Tags		catalog
//	@Produce	json
//	@Param		key	path		string	true	"Integration key"
//	@Success	200	{array}		core.DataCollection
//	@Failure	502	{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/integrations/{key}/collections [get]
func (a *API) listDataCollections(w http.ResponseWriter, r *http.Request) {
	items, err := a.catalog.ListDataCollections(r.Context(), pathVar(r, "key"))
	if err != nil {
		a.handleError(w, r, "list data collections", err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// getDataCollection godoc
//
//	@Summary	Get data collection spec
//	@Tags		catalog
//	@Produce	json
//	@Param		key				path		string	true	"Integration key"
//	@Param		collectionKey	path		string	true	"Data collection key"
//	@Success	200				{object}	core.DataCollectionSpec
//	@Failure	404				{object}	ErrorResponse
//	@Failure	502				{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/integrations/{key}/collections/{collectionKey} [get]
func (a *API) getDataCollection(w http.ResponseWriter, r *http.Request) {
	spec, err := a.catalog.GetDataCollection(r.Context(), pathVar(r, "key"), pathVar(r, "collectionKey"))
	if err != nil {
		a.handleError(w, r, "get data collection", err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, spec)
}

// getMethodSchema godoc
//
//	@Summary		Method input schema
//	@Description	Input schema of a data collection method; create and update embed the collection's fields schema
//	@Tags			catalog
//	@Produce		json
//	@Param			key				path		string	true	"Integration key"
//	@Param			collectionKey	path		string	true	"Data collection key"
//	@Param			method			path		string	true	"Method"	Enums(list, create, update, delete, search, find-by-id)
//	@Success		200				{object}	map[string]interface{}
//	@Failure		400				{object}	ErrorResponse
//	@Failure		502				{object}	ErrorResponse
//	@Security		BasicAuth
//	@Router			/api/integrations/{key}/collections/{collectionKey}/methods/{method}/schema [get]
func (a *API) getMethodSchema(w http.ResponseWriter, r *http.Request) {
	method, err := core.ParseMethod(pathVar(r, "method"))
	if err != nil {
		a.handleError(w, r, "get method schema", err, http.StatusBadRequest)
		return
	}
	schema, err := a.catalog.MethodSchema(r.Context(), pathVar(r, "key"), pathVar(r, "collectionKey"), method)
	if err != nil {
		a.handleError(w, r, "get method schema", err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

// listIntegrationActions godoc
//
//	@Summary	List platform actions of an integration
//	@Tags		catalog
//	@Produce	json
//	@Param		key	path		string	true	"Integration key"
//	@Success	200	{array}		core.PlatformAction
//	@Failure	502	{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/integrations/{key}/actions [get]
func (a *API) listIntegrationActions(w http.ResponseWriter, r *http.Request) {
	items, err := a.catalog.ListIntegrationActions(r.Context(), pathVar(r, "key"))
	if err != nil {
		a.handleError(w, r, "list integration actions", err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// listFlows godoc
//
//	@Summary	List flows (triggers) of an integration
//	@Tags		catalog
//	@Produce	json
//	@Param		key	path		string	true	"Integration key"
//	@Success	200	{array}		core.Flow
//	@Failure	502	{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/integrations/{key}/flows [get]
func (a *API) listFlows(w http.ResponseWriter, r *http.Request) {
	items, err := a.catalog.ListFlows(r.Context(), pathVar(r, "key"))
	if err != nil {
		a.handleError(w, r, "list flows", err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// listConnections godoc
//
//	@Summary	List connections
//	@Tags		catalog
//	@Produce	json
//	@Success	200	{array}		core.Connection
//	@Failure	502	{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/connections [get]
func (a *API) listConnections(w http.ResponseWriter, r *http.Request) {
	items, err := a.catalog.ListConnections(r.Context())
	if err != nil {
		a.handleError(w, r, "list connections", err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// getConnection godoc
//
//	@Summary	Get connection
//	@Tags		catalog
//	@Produce	json
//	@Param		id	path		string	true	"Connection ID"
//	@Success	200	{object}	core.Connection
//	@Failure	404	{object}	ErrorResponse
//	@Failure	502	{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/connections/{id} [get]
func (a *API) getConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := a.catalog.GetConnection(r.Context(), pathVar(r, "id"))
	if err != nil {
		a.handleError(w, r, "get connection", err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

// getFlowInstance godoc
//
//	@Summary		Get flow instance
//	@Description	Flow instance of a connection, including its trigger parameters schema
//	@Tags			catalog
//	@Produce		json
//	@Param			id		path		string	true	"Connection ID"
//	@Param			flowKey	path		string	true	"Flow key"
//	@Success		200		{object}	core.FlowInstance
//	@Failure		404		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Security		BasicAuth
//	@Router			/api/connections/{id}/flows/{flowKey} [get]
func (a *API) getFlowInstance(w http.ResponseWriter, r *http.Request) {
	instance, err := a.catalog.GetFlowInstance(r.Context(), pathVar(r, "id"), pathVar(r, "flowKey"))
	if err != nil {
		a.handleError(w, r, "get flow instance", err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, instance)
}

// listMethods godoc
//
//	@Summary	Method table
//	@Tags		catalog
//	@Produce	json
//	@Success	200	{array}	core.MethodDescriptor
//	@Security	BasicAuth
//	@Router		/api/methods [get]
func (a *API) listMethods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, core.MethodTable())
}
