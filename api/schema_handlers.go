package api

import (
	"net/http"

	"conduit/core"
	"conduit/schema"
)

// ResolveSchemaRequest is the body of a schema resolution
type ResolveSchemaRequest struct {
	Schema       core.DataSchema `json:"schema" swaggertype:"object"`
	ConnectionID string          `json:"connectionId,omitempty"`
	Value        any             `json:"value" swaggertype:"object"`
}

// ValidateSchemaRequest is the body of a schema validation
type ValidateSchemaRequest struct {
	Schema core.DataSchema `json:"schema" swaggertype:"object"`
	Value  any             `json:"value" swaggertype:"object"`
}

// ValidateSchemaResponse lists the failing fields of a value
type ValidateSchemaResponse struct {
	Valid  bool              `json:"valid"`
	Fields []core.FieldError `json:"fields"`
}

// resolveSchema godoc
//
//	@Summary		Resolve a dynamic schema
//	@Description	Evaluates the formulas of a schema against the current form value. Resolution failures return the static schema and an error message with status 200.
//	@Tags			schema
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ResolveSchemaRequest	true	"Schema and value"
//	@Success		200		{object}	schema.Result
//	@Failure		400		{object}	ErrorResponse
//	@Security		BasicAuth
//	@Router			/api/schema/resolve [post]
func (a *API) resolveSchema(w http.ResponseWriter, r *http.Request) {
	var req ResolveSchemaRequest
	if err := a.decodeJSONBody(w, r, &req, false); err != nil {
		return
	}
	var result schema.Result
	if a.resolver != nil {
		result = a.resolver.Resolve(r.Context(), req.Schema, req.ConnectionID, req.Value)
	} else {
		result = schema.Result{Schema: req.Schema}
	}
	if result.Err != nil {
		LogWithRequestID(r.Context(), a.logger).Debugw("Schema resolution failed", "error", result.Err)
	}
	writeJSON(w, http.StatusOK, result)
}

// validateSchema godoc
//
//	@Summary	Validate a value against a schema
//	@Tags		schema
//	@Accept		json
//	@Produce	json
//	@Param		request	body		ValidateSchemaRequest	true	"Schema and value"
//	@Success	200		{object}	ValidateSchemaResponse
//	@Failure	400		{object}	ErrorResponse
//	@Security	BasicAuth
//	@Router		/api/schema/validate [post]
func (a *API) validateSchema(w http.ResponseWriter, r *http.Request) {
	var req ValidateSchemaRequest
	if err := a.decodeJSONBody(w, r, &req, false); err != nil {
		return
	}
	fields, err := schema.Check(req.Schema, req.Value)
	if err != nil {
		a.handleError(w, r, "validate value", err, http.StatusBadRequest)
		return
	}
	if fields == nil {
		fields = []core.FieldError{}
	}
	writeJSON(w, http.StatusOK, ValidateSchemaResponse{Valid: len(fields) == 0, Fields: fields})
}
