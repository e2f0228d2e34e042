package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"conduit/core"
	"conduit/metrics"
	"conduit/schema"

	"go.uber.org/zap"
)

// ActionStorage defines saved action storage operations needed by the service.
type ActionStorage interface {
	CreateAction(ctx context.Context, action *core.Action) (string, error)
	ListActions(ctx context.Context, offset, limit int) ([]core.Action, error)
	CountActions(ctx context.Context) (int64, error)
	GetAction(ctx context.Context, id string) (*core.Action, error)
	DeleteAction(ctx context.Context, id string) error
}

// ActionRunner executes calls on the integration platform.
type ActionRunner interface {
	RunDataCollectionMethod(ctx context.Context, connectionID, key string, method core.Method, parameters map[string]any, input any) (any, error)
	RunAction(ctx context.Context, connectionID, actionKey string, input any) (any, error)
}

// SchemaResolver resolves the formulas of a data schema.
type SchemaResolver interface {
	Resolve(ctx context.Context, s core.DataSchema, connectionID string, value any) schema.Result
}

// CollectionSpecs looks up collection specifications through a connection.
type CollectionSpecs interface {
	GetConnectionDataCollection(ctx context.Context, connectionID, key string, parameters any) (*core.DataCollectionSpec, error)
}

// ActionServiceImpl manages saved actions and test runs.
//
// BUSINESS LOGIC:
//   - Save validates required fields and the method name, then optionally the
//     input against the method's resolved input schema
//   - Test runs never return platform failures as errors; they are reported
//     in core.TestResult so the console can show the platform's payload
type ActionServiceImpl struct {
	storage       ActionStorage
	runner        ActionRunner
	specs         CollectionSpecs
	resolver      SchemaResolver
	validateInput bool
	logger        *zap.SugaredLogger
}

// NewActionService creates a new action service.
//
// PARAMETERS:
//   - storage: saved action persistence (required)
//   - runner: platform client (required)
//   - specs, resolver: used for input validation (may be nil, validation skipped)
//   - validateInput: whether Save validates the input value
//   - logger: structured logger (required)
func NewActionService(
	storage ActionStorage,
	runner ActionRunner,
	specs CollectionSpecs,
	resolver SchemaResolver,
	validateInput bool,
	logger *zap.SugaredLogger,
) *ActionServiceImpl {
	if storage == nil {
		panic("storage is required")
	}
	if runner == nil {
		panic("runner is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &ActionServiceImpl{
		storage:       storage,
		runner:        runner,
		specs:         specs,
		resolver:      resolver,
		validateInput: validateInput && specs != nil && resolver != nil,
		logger:        logger,
	}
}

// Save stores a new action and returns its id.
//
// ERRORS:
//   - *core.ValidationError: missing fields or input not matching the schema
//   - core.ErrUnknownMethod: method outside the method table
func (s *ActionServiceImpl) Save(ctx context.Context, action *core.Action) (string, error) {
	if action == nil {
		return "", fmt.Errorf("%w: action is required", core.ErrInvalidInput)
	}
	action.ConnectionID = strings.TrimSpace(action.ConnectionID)
	action.CollectionKey = strings.TrimSpace(action.CollectionKey)

	if _, err := core.ParseMethod(string(action.Method)); err != nil {
		return "", err
	}
	if err := core.ValidateStruct(action); err != nil {
		return "", err
	}

	if s.validateInput {
		if err := s.checkInput(ctx, action); err != nil {
			return "", err
		}
	}

	action.CreatedAt = time.Now().UTC()
	id, err := s.storage.CreateAction(ctx, action)
	if err != nil {
		return "", err
	}
	s.logger.Infow("Action saved", "id", id, "connection_id", action.ConnectionID, "collection", action.CollectionKey, "method", action.Method)
	return id, nil
}

// checkInput validates the input against the resolved method schema. When
// the schema cannot be obtained the check is skipped with a warning.
func (s *ActionServiceImpl) checkInput(ctx context.Context, action *core.Action) error {
	spec, err := s.specs.GetConnectionDataCollection(ctx, action.ConnectionID, action.CollectionKey, action.Parameters)
	if err != nil {
		s.logger.Warnw("Skipping input validation, collection spec unavailable",
			"connection_id", action.ConnectionID, "collection", action.CollectionKey, "error", err)
		return nil
	}

	methodSchema, err := core.MethodInputSchema(action.Method, spec.FieldsSchema)
	if err != nil {
		return err
	}

	result := s.resolver.Resolve(ctx, methodSchema, action.ConnectionID, action.Input)
	if result.Err != nil {
		s.logger.Warnw("Skipping input validation, schema did not resolve",
			"connection_id", action.ConnectionID, "collection", action.CollectionKey, "error", result.Err)
		return nil
	}
	return schema.Validate(result.Schema, action.Input)
}

// List returns a page of saved actions, newest first, and the total count.
func (s *ActionServiceImpl) List(ctx context.Context, offset, limit int) ([]core.Action, int64, error) {
	actions, err := s.storage.ListActions(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.storage.CountActions(ctx)
	if err != nil {
		return nil, 0, err
	}
	return actions, total, nil
}

// Get returns a saved action.
func (s *ActionServiceImpl) Get(ctx context.Context, id string) (*core.Action, error) {
	return s.storage.GetAction(ctx, id)
}

// Delete removes a saved action.
func (s *ActionServiceImpl) Delete(ctx context.Context, id string) error {
	if err := s.storage.DeleteAction(ctx, id); err != nil {
		return err
	}
	s.logger.Infow("Action deleted", "id", id)
	return nil
}

// TestMethod runs a data collection method ad hoc. The error return is
// reserved for invalid requests; platform failures land in the result.
func (s *ActionServiceImpl) TestMethod(ctx context.Context, connectionID, collectionKey string, method core.Method, parameters map[string]any, input any) (*core.TestResult, error) {
	if _, err := core.ParseMethod(string(method)); err != nil {
		return nil, err
	}
	if connectionID == "" || collectionKey == "" {
		return nil, fmt.Errorf("%w: connection and collection are required", core.ErrInvalidInput)
	}

	start := time.Now()
	output, err := s.runner.RunDataCollectionMethod(ctx, connectionID, collectionKey, method, parameters, input)
	result := testResult(output, err, start)
	metrics.RecordActionTestRun(string(method), result.Success)

	if err != nil {
		s.logger.Infow("Method test run failed", "connection_id", connectionID, "collection", collectionKey, "method", method, "error", err)
	}
	return result, nil
}

// TestSaved re-runs a stored action.
func (s *ActionServiceImpl) TestSaved(ctx context.Context, id string) (*core.TestResult, error) {
	action, err := s.storage.GetAction(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.TestMethod(ctx, action.ConnectionID, action.CollectionKey, action.Method, action.Parameters, action.Input)
}

// RunPlatformAction runs a platform action on a connection.
func (s *ActionServiceImpl) RunPlatformAction(ctx context.Context, connectionID, actionKey string, input any) (*core.TestResult, error) {
	if connectionID == "" || actionKey == "" {
		return nil, fmt.Errorf("%w: connection and action are required", core.ErrInvalidInput)
	}

	start := time.Now()
	output, err := s.runner.RunAction(ctx, connectionID, actionKey, input)
	result := testResult(output, err, start)
	metrics.RecordActionTestRun("action", result.Success)

	if err != nil {
		s.logger.Infow("Platform action run failed", "connection_id", connectionID, "action", actionKey, "error", err)
	}
	return result, nil
}

func testResult(output any, err error, start time.Time) *core.TestResult {
	result := &core.TestResult{DurationMS: time.Since(start).Milliseconds()}
	if err != nil {
		result.Error = asPlatformError(err)
		return result
	}
	result.Success = true
	result.Output = output
	return result
}

// asPlatformError describes any run failure in the platform error shape.
func asPlatformError(err error) *core.PlatformError {
	var pe *core.PlatformError
	if errors.As(err, &pe) {
		return pe
	}
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, core.ErrCircuitBreakerOpen), errors.Is(err, core.ErrTooManyRequests):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	return &core.PlatformError{Status: status, Message: err.Error()}
}
