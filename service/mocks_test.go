package service

import (
	"context"

	"conduit/core"

	"github.com/stretchr/testify/mock"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// MockCatalogPlatform is a mock implementation of CatalogPlatform.
type MockCatalogPlatform struct {
	mock.Mock
}

func (m *MockCatalogPlatform) ListIntegrations(ctx context.Context) ([]core.Integration, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).([]core.Integration)
	return v, args.Error(1)
}

func (m *MockCatalogPlatform) GetIntegration(ctx context.Context, key string) (*core.Integration, error) {
	args := m.Called(ctx, key)
	v, _ := args.Get(0).(*core.Integration)
	return v, args.Error(1)
}

func (m *MockCatalogPlatform) ListDataCollections(ctx context.Context, integrationKey string) ([]core.DataCollection, error) {
	args := m.Called(ctx, integrationKey)
	v, _ := args.Get(0).([]core.DataCollection)
	return v, args.Error(1)
}

func (m *MockCatalogPlatform) GetDataCollection(ctx context.Context, integrationKey, collectionKey string) (*core.DataCollectionSpec, error) {
	args := m.Called(ctx, integrationKey, collectionKey)
	v, _ := args.Get(0).(*core.DataCollectionSpec)
	return v, args.Error(1)
}

func (m *MockCatalogPlatform) GetConnectionDataCollection(ctx context.Context, connectionID, key string, parameters any) (*core.DataCollectionSpec, error) {
	args := m.Called(ctx, connectionID, key, parameters)
	v, _ := args.Get(0).(*core.DataCollectionSpec)
	return v, args.Error(1)
}

func (m *MockCatalogPlatform) ListConnections(ctx context.Context) ([]core.Connection, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).([]core.Connection)
	return v, args.Error(1)
}

func (m *MockCatalogPlatform) GetConnection(ctx context.Context, id string) (*core.Connection, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*core.Connection)
	return v, args.Error(1)
}

func (m *MockCatalogPlatform) ListIntegrationActions(ctx context.Context, integrationKey string) ([]core.PlatformAction, error) {
	args := m.Called(ctx, integrationKey)
	v, _ := args.Get(0).([]core.PlatformAction)
	return v, args.Error(1)
}

func (m *MockCatalogPlatform) ListFlows(ctx context.Context, integrationKey string) ([]core.Flow, error) {
	args := m.Called(ctx, integrationKey)
	v, _ := args.Get(0).([]core.Flow)
	return v, args.Error(1)
}

func (m *MockCatalogPlatform) GetFlowInstance(ctx context.Context, connectionID, flowKey string) (*core.FlowInstance, error) {
	args := m.Called(ctx, connectionID, flowKey)
	v, _ := args.Get(0).(*core.FlowInstance)
	return v, args.Error(1)
}

// MockRunner is a mock implementation of ActionRunner and PlatformActionRunner.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) RunDataCollectionMethod(ctx context.Context, connectionID, key string, method core.Method, parameters map[string]any, input any) (any, error) {
	args := m.Called(ctx, connectionID, key, method, parameters, input)
	return args.Get(0), args.Error(1)
}

func (m *MockRunner) RunAction(ctx context.Context, connectionID, actionKey string, input any) (any, error) {
	args := m.Called(ctx, connectionID, actionKey, input)
	return args.Get(0), args.Error(1)
}

// MockActionStorage is a mock implementation of ActionStorage.
type MockActionStorage struct {
	mock.Mock
}

func (m *MockActionStorage) CreateAction(ctx context.Context, action *core.Action) (string, error) {
	args := m.Called(ctx, action)
	return args.String(0), args.Error(1)
}

func (m *MockActionStorage) ListActions(ctx context.Context, offset, limit int) ([]core.Action, error) {
	args := m.Called(ctx, offset, limit)
	v, _ := args.Get(0).([]core.Action)
	return v, args.Error(1)
}

func (m *MockActionStorage) CountActions(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockActionStorage) GetAction(ctx context.Context, id string) (*core.Action, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*core.Action)
	return v, args.Error(1)
}

func (m *MockActionStorage) DeleteAction(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// MockWorkflowStorage is a mock implementation of WorkflowStorage.
type MockWorkflowStorage struct {
	mock.Mock
}

func (m *MockWorkflowStorage) CreateWorkflow(ctx context.Context, name string) (*core.Workflow, error) {
	args := m.Called(ctx, name)
	v, _ := args.Get(0).(*core.Workflow)
	return v, args.Error(1)
}

func (m *MockWorkflowStorage) ListWorkflows(ctx context.Context, offset, limit int) ([]core.Workflow, error) {
	args := m.Called(ctx, offset, limit)
	v, _ := args.Get(0).([]core.Workflow)
	return v, args.Error(1)
}

func (m *MockWorkflowStorage) CountWorkflows(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWorkflowStorage) GetWorkflow(ctx context.Context, id string) (*core.Workflow, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*core.Workflow)
	return v, args.Error(1)
}

func (m *MockWorkflowStorage) RenameWorkflow(ctx context.Context, id, name string) (*core.Workflow, error) {
	args := m.Called(ctx, id, name)
	v, _ := args.Get(0).(*core.Workflow)
	return v, args.Error(1)
}

func (m *MockWorkflowStorage) UpdateNodes(ctx context.Context, id string, nodes []core.WorkflowNode, expectedVersion int64) (*core.Workflow, error) {
	args := m.Called(ctx, id, nodes, expectedVersion)
	v, _ := args.Get(0).(*core.Workflow)
	return v, args.Error(1)
}

func (m *MockWorkflowStorage) DeleteWorkflow(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
