package api

import (
	"context"

	"conduit/core"
	"conduit/schema"

	"github.com/stretchr/testify/mock"
)

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) ListIntegrations(ctx context.Context) ([]core.Integration, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]core.Integration)
	return items, args.Error(1)
}

func (m *mockCatalog) GetIntegration(ctx context.Context, key string) (*core.Integration, error) {
	args := m.Called(ctx, key)
	item, _ := args.Get(0).(*core.Integration)
	return item, args.Error(1)
}

func (m *mockCatalog) ListDataCollections(ctx context.Context, integrationKey string) ([]core.DataCollection, error) {
	args := m.Called(ctx, integrationKey)
	items, _ := args.Get(0).([]core.DataCollection)
	return items, args.Error(1)
}

func (m *mockCatalog) GetDataCollection(ctx context.Context, integrationKey, collectionKey string) (*core.DataCollectionSpec, error) {
	args := m.Called(ctx, integrationKey, collectionKey)
	item, _ := args.Get(0).(*core.DataCollectionSpec)
	return item, args.Error(1)
}

func (m *mockCatalog) MethodSchema(ctx context.Context, integrationKey, collectionKey string, method core.Method) (core.DataSchema, error) {
	args := m.Called(ctx, integrationKey, collectionKey, method)
	s, _ := args.Get(0).(core.DataSchema)
	return s, args.Error(1)
}

func (m *mockCatalog) ListIntegrationActions(ctx context.Context, integrationKey string) ([]core.PlatformAction, error) {
	args := m.Called(ctx, integrationKey)
	items, _ := args.Get(0).([]core.PlatformAction)
	return items, args.Error(1)
}

func (m *mockCatalog) ListFlows(ctx context.Context, integrationKey string) ([]core.Flow, error) {
	args := m.Called(ctx, integrationKey)
	items, _ := args.Get(0).([]core.Flow)
	return items, args.Error(1)
}

func (m *mockCatalog) ListConnections(ctx context.Context) ([]core.Connection, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]core.Connection)
	return items, args.Error(1)
}

func (m *mockCatalog) GetConnection(ctx context.Context, id string) (*core.Connection, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(*core.Connection)
	return item, args.Error(1)
}

func (m *mockCatalog) GetFlowInstance(ctx context.Context, connectionID, flowKey string) (*core.FlowInstance, error) {
	args := m.Called(ctx, connectionID, flowKey)
	item, _ := args.Get(0).(*core.FlowInstance)
	return item, args.Error(1)
}

type mockActions struct{ mock.Mock }

func (m *mockActions) Save(ctx context.Context, action *core.Action) (string, error) {
	args := m.Called(ctx, action)
	return args.String(0), args.Error(1)
}

func (m *mockActions) List(ctx context.Context, offset, limit int) ([]core.Action, int64, error) {
	args := m.Called(ctx, offset, limit)
	items, _ := args.Get(0).([]core.Action)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *mockActions) Get(ctx context.Context, id string) (*core.Action, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(*core.Action)
	return item, args.Error(1)
}

func (m *mockActions) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockActions) TestMethod(ctx context.Context, connectionID, collectionKey string, method core.Method, parameters map[string]any, input any) (*core.TestResult, error) {
	args := m.Called(ctx, connectionID, collectionKey, method, parameters, input)
	item, _ := args.Get(0).(*core.TestResult)
	return item, args.Error(1)
}

func (m *mockActions) TestSaved(ctx context.Context, id string) (*core.TestResult, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(*core.TestResult)
	return item, args.Error(1)
}

func (m *mockActions) RunPlatformAction(ctx context.Context, connectionID, actionKey string, input any) (*core.TestResult, error) {
	args := m.Called(ctx, connectionID, actionKey, input)
	item, _ := args.Get(0).(*core.TestResult)
	return item, args.Error(1)
}

type mockWorkflows struct{ mock.Mock }

func (m *mockWorkflows) Create(ctx context.Context, name string) (*core.Workflow, error) {
	args := m.Called(ctx, name)
	wf, _ := args.Get(0).(*core.Workflow)
	return wf, args.Error(1)
}

func (m *mockWorkflows) List(ctx context.Context, offset, limit int) ([]core.Workflow, int64, error) {
	args := m.Called(ctx, offset, limit)
	items, _ := args.Get(0).([]core.Workflow)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *mockWorkflows) Get(ctx context.Context, id string) (*core.Workflow, error) {
	args := m.Called(ctx, id)
	wf, _ := args.Get(0).(*core.Workflow)
	return wf, args.Error(1)
}

func (m *mockWorkflows) Rename(ctx context.Context, id, name string) (*core.Workflow, error) {
	args := m.Called(ctx, id, name)
	wf, _ := args.Get(0).(*core.Workflow)
	return wf, args.Error(1)
}

func (m *mockWorkflows) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockWorkflows) ReplaceNodes(ctx context.Context, id string, nodes []core.WorkflowNode, expectedVersion *int64) (*core.Workflow, error) {
	args := m.Called(ctx, id, nodes, expectedVersion)
	wf, _ := args.Get(0).(*core.Workflow)
	return wf, args.Error(1)
}

func (m *mockWorkflows) AddNode(ctx context.Context, id, afterID string, node core.WorkflowNode) (*core.Workflow, *core.WorkflowNode, error) {
	args := m.Called(ctx, id, afterID, node)
	wf, _ := args.Get(0).(*core.Workflow)
	n, _ := args.Get(1).(*core.WorkflowNode)
	return wf, n, args.Error(2)
}

func (m *mockWorkflows) UpdateNode(ctx context.Context, id, nodeID string, node core.WorkflowNode) (*core.Workflow, error) {
	args := m.Called(ctx, id, nodeID, node)
	wf, _ := args.Get(0).(*core.Workflow)
	return wf, args.Error(1)
}

func (m *mockWorkflows) RemoveNode(ctx context.Context, id, nodeID string) (*core.Workflow, error) {
	args := m.Called(ctx, id, nodeID)
	wf, _ := args.Get(0).(*core.Workflow)
	return wf, args.Error(1)
}

func (m *mockWorkflows) SetTrigger(ctx context.Context, id string, trigger core.WorkflowNode) (*core.Workflow, error) {
	args := m.Called(ctx, id, trigger)
	wf, _ := args.Get(0).(*core.Workflow)
	return wf, args.Error(1)
}

func (m *mockWorkflows) Graph(ctx context.Context, id string) (*core.Graph, error) {
	args := m.Called(ctx, id)
	g, _ := args.Get(0).(*core.Graph)
	return g, args.Error(1)
}

// Run replays the steps of the returned result through observer.
func (m *mockWorkflows) Run(ctx context.Context, id string, triggerInput any, observer func(core.StepResult)) (*core.RunResult, error) {
	args := m.Called(ctx, id, triggerInput)
	result, _ := args.Get(0).(*core.RunResult)
	if result != nil && observer != nil {
		for _, step := range result.Steps {
			observer(step)
		}
	}
	return result, args.Error(1)
}

type mockResolver struct{ mock.Mock }

func (m *mockResolver) Resolve(ctx context.Context, s core.DataSchema, connectionID string, value any) schema.Result {
	return m.Called(ctx, s, connectionID, value).Get(0).(schema.Result)
}

type mockHealth struct{ err error }

func (m *mockHealth) HealthCheck(ctx context.Context) error { return m.err }

type stubPlatform struct{ state core.CircuitBreakerState }

func (s stubPlatform) BreakerState() core.CircuitBreakerState { return s.state }
