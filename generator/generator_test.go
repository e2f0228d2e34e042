package generator

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"conduit/core"
	"conduit/platform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"
)

type mockPlatform struct{ mock.Mock }

func (m *mockPlatform) ListIntegrations(ctx context.Context) ([]core.Integration, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]core.Integration)
	return items, args.Error(1)
}

func (m *mockPlatform) ListDataCollections(ctx context.Context, integrationKey string) ([]core.DataCollection, error) {
	args := m.Called(ctx, integrationKey)
	items, _ := args.Get(0).([]core.DataCollection)
	return items, args.Error(1)
}

func (m *mockPlatform) GetDataCollection(ctx context.Context, integrationKey, collectionKey string) (*core.DataCollectionSpec, error) {
	args := m.Called(ctx, integrationKey, collectionKey)
	spec, _ := args.Get(0).(*core.DataCollectionSpec)
	return spec, args.Error(1)
}

func (m *mockPlatform) CreateAction(ctx context.Context, tmpl *platform.ActionTemplate) error {
	return m.Called(ctx, tmpl.Key).Error(0)
}

func (m *mockPlatform) PatchAction(ctx context.Context, integrationKey string, tmpl *platform.ActionTemplate) error {
	return m.Called(ctx, integrationKey, tmpl.Key).Error(0)
}

func (m *mockPlatform) CreateFlow(ctx context.Context, tmpl *platform.FlowTemplate) error {
	return m.Called(ctx, tmpl.Key).Error(0)
}

func (m *mockPlatform) PatchFlow(ctx context.Context, integrationKey string, tmpl *platform.FlowTemplate) error {
	return m.Called(ctx, integrationKey, tmpl.Key).Error(0)
}

const contactsSpec = `{
	"name": "contacts",
	"list": {},
	"create": {},
	"findById": {},
	"fieldsSchema": {"type": "object", "properties": {"email": {"type": "string"}}},
	"parametersSchema": {"type": "object", "properties": {"listId": {"type": "string"}}},
	"events": {"created": {}, "deleted": {}}
}`

func decodeSpec(t *testing.T, doc string) *core.DataCollectionSpec {
	t.Helper()
	var spec core.DataCollectionSpec
	require.NoError(t, json.Unmarshal([]byte(doc), &spec))
	return &spec
}

var hubspot = core.Integration{ID: "int-1", Key: "hubspot", Name: "HubSpot"}

func TestRunPublishesTemplates(t *testing.T) {
	p := &mockPlatform{}
	p.On("ListIntegrations", mock.Anything).Return([]core.Integration{hubspot}, nil)
	p.On("ListDataCollections", mock.Anything, "hubspot").Return([]core.DataCollection{{Key: "contacts", Name: "Contacts"}}, nil)
	p.On("GetDataCollection", mock.Anything, "hubspot", "contacts").Return(decodeSpec(t, contactsSpec), nil)
	p.On("CreateAction", mock.Anything, "list-contacts-hubspot").Return(nil)
	p.On("CreateAction", mock.Anything, "create-contacts-hubspot").Return(errors.New("already exists"))
	p.On("PatchAction", mock.Anything, "hubspot", "create-contacts-hubspot").Return(nil)
	p.On("CreateFlow", mock.Anything, "created-contacts-hubspot").Return(nil)
	p.On("CreateFlow", mock.Anything, "deleted-contacts-hubspot").Return(errors.New("already exists"))
	p.On("PatchFlow", mock.Anything, "hubspot", "deleted-contacts-hubspot").Return(errors.New("forbidden"))

	out := t.TempDir()
	var visited []string
	g := New(p, Options{OutputDir: out}, zaptest.NewLogger(t).Sugar())
	g.OnProgress(func(ik, ck string) { visited = append(visited, ik+"/"+ck) })

	summary, err := g.Run(context.Background())

	require.NoError(t, err)
	p.AssertExpectations(t)
	assert.Equal(t, []string{"hubspot/contacts"}, visited)
	assert.Equal(t, 1, summary.Integrations)
	assert.Equal(t, 1, summary.Collections)
	assert.Equal(t, 2, summary.Actions)
	assert.Equal(t, 2, summary.Flows)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 1, summary.Patched)
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, summary.Files, 4)

	for _, rel := range []string{
		"actions/hubspot/list-contacts-hubspot.yaml",
		"actions/hubspot/create-contacts-hubspot.yaml",
		"flows/hubspot/created-contacts-hubspot.yaml",
		"flows/hubspot/deleted-contacts-hubspot.yaml",
	} {
		assert.FileExists(t, filepath.Join(out, rel))
	}

	data, err := os.ReadFile(filepath.Join(out, "actions/hubspot/list-contacts-hubspot.yaml"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "list-data-records", doc["type"])
	assert.Equal(t, "int-1", doc["integrationId"])
}

func TestRunDryRunSkipsPublishing(t *testing.T) {
	p := &mockPlatform{}
	p.On("ListIntegrations", mock.Anything).Return([]core.Integration{hubspot}, nil)
	p.On("ListDataCollections", mock.Anything, "hubspot").Return([]core.DataCollection{{Key: "contacts"}}, nil)
	p.On("GetDataCollection", mock.Anything, "hubspot", "contacts").Return(decodeSpec(t, contactsSpec), nil)

	summary, err := New(p, Options{OutputDir: t.TempDir(), DryRun: true}, zaptest.NewLogger(t).Sugar()).Run(context.Background())

	require.NoError(t, err)
	p.AssertExpectations(t)
	p.AssertNotCalled(t, "CreateAction", mock.Anything, mock.Anything)
	p.AssertNotCalled(t, "CreateFlow", mock.Anything, mock.Anything)
	assert.Len(t, summary.Files, 4)
	assert.Zero(t, summary.Created)
}

func TestRunFiltersIntegration(t *testing.T) {
	p := &mockPlatform{}
	p.On("ListIntegrations", mock.Anything).Return([]core.Integration{hubspot, {ID: "int-2", Key: "slack"}}, nil)
	p.On("ListDataCollections", mock.Anything, "slack").Return([]core.DataCollection{}, nil)

	summary, err := New(p, Options{OutputDir: t.TempDir(), Integration: "slack"}, zaptest.NewLogger(t).Sugar()).Run(context.Background())

	require.NoError(t, err)
	p.AssertExpectations(t)
	assert.Equal(t, 1, summary.Integrations)

	_, err = New(p, Options{Integration: "nope"}, zaptest.NewLogger(t).Sugar()).Run(context.Background())
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRunContinuesPastBrokenCollection(t *testing.T) {
	p := &mockPlatform{}
	p.On("ListIntegrations", mock.Anything).Return([]core.Integration{hubspot}, nil)
	p.On("ListDataCollections", mock.Anything, "hubspot").Return([]core.DataCollection{{Key: "broken"}, {Key: "plain"}}, nil)
	p.On("GetDataCollection", mock.Anything, "hubspot", "broken").Return(nil, &core.PlatformError{Status: 500})
	p.On("GetDataCollection", mock.Anything, "hubspot", "plain").Return(decodeSpec(t, `{"name":"plain"}`), nil)

	summary, err := New(p, Options{OutputDir: t.TempDir(), DryRun: true}, zaptest.NewLogger(t).Sugar()).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Collections)
	assert.Zero(t, summary.Actions)
}

func TestRunAbortsOnListingFailure(t *testing.T) {
	p := &mockPlatform{}
	p.On("ListIntegrations", mock.Anything).Return(nil, core.ErrCircuitBreakerOpen)

	_, err := New(p, Options{}, zaptest.NewLogger(t).Sugar()).Run(context.Background())

	assert.ErrorIs(t, err, core.ErrCircuitBreakerOpen)
}

func TestRunHonoursCancellation(t *testing.T) {
	p := &mockPlatform{}
	p.On("ListIntegrations", mock.Anything).Return([]core.Integration{hubspot}, nil)
	p.On("ListDataCollections", mock.Anything, "hubspot").Return([]core.DataCollection{{Key: "contacts"}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(p, Options{OutputDir: t.TempDir(), Delay: DefaultDelay}, zaptest.NewLogger(t).Sugar()).Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	p.AssertNotCalled(t, "GetDataCollection", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckPathSegment(t *testing.T) {
	assert.NoError(t, checkPathSegment("list-contacts-hubspot"))
	for _, bad := range []string{"", ".", "..", "a/b", `a\b`} {
		assert.ErrorIs(t, checkPathSegment(bad), core.ErrInvalidInput, bad)
	}
}
