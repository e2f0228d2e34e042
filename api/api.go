// Package api Conduit integration console API
//
//	@title			Conduit API
//	@version		1.0
//	@description	Backend of the integration console: catalog browsing, saved actions, workflows and dynamic schemas
//
// @license.name	MIT
// @license.url	https://opensource.org/licenses/MIT
//
// @BasePath	/
// @securityDefinitions.basic	BasicAuth
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"conduit/config"
	"conduit/core"
	"conduit/schema"
	"conduit/util/goroutine"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// rateLimiterEntry holds a rate limiter with last seen time
type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// authFailureEntry holds auth failure count and last failure time
type authFailureEntry struct {
	count    int
	lastFail time.Time
}

// CatalogService serves integration platform reads
type CatalogService interface {
	ListIntegrations(ctx context.Context) ([]core.Integration, error)
	GetIntegration(ctx context.Context, key string) (*core.Integration, error)
	ListDataCollections(ctx context.Context, integrationKey string) ([]core.DataCollection, error)
	GetDataCollection(ctx context.Context, integrationKey, collectionKey string) (*core.DataCollectionSpec, error)
	MethodSchema(ctx context.Context, integrationKey, collectionKey string, method core.Method) (core.DataSchema, error)
	ListIntegrationActions(ctx context.Context, integrationKey string) ([]core.PlatformAction, error)
	ListFlows(ctx context.Context, integrationKey string) ([]core.Flow, error)
	ListConnections(ctx context.Context) ([]core.Connection, error)
	GetConnection(ctx context.Context, id string) (*core.Connection, error)
	GetFlowInstance(ctx context.Context, connectionID, flowKey string) (*core.FlowInstance, error)
}

// ActionService manages saved actions and test runs
type ActionService interface {
	Save(ctx context.Context, action *core.Action) (string, error)
	List(ctx context.Context, offset, limit int) ([]core.Action, int64, error)
	Get(ctx context.Context, id string) (*core.Action, error)
	Delete(ctx context.Context, id string) error
	TestMethod(ctx context.Context, connectionID, collectionKey string, method core.Method, parameters map[string]any, input any) (*core.TestResult, error)
	TestSaved(ctx context.Context, id string) (*core.TestResult, error)
	RunPlatformAction(ctx context.Context, connectionID, actionKey string, input any) (*core.TestResult, error)
}

// WorkflowService manages workflows
type WorkflowService interface {
	Create(ctx context.Context, name string) (*core.Workflow, error)
	List(ctx context.Context, offset, limit int) ([]core.Workflow, int64, error)
	Get(ctx context.Context, id string) (*core.Workflow, error)
	Rename(ctx context.Context, id, name string) (*core.Workflow, error)
	Delete(ctx context.Context, id string) error
	ReplaceNodes(ctx context.Context, id string, nodes []core.WorkflowNode, expectedVersion *int64) (*core.Workflow, error)
	AddNode(ctx context.Context, id, afterID string, node core.WorkflowNode) (*core.Workflow, *core.WorkflowNode, error)
	UpdateNode(ctx context.Context, id, nodeID string, node core.WorkflowNode) (*core.Workflow, error)
	RemoveNode(ctx context.Context, id, nodeID string) (*core.Workflow, error)
	SetTrigger(ctx context.Context, id string, trigger core.WorkflowNode) (*core.Workflow, error)
	Graph(ctx context.Context, id string) (*core.Graph, error)
	Run(ctx context.Context, id string, triggerInput any, observer func(core.StepResult)) (*core.RunResult, error)
}

// SchemaResolver resolves dynamic data schemas
type SchemaResolver interface {
	Resolve(ctx context.Context, s core.DataSchema, connectionID string, value any) schema.Result
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// PlatformStatus exposes the platform client's circuit state
type PlatformStatus interface {
	BreakerState() core.CircuitBreakerState
}

// Services bundles the handlers' collaborators. Health and Platform may be nil.
type Services struct {
	Catalog   CatalogService
	Actions   ActionService
	Workflows WorkflowService
	Resolver  SchemaResolver
	Health    HealthChecker
	Platform  PlatformStatus
}

// API holds the API server
type API struct {
	router         *mux.Router
	server         *http.Server
	catalog        CatalogService
	actions        ActionService
	workflows      WorkflowService
	resolver       SchemaResolver
	health         HealthChecker
	platform       PlatformStatus
	config         *config.Config
	logger         *zap.SugaredLogger
	rateLimiters   map[string]*rateLimiterEntry
	rateLimitersMu sync.Mutex
	authFailures   map[string]*authFailureEntry
	authFailuresMu sync.Mutex
	stopCh         chan struct{}
	stopOnce       sync.Once
}

// NewAPI creates a new API server
func NewAPI(services Services, cfg *config.Config, logger *zap.SugaredLogger) *API {
	a := &API{
		router:       mux.NewRouter(),
		catalog:      services.Catalog,
		actions:      services.Actions,
		workflows:    services.Workflows,
		resolver:     services.Resolver,
		health:       services.Health,
		platform:     services.Platform,
		config:       cfg,
		logger:       logger,
		rateLimiters: make(map[string]*rateLimiterEntry),
		authFailures: make(map[string]*authFailureEntry),
		stopCh:       make(chan struct{}),
	}
	a.setupRoutes()
	goroutine.Go("rate-limiter-cleanup", logger, a.cleanupRateLimiters)
	return a
}

// setupRoutes sets up the API routes
func (a *API) setupRoutes() {
	a.router.Use(a.recoveryMiddleware)
	a.router.Use(a.requestIDMiddleware)
	a.router.Use(a.metricsMiddleware)
	a.router.Use(a.corsMiddleware)
	a.router.Use(a.rateLimitMiddleware)
	a.router.Use(a.bodyLimitMiddleware)

	a.router.HandleFunc("/health", a.healthCheck).Methods("GET")
	a.router.Handle("/metrics", promhttp.Handler())
	a.router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	r := a.router.PathPrefix("/api").Subrouter()
	if a.config.Auth.Enabled {
		r.Use(a.basicAuthMiddleware)
	}

	// Catalog
	r.HandleFunc("/integrations", a.listIntegrations).Methods("GET")
	r.HandleFunc("/integrations/{key}", a.getIntegration).Methods("GET")
	r.HandleFunc("/integrations/{key}/collections", a.listDataCollections).Methods("GET")
	r.HandleFunc("/integrations/{key}/collections/{collectionKey}", a.getDataCollection).Methods("GET")
	r.HandleFunc("/integrations/{key}/collections/{collectionKey}/methods/{method}/schema", a.getMethodSchema).Methods("GET")
	r.HandleFunc("/integrations/{key}/actions", a.listIntegrationActions).Methods("GET")
	r.HandleFunc("/integrations/{key}/flows", a.listFlows).Methods("GET")
	r.HandleFunc("/connections", a.listConnections).Methods("GET")
	r.HandleFunc("/connections/{id}", a.getConnection).Methods("GET")
	r.HandleFunc("/connections/{id}/flows/{flowKey}", a.getFlowInstance).Methods("GET")
	r.HandleFunc("/connections/{id}/collections/{collectionKey}/methods/{method}/test", a.testMethod).Methods("POST")
	r.HandleFunc("/connections/{id}/actions/{actionKey}/run", a.runPlatformAction).Methods("POST")
	r.HandleFunc("/methods", a.listMethods).Methods("GET")

	// Schemas
	r.HandleFunc("/schema/resolve", a.resolveSchema).Methods("POST")
	r.HandleFunc("/schema/validate", a.validateSchema).Methods("POST")

	// Saved actions
	r.HandleFunc("/actions", a.createAction).Methods("POST")
	r.HandleFunc("/actions", a.getActions).Methods("GET")
	r.HandleFunc("/actions/{id}", a.getAction).Methods("GET")
	r.HandleFunc("/actions/{id}", a.deleteAction).Methods("DELETE")
	r.HandleFunc("/actions/{id}/test", a.testAction).Methods("POST")

	// Workflows
	r.HandleFunc("/workflows", a.createWorkflow).Methods("POST")
	r.HandleFunc("/workflows", a.getWorkflows).Methods("GET")
	r.HandleFunc("/workflows/{id}", a.getWorkflow).Methods("GET")
	r.HandleFunc("/workflows/{id}", a.renameWorkflow).Methods("PATCH")
	r.HandleFunc("/workflows/{id}", a.deleteWorkflow).Methods("DELETE")
	r.HandleFunc("/workflows/{id}/nodes", a.replaceNodes).Methods("PUT")
	r.HandleFunc("/workflows/{id}/nodes", a.addNode).Methods("POST")
	r.HandleFunc("/workflows/{id}/nodes/{nodeId}", a.updateNode).Methods("PUT")
	r.HandleFunc("/workflows/{id}/nodes/{nodeId}", a.removeNode).Methods("DELETE")
	r.HandleFunc("/workflows/{id}/trigger", a.setTrigger).Methods("PUT")
	r.HandleFunc("/workflows/{id}/graph", a.getWorkflowGraph).Methods("GET")
	r.HandleFunc("/workflows/{id}/run", a.runWorkflow).Methods("POST")
	r.HandleFunc("/workflows/{id}/run/stream", a.streamWorkflowRun).Methods("GET")
}

// Handler returns the root HTTP handler
func (a *API) Handler() http.Handler {
	return a.router
}

// Start starts the API server and blocks until it stops
func (a *API) Start() error {
	a.server = &http.Server{
		Addr:         net.JoinHostPort(a.config.Server.Host, strconv.Itoa(a.config.Server.Port)),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}
	a.logger.Infow("API server listening", "addr", a.server.Addr, "tls", a.config.Server.TLS)

	var err error
	if a.config.Server.TLS {
		err = a.server.ListenAndServeTLS(a.config.Server.CertFile, a.config.Server.KeyFile)
	} else {
		err = a.server.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("API server failed: %w", err)
	}
	return nil
}

// Stop stops the API server
func (a *API) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() { close(a.stopCh) })
	if a.server != nil {
		return a.server.Shutdown(ctx)
	}
	return nil
}
