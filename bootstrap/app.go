package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"conduit/api"
	"conduit/cache"
	"conduit/config"
	"conduit/schema"
	"conduit/service"
	"conduit/storage"
	"conduit/util/goroutine"

	"go.uber.org/zap"
)

// shutdownTimeout bounds how long in-flight requests may take to finish
const shutdownTimeout = 10 * time.Second

// PlatformClient is what the server needs from the platform client.
type PlatformClient interface {
	service.CatalogPlatform
	service.ActionRunner
	api.PlatformStatus
}

// Dependencies are the connected backends the services are built on.
type Dependencies struct {
	Actions   service.ActionStorage
	Workflows service.WorkflowStorage
	Platform  PlatformClient
	Cache     cache.Cache
	Health    api.HealthChecker
}

// App represents the Conduit server with all its components.
type App struct {
	// Configuration
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	// Backends
	Mongo    *storage.MongoDB
	Cache    cache.Cache
	Platform PlatformClient

	APIServer *api.API

	// Lifecycle
	serviceWg *sync.WaitGroup
	errCh     chan error
}

// NewApp loads configuration and connects every backend.
func NewApp(ctx context.Context) (*App, error) {
	// The log settings live in the config, so start with a console logger
	// and rebuild it once the config is loaded.
	logger, sugar, err := InitLogger("info", "console")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := InitConfig(sugar)
	if err != nil {
		return nil, err
	}
	if logger, sugar, err = InitLogger(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Sugar:     sugar,
		serviceWg: &sync.WaitGroup{},
		errCh:     make(chan error, 1),
	}
	sugar.Info("Conduit starting...")

	mongoDB, err := storage.NewMongoDB(cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.MaxPoolSize, cfg.MongoDB.Timeout, sugar)
	if err != nil {
		sugar.Error(ClassifyConnectionError(err, "MongoDB", RedactURI(cfg.MongoDB.URI)))
		return nil, err
	}
	app.Mongo = mongoDB

	actionStorage := storage.NewActionStorage(mongoDB, sugar)
	workflowStorage := storage.NewWorkflowStorage(mongoDB, sugar)
	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := actionStorage.EnsureIndexes(indexCtx); err != nil {
		app.closeBackends()
		return nil, fmt.Errorf("failed to create action indexes: %w", err)
	}
	if err := workflowStorage.EnsureIndexes(indexCtx); err != nil {
		app.closeBackends()
		return nil, fmt.Errorf("failed to create workflow indexes: %w", err)
	}

	app.Cache = cache.New(ctx, cfg.Cache, sugar)

	client, err := NewPlatformClient(cfg, false, sugar)
	if err != nil {
		app.closeBackends()
		return nil, err
	}
	app.Platform = client

	app.APIServer = NewAPIServer(cfg, Dependencies{
		Actions:   actionStorage,
		Workflows: workflowStorage,
		Platform:  client,
		Cache:     app.Cache,
		Health:    mongoDB,
	}, sugar)

	return app, nil
}

// NewAPIServer builds the services on top of deps and the API around them.
func NewAPIServer(cfg *config.Config, deps Dependencies, sugar *zap.SugaredLogger) *api.API {
	catalog := service.NewCatalogService(deps.Platform, deps.Cache, cfg.Cache.TTL, sugar)
	resolver := schema.NewResolver(catalog)
	actions := service.NewActionService(deps.Actions, deps.Platform, catalog, resolver, cfg.Actions.ValidateInput, sugar)
	workflows := service.NewWorkflowService(deps.Workflows, deps.Platform, cfg.Workflows.NodeTimeout, sugar)

	return api.NewAPI(api.Services{
		Catalog:   catalog,
		Actions:   actions,
		Workflows: workflows,
		Resolver:  resolver,
		Health:    deps.Health,
		Platform:  deps.Platform,
	}, cfg, sugar)
}

// Start runs the API server in the background.
func (a *App) Start(ctx context.Context) error {
	if a.APIServer == nil {
		return fmt.Errorf("API server not initialized")
	}

	a.serviceWg.Add(1)
	goroutine.Go("api-server", a.Sugar, func() {
		defer a.serviceWg.Done()
		if err := a.APIServer.Start(); err != nil {
			a.Sugar.Errorw("API server error", "error", err)
			a.errCh <- err
		}
	})

	a.Sugar.Infow("Conduit started", "port", a.Config.Server.Port)
	return nil
}

// WaitForShutdown blocks until a shutdown signal is received or the API
// server stops on its own.
func (a *App) WaitForShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		a.Sugar.Infow("Shutdown signal received", "signal", sig.String())
	case <-a.errCh:
	}
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown() {
	a.Sugar.Info("Shutting down...")

	// Phase 1 - Stop accepting requests and drain in-flight ones
	a.Sugar.Info("Phase 1: Stopping API server...")
	if a.APIServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := a.APIServer.Stop(ctx); err != nil {
			a.Sugar.Errorw("Failed to stop API server", "error", err)
		}
		cancel()
	}

	// Phase 2 - Wait for the server goroutine
	a.Sugar.Info("Phase 2: Waiting for service goroutines to complete...")
	done := make(chan struct{})
	go func() {
		a.serviceWg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout + 5*time.Second):
		a.Sugar.Warn("Service goroutine shutdown timed out")
	}

	// Phase 3 - Close backends
	a.Sugar.Info("Phase 3: Closing backend connections...")
	a.closeBackends()

	a.Sugar.Info("Shutdown complete")
	_ = a.Logger.Sync()
}

func (a *App) closeBackends() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Sugar.Errorw("Failed to close cache", "error", err)
		}
	}
	if a.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Mongo.Close(ctx); err != nil {
			a.Sugar.Errorw("Failed to disconnect MongoDB", "error", err)
		}
	}
}
