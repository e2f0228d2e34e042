package service

import (
	"context"
	"fmt"
	"time"

	"conduit/cache"
	"conduit/core"

	"go.uber.org/zap"
)

// CatalogPlatform defines the platform reads the catalog needs.
// Defined here (consumer package) so tests can substitute a mock.
type CatalogPlatform interface {
	ListIntegrations(ctx context.Context) ([]core.Integration, error)
	GetIntegration(ctx context.Context, key string) (*core.Integration, error)
	ListDataCollections(ctx context.Context, integrationKey string) ([]core.DataCollection, error)
	GetDataCollection(ctx context.Context, integrationKey, collectionKey string) (*core.DataCollectionSpec, error)
	GetConnectionDataCollection(ctx context.Context, connectionID, key string, parameters any) (*core.DataCollectionSpec, error)
	ListConnections(ctx context.Context) ([]core.Connection, error)
	GetConnection(ctx context.Context, id string) (*core.Connection, error)
	ListIntegrationActions(ctx context.Context, integrationKey string) ([]core.PlatformAction, error)
	ListFlows(ctx context.Context, integrationKey string) ([]core.Flow, error)
	GetFlowInstance(ctx context.Context, connectionID, flowKey string) (*core.FlowInstance, error)
}

// Cache key prefixes
const (
	cacheKeyCollections = "collections"
	cacheKeySpec        = "spec"
	cacheKeyConnSpec    = "conn-spec"
	cacheKeyActions     = "platform-actions"
	cacheKeyFlows       = "flows"
)

// CatalogServiceImpl serves the integration catalog.
//
// Data collection lists and specs, platform actions and flows change rarely
// and are cached. Anything that carries connection state is always read
// through: integrations (each with its connection), connections and flow
// instances.
type CatalogServiceImpl struct {
	platform CatalogPlatform
	cache    cache.Cache
	ttl      time.Duration
	logger   *zap.SugaredLogger
}

// NewCatalogService creates a catalog service. cache may be nil to disable caching.
func NewCatalogService(platform CatalogPlatform, c cache.Cache, ttl time.Duration, logger *zap.SugaredLogger) *CatalogServiceImpl {
	if platform == nil {
		panic("platform is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &CatalogServiceImpl{platform: platform, cache: c, ttl: ttl, logger: logger}
}

// cached reads key from the cache or loads and stores it. Cache failures
// are logged and never fail the read.
func cached[T any](ctx context.Context, s *CatalogServiceImpl, key string, load func(context.Context) (T, error)) (T, error) {
	var value T
	if s.cache != nil {
		ok, err := s.cache.Get(ctx, key, &value)
		if err != nil {
			s.logger.Warnw("Cache read failed", "key", key, "error", err)
		} else if ok {
			return value, nil
		}
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
			s.logger.Warnw("Cache write failed", "key", key, "error", err)
		}
	}
	return value, nil
}

// ListIntegrations returns every integration of the workspace with its
// current connection.
func (s *CatalogServiceImpl) ListIntegrations(ctx context.Context) ([]core.Integration, error) {
	return s.platform.ListIntegrations(ctx)
}

// GetIntegration returns one integration together with its connection, if any.
func (s *CatalogServiceImpl) GetIntegration(ctx context.Context, key string) (*core.Integration, error) {
	return s.platform.GetIntegration(ctx, key)
}

// ListDataCollections returns the data collections of an integration.
func (s *CatalogServiceImpl) ListDataCollections(ctx context.Context, integrationKey string) ([]core.DataCollection, error) {
	return cached(ctx, s, cache.Key(cacheKeyCollections, integrationKey), func(ctx context.Context) ([]core.DataCollection, error) {
		return s.platform.ListDataCollections(ctx, integrationKey)
	})
}

// GetDataCollection returns a data collection specification.
func (s *CatalogServiceImpl) GetDataCollection(ctx context.Context, integrationKey, collectionKey string) (*core.DataCollectionSpec, error) {
	return cached(ctx, s, cache.Key(cacheKeySpec, integrationKey, collectionKey), func(ctx context.Context) (*core.DataCollectionSpec, error) {
		return s.platform.GetDataCollection(ctx, integrationKey, collectionKey)
	})
}

// GetConnectionDataCollection returns a collection specification as seen
// through a connection, which may depend on collection parameters.
func (s *CatalogServiceImpl) GetConnectionDataCollection(ctx context.Context, connectionID, key string, parameters any) (*core.DataCollectionSpec, error) {
	return cached(ctx, s, cache.Key(cacheKeyConnSpec, connectionID, key, parameters), func(ctx context.Context) (*core.DataCollectionSpec, error) {
		return s.platform.GetConnectionDataCollection(ctx, connectionID, key, parameters)
	})
}

// ListIntegrationActions returns the platform actions defined for an integration.
func (s *CatalogServiceImpl) ListIntegrationActions(ctx context.Context, integrationKey string) ([]core.PlatformAction, error) {
	return cached(ctx, s, cache.Key(cacheKeyActions, integrationKey), func(ctx context.Context) ([]core.PlatformAction, error) {
		return s.platform.ListIntegrationActions(ctx, integrationKey)
	})
}

// ListFlows returns the flows of an integration.
func (s *CatalogServiceImpl) ListFlows(ctx context.Context, integrationKey string) ([]core.Flow, error) {
	return cached(ctx, s, cache.Key(cacheKeyFlows, integrationKey), func(ctx context.Context) ([]core.Flow, error) {
		return s.platform.ListFlows(ctx, integrationKey)
	})
}

// ListConnections returns the customer's connections.
func (s *CatalogServiceImpl) ListConnections(ctx context.Context) ([]core.Connection, error) {
	return s.platform.ListConnections(ctx)
}

// GetConnection returns a single connection.
func (s *CatalogServiceImpl) GetConnection(ctx context.Context, id string) (*core.Connection, error) {
	return s.platform.GetConnection(ctx, id)
}

// GetFlowInstance returns a flow enabled on a connection, used for trigger parameters.
func (s *CatalogServiceImpl) GetFlowInstance(ctx context.Context, connectionID, flowKey string) (*core.FlowInstance, error) {
	return s.platform.GetFlowInstance(ctx, connectionID, flowKey)
}

// MethodSchema returns the input schema of method on a collection. Only
// create and update need the collection specification.
func (s *CatalogServiceImpl) MethodSchema(ctx context.Context, integrationKey, collectionKey string, method core.Method) (core.DataSchema, error) {
	if !method.IsValid() {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownMethod, method)
	}
	if !method.WritesFields() {
		return core.MethodInputSchema(method, nil)
	}

	spec, err := s.GetDataCollection(ctx, integrationKey, collectionKey)
	if err != nil {
		return nil, fmt.Errorf("get data collection %s/%s: %w", integrationKey, collectionKey, err)
	}
	return core.MethodInputSchema(method, spec.FieldsSchema)
}
