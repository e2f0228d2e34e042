package bootstrap

import (
	"fmt"

	"conduit/config"
	"conduit/core"
	"conduit/platform"

	"go.uber.org/zap"
)

// NewPlatformClient builds a platform client from configuration. Admin
// clients act for the whole workspace and are used by the generator; the
// server acts as the configured customer.
func NewPlatformClient(cfg *config.Config, admin bool, sugar *zap.SugaredLogger) (*platform.Client, error) {
	identity := platform.Identity{
		CustomerID:   cfg.Platform.CustomerID,
		CustomerName: cfg.Platform.CustomerName,
		Admin:        admin,
	}

	tokens, err := platform.NewTokenSource(cfg.Platform.WorkspaceKey, cfg.Platform.WorkspaceSecret, identity, cfg.Platform.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create platform token source: %w", err)
	}

	cb := cfg.Platform.CircuitBreaker
	client, err := platform.NewClient(platform.Options{
		BaseURL:        cfg.Platform.BaseURL,
		Tokens:         tokens,
		RequestTimeout: cfg.Platform.RequestTimeout,
		RateLimit:      cfg.Platform.RateLimit,
		RateBurst:      cfg.Platform.RateBurst,
		CircuitBreaker: core.CircuitBreakerConfig{
			MaxFailures:         uint32(cb.MaxFailures),
			Timeout:             cb.Timeout,
			MaxHalfOpenRequests: uint32(cb.MaxHalfOpenRequests),
		},
	}, sugar)
	if err != nil {
		return nil, fmt.Errorf("failed to create platform client: %w", err)
	}
	return client, nil
}
