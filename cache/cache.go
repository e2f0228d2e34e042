// Package cache provides the read-through caches used for platform catalog data.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"conduit/config"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// MaxValueSize caps a single cached value
const MaxValueSize = 10 * 1024 * 1024

// maxPlainKeyPart is the longest key part kept verbatim; longer parts are hashed
const maxPlainKeyPart = 64

// Cache stores JSON-serialisable values under string keys
type Cache interface {
	// Get decodes the cached value into dest and reports whether it was present
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// New returns a Redis cache when an address is configured and reachable,
// otherwise an in-process LRU.
func New(ctx context.Context, cfg config.CacheConfig, logger *zap.SugaredLogger) Cache {
	if cfg.RedisAddr != "" {
		rc := NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.PoolSize, logger)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		err := rc.Ping(pingCtx)
		if err == nil {
			logger.Infow("Using Redis cache", "addr", cfg.RedisAddr)
			return rc
		}
		logger.Warnw("Redis unavailable, falling back to in-process cache", "addr", cfg.RedisAddr, "error", err)
		_ = rc.Close()
	}
	logger.Infow("Using in-process LRU cache", "size", cfg.LRUSize, "ttl", cfg.TTL)
	return NewLRUCache(cfg.LRUSize, cfg.TTL)
}

// Key joins parts into a cache key. Parts that are long or not strings are
// replaced by their xxhash so keys stay short and stable.
func Key(parts ...interface{}) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		var s string
		switch v := p.(type) {
		case string:
			s = v
		case fmt.Stringer:
			s = v.String()
		case nil:
			s = ""
		default:
			data, err := json.Marshal(v)
			if err != nil {
				data = []byte(fmt.Sprintf("%v", v))
			}
			s = fmt.Sprintf("%016x", xxhash.Sum64(data))
		}
		if len(s) > maxPlainKeyPart || strings.ContainsAny(s, ": \n") {
			s = fmt.Sprintf("%016x", xxhash.Sum64String(s))
		}
		out = append(out, s)
	}
	return strings.Join(out, ":")
}

func encode(value interface{}) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	if len(data) > MaxValueSize {
		return nil, fmt.Errorf("cache value size %d bytes exceeds maximum allowed size %d bytes", len(data), MaxValueSize)
	}
	return data, nil
}
