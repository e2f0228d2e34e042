package cache

import (
	"context"
	"encoding/json"
	"time"

	"conduit/metrics"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const backendLRU = "lru"

// LRUCache is an in-process cache with a single entry lifetime. Values are
// stored encoded so callers never share mutable state through the cache.
type LRUCache struct {
	lru *expirable.LRU[string, []byte]
}

// NewLRUCache creates an LRU holding at most size entries for ttl each
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	if size <= 0 {
		size = 1024
	}
	return &LRUCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get retrieves a value from the cache
func (c *LRUCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	data, ok := c.lru.Get(key)
	if !ok {
		metrics.CacheMisses.WithLabelValues(backendLRU).Inc()
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		metrics.CacheErrors.WithLabelValues(backendLRU, "unmarshal").Inc()
		return false, err
	}
	metrics.CacheHits.WithLabelValues(backendLRU).Inc()
	return true, nil
}

// Set stores a value. The per-call ttl is ignored in favour of the cache-wide lifetime.
func (c *LRUCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := encode(value)
	if err != nil {
		metrics.CacheErrors.WithLabelValues(backendLRU, "encode").Inc()
		return err
	}
	c.lru.Add(key, data)
	return nil
}

// Delete removes a key from the cache
func (c *LRUCache) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// Len returns the number of live entries
func (c *LRUCache) Len() int {
	return c.lru.Len()
}

// Close purges the cache
func (c *LRUCache) Close() error {
	c.lru.Purge()
	return nil
}
