package cache

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryCache is a thread-safe map cache with an optional fallback Fetcher.
// Values fetched from the fallback are stored for later lookups.
type InMemoryCache[K comparable, V any] struct {
	mu       sync.RWMutex
	data     map[K]V
	fallback Fetcher[K, V]
}

// NewInMemoryCache creates a new in-memory cache. fallback may be nil.
func NewInMemoryCache[K comparable, V any](fallback Fetcher[K, V]) *InMemoryCache[K, V] {
	return &InMemoryCache[K, V]{
		data:     make(map[K]V),
		fallback: fallback,
	}
}

// Fetch returns the stored value for key, consulting the fallback on a miss.
func (c *InMemoryCache[K, V]) Fetch(ctx context.Context, key K) (V, error) {
	c.mu.RLock()
	value, ok := c.data[key]
	c.mu.RUnlock()
	if ok {
		return value, nil
	}

	var zero V
	if c.fallback == nil {
		return zero, fmt.Errorf("key '%v' not found in cache and no fallback is configured: %w", key, ErrNotFound)
	}
	value, err := c.fallback.Fetch(ctx, key)
	if err != nil {
		return zero, err
	}
	_ = c.WriteToCache(ctx, key, value)
	return value, nil
}

// WriteToCache stores value under key.
func (c *InMemoryCache[K, V]) WriteToCache(_ context.Context, key K, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

// Invalidate removes key. The fallback is not touched.
func (c *InMemoryCache[K, V]) Invalidate(_ context.Context, key K) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// Len reports the number of stored keys.
func (c *InMemoryCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Range calls fn for every stored entry until fn returns false. The cache is
// read-locked for the duration, so fn must not write to it.
func (c *InMemoryCache[K, V]) Range(fn func(key K, value V) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for k, v := range c.data {
		if !fn(k, v) {
			return
		}
	}
}

// Close closes the fallback, if any.
func (c *InMemoryCache[K, V]) Close() error {
	if c.fallback != nil {
		return c.fallback.Close()
	}
	return nil
}
