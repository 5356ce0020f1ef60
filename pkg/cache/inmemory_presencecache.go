package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type presenceEntry[V any] struct {
	value   V
	expires time.Time
}

// InMemoryPresenceCache keeps markers in process. With a positive TTL a
// marker expires like its Redis counterpart, so a missing code is reported
// again once per TTL.
type InMemoryPresenceCache[K comparable, V any] struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	data map[K]presenceEntry[V]
}

// NewInMemoryPresenceCache returns a cache whose markers live for ttl; zero
// keeps them for the life of the process.
func NewInMemoryPresenceCache[K comparable, V any](ttl time.Duration) *InMemoryPresenceCache[K, V] {
	return &InMemoryPresenceCache[K, V]{
		ttl:  ttl,
		now:  time.Now,
		data: make(map[K]presenceEntry[V]),
	}
}

// live returns the entry for key, dropping it if it has expired. Callers hold mu.
func (c *InMemoryPresenceCache[K, V]) live(key K) (presenceEntry[V], bool) {
	e, ok := c.data[key]
	if ok && !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.data, key)
		return e, false
	}
	return e, ok
}

func (c *InMemoryPresenceCache[K, V]) Add(_ context.Context, key K, value V) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.live(key); ok {
		return false, nil
	}
	e := presenceEntry[V]{value: value}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	c.data[key] = e
	return true, nil
}

func (c *InMemoryPresenceCache[K, V]) Fetch(_ context.Context, key K) (V, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.live(key)
	if !ok {
		var zero V
		return zero, fmt.Errorf("marker %v: %w", key, ErrNotFound)
	}
	return e.value, nil
}

func (c *InMemoryPresenceCache[K, V]) Delete(_ context.Context, key K) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// Len counts live markers.
func (c *InMemoryPresenceCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.data {
		if _, ok := c.live(k); ok {
			n++
		}
	}
	return n
}

func (c *InMemoryPresenceCache[K, V]) Close() error { return nil }
