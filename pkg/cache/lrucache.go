package cache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type lruEntry[K comparable, V any] struct {
	key   K
	value V
	// absent marks a code the fallback reported as unknown, kept until expires.
	absent  bool
	expires time.Time
}

// LRUOption configures an InMemoryLRUCache.
type LRUOption func(*lruOptions)

type lruOptions struct {
	negativeTTL time.Duration
	now         func() time.Time
}

// WithNegativeTTL remembers ErrNotFound answers from the fallback for ttl, so
// a code missing from the reference source is not re-fetched for every telex.
func WithNegativeTTL(ttl time.Duration) LRUOption {
	return func(o *lruOptions) { o.negativeTTL = ttl }
}

// InMemoryLRUCache is a size-bounded cache with least recently used eviction.
// It sits in front of a remote reference source so hot codes (the busiest
// airlines and airports) are served in process. Concurrent misses for the
// same key share one fallback call.
type InMemoryLRUCache[K comparable, V any] struct {
	maxSize  int
	fallback Fetcher[K, V]
	opts     lruOptions
	group    singleflight.Group

	mu      sync.Mutex
	order   *list.List
	entries map[K]*list.Element
}

// NewInMemoryLRUCache returns a cache holding at most maxSize keys. fallback
// may be nil, in which case only written values are served.
func NewInMemoryLRUCache[K comparable, V any](maxSize int, fallback Fetcher[K, V], opts ...LRUOption) (*InMemoryLRUCache[K, V], error) {
	if maxSize <= 0 {
		return nil, errors.New("maxSize must be greater than 0")
	}
	o := lruOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &InMemoryLRUCache[K, V]{
		maxSize:  maxSize,
		fallback: fallback,
		opts:     o,
		order:    list.New(),
		entries:  make(map[K]*list.Element),
	}, nil
}

// lookup returns the live entry for key and marks it most recently used.
func (c *InMemoryLRUCache[K, V]) lookup(key K) (*lruEntry[K, V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := elem.Value.(*lruEntry[K, V])
	if e.absent && !c.opts.now().Before(e.expires) {
		c.order.Remove(elem)
		delete(c.entries, key)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return e, true
}

func (c *InMemoryLRUCache[K, V]) Fetch(ctx context.Context, key K) (V, error) {
	var zero V
	if e, ok := c.lookup(key); ok {
		if e.absent {
			return zero, fmt.Errorf("%v (cached): %w", key, ErrNotFound)
		}
		return e.value, nil
	}
	if c.fallback == nil {
		return zero, fmt.Errorf("%v not in LRU cache and no fallback is configured: %w", key, ErrNotFound)
	}

	v, err, _ := c.group.Do(fmt.Sprint(key), func() (interface{}, error) {
		value, err := c.fallback.Fetch(ctx, key)
		switch {
		case err == nil:
			c.store(&lruEntry[K, V]{key: key, value: value})
		case errors.Is(err, ErrNotFound) && c.opts.negativeTTL > 0:
			c.store(&lruEntry[K, V]{key: key, absent: true, expires: c.opts.now().Add(c.opts.negativeTTL)})
		}
		return value, err
	})
	if err != nil {
		return zero, err
	}
	return v.(V), nil
}

// WriteToCache stores value as the most recently used entry.
func (c *InMemoryLRUCache[K, V]) WriteToCache(_ context.Context, key K, value V) error {
	c.store(&lruEntry[K, V]{key: key, value: value})
	return nil
}

func (c *InMemoryLRUCache[K, V]) store(e *lruEntry[K, V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[e.key]; ok {
		elem.Value = e
		c.order.MoveToFront(elem)
		return
	}
	c.entries[e.key] = c.order.PushFront(e)
	for c.order.Len() > c.maxSize {
		oldest := c.order.Remove(c.order.Back()).(*lruEntry[K, V])
		delete(c.entries, oldest.key)
	}
}

// Invalidate drops key from the cache. The fallback is not touched.
func (c *InMemoryLRUCache[K, V]) Invalidate(_ context.Context, key K) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.order.Remove(elem)
		delete(c.entries, key)
	}
	return nil
}

// Len counts cached keys, remembered unknown codes included.
func (c *InMemoryLRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Close closes the fallback, if any.
func (c *InMemoryLRUCache[K, V]) Close() error {
	if c.fallback != nil {
		return c.fallback.Close()
	}
	return nil
}
