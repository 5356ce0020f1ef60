// Package cache provides generic read-through caches used to serve reference
// data lookups: an in-process map, a bounded LRU, Redis and a Firestore source.
package cache

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is wrapped by every cache and source when a key has no value.
var ErrNotFound = errors.New("key not found")

// Fetcher is a source of values by key. Caches chain by using another Fetcher
// as their fallback.
type Fetcher[K comparable, V any] interface {
	Fetch(ctx context.Context, key K) (V, error)
	io.Closer
}

// Cache is a Fetcher that can also be written to and invalidated.
type Cache[K comparable, V any] interface {
	Fetcher[K, V]
	WriteToCache(ctx context.Context, key K, value V) error
	Invalidate(ctx context.Context, key K) error
}
