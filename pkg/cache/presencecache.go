package cache

import (
	"context"
	"io"
)

// PresenceCache remembers that something has been seen, with no source of
// truth behind it. The enrichment miss tracker keeps one marker per unknown
// reference code in it.
type PresenceCache[K comparable, V any] interface {
	// Add stores value only if key is absent and reports whether it did.
	Add(ctx context.Context, key K, value V) (bool, error)
	// Fetch returns ErrNotFound for absent or expired keys.
	Fetch(ctx context.Context, key K) (V, error)
	Delete(ctx context.Context, key K) error
	io.Closer
}
