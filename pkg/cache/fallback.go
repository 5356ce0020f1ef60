package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// FetcherConfig holds configuration for the cache-fallback fetcher.
type FetcherConfig struct {
	CacheWriteTimeout time.Duration
}

// CacheFallbackFetcher reads through a Cache to a source of truth. Source hits
// are written back to the cache in the background.
type CacheFallbackFetcher[K comparable, V any] struct {
	cacheTimeout time.Duration
	logger       zerolog.Logger
	cache        Cache[K, V]
	source       Fetcher[K, V]
}

// NewCacheFallbackFetcher creates a Fetcher that uses a cache-then-source strategy.
func NewCacheFallbackFetcher[K comparable, V any](
	cfg *FetcherConfig,
	cache Cache[K, V],
	source Fetcher[K, V],
	logger zerolog.Logger,
) *CacheFallbackFetcher[K, V] {
	timeout := cfg.CacheWriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CacheFallbackFetcher[K, V]{
		cacheTimeout: timeout,
		logger:       logger.With().Str("component", "CacheFallbackFetcher").Logger(),
		cache:        cache,
		source:       source,
	}
}

// Fetch tries the cache, then the source.
func (c *CacheFallbackFetcher[K, V]) Fetch(ctx context.Context, key K) (V, error) {
	var zero V
	value, err := c.cache.Fetch(ctx, key)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, ErrNotFound) {
		c.logger.Warn().Err(err).Msg("Cache read failed. Falling back to source.")
	}

	value, err = c.source.Fetch(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return zero, err
		}
		return zero, fmt.Errorf("error fetching from source: %w", err)
	}

	go func(k K, v V) {
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cacheTimeout)
		defer cancel()
		if writeErr := c.cache.WriteToCache(writeCtx, k, v); writeErr != nil {
			c.logger.Error().Err(writeErr).Str("key", fmt.Sprintf("%v", k)).Msg("Failed to write to cache in background.")
		}
	}(key, value)

	return value, nil
}

// Close closes the cache, then the source.
func (c *CacheFallbackFetcher[K, V]) Close() error {
	if err := c.cache.Close(); err != nil {
		return fmt.Errorf("error closing cache: %w", err)
	}
	if err := c.source.Close(); err != nil {
		return fmt.Errorf("error closing source: %w", err)
	}
	return nil
}
