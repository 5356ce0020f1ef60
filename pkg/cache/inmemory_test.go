package cache_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/illmade-knight/go-telex/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockFetcher is a test double for the cache.Fetcher interface.
type mockFetcher[K comparable, V any] struct {
	FetchFunc func(ctx context.Context, key K) (V, error)
	closed    atomic.Bool
}

func (m *mockFetcher[K, V]) Fetch(ctx context.Context, key K) (V, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, key)
	}
	var zero V
	return zero, fmt.Errorf("mock fetcher not implemented")
}

func (m *mockFetcher[K, V]) Close() error {
	m.closed.Store(true)
	return nil
}

type airlineRow struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

func TestInMemoryCache_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("Miss with no fallback", func(t *testing.T) {
		// Arrange
		c := cache.NewInMemoryCache[string, airlineRow](nil)

		// Act
		_, err := c.Fetch(ctx, "ZZ")

		// Assert
		require.Error(t, err)
		assert.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("Fallback failure", func(t *testing.T) {
		// Arrange
		expectedErr := errors.New("source is down")
		mockSource := &mockFetcher[string, airlineRow]{
			FetchFunc: func(ctx context.Context, key string) (airlineRow, error) {
				return airlineRow{}, expectedErr
			},
		}
		c := cache.NewInMemoryCache[string, airlineRow](mockSource)

		// Act
		_, err := c.Fetch(ctx, "AT")

		// Assert
		require.Error(t, err)
		assert.ErrorIs(t, err, expectedErr)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("Fallback success and cache write-back", func(t *testing.T) {
		// Arrange
		var fetcherCallCount atomic.Int32
		mockSource := &mockFetcher[string, airlineRow]{
			FetchFunc: func(ctx context.Context, key string) (airlineRow, error) {
				fetcherCallCount.Add(1)
				if key == "AT" {
					return airlineRow{Name: "Royal Air Maroc", Country: "Morocco"}, nil
				}
				return airlineRow{}, cache.ErrNotFound
			},
		}
		c := cache.NewInMemoryCache[string, airlineRow](mockSource)

		// Act 1: First fetch is a miss and goes to the fallback.
		val1, err1 := c.Fetch(ctx, "AT")

		// Assert 1
		require.NoError(t, err1)
		assert.Equal(t, "Royal Air Maroc", val1.Name)
		assert.Equal(t, int32(1), fetcherCallCount.Load())

		// Act 2: Second fetch is served from the map.
		val2, err2 := c.Fetch(ctx, "AT")

		// Assert 2
		require.NoError(t, err2)
		assert.Equal(t, val1, val2)
		assert.Equal(t, int32(1), fetcherCallCount.Load(), "Fallback should not be called on a hit")
	})
}

func TestInMemoryCache_WriteInvalidateRange(t *testing.T) {
	// Arrange
	ctx := context.Background()
	c := cache.NewInMemoryCache[string, int](nil)
	require.NoError(t, c.WriteToCache(ctx, "CMN", 1))
	require.NoError(t, c.WriteToCache(ctx, "CDG", 2))

	// Act
	require.NoError(t, c.Invalidate(ctx, "CMN"))
	seen := map[string]int{}
	c.Range(func(k string, v int) bool {
		seen[k] = v
		return true
	})

	// Assert
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, map[string]int{"CDG": 2}, seen)
}

func TestInMemoryCache_CloseClosesFallback(t *testing.T) {
	// Arrange
	source := &mockFetcher[string, int]{}
	c := cache.NewInMemoryCache[string, int](source)

	// Act
	err := c.Close()

	// Assert
	require.NoError(t, err)
	assert.True(t, source.closed.Load())
}
