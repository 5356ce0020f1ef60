package cache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/illmade-knight/go-telex/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryPresenceCache(t *testing.T) {
	ctx := context.Background()

	t.Run("Fetch miss", func(t *testing.T) {
		c := cache.NewInMemoryPresenceCache[string, int64](0)
		_, err := c.Fetch(ctx, "airline:ZZ")
		assert.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("Add keeps the first value", func(t *testing.T) {
		// Arrange
		c := cache.NewInMemoryPresenceCache[string, int64](0)

		// Act
		first, _ := c.Add(ctx, "airline:ZZ", 10)
		second, _ := c.Add(ctx, "airline:ZZ", 20)

		// Assert
		assert.True(t, first)
		assert.False(t, second)
		got, err := c.Fetch(ctx, "airline:ZZ")
		require.NoError(t, err)
		assert.Equal(t, int64(10), got)

		require.NoError(t, c.Delete(ctx, "airline:ZZ"))
		assert.Equal(t, 0, c.Len())
	})

	t.Run("marker expires after the TTL", func(t *testing.T) {
		// Arrange
		c := cache.NewInMemoryPresenceCache[string, int64](20 * time.Millisecond)
		added, _ := c.Add(ctx, "airport:XXX", 1)
		require.True(t, added)

		// Act
		time.Sleep(40 * time.Millisecond)

		// Assert
		_, err := c.Fetch(ctx, "airport:XXX")
		assert.ErrorIs(t, err, cache.ErrNotFound)
		added, _ = c.Add(ctx, "airport:XXX", 2)
		assert.True(t, added)
	})

	t.Run("Add under contention stores once", func(t *testing.T) {
		// Arrange
		c := cache.NewInMemoryPresenceCache[string, int64](time.Minute)
		var added atomic.Int32
		var wg sync.WaitGroup

		// Act
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := c.Add(ctx, "aircraft:999", 1); ok {
					added.Add(1)
				}
			}()
		}
		wg.Wait()

		// Assert
		assert.Equal(t, int32(1), added.Load())
		assert.Equal(t, 1, c.Len())
	})
}
