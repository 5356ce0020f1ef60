package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisPresenceCache shares markers between telexd instances. Markers expire
// after CacheTTL; zero keeps them until deleted.
type RedisPresenceCache[K comparable, V any] struct {
	rdb        *redis.Client
	ownsClient bool
	ttl        time.Duration
	prefix     string
	logger     zerolog.Logger
}

// NewRedisPresenceCache dials Redis and pings it before returning.
func NewRedisPresenceCache[K comparable, V any](ctx context.Context, cfg *RedisConfig, logger zerolog.Logger) (*RedisPresenceCache[K, V], error) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis for presence cache: %w", err)
	}
	c := NewRedisPresenceCacheWithClient[K, V](rdb, cfg, logger)
	c.ownsClient = true
	c.logger.Info().Str("redis_address", cfg.Addr).Msg("Connected presence cache to Redis.")
	return c, nil
}

// NewRedisPresenceCacheWithClient wraps an existing client. Close leaves the client open.
func NewRedisPresenceCacheWithClient[K comparable, V any](rdb *redis.Client, cfg *RedisConfig, logger zerolog.Logger) *RedisPresenceCache[K, V] {
	return &RedisPresenceCache[K, V]{
		rdb:    rdb,
		ttl:    cfg.CacheTTL,
		prefix: cfg.KeyPrefix,
		logger: logger.With().Str("component", "RedisPresenceCache").Str("prefix", cfg.KeyPrefix).Logger(),
	}
}

func (c *RedisPresenceCache[K, V]) key(key K) string {
	return fmt.Sprintf("%s%v", c.prefix, key)
}

// Add uses SETNX so exactly one instance sees true for a new marker.
func (c *RedisPresenceCache[K, V]) Add(ctx context.Context, key K, value V) (bool, error) {
	k := c.key(key)
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("encode marker %s: %w", k, err)
	}
	added, err := c.rdb.SetNX(ctx, k, data, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", k, err)
	}
	return added, nil
}

func (c *RedisPresenceCache[K, V]) Fetch(ctx context.Context, key K) (V, error) {
	var value V
	k := c.key(key)
	data, err := c.rdb.Get(ctx, k).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return value, fmt.Errorf("marker %s: %w", k, ErrNotFound)
	case err != nil:
		return value, fmt.Errorf("redis get %s: %w", k, err)
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("decode marker %s: %w", k, err)
	}
	return value, nil
}

func (c *RedisPresenceCache[K, V]) Delete(ctx context.Context, key K) error {
	if err := c.rdb.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", c.key(key), err)
	}
	return nil
}

// Close closes the client when the cache dialled it.
func (c *RedisPresenceCache[K, V]) Close() error {
	if c.ownsClient {
		return c.rdb.Close()
	}
	return nil
}
