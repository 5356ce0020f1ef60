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

// RedisConfig holds the configuration for the Redis client.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// KeyPrefix namespaces keys so several reference tables can share one database.
	KeyPrefix string `mapstructure:"key_prefix"`
}

// RedisCache is a Cache backed by Redis with JSON encoded values and an optional
// fallback Fetcher consulted on a miss.
type RedisCache[K comparable, V any] struct {
	redisClient *redis.Client
	ownsClient  bool
	logger      zerolog.Logger
	ttl         time.Duration
	prefix      string
	fallback    Fetcher[K, V]
}

// NewRedisCache creates and connects a new RedisCache.
// It pings the Redis server to ensure connectivity before returning.
func NewRedisCache[K comparable, V any](
	ctx context.Context,
	cfg *RedisConfig,
	logger zerolog.Logger,
	fallback Fetcher[K, V],
) (*RedisCache[K, V], error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("redis_address", cfg.Addr).Str("prefix", cfg.KeyPrefix).Msg("Successfully connected to Redis.")

	c := NewRedisCacheWithClient[K, V](rdb, cfg, logger, fallback)
	c.ownsClient = true
	return c, nil
}

// NewRedisCacheWithClient wraps an existing client. Close leaves the client open.
func NewRedisCacheWithClient[K comparable, V any](
	client *redis.Client,
	cfg *RedisConfig,
	logger zerolog.Logger,
	fallback Fetcher[K, V],
) *RedisCache[K, V] {
	return &RedisCache[K, V]{
		redisClient: client,
		logger:      logger.With().Str("component", "RedisCache").Str("prefix", cfg.KeyPrefix).Logger(),
		ttl:         cfg.CacheTTL,
		prefix:      cfg.KeyPrefix,
		fallback:    fallback,
	}
}

// Fetch retrieves an item by key. It first checks Redis. On a cache miss, if a
// fallback is configured, it fetches from the fallback, writes the result back
// to Redis in the background, and returns the value.
func (c *RedisCache[K, V]) Fetch(ctx context.Context, key K) (V, error) {
	var zero V
	value, err := c.fetchFromRedis(ctx, key)
	if err == nil {
		return value, nil
	}

	// redis.Nil is a normal miss. Anything else is a genuine problem.
	if !errors.Is(err, redis.Nil) {
		c.logger.Error().Err(err).Msg("Unexpected Redis error during fetch.")
		return zero, err
	}

	if c.fallback == nil {
		return zero, fmt.Errorf("key '%v' not found in cache and no fallback is configured: %w", key, ErrNotFound)
	}

	sourceValue, sourceErr := c.fallback.Fetch(ctx, key)
	if sourceErr != nil {
		return zero, sourceErr
	}

	go func() {
		writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if writeErr := c.WriteToCache(writeCtx, key, sourceValue); writeErr != nil {
			c.logger.Error().Err(writeErr).Str("key", c.key(key)).Msg("Failed to write to cache in background.")
		}
	}()

	return sourceValue, nil
}

func (c *RedisCache[K, V]) key(key K) string {
	return c.prefix + fmt.Sprintf("%v", key)
}

func (c *RedisCache[K, V]) fetchFromRedis(ctx context.Context, key K) (V, error) {
	var zero V
	stringKey := c.key(key)
	cachedData, err := c.redisClient.Get(ctx, stringKey).Result()
	if err != nil {
		return zero, err
	}

	var value V
	if err := json.Unmarshal([]byte(cachedData), &value); err != nil {
		c.logger.Error().Err(err).Str("key", stringKey).Msg("Failed to unmarshal cached data.")
		return zero, fmt.Errorf("failed to unmarshal data: %w", err)
	}

	c.logger.Debug().Str("key", stringKey).Msg("Redis cache hit.")
	return value, nil
}

// WriteToCache stores value in Redis with the configured TTL.
func (c *RedisCache[K, V]) WriteToCache(ctx context.Context, key K, value V) error {
	stringKey := c.key(key)
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	if err := c.redisClient.Set(ctx, stringKey, jsonData, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	c.logger.Debug().Str("key", stringKey).Msg("Successfully stored data in Redis cache.")
	return nil
}

// Invalidate deletes key from Redis.
func (c *RedisCache[K, V]) Invalidate(ctx context.Context, key K) error {
	if err := c.redisClient.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del for %s: %w", c.key(key), err)
	}
	return nil
}

// Close closes the fallback and, when the cache created it, the Redis client.
func (c *RedisCache[K, V]) Close() error {
	var errs []error
	if c.fallback != nil {
		errs = append(errs, c.fallback.Close())
	}
	if c.ownsClient && c.redisClient != nil {
		c.logger.Info().Msg("Closing Redis client connection...")
		errs = append(errs, c.redisClient.Close())
	}
	return errors.Join(errs...)
}
