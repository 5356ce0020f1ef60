package reference

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/illmade-knight/go-telex/pkg/cache"
	"github.com/illmade-knight/go-telex/pkg/circuitbreaker"
)

// RemoteConfig describes the shared reference store: Firestore collections
// fronted by Redis and a per-process LRU.
type RemoteConfig struct {
	ProjectID   string            `mapstructure:"project_id"`
	Collections Paths             `mapstructure:"collections"`
	Redis       cache.RedisConfig `mapstructure:"redis"`
	LRUSize     int               `mapstructure:"lru_size"`
}

// RemoteTable looks codes up through a cache chain guarded by a circuit breaker.
// Unknown codes do not count against the breaker.
type RemoteTable[V any] struct {
	name    string
	fetcher cache.Fetcher[string, V]
	breaker *circuitbreaker.Wrapper
}

// unknownCodeTTL is how long the LRU remembers a code the source does not know.
const unknownCodeTTL = 5 * time.Minute

// NewRemoteTable chains an LRU of lruSize in front of redisClient (when not nil)
// in front of source.
func NewRemoteTable[V any](
	name string,
	source cache.Fetcher[string, V],
	redisClient *redis.Client,
	redisCfg cache.RedisConfig,
	lruSize int,
	logger zerolog.Logger,
) (*RemoteTable[V], error) {
	var chain cache.Fetcher[string, V] = source
	if redisClient != nil {
		cfg := redisCfg
		cfg.KeyPrefix = redisCfg.KeyPrefix + name + ":"
		shared := cache.NewRedisCacheWithClient[string, V](redisClient, &cfg, logger, nil)
		chain = cache.NewCacheFallbackFetcher[string, V](&cache.FetcherConfig{CacheWriteTimeout: 5 * time.Second}, shared, source, logger)
	}
	if lruSize > 0 {
		lru, err := cache.NewInMemoryLRUCache[string, V](lruSize, chain, cache.WithNegativeTTL(unknownCodeTTL))
		if err != nil {
			return nil, err
		}
		chain = lru
	}

	cbCfg := circuitbreaker.DefaultConfig("reference-" + name)
	cbCfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, cache.ErrNotFound)
	}
	cbCfg.OnStateChange = func(n string, from, to gobreaker.State) {
		logger.Warn().Str("breaker", n).Str("from", from.String()).Str("to", to.String()).Msg("Reference breaker changed state.")
	}

	return &RemoteTable[V]{
		name:    name,
		fetcher: chain,
		breaker: circuitbreaker.NewWrapper(cbCfg),
	}, nil
}

// Lookup returns the row for code or an error wrapping ErrNotFound.
func (t *RemoteTable[V]) Lookup(ctx context.Context, code string) (V, error) {
	var zero V
	code = normalizeCode(code)
	if code == "" {
		return zero, fmt.Errorf("%s: empty code: %w", t.name, ErrNotFound)
	}
	res, err := t.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		return t.fetcher.Fetch(ctx, code)
	})
	if err != nil {
		return zero, fmt.Errorf("%s %q: %w", t.name, code, err)
	}
	return res.(V), nil
}

// Close closes the cache chain.
func (t *RemoteTable[V]) Close() error {
	return t.fetcher.Close()
}

// RemoteDataset holds the remote tables and the Redis client they share.
type RemoteDataset struct {
	Airlines  *RemoteTable[Airline]
	Airports  *RemoteTable[Airport]
	Aircraft  *RemoteTable[Aircraft]
	Countries *RemoteTable[Country]
	redis     *redis.Client
}

// Dataset exposes the remote tables through the Source interface.
func (d *RemoteDataset) Dataset() *Dataset {
	return &Dataset{Airlines: d.Airlines, Airports: d.Airports, Aircraft: d.Aircraft, Countries: d.Countries}
}

// Close releases the shared Redis client. The Firestore client belongs to the caller.
func (d *RemoteDataset) Close() error {
	if d.redis != nil {
		return d.redis.Close()
	}
	return nil
}

var _ io.Closer = (*RemoteDataset)(nil)

// OpenRemote builds the four remote tables over fs. Redis is used when
// cfg.Redis.Addr is set.
func OpenRemote(ctx context.Context, cfg RemoteConfig, fs *firestore.Client, logger zerolog.Logger) (*RemoteDataset, error) {
	log := logger.With().Str("component", "RemoteReference").Logger()

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	d := &RemoteDataset{redis: rdb}
	var err error
	if d.Airlines, err = openRemoteTable[Airline](cfg, KindAirlines, cfg.Collections.Airlines, fs, rdb, log); err != nil {
		return nil, errors.Join(err, d.Close())
	}
	if d.Airports, err = openRemoteTable[Airport](cfg, KindAirports, cfg.Collections.Airports, fs, rdb, log); err != nil {
		return nil, errors.Join(err, d.Close())
	}
	if d.Aircraft, err = openRemoteTable[Aircraft](cfg, KindAircraft, cfg.Collections.Aircraft, fs, rdb, log); err != nil {
		return nil, errors.Join(err, d.Close())
	}
	if d.Countries, err = openRemoteTable[Country](cfg, KindCountries, cfg.Collections.Countries, fs, rdb, log); err != nil {
		return nil, errors.Join(err, d.Close())
	}
	log.Info().Str("project_id", cfg.ProjectID).Bool("redis", rdb != nil).Msg("Remote reference tables ready.")
	return d, nil
}

func openRemoteTable[V any](cfg RemoteConfig, kind Kind, collection string, fs *firestore.Client, rdb *redis.Client, logger zerolog.Logger) (*RemoteTable[V], error) {
	if collection == "" {
		collection = string(kind)
	}
	source, err := cache.NewFirestoreSource[string, V](&cache.FirestoreConfig{ProjectID: cfg.ProjectID, CollectionName: collection}, fs, logger)
	if err != nil {
		return nil, err
	}
	return NewRemoteTable[V](string(kind), source, rdb, cfg.Redis, cfg.LRUSize, logger)
}

// Seed copies every local table into its Firestore collection.
func Seed(ctx context.Context, local *LocalDataset, cfg RemoteConfig, fs *firestore.Client, logger zerolog.Logger) error {
	log := logger.With().Str("component", "ReferenceSeeder").Logger()
	if err := seedTable(ctx, cfg, KindAirlines, cfg.Collections.Airlines, local.Airlines, fs, log); err != nil {
		return err
	}
	if err := seedTable(ctx, cfg, KindAirports, cfg.Collections.Airports, local.Airports, fs, log); err != nil {
		return err
	}
	if err := seedTable(ctx, cfg, KindAircraft, cfg.Collections.Aircraft, local.Aircraft, fs, log); err != nil {
		return err
	}
	return seedTable(ctx, cfg, KindCountries, cfg.Collections.Countries, local.Countries, fs, log)
}

func seedTable[V any](ctx context.Context, cfg RemoteConfig, kind Kind, collection string, t *Table[V], fs *firestore.Client, logger zerolog.Logger) error {
	if collection == "" {
		collection = string(kind)
	}
	if t.Len() == 0 {
		logger.Warn().Str("table", string(kind)).Msg("Local table is empty, nothing to seed.")
		return nil
	}
	dst, err := cache.NewFirestoreSource[string, V](&cache.FirestoreConfig{ProjectID: cfg.ProjectID, CollectionName: collection}, fs, logger)
	if err != nil {
		return err
	}
	if err := dst.WriteAll(ctx, t.Entries()); err != nil {
		return fmt.Errorf("seed %s: %w", kind, err)
	}
	logger.Info().Str("table", string(kind)).Str("collection", collection).Int("codes", t.Len()).Msg("Reference table seeded.")
	return nil
}
