package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractLens/pkg/errors"
)

var (
	ErrCacheMiss           = errors.New(errors.ErrCodeNotFound, "cache miss")
	ErrCacheUnavailable    = errors.New(errors.ErrCodeServiceUnavailable, "cache unavailable")
	ErrSerializationFailed = errors.New(errors.ErrCodeSerialization, "cache value serialization failed")
)

// nullMarker records a loader result of nil so repeated misses do not reach
// the loader again before nullTTL expires.
const (
	nullMarker     = "__null__"
	defaultNullTTL = 5 * time.Minute
	scanBatch      = 200
)

// Loader produces the value for a missing key.
type Loader func(ctx context.Context) (interface{}, error)

// Cache is a JSON value cache over Redis. Keys are namespaced by the client
// prefix; TTLs receive a ±10% jitter.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader Loader) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Ping(ctx context.Context) error
}

// CacheOption customises a cache instance.
type CacheOption func(*redisCache)

// WithNullTTL sets how long a nil loader result is remembered.
func WithNullTTL(ttl time.Duration) CacheOption {
	return func(c *redisCache) { c.nullTTL = ttl }
}

// WithJitter toggles TTL jitter; disabled in tests that assert exact expiry.
func WithJitter(enabled bool) CacheOption {
	return func(c *redisCache) { c.jitter = enabled }
}

// WithCacheLogger attaches a logger.
func WithCacheLogger(log logging.Logger) CacheOption {
	return func(c *redisCache) { c.log = log }
}

type redisCache struct {
	client  *Client
	log     logging.Logger
	nullTTL time.Duration
	jitter  bool
	group   singleflight.Group
}

// NewCache builds a Cache over an established client.
func NewCache(client *Client, opts ...CacheOption) Cache {
	c := &redisCache{
		client:  client,
		log:     logging.NewNopLogger(),
		nullTTL: defaultNullTTL,
		jitter:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *redisCache) ttlFor(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		ttl = c.client.DefaultTTL()
	}
	if !c.jitter || ttl <= 0 {
		return ttl
	}
	jitter := float64(ttl) * 0.1 * (rand.Float64()*2 - 1)
	return ttl + time.Duration(jitter)
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	_, err := c.get(ctx, key, dest)
	return err
}

// get reports whether the stored value is the null marker alongside the
// usual miss and decode errors.
func (c *redisCache) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if err := c.client.guard(); err != nil {
		return false, err
	}
	data, err := c.client.rdb.Get(ctx, c.client.key(key)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return false, ErrCacheMiss
	}
	if err != nil {
		return false, ErrCacheUnavailable.WithCause(err).WithDetail(key)
	}
	if string(data) == nullMarker {
		return true, ErrCacheMiss
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, ErrSerializationFailed.WithCause(err).WithDetail(key)
	}
	return false, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := c.client.guard(); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return ErrSerializationFailed.WithCause(err).WithDetail(key)
	}
	if err := c.client.rdb.Set(ctx, c.client.key(key), data, c.ttlFor(ttl)).Err(); err != nil {
		return ErrCacheUnavailable.WithCause(err).WithDetail(key)
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.guard(); err != nil {
		return err
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.client.key(k)
	}
	if err := c.client.rdb.Del(ctx, full...).Err(); err != nil {
		return ErrCacheUnavailable.WithCause(err)
	}
	return nil
}

func (c *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	if err := c.client.guard(); err != nil {
		return false, err
	}
	n, err := c.client.rdb.Exists(ctx, c.client.key(key)).Result()
	if err != nil {
		return false, ErrCacheUnavailable.WithCause(err)
	}
	return n > 0, nil
}

// GetOrSet reads key into dest, calling loader once per key across concurrent
// callers on a miss. A nil loader result is stored as the null marker and
// reported as ErrCacheMiss until it expires.
func (c *redisCache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader Loader) error {
	null, err := c.get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if null {
		return ErrCacheMiss
	}
	if !errors.IsCode(err, errors.ErrCodeNotFound) {
		c.log.Warn("cache read failed, falling back to loader", logging.String("key", key), logging.Err(err))
	}

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		v, lerr := loader(ctx)
		if lerr != nil {
			return nil, lerr
		}
		if v == nil {
			if serr := c.client.rdb.Set(ctx, c.client.key(key), nullMarker, c.nullTTL).Err(); serr != nil {
				c.log.Warn("failed to store null marker", logging.String("key", key), logging.Err(serr))
			}
			return nil, nil
		}
		if serr := c.Set(ctx, key, v, ttl); serr != nil {
			c.log.Warn("failed to fill cache", logging.String("key", key), logging.Err(serr))
		}
		return v, nil
	})
	if err != nil {
		return err
	}
	if val == nil {
		return ErrCacheMiss
	}

	// Round-trip through JSON so dest receives a copy in its own type.
	data, err := json.Marshal(val)
	if err != nil {
		return ErrSerializationFailed.WithCause(err).WithDetail(key)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return ErrSerializationFailed.WithCause(err).WithDetail(key)
	}
	return nil
}

// DeleteByPrefix removes every key under prefix using SCAN.
func (c *redisCache) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	if err := c.client.guard(); err != nil {
		return 0, err
	}
	var (
		deleted int64
		cursor  uint64
	)
	pattern := c.client.key(prefix) + "*"
	for {
		keys, next, err := c.client.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return deleted, ErrCacheUnavailable.WithCause(err)
		}
		if len(keys) > 0 {
			n, err := c.client.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, ErrCacheUnavailable.WithCause(err)
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

func (c *redisCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	if err := c.client.guard(); err != nil {
		return 0, err
	}
	return c.client.rdb.TTL(ctx, c.client.key(key)).Result()
}

func (c *redisCache) Ping(ctx context.Context) error { return c.client.Ping(ctx) }

//Personal.AI order the ending
