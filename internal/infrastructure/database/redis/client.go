// Package redis provides the shared answer cache and the job lock used by the
// ContractLens worker fleet.
package redis

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/turtacn/ContractLens/internal/config"
	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractLens/pkg/errors"
)

var (
	ErrConnectionFailed = errors.New(errors.ErrCodeServiceUnavailable, "redis connection failed")
	ErrClientClosed     = errors.New(errors.ErrCodeServiceUnavailable, "redis client closed")
)

const pingTimeout = 5 * time.Second

// Client wraps a standalone go-redis client with the key prefix and default
// TTL taken from configuration.
type Client struct {
	rdb        *redis.Client
	log        logging.Logger
	prefix     string
	defaultTTL time.Duration
	closed     atomic.Bool
}

// NewClient dials Redis and verifies the connection with a PING.
func NewClient(cfg config.RedisConfig, log logging.Logger) (*Client, error) {
	if cfg.Addr == "" {
		return nil, errors.InvalidParam("redis address is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	applyDefaults(&cfg)

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		log.Error("redis ping failed", logging.String("addr", cfg.Addr), logging.Err(err))
		return nil, ErrConnectionFailed.WithCause(err).WithDetail(cfg.Addr)
	}

	log.Info("redis connected", logging.String("addr", cfg.Addr), logging.Int("db", cfg.DB))
	return &Client{
		rdb:        rdb,
		log:        log,
		prefix:     cfg.KeyPrefix,
		defaultTTL: cfg.DefaultTTL,
	}, nil
}

func applyDefaults(cfg *config.RedisConfig) {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 10
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 3 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 3 * time.Second
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = config.DefaultRedisTTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = config.DefaultRedisKeyPrefix
	}
}

// Ping checks connectivity; used by the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "redis ping failed")
	}
	return nil
}

// Close releases the connection pool. Subsequent calls are no-ops.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.log.Info("closing redis client")
	return c.rdb.Close()
}

// Prefix returns the namespace prepended to every key.
func (c *Client) Prefix() string { return c.prefix }

// DefaultTTL returns the configured entry lifetime.
func (c *Client) DefaultTTL() time.Duration { return c.defaultTTL }

func (c *Client) key(k string) string { return c.prefix + k }

func (c *Client) guard() error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return nil
}

// GetUnderlyingClient exposes the go-redis client for scripts and scans.
func (c *Client) GetUnderlyingClient() *redis.Client { return c.rdb }

//Personal.AI order the ending
