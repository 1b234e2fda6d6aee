// Package postgres keeps the analysis history index: a pgx connection pool,
// embedded schema migrations and the repository behind
// GET /api/v1/analyses.
package postgres

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/ContractLens/internal/config"
	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractLens/pkg/errors"
)

const connectTimeout = 5 * time.Second

// poolHighWater is the acquired/total ratio above which HealthCheck warns.
const poolHighWater = 0.8

// Connection owns the pgx pool.
type Connection struct {
	pool   *pgxpool.Pool
	cfg    config.PostgresConfig
	logger logging.Logger
	once   sync.Once
}

// Connect opens the pool, verifies it with a ping and, when AutoMigrate is
// set, brings the schema up to date.
func Connect(ctx context.Context, cfg config.PostgresConfig, log logging.Logger) (*Connection, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	poolCfg, err := pgxpool.ParseConfig(buildDSN(cfg))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "invalid postgres configuration")
	}
	configurePool(poolCfg, cfg)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to open database connection")
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "database connection failed")
	}

	log.Info("Connected to PostgreSQL database",
		logging.String("host", cfg.Host),
		logging.Int("port", cfg.Port),
		logging.String("database", cfg.Database),
	)

	c := &Connection{pool: pool, cfg: cfg, logger: log}
	if cfg.AutoMigrate {
		if err := c.Migrate(); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return c, nil
}

// Pool returns the underlying pool.
func (c *Connection) Pool() *pgxpool.Pool { return c.pool }

// DSN is the connection string the pool was built from.
func (c *Connection) DSN() string { return buildDSN(c.cfg) }

// Migrate applies every pending embedded migration.
func (c *Connection) Migrate() error {
	version, dirty, err := RunMigrations(c.DSN())
	if err != nil {
		return err
	}
	c.logger.Info("Database migrations completed",
		logging.Int64("version", int64(version)),
		logging.Bool("dirty", dirty),
	)
	return nil
}

// HealthCheck pings the database and warns when the pool runs hot.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if err := c.pool.Ping(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "database health check failed")
	}

	stats := c.pool.Stat()
	if total := stats.TotalConns(); total > 0 {
		usage := float64(stats.AcquiredConns()) / float64(total)
		if usage > poolHighWater {
			c.logger.Warn("High database connection pool usage",
				logging.Int("in_use", int(stats.AcquiredConns())),
				logging.Int("open", int(total)),
				logging.Float64("usage", usage),
			)
		}
	}
	return nil
}

// Close closes the pool once.
func (c *Connection) Close() error {
	c.once.Do(func() {
		c.pool.Close()
		c.logger.Info("Closed PostgreSQL database connection")
	})
	return nil
}

// buildDSN constructs the PostgreSQL connection string. statement_timeout is
// passed as a runtime parameter so it applies to every pooled session.
func buildDSN(cfg config.PostgresConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.Username, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   cfg.Database,
	}

	q := u.Query()
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	} else {
		q.Set("sslmode", "disable")
	}
	if cfg.StatementTimeout > 0 {
		q.Set("statement_timeout", strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func configurePool(poolCfg *pgxpool.Config, cfg config.PostgresConfig) {
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}
}

//Personal.AI order the ending
