// Package opensearch backs the clause search index: one document per found
// answer span, searchable by text and filterable by category, contract type,
// risk and confidence.
package opensearch

import (
	"context"
	"crypto/tls"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"

	"github.com/turtacn/ContractLens/internal/config"
	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractLens/pkg/errors"
)

const healthCheckInterval = 30 * time.Second

// Client manages the OpenSearch connection and a background health probe.
type Client struct {
	client  *opensearch.Client
	cfg     config.OpenSearchConfig
	log     logging.Logger
	healthy atomic.Bool
	cancel  context.CancelFunc
	once    sync.Once
}

// NewClient connects and verifies the cluster answers a ping.
func NewClient(ctx context.Context, cfg config.OpenSearchConfig, log logging.Logger) (*Client, error) {
	c, err := newClient(cfg, log)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "opensearch unreachable")
	}

	loopCtx, stop := context.WithCancel(context.Background())
	c.cancel = stop
	go c.healthLoop(loopCtx, healthCheckInterval)

	c.log.Info("opensearch connected", logging.Strings("addresses", cfg.Addresses), logging.String("index", cfg.Index))
	return c, nil
}

func newClient(cfg config.OpenSearchConfig, log logging.Logger) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.InvalidParam("opensearch addresses are required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost:   10,
		ResponseHeaderTimeout: cfg.RequestTimeout,
	}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	backoff := cfg.RetryBackoff
	osClient, err := opensearch.NewClient(opensearch.Config{
		Addresses:     cfg.Addresses,
		Username:      cfg.Username,
		Password:      cfg.Password,
		MaxRetries:    cfg.MaxRetries,
		RetryBackoff:  func(int) time.Duration { return backoff },
		RetryOnStatus: []int{502, 503, 504, 429},
		Transport:     transport,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "create opensearch client")
	}

	c := &Client{client: osClient, cfg: cfg, log: log, cancel: func() {}}
	return c, nil
}

// Ping checks the connection and updates the health flag.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.client.Ping(c.client.Ping.WithContext(ctx))
	if err != nil {
		c.healthy.Store(false)
		return err
	}
	defer resp.Body.Close()

	if resp.IsError() {
		c.healthy.Store(false)
		return errors.New(errors.ErrCodeExternalService, "opensearch ping returned "+resp.Status())
	}
	c.healthy.Store(true)
	return nil
}

// HealthCheck pings with ctx; used by the readiness probe.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.Ping(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "opensearch health check failed")
	}
	return nil
}

// IsHealthy returns the last observed health.
func (c *Client) IsHealthy() bool { return c.healthy.Load() }

// Close stops the health probe.
func (c *Client) Close() error {
	c.once.Do(func() {
		c.cancel()
		c.log.Info("opensearch client closed")
	})
	return nil
}

func (c *Client) healthLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prev := c.healthy.Load()
			err := c.Ping(ctx)
			curr := c.healthy.Load()

			if prev && !curr {
				c.log.Error("opensearch cluster became unhealthy", logging.Err(err))
			} else if !prev && curr {
				c.log.Info("opensearch cluster recovered")
			}
		}
	}
}

//Personal.AI order the ending
