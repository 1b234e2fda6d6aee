package opensearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContractLens/internal/config"
	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractLens/pkg/errors"
)

func testConfig(addr string) config.OpenSearchConfig {
	return config.OpenSearchConfig{
		Addresses:      []string{addr},
		Index:          "clauses",
		Refresh:        "wait_for",
		RequestTimeout: time.Second,
		RetryBackoff:   time.Millisecond,
	}
}

// newTestIndex binds a ClauseIndex to an httptest server without the
// connect-time ping.
func newTestIndex(t *testing.T, h http.HandlerFunc) *ClauseIndex {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	c, err := newClient(cfg, logging.NewNopLogger())
	require.NoError(t, err)
	return NewClauseIndex(c, cfg, nil)
}

func TestNewClient_RequiresAddresses(t *testing.T) {
	_, err := NewClient(context.Background(), config.OpenSearchConfig{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestNewClient_PingsCluster(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), testConfig(srv.URL), logging.NewNopLogger())
	require.NoError(t, err)
	assert.True(t, c.IsHealthy())
	assert.NoError(t, c.HealthCheck(context.Background()))
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestNewClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(context.Background(), testConfig(srv.URL), logging.NewNopLogger())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeExternalService))
}

func TestHealthLoop_TracksTransitions(t *testing.T) {
	var up atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if up.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := newClient(testConfig(srv.URL), nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.healthLoop(ctx, 10*time.Millisecond)

	assert.Never(t, c.IsHealthy, 50*time.Millisecond, 10*time.Millisecond)
	up.Store(true)
	assert.Eventually(t, c.IsHealthy, time.Second, 10*time.Millisecond)
}

//Personal.AI order the ending
