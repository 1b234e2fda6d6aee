//go:build integration

// Package integration runs ContractLens against real Redis, MinIO,
// PostgreSQL and OpenSearch containers. Tests need Docker, the "integration" build tag and
// CONTRACTLENS_INTEGRATION_TEST=1.
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/ContractLens/internal/config"
)

const (
	// EnvIntegrationEnabled gates every test in this package.
	EnvIntegrationEnabled = "CONTRACTLENS_INTEGRATION_TEST"

	redisImage = "redis:7-alpine"
	minioImage = "minio/minio:RELEASE.2024-01-16T16-07-38Z"
	pgImage    = "postgres:16-alpine"
	osImage    = "opensearchproject/opensearch:2.11.1"

	minioUser     = "contractlens"
	minioPassword = "contractlens-secret"
	pgUser        = "contractlens"
	pgPassword    = "contractlens-secret"
	pgDatabase    = "contractlens_it"

	startupTimeout = 90 * time.Second
)

func skipIfNoIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv(EnvIntegrationEnabled) == "" {
		t.Skipf("skipping integration test: set %s=1 to enable", EnvIntegrationEnabled)
	}
}

// startContainer runs req and returns host:port for port.
func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, port)
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, mapped.Port())
}

func startRedis(t *testing.T) string {
	t.Helper()
	return startContainer(t, testcontainers.ContainerRequest{
		Image:        redisImage,
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(startupTimeout),
	}, "6379")
}

func startMinIO(t *testing.T) config.MinIOConfig {
	t.Helper()
	endpoint := startContainer(t, testcontainers.ContainerRequest{
		Image:        minioImage,
		ExposedPorts: []string{"9000/tcp"},
		Cmd:          []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     minioUser,
			"MINIO_ROOT_PASSWORD": minioPassword,
		},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(startupTimeout),
	}, "9000")
	return config.MinIOConfig{
		Endpoint:     endpoint,
		AccessKey:    minioUser,
		SecretKey:    minioPassword,
		Bucket:       "contracts-it",
		MaxObjectMiB: 4,
	}
}

func startPostgres(t *testing.T) config.PostgresConfig {
	t.Helper()
	endpoint := startContainer(t, testcontainers.ContainerRequest{
		Image:        pgImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     pgUser,
			"POSTGRES_PASSWORD": pgPassword,
			"POSTGRES_DB":       pgDatabase,
		},
		// postgres restarts once after init, so wait for the second banner
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(startupTimeout),
	}, "5432")

	host, port, ok := strings.Cut(endpoint, ":")
	require.True(t, ok, endpoint)
	cfg := config.PostgresConfig{
		Host:        host,
		Database:    pgDatabase,
		Username:    pgUser,
		Password:    pgPassword,
		AutoMigrate: true,
	}
	_, err := fmt.Sscanf(port, "%d", &cfg.Port)
	require.NoError(t, err)
	return cfg
}

func startOpenSearch(t *testing.T) config.OpenSearchConfig {
	t.Helper()
	endpoint := startContainer(t, testcontainers.ContainerRequest{
		Image:        osImage,
		ExposedPorts: []string{"9200/tcp"},
		Env: map[string]string{
			"discovery.type":          "single-node",
			"DISABLE_SECURITY_PLUGIN": "true",
			"OPENSEARCH_JAVA_OPTS":    "-Xms512m -Xmx512m",
		},
		WaitingFor: wait.ForHTTP("/_cluster/health").WithPort("9200/tcp").WithStartupTimeout(startupTimeout),
	}, "9200")

	cfg := config.Config{}
	config.ApplyDefaults(&cfg)
	oc := cfg.OpenSearch
	oc.Addresses = []string{"http://" + endpoint}
	oc.Refresh = "wait_for"
	return oc
}

func writeVocab(t *testing.T) string {
	t.Helper()
	words := []string{"[PAD]", "[UNK]", "[CLS]", "[SEP]",
		"this", "agreement", "shall", "be", "governed", "by", "the", "laws", "of", "state", "california",
		"what", "law", "governs", "contract", "?", ".", ","}
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(words, "\n")+"\n"), 0o600))
	return path
}

type tensor struct {
	Name     string    `json:"name"`
	Shape    []int64   `json:"shape"`
	Datatype string    `json:"datatype"`
	Data     []float64 `json:"data"`
}

// startModel serves a KServe v2 span model that always points at the last
// passage tokens before the final [SEP].
func startModel(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/health/ready" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if !strings.HasSuffix(r.URL.Path, "/infer") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req struct {
			ID     string   `json:"id"`
			Inputs []tensor `json:"inputs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Inputs) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		ids := req.Inputs[0].Data
		n := len(ids)
		start, end := make([]float64, n), make([]float64, n)
		// last non-padding position is the closing [SEP]
		last := n - 1
		for last > 0 && ids[last] == 0 {
			last--
		}
		if last >= 3 {
			start[last-2] = 8
			end[last-1] = 8
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model_name": "cuad-qa",
			"id":         req.ID,
			"outputs": []tensor{
				{Name: "start_logits", Shape: []int64{1, int64(n)}, Datatype: "FP32", Data: start},
				{Name: "end_logits", Shape: []int64{1, int64(n)}, Datatype: "FP32", Data: end},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

// baseConfig is a defaulted config pointing at a fake model.
func baseConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.QA.VocabPath = writeVocab(t)
	cfg.Model.BaseURL = startModel(t)
	require.NoError(t, cfg.Validate())
	return cfg
}

//Personal.AI order the ending
