package config

import (
	"time"

	"github.com/spf13/viper"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort     = 8080
	DefaultGRPCHealthPort = 9090

	DefaultMaxLength       = 512
	DefaultMaxConcurrency  = 4
	DefaultCategoryTimeout = 30 * time.Second
	DefaultLocalCacheSize  = 1024

	DefaultModelName    = "cuad-qa"
	DefaultModelBaseURL = "http://localhost:8000"

	DefaultRedisTTL       = 24 * time.Hour
	DefaultRedisKeyPrefix = "contractlens:"

	DefaultMinIOBucket = "contracts"

	DefaultPostgresPort     = 5432
	DefaultPostgresDatabase = "contractlens"
	DefaultPostgresMaxConns = 10

	DefaultOpenSearchIndex = "contractlens-clauses"

	DefaultKafkaBroker       = "localhost:9092"
	DefaultKafkaGroupID      = "contractlens-worker"
	DefaultKafkaRequestTopic = "contract.analysis.requested"
	DefaultKafkaResultTopic  = "contract.analysis.completed"
	DefaultKafkaWorkers      = 4
	DefaultKafkaHealthPort   = 8081

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "contractlens"
)

// DefaultGeminiModels is the enhancement model fallback order.
var DefaultGeminiModels = []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-pro"}

// ApplyDefaults fills every zero-value field in cfg. Explicit values win.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 5 * time.Minute
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 10 << 20
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Server.RateLimitRPS > 0 && cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = int(cfg.Server.RateLimitRPS * 2)
	}

	// ── QA ────────────────────────────────────────────────────────────────────
	if cfg.QA.MaxLength == 0 {
		cfg.QA.MaxLength = DefaultMaxLength
	}
	if cfg.QA.MaxConcurrency == 0 {
		cfg.QA.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.QA.CategoryTimeout == 0 {
		cfg.QA.CategoryTimeout = DefaultCategoryTimeout
	}
	if cfg.QA.LocalCacheSize == 0 {
		cfg.QA.LocalCacheSize = DefaultLocalCacheSize
	}

	// ── Model ─────────────────────────────────────────────────────────────────
	if cfg.Model.Name == "" {
		cfg.Model.Name = DefaultModelName
	}
	if cfg.Model.BaseURL == "" {
		cfg.Model.BaseURL = DefaultModelBaseURL
	}
	if cfg.Model.Timeout == 0 {
		cfg.Model.Timeout = 30 * time.Second
	}
	if cfg.Model.BreakerThreshold == 0 {
		cfg.Model.BreakerThreshold = 5
	}
	if cfg.Model.BreakerReset == 0 {
		cfg.Model.BreakerReset = 30 * time.Second
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = DefaultRedisTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.MinIO.MaxObjectMiB == 0 {
		cfg.MinIO.MaxObjectMiB = 20
	}

	// ── Postgres ──────────────────────────────────────────────────────────────
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = DefaultPostgresPort
	}
	if cfg.Postgres.Database == "" {
		cfg.Postgres.Database = DefaultPostgresDatabase
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}
	if cfg.Postgres.MaxConns == 0 {
		cfg.Postgres.MaxConns = DefaultPostgresMaxConns
	}
	if cfg.Postgres.ConnMaxLifetime == 0 {
		cfg.Postgres.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.Postgres.ConnMaxIdleTime == 0 {
		cfg.Postgres.ConnMaxIdleTime = 5 * time.Minute
	}
	if cfg.Postgres.StatementTimeout == 0 {
		cfg.Postgres.StatementTimeout = 30 * time.Second
	}

	// ── OpenSearch ────────────────────────────────────────────────────────────
	if cfg.OpenSearch.Index == "" {
		cfg.OpenSearch.Index = DefaultOpenSearchIndex
	}
	if cfg.OpenSearch.MaxRetries == 0 {
		cfg.OpenSearch.MaxRetries = 3
	}
	if cfg.OpenSearch.RetryBackoff == 0 {
		cfg.OpenSearch.RetryBackoff = 100 * time.Millisecond
	}
	if cfg.OpenSearch.RequestTimeout == 0 {
		cfg.OpenSearch.RequestTimeout = 10 * time.Second
	}
	if cfg.OpenSearch.Refresh == "" {
		cfg.OpenSearch.Refresh = "false"
	}
	if cfg.OpenSearch.Shards == 0 {
		cfg.OpenSearch.Shards = 1
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.RequestTopic == "" {
		cfg.Kafka.RequestTopic = DefaultKafkaRequestTopic
	}
	if cfg.Kafka.ResultTopic == "" {
		cfg.Kafka.ResultTopic = DefaultKafkaResultTopic
	}
	if cfg.Kafka.Workers == 0 {
		cfg.Kafka.Workers = DefaultKafkaWorkers
	}
	if cfg.Kafka.MaxRetries == 0 {
		cfg.Kafka.MaxRetries = 3
	}
	if cfg.Kafka.RetryBackoff == 0 {
		cfg.Kafka.RetryBackoff = time.Second
	}
	if cfg.Kafka.CommitInterval == 0 {
		cfg.Kafka.CommitInterval = time.Second
	}
	if cfg.Kafka.HealthPort == 0 {
		cfg.Kafka.HealthPort = DefaultKafkaHealthPort
	}

	// ── Gemini ────────────────────────────────────────────────────────────────
	if len(cfg.Gemini.Models) == 0 {
		cfg.Gemini.Models = append([]string(nil), DefaultGeminiModels...)
	}
	if cfg.Gemini.Temperature == 0 {
		cfg.Gemini.Temperature = 0.1
	}
	if cfg.Gemini.MaxOutputTokens == 0 {
		cfg.Gemini.MaxOutputTokens = 2000
	}
	if cfg.Gemini.MaxInputChars == 0 {
		cfg.Gemini.MaxInputChars = 4000
	}
	if cfg.Gemini.Timeout == 0 {
		cfg.Gemini.Timeout = 60 * time.Second
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// registerKeys declares every config key on v so that environment variables
// are honoured by Unmarshal even when the key is absent from the file.
func registerKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.port", "server.grpc_health_port", "server.read_timeout", "server.write_timeout",
		"server.max_body_size", "server.shutdown_timeout", "server.rate_limit_rps", "server.rate_limit_burst",
		"log.level", "log.format", "log.output_paths", "log.error_output_paths",
		"qa.max_length", "qa.max_concurrency", "qa.category_timeout", "qa.vocab_path",
		"qa.do_lower_case", "qa.local_cache_size",
		"model.name", "model.version", "model.base_url", "model.timeout", "model.max_idle_conns",
		"model.breaker_threshold", "model.breaker_reset",
		"redis.addr", "redis.password", "redis.db", "redis.pool_size", "redis.dial_timeout",
		"redis.read_timeout", "redis.write_timeout", "redis.default_ttl", "redis.key_prefix",
		"minio.endpoint", "minio.access_key", "minio.secret_key", "minio.bucket", "minio.use_ssl",
		"minio.max_object_mib",
		"postgres.host", "postgres.port", "postgres.database", "postgres.username", "postgres.password",
		"postgres.ssl_mode", "postgres.max_conns", "postgres.min_conns", "postgres.conn_max_lifetime",
		"postgres.conn_max_idle_time", "postgres.statement_timeout", "postgres.auto_migrate",
		"opensearch.addresses", "opensearch.username", "opensearch.password", "opensearch.index",
		"opensearch.insecure_tls", "opensearch.max_retries", "opensearch.retry_backoff",
		"opensearch.request_timeout", "opensearch.refresh", "opensearch.shards", "opensearch.replicas",
		"kafka.brokers", "kafka.group_id", "kafka.request_topic", "kafka.result_topic", "kafka.workers",
		"kafka.max_retries", "kafka.retry_backoff", "kafka.commit_interval", "kafka.health_port",
		"kafka.sasl_mechanism", "kafka.sasl_username", "kafka.sasl_password",
		"gemini.api_key", "gemini.models", "gemini.temperature", "gemini.max_output_tokens",
		"gemini.max_input_chars", "gemini.timeout",
		"metrics.enabled", "metrics.namespace", "metrics.enable_process_metrics", "metrics.enable_go_metrics",
	} {
		_ = v.BindEnv(key)
	}
	v.SetDefault("qa.do_lower_case", true)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("postgres.auto_migrate", true)
	v.SetDefault("metrics.enable_go_metrics", true)
}

//Personal.AI order the ending
