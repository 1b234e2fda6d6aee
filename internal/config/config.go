// Package config defines the configuration structures for ContractLens.
// No I/O or parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	GRPCHealthPort  int           `mapstructure:"grpc_health_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RateLimitRPS is the per-client request rate; zero disables limiting.
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string   `mapstructure:"format"` // "json" | "console"
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// QAConfig tunes the answer extraction engine.
type QAConfig struct {
	MaxLength       int           `mapstructure:"max_length"`
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
	CategoryTimeout time.Duration `mapstructure:"category_timeout"`
	VocabPath       string        `mapstructure:"vocab_path"`
	DoLowerCase     bool          `mapstructure:"do_lower_case"`
	LocalCacheSize  int           `mapstructure:"local_cache_size"`
}

// ModelConfig points at the served span model.
type ModelConfig struct {
	Name             string        `mapstructure:"name"`
	Version          string        `mapstructure:"version"`
	BaseURL          string        `mapstructure:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	BreakerReset     time.Duration `mapstructure:"breaker_reset"`
}

// RedisConfig holds the answer cache connection parameters. An empty Addr
// disables the shared cache.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// MinIOConfig holds the contract document store parameters. An empty Endpoint
// disables analysis by object key.
type MinIOConfig struct {
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	Bucket       string `mapstructure:"bucket"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	MaxObjectMiB int64  `mapstructure:"max_object_mib"`
}

// PostgresConfig holds the analysis history index connection. An empty Host
// disables it.
type PostgresConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Database         string        `mapstructure:"database"`
	Username         string        `mapstructure:"username"`
	Password         string        `mapstructure:"password"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime  time.Duration `mapstructure:"conn_max_idle_time"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	AutoMigrate      bool          `mapstructure:"auto_migrate"`
}

// OpenSearchConfig holds the clause search index connection. Empty Addresses
// disables it.
type OpenSearchConfig struct {
	Addresses      []string      `mapstructure:"addresses"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	Index          string        `mapstructure:"index"`
	InsecureTLS    bool          `mapstructure:"insecure_tls"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// Refresh is passed through on writes: "false" | "true" | "wait_for".
	Refresh        string        `mapstructure:"refresh"`
	Shards         int           `mapstructure:"shards"`
	Replicas       int           `mapstructure:"replicas"`
}

// KafkaConfig holds the analysis job queue parameters.
type KafkaConfig struct {
	Brokers        []string      `mapstructure:"brokers"`
	GroupID        string        `mapstructure:"group_id"`
	RequestTopic   string        `mapstructure:"request_topic"`
	ResultTopic    string        `mapstructure:"result_topic"`
	Workers        int           `mapstructure:"workers"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
	CommitInterval time.Duration `mapstructure:"commit_interval"`
	HealthPort     int           `mapstructure:"health_port"`
	SASLMechanism  string        `mapstructure:"sasl_mechanism"` // "" | "PLAIN" | "SCRAM-SHA-256" | "SCRAM-SHA-512"
	SASLUsername   string        `mapstructure:"sasl_username"`
	SASLPassword   string        `mapstructure:"sasl_password"`
}

// GeminiConfig configures the optional LLM enhancement. An empty APIKey
// disables it.
type GeminiConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	Models          []string      `mapstructure:"models"`
	Temperature     float32       `mapstructure:"temperature"`
	MaxOutputTokens int32         `mapstructure:"max_output_tokens"`
	MaxInputChars   int           `mapstructure:"max_input_chars"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// MetricsConfig configures the Prometheus registry.
type MetricsConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	Namespace            string `mapstructure:"namespace"`
	EnableProcessMetrics bool   `mapstructure:"enable_process_metrics"`
	EnableGoMetrics      bool   `mapstructure:"enable_go_metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration shared by the apiserver, the worker and
// the CLI.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	QA         QAConfig         `mapstructure:"qa"`
	Model      ModelConfig      `mapstructure:"model"`
	Redis      RedisConfig      `mapstructure:"redis"`
	MinIO      MinIOConfig      `mapstructure:"minio"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of a defaulted Config and returns the
// first problem found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	if c.Server.GRPCHealthPort < 0 || c.Server.GRPCHealthPort > 65535 {
		return fmt.Errorf("config: server.grpc_health_port %d is out of range [0, 65535]", c.Server.GRPCHealthPort)
	}

	// max length must hold [CLS] [SEP] [SEP]
	if c.QA.MaxLength < 3 {
		return fmt.Errorf("config: qa.max_length must be ≥ 3, got %d", c.QA.MaxLength)
	}
	if c.QA.MaxConcurrency < 1 {
		return fmt.Errorf("config: qa.max_concurrency must be ≥ 1, got %d", c.QA.MaxConcurrency)
	}
	if c.QA.CategoryTimeout <= 0 {
		return fmt.Errorf("config: qa.category_timeout must be positive")
	}

	if c.Model.Name == "" {
		return fmt.Errorf("config: model.name is required")
	}
	if c.Model.BaseURL == "" {
		return fmt.Errorf("config: model.base_url is required")
	}

	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}
	if c.MinIO.Endpoint != "" && c.MinIO.Bucket == "" {
		return fmt.Errorf("config: minio.bucket is required when minio.endpoint is set")
	}

	if c.Postgres.Host != "" {
		if c.Postgres.Port < 1 || c.Postgres.Port > 65535 {
			return fmt.Errorf("config: postgres.port %d is out of range [1, 65535]", c.Postgres.Port)
		}
		if c.Postgres.Database == "" {
			return fmt.Errorf("config: postgres.database is required when postgres.host is set")
		}
		if c.Postgres.MinConns > c.Postgres.MaxConns {
			return fmt.Errorf("config: postgres.min_conns %d exceeds max_conns %d", c.Postgres.MinConns, c.Postgres.MaxConns)
		}
	}

	if len(c.OpenSearch.Addresses) > 0 {
		if c.OpenSearch.Index == "" {
			return fmt.Errorf("config: opensearch.index is required when opensearch.addresses is set")
		}
		if c.OpenSearch.RequestTimeout <= 0 {
			return fmt.Errorf("config: opensearch.request_timeout must be positive")
		}
		switch c.OpenSearch.Refresh {
		case "false", "true", "wait_for":
		default:
			return fmt.Errorf("config: opensearch.refresh %q is invalid; expected false|true|wait_for", c.OpenSearch.Refresh)
		}
	}

	if c.Kafka.Workers < 1 {
		return fmt.Errorf("config: kafka.workers must be ≥ 1, got %d", c.Kafka.Workers)
	}
	if c.Kafka.RequestTopic == "" || c.Kafka.ResultTopic == "" {
		return fmt.Errorf("config: kafka.request_topic and kafka.result_topic are required")
	}

	switch c.Kafka.SASLMechanism {
	case "", "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
	default:
		return fmt.Errorf("config: kafka.sasl_mechanism %q is invalid", c.Kafka.SASLMechanism)
	}

	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		return fmt.Errorf("config: gemini.temperature %v is out of range [0, 2]", c.Gemini.Temperature)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}
	return nil
}

// DLQTopic is the dead-letter topic for failed analysis jobs.
func (k KafkaConfig) DLQTopic() string { return k.RequestTopic + ".dlq" }

// GeminiEnabled reports whether LLM enhancement is configured.
func (c *Config) GeminiEnabled() bool { return c.Gemini.APIKey != "" }

//Personal.AI order the ending
