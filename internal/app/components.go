// Package app assembles the ContractLens runtime from a Config. The
// apiserver, the worker and the local CLI share it.
package app

import (
	"context"
	"time"

	"github.com/turtacn/ContractLens/internal/application/analysis"
	"github.com/turtacn/ContractLens/internal/config"
	"github.com/turtacn/ContractLens/internal/infrastructure/database/postgres"
	"github.com/turtacn/ContractLens/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/ContractLens/internal/infrastructure/database/redis"
	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractLens/internal/infrastructure/search/opensearch"
	prom "github.com/turtacn/ContractLens/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ContractLens/internal/infrastructure/storage/minio"
	"github.com/turtacn/ContractLens/internal/intelligence/clause_qa"
	"github.com/turtacn/ContractLens/internal/intelligence/common"
	"github.com/turtacn/ContractLens/internal/intelligence/contract_gpt"
	"github.com/turtacn/ContractLens/pkg/errors"
)

const jobLockTTL = 10 * time.Minute

// Probe is a named readiness check.
type Probe struct {
	Component string
	Fn        func(ctx context.Context) error
}

func (p Probe) Name() string                    { return p.Component }
func (p Probe) Check(ctx context.Context) error { return p.Fn(ctx) }

// Components holds every long-lived dependency of a process. Optional
// backends are nil when their config section is empty.
type Components struct {
	Config       *config.Config
	Logger       logging.Logger
	Collector    prom.MetricsCollector
	AppMetrics   *prom.AppMetrics
	IntelMetrics common.IntelligenceMetrics

	Backend  *common.HTTPBackend
	Session  *clause_qa.Session
	Redis    *redis.Client
	Answers  *redis.AnswerCache
	Locks    redis.LockFactory
	Store    *minio.ContractStore
	DB       *postgres.Connection
	History  *repositories.AnalysisRepository
	Search   *opensearch.Client
	Clauses  *opensearch.ClauseIndex
	Enhancer *contract_gpt.Enhancer
	Service  *analysis.Service

	closers []func() error
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg config.LogConfig) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           cfg.Format,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: cfg.ErrorOutputPaths,
	})
}

// Build wires the engine, the optional backends and the analysis service.
// On error everything opened so far is closed.
func Build(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Components, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &Components{Config: cfg, Logger: logger, IntelMetrics: common.NewNoopIntelligenceMetrics()}

	steps := []func() error{
		c.initMetrics,
		c.initEngine,
		c.initRedis,
		c.initStore,
		func() error { return c.initHistory(ctx) },
		func() error { return c.initClauseIndex(ctx) },
		func() error { return c.initEnhancer(ctx) },
		c.initService,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			if cerr := c.Close(); cerr != nil {
				logger.Warn("cleanup after failed build", logging.Err(cerr))
			}
			return nil, err
		}
	}
	return c, nil
}

func (c *Components) initMetrics() error {
	mc := c.Config.Metrics
	if !mc.Enabled {
		return nil
	}
	collector, err := prom.NewMetricsCollector(prom.CollectorConfig{
		Enabled:              true,
		Namespace:            mc.Namespace,
		EnableProcessMetrics: mc.EnableProcessMetrics,
		EnableGoMetrics:      mc.EnableGoMetrics,
	}, c.Logger)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create metrics collector")
	}
	intel, err := common.NewPrometheusIntelligenceMetrics(collector.Registerer())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to register intelligence metrics")
	}
	c.Collector = collector
	c.AppMetrics = prom.NewAppMetrics(collector)
	c.IntelMetrics = intel
	return nil
}

func (c *Components) initEngine() error {
	qa, mc := c.Config.QA, c.Config.Model
	ilog := common.NewLoggerAdapter(c.Logger.Named("intelligence"))

	enc, err := clause_qa.NewWordPieceEncoderFromFile(qa.VocabPath, clause_qa.WithDoLowerCase(qa.DoLowerCase))
	if err != nil {
		return err
	}
	backend, err := common.NewHTTPBackend(common.ServingConfig{
		BaseURL:          mc.BaseURL,
		Timeout:          mc.Timeout,
		MaxIdleConns:     mc.MaxIdleConns,
		BreakerThreshold: mc.BreakerThreshold,
		BreakerReset:     mc.BreakerReset,
	}, nil, ilog, c.IntelMetrics)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeAIModelNotAvailable, "failed to create model backend")
	}
	c.Backend = backend
	c.closers = append(c.closers, backend.Close)

	model, err := clause_qa.NewRemoteSpanModel(backend, clause_qa.NewSpanModelConfig(&clause_qa.SpanModelConfig{
		ModelName:        mc.Name,
		ModelVersion:     mc.Version,
		Timeout:          mc.Timeout,
		SendTokenTypeIDs: true,
	}), c.IntelMetrics, ilog)
	if err != nil {
		return err
	}
	c.Session, err = clause_qa.NewSession(enc, model,
		clause_qa.WithMaxLength(qa.MaxLength),
		clause_qa.WithSessionLogger(ilog))
	return err
}

func (c *Components) initRedis() error {
	if c.Config.Redis.Addr == "" {
		return nil
	}
	client, err := redis.NewClient(c.Config.Redis, c.Logger.Named("redis"))
	if err != nil {
		return err
	}
	c.Redis = client
	c.closers = append(c.closers, client.Close)
	cache := redis.NewCache(client, redis.WithCacheLogger(c.Logger.Named("redis")))
	c.Answers = redis.NewAnswerCache(cache, c.Config.Redis.DefaultTTL, c.IntelMetrics)
	c.Locks = redis.NewLockFactory(client, c.Logger.Named("redis"))
	return nil
}

func (c *Components) initStore() error {
	if c.Config.MinIO.Endpoint == "" {
		return nil
	}
	store, err := minio.Connect(c.Config.MinIO, c.Logger.Named("minio"))
	if err != nil {
		return err
	}
	c.Store = store
	return nil
}

func (c *Components) initHistory(ctx context.Context) error {
	if c.Config.Postgres.Host == "" {
		return nil
	}
	conn, err := postgres.Connect(ctx, c.Config.Postgres, c.Logger.Named("postgres"))
	if err != nil {
		return err
	}
	c.DB = conn
	c.closers = append(c.closers, conn.Close)
	c.History = repositories.NewAnalysisRepository(conn.Pool(), common.NewLoggerAdapter(c.Logger.Named("history")))
	return nil
}

func (c *Components) initClauseIndex(ctx context.Context) error {
	oc := c.Config.OpenSearch
	if len(oc.Addresses) == 0 {
		return nil
	}
	client, err := opensearch.NewClient(ctx, oc, c.Logger.Named("opensearch"))
	if err != nil {
		return err
	}
	c.Search = client
	c.closers = append(c.closers, client.Close)
	c.Clauses = opensearch.NewClauseIndex(client, oc, c.Logger)
	return c.Clauses.EnsureIndex(ctx)
}

func (c *Components) initEnhancer(ctx context.Context) error {
	gc := c.Config.Gemini
	gen, err := contract_gpt.NewGeminiGenerator(ctx, gc.APIKey)
	if err != nil {
		return err
	}
	c.Enhancer, err = contract_gpt.NewEnhancer(gen, contract_gpt.NewEnhancerConfig(&contract_gpt.EnhancerConfig{
		Models:          gc.Models,
		Temperature:     gc.Temperature,
		MaxOutputTokens: gc.MaxOutputTokens,
		MaxInputChars:   gc.MaxInputChars,
		Timeout:         gc.Timeout,
	}),
		contract_gpt.WithMetrics(c.IntelMetrics),
		contract_gpt.WithLogger(common.NewLoggerAdapter(c.Logger.Named("enhancer"))))
	return err
}

func (c *Components) initService() error {
	opts := []analysis.Option{
		analysis.WithMetrics(c.IntelMetrics),
		analysis.WithLogger(c.Logger.Named("analysis")),
		analysis.WithEnhancer(c.Enhancer),
	}
	if c.Answers != nil {
		opts = append(opts, analysis.WithAnswerCache(c.Answers))
	}
	if c.Store != nil {
		opts = append(opts, analysis.WithContractStore(c.Store))
	}
	if c.History != nil {
		opts = append(opts, analysis.WithHistory(c.History))
	}
	if c.Clauses != nil {
		opts = append(opts, analysis.WithClauseIndex(c.Clauses))
	}
	svc, err := analysis.NewService(c.Session, analysis.Config{
		ModelID:         c.Config.Model.Name + ":" + c.Config.Model.Version,
		LocalCacheSize:  c.Config.QA.LocalCacheSize,
		MaxConcurrency:  c.Config.QA.MaxConcurrency,
		CategoryTimeout: c.Config.QA.CategoryTimeout,
		PersistAnalyses: c.Store != nil || c.History != nil || c.Clauses != nil,
	}, opts...)
	if err != nil {
		return err
	}
	c.Service = svc
	c.closers = append(c.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return svc.Shutdown(ctx)
	})
	return nil
}

// JobLocks returns a per-job redis mutex, or nil without redis.
func (c *Components) JobLocks() analysis.LockFunc {
	if c.Locks == nil {
		return nil
	}
	return func(jobID string) analysis.JobLock {
		return c.Locks.NewMutex("job:"+jobID, redis.WithLockTTL(jobLockTTL), redis.WithWatchdog(true))
	}
}

// Probes lists readiness checks for the configured backends.
func (c *Components) Probes() []Probe {
	probes := []Probe{{Component: "model", Fn: c.Backend.Healthy}}
	if c.Redis != nil {
		probes = append(probes, Probe{Component: "redis", Fn: c.Redis.Ping})
	}
	if c.Store != nil {
		probes = append(probes, Probe{Component: "minio", Fn: c.Store.HealthCheck})
	}
	if c.DB != nil {
		probes = append(probes, Probe{Component: "postgres", Fn: c.DB.HealthCheck})
	}
	if c.Search != nil {
		probes = append(probes, Probe{Component: "opensearch", Fn: c.Search.HealthCheck})
	}
	return probes
}

// Close releases resources in reverse order of creation and returns the
// first error.
func (c *Components) Close() error {
	if c == nil {
		return nil
	}
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

//Personal.AI order the ending
