// Command apiserver serves the ContractLens REST API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/ContractLens/internal/app"
	"github.com/turtacn/ContractLens/internal/application/analysis"
	"github.com/turtacn/ContractLens/internal/config"
	"github.com/turtacn/ContractLens/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
	grpchealth "github.com/turtacn/ContractLens/internal/interfaces/grpc"
	httpserver "github.com/turtacn/ContractLens/internal/interfaces/http"
	"github.com/turtacn/ContractLens/internal/interfaces/http/handlers"
	"github.com/turtacn/ContractLens/internal/interfaces/http/middleware"
)

const (
	defaultConfigPath = "configs/config.yaml"
	rateLimitCleanup  = time.Minute
	jobSource         = "contractlens-apiserver"
)

// Build-time variables injected via ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file; missing means environment only")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the configuration")
	noJobs := flag.Bool("no-jobs", false, "do not expose the asynchronous job endpoint")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		return err
	}
	cfg, watchPath, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting ContractLens API server",
		logging.String("version", version),
		logging.Int("http_port", cfg.Server.Port),
		logging.Int("grpc_health_port", cfg.Server.GRPCHealthPort),
		logging.String("model", cfg.Model.Name+":"+cfg.Model.Version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := comps.Close(); err != nil {
			logger.Error("component shutdown failed", logging.Err(err))
		}
	}()

	readiness := handlers.NewHealthHandler(version, comps.AppMetrics, httpCheckers(comps.Probes())...).
		WithInferenceMetrics(comps.IntelMetrics)
	routerCfg := httpserver.RouterConfig{
		AnalysisHandler:   handlers.NewAnalysisHandler(comps.Service, comps.AppMetrics, logger.Named("api"), cfg.Server.MaxBodySize),
		HealthHandler:     readiness,
		LoggingMiddleware: middleware.NewLoggingMiddleware(logger.Named("access"), comps.AppMetrics, middleware.DefaultLoggingConfig()),
		MetricsCollector:  comps.Collector,
	}

	if cfg.Server.RateLimitRPS > 0 {
		limiter := middleware.NewTokenBucketLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, rateLimitCleanup)
		defer limiter.Stop()
		routerCfg.RateLimitMiddleware = middleware.NewRateLimitMiddleware(limiter)
	}

	if !*noJobs && len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:       cfg.Kafka.Brokers,
			Acks:          "all",
			SASLMechanism: cfg.Kafka.SASLMechanism,
			SASLUsername:  cfg.Kafka.SASLUsername,
			SASLPassword:  cfg.Kafka.SASLPassword,
		}, logger.Named("kafka"))
		if err != nil {
			return err
		}
		defer producer.Close()

		submitter, err := analysis.NewJobSubmitter(producer, cfg.Kafka.RequestTopic, jobSource)
		if err != nil {
			return err
		}
		routerCfg.JobHandler = handlers.NewJobHandler(submitter, logger.Named("api"), cfg.Server.MaxBodySize)
	}

	if watchPath != "" {
		watchLogLevel(watchPath, logger)
	}

	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)
	health := grpchealth.NewServer(grpcCheckers(comps.Probes()), grpchealth.WithLogger(logger.Named("grpc")))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	if cfg.Server.GRPCHealthPort > 0 {
		g.Go(func() error { return health.ListenAndServe(cfg.Server.GRPCHealthPort) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = health.Stop(shutdownCtx)
		return srv.Stop(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("API server stopped")
	return err
}

// loadConfig reads path when it exists and falls back to the environment.
// The returned path is empty when no file was used.
func loadConfig(path string) (*config.Config, string, error) {
	if _, err := os.Stat(path); err != nil {
		cfg, err := config.LoadFromEnv()
		return cfg, "", err
	}
	cfg, err := config.Load(path)
	return cfg, path, err
}

// watchLogLevel applies log.level edits without a restart. Other changes
// need one.
func watchLogLevel(path string, logger logging.Logger) {
	err := config.Watch(path, func(c *config.Config) {
		level, err := logging.ParseLevel(c.Log.Level)
		if err != nil {
			return
		}
		if logging.SetLevel(logger, level) {
			logger.Info("log level changed", logging.String("level", level.String()))
		}
	}, func(err error) {
		logger.Warn("ignoring invalid configuration change", logging.Err(err))
	})
	if err != nil {
		logger.Warn("config watch disabled", logging.Err(err))
	}
}

func httpCheckers(probes []app.Probe) []handlers.HealthChecker {
	out := make([]handlers.HealthChecker, len(probes))
	for i, p := range probes {
		out[i] = p
	}
	return out
}

func grpcCheckers(probes []app.Probe) []grpchealth.HealthChecker {
	out := make([]grpchealth.HealthChecker, len(probes))
	for i, p := range probes {
		out[i] = p
	}
	return out
}

//Personal.AI order the ending
