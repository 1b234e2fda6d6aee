// Command worker consumes queued contract analyses from Kafka, runs them
// through the analysis service and publishes the results.
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
	httpserver "github.com/turtacn/ContractLens/internal/interfaces/http"
	"github.com/turtacn/ContractLens/internal/interfaces/http/handlers"
	"github.com/turtacn/ContractLens/pkg/errors"
)

const (
	defaultWorkerConfigPath = "configs/config.yaml"
	topicSetupTimeout       = 30 * time.Second
)

// Build-time variables injected via ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", defaultWorkerConfigPath, "path to configuration file; missing means environment only")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the configuration")
	workers := flag.Int("workers", 0, "concurrent fetch loops (overrides kafka.workers)")
	createTopics := flag.Bool("create-topics", true, "create the request, result and dead-letter topics on startup")
	replication := flag.Int("replication", 1, "replication factor for created topics")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *workers > 0 {
		cfg.Kafka.Workers = *workers
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "kafka.brokers is required for the worker")
	}

	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	workerID := workerName()
	logger.Info("starting ContractLens worker",
		logging.String("version", version),
		logging.String("worker", workerID),
		logging.Int("workers", cfg.Kafka.Workers),
		logging.String("request_topic", cfg.Kafka.RequestTopic),
		logging.String("result_topic", cfg.Kafka.ResultTopic))

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
	if comps.Locks == nil {
		logger.Warn("redis not configured; duplicate deliveries across workers are not deduplicated")
	}

	if *createTopics {
		ensureTopics(ctx, cfg.Kafka, *replication, logger.Named("kafka"))
	}

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

	processor, err := analysis.NewJobProcessor(comps.Service, producer, cfg.Kafka.ResultTopic, workerID, comps.JobLocks(), logger.Named("jobs"))
	if err != nil {
		return err
	}

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.GroupID,
		Topics:         []string{cfg.Kafka.RequestTopic},
		CommitInterval: cfg.Kafka.CommitInterval,
		Workers:        cfg.Kafka.Workers,
		SASLMechanism:  cfg.Kafka.SASLMechanism,
		SASLUsername:   cfg.Kafka.SASLUsername,
		SASLPassword:   cfg.Kafka.SASLPassword,
		RetryConfig: kafka.RetryConfig{
			MaxRetries:      cfg.Kafka.MaxRetries,
			RetryBackoff:    cfg.Kafka.RetryBackoff,
			DeadLetterTopic: cfg.Kafka.DLQTopic(),
		},
	}, logger.Named("kafka"))
	if err != nil {
		return err
	}
	consumer.Subscribe(cfg.Kafka.RequestTopic, processor.Handle)

	probes := append(comps.Probes(), app.Probe{Component: "kafka_consumer", Fn: func(context.Context) error {
		if !consumer.Running() {
			return errors.New(errors.ErrCodeServiceUnavailable, "consumer is not running")
		}
		return nil
	}})
	checkers := make([]handlers.HealthChecker, len(probes))
	for i, p := range probes {
		checkers[i] = p
	}
	healthSrv := httpserver.NewServer(config.ServerConfig{
		Port:            cfg.Kafka.HealthPort,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler:    handlers.NewHealthHandler(version, comps.AppMetrics, checkers...),
		MetricsCollector: comps.Collector,
	}), logger)

	if err := consumer.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(healthSrv.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down, draining in-flight jobs")
		if err := consumer.Close(); err != nil {
			logger.Error("consumer close failed", logging.Err(err))
		}
		st := consumer.Stats()
		logger.Info("consumer stopped",
			logging.Int64("consumed", st.Consumed),
			logging.Int64("processed", st.Processed),
			logging.Int64("failed", st.Failed),
			logging.Int64("dead_lettered", st.DeadLettered))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return healthSrv.Stop(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("worker stopped")
	return err
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}

// ensureTopics provisions the job topics. Failures are logged because a
// managed cluster may forbid topic creation while the topics already exist.
func ensureTopics(ctx context.Context, kc config.KafkaConfig, replication int, logger logging.Logger) {
	ctx, cancel := context.WithTimeout(ctx, topicSetupTimeout)
	defer cancel()

	tm, err := kafka.NewTopicManager(kc.Brokers, logger)
	if err != nil {
		logger.Warn("topic setup skipped", logging.Err(err))
		return
	}
	defer tm.Close()
	if err := tm.EnsureTopics(ctx, kafka.AnalysisTopics(kc, replication)); err != nil {
		logger.Warn("topic setup failed", logging.Err(err))
	}
}

func workerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

//Personal.AI order the ending
