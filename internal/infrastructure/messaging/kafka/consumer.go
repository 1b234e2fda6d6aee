package kafka

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/common"
)

var (
	ErrAlreadyRunning = errors.New(errors.ErrCodeConflict, "consumer already running")
)

// Dead-letter headers.
const (
	HeaderOriginalTopic = "original_topic"
	HeaderErrorMessage  = "error_message"
	HeaderErrorCode     = "error_code"
	HeaderAttempts      = "attempts"
)

// RetryConfig defines handler retry behaviour.
type RetryConfig struct {
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
	DeadLetterTopic string
}

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	Brokers         []string
	GroupID         string
	Topics          []string
	AutoOffsetReset string // "earliest" | "latest"
	CommitInterval  time.Duration
	SessionTimeout  time.Duration
	MaxWait         time.Duration
	Workers         int
	SASLMechanism   string
	SASLUsername    string
	SASLPassword    string
	RetryConfig     RetryConfig
}

// ConsumerMetrics holds consumer counters.
type ConsumerMetrics struct {
	MessagesConsumed     atomic.Int64
	MessagesProcessed    atomic.Int64
	MessagesFailed       atomic.Int64
	MessagesRetried      atomic.Int64
	MessagesDeadLettered atomic.Int64
	Lag                  atomic.Int64
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer fetches messages with a group reader and dispatches them to the
// handler registered for their topic.
type Consumer struct {
	reader ReaderInterface
	dlq    Publisher
	config ConsumerConfig
	logger logging.Logger

	handlers map[string]common.MessageHandler
	mu       sync.RWMutex

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	fetchBackoff time.Duration
	metrics      ConsumerMetrics
	closers      []func() error
}

// NewConsumer creates a group consumer. When a dead-letter topic is set a
// dedicated producer is created for it.
func NewConsumer(cfg ConsumerConfig, logger logging.Logger) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	applyConsumerDefaults(&cfg)

	mech, err := saslMechanism(cfg.SASLMechanism, cfg.SASLUsername, cfg.SASLPassword)
	if err != nil {
		return nil, err
	}
	readerCfg := kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		GroupTopics:    cfg.Topics,
		MinBytes:       1,
		MaxBytes:       10 << 20,
		MaxWait:        cfg.MaxWait,
		CommitInterval: cfg.CommitInterval,
		SessionTimeout: cfg.SessionTimeout,
		StartOffset:    kafka.FirstOffset,
		Dialer:         &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true, SASLMechanism: mech},
	}
	if cfg.AutoOffsetReset == "latest" {
		readerCfg.StartOffset = kafka.LastOffset
	}
	reader := kafka.NewReader(readerCfg)

	var dlq *Producer
	if cfg.RetryConfig.DeadLetterTopic != "" {
		dlq, err = NewProducer(ProducerConfig{
			Brokers:       cfg.Brokers,
			SASLMechanism: cfg.SASLMechanism,
			SASLUsername:  cfg.SASLUsername,
			SASLPassword:  cfg.SASLPassword,
		}, logger)
		if err != nil {
			_ = reader.Close()
			return nil, err
		}
	}

	c := NewConsumerWithReader(reader, nil, cfg, logger)
	if dlq != nil {
		c.dlq = dlq
		c.closers = append(c.closers, dlq.Close)
	}
	return c, nil
}

// NewConsumerWithReader wraps an existing reader; dlq may be nil.
func NewConsumerWithReader(reader ReaderInterface, dlq Publisher, cfg ConsumerConfig, logger logging.Logger) *Consumer {
	applyConsumerDefaults(&cfg)
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Consumer{
		reader:       reader,
		dlq:          dlq,
		config:       cfg,
		logger:       logger,
		handlers:     make(map[string]common.MessageHandler),
		fetchBackoff: time.Second,
	}
}

func applyConsumerDefaults(cfg *ConsumerConfig) {
	if cfg.AutoOffsetReset == "" {
		cfg.AutoOffsetReset = "earliest"
	}
	if cfg.CommitInterval == 0 {
		cfg.CommitInterval = time.Second
	}
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = 30 * time.Second
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = 5 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryConfig.RetryBackoff == 0 {
		cfg.RetryConfig.RetryBackoff = time.Second
	}
	if cfg.RetryConfig.MaxRetryBackoff == 0 {
		cfg.RetryConfig.MaxRetryBackoff = 30 * time.Second
	}
}

// Subscribe registers handler for topic.
func (c *Consumer) Subscribe(topic string, handler common.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[topic] = handler
	c.logger.Info("subscribed to topic", logging.String("topic", topic))
}

// Start launches the fetch loops and returns immediately.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	for i := 0; i < c.config.Workers; i++ {
		c.wg.Add(1)
		go c.consumeLoop(ctx)
	}
	c.logger.Info("kafka consumer started",
		logging.String("group", c.config.GroupID),
		logging.Int("workers", c.config.Workers))
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.wg.Done()

	for ctx.Err() == nil {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("fetch message failed", logging.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.fetchBackoff):
			}
			continue
		}

		c.metrics.MessagesConsumed.Add(1)
		if m.HighWaterMark > 0 {
			c.metrics.Lag.Store(m.HighWaterMark - m.Offset - 1)
		}

		c.mu.RLock()
		handler, ok := c.handlers[m.Topic]
		c.mu.RUnlock()

		if !ok {
			c.logger.Warn("no handler for topic", logging.String("topic", m.Topic))
		} else if c.process(ctx, toMessage(m), handler) {
			c.metrics.MessagesProcessed.Add(1)
		} else {
			c.metrics.MessagesFailed.Add(1)
		}

		if ctx.Err() != nil {
			// Leave the offset uncommitted so the message is redelivered.
			return
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("commit failed", logging.Int64("offset", m.Offset), logging.Err(err))
		}
	}
}

// process runs handler with exponential-backoff retries and dead-letters the
// message when they are exhausted. Client errors and QA precondition
// failures fail the same way every time and are not retried.
func (c *Consumer) process(ctx context.Context, msg *common.Message, handler common.MessageHandler) bool {
	err := handler(ctx, msg)
	if err == nil {
		return true
	}

	attempts := 1
	backoff := c.config.RetryConfig.RetryBackoff
	if retryable(err) {
		for i := 0; i < c.config.RetryConfig.MaxRetries; i++ {
			c.metrics.MessagesRetried.Add(1)
			select {
			case <-ctx.Done():
				return false
			case <-time.After(backoff):
			}

			attempts++
			if err = handler(ctx, msg); err == nil {
				return true
			}
			backoff *= 2
			if backoff > c.config.RetryConfig.MaxRetryBackoff {
				backoff = c.config.RetryConfig.MaxRetryBackoff
			}
		}
	}

	c.logger.Error("message processing failed",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Int("attempts", attempts),
		logging.Err(err))
	c.deadLetter(ctx, msg, err, attempts)
	return false
}

func retryable(err error) bool {
	return !errors.IsClientError(errors.GetCode(err)) && !errors.IsInputError(err)
}

func (c *Consumer) deadLetter(ctx context.Context, msg *common.Message, cause error, attempts int) {
	if c.dlq == nil || c.config.RetryConfig.DeadLetterTopic == "" {
		return
	}
	headers := make(map[string]string, len(msg.Headers)+4)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderOriginalTopic] = msg.Topic
	headers[HeaderErrorMessage] = cause.Error()
	headers[HeaderErrorCode] = errors.GetCode(cause).String()
	headers[HeaderAttempts] = strconv.Itoa(attempts)

	dl := &common.ProducerMessage{
		Topic:   c.config.RetryConfig.DeadLetterTopic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
	if err := c.dlq.Publish(ctx, dl); err != nil {
		c.logger.Error("dead-letter publish failed", logging.Err(err))
		return
	}
	c.metrics.MessagesDeadLettered.Add(1)
}

func toMessage(m kafka.Message) *common.Message {
	msg := &common.Message{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       m.Key,
		Value:     m.Value,
		Timestamp: m.Time,
		Headers:   make(map[string]string, len(m.Headers)),
	}
	for _, h := range m.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// Stats is a point-in-time copy of the consumer counters.
type Stats struct {
	Consumed     int64 `json:"consumed"`
	Processed    int64 `json:"processed"`
	Failed       int64 `json:"failed"`
	Retried      int64 `json:"retried"`
	DeadLettered int64 `json:"dead_lettered"`
	Lag          int64 `json:"lag"`
}

// Stats returns current counters.
func (c *Consumer) Stats() Stats {
	return Stats{
		Consumed:     c.metrics.MessagesConsumed.Load(),
		Processed:    c.metrics.MessagesProcessed.Load(),
		Failed:       c.metrics.MessagesFailed.Load(),
		Retried:      c.metrics.MessagesRetried.Load(),
		DeadLettered: c.metrics.MessagesDeadLettered.Load(),
		Lag:          c.metrics.Lag.Load(),
	}
}

// Running reports whether the fetch loops are active.
func (c *Consumer) Running() bool { return c.running.Load() }

// Close stops the fetch loops, waits for in-flight handlers and closes the
// reader.
func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return c.closeResources()
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.logger.Info("kafka consumer closed", logging.Int64("consumed", c.metrics.MessagesConsumed.Load()))
	return c.closeResources()
}

func (c *Consumer) closeResources() error {
	var first error
	if c.reader != nil {
		first = c.reader.Close()
		c.reader = nil
	}
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

// ValidateConsumerConfig validates configuration.
func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "brokers required")
	}
	if cfg.GroupID == "" {
		return errors.New(errors.ErrCodeValidation, "group id required")
	}
	if len(cfg.Topics) == 0 {
		return errors.New(errors.ErrCodeValidation, "at least one topic required")
	}
	if cfg.AutoOffsetReset != "" && cfg.AutoOffsetReset != "earliest" && cfg.AutoOffsetReset != "latest" {
		return errors.New(errors.ErrCodeValidation, "invalid auto offset reset")
	}
	if cfg.SASLMechanism != "" && (cfg.SASLUsername == "" || cfg.SASLPassword == "") {
		return errors.New(errors.ErrCodeValidation, "SASL credentials required")
	}
	if cfg.RetryConfig.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "max retries must be >= 0")
	}
	return nil
}

//Personal.AI order the ending
