package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/ContractLens/internal/config"
	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/common"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

// Event types carried in EventEnvelope.EventType.
const (
	EventAnalysisRequested = "contract.analysis.requested"
	EventAnalysisCompleted = "contract.analysis.completed"
	EventAnalysisFailed    = "contract.analysis.failed"

	schemaVersion = "v1"
)

// EventEnvelope wraps every payload on the analysis topics.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	TraceID       string            `json:"trace_id,omitempty"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// AnalysisJob asks a worker to analyse one contract. Exactly one of Text and
// ObjectKey is set.
type AnalysisJob struct {
	JobID        string                `json:"job_id"`
	Text         string                `json:"text,omitempty"`
	ObjectKey    string                `json:"object_key,omitempty"`
	Categories   []contract.Category   `json:"categories,omitempty"`
	Enhance      bool                  `json:"enhance,omitempty"`
	AnalysisType contract.AnalysisType `json:"analysis_type,omitempty"`
	SubmittedAt  time.Time             `json:"submitted_at"`
}

// Validate checks the job before it is queued or processed.
func (j *AnalysisJob) Validate() error {
	if j.JobID == "" {
		return errors.New(errors.ErrCodeMessageInvalid, "job id required")
	}
	if (j.Text == "") == (j.ObjectKey == "") {
		return errors.New(errors.ErrCodeMessageInvalid, "exactly one of text and object_key is required").WithDetail(j.JobID)
	}
	return nil
}

// AnalysisCompleted is published once per finished job.
type AnalysisCompleted struct {
	JobID      string                     `json:"job_id"`
	Analysis   *contract.ContractAnalysis `json:"analysis"`
	DurationMs int64                      `json:"duration_ms"`
	Worker     string                     `json:"worker,omitempty"`
}

// NewEventEnvelope marshals payload into a fresh envelope.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeMessageInvalid, "empty payload").WithDetail(e.EventID)
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeMessageInvalid, "failed to decode payload").WithDetail(e.EventID)
	}
	return nil
}

// ToMessage renders the envelope as a producer message keyed by key.
func (e *EventEnvelope) ToMessage(topic, key string) (*common.ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	headers := map[string]string{
		"event_type":     e.EventType,
		"source_service": e.Source,
		"schema_version": e.SchemaVersion,
	}
	if e.TraceID != "" {
		headers["trace_id"] = e.TraceID
	}
	return &common.ProducerMessage{
		Topic:     topic,
		Key:       []byte(key),
		Value:     val,
		Headers:   headers,
		Timestamp: e.Timestamp,
	}, nil
}

// MessageToEventEnvelope parses a consumed message.
func MessageToEventEnvelope(msg *common.Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeMessageInvalid, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessageInvalid, "failed to unmarshal envelope")
	}
	return &env, nil
}

// TopicSpec describes a topic to provision.
type TopicSpec struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
}

// AnalysisTopics returns the request, result and dead-letter topics for cfg.
func AnalysisTopics(cfg config.KafkaConfig, replication int) []TopicSpec {
	if replication <= 0 {
		replication = 1
	}
	const day = int64(24 * time.Hour / time.Millisecond)
	return []TopicSpec{
		{Name: cfg.RequestTopic, NumPartitions: 6, ReplicationFactor: replication, RetentionMs: 7 * day},
		{Name: cfg.ResultTopic, NumPartitions: 6, ReplicationFactor: replication, RetentionMs: 7 * day},
		{Name: cfg.DLQTopic(), NumPartitions: 3, ReplicationFactor: replication, RetentionMs: 30 * day},
	}
}

// ConnInterface abstracts kafka.Conn for testing.
type ConnInterface interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager provisions topics at startup.
type TopicManager struct {
	conn   ConnInterface
	logger logging.Logger
}

// NewTopicManager dials the first broker.
func NewTopicManager(brokers []string, logger logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "brokers required")
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMessageQueueError, "failed to dial kafka")
	}
	return NewTopicManagerWithConn(conn, logger), nil
}

// NewTopicManagerWithConn wraps an existing connection.
func NewTopicManagerWithConn(conn ConnInterface, logger logging.Logger) *TopicManager {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &TopicManager{conn: conn, logger: logger}
}

// CreateTopic creates spec, treating an existing topic as success.
func (m *TopicManager) CreateTopic(ctx context.Context, spec TopicSpec) error {
	if spec.Name == "" {
		return errors.New(errors.ErrCodeValidation, "topic name required")
	}
	if spec.NumPartitions <= 0 || spec.ReplicationFactor <= 0 {
		return errors.New(errors.ErrCodeValidation, "partitions and replication factor must be > 0").WithDetail(spec.Name)
	}

	kCfg := kafka.TopicConfig{
		Topic:             spec.Name,
		NumPartitions:     spec.NumPartitions,
		ReplicationFactor: spec.ReplicationFactor,
	}
	if spec.RetentionMs > 0 {
		kCfg.ConfigEntries = append(kCfg.ConfigEntries, kafka.ConfigEntry{ConfigName: "retention.ms", ConfigValue: strconv.FormatInt(spec.RetentionMs, 10)})
	}

	if err := m.conn.CreateTopics(kCfg); err != nil {
		if stderrors.Is(err, kafka.TopicAlreadyExists) {
			return nil
		}
		if exists, _ := m.TopicExists(ctx, spec.Name); exists {
			return nil
		}
		return errors.Wrap(err, errors.ErrCodeMessageQueueError, "failed to create topic").WithDetail(spec.Name)
	}
	m.logger.Info("topic created", logging.String("topic", spec.Name))
	return nil
}

// TopicExists reports whether name has at least one partition.
func (m *TopicManager) TopicExists(_ context.Context, name string) (bool, error) {
	partitions, err := m.conn.ReadPartitions(name)
	if err != nil {
		return false, nil
	}
	return len(partitions) > 0, nil
}

// EnsureTopics creates every spec in order.
func (m *TopicManager) EnsureTopics(ctx context.Context, specs []TopicSpec) error {
	for _, spec := range specs {
		if err := m.CreateTopic(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the controller connection.
func (m *TopicManager) Close() error { return m.conn.Close() }

//Personal.AI order the ending
