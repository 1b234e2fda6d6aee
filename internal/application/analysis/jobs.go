package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/ContractLens/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/common"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

// Publisher sends one message to the queue. *kafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, msg *common.ProducerMessage) error
}

// JobTicket acknowledges a queued analysis.
type JobTicket struct {
	JobID       string    `json:"job_id"`
	Topic       string    `json:"topic"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// JobSubmitter queues analyses for the worker.
type JobSubmitter struct {
	pub    Publisher
	topic  string
	source string
	now    func() time.Time
	newID  func() string
}

// NewJobSubmitter publishes to topic, tagging envelopes with source.
func NewJobSubmitter(pub Publisher, topic, source string) (*JobSubmitter, error) {
	if pub == nil {
		return nil, errors.InvalidParam("publisher is required")
	}
	if topic == "" {
		return nil, errors.InvalidParam("request topic is required")
	}
	return &JobSubmitter{
		pub:    pub,
		topic:  topic,
		source: source,
		now:    time.Now,
		newID:  uuid.NewString,
	}, nil
}

// Submit validates req and publishes it keyed by a fresh job ID.
func (j *JobSubmitter) Submit(ctx context.Context, req AnalyzeRequest) (*JobTicket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	job := kafka.AnalysisJob{
		JobID:        j.newID(),
		Text:         req.Text,
		ObjectKey:    req.ObjectKey,
		Categories:   req.Categories,
		Enhance:      req.Enhance,
		AnalysisType: req.AnalysisType,
		SubmittedAt:  j.now().UTC(),
	}
	env, err := kafka.NewEventEnvelope(kafka.EventAnalysisRequested, j.source, job)
	if err != nil {
		return nil, err
	}
	env.TraceID = logging.RequestIDFromContext(ctx)
	msg, err := env.ToMessage(j.topic, job.JobID)
	if err != nil {
		return nil, err
	}
	if err := j.pub.Publish(ctx, msg); err != nil {
		return nil, err
	}
	return &JobTicket{JobID: job.JobID, Topic: j.topic, SubmittedAt: job.SubmittedAt}, nil
}

// JobLock guards a job against concurrent redelivery.
type JobLock interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// LockFunc returns the lock for a job ID.
type LockFunc func(jobID string) JobLock

// Analyzer is the part of Service the worker needs.
type Analyzer interface {
	AnalyzeContract(ctx context.Context, req AnalyzeRequest) (*contract.ContractAnalysis, error)
}

// JobProcessor turns queued jobs into published results.
type JobProcessor struct {
	analyzer    Analyzer
	pub         Publisher
	resultTopic string
	worker      string
	lock        LockFunc
	log         logging.Logger
}

// NewJobProcessor wires a processor. lock may be nil when a single worker
// consumes the topic.
func NewJobProcessor(analyzer Analyzer, pub Publisher, resultTopic, worker string, lock LockFunc, log logging.Logger) (*JobProcessor, error) {
	if analyzer == nil || pub == nil {
		return nil, errors.InvalidParam("analyzer and publisher are required")
	}
	if resultTopic == "" {
		return nil, errors.InvalidParam("result topic is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &JobProcessor{
		analyzer:    analyzer,
		pub:         pub,
		resultTopic: resultTopic,
		worker:      worker,
		lock:        lock,
		log:         log,
	}, nil
}

// Handle processes one request message. Client errors (bad payload, unknown
// category, empty text) come back unchanged so the consumer skips retries.
func (p *JobProcessor) Handle(ctx context.Context, msg *common.Message) error {
	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		return err
	}
	if env.EventType != kafka.EventAnalysisRequested {
		p.log.Warn("ignoring unexpected event", logging.String("event_type", env.EventType), logging.String("event_id", env.EventID))
		return nil
	}
	var job kafka.AnalysisJob
	if err := env.DecodePayload(&job); err != nil {
		return err
	}
	if err := job.Validate(); err != nil {
		return err
	}
	log := p.log.With(logging.String("job_id", job.JobID))

	if p.lock != nil {
		l := p.lock(job.JobID)
		ok, err := l.TryLock(ctx)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "acquire job lock")
		}
		if !ok {
			log.Info("job already in progress elsewhere, skipping")
			return nil
		}
		defer func() {
			if err := l.Unlock(context.Background()); err != nil {
				log.Warn("release job lock failed", logging.Err(err))
			}
		}()
	}

	start := time.Now()
	res, err := p.analyzer.AnalyzeContract(ctx, AnalyzeRequest{
		Text:         job.Text,
		ObjectKey:    job.ObjectKey,
		Categories:   job.Categories,
		Enhance:      job.Enhance,
		AnalysisType: job.AnalysisType,
	})
	if err != nil {
		return err
	}

	done := kafka.AnalysisCompleted{
		JobID:      job.JobID,
		Analysis:   res,
		DurationMs: time.Since(start).Milliseconds(),
		Worker:     p.worker,
	}
	out, err := kafka.NewEventEnvelope(kafka.EventAnalysisCompleted, p.worker, done)
	if err != nil {
		return err
	}
	out.TraceID = env.TraceID
	m, err := out.ToMessage(p.resultTopic, job.JobID)
	if err != nil {
		return err
	}
	if err := p.pub.Publish(ctx, m); err != nil {
		return err
	}
	log.Info("job completed",
		logging.String("analysis_id", res.ID),
		logging.Int64("duration_ms", done.DurationMs))
	return nil
}

//Personal.AI order the ending
