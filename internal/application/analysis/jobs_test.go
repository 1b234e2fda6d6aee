package analysis

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContractLens/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/common"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

type capturePublisher struct {
	mu   sync.Mutex
	msgs []*common.ProducerMessage
	err  error
}

func (c *capturePublisher) Publish(_ context.Context, m *common.ProducerMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, m)
	return nil
}

type fakeLock struct {
	held     bool
	err      error
	unlocked int
}

func (f *fakeLock) TryLock(context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return !f.held, nil
}

func (f *fakeLock) Unlock(context.Context) error {
	f.unlocked++
	return nil
}

type stubAnalyzer struct {
	got AnalyzeRequest
	err error
}

func (s *stubAnalyzer) AnalyzeContract(_ context.Context, req AnalyzeRequest) (*contract.ContractAnalysis, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &contract.ContractAnalysis{ID: "a-1", ContractType: contract.ContractTypeGeneral}, nil
}

func submitToMessage(t *testing.T, req AnalyzeRequest) *common.Message {
	t.Helper()
	pub := &capturePublisher{}
	sub, err := NewJobSubmitter(pub, "contract.analysis.requested", "apiserver")
	require.NoError(t, err)
	sub.newID = func() string { return "job-1" }
	_, err = sub.Submit(logging.WithRequestID(context.Background(), "req-9"), req)
	require.NoError(t, err)
	require.Len(t, pub.msgs, 1)
	pm := pub.msgs[0]
	return &common.Message{Topic: pm.Topic, Key: pm.Key, Value: pm.Value, Headers: pm.Headers}
}

func TestJobSubmitter_Submit(t *testing.T) {
	pub := &capturePublisher{}
	sub, err := NewJobSubmitter(pub, "contract.analysis.requested", "apiserver")
	require.NoError(t, err)
	sub.now = func() time.Time { return fixedNow }
	sub.newID = func() string { return "job-1" }

	ticket, err := sub.Submit(context.Background(), AnalyzeRequest{Text: generalText, Enhance: true})
	require.NoError(t, err)
	assert.Equal(t, &JobTicket{JobID: "job-1", Topic: "contract.analysis.requested", SubmittedAt: fixedNow}, ticket)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, []byte("job-1"), pub.msgs[0].Key)
	assert.Equal(t, kafka.EventAnalysisRequested, pub.msgs[0].Headers["event_type"])

	env, err := kafka.MessageToEventEnvelope(&common.Message{Value: pub.msgs[0].Value})
	require.NoError(t, err)
	var job kafka.AnalysisJob
	require.NoError(t, env.DecodePayload(&job))
	assert.Equal(t, generalText, job.Text)
	assert.True(t, job.Enhance)
}

func TestJobSubmitter_Errors(t *testing.T) {
	_, err := NewJobSubmitter(nil, "t", "s")
	assert.Error(t, err)
	_, err = NewJobSubmitter(&capturePublisher{}, "", "s")
	assert.Error(t, err)

	boom := stderrors.New("broker down")
	sub, err := NewJobSubmitter(&capturePublisher{err: boom}, "t", "s")
	require.NoError(t, err)
	_, err = sub.Submit(context.Background(), AnalyzeRequest{Text: "x"})
	assert.ErrorIs(t, err, boom)

	_, err = sub.Submit(context.Background(), AnalyzeRequest{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeContractTextEmpty))
}

func TestJobProcessor_PublishesResult(t *testing.T) {
	msg := submitToMessage(t, AnalyzeRequest{Text: generalText, Categories: []contract.Category{contract.CategoryRenewal}})
	an := &stubAnalyzer{}
	out := &capturePublisher{}
	lock := &fakeLock{}
	p, err := NewJobProcessor(an, out, "contract.analysis.completed", "worker-1",
		func(id string) JobLock { return lock }, nil)
	require.NoError(t, err)

	require.NoError(t, p.Handle(context.Background(), msg))
	assert.Equal(t, []contract.Category{contract.CategoryRenewal}, an.got.Categories)
	assert.Equal(t, 1, lock.unlocked)

	require.Len(t, out.msgs, 1)
	res := out.msgs[0]
	assert.Equal(t, "contract.analysis.completed", res.Topic)
	assert.Equal(t, []byte("job-1"), res.Key)
	assert.Equal(t, "req-9", res.Headers["trace_id"])

	env, err := kafka.MessageToEventEnvelope(&common.Message{Value: res.Value})
	require.NoError(t, err)
	var done kafka.AnalysisCompleted
	require.NoError(t, env.DecodePayload(&done))
	assert.Equal(t, "job-1", done.JobID)
	assert.Equal(t, "a-1", done.Analysis.ID)
	assert.Equal(t, "worker-1", done.Worker)
}

func TestJobProcessor_SkipsLockedJob(t *testing.T) {
	msg := submitToMessage(t, AnalyzeRequest{Text: generalText})
	an := &stubAnalyzer{}
	out := &capturePublisher{}
	lock := &fakeLock{held: true}
	p, err := NewJobProcessor(an, out, "done", "w", func(string) JobLock { return lock }, nil)
	require.NoError(t, err)

	require.NoError(t, p.Handle(context.Background(), msg))
	assert.Empty(t, out.msgs)
	assert.Zero(t, lock.unlocked)
}

func TestJobProcessor_Errors(t *testing.T) {
	msg := submitToMessage(t, AnalyzeRequest{Text: generalText})

	t.Run("lock backend down is retryable", func(t *testing.T) {
		p, err := NewJobProcessor(&stubAnalyzer{}, &capturePublisher{}, "done", "w",
			func(string) JobLock { return &fakeLock{err: stderrors.New("redis down")} }, nil)
		require.NoError(t, err)
		err = p.Handle(context.Background(), msg)
		assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
		assert.False(t, errors.IsClientError(errors.GetCode(err)))
	})

	t.Run("analysis client error surfaces unchanged", func(t *testing.T) {
		an := &stubAnalyzer{err: errors.New(errors.ErrCodeUnknownCategory, "unknown question category")}
		p, err := NewJobProcessor(an, &capturePublisher{}, "done", "w", nil, nil)
		require.NoError(t, err)
		err = p.Handle(context.Background(), msg)
		assert.True(t, errors.IsClientError(errors.GetCode(err)))
	})

	t.Run("garbage payload", func(t *testing.T) {
		p, err := NewJobProcessor(&stubAnalyzer{}, &capturePublisher{}, "done", "w", nil, nil)
		require.NoError(t, err)
		err = p.Handle(context.Background(), &common.Message{Value: []byte("{not json")})
		assert.True(t, errors.IsCode(err, errors.ErrCodeMessageInvalid))
	})

	t.Run("other event types are ignored", func(t *testing.T) {
		env, err := kafka.NewEventEnvelope(kafka.EventAnalysisFailed, "w", map[string]string{"x": "y"})
		require.NoError(t, err)
		pm, err := env.ToMessage("t", "k")
		require.NoError(t, err)
		an := &stubAnalyzer{}
		p, err := NewJobProcessor(an, &capturePublisher{}, "done", "w", nil, nil)
		require.NoError(t, err)
		assert.NoError(t, p.Handle(context.Background(), &common.Message{Value: pm.Value}))
		assert.Empty(t, an.got.Text)
	})

	t.Run("result publish failure", func(t *testing.T) {
		boom := stderrors.New("broker down")
		p, err := NewJobProcessor(&stubAnalyzer{}, &capturePublisher{err: boom}, "done", "w", nil, nil)
		require.NoError(t, err)
		assert.ErrorIs(t, p.Handle(context.Background(), msg), boom)
	})
}

//Personal.AI order the ending
