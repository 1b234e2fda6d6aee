package kafka

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContractLens/internal/config"
	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/common"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

func TestEventEnvelope_RoundTrip(t *testing.T) {
	job := AnalysisJob{JobID: "job-1", Text: "This Agreement ...", Categories: []contract.Category{contract.CategoryTermination}}
	env, err := NewEventEnvelope(EventAnalysisRequested, "apiserver", job)
	require.NoError(t, err)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, "v1", env.SchemaVersion)

	env.TraceID = "trace-7"
	msg, err := env.ToMessage(requestTopic, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, "job-1", string(msg.Key))
	assert.Equal(t, "trace-7", msg.Headers["trace_id"])
	assert.Equal(t, EventAnalysisRequested, msg.Headers["event_type"])

	parsed, err := MessageToEventEnvelope(&common.Message{Value: msg.Value})
	require.NoError(t, err)
	var out AnalysisJob
	require.NoError(t, parsed.DecodePayload(&out))
	assert.Equal(t, job.JobID, out.JobID)
	assert.Equal(t, job.Categories, out.Categories)
}

func TestMessageToEventEnvelope_Invalid(t *testing.T) {
	_, err := MessageToEventEnvelope(&common.Message{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeMessageInvalid))

	_, err = MessageToEventEnvelope(&common.Message{Value: []byte("{")})
	assert.True(t, errors.IsCode(err, errors.ErrCodeMessageInvalid))

	env := &EventEnvelope{EventID: "e"}
	var job AnalysisJob
	assert.True(t, errors.IsCode(env.DecodePayload(&job), errors.ErrCodeMessageInvalid))
}

func TestAnalysisJob_Validate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		job  AnalysisJob
		ok   bool
	}{
		{"text", AnalysisJob{JobID: "j", Text: "t"}, true},
		{"object", AnalysisJob{JobID: "j", ObjectKey: "k"}, true},
		{"neither", AnalysisJob{JobID: "j"}, false},
		{"both", AnalysisJob{JobID: "j", Text: "t", ObjectKey: "k"}, false},
		{"no id", AnalysisJob{Text: "t"}, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.job.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.IsCode(err, errors.ErrCodeMessageInvalid))
			}
		})
	}
}

type fakeConn struct {
	created    []kafka.TopicConfig
	createErr  error
	partitions map[string][]kafka.Partition
}

func (c *fakeConn) CreateTopics(topics ...kafka.TopicConfig) error {
	if c.createErr != nil {
		return c.createErr
	}
	c.created = append(c.created, topics...)
	return nil
}

func (c *fakeConn) ReadPartitions(topics ...string) ([]kafka.Partition, error) {
	var out []kafka.Partition
	for _, t := range topics {
		out = append(out, c.partitions[t]...)
	}
	return out, nil
}

func (c *fakeConn) Close() error { return nil }

func TestTopicManager_EnsureAnalysisTopics(t *testing.T) {
	cfg := config.KafkaConfig{RequestTopic: "req", ResultTopic: "res"}
	specs := AnalysisTopics(cfg, 0)
	require.Len(t, specs, 3)
	assert.Equal(t, "req.dlq", specs[2].Name)
	assert.Equal(t, 1, specs[0].ReplicationFactor)

	conn := &fakeConn{}
	m := NewTopicManagerWithConn(conn, nil)
	require.NoError(t, m.EnsureTopics(context.Background(), specs))
	require.Len(t, conn.created, 3)
	assert.Equal(t, "retention.ms", conn.created[0].ConfigEntries[0].ConfigName)
}

func TestTopicManager_ExistingTopicIsOK(t *testing.T) {
	conn := &fakeConn{createErr: kafka.TopicAlreadyExists}
	m := NewTopicManagerWithConn(conn, nil)
	assert.NoError(t, m.CreateTopic(context.Background(), TopicSpec{Name: "req", NumPartitions: 1, ReplicationFactor: 1}))

	conn = &fakeConn{
		createErr:  stderrors.New("controller moved"),
		partitions: map[string][]kafka.Partition{"req": {{Topic: "req"}}},
	}
	m = NewTopicManagerWithConn(conn, nil)
	assert.NoError(t, m.CreateTopic(context.Background(), TopicSpec{Name: "req", NumPartitions: 1, ReplicationFactor: 1}))

	err := m.CreateTopic(context.Background(), TopicSpec{Name: "missing", NumPartitions: 1, ReplicationFactor: 1})
	assert.True(t, errors.IsCode(err, errors.ErrCodeMessageQueueError))
}

func TestTopicManager_Validation(t *testing.T) {
	m := NewTopicManagerWithConn(&fakeConn{}, nil)
	assert.Error(t, m.CreateTopic(context.Background(), TopicSpec{}))
	assert.Error(t, m.CreateTopic(context.Background(), TopicSpec{Name: "x"}))
}

//Personal.AI order the ending
