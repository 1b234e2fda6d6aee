package kafka

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/common"
)

func TestValidateProducerConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cfg  ProducerConfig
		ok   bool
	}{
		{"valid", ProducerConfig{Brokers: []string{"b:9092"}}, true},
		{"no brokers", ProducerConfig{}, false},
		{"negative retries", ProducerConfig{Brokers: []string{"b"}, MaxRetries: -1}, false},
		{"sasl without creds", ProducerConfig{Brokers: []string{"b"}, SASLMechanism: "PLAIN"}, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateProducerConfig(tt.cfg)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSASLMechanism(t *testing.T) {
	mech, err := saslMechanism("", "", "")
	require.NoError(t, err)
	assert.Nil(t, mech)

	mech, err = saslMechanism("PLAIN", "u", "p")
	require.NoError(t, err)
	assert.Equal(t, "PLAIN", mech.Name())

	mech, err = saslMechanism("SCRAM-SHA-512", "u", "p")
	require.NoError(t, err)
	assert.Equal(t, "SCRAM-SHA-512", mech.Name())

	_, err = saslMechanism("GSSAPI", "u", "p")
	assert.Error(t, err)
}

func TestProducer_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, ProducerConfig{}, nil)

	err := p.Publish(context.Background(), &common.ProducerMessage{
		Topic:   "contract.analysis.completed",
		Key:     []byte("job-1"),
		Value:   []byte(`{"ok":true}`),
		Headers: map[string]string{"event_type": "x"},
	})
	require.NoError(t, err)
	require.Len(t, w.written, 1)
	assert.Equal(t, "job-1", string(w.written[0].Key))
	assert.Equal(t, "event_type", w.written[0].Headers[0].Key)
	assert.False(t, w.written[0].Time.IsZero())
	assert.Equal(t, int64(1), p.Sent())
}

func TestProducer_PublishValidation(t *testing.T) {
	p := NewProducerWithWriter(&recordingWriter{}, ProducerConfig{MaxMessageBytes: 4}, nil)
	ctx := context.Background()

	assert.True(t, errors.IsCode(p.Publish(ctx, &common.ProducerMessage{Value: []byte("x")}), errors.ErrCodeMessageInvalid))
	assert.True(t, errors.IsCode(p.Publish(ctx, &common.ProducerMessage{Topic: "t"}), errors.ErrCodeMessageInvalid))
	assert.True(t, errors.IsCode(p.Publish(ctx, &common.ProducerMessage{Topic: "t", Value: []byte("12345")}), errors.ErrCodeMessageInvalid))
}

func TestProducer_WriteFailure(t *testing.T) {
	w := &recordingWriter{err: stderrors.New("leader not available")}
	p := NewProducerWithWriter(w, ProducerConfig{}, nil)

	err := p.Publish(context.Background(), &common.ProducerMessage{Topic: "t", Value: []byte("v")})
	assert.True(t, errors.IsCode(err, errors.ErrCodeMessageQueueError))
	assert.Equal(t, int64(1), p.Failed())
}

func TestProducer_Close(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w, ProducerConfig{}, nil)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
	assert.ErrorIs(t, p.Publish(context.Background(), &common.ProducerMessage{Topic: "t", Value: []byte("v")}), ErrProducerClosed)
}

//Personal.AI order the ending
