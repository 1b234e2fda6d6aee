package clause_qa

import (
	"context"
	"fmt"
	"time"

	"github.com/turtacn/ContractLens/internal/intelligence/common"
	"github.com/turtacn/ContractLens/pkg/errors"
)

// SpanModel yields per-token start and end scores for an encoded pair. Both
// slices have the sequence length of the input.
type SpanModel interface {
	Infer(ctx context.Context, in *EncodedInput) (start, end []float64, err error)
}

// Tensor names exchanged with the served question-answering model.
const (
	InputIDsTensor      = "input_ids"
	AttentionMaskTensor = "attention_mask"
	TokenTypeIDsTensor  = "token_type_ids"
	StartLogitsTensor   = "start_logits"
	EndLogitsTensor     = "end_logits"
)

const (
	defaultModelName    = "cuad-qa"
	defaultInferTimeout = 30 * time.Second
	spanModelTaskType   = "span_extraction"
	defaultSendTypeIDs  = true
)

// SpanModelConfig identifies the served model and how to call it.
type SpanModelConfig struct {
	ModelName    string        `json:"model_name" yaml:"model_name"`
	ModelVersion string        `json:"model_version" yaml:"model_version"`
	Timeout      time.Duration `json:"timeout" yaml:"timeout"`

	// SendTokenTypeIDs is false for RoBERTa-style models without segment embeddings.
	SendTokenTypeIDs bool `json:"send_token_type_ids" yaml:"send_token_type_ids"`
}

// NewSpanModelConfig returns defaults overlaid with the non-zero fields of
// overrides. SendTokenTypeIDs is always taken from overrides when given.
func NewSpanModelConfig(overrides *SpanModelConfig) *SpanModelConfig {
	cfg := &SpanModelConfig{
		ModelName:        defaultModelName,
		Timeout:          defaultInferTimeout,
		SendTokenTypeIDs: defaultSendTypeIDs,
	}
	if overrides == nil {
		return cfg
	}
	if overrides.ModelName != "" {
		cfg.ModelName = overrides.ModelName
	}
	if overrides.ModelVersion != "" {
		cfg.ModelVersion = overrides.ModelVersion
	}
	if overrides.Timeout > 0 {
		cfg.Timeout = overrides.Timeout
	}
	cfg.SendTokenTypeIDs = overrides.SendTokenTypeIDs
	return cfg
}

func (c *SpanModelConfig) Validate() error {
	if c.ModelName == "" {
		return errors.InvalidParam("span model name is required")
	}
	if c.Timeout <= 0 {
		return errors.InvalidParam("span model timeout must be positive")
	}
	return nil
}

// RemoteSpanModel implements SpanModel over a common.ModelBackend.
type RemoteSpanModel struct {
	backend common.ModelBackend
	cfg     *SpanModelConfig
	metrics common.IntelligenceMetrics
	logger  common.Logger
}

// NewRemoteSpanModel wires a backend into a SpanModel. Nil metrics and
// logger fall back to no-op implementations.
func NewRemoteSpanModel(backend common.ModelBackend, cfg *SpanModelConfig, metrics common.IntelligenceMetrics, logger common.Logger) (*RemoteSpanModel, error) {
	if backend == nil {
		return nil, errors.InvalidParam("model backend is required")
	}
	if cfg == nil {
		cfg = NewSpanModelConfig(nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = common.NewNoopIntelligenceMetrics()
	}
	if logger == nil {
		logger = common.NewNoopLogger()
	}
	return &RemoteSpanModel{backend: backend, cfg: cfg, metrics: metrics, logger: logger}, nil
}

// Infer sends the encoded tensors to the backend and returns the start and
// end logits.
func (m *RemoteSpanModel) Infer(ctx context.Context, in *EncodedInput) ([]float64, []float64, error) {
	if in == nil || in.Len() == 0 {
		return nil, nil, errors.New(errors.ErrCodeAIInputInvalid, "encoded input is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	inputs := []common.Tensor{
		common.Int64Tensor(InputIDsTensor, in.InputIDs),
		common.Int64Tensor(AttentionMaskTensor, in.AttentionMask),
	}
	if m.cfg.SendTokenTypeIDs {
		inputs = append(inputs, common.Int64Tensor(TokenTypeIDsTensor, in.TokenTypeIDs))
	}
	req := &common.PredictRequest{
		ModelName:    m.cfg.ModelName,
		ModelVersion: m.cfg.ModelVersion,
		Inputs:       inputs,
		OutputNames:  []string{StartLogitsTensor, EndLogitsTensor},
	}

	start := time.Now()
	resp, err := m.backend.Predict(ctx, req)
	m.record(ctx, in.Len(), time.Since(start), err == nil)
	if err != nil {
		m.logger.Warn("span model inference failed", "model", m.cfg.ModelName, "error", err)
		return nil, nil, errors.Wrap(err, errors.ErrCodeAIInferenceFailed, "span model inference failed")
	}

	startLogits, err := m.logits(resp, StartLogitsTensor, in.Len())
	if err != nil {
		return nil, nil, err
	}
	endLogits, err := m.logits(resp, EndLogitsTensor, in.Len())
	if err != nil {
		return nil, nil, err
	}
	return startLogits, endLogits, nil
}

func (m *RemoteSpanModel) logits(resp *common.PredictResponse, name string, want int) ([]float64, error) {
	t, ok := resp.Output(name)
	if !ok {
		return nil, errors.New(errors.ErrCodeAIInferenceFailed, "model response is missing an output").WithDetail("output=" + name)
	}
	if len(t.Data) != want {
		return nil, errors.New(errors.ErrCodeAIModelVersionMismatch, "model output length differs from sequence length").
			WithDetail(fmt.Sprintf("output=%s got=%d want=%d", name, len(t.Data), want))
	}
	return t.Data, nil
}

func (m *RemoteSpanModel) record(ctx context.Context, tokens int, d time.Duration, ok bool) {
	m.metrics.RecordInference(ctx, &common.InferenceMetricParams{
		ModelName:    m.cfg.ModelName,
		ModelVersion: m.cfg.ModelVersion,
		TaskType:     spanModelTaskType,
		DurationMs:   float64(d.Microseconds()) / 1000,
		Success:      ok,
		InputTokens:  tokens,
	})
}

var _ SpanModel = (*RemoteSpanModel)(nil)

//Personal.AI order the ending
