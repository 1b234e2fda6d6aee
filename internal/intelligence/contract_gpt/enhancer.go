// Package contract_gpt produces optional free-text contract analysis with a
// hosted LLM. The extractive pipeline never depends on it: callers treat every
// error from Enhance as a soft failure.
package contract_gpt

import (
	"context"
	"strings"
	"time"

	"github.com/turtacn/ContractLens/internal/intelligence/common"
	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

const (
	defaultTemperature     float32 = 0.1
	defaultMaxOutputTokens int32   = 2000
	defaultMaxInputChars           = 4000
	defaultTimeout                 = 30 * time.Second
	enhancementTaskType            = "enhancement"
)

var defaultModels = []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-pro"}

// Generator performs one text generation call against model.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest is a single system+user prompt call.
type GenerateRequest struct {
	Model           string
	System          string
	Prompt          string
	Temperature     float32
	MaxOutputTokens int32
}

// EnhancerConfig controls model fallback and generation parameters.
type EnhancerConfig struct {
	Models          []string      `json:"models" yaml:"models"`
	Temperature     float32       `json:"temperature" yaml:"temperature"`
	MaxOutputTokens int32         `json:"max_output_tokens" yaml:"max_output_tokens"`
	MaxInputChars   int           `json:"max_input_chars" yaml:"max_input_chars"`
	Timeout         time.Duration `json:"timeout" yaml:"timeout"`
}

// NewEnhancerConfig returns defaults overlaid with the non-zero fields of
// overrides.
func NewEnhancerConfig(overrides *EnhancerConfig) *EnhancerConfig {
	cfg := &EnhancerConfig{
		Models:          append([]string(nil), defaultModels...),
		Temperature:     defaultTemperature,
		MaxOutputTokens: defaultMaxOutputTokens,
		MaxInputChars:   defaultMaxInputChars,
		Timeout:         defaultTimeout,
	}
	if overrides == nil {
		return cfg
	}
	if len(overrides.Models) > 0 {
		cfg.Models = append([]string(nil), overrides.Models...)
	}
	if overrides.Temperature > 0 {
		cfg.Temperature = overrides.Temperature
	}
	if overrides.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = overrides.MaxOutputTokens
	}
	if overrides.MaxInputChars > 0 {
		cfg.MaxInputChars = overrides.MaxInputChars
	}
	if overrides.Timeout > 0 {
		cfg.Timeout = overrides.Timeout
	}
	return cfg
}

func (c *EnhancerConfig) Validate() error {
	if len(c.Models) == 0 {
		return errors.InvalidParam("at least one enhancement model is required")
	}
	for _, m := range c.Models {
		if strings.TrimSpace(m) == "" {
			return errors.InvalidParam("enhancement model name must not be blank")
		}
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.InvalidParam("temperature must be within [0, 2]")
	}
	if c.MaxOutputTokens <= 0 {
		return errors.InvalidParam("max output tokens must be positive")
	}
	return nil
}

// Enhancer renders an analysis prompt and walks the model list until one
// model answers.
type Enhancer struct {
	gen     Generator
	prompts *PromptManager
	cfg     *EnhancerConfig
	metrics common.IntelligenceMetrics
	logger  common.Logger
	now     func() time.Time
}

// EnhancerOption configures an Enhancer.
type EnhancerOption func(*Enhancer)

func WithMetrics(m common.IntelligenceMetrics) EnhancerOption {
	return func(e *Enhancer) {
		if m != nil {
			e.metrics = m
		}
	}
}

func WithLogger(l common.Logger) EnhancerOption {
	return func(e *Enhancer) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) EnhancerOption {
	return func(e *Enhancer) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEnhancer builds an Enhancer. Zero fields of cfg take their defaults. A
// nil generator yields an Enhancer whose Available reports false.
func NewEnhancer(gen Generator, cfg *EnhancerConfig, opts ...EnhancerOption) (*Enhancer, error) {
	cfg = NewEnhancerConfig(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pm, err := NewPromptManager()
	if err != nil {
		return nil, err
	}
	e := &Enhancer{
		gen:     gen,
		prompts: pm,
		cfg:     cfg,
		metrics: common.NewNoopIntelligenceMetrics(),
		logger:  common.NewNoopLogger(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Available reports whether a generator is configured.
func (e *Enhancer) Available() bool { return e != nil && e.gen != nil }

// Enhance asks the configured models in order for an analysis of text.
// The first non-empty answer wins.
func (e *Enhancer) Enhance(ctx context.Context, text string, t contract.AnalysisType, ct contract.ContractType) (*contract.Enhancement, error) {
	if !e.Available() {
		return nil, errors.New(errors.ErrCodeEnhancementUnavailable, "LLM enhancement not configured")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New(errors.ErrCodeContractTextEmpty, "contract text is empty")
	}
	if t == "" {
		t = contract.AnalysisComprehensive
	}
	prompt, err := e.prompts.Render(t, PromptData{
		ContractText: truncateRunes(text, e.cfg.MaxInputChars),
		ContractType: ct,
	})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, model := range e.cfg.Models {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeTimeout, "enhancement cancelled")
		}
		out, err := e.tryModel(ctx, model, prompt)
		if err != nil {
			lastErr = err
			e.logger.Warn("enhancement model failed, trying next", "model", model, "error", err)
			continue
		}
		return &contract.Enhancement{
			Analysis:  out,
			Model:     model,
			Timestamp: e.now().UTC(),
			Enhanced:  true,
		}, nil
	}
	return nil, errors.Wrap(lastErr, errors.ErrCodeAIInferenceFailed, "all enhancement models failed").
		WithDetail(strings.Join(e.cfg.Models, ","))
}

func (e *Enhancer) tryModel(ctx context.Context, model, prompt string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	start := time.Now()
	out, err := e.gen.Generate(cctx, GenerateRequest{
		Model:           model,
		System:          SystemInstruction,
		Prompt:          prompt,
		Temperature:     e.cfg.Temperature,
		MaxOutputTokens: e.cfg.MaxOutputTokens,
	})
	out = strings.TrimSpace(out)
	if err == nil && out == "" {
		err = errors.New(errors.ErrCodeAIInferenceFailed, "empty completion").WithDetail(model)
	}
	e.metrics.RecordInference(ctx, &common.InferenceMetricParams{
		ModelName:  model,
		TaskType:   enhancementTaskType,
		DurationMs: float64(time.Since(start).Microseconds()) / 1000,
		Success:    err == nil,
	})
	return out, err
}

//Personal.AI order the ending
