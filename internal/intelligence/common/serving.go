package common

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ServingConfig configures the KServe v2 HTTP backend.
type ServingConfig struct {
	BaseURL          string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	BreakerThreshold int           `mapstructure:"breaker_threshold" yaml:"breaker_threshold"`
	BreakerReset     time.Duration `mapstructure:"breaker_reset" yaml:"breaker_reset"`
}

// kserve v2 wire types.
type inferTensor struct {
	Name     string    `json:"name"`
	Shape    []int64   `json:"shape"`
	Datatype string    `json:"datatype"`
	Data     []float64 `json:"data"`
}

type inferOutputRequest struct {
	Name string `json:"name"`
}

type inferRequest struct {
	ID      string               `json:"id"`
	Inputs  []inferTensor        `json:"inputs"`
	Outputs []inferOutputRequest `json:"outputs,omitempty"`
}

type inferResponse struct {
	ModelName    string        `json:"model_name"`
	ModelVersion string        `json:"model_version"`
	ID           string        `json:"id"`
	Outputs      []inferTensor `json:"outputs"`
}

type inferError struct {
	Error string `json:"error"`
}

// HTTPBackend is a ModelBackend speaking the KServe v2 inference protocol
// (Triton, TorchServe and KServe all serve it).
type HTTPBackend struct {
	baseURL *url.URL
	client  *http.Client
	breaker *CircuitBreaker
	logger  Logger
	closed  atomic.Bool
}

// NewHTTPBackend validates cfg and builds a backend. A nil client gets a
// pooled transport sized by MaxIdleConns.
func NewHTTPBackend(cfg ServingConfig, client *http.Client, logger Logger, metrics IntelligenceMetrics) (*HTTPBackend, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: serving base URL is required", ErrInvalidInput)
	}
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid serving base URL: %v", ErrInvalidInput, err)
	}
	if logger == nil {
		logger = NewNoopLogger()
	}
	if client == nil {
		idle := cfg.MaxIdleConns
		if idle <= 0 {
			idle = 16
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        idle,
				MaxIdleConnsPerHost: idle,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &HTTPBackend{
		baseURL: u,
		client:  client,
		breaker: NewCircuitBreaker("span-model", cfg.BreakerThreshold, cfg.BreakerReset, logger, metrics),
		logger:  logger,
	}, nil
}

func (b *HTTPBackend) inferURL(model, version string) string {
	p := "/v2/models/" + url.PathEscape(model)
	if version != "" {
		p += "/versions/" + url.PathEscape(version)
	}
	return b.baseURL.String() + p + "/infer"
}

// Predict posts one inference request.
func (b *HTTPBackend) Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error) {
	if b.closed.Load() {
		return nil, ErrBackendClosed
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !b.breaker.Allow() {
		return nil, fmt.Errorf("%w: %s", ErrServingUnavailable, ErrCircuitOpen)
	}

	resp, err := b.doInfer(ctx, req)
	if err != nil {
		b.breaker.RecordFailure()
		return nil, err
	}
	b.breaker.RecordSuccess()
	return resp, nil
}

func (b *HTTPBackend) doInfer(ctx context.Context, req *PredictRequest) (*PredictResponse, error) {
	body := inferRequest{ID: uuid.NewString()}
	for _, in := range req.Inputs {
		body.Inputs = append(body.Inputs, inferTensor{Name: in.Name, Shape: in.Shape, Datatype: in.Datatype, Data: in.Data})
	}
	for _, name := range req.OutputNames {
		body.Outputs = append(body.Outputs, inferOutputRequest{Name: name})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrInvalidInput, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.inferURL(req.ModelName, req.ModelVersion), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", body.ID)

	start := time.Now()
	httpResp, err := b.client.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", ErrInferenceTimeout, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrServingUnavailable, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrServingUnavailable, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		var ie inferError
		_ = json.Unmarshal(raw, &ie)
		b.logger.Warn("inference request rejected", "model", req.ModelName, "status", httpResp.StatusCode, "error", ie.Error)
		switch {
		case httpResp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrModelNotDeployed, req.ModelName)
		case httpResp.StatusCode == http.StatusBadRequest:
			return nil, fmt.Errorf("%w: %s", ErrInvalidInput, ie.Error)
		default:
			return nil, fmt.Errorf("%w: status %d: %s", ErrServingUnavailable, httpResp.StatusCode, ie.Error)
		}
	}

	var ir inferResponse
	if err := json.Unmarshal(raw, &ir); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrServingUnavailable, err)
	}
	out := &PredictResponse{
		ModelName:       ir.ModelName,
		ModelVersion:    ir.ModelVersion,
		InferenceTimeMs: time.Since(start).Milliseconds(),
	}
	for _, t := range ir.Outputs {
		out.Outputs = append(out.Outputs, Tensor{Name: t.Name, Datatype: t.Datatype, Shape: t.Shape, Data: t.Data})
	}
	return out, nil
}

// Healthy probes the server readiness endpoint.
func (b *HTTPBackend) Healthy(ctx context.Context) error {
	if b.closed.Load() {
		return ErrBackendClosed
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL.String()+"/v2/health/ready", nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServingUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: readiness status %d", ErrServingUnavailable, resp.StatusCode)
	}
	return nil
}

func (b *HTTPBackend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	b.client.CloseIdleConnections()
	return nil
}

// BreakerState exposes the circuit breaker state for readiness reporting.
func (b *HTTPBackend) BreakerState() CircuitState { return b.breaker.State() }

// MockBackend is a ModelBackend driven by PredictFunc.
type MockBackend struct {
	PredictFunc func(ctx context.Context, req *PredictRequest) (*PredictResponse, error)
	HealthErr   error
}

func (m *MockBackend) Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error) {
	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, req)
	}
	return &PredictResponse{ModelName: req.ModelName}, nil
}

func (m *MockBackend) Healthy(context.Context) error { return m.HealthErr }
func (m *MockBackend) Close() error                  { return nil }

var (
	_ ModelBackend = (*HTTPBackend)(nil)
	_ ModelBackend = (*MockBackend)(nil)
)

//Personal.AI order the ending
