package common

import (
	"context"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// IntelligenceMetrics is the telemetry surface of the intelligence layer.
// The span model client, the batch processor and the risk engine all record
// through it so the backing store can be swapped in tests.
type IntelligenceMetrics interface {
	RecordInference(ctx context.Context, params *InferenceMetricParams)
	RecordBatchProcessing(ctx context.Context, params *BatchMetricParams)
	RecordCacheAccess(ctx context.Context, hit bool, cacheName string)
	RecordCircuitBreakerStateChange(ctx context.Context, name string, fromState, toState string)
	RecordRiskAssessment(ctx context.Context, riskLevel string, durationMs float64)
	GetInferenceLatencyHistogram() LatencyHistogram
	GetCurrentStats() *IntelligenceStats
}

// LatencyHistogram provides percentile-based latency observation in ms.
type LatencyHistogram interface {
	Observe(durationMs float64)
	Percentile(p float64) float64
	Count() int64
	Sum() float64
}

// InferenceMetricParams describes one span-model call.
type InferenceMetricParams struct {
	ModelName    string  `json:"model_name"`
	ModelVersion string  `json:"model_version"`
	TaskType     string  `json:"task_type"`
	DurationMs   float64 `json:"duration_ms"`
	Success      bool    `json:"success"`
	InputTokens  int     `json:"input_tokens,omitempty"`
}

// BatchMetricParams describes one batch run.
type BatchMetricParams struct {
	BatchName         string  `json:"batch_name"`
	TotalItems        int     `json:"total_items"`
	SuccessItems      int     `json:"success_items"`
	FailedItems       int     `json:"failed_items"`
	TimeoutItems      int     `json:"timeout_items"`
	CancelledItems    int     `json:"cancelled_items"`
	TotalDurationMs   float64 `json:"total_duration_ms"`
	AvgItemDurationMs float64 `json:"avg_item_duration_ms"`
	MaxConcurrency    int     `json:"max_concurrency"`
}

// IntelligenceStats is a point-in-time snapshot.
type IntelligenceStats struct {
	TotalInferences       int64             `json:"total_inferences"`
	SuccessfulInferences  int64             `json:"successful_inferences"`
	FailedInferences      int64             `json:"failed_inferences"`
	AvgInferenceLatencyMs float64           `json:"avg_inference_latency_ms"`
	P50LatencyMs          float64           `json:"p50_latency_ms"`
	P95LatencyMs          float64           `json:"p95_latency_ms"`
	P99LatencyMs          float64           `json:"p99_latency_ms"`
	CacheHitRate          float64           `json:"cache_hit_rate"`
	CircuitBreakerStates  map[string]string `json:"circuit_breaker_states"`
}

// ---------------------------------------------------------------------------
// Prometheus
// ---------------------------------------------------------------------------

const metricsPrefix = "contractlens_intelligence_"

var defaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

type prometheusIntelligenceMetrics struct {
	inferenceLatency        *prometheus.HistogramVec
	inferenceTotal          *prometheus.CounterVec
	batchProcessingDuration *prometheus.HistogramVec
	batchItemsTotal         *prometheus.CounterVec
	cacheAccessTotal        *prometheus.CounterVec
	circuitBreakerState     *prometheus.GaugeVec
	riskAssessmentTotal     *prometheus.CounterVec
	riskAssessmentDuration  *prometheus.HistogramVec

	latencyHist *latencyHistogram
	totalInf    atomic.Int64
	successInf  atomic.Int64
	failedInf   atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
	cbStates    sync.Map
}

// NewPrometheusIntelligenceMetrics registers the intelligence metrics with
// registerer (the default registerer when nil).
func NewPrometheusIntelligenceMetrics(registerer prometheus.Registerer) (IntelligenceMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &prometheusIntelligenceMetrics{latencyHist: newLatencyHistogram()}

	m.inferenceLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    metricsPrefix + "inference_duration_milliseconds",
		Help:    "Span model inference latency in milliseconds.",
		Buckets: defaultLatencyBuckets,
	}, []string{"model_name", "model_version", "task_type"})
	m.inferenceTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricsPrefix + "inference_total",
		Help: "Span model inferences by outcome.",
	}, []string{"model_name", "task_type", "status"})
	m.batchProcessingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    metricsPrefix + "batch_processing_duration_milliseconds",
		Help:    "Batch run duration in milliseconds.",
		Buckets: defaultLatencyBuckets,
	}, []string{"batch_name"})
	m.batchItemsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricsPrefix + "batch_items_total",
		Help: "Batch items by status.",
	}, []string{"batch_name", "status"})
	m.cacheAccessTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricsPrefix + "cache_access_total",
		Help: "Answer cache accesses.",
	}, []string{"cache", "result"})
	m.circuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: metricsPrefix + "circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=half_open, 2=open).",
	}, []string{"breaker"})
	m.riskAssessmentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricsPrefix + "risk_assessment_total",
		Help: "Risk assessments by overall level.",
	}, []string{"risk_level"})
	m.riskAssessmentDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    metricsPrefix + "risk_assessment_duration_milliseconds",
		Help:    "Risk assessment duration in milliseconds.",
		Buckets: defaultLatencyBuckets,
	}, []string{"risk_level"})

	for _, c := range []prometheus.Collector{
		m.inferenceLatency, m.inferenceTotal,
		m.batchProcessingDuration, m.batchItemsTotal,
		m.cacheAccessTotal, m.circuitBreakerState,
		m.riskAssessmentTotal, m.riskAssessmentDuration,
	} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *prometheusIntelligenceMetrics) RecordInference(_ context.Context, p *InferenceMetricParams) {
	if p == nil {
		return
	}
	status := "success"
	if !p.Success {
		status = "failure"
	}
	m.inferenceLatency.WithLabelValues(p.ModelName, p.ModelVersion, p.TaskType).Observe(p.DurationMs)
	m.inferenceTotal.WithLabelValues(p.ModelName, p.TaskType, status).Inc()

	m.latencyHist.Observe(p.DurationMs)
	m.totalInf.Add(1)
	if p.Success {
		m.successInf.Add(1)
	} else {
		m.failedInf.Add(1)
	}
}

func (m *prometheusIntelligenceMetrics) RecordBatchProcessing(_ context.Context, p *BatchMetricParams) {
	if p == nil {
		return
	}
	m.batchProcessingDuration.WithLabelValues(p.BatchName).Observe(p.TotalDurationMs)
	m.batchItemsTotal.WithLabelValues(p.BatchName, "success").Add(float64(p.SuccessItems))
	m.batchItemsTotal.WithLabelValues(p.BatchName, "failed").Add(float64(p.FailedItems))
	m.batchItemsTotal.WithLabelValues(p.BatchName, "timeout").Add(float64(p.TimeoutItems))
	m.batchItemsTotal.WithLabelValues(p.BatchName, "cancelled").Add(float64(p.CancelledItems))
}

func (m *prometheusIntelligenceMetrics) RecordCacheAccess(_ context.Context, hit bool, cacheName string) {
	result := "miss"
	if hit {
		result = "hit"
		m.cacheHits.Add(1)
	} else {
		m.cacheMisses.Add(1)
	}
	m.cacheAccessTotal.WithLabelValues(cacheName, result).Inc()
}

func (m *prometheusIntelligenceMetrics) RecordCircuitBreakerStateChange(_ context.Context, name string, _, toState string) {
	m.cbStates.Store(name, toState)
	m.circuitBreakerState.WithLabelValues(name).Set(circuitBreakerStateToFloat(toState))
}

func (m *prometheusIntelligenceMetrics) RecordRiskAssessment(_ context.Context, riskLevel string, durationMs float64) {
	m.riskAssessmentTotal.WithLabelValues(riskLevel).Inc()
	m.riskAssessmentDuration.WithLabelValues(riskLevel).Observe(durationMs)
}

func (m *prometheusIntelligenceMetrics) GetInferenceLatencyHistogram() LatencyHistogram {
	return m.latencyHist
}

func (m *prometheusIntelligenceMetrics) GetCurrentStats() *IntelligenceStats {
	total := m.totalInf.Load()
	states := make(map[string]string)
	m.cbStates.Range(func(k, v any) bool {
		states[k.(string)] = v.(string)
		return true
	})
	return &IntelligenceStats{
		TotalInferences:       total,
		SuccessfulInferences:  m.successInf.Load(),
		FailedInferences:      m.failedInf.Load(),
		AvgInferenceLatencyMs: safeDiv(m.latencyHist.Sum(), float64(total)),
		P50LatencyMs:          m.latencyHist.Percentile(50),
		P95LatencyMs:          m.latencyHist.Percentile(95),
		P99LatencyMs:          m.latencyHist.Percentile(99),
		CacheHitRate:          hitRate(m.cacheHits.Load(), m.cacheMisses.Load()),
		CircuitBreakerStates:  states,
	}
}

// ---------------------------------------------------------------------------
// Noop
// ---------------------------------------------------------------------------

type noopIntelligenceMetrics struct{}

// NewNoopIntelligenceMetrics returns metrics that record nothing.
func NewNoopIntelligenceMetrics() IntelligenceMetrics { return noopIntelligenceMetrics{} }

func (noopIntelligenceMetrics) RecordInference(context.Context, *InferenceMetricParams)                 {}
func (noopIntelligenceMetrics) RecordBatchProcessing(context.Context, *BatchMetricParams)               {}
func (noopIntelligenceMetrics) RecordCacheAccess(context.Context, bool, string)                         {}
func (noopIntelligenceMetrics) RecordCircuitBreakerStateChange(context.Context, string, string, string) {}
func (noopIntelligenceMetrics) RecordRiskAssessment(context.Context, string, float64)                   {}

func (noopIntelligenceMetrics) GetInferenceLatencyHistogram() LatencyHistogram {
	return newLatencyHistogram()
}

func (noopIntelligenceMetrics) GetCurrentStats() *IntelligenceStats {
	return &IntelligenceStats{CircuitBreakerStates: map[string]string{}}
}

// ---------------------------------------------------------------------------
// In-memory (tests)
// ---------------------------------------------------------------------------

// InMemoryIntelligenceMetrics keeps every record for later inspection.
type InMemoryIntelligenceMetrics struct {
	mu          sync.Mutex
	inferences  []InferenceMetricParams
	batches     []BatchMetricParams
	cacheHits   int64
	cacheMisses int64
	riskCounts  map[string]int64
	cbStates    map[string]string
	latencyHist *latencyHistogram
}

func NewInMemoryIntelligenceMetrics() *InMemoryIntelligenceMetrics {
	return &InMemoryIntelligenceMetrics{
		riskCounts:  make(map[string]int64),
		cbStates:    make(map[string]string),
		latencyHist: newLatencyHistogram(),
	}
}

func (m *InMemoryIntelligenceMetrics) RecordInference(_ context.Context, p *InferenceMetricParams) {
	if p == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inferences = append(m.inferences, *p)
	m.latencyHist.Observe(p.DurationMs)
}

func (m *InMemoryIntelligenceMetrics) RecordBatchProcessing(_ context.Context, p *BatchMetricParams) {
	if p == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, *p)
}

func (m *InMemoryIntelligenceMetrics) RecordCacheAccess(_ context.Context, hit bool, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.cacheHits++
	} else {
		m.cacheMisses++
	}
}

func (m *InMemoryIntelligenceMetrics) RecordCircuitBreakerStateChange(_ context.Context, name, _, toState string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cbStates[name] = toState
}

func (m *InMemoryIntelligenceMetrics) RecordRiskAssessment(_ context.Context, riskLevel string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.riskCounts[riskLevel]++
}

func (m *InMemoryIntelligenceMetrics) GetInferenceLatencyHistogram() LatencyHistogram {
	return m.latencyHist
}

func (m *InMemoryIntelligenceMetrics) GetCurrentStats() *IntelligenceStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var success, failed int64
	var sum float64
	for _, inf := range m.inferences {
		if inf.Success {
			success++
		} else {
			failed++
		}
		sum += inf.DurationMs
	}
	states := make(map[string]string, len(m.cbStates))
	for k, v := range m.cbStates {
		states[k] = v
	}
	total := int64(len(m.inferences))
	return &IntelligenceStats{
		TotalInferences:       total,
		SuccessfulInferences:  success,
		FailedInferences:      failed,
		AvgInferenceLatencyMs: safeDiv(sum, float64(total)),
		P50LatencyMs:          m.latencyHist.Percentile(50),
		P95LatencyMs:          m.latencyHist.Percentile(95),
		P99LatencyMs:          m.latencyHist.Percentile(99),
		CacheHitRate:          hitRate(m.cacheHits, m.cacheMisses),
		CircuitBreakerStates:  states,
	}
}

// Inferences returns a copy of the recorded inference events.
func (m *InMemoryIntelligenceMetrics) Inferences() []InferenceMetricParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]InferenceMetricParams(nil), m.inferences...)
}

// Batches returns a copy of the recorded batch runs.
func (m *InMemoryIntelligenceMetrics) Batches() []BatchMetricParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]BatchMetricParams(nil), m.batches...)
}

func (m *InMemoryIntelligenceMetrics) CacheHits() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cacheHits
}

func (m *InMemoryIntelligenceMetrics) CacheMisses() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cacheMisses
}

func (m *InMemoryIntelligenceMetrics) RiskCounts() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.riskCounts))
	for k, v := range m.riskCounts {
		out[k] = v
	}
	return out
}

// ---------------------------------------------------------------------------
// latencyHistogram
// ---------------------------------------------------------------------------

type latencyHistogram struct {
	mu      sync.Mutex
	samples []float64
	sum     float64
	sorted  bool
}

func newLatencyHistogram() *latencyHistogram {
	return &latencyHistogram{samples: make([]float64, 0, 256)}
}

func (h *latencyHistogram) Observe(durationMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = append(h.samples, durationMs)
	h.sum += durationMs
	h.sorted = false
}

// Percentile interpolates linearly between the two nearest ranks
// (PERCENTILE.INC).
func (h *latencyHistogram) Percentile(p float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.samples)
	if n == 0 {
		return 0
	}
	if !h.sorted {
		sort.Float64s(h.samples)
		h.sorted = true
	}
	if p <= 0 {
		return h.samples[0]
	}
	if p >= 100 {
		return h.samples[n-1]
	}
	rank := (p / 100) * float64(n-1)
	lower := int(math.Floor(rank))
	if lower+1 >= n {
		return h.samples[n-1]
	}
	frac := rank - float64(lower)
	return h.samples[lower] + frac*(h.samples[lower+1]-h.samples[lower])
}

func (h *latencyHistogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return int64(len(h.samples))
}

func (h *latencyHistogram) Sum() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sum
}

func circuitBreakerStateToFloat(state string) float64 {
	switch state {
	case "closed":
		return 0
	case "half_open":
		return 1
	case "open":
		return 2
	default:
		return -1
	}
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func hitRate(hits, misses int64) float64 {
	return safeDiv(float64(hits), float64(hits+misses))
}

var (
	_ IntelligenceMetrics = (*prometheusIntelligenceMetrics)(nil)
	_ IntelligenceMetrics = noopIntelligenceMetrics{}
	_ IntelligenceMetrics = (*InMemoryIntelligenceMetrics)(nil)
	_ LatencyHistogram    = (*latencyHistogram)(nil)
)

//Personal.AI order the ending
