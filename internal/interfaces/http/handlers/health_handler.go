package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	prom "github.com/turtacn/ContractLens/internal/infrastructure/monitoring/prometheus"
	intel "github.com/turtacn/ContractLens/internal/intelligence/common"
	"github.com/turtacn/ContractLens/pkg/types/common"
)

const readinessTimeout = 5 * time.Second

// HealthChecker is implemented by every dependency the readiness probe
// looks at (span model backend, Redis, MinIO).
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to HealthChecker.
type CheckFunc struct {
	Component string
	Fn        func(ctx context.Context) error
}

func (c CheckFunc) Name() string                    { return c.Component }
func (c CheckFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	checkers []HealthChecker
	version  string
	startAt  time.Time
	metrics  *prom.AppMetrics
	intel    intel.IntelligenceMetrics
}

// NewHealthHandler creates a HealthHandler. metrics may be nil.
func NewHealthHandler(version string, metrics *prom.AppMetrics, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		version:  version,
		startAt:  time.Now(),
		metrics:  metrics,
	}
}

// WithInferenceMetrics adds the span model's inference counters and latency
// percentiles to the readiness body.
func (h *HealthHandler) WithInferenceMetrics(m intel.IntelligenceMetrics) *HealthHandler {
	h.intel = m
	return h
}

// LivenessResponse is the body of GET /healthz.
type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse is the body of GET /readyz.
type ReadinessResponse struct {
	Status     common.HealthStatus      `json:"status"`
	Components []common.ComponentHealth `json:"components,omitempty"`
	Inference  *InferenceStats          `json:"inference,omitempty"`
}

// InferenceStats is the inference snapshot reported by /readyz.
type InferenceStats struct {
	*intel.IntelligenceStats
	LatencySamples int64 `json:"latency_samples"`
}

// Liveness always answers 200 while the process runs.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  time.Since(h.startAt).Truncate(time.Second).String(),
	})
}

// Readiness answers 503 when any dependency check fails.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	components := h.checkAll(ctx)
	resp := ReadinessResponse{Status: common.HealthUp, Components: components}
	if h.intel != nil {
		resp.Inference = &InferenceStats{
			IntelligenceStats: h.intel.GetCurrentStats(),
			LatencySamples:    h.intel.GetInferenceLatencyHistogram().Count(),
		}
	}
	for _, c := range components {
		if c.Status != common.HealthUp {
			resp.Status = common.HealthDown
			break
		}
	}
	code := http.StatusOK
	if resp.Status != common.HealthUp {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (h *HealthHandler) checkAll(ctx context.Context) []common.ComponentHealth {
	out := make([]common.ComponentHealth, len(h.checkers))
	var wg sync.WaitGroup
	for i, c := range h.checkers {
		wg.Add(1)
		go func(i int, c HealthChecker) {
			defer wg.Done()
			start := time.Now()
			err := c.Check(ctx)
			ch := common.ComponentHealth{Name: c.Name(), Status: common.HealthUp, Latency: time.Since(start)}
			if err != nil {
				ch.Status = common.HealthDown
				ch.Message = err.Error()
			}
			prom.SetHealth(h.metrics, c.Name(), err == nil)
			out[i] = ch
		}(i, c)
	}
	wg.Wait()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

//Personal.AI order the ending
