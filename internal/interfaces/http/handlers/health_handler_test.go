package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	intel "github.com/turtacn/ContractLens/internal/intelligence/common"
	"github.com/turtacn/ContractLens/pkg/types/common"
)

func okCheck(name string) CheckFunc {
	return CheckFunc{Component: name, Fn: func(context.Context) error { return nil }}
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler("1.2.3", nil)
	w := httptest.NewRecorder()
	h.Liveness(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestHealthHandler_ReadinessAllUp(t *testing.T) {
	h := NewHealthHandler("v", nil, okCheck("redis"), okCheck("model"))
	w := httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, common.HealthUp, resp.Status)
	require.Len(t, resp.Components, 2)
	assert.Equal(t, "model", resp.Components[0].Name)
}

func TestHealthHandler_ReadinessDown(t *testing.T) {
	bad := CheckFunc{Component: "minio", Fn: func(context.Context) error { return stderrors.New("bucket missing") }}
	h := NewHealthHandler("v", nil, okCheck("redis"), bad)
	w := httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, common.HealthDown, resp.Status)
	assert.Equal(t, "bucket missing", resp.Components[0].Message)
}

func TestHealthHandler_ReadinessReportsInference(t *testing.T) {
	m := intel.NewInMemoryIntelligenceMetrics()
	ctx := context.Background()
	m.RecordInference(ctx, &intel.InferenceMetricParams{ModelName: "cuad-roberta", DurationMs: 40, Success: true})
	m.RecordInference(ctx, &intel.InferenceMetricParams{ModelName: "cuad-roberta", DurationMs: 80, Success: false})
	m.RecordCircuitBreakerStateChange(ctx, "span-model", "closed", "open")

	h := NewHealthHandler("v", nil, okCheck("model")).WithInferenceMetrics(m)
	w := httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	inf, ok := body["inference"].(map[string]any)
	require.True(t, ok, w.Body.String())
	assert.EqualValues(t, 2, inf["total_inferences"])
	assert.EqualValues(t, 1, inf["failed_inferences"])
	assert.EqualValues(t, 2, inf["latency_samples"])
	assert.Greater(t, inf["p95_latency_ms"], 0.0)
	assert.Equal(t, map[string]any{"span-model": "open"}, inf["circuit_breaker_states"])
}

func TestHealthHandler_ReadinessWithoutInferenceMetrics(t *testing.T) {
	h := NewHealthHandler("v", nil, okCheck("model"))
	w := httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.NotContains(t, w.Body.String(), "inference")
}

func TestHealthHandler_ReadinessNoCheckers(t *testing.T) {
	h := NewHealthHandler("v", nil)
	w := httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

//Personal.AI order the ending
