package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContractLens/internal/application/analysis"
	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ContractLens/internal/interfaces/http/handlers"
	"github.com/turtacn/ContractLens/internal/interfaces/http/middleware"
	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

type stubAnalyzer struct{}

func (stubAnalyzer) AnalyzeContract(context.Context, analysis.AnalyzeRequest) (*contract.ContractAnalysis, error) {
	return &contract.ContractAnalysis{ID: "a1", ContractType: contract.ContractTypeGeneral}, nil
}

func (stubAnalyzer) AskQuestion(_ context.Context, _, q string) (contract.AnswerResult, error) {
	return contract.NoAnswer(q), nil
}

func (stubAnalyzer) DetectContractType(string) (analysis.DetectResult, error) {
	return analysis.DetectResult{ContractType: contract.ContractTypeGeneral}, nil
}

func (stubAnalyzer) GetAnalysis(_ context.Context, id string) (*contract.ContractAnalysis, error) {
	return nil, errors.NotFound("analysis not found").WithDetail("id=" + id)
}

func (stubAnalyzer) SearchClauses(context.Context, contract.ClauseQuery) (*contract.ClauseSearchResult, error) {
	return nil, errors.New(errors.ErrCodeFeatureDisabled, "clause search not configured")
}

func (stubAnalyzer) ListAnalyses(context.Context, contract.AnalysisFilter) (*analysis.AnalysisPage, error) {
	return nil, errors.New(errors.ErrCodeFeatureDisabled, "analysis history not configured")
}

type stubQueue struct{}

func (stubQueue) Submit(context.Context, analysis.AnalyzeRequest) (*analysis.JobTicket, error) {
	return &analysis.JobTicket{JobID: "j1"}, nil
}

func newTestRouter(t *testing.T, rl *middleware.RateLimitMiddleware) http.Handler {
	t.Helper()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "contractlens_test"}, nil)
	require.NoError(t, err)
	metrics := prometheus.NewAppMetrics(collector)
	return NewRouter(RouterConfig{
		AnalysisHandler:     handlers.NewAnalysisHandler(stubAnalyzer{}, metrics, nil, 0),
		JobHandler:          handlers.NewJobHandler(stubQueue{}, nil, 0),
		HealthHandler:       handlers.NewHealthHandler("test", metrics),
		LoggingMiddleware:   middleware.NewLoggingMiddleware(logging.NewNopLogger(), metrics, middleware.DefaultLoggingConfig()),
		RateLimitMiddleware: rl,
		MetricsCollector:    collector,
	})
}

func TestNewRouter_Routes(t *testing.T) {
	router := newTestRouter(t, nil)

	tests := []struct {
		method, path, body string
		status             int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/readyz", "", http.StatusOK},
		{http.MethodGet, "/api/v1/categories", "", http.StatusOK},
		{http.MethodPost, "/api/v1/analyze", `{"text":"agreement"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/ask", `{"text":"agreement","question":"Who pays?"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/detect", `{"text":"agreement"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/jobs", `{"text":"agreement"}`, http.StatusAccepted},
		{http.MethodGet, "/api/v1/analyses/missing", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/analyses?risk=HIGH", "", http.StatusForbidden},
		{http.MethodGet, "/api/v1/clauses?q=arbitration", "", http.StatusForbidden},
		{http.MethodGet, "/api/v1/contracts", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/analyze", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestNewRouter_ResponseCarriesRequestID(t *testing.T) {
	router := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
	req.Header.Set("X-Request-Id", "req-42")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `"request_id":"req-42"`)
}

func TestNewRouter_MetricsExposeHTTPCounters(t *testing.T) {
	router := newTestRouter(t, nil)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `contractlens_test_http_requests_total{method="GET",route="/api/v1/categories",status_code="200"} 1`)
}

func TestNewRouter_RateLimitOnlyOnAPI(t *testing.T) {
	l := middleware.NewTokenBucketLimiter(0.001, 1, 0)
	defer l.Stop()
	router := newTestRouter(t, middleware.NewRateLimitMiddleware(l))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewRouter_NilHandlers(t *testing.T) {
	router := NewRouter(RouterConfig{})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

//Personal.AI order the ending
