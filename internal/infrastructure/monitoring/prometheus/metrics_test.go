package prometheus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAppMetrics(t *testing.T) (*AppMetrics, MetricsCollector) {
	t.Helper()
	c := newTestCollector(t)
	return NewAppMetrics(c), c
}

func TestNewAppMetrics_AllMetricsRegistered(t *testing.T) {
	m, _ := newTestAppMetrics(t)
	require.NotNil(t, m)

	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.AnalysesTotal)
	assert.NotNil(t, m.CategoryAnswersTotal)
	assert.NotNil(t, m.LLMRequestsTotal)
	assert.NotNil(t, m.JobsTotal)
	assert.NotNil(t, m.ErrorsTotal)
}

func TestNewAppMetrics_Idempotent(t *testing.T) {
	c := newTestCollector(t)
	assert.NotPanics(t, func() {
		NewAppMetrics(c)
		NewAppMetrics(c)
	})
}

func TestRecordHTTPRequest(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordHTTPRequest(m, "POST", "/api/v1/analyze", 200, 120*time.Millisecond)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_http_requests_total{method="POST",route="/api/v1/analyze",status_code="200"} 1`)
	assert.Contains(t, out, `test_unit_http_request_duration_seconds_count{method="POST",route="/api/v1/analyze"} 1`)
}

func TestRecordAnalysis(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordAnalysis(m, "text", true, 1200, time.Second)
	RecordAnalysis(m, "object", false, 0, time.Second)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_analyses_total{source="text",status="success"} 1`)
	assert.Contains(t, out, `test_unit_analyses_total{source="object",status="failure"} 1`)
	assert.Contains(t, out, `test_unit_contract_chars_processed_total{source="text"} 1200`)
}

func TestRecordCategoryAnswer(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordCategoryAnswer(m, "governing_law", true, 50*time.Millisecond)
	RecordCategoryAnswer(m, "renewal", false, 50*time.Millisecond)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_category_answers_total{category="governing_law",outcome="found"} 1`)
	assert.Contains(t, out, `test_unit_category_answers_total{category="renewal",outcome="no_answer"} 1`)
}

func TestRecordLLMCall(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordLLMCall(m, "gemini-2.0-flash", "comprehensive", false, 2*time.Second)

	assert.Contains(t, scrapeMetrics(t, c),
		`test_unit_llm_requests_total{analysis_type="comprehensive",model="gemini-2.0-flash",status="failure"} 1`)
}

func TestRecordCacheAccess(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordCacheAccess(m, "answers", true)
	RecordCacheAccess(m, "answers", false)
	RecordCacheAccess(m, "answers", false)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_cache_hits_total{cache="answers"} 1`)
	assert.Contains(t, out, `test_unit_cache_misses_total{cache="answers"} 2`)
}

func TestRecordJob_CountsRetries(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordJob(m, "contract.analysis.requested", true, 2, time.Second)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_jobs_total{status="success",topic="contract.analysis.requested"} 1`)
	assert.Contains(t, out, `test_unit_job_retries_total{topic="contract.analysis.requested"} 2`)
}

func TestRecordErrorAndHealth(t *testing.T) {
	m, c := newTestAppMetrics(t)
	RecordError(m, "qa", "QA_004")
	SetHealth(m, "redis", true)
	SetHealth(m, "minio", false)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_errors_total{component="qa",error_code="QA_004"} 1`)
	assert.Contains(t, out, `test_unit_health_check_status{component="redis"} 1`)
	assert.Contains(t, out, `test_unit_health_check_status{component="minio"} 0`)
}

func TestRecordHelpers_NilMetrics(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordHTTPRequest(nil, "GET", "/healthz", 200, time.Millisecond)
		RecordAnalysis(nil, "text", true, 10, time.Second)
		RecordQuestion(nil, false)
		SetHealth(nil, "redis", true)
	})
}

//Personal.AI order the ending
