package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds the service-level metrics of ContractLens.
type AppMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Analysis
	AnalysesTotal          CounterVec
	AnalysisDuration       HistogramVec
	CategoryAnswersTotal   CounterVec
	CategoryDuration       HistogramVec
	ContractTypesTotal     CounterVec
	RiskLevelsTotal        CounterVec
	QuestionsAskedTotal    CounterVec
	ContractCharsProcessed CounterVec

	// LLM enhancement
	LLMRequestsTotal   CounterVec
	LLMRequestDuration HistogramVec

	// Cache and jobs
	CacheHitsTotal     CounterVec
	CacheMissesTotal   CounterVec
	JobsTotal          CounterVec
	JobProcessDuration HistogramVec
	JobRetriesTotal    CounterVec

	// Health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

var (
	DefaultHTTPDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultAnalysisDurationBuckets = []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120}
	DefaultLLMDurationBuckets      = []float64{.5, 1, 2, 5, 10, 30, 60, 120}
)

// NewAppMetrics registers all service metrics on collector. The Record
// helpers accept a nil *AppMetrics and do nothing.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "route", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "route")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method")

	m.AnalysesTotal = collector.RegisterCounter("analyses_total", "Contract analyses by source and status", "source", "status")
	m.AnalysisDuration = collector.RegisterHistogram("analysis_duration_seconds", "Full contract analysis duration", DefaultAnalysisDurationBuckets, "source")
	m.CategoryAnswersTotal = collector.RegisterCounter("category_answers_total", "Category answers by outcome", "category", "outcome")
	m.CategoryDuration = collector.RegisterHistogram("category_duration_seconds", "Per-category answer extraction duration", DefaultAnalysisDurationBuckets, "category")
	m.ContractTypesTotal = collector.RegisterCounter("contract_types_total", "Detected contract types", "contract_type")
	m.RiskLevelsTotal = collector.RegisterCounter("risk_levels_total", "Overall risk levels assigned", "risk_level")
	m.QuestionsAskedTotal = collector.RegisterCounter("questions_asked_total", "Free-form questions answered", "outcome")
	m.ContractCharsProcessed = collector.RegisterCounter("contract_chars_processed_total", "Characters of contract text analysed", "source")

	m.LLMRequestsTotal = collector.RegisterCounter("llm_requests_total", "LLM enhancement requests", "model", "analysis_type", "status")
	m.LLMRequestDuration = collector.RegisterHistogram("llm_request_duration_seconds", "LLM enhancement duration", DefaultLLMDurationBuckets, "model", "analysis_type")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.JobsTotal = collector.RegisterCounter("jobs_total", "Analysis jobs consumed from the queue", "topic", "status")
	m.JobProcessDuration = collector.RegisterHistogram("job_process_duration_seconds", "Analysis job processing duration", DefaultAnalysisDurationBuckets, "topic")
	m.JobRetriesTotal = collector.RegisterCounter("job_retries_total", "Analysis job retries", "topic")

	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_code")

	return m
}

func RecordHTTPRequest(m *AppMetrics, method, route string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordAnalysis(m *AppMetrics, source string, success bool, chars int, d time.Duration) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(source, statusLabel(success)).Inc()
	m.AnalysisDuration.WithLabelValues(source).Observe(d.Seconds())
	m.ContractCharsProcessed.WithLabelValues(source).Add(float64(chars))
}

// RecordCategoryAnswer counts a category result as "found" or "no_answer".
func RecordCategoryAnswer(m *AppMetrics, category string, found bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "no_answer"
	if found {
		outcome = "found"
	}
	m.CategoryAnswersTotal.WithLabelValues(category, outcome).Inc()
	m.CategoryDuration.WithLabelValues(category).Observe(d.Seconds())
}

func RecordQuestion(m *AppMetrics, found bool) {
	if m == nil {
		return
	}
	outcome := "no_answer"
	if found {
		outcome = "found"
	}
	m.QuestionsAskedTotal.WithLabelValues(outcome).Inc()
}

func RecordLLMCall(m *AppMetrics, model, analysisType string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(model, analysisType, statusLabel(success)).Inc()
	m.LLMRequestDuration.WithLabelValues(model, analysisType).Observe(d.Seconds())
}

func RecordCacheAccess(m *AppMetrics, cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordJob(m *AppMetrics, topic string, success bool, retries int, d time.Duration) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(topic, statusLabel(success)).Inc()
	m.JobProcessDuration.WithLabelValues(topic).Observe(d.Seconds())
	if retries > 0 {
		m.JobRetriesTotal.WithLabelValues(topic).Add(float64(retries))
	}
}

func RecordError(m *AppMetrics, component, errorCode string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(component, errorCode).Inc()
}

func SetHealth(m *AppMetrics, component string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	m.HealthCheckStatus.WithLabelValues(component).Set(v)
}

func statusLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

//Personal.AI order the ending
