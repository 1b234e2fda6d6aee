// Package middleware holds the HTTP middleware of the ContractLens API.
package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
	prom "github.com/turtacn/ContractLens/internal/infrastructure/monitoring/prometheus"
)

// LoggingConfig holds configuration for the request logging middleware.
type LoggingConfig struct {
	// SkipPaths are not logged. They are still measured.
	SkipPaths []string

	// SlowThreshold logs successful requests above it at Warn.
	SlowThreshold time.Duration
}

// DefaultLoggingConfig skips probes and flags requests slower than a full
// analysis is expected to take.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:     []string{"/healthz", "/readyz", "/metrics"},
		SlowThreshold: 30 * time.Second,
	}
}

// LoggingMiddleware logs one line per request and records HTTP metrics.
type LoggingMiddleware struct {
	logger  logging.Logger
	metrics *prom.AppMetrics
	cfg     LoggingConfig
	skip    map[string]bool
}

// NewLoggingMiddleware creates the middleware. metrics may be nil.
func NewLoggingMiddleware(logger logging.Logger, metrics *prom.AppMetrics, cfg LoggingConfig) *LoggingMiddleware {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	return &LoggingMiddleware{logger: logger, metrics: metrics, cfg: cfg, skip: skip}
}

// Handler must run after chi's RequestID middleware so the ID is available.
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chimw.GetReqID(r.Context())
		if requestID != "" {
			r = r.WithContext(logging.WithRequestID(r.Context(), requestID))
		}

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		prom.RecordHTTPRequest(m.metrics, r.Method, routePattern(r), status, duration)

		if m.skip[r.URL.Path] {
			return
		}
		fields := []logging.Field{
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Duration("duration", duration),
			logging.Int("bytes", ww.BytesWritten()),
			logging.String("remote_addr", r.RemoteAddr),
		}
		if ua := r.UserAgent(); ua != "" {
			fields = append(fields, logging.String("user_agent", ua))
		}

		log := m.logger.WithContext(r.Context())
		switch {
		case status >= 500:
			log.Error("HTTP request completed with server error", fields...)
		case status >= 400:
			log.Warn("HTTP request completed with client error", fields...)
		case m.cfg.SlowThreshold > 0 && duration >= m.cfg.SlowThreshold:
			log.Warn("HTTP request completed (slow)", fields...)
		default:
			log.Info("HTTP request completed", fields...)
		}
	})
}

// routePattern keeps metric cardinality bounded by labelling with the
// matched chi pattern instead of the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

//Personal.AI order the ending
