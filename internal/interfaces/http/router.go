// Package http wires the ContractLens REST API onto a chi router.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ContractLens/internal/interfaces/http/handlers"
	"github.com/turtacn/ContractLens/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree. Nil entries are skipped.
type RouterConfig struct {
	AnalysisHandler *handlers.AnalysisHandler
	JobHandler      *handlers.JobHandler
	HealthHandler   *handlers.HealthHandler

	LoggingMiddleware   *middleware.LoggingMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware

	MetricsCollector prometheus.MetricsCollector
}

// NewRouter builds the complete route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if cfg.LoggingMiddleware != nil {
		r.Use(cfg.LoggingMiddleware.Handler)
	}
	r.Use(chimw.Recoverer)

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.Handle("/metrics", cfg.MetricsCollector.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.RateLimitMiddleware != nil {
			api.Use(cfg.RateLimitMiddleware.Handler)
		}
		registerAnalysisRoutes(api, cfg.AnalysisHandler)
		registerJobRoutes(api, cfg.JobHandler)
	})

	return r
}

func registerAnalysisRoutes(r chi.Router, h *handlers.AnalysisHandler) {
	if h == nil {
		return
	}
	r.Get("/categories", h.Categories)
	r.Post("/analyze", h.Analyze)
	r.Post("/ask", h.Ask)
	r.Post("/detect", h.Detect)
	r.Get("/analyses", h.ListAnalyses)
	r.Get("/analyses/{analysisID}", h.GetAnalysis)
	r.Get("/clauses", h.SearchClauses)
}

func registerJobRoutes(r chi.Router, h *handlers.JobHandler) {
	if h == nil {
		return
	}
	r.Post("/jobs", h.Submit)
}

//Personal.AI order the ending
