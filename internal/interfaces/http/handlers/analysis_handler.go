package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/ContractLens/internal/application/analysis"
	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
	prom "github.com/turtacn/ContractLens/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ContractLens/internal/intelligence/clause_qa"
	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

// Analyzer is the application surface the handler drives.
type Analyzer interface {
	AnalyzeContract(ctx context.Context, req analysis.AnalyzeRequest) (*contract.ContractAnalysis, error)
	AskQuestion(ctx context.Context, text, question string) (contract.AnswerResult, error)
	DetectContractType(text string) (analysis.DetectResult, error)
	GetAnalysis(ctx context.Context, id string) (*contract.ContractAnalysis, error)
	ListAnalyses(ctx context.Context, f contract.AnalysisFilter) (*analysis.AnalysisPage, error)
	SearchClauses(ctx context.Context, q contract.ClauseQuery) (*contract.ClauseSearchResult, error)
}

// AnalysisHandler serves the contract analysis endpoints.
type AnalysisHandler struct {
	svc     Analyzer
	metrics *prom.AppMetrics
	log     logging.Logger
	maxBody int64
}

// NewAnalysisHandler creates the handler. metrics may be nil.
func NewAnalysisHandler(svc Analyzer, metrics *prom.AppMetrics, log logging.Logger, maxBody int64) *AnalysisHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &AnalysisHandler{svc: svc, metrics: metrics, log: log, maxBody: maxBody}
}

// AnalyzeBody is the body of POST /api/v1/analyze. Categories accept the
// loose spellings understood by contract.ParseCategory.
type AnalyzeBody struct {
	Text         string   `json:"text,omitempty"`
	ObjectKey    string   `json:"object_key,omitempty"`
	Categories   []string `json:"categories,omitempty"`
	Enhance      bool     `json:"enhance,omitempty"`
	AnalysisType string   `json:"analysis_type,omitempty"`
}

// AskBody is the body of POST /api/v1/ask.
type AskBody struct {
	Text     string `json:"text"`
	Question string `json:"question"`
}

// DetectBody is the body of POST /api/v1/detect.
type DetectBody struct {
	Text string `json:"text"`
}

// CategoryView is one entry of GET /api/v1/categories.
type CategoryView struct {
	Name      contract.Category `json:"name"`
	Questions []string          `json:"questions"`
	Keywords  []string          `json:"keywords"`
}

// Categories lists the supported categories with their questions.
func (h *AnalysisHandler) Categories(w http.ResponseWriter, r *http.Request) {
	specs := clause_qa.Categories()
	out := make([]CategoryView, 0, len(specs))
	for _, s := range specs {
		out = append(out, CategoryView{Name: s.Name, Questions: s.Questions, Keywords: s.Keywords})
	}
	writeData(w, r, http.StatusOK, out)
}

// Analyze runs a full analysis.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var body AnalyzeBody
	if err := decodeJSON(w, r, h.maxBody, &body); err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	req, err := body.toRequest()
	if err != nil {
		writeAppError(w, r, h.log, err)
		return
	}

	source := "text"
	if req.ObjectKey != "" {
		source = "object"
	}
	start := time.Now()
	res, err := h.svc.AnalyzeContract(r.Context(), req)
	prom.RecordAnalysis(h.metrics, source, err == nil, len(req.Text), time.Since(start))
	if err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	h.recordOutcome(res)
	writeData(w, r, http.StatusOK, res)
}

// Ask answers a free-form question.
func (h *AnalysisHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var body AskBody
	if err := decodeJSON(w, r, h.maxBody, &body); err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	res, err := h.svc.AskQuestion(r.Context(), body.Text, body.Question)
	if err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	prom.RecordQuestion(h.metrics, res.Found())
	writeData(w, r, http.StatusOK, res)
}

// Detect classifies the contract type.
func (h *AnalysisHandler) Detect(w http.ResponseWriter, r *http.Request) {
	var body DetectBody
	if err := decodeJSON(w, r, h.maxBody, &body); err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	res, err := h.svc.DetectContractType(body.Text)
	if err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	writeData(w, r, http.StatusOK, res)
}

// GetAnalysis returns a persisted analysis by ID.
func (h *AnalysisHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetAnalysis(r.Context(), chi.URLParam(r, "analysisID"))
	if err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	writeData(w, r, http.StatusOK, res)
}

// ListAnalyses pages through the analysis history. Query parameters:
// contract_type, risk, since (RFC 3339), limit, offset.
func (h *AnalysisHandler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	f, err := parseAnalysisFilter(r)
	if err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	page, err := h.svc.ListAnalyses(r.Context(), f)
	if err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	writeData(w, r, http.StatusOK, page)
}

func parseAnalysisFilter(r *http.Request) (contract.AnalysisFilter, error) {
	q := r.URL.Query()
	f := contract.AnalysisFilter{
		ContractType: contract.ContractType(q.Get("contract_type")),
		Risk:         contract.RiskLevel(strings.ToUpper(q.Get("risk"))),
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, errors.InvalidParam("since must be an RFC 3339 timestamp").WithDetail("since=" + v)
		}
		f.Since = t
	}
	return f, parsePaging(q, &f.Limit, &f.Offset)
}

// SearchClauses searches extracted answers. Query parameters: q,
// category, contract_type, risk, min_confidence, limit, offset.
func (h *AnalysisHandler) SearchClauses(w http.ResponseWriter, r *http.Request) {
	cq, err := parseClauseQuery(r)
	if err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	res, err := h.svc.SearchClauses(r.Context(), cq)
	if err != nil {
		writeAppError(w, r, h.log, err)
		return
	}
	writeData(w, r, http.StatusOK, res)
}

func parseClauseQuery(r *http.Request) (contract.ClauseQuery, error) {
	q := r.URL.Query()
	cq := contract.ClauseQuery{
		Text:         q.Get("q"),
		ContractType: contract.ContractType(q.Get("contract_type")),
		Risk:         contract.RiskLevel(strings.ToUpper(q.Get("risk"))),
	}
	if v := q.Get("category"); v != "" {
		c, err := contract.ParseCategory(v)
		if err != nil {
			return cq, err
		}
		cq.Category = c
	}
	if v := q.Get("min_confidence"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cq, errors.InvalidParam("min_confidence must be a number").WithDetail("min_confidence=" + v)
		}
		cq.MinConfidence = f
	}
	return cq, parsePaging(q, &cq.Limit, &cq.Offset)
}

func parsePaging(q url.Values, limit, offset *int) error {
	for name, dst := range map[string]*int{"limit": limit, "offset": offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.InvalidParam(name + " must be an integer").WithDetail(name + "=" + v)
		}
		*dst = n
	}
	return nil
}

func (h *AnalysisHandler) recordOutcome(res *contract.ContractAnalysis) {
	if h.metrics == nil {
		return
	}
	h.metrics.ContractTypesTotal.WithLabelValues(string(res.ContractType)).Inc()
	h.metrics.RiskLevelsTotal.WithLabelValues(string(res.RiskAssessment.OverallRisk)).Inc()
	for c, a := range res.Answers {
		outcome := "no_answer"
		if a.Found() {
			outcome = "found"
		}
		h.metrics.CategoryAnswersTotal.WithLabelValues(string(c), outcome).Inc()
	}
}

func (b AnalyzeBody) toRequest() (analysis.AnalyzeRequest, error) {
	req := analysis.AnalyzeRequest{
		Text:         b.Text,
		ObjectKey:    b.ObjectKey,
		Enhance:      b.Enhance,
		AnalysisType: contract.AnalysisType(b.AnalysisType),
	}
	for _, raw := range b.Categories {
		c, err := contract.ParseCategory(raw)
		if err != nil {
			return analysis.AnalyzeRequest{}, err
		}
		req.Categories = append(req.Categories, c)
	}
	return req, nil
}

//Personal.AI order the ending
