package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContractLens/internal/application/analysis"
	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/common"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

type fakeAnalyzer struct {
	lastReq    analysis.AnalyzeRequest
	err        error
	stored     map[string]*contract.ContractAnalysis
	lastFilter contract.AnalysisFilter
	lastClause contract.ClauseQuery
}

func (f *fakeAnalyzer) AnalyzeContract(_ context.Context, req analysis.AnalyzeRequest) (*contract.ContractAnalysis, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &contract.ContractAnalysis{
		ID:           "an-1",
		ContractType: contract.ContractTypeGeneral,
		Answers: map[contract.Category]contract.AnswerResult{
			contract.CategoryGoverningLaw: {QuestionUsed: "q", Answer: "California"},
		},
		RiskAssessment: contract.RiskAssessment{OverallRisk: contract.RiskLow},
	}, nil
}

func (f *fakeAnalyzer) AskQuestion(_ context.Context, text, q string) (contract.AnswerResult, error) {
	if q == "" {
		return contract.AnswerResult{}, errors.New(errors.ErrCodeQuestionEmpty, "question is empty")
	}
	return contract.AnswerResult{QuestionUsed: q, Answer: "thirty days"}, nil
}

func (f *fakeAnalyzer) DetectContractType(text string) (analysis.DetectResult, error) {
	if text == "" {
		return analysis.DetectResult{}, errors.New(errors.ErrCodeContractTextEmpty, "contract text is empty")
	}
	return analysis.DetectResult{ContractType: contract.ContractTypeEmployment}, nil
}

func (f *fakeAnalyzer) GetAnalysis(_ context.Context, id string) (*contract.ContractAnalysis, error) {
	if a, ok := f.stored[id]; ok {
		return a, nil
	}
	return nil, errors.NotFound("analysis not found")
}

func (f *fakeAnalyzer) ListAnalyses(_ context.Context, filter contract.AnalysisFilter) (*analysis.AnalysisPage, error) {
	f.lastFilter = filter
	if err := filter.Normalize(); err != nil {
		return nil, err
	}
	items := []contract.AnalysisSummary{}
	for _, a := range f.stored {
		items = append(items, contract.Summarize(a))
	}
	return &analysis.AnalysisPage{Items: items, Total: int64(len(items)), Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (f *fakeAnalyzer) SearchClauses(_ context.Context, q contract.ClauseQuery) (*contract.ClauseSearchResult, error) {
	f.lastClause = q
	if err := q.Normalize(); err != nil {
		return nil, err
	}
	return &contract.ClauseSearchResult{
		Hits:  []contract.ClauseHit{{AnalysisID: "an-7", Category: contract.CategoryGoverningLaw, Answer: "laws of Delaware"}},
		Total: 1,
		Limit: q.Limit,
	}, nil
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return w
}

func decodeEnvelope[T any](t *testing.T, w *httptest.ResponseRecorder) common.APIResponse[T] {
	t.Helper()
	var resp common.APIResponse[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAnalysisHandler_Categories(t *testing.T) {
	h := NewAnalysisHandler(&fakeAnalyzer{}, nil, nil, 0)
	w := httptest.NewRecorder()
	h.Categories(w, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope[[]CategoryView](t, w)
	assert.True(t, resp.Success)
	assert.Len(t, resp.Data, len(contract.AllCategories()))
	for _, c := range resp.Data {
		assert.NotEmpty(t, c.Questions, c.Name)
	}
}

func TestAnalysisHandler_Analyze(t *testing.T) {
	svc := &fakeAnalyzer{}
	h := NewAnalysisHandler(svc, nil, nil, 0)

	w := post(h.Analyze, `{"text":"This Agreement ...","categories":["Governing Law","termination"],"enhance":true}`)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope[contract.ContractAnalysis](t, w)
	assert.Equal(t, "an-1", resp.Data.ID)
	assert.Equal(t, "California", resp.Data.Answers[contract.CategoryGoverningLaw].Answer)
	assert.Equal(t, []contract.Category{contract.CategoryGoverningLaw, contract.CategoryTermination}, svc.lastReq.Categories)
	assert.True(t, svc.lastReq.Enhance)
}

func TestAnalysisHandler_AnalyzeErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   errors.ErrorCode
	}{
		{"unknown category", `{"text":"x","categories":["royalties"]}`, nil, http.StatusBadRequest, errors.ErrCodeUnknownCategory},
		{"unknown field", `{"text":"x","tenant":"a"}`, nil, http.StatusBadRequest, errors.CodeInvalidParam},
		{"empty body", ``, nil, http.StatusBadRequest, errors.CodeInvalidParam},
		{"empty contract", `{"text":"x"}`, errors.New(errors.ErrCodeContractTextEmpty, "contract text is empty"), http.StatusBadRequest, errors.ErrCodeContractTextEmpty},
		{"internal masked", `{"text":"x"}`, errors.Internal("redis exploded"), http.StatusInternalServerError, errors.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAnalysisHandler(&fakeAnalyzer{err: tt.err}, nil, nil, 0)
			w := post(h.Analyze, tt.body)

			require.Equal(t, tt.status, w.Code)
			resp := decodeEnvelope[any](t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code.String(), resp.Error.Code)
			assert.NotContains(t, resp.Error.Message, "redis exploded")
		})
	}
}

func TestAnalysisHandler_BodyTooLarge(t *testing.T) {
	h := NewAnalysisHandler(&fakeAnalyzer{}, nil, nil, 16)
	w := post(h.Analyze, `{"text":"`+strings.Repeat("a", 64)+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAnalysisHandler_Ask(t *testing.T) {
	h := NewAnalysisHandler(&fakeAnalyzer{}, nil, nil, 0)

	w := post(h.Ask, `{"text":"contract","question":"How long is the notice period?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope[contract.AnswerResult](t, w)
	assert.Equal(t, "thirty days", resp.Data.Answer)

	w = post(h.Ask, `{"text":"contract","question":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalysisHandler_Detect(t *testing.T) {
	h := NewAnalysisHandler(&fakeAnalyzer{}, nil, nil, 0)

	w := post(h.Detect, `{"text":"employee shall"}`)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope[analysis.DetectResult](t, w)
	assert.Equal(t, contract.ContractTypeEmployment, resp.Data.ContractType)

	w = post(h.Detect, `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalysisHandler_GetAnalysis(t *testing.T) {
	svc := &fakeAnalyzer{stored: map[string]*contract.ContractAnalysis{"an-7": {ID: "an-7"}}}
	h := NewAnalysisHandler(svc, nil, nil, 0)
	r := chi.NewRouter()
	r.Get("/api/v1/analyses/{analysisID}", h.GetAnalysis)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/an-7", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "an-7", decodeEnvelope[contract.ContractAnalysis](t, w).Data.ID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/analyses/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalysisHandler_ListAnalyses(t *testing.T) {
	svc := &fakeAnalyzer{stored: map[string]*contract.ContractAnalysis{
		"an-7": {ID: "an-7", ContractType: contract.ContractTypeEmployment, RiskAssessment: contract.RiskAssessment{OverallRisk: contract.RiskHigh}},
	}}
	h := NewAnalysisHandler(svc, nil, nil, 0)

	w := httptest.NewRecorder()
	h.ListAnalyses(w, httptest.NewRequest(http.MethodGet,
		"/api/v1/analyses?risk=high&contract_type=employment&since=2026-01-02T00:00:00Z&limit=5&offset=10", nil))
	resp := decodeEnvelope[analysis.AnalysisPage](t, w)
	assert.Equal(t, int64(1), resp.Data.Total)
	assert.Equal(t, 5, resp.Data.Limit)
	assert.Equal(t, "an-7", resp.Data.Items[0].ID)

	assert.Equal(t, contract.RiskHigh, svc.lastFilter.Risk)
	assert.Equal(t, contract.ContractTypeEmployment, svc.lastFilter.ContractType)
	assert.Equal(t, 10, svc.lastFilter.Offset)
	assert.Equal(t, 2026, svc.lastFilter.Since.Year())
}

func TestAnalysisHandler_ListAnalyses_BadQuery(t *testing.T) {
	h := NewAnalysisHandler(&fakeAnalyzer{}, nil, nil, 0)
	for _, target := range []string{
		"/api/v1/analyses?limit=ten",
		"/api/v1/analyses?since=yesterday",
		"/api/v1/analyses?risk=severe",
	} {
		w := httptest.NewRecorder()
		h.ListAnalyses(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestAnalysisHandler_SearchClauses(t *testing.T) {
	svc := &fakeAnalyzer{}
	h := NewAnalysisHandler(svc, nil, nil, 0)

	w := httptest.NewRecorder()
	h.SearchClauses(w, httptest.NewRequest(http.MethodGet,
		"/api/v1/clauses?q=delaware&category=Governing+Law&risk=low&min_confidence=0.4&limit=3", nil))
	resp := decodeEnvelope[contract.ClauseSearchResult](t, w)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), resp.Data.Total)
	assert.Equal(t, "an-7", resp.Data.Hits[0].AnalysisID)

	assert.Equal(t, "delaware", svc.lastClause.Text)
	assert.Equal(t, contract.CategoryGoverningLaw, svc.lastClause.Category)
	assert.Equal(t, contract.RiskLow, svc.lastClause.Risk)
	assert.Equal(t, 0.4, svc.lastClause.MinConfidence)
	assert.Equal(t, 3, svc.lastClause.Limit)
}

func TestAnalysisHandler_SearchClauses_BadQuery(t *testing.T) {
	h := NewAnalysisHandler(&fakeAnalyzer{}, nil, nil, 0)
	for _, target := range []string{
		"/api/v1/clauses",
		"/api/v1/clauses?category=lease_term",
		"/api/v1/clauses?q=x&min_confidence=high",
		"/api/v1/clauses?q=x&min_confidence=2",
		"/api/v1/clauses?q=x&offset=-1",
	} {
		w := httptest.NewRecorder()
		h.SearchClauses(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

//Personal.AI order the ending
