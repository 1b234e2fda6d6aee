package opensearch

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

func TestBuildQueryDSL(t *testing.T) {
	t.Run("text ranks by relevance", func(t *testing.T) {
		dsl := buildQueryDSL(contract.ClauseQuery{Text: "arbitration", Limit: 5, Offset: 10, MinConfidence: 0.5})
		assert.Equal(t, 10, dsl["from"])
		assert.Equal(t, 5, dsl["size"])
		assert.NotContains(t, dsl, "sort")
		assert.Contains(t, dsl, "highlight")

		b := dsl["query"].(map[string]any)["bool"].(map[string]any)
		assert.Equal(t, map[string]any{"match": map[string]any{"answer": map[string]any{"query": "arbitration"}}}, b["must"])
		assert.Equal(t, []map[string]any{
			{"range": map[string]any{"confidence": map[string]any{"gte": 0.5}}},
		}, b["filter"])
	})

	t.Run("filters only sorts newest first", func(t *testing.T) {
		dsl := buildQueryDSL(contract.ClauseQuery{
			Category:     contract.CategoryGoverningLaw,
			ContractType: contract.ContractTypeEmployment,
			Risk:         contract.RiskLow,
			Limit:        20,
		})
		assert.NotContains(t, dsl, "highlight")
		assert.Contains(t, dsl, "sort")

		b := dsl["query"].(map[string]any)["bool"].(map[string]any)
		assert.Equal(t, map[string]any{"match_all": map[string]any{}}, b["must"])
		assert.Equal(t, []map[string]any{
			{"term": map[string]any{"category": "governing_law"}},
			{"term": map[string]any{"contract_type": "employment"}},
			{"term": map[string]any{"overall_risk": "LOW"}},
		}, b["filter"])
	})
}

func TestSearch_ParsesHits(t *testing.T) {
	x := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/clauses/_search"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(2), body["size"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"took":4,"hits":{"total":{"value":7},"hits":[
			{"_id":"a-1:governing_law","_score":3.2,
			 "_source":{"analysis_id":"a-1","category":"governing_law","answer":"the laws of California",
			            "confidence":0.91,"contract_type":"app_agreement","overall_risk":"HIGH",
			            "analyzed_at":"2026-05-04T10:00:00Z"},
			 "highlight":{"answer":["the <em>laws</em> of California"]}},
			{"_id":"b-2:governing_law","_score":null,
			 "_source":{"analysis_id":"b-2","category":"governing_law","answer":"Delaware law","confidence":0.5}}
		]}}`))
	})

	res, err := x.Search(context.Background(), contract.ClauseQuery{Text: "laws", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.Total)
	assert.Equal(t, int64(4), res.TookMs)
	assert.Equal(t, 2, res.Limit)
	require.Len(t, res.Hits, 2)

	h := res.Hits[0]
	assert.Equal(t, "a-1", h.AnalysisID)
	assert.Equal(t, contract.CategoryGoverningLaw, h.Category)
	assert.Equal(t, 3.2, h.Score)
	assert.Equal(t, time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC), h.AnalyzedAt)
	assert.Equal(t, []string{"the <em>laws</em> of California"}, h.Highlights)
	assert.Zero(t, res.Hits[1].Score)
}

func TestSearch_MissingIndexIsEmpty(t *testing.T) {
	x := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"type":"index_not_found_exception","reason":"no such index"}}`))
	})
	res, err := x.Search(context.Background(), contract.ClauseQuery{Category: contract.CategoryRenewal})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
	assert.NotNil(t, res.Hits)
	assert.Equal(t, contract.DefaultClauseLimit, res.Limit)
}

func TestSearch_RejectsInvalidQuery(t *testing.T) {
	x := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})
	_, err := x.Search(context.Background(), contract.ClauseQuery{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestSearch_ServerError(t *testing.T) {
	x := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"search_phase_execution_exception","reason":"all shards failed"}}`))
	})
	_, err := x.Search(context.Background(), contract.ClauseQuery{Text: "x"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeExternalService))
}

//Personal.AI order the ending
