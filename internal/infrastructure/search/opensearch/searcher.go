package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

const (
	highlightPreTag  = "<em>"
	highlightPostTag = "</em>"
)

// filter is one exact-match or lower-bound clause of the bool query.
type filter struct {
	field string
	kind  string // "term" | "gte"
	value any
}

// Search runs q against the index. Text queries rank by relevance; pure
// filter queries come back newest first.
func (x *ClauseIndex) Search(ctx context.Context, q contract.ClauseQuery) (*contract.ClauseSearchResult, error) {
	if err := q.Normalize(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(buildQueryDSL(q))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "marshal query DSL")
	}

	start := time.Now()
	resp, err := opensearchapi.SearchRequest{
		Index: []string{x.index},
		Body:  bytes.NewReader(body),
	}.Do(ctx, x.client.client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.New(errors.ErrCodeTimeout, "clause search timed out")
		}
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "clause search failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		// nothing indexed yet
		return &contract.ClauseSearchResult{Hits: []contract.ClauseHit{}, Limit: q.Limit, Offset: q.Offset}, nil
	}
	if resp.IsError() {
		return nil, failure(resp, "clause search failed")
	}

	result, err := parseSearchResponse(resp.Body)
	if err != nil {
		return nil, err
	}
	result.Limit, result.Offset = q.Limit, q.Offset

	x.log.Debug("clause search executed",
		logging.String("text", q.Text),
		logging.String("category", string(q.Category)),
		logging.Int64("hits", result.Total),
		logging.Duration("elapsed", time.Since(start)))
	return result, nil
}

func buildQueryDSL(q contract.ClauseQuery) map[string]any {
	var filters []filter
	if q.Category != "" {
		filters = append(filters, filter{"category", "term", string(q.Category)})
	}
	if q.ContractType != "" {
		filters = append(filters, filter{"contract_type", "term", string(q.ContractType)})
	}
	if q.Risk != "" {
		filters = append(filters, filter{"overall_risk", "term", string(q.Risk)})
	}
	if q.MinConfidence > 0 {
		filters = append(filters, filter{"confidence", "gte", q.MinConfidence})
	}

	must := map[string]any{"match_all": map[string]any{}}
	if q.Text != "" {
		must = map[string]any{"match": map[string]any{"answer": map[string]any{"query": q.Text}}}
	}
	boolQuery := map[string]any{"must": must}
	if len(filters) > 0 {
		clauses := make([]map[string]any, len(filters))
		for i, f := range filters {
			clauses[i] = buildFilter(f)
		}
		boolQuery["filter"] = clauses
	}

	dsl := map[string]any{
		"query":            map[string]any{"bool": boolQuery},
		"from":             q.Offset,
		"size":             q.Limit,
		"track_total_hits": true,
	}
	if q.Text != "" {
		dsl["highlight"] = map[string]any{
			"fields":    map[string]any{"answer": map[string]any{}},
			"pre_tags":  []string{highlightPreTag},
			"post_tags": []string{highlightPostTag},
		}
	} else {
		dsl["sort"] = []map[string]any{
			{"analyzed_at": map[string]any{"order": "desc"}},
			{"confidence": map[string]any{"order": "desc"}},
		}
	}
	return dsl
}

func buildFilter(f filter) map[string]any {
	switch f.kind {
	case "gte":
		return map[string]any{"range": map[string]any{f.field: map[string]any{"gte": f.value}}}
	default:
		return map[string]any{"term": map[string]any{f.field: f.value}}
	}
}

func parseSearchResponse(body io.Reader) (*contract.ClauseSearchResult, error) {
	var resp struct {
		Took int64 `json:"took"`
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID        string              `json:"_id"`
				Score     *float64            `json:"_score"`
				Source    contract.ClauseHit  `json:"_source"`
				Highlight map[string][]string `json:"highlight"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode search response")
	}

	result := &contract.ClauseSearchResult{
		Hits:   make([]contract.ClauseHit, 0, len(resp.Hits.Hits)),
		Total:  resp.Hits.Total.Value,
		TookMs: resp.Took,
	}
	for _, h := range resp.Hits.Hits {
		hit := h.Source
		// sorted queries report a null score
		if h.Score != nil {
			hit.Score = *h.Score
		}
		hit.Highlights = h.Highlight["answer"]
		result.Hits = append(result.Hits, hit)
	}
	return result, nil
}

//Personal.AI order the ending
