package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/ContractLens/internal/config"
	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

// ClauseIndex writes and searches answer-span documents.
type ClauseIndex struct {
	client   *Client
	index    string
	refresh  string
	shards   int
	replicas int
	log      logging.Logger
}

// NewClauseIndex binds the index named in cfg.
func NewClauseIndex(c *Client, cfg config.OpenSearchConfig, log logging.Logger) *ClauseIndex {
	if log == nil {
		log = logging.NewNopLogger()
	}
	refresh := cfg.Refresh
	if refresh == "" {
		refresh = "false"
	}
	shards := cfg.Shards
	if shards <= 0 {
		shards = 1
	}
	return &ClauseIndex{
		client:   c,
		index:    cfg.Index,
		refresh:  refresh,
		shards:   shards,
		replicas: cfg.Replicas,
		log:      log.Named("clause_index"),
	}
}

// Index returns the index name.
func (x *ClauseIndex) Index() string { return x.index }

// EnsureIndex creates the index with the clause mapping when it is missing.
func (x *ClauseIndex) EnsureIndex(ctx context.Context) error {
	exists, err := x.exists(ctx)
	if err != nil || exists {
		return err
	}

	body, err := json.Marshal(clauseMapping(x.shards, x.replicas))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "marshal clause mapping")
	}
	resp, err := opensearchapi.IndicesCreateRequest{
		Index: x.index,
		Body:  bytes.NewReader(body),
	}.Do(ctx, x.client.client)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "create clause index")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		cause := responseError(resp)
		// lost a create race with another replica
		if strings.Contains(cause.Error(), "resource_already_exists_exception") {
			return nil
		}
		return errors.Wrap(cause, errors.ErrCodeExternalService, "create clause index").WithDetail(cause.Error())
	}
	x.log.Info("clause index created", logging.String("index", x.index))
	return nil
}

func (x *ClauseIndex) exists(ctx context.Context) (bool, error) {
	resp, err := opensearchapi.IndicesExistsRequest{Index: []string{x.index}}.Do(ctx, x.client.client)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeExternalService, "check clause index")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case 200:
		return true, nil
	case 404:
		return false, nil
	}
	return false, failure(resp, "check clause index")
}

// IndexAnalysis bulk-writes one document per found answer of a. Documents
// are keyed by analysis ID and category, so re-indexing is idempotent.
func (x *ClauseIndex) IndexAnalysis(ctx context.Context, a *contract.ContractAnalysis) error {
	docs := contract.Clauses(a)
	if len(docs) == 0 {
		x.log.Debug("no answers to index", logging.String("analysis_id", a.ID))
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		meta := map[string]map[string]string{"index": {"_id": docID(d.AnalysisID, d.Category)}}
		if err := enc.Encode(meta); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "encode bulk action")
		}
		if err := enc.Encode(d); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "encode clause document")
		}
	}

	resp, err := opensearchapi.BulkRequest{
		Index:   x.index,
		Body:    &buf,
		Refresh: x.refresh,
	}.Do(ctx, x.client.client)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "bulk index clauses")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return failure(resp, "bulk index clauses")
	}

	failed, first, err := parseBulkResponse(resp.Body)
	if err != nil {
		return err
	}
	if failed > 0 {
		return errors.New(errors.ErrCodeExternalService, "bulk index partially failed").
			WithDetail(fmt.Sprintf("failed=%d of %d: %s", failed, len(docs), first))
	}

	x.log.Debug("clauses indexed", logging.String("analysis_id", a.ID), logging.Int("documents", len(docs)))
	return nil
}

// DeleteAnalysis removes every document of analysis id.
func (x *ClauseIndex) DeleteAnalysis(ctx context.Context, id string) error {
	body, err := json.Marshal(map[string]any{
		"query": map[string]any{"term": map[string]any{"analysis_id": id}},
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "marshal delete query")
	}
	refresh := x.refresh == "true" || x.refresh == "wait_for"
	resp, err := opensearchapi.DeleteByQueryRequest{
		Index:   []string{x.index},
		Body:    bytes.NewReader(body),
		Refresh: &refresh,
	}.Do(ctx, x.client.client)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "delete clauses")
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return failure(resp, "delete clauses")
	}

	var out struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "decode delete response")
	}
	if out.Deleted == 0 {
		return errors.NotFound("no clauses indexed for analysis").WithDetail("analysis_id=" + id)
	}
	return nil
}

func docID(analysisID string, c contract.Category) string {
	return analysisID + ":" + string(c)
}

// parseBulkResponse counts failed items and returns the first failure reason.
func parseBulkResponse(body io.Reader) (int, string, error) {
	var resp struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return 0, "", errors.Wrap(err, errors.ErrCodeSerialization, "decode bulk response")
	}
	if !resp.Errors {
		return 0, "", nil
	}

	failed, first := 0, ""
	for _, item := range resp.Items {
		// each item holds exactly one of index/create/update/delete
		for _, v := range item {
			if v.Status >= 200 && v.Status < 300 {
				continue
			}
			failed++
			if first == "" {
				first = v.ID + ": " + v.Error.Type + " " + v.Error.Reason
			}
		}
	}
	return failed, first, nil
}

// failure wraps an error response; the cluster's reason goes in the detail.
func failure(resp *opensearchapi.Response, msg string) error {
	cause := responseError(resp)
	return errors.Wrap(cause, errors.ErrCodeExternalService, msg).WithDetail(cause.Error())
}

func responseError(resp *opensearchapi.Response) error {
	raw, _ := io.ReadAll(resp.Body)
	var errResp struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Error.Type != "" {
		return fmt.Errorf("opensearch %d: %s: %s", resp.StatusCode, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("opensearch status %d", resp.StatusCode)
}

func clauseMapping(shards, replicas int) map[string]any {
	return map[string]any{
		"settings": map[string]any{
			"number_of_shards":   shards,
			"number_of_replicas": replicas,
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"analysis_id":   map[string]any{"type": "keyword"},
				"category":      map[string]any{"type": "keyword"},
				"answer":        map[string]any{"type": "text", "analyzer": "english"},
				"confidence":    map[string]any{"type": "float"},
				"contract_type": map[string]any{"type": "keyword"},
				"overall_risk":  map[string]any{"type": "keyword"},
				"analyzed_at":   map[string]any{"type": "date"},
			},
		},
	}
}

//Personal.AI order the ending
