package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/turtacn/ContractLens/pkg/types/contract"
)

// AnalyzeRequest is the body of POST /api/v1/analyze and /api/v1/jobs.
// Exactly one of Text and ObjectKey must be set.
type AnalyzeRequest struct {
	Text         string                `json:"text,omitempty"`
	ObjectKey    string                `json:"object_key,omitempty"`
	Categories   []contract.Category   `json:"categories,omitempty"`
	Enhance      bool                  `json:"enhance,omitempty"`
	AnalysisType contract.AnalysisType `json:"analysis_type,omitempty"`
}

type DetectResult struct {
	ContractType       contract.ContractType `json:"contract_type"`
	RelevantCategories []contract.Category   `json:"relevant_categories"`
}

type Category struct {
	Name      contract.Category `json:"name"`
	Questions []string          `json:"questions"`
	Keywords  []string          `json:"keywords"`
}

// AnalysisPage is one page of GET /api/v1/analyses.
type AnalysisPage struct {
	Items  []contract.AnalysisSummary `json:"items"`
	Total  int64                      `json:"total"`
	Limit  int                        `json:"limit"`
	Offset int                        `json:"offset"`
}

type JobTicket struct {
	JobID       string    `json:"job_id"`
	Topic       string    `json:"topic"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Analyze runs a synchronous full analysis.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (*contract.ContractAnalysis, error) {
	var out contract.ContractAnalysis
	if err := c.do(ctx, http.MethodPost, "/api/v1/analyze", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ask answers one free-form question against text.
func (c *Client) Ask(ctx context.Context, text, question string) (contract.AnswerResult, error) {
	var out contract.AnswerResult
	body := map[string]string{"text": text, "question": question}
	err := c.do(ctx, http.MethodPost, "/api/v1/ask", body, &out)
	return out, err
}

func (c *Client) Detect(ctx context.Context, text string) (DetectResult, error) {
	var out DetectResult
	err := c.do(ctx, http.MethodPost, "/api/v1/detect", map[string]string{"text": text}, &out)
	return out, err
}

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := c.do(ctx, http.MethodGet, "/api/v1/categories", nil, &out)
	return out, err
}

// SubmitJob queues an asynchronous analysis.
func (c *Client) SubmitJob(ctx context.Context, req AnalyzeRequest) (*JobTicket, error) {
	var out JobTicket
	if err := c.do(ctx, http.MethodPost, "/api/v1/jobs", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAnalysis fetches a persisted analysis, typically one produced by a job.
func (c *Client) GetAnalysis(ctx context.Context, id string) (*contract.ContractAnalysis, error) {
	var out contract.ContractAnalysis
	if err := c.do(ctx, http.MethodGet, "/api/v1/analyses/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListAnalyses pages through the server's analysis history.
func (c *Client) ListAnalyses(ctx context.Context, f contract.AnalysisFilter) (*AnalysisPage, error) {
	q := url.Values{}
	if f.ContractType != "" {
		q.Set("contract_type", string(f.ContractType))
	}
	if f.Risk != "" {
		q.Set("risk", string(f.Risk))
	}
	if !f.Since.IsZero() {
		q.Set("since", f.Since.UTC().Format(time.RFC3339))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	path := "/api/v1/analyses"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out AnalysisPage
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchClauses searches extracted answers across the server's analyses.
func (c *Client) SearchClauses(ctx context.Context, cq contract.ClauseQuery) (*contract.ClauseSearchResult, error) {
	q := url.Values{}
	if cq.Text != "" {
		q.Set("q", cq.Text)
	}
	if cq.Category != "" {
		q.Set("category", string(cq.Category))
	}
	if cq.ContractType != "" {
		q.Set("contract_type", string(cq.ContractType))
	}
	if cq.Risk != "" {
		q.Set("risk", string(cq.Risk))
	}
	if cq.MinConfidence > 0 {
		q.Set("min_confidence", strconv.FormatFloat(cq.MinConfidence, 'f', -1, 64))
	}
	if cq.Limit > 0 {
		q.Set("limit", strconv.Itoa(cq.Limit))
	}
	if cq.Offset > 0 {
		q.Set("offset", strconv.Itoa(cq.Offset))
	}
	var out contract.ClauseSearchResult
	if err := c.do(ctx, http.MethodGet, "/api/v1/clauses?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

//Personal.AI order the ending
