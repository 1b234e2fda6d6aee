// Package eval summarises prediction files and runs the canned sample cases
// against the baseline decoder.
package eval

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"

	"github.com/turtacn/ContractLens/internal/intelligence/clause_qa"
	"github.com/turtacn/ContractLens/pkg/errors"
)

// previewChars caps answers shown by Preview.
const previewChars = 100

// Stats describes a prediction set keyed by example ID.
type Stats struct {
	Total          int     `json:"total"`
	NonEmpty       int     `json:"non_empty"`
	Empty          int     `json:"empty"`
	AnswerRate     float64 `json:"answer_rate_pct"`
	AvgAnswerWords float64 `json:"avg_answer_words"`
	MinAnswerWords int     `json:"min_answer_words"`
	MaxAnswerWords int     `json:"max_answer_words"`
}

// PredictionStats counts answered predictions and their word lengths. A
// prediction that is blank after trimming counts as empty.
func PredictionStats(preds map[string]string) Stats {
	st := Stats{Total: len(preds)}
	if st.Total == 0 {
		return st
	}
	sum := 0
	for _, p := range preds {
		if strings.TrimSpace(p) == "" {
			st.Empty++
			continue
		}
		n := len(strings.Fields(p))
		if st.NonEmpty == 0 || n < st.MinAnswerWords {
			st.MinAnswerWords = n
		}
		if n > st.MaxAnswerWords {
			st.MaxAnswerWords = n
		}
		sum += n
		st.NonEmpty++
	}
	st.AnswerRate = float64(st.NonEmpty) / float64(st.Total) * 100
	if st.NonEmpty > 0 {
		st.AvgAnswerWords = float64(sum) / float64(st.NonEmpty)
	}
	return st
}

// LoadPredictions decodes a JSON object of id to answer.
func LoadPredictions(r io.Reader) (map[string]string, error) {
	var preds map[string]string
	if err := json.NewDecoder(r).Decode(&preds); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode predictions")
	}
	if preds == nil {
		preds = map[string]string{}
	}
	return preds, nil
}

// PreviewEntry is one truncated prediction.
type PreviewEntry struct {
	ID     string `json:"id"`
	Answer string `json:"answer"`
}

// Preview returns the first n predictions by sorted ID with long answers cut
// to 100 characters plus an ellipsis.
func Preview(preds map[string]string, n int) []PreviewEntry {
	ids := make([]string, 0, len(preds))
	for id := range preds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if n > 0 && len(ids) > n {
		ids = ids[:n]
	}
	out := make([]PreviewEntry, 0, len(ids))
	for _, id := range ids {
		a := preds[id]
		if r := []rune(a); len(r) > previewChars {
			a = string(r[:previewChars]) + "..."
		}
		out = append(out, PreviewEntry{ID: id, Answer: a})
	}
	return out
}

// SampleCase is a canned question with a reference answer.
type SampleCase struct {
	Name     string `json:"name"`
	Context  string `json:"context"`
	Question string `json:"question"`
	Expected string `json:"expected"`
}

// SampleCases returns the three reference clauses.
func SampleCases() []SampleCase {
	return []SampleCase{
		{
			Name:     "governing_law",
			Context:  "This Agreement shall be governed by and construed in accordance with the laws of the State of California, without regard to its conflict of laws principles.",
			Question: "What is the governing law?",
			Expected: "laws of the State of California",
		},
		{
			Name:     "termination",
			Context:  "Either party may terminate this Agreement at any time with thirty (30) days prior written notice to the other party.",
			Question: "What are the termination clauses?",
			Expected: "Either party may terminate this Agreement at any time with thirty (30) days prior written notice",
		},
		{
			Name:     "payment_terms",
			Context:  "The License fee shall be $50,000 per year, payable in quarterly installments of $12,500 each.",
			Question: "What are the payment terms?",
			Expected: "$50,000 per year, payable in quarterly installments of $12,500 each",
		},
	}
}

// Baseline is the argmax decoder. *clause_qa.Session implements it.
type Baseline interface {
	BaselineAnswer(ctx context.Context, question, passage string) (clause_qa.BaselineResult, error)
}

// CaseResult is the outcome of one sample case.
type CaseResult struct {
	Case       SampleCase `json:"case"`
	Predicted  string     `json:"predicted"`
	Confidence float64    `json:"confidence"`
	Start      int        `json:"start_position"`
	End        int        `json:"end_position"`
	// Match is true when the prediction and the reference overlap after case
	// folding, in either direction.
	Match bool `json:"match"`
}

// Report aggregates RunSamples.
type Report struct {
	Results []CaseResult `json:"results"`
	Matched int          `json:"matched"`
}

// RunSamples answers every case with b. The first decoder error aborts the run.
func RunSamples(ctx context.Context, b Baseline, cases []SampleCase) (*Report, error) {
	if b == nil {
		return nil, errors.InvalidParam("baseline decoder is required")
	}
	rep := &Report{Results: make([]CaseResult, 0, len(cases))}
	for _, c := range cases {
		res, err := b.BaselineAnswer(ctx, c.Question, c.Context)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeUnknown, "sample case "+c.Name)
		}
		cr := CaseResult{
			Case:       c,
			Predicted:  res.Answer,
			Confidence: res.Confidence,
			Start:      res.StartPosition,
			End:        res.EndPosition,
			Match:      overlaps(res.Answer, c.Expected),
		}
		if cr.Match {
			rep.Matched++
		}
		rep.Results = append(rep.Results, cr)
	}
	return rep, nil
}

func overlaps(predicted, expected string) bool {
	p := strings.ToLower(strings.TrimSpace(predicted))
	e := strings.ToLower(strings.TrimSpace(expected))
	if p == "" || e == "" {
		return false
	}
	return strings.Contains(p, e) || strings.Contains(e, p)
}

//Personal.AI order the ending
