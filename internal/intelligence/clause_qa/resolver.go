package clause_qa

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/turtacn/ContractLens/pkg/errors"
)

const (
	DefaultBeamSize   = 5
	DefaultMaxSpanLen = 50
	minAnswerLen      = 3
)

// Decoder maps token ids back to text.
type Decoder interface {
	Decode(ids []int64) string
}

// ResolverPolicy tunes the span search and the validity filter.
type ResolverPolicy struct {
	BeamSize   int  `json:"beam_size" yaml:"beam_size"`
	MaxSpanLen int  `json:"max_span_len" yaml:"max_span_len"`
	Strict     bool `json:"strict" yaml:"strict"`
}

// DefaultPolicy is the strict policy used on the category path.
func DefaultPolicy() ResolverPolicy {
	return ResolverPolicy{BeamSize: DefaultBeamSize, MaxSpanLen: DefaultMaxSpanLen, Strict: true}
}

// LenientPolicy is the non-strict policy used by the baseline evaluator.
func LenientPolicy() ResolverPolicy {
	p := DefaultPolicy()
	p.Strict = false
	return p
}

func (p ResolverPolicy) withDefaults() ResolverPolicy {
	if p.BeamSize <= 0 {
		p.BeamSize = DefaultBeamSize
	}
	if p.MaxSpanLen <= 0 {
		p.MaxSpanLen = DefaultMaxSpanLen
	}
	return p
}

// SpanCandidate is a token range [Start, End] with its joint probability.
type SpanCandidate struct {
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
}

var rejectedAnswers = map[string]struct{}{
	"supplier": {}, "client": {}, "company": {}, "party": {},
	"the": {}, "this": {}, "that": {},
}

var allowedSingleWords = map[string]struct{}{
	"arbitration": {}, "court": {}, "delaware": {}, "california": {}, "new york": {},
}

// IsValidAnswer applies the validity filter to a decoded span.
func IsValidAnswer(text string, strict bool) bool {
	t := strings.TrimSpace(text)
	if len(t) < minAnswerLen {
		return false
	}
	lower := strings.ToLower(t)
	if _, bad := rejectedAnswers[lower]; bad {
		return false
	}
	if !strict {
		return true
	}
	if len(strings.Fields(t)) == 1 && !strings.ContainsFunc(t, unicode.IsDigit) {
		_, ok := allowedSingleWords[lower]
		return ok
	}
	return true
}

// Softmax returns the numerically stable softmax of logits.
func Softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}
	maxV := math.Inf(-1)
	for _, v := range logits {
		if v > maxV {
			maxV = v
		}
	}
	if math.IsInf(maxV, -1) {
		u := 1 / float64(len(logits))
		for i := range out {
			out[i] = u
		}
		return out
	}
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - maxV)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// TopK returns the indices of the k largest probabilities, highest first.
// Equal values keep the lower index first.
func TopK(probs []float64, k int) []int {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return probs[idx[a]] > probs[idx[b]] })
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx
}

// Candidates enumerates admissible spans from the start and end beams in
// production order: start beam outer, end beam inner.
func Candidates(startProbs, endProbs []float64, policy ResolverPolicy) []SpanCandidate {
	policy = policy.withDefaults()
	k := policy.BeamSize
	if len(startProbs) < k {
		k = len(startProbs)
	}
	starts := TopK(startProbs, k)
	ends := TopK(endProbs, k)

	out := make([]SpanCandidate, 0, k*k)
	for _, s := range starts {
		for _, e := range ends {
			if s <= e && e-s < policy.MaxSpanLen {
				out = append(out, SpanCandidate{Start: s, End: e, Score: startProbs[s] * endProbs[e]})
			}
		}
	}
	return out
}

// ResolveSpan runs the constrained beam search over start and end logits and
// returns the best valid decoded span with its confidence, or ("", 0) when
// no candidate passes the validity filter.
func ResolveSpan(start, end []float64, ids []int64, dec Decoder, policy ResolverPolicy) (string, float64, error) {
	if err := checkScores(start, end, ids); err != nil {
		return "", 0, err
	}

	best, bestScore := "", 0.0
	for _, c := range Candidates(Softmax(start), Softmax(end), policy) {
		if c.Score <= bestScore {
			continue
		}
		text := dec.Decode(ids[c.Start : c.End+1])
		if !IsValidAnswer(text, policy.Strict) {
			continue
		}
		best, bestScore = text, c.Score
	}
	return best, bestScore, nil
}

func checkScores(start, end []float64, ids []int64) error {
	if len(start) != len(end) || len(start) != len(ids) {
		return errors.InputError(errors.ErrCodeSpanScoresMismatched, "start, end and token id lengths differ").
			WithDetail(fmt.Sprintf("start=%d end=%d ids=%d", len(start), len(end), len(ids)))
	}
	if len(start) == 0 {
		return errors.InputError(errors.ErrCodeSpanScoresEmpty, "span scores are empty")
	}
	return nil
}

//Personal.AI order the ending
