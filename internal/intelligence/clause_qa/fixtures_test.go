package clause_qa

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

var testTokens = []string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]", "[MASK]",
	"contract", "document", ":", ".", ",", "?", "(", ")", "'",
	"this", "agreement", "shall", "be", "governed", "by", "the", "laws", "of",
	"state", "delaware", "what", "law", "govern", "##s", "which", "or", "country",
	"apply", "to", "either", "party", "may", "terminat", "##e", "##ion", "with",
	"thirty", "30", "days", "prior", "written", "notice", "comply", "how", "can",
	"is", "are", "under", "jurisdiction", "clause", "specified", "new", "york",
}

func testVocab() map[string]int64 {
	v := make(map[string]int64, len(testTokens))
	for i, tok := range testTokens {
		v[tok] = int64(i)
	}
	return v
}

func newTestEncoder(t *testing.T) *WordPieceEncoder {
	t.Helper()
	enc, err := NewWordPieceEncoder(testVocab())
	require.NoError(t, err)
	return enc
}

const (
	peakLogit  = 10.0
	floorLogit = -1e4
)

// peakModel puts all probability mass on the first context-segment
// occurrence of startTok and the first occurrence of endTok at or after it.
type peakModel struct {
	enc      *WordPieceEncoder
	startTok string
	endTok   string
	calls    atomic.Int32
}

func (m *peakModel) Infer(_ context.Context, in *EncodedInput) ([]float64, []float64, error) {
	m.calls.Add(1)
	return peakedLogits(in, m.enc.TokenID(m.startTok), m.enc.TokenID(m.endTok), floorLogit)
}

func peakedLogits(in *EncodedInput, startID, endID int64, floor float64) ([]float64, []float64, error) {
	n := in.Len()
	start := make([]float64, n)
	end := make([]float64, n)
	for i := range start {
		start[i], end[i] = floor, floor
	}
	si := -1
	for i, id := range in.InputIDs {
		if in.TokenTypeIDs[i] == 1 && id == startID {
			si = i
			break
		}
	}
	if si < 0 {
		return start, end, nil
	}
	start[si] = peakLogit
	for i := si; i < n; i++ {
		if in.InputIDs[i] == endID {
			end[i] = peakLogit
			break
		}
	}
	return start, end, nil
}

// scriptedModel delegates each call to the next function in script; calls
// beyond the script reuse the last entry.
type scriptedModel struct {
	script []func(*EncodedInput) ([]float64, []float64, error)
	calls  atomic.Int32
}

func (m *scriptedModel) Infer(_ context.Context, in *EncodedInput) ([]float64, []float64, error) {
	i := int(m.calls.Add(1)) - 1
	if i >= len(m.script) {
		i = len(m.script) - 1
	}
	return m.script[i](in)
}

// flatModel returns uniform scores, so every candidate ties.
type flatModel struct{}

func (flatModel) Infer(_ context.Context, in *EncodedInput) ([]float64, []float64, error) {
	return make([]float64, in.Len()), make([]float64, in.Len()), nil
}

// stubDecoder maps ids straight to words joined by spaces.
type stubDecoder map[int64]string

func (d stubDecoder) Decode(ids []int64) string {
	out := ""
	for _, id := range ids {
		w, ok := d[id]
		if !ok || w == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += w
	}
	return out
}

//Personal.AI order the ending
