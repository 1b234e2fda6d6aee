package clause_qa

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

const testMaxLength = 64

func newTestSession(t *testing.T, enc Encoder, model SpanModel, opts ...SessionOption) *Session {
	t.Helper()
	opts = append([]SessionOption{WithMaxLength(testMaxLength)}, opts...)
	s, err := NewSession(enc, model, opts...)
	require.NoError(t, err)
	return s
}

func TestNewSession_Validation(t *testing.T) {
	t.Parallel()
	enc := newTestEncoder(t)

	_, err := NewSession(nil, flatModel{})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, err = NewSession(enc, nil)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))

	_, err = NewSession(enc, flatModel{}, WithMaxLength(2))
	assert.True(t, errors.IsCode(err, errors.ErrCodeEncoderMaxLength))

	s, err := NewSession(enc, flatModel{})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxLength, s.MaxLength())
	assert.Equal(t, DefaultPolicy(), s.Policy())

	s, err = NewSession(enc, flatModel{}, WithPolicy(ResolverPolicy{Strict: false}))
	require.NoError(t, err)
	assert.Equal(t, LenientPolicy(), s.Policy())
}

func TestAnswerCategory_GoverningLawDelaware(t *testing.T) {
	t.Parallel()
	enc := newTestEncoder(t)
	model := &peakModel{enc: enc, startTok: "laws", endTok: "delaware"}
	s := newTestSession(t, enc, model)

	res, err := s.AnswerCategory(context.Background(),
		"This Agreement shall be governed by the laws of the State of Delaware.",
		contract.CategoryGoverningLaw)
	require.NoError(t, err)

	assert.Contains(t, strings.ToLower(res.Answer), "delaware")
	assert.Equal(t, "Laws of the state of delaware", res.Answer)
	assert.Greater(t, res.Confidence, 0.3)
	assert.LessOrEqual(t, res.Confidence, 1.0)
	assert.Equal(t, "What law governs this contract?", res.QuestionUsed)
	assert.EqualValues(t, 4, model.calls.Load(), "every variant is tried")
}

func TestAnswerCategory_TerminationNotice(t *testing.T) {
	t.Parallel()
	enc := newTestEncoder(t)
	model := &peakModel{enc: enc, startTok: "thirty", endTok: "days"}
	s := newTestSession(t, enc, model)

	res, err := s.AnswerCategory(context.Background(),
		"Either party may terminate this Agreement with thirty (30) days prior written notice.",
		contract.CategoryTermination)
	require.NoError(t, err)

	assert.True(t, strings.Contains(res.Answer, "30") || strings.Contains(strings.ToLower(res.Answer), "thirty"))
	assert.Equal(t, "Thirty ( 30 ) days", res.Answer)
	assert.Greater(t, res.Confidence, 0.3)
}

func TestAnswerCategory_EmptyText(t *testing.T) {
	t.Parallel()
	enc := newTestEncoder(t)
	model := &peakModel{enc: enc, startTok: "laws", endTok: "delaware"}
	s := newTestSession(t, enc, model)

	for _, c := range contract.AllCategories() {
		res, err := s.AnswerCategory(context.Background(), "", c)
		require.NoError(t, err)
		assert.Equal(t, contract.NoAnswerText, res.Answer)
		assert.Zero(t, res.Confidence)
		spec, _ := LookupCategory(c)
		assert.Equal(t, spec.Questions[0], res.QuestionUsed)
	}
	assert.Zero(t, model.calls.Load())
}

func TestAnswerCategory_RejectsPartyAnswer(t *testing.T) {
	t.Parallel()
	enc := newTestEncoder(t)
	model := &peakModel{enc: enc, startTok: "party", endTok: "party"}
	s := newTestSession(t, enc, model)

	res, err := s.AnswerCategory(context.Background(), "The party shall comply with this agreement.", contract.CategoryTermination)
	require.NoError(t, err)
	assert.NotEqual(t, "party", strings.ToLower(res.Answer))
	assert.Equal(t, contract.NoAnswerText, res.Answer)
	assert.Zero(t, res.Confidence)
}

func TestAnswerCategory_BestVariantWins(t *testing.T) {
	t.Parallel()
	enc := newTestEncoder(t)
	lawsID, delawareID := enc.TokenID("laws"), enc.TokenID("delaware")

	uniform := func(in *EncodedInput) ([]float64, []float64, error) {
		return peakedLogits(in, -1, -1, 0)
	}
	soft := func(in *EncodedInput) ([]float64, []float64, error) {
		return peakedLogits(in, lawsID, delawareID, 0)
	}
	sharp := func(in *EncodedInput) ([]float64, []float64, error) {
		return peakedLogits(in, lawsID, delawareID, floorLogit)
	}
	model := &scriptedModel{script: []func(*EncodedInput) ([]float64, []float64, error){uniform, soft, sharp, soft}}
	s := newTestSession(t, enc, model)

	res, err := s.AnswerCategory(context.Background(),
		"This Agreement shall be governed by the laws of the State of Delaware.",
		contract.CategoryGoverningLaw)
	require.NoError(t, err)

	spec, _ := LookupCategory(contract.CategoryGoverningLaw)
	assert.Equal(t, spec.Questions[2], res.QuestionUsed)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9)
}

func TestAnswerCategory_ShortAnswerIgnored(t *testing.T) {
	t.Parallel()
	enc := &fixedEncoder{ids: []int64{1, 2}, dec: stubDecoder{1: "$50", 2: "USD"}}
	model := &scriptedModel{script: []func(*EncodedInput) ([]float64, []float64, error){
		func(*EncodedInput) ([]float64, []float64, error) {
			return []float64{peakLogit, floorLogit}, []float64{peakLogit, floorLogit}, nil
		},
	}}
	s := newTestSession(t, enc, model)

	res, err := s.AnswerCategory(context.Background(), "Fee is $50 per month.", contract.CategoryPaymentTerms)
	require.NoError(t, err)
	assert.Equal(t, contract.NoAnswerText, res.Answer)
	assert.Zero(t, res.Confidence)
}

func TestAnswerCategory_PropagatesErrors(t *testing.T) {
	t.Parallel()
	enc := newTestEncoder(t)
	boom := stderrors.New("serving down")
	model := &scriptedModel{script: []func(*EncodedInput) ([]float64, []float64, error){
		func(*EncodedInput) ([]float64, []float64, error) { return nil, nil, boom },
	}}
	s := newTestSession(t, enc, model)

	_, err := s.AnswerCategory(context.Background(), "Governed by the laws of Delaware.", contract.CategoryGoverningLaw)
	assert.ErrorIs(t, err, boom)

	mismatched := &scriptedModel{script: []func(*EncodedInput) ([]float64, []float64, error){
		func(*EncodedInput) ([]float64, []float64, error) { return []float64{1}, []float64{1, 2}, nil },
	}}
	s = newTestSession(t, enc, mismatched)
	_, err = s.AnswerCategory(context.Background(), "Governed by the laws of Delaware.", contract.CategoryGoverningLaw)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSpanScoresMismatched))
}

func TestAnswerCategory_Cancelled(t *testing.T) {
	t.Parallel()
	enc := newTestEncoder(t)
	model := &peakModel{enc: enc, startTok: "laws", endTok: "delaware"}
	s := newTestSession(t, enc, model)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.AnswerCategory(ctx, "Governed by the laws of Delaware.", contract.CategoryGoverningLaw)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, model.calls.Load())
}

func TestAnswerCategory_Idempotent(t *testing.T) {
	t.Parallel()
	enc := newTestEncoder(t)
	s := newTestSession(t, enc, &peakModel{enc: enc, startTok: "thirty", endTok: "notice"})

	text := "Either party may terminate this Agreement with thirty (30) days prior written notice."
	first, err := s.AnswerCategory(context.Background(), text, contract.CategoryTermination)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := s.AnswerCategory(context.Background(), text, contract.CategoryTermination)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAskQuestion(t *testing.T) {
	t.Parallel()
	enc := newTestEncoder(t)
	s := newTestSession(t, enc, &peakModel{enc: enc, startTok: "laws", endTok: "delaware"})

	_, err := s.AskQuestion(context.Background(), "anything", "   ")
	assert.True(t, errors.IsCode(err, errors.ErrCodeQuestionEmpty))

	res, err := s.AskQuestion(context.Background(), "", "What law governs?")
	require.NoError(t, err)
	assert.Equal(t, contract.NoAnswer("What law governs?"), res)

	res, err = s.AskQuestion(context.Background(),
		"This Agreement shall be governed by the laws of the State of Delaware.", "What law governs?")
	require.NoError(t, err)
	assert.Equal(t, "Laws of the state of delaware", res.Answer)
	assert.Equal(t, "What law governs?", res.QuestionUsed)
}

// fixedEncoder ignores its input and always yields ids in segment 1.
type fixedEncoder struct {
	ids []int64
	dec stubDecoder
}

func (e *fixedEncoder) Encode(_, _ string, _ int) (*EncodedInput, error) {
	n := len(e.ids)
	in := &EncodedInput{
		InputIDs:      append([]int64(nil), e.ids...),
		AttentionMask: make([]int64, n),
		TokenTypeIDs:  make([]int64, n),
		Offsets:       make([][2]int, n),
	}
	for i := range in.TokenTypeIDs {
		in.AttentionMask[i], in.TokenTypeIDs[i] = 1, 1
	}
	return in, nil
}

func (e *fixedEncoder) Decode(ids []int64) string { return e.dec.Decode(ids) }

//Personal.AI order the ending
