package clause_qa

import (
	"context"

	"github.com/turtacn/ContractLens/pkg/types/contract"
)

// BaselineResult is the argmax answer used as an evaluation reference.
type BaselineResult struct {
	contract.AnswerResult
	StartPosition int `json:"start_position"`
	EndPosition   int `json:"end_position"`
}

// BaselineAnswer answers question against passage with plain argmax
// decoding: the most likely start and end tokens, confidence being the mean
// of their probabilities. The lenient validity filter applies.
func (s *Session) BaselineAnswer(ctx context.Context, question, passage string) (BaselineResult, error) {
	in, err := s.encoder.Encode(question, passage, s.maxLength)
	if err != nil {
		return BaselineResult{}, err
	}
	start, end, err := s.model.Infer(ctx, in)
	if err != nil {
		return BaselineResult{}, err
	}
	if err := checkScores(start, end, in.InputIDs); err != nil {
		return BaselineResult{}, err
	}

	ps, pe := Softmax(start), Softmax(end)
	si, ei := argmax(ps), argmax(pe)
	out := BaselineResult{
		AnswerResult:  contract.NoAnswer(question),
		StartPosition: si,
		EndPosition:   ei,
	}
	if si > ei {
		return out, nil
	}
	text := s.encoder.Decode(in.InputIDs[si : ei+1])
	if !IsValidAnswer(text, false) {
		return out, nil
	}
	answer := NormalizeAnswer(text)
	if answer == contract.NoAnswerText {
		return out, nil
	}
	out.Answer = answer
	out.Confidence = (ps[si] + pe[ei]) / 2
	return out, nil
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

//Personal.AI order the ending
