// Package clause_qa is the contract question-answering core: context
// selection, span resolution over start/end scores, answer normalization and
// the per-category orchestration that ties them to an encoder and a served
// span model.
package clause_qa

import (
	"context"
	"strings"

	"github.com/turtacn/ContractLens/internal/intelligence/common"
	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

// ContextPrefix is prepended to every excerpt before encoding.
const ContextPrefix = "Contract Document: "

// DefaultMaxLength is the encoder sequence length used when none is given.
const DefaultMaxLength = 512

// minBestAnswerLen is the trimmed length a span must exceed to replace the
// current best answer across question variants.
const minBestAnswerLen = 3

// Session holds the encoder, span model and resolver policy. It is built once
// at startup, never mutated and shared by every request.
type Session struct {
	encoder   Encoder
	model     SpanModel
	policy    ResolverPolicy
	maxLength int
	logger    common.Logger
}

// SessionOption configures a Session at construction.
type SessionOption func(*Session)

// WithPolicy overrides the resolver policy.
func WithPolicy(p ResolverPolicy) SessionOption {
	return func(s *Session) { s.policy = p.withDefaults() }
}

// WithMaxLength overrides the encoder sequence length.
func WithMaxLength(n int) SessionOption {
	return func(s *Session) { s.maxLength = n }
}

func WithSessionLogger(l common.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession validates the collaborators and freezes them into a Session.
func NewSession(enc Encoder, model SpanModel, opts ...SessionOption) (*Session, error) {
	if enc == nil {
		return nil, errors.InvalidParam("encoder is required")
	}
	if model == nil {
		return nil, errors.InvalidParam("span model is required")
	}
	s := &Session{
		encoder:   enc,
		model:     model,
		policy:    DefaultPolicy(),
		maxLength: DefaultMaxLength,
		logger:    common.NewNoopLogger(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.maxLength < minEncodeLength {
		return nil, errors.InputError(errors.ErrCodeEncoderMaxLength, "max length must be at least 3")
	}
	return s, nil
}

func (s *Session) Policy() ResolverPolicy { return s.policy }
func (s *Session) MaxLength() int         { return s.maxLength }

// AnswerCategory answers category against text: the excerpt is selected
// once, every question variant is tried in order and the best valid span
// wins. Text that is blank resolves to the sentinel without inference.
func (s *Session) AnswerCategory(ctx context.Context, text string, category contract.Category) (contract.AnswerResult, error) {
	questions := questionsFor(category)
	if strings.TrimSpace(text) == "" {
		return contract.NoAnswer(questions[0]), nil
	}
	excerpt := SelectContext(text, category)
	res, err := s.answerVariants(ctx, ContextPrefix+excerpt, questions)
	if err != nil {
		return contract.AnswerResult{}, err
	}
	s.logger.Debug("category answered",
		"category", string(category),
		"excerpt_chars", len(excerpt),
		"confidence", res.Confidence,
		"found", res.Found())
	return res, nil
}

// AskQuestion answers a free-form question against the whole text without
// context selection.
func (s *Session) AskQuestion(ctx context.Context, text, question string) (contract.AnswerResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return contract.AnswerResult{}, errors.InputError(errors.ErrCodeQuestionEmpty, "question must not be empty")
	}
	if strings.TrimSpace(text) == "" {
		return contract.NoAnswer(question), nil
	}
	return s.answerVariants(ctx, text, []string{question})
}

func (s *Session) answerVariants(ctx context.Context, passage string, questions []string) (contract.AnswerResult, error) {
	var (
		best      string
		bestScore float64
		bestQ     string
	)
	for _, q := range questions {
		if err := ctx.Err(); err != nil {
			return contract.AnswerResult{}, err
		}
		text, score, err := s.answerOne(ctx, q, passage)
		if err != nil {
			return contract.AnswerResult{}, err
		}
		if score > bestScore && len(strings.TrimSpace(text)) > minBestAnswerLen {
			best, bestScore, bestQ = text, score, q
		}
	}

	answer := NormalizeAnswer(best)
	if answer == contract.NoAnswerText {
		return contract.NoAnswer(questions[0]), nil
	}
	return contract.AnswerResult{Answer: answer, Confidence: bestScore, QuestionUsed: bestQ}, nil
}

func (s *Session) answerOne(ctx context.Context, question, passage string) (string, float64, error) {
	in, err := s.encoder.Encode(question, passage, s.maxLength)
	if err != nil {
		return "", 0, err
	}
	start, end, err := s.model.Infer(ctx, in)
	if err != nil {
		return "", 0, err
	}
	return ResolveSpan(start, end, in.InputIDs, s.encoder, s.policy)
}

//Personal.AI order the ending
