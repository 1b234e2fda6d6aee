// Package analysis orchestrates a full contract analysis: contract type
// detection, per-category answer extraction behind a two-level answer cache,
// risk scoring, recommendations and the optional LLM enhancement.
package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractLens/internal/intelligence/clause_qa"
	"github.com/turtacn/ContractLens/internal/intelligence/common"
	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

const (
	DefaultLocalCacheSize  = 1024
	DefaultMaxConcurrency  = 4
	DefaultCategoryTimeout = 60 * time.Second
	localCacheName         = "lru_answers"
	batchName              = "category_answers"
)

// QAEngine answers categories and free-form questions. *clause_qa.Session
// implements it.
type QAEngine interface {
	AnswerCategory(ctx context.Context, text string, category contract.Category) (contract.AnswerResult, error)
	AskQuestion(ctx context.Context, text, question string) (contract.AnswerResult, error)
}

// AnswerCache is the shared second-level cache.
type AnswerCache interface {
	Get(ctx context.Context, key string) (contract.AnswerResult, bool, error)
	Put(ctx context.Context, key string, res contract.AnswerResult) error
}

// Enhancer produces the optional free-text analysis.
type Enhancer interface {
	Available() bool
	Enhance(ctx context.Context, text string, t contract.AnalysisType, ct contract.ContractType) (*contract.Enhancement, error)
}

// ContractStore resolves object keys and persists finished analyses.
type ContractStore interface {
	GetContractText(ctx context.Context, key string) (string, error)
	PutAnalysis(ctx context.Context, a *contract.ContractAnalysis) error
	GetAnalysis(ctx context.Context, id string) (*contract.ContractAnalysis, error)
}

// HistoryIndex records finished analyses for filtered listing.
type HistoryIndex interface {
	Record(ctx context.Context, a *contract.ContractAnalysis) error
	Get(ctx context.Context, id string) (*contract.ContractAnalysis, error)
	List(ctx context.Context, f contract.AnalysisFilter) ([]contract.AnalysisSummary, int64, error)
}

// ClauseIndex makes extracted answers searchable across analyses.
type ClauseIndex interface {
	IndexAnalysis(ctx context.Context, a *contract.ContractAnalysis) error
	Search(ctx context.Context, q contract.ClauseQuery) (*contract.ClauseSearchResult, error)
}

// AnalysisPage is one page of the analysis history.
type AnalysisPage struct {
	Items  []contract.AnalysisSummary `json:"items"`
	Total  int64                      `json:"total"`
	Limit  int                        `json:"limit"`
	Offset int                        `json:"offset"`
}

// AnalyzeRequest selects the contract by inline text or by object key.
type AnalyzeRequest struct {
	Text         string                `json:"text,omitempty"`
	ObjectKey    string                `json:"object_key,omitempty"`
	Categories   []contract.Category   `json:"categories,omitempty"`
	Enhance      bool                  `json:"enhance,omitempty"`
	AnalysisType contract.AnalysisType `json:"analysis_type,omitempty"`
}

// Validate checks that exactly one source is given and that every category
// is known.
func (r *AnalyzeRequest) Validate() error {
	hasText := strings.TrimSpace(r.Text) != ""
	hasKey := strings.TrimSpace(r.ObjectKey) != ""
	switch {
	case hasText && hasKey:
		return errors.InvalidParam("text and object_key are mutually exclusive")
	case !hasText && !hasKey:
		return errors.New(errors.ErrCodeContractTextEmpty, "contract text is empty")
	}
	for _, c := range r.Categories {
		if !c.IsValid() {
			return errors.New(errors.ErrCodeUnknownCategory, "unknown question category").WithDetail("category=" + string(c))
		}
	}
	return nil
}

// Config tunes the service.
type Config struct {
	// ModelID is folded into cache keys so a model upgrade never serves
	// stale answers.
	ModelID         string
	LocalCacheSize  int
	MaxConcurrency  int
	CategoryTimeout time.Duration
	PersistAnalyses bool
}

func (c *Config) applyDefaults() {
	if c.LocalCacheSize <= 0 {
		c.LocalCacheSize = DefaultLocalCacheSize
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.CategoryTimeout <= 0 {
		c.CategoryTimeout = DefaultCategoryTimeout
	}
}

// Option configures optional collaborators.
type Option func(*Service)

func WithAnswerCache(c AnswerCache) Option      { return func(s *Service) { s.shared = c } }
func WithEnhancer(e Enhancer) Option            { return func(s *Service) { s.enhancer = e } }
func WithContractStore(cs ContractStore) Option { return func(s *Service) { s.store = cs } }
func WithHistory(h HistoryIndex) Option         { return func(s *Service) { s.history = h } }
func WithClauseIndex(ci ClauseIndex) Option     { return func(s *Service) { s.clauses = ci } }

func WithMetrics(m common.IntelligenceMetrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithIDGenerator overrides analysis ID generation.
func WithIDGenerator(gen func() string) Option { return func(s *Service) { s.newID = gen } }

// Service is safe for concurrent use.
type Service struct {
	engine   QAEngine
	cfg      Config
	local    *lru.Cache[string, contract.AnswerResult]
	shared   AnswerCache
	enhancer Enhancer
	store    ContractStore
	history  HistoryIndex
	clauses  ClauseIndex
	batch    common.BatchProcessor[contract.Category, contract.AnswerResult]
	metrics  common.IntelligenceMetrics
	log      logging.Logger
	now      func() time.Time
	newID    func() string
}

// NewService wires the engine and the optional collaborators.
func NewService(engine QAEngine, cfg Config, opts ...Option) (*Service, error) {
	if engine == nil {
		return nil, errors.InvalidParam("QA engine is required")
	}
	cfg.applyDefaults()
	local, err := lru.New[string, contract.AnswerResult](cfg.LocalCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "create local answer cache")
	}
	s := &Service{
		engine:  engine,
		cfg:     cfg,
		local:   local,
		metrics: common.NewNoopIntelligenceMetrics(),
		log:     logging.NewNopLogger(),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(s)
	}
	s.batch = common.NewBatchProcessor[contract.Category, contract.AnswerResult](
		common.WithBatchName(batchName),
		common.WithMaxConcurrency(cfg.MaxConcurrency),
		common.WithItemTimeout(cfg.CategoryTimeout),
		common.WithBatchMetrics(s.metrics),
		common.WithBatchLogger(common.NewLoggerAdapter(s.log)),
	)
	return s, nil
}

// AnalyzeContract runs the full pipeline. A category whose extraction fails
// or times out resolves to the no-answer sentinel; the analysis itself only
// fails on invalid input, an unreadable object or a cancelled context.
func (s *Service) AnalyzeContract(ctx context.Context, req AnalyzeRequest) (*contract.ContractAnalysis, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	text, err := s.resolveText(ctx, req)
	if err != nil {
		return nil, err
	}

	ctype := clause_qa.DetectContractType(text)
	categories := req.Categories
	if len(categories) == 0 {
		categories = clause_qa.RelevantCategories(ctype)
	}

	answers, err := s.answerAll(ctx, text, categories)
	if err != nil {
		return nil, err
	}

	riskStart := time.Now()
	risk := clause_qa.AssessRisks(text, answers)
	s.metrics.RecordRiskAssessment(ctx, string(risk.OverallRisk), float64(time.Since(riskStart).Microseconds())/1000)

	result := &contract.ContractAnalysis{
		ID:              s.newID(),
		ContractType:    ctype,
		Answers:         answers,
		RiskAssessment:  risk,
		Recommendations: clause_qa.Recommendations(ctype, risk),
		Timestamp:       s.now().UTC(),
	}
	if req.Enhance {
		result.Enhancement = s.enhance(ctx, text, req.AnalysisType, ctype)
	}
	s.persist(ctx, result)

	s.log.Info("contract analyzed",
		logging.String("analysis_id", result.ID),
		logging.String("contract_type", string(ctype)),
		logging.Int("categories", len(categories)),
		logging.String("risk", string(risk.OverallRisk)),
		logging.Bool("enhanced", result.Enhancement != nil))
	return result, nil
}

// AskQuestion answers a free-form question on the whole text.
func (s *Service) AskQuestion(ctx context.Context, text, question string) (contract.AnswerResult, error) {
	if strings.TrimSpace(question) == "" {
		return contract.AnswerResult{}, errors.New(errors.ErrCodeQuestionEmpty, "question must not be empty")
	}
	if strings.TrimSpace(text) == "" {
		return contract.AnswerResult{}, errors.New(errors.ErrCodeContractTextEmpty, "contract text is empty")
	}
	res, err := s.engine.AskQuestion(ctx, text, question)
	if err != nil {
		return contract.AnswerResult{}, errors.Wrap(err, errors.ErrCodeAIInferenceFailed, "answer question")
	}
	return res, nil
}

// DetectResult is the outcome of DetectContractType.
type DetectResult struct {
	ContractType       contract.ContractType `json:"contract_type"`
	RelevantCategories []contract.Category   `json:"relevant_categories"`
}

// DetectContractType classifies text without running the span model.
func (s *Service) DetectContractType(text string) (DetectResult, error) {
	if strings.TrimSpace(text) == "" {
		return DetectResult{}, errors.New(errors.ErrCodeContractTextEmpty, "contract text is empty")
	}
	t := clause_qa.DetectContractType(text)
	return DetectResult{ContractType: t, RelevantCategories: clause_qa.RelevantCategories(t)}, nil
}

// GetAnalysis loads a persisted analysis from the object store, falling
// back to the history index.
func (s *Service) GetAnalysis(ctx context.Context, id string) (*contract.ContractAnalysis, error) {
	if s.store == nil && s.history == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "analysis persistence not configured")
	}
	if strings.TrimSpace(id) == "" {
		return nil, errors.InvalidParam("analysis id is required")
	}
	if s.store == nil {
		return s.history.Get(ctx, id)
	}
	a, err := s.store.GetAnalysis(ctx, id)
	if err != nil && s.history != nil && errors.IsNotFound(err) {
		return s.history.Get(ctx, id)
	}
	return a, err
}

// ListAnalyses pages through the history index.
func (s *Service) ListAnalyses(ctx context.Context, f contract.AnalysisFilter) (*AnalysisPage, error) {
	if s.history == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "analysis history not configured")
	}
	if err := f.Normalize(); err != nil {
		return nil, err
	}
	items, total, err := s.history.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &AnalysisPage{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// SearchClauses finds extracted answers across indexed analyses.
func (s *Service) SearchClauses(ctx context.Context, q contract.ClauseQuery) (*contract.ClauseSearchResult, error) {
	if s.clauses == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "clause search not configured")
	}
	if err := q.Normalize(); err != nil {
		return nil, err
	}
	return s.clauses.Search(ctx, q)
}

// EnhancementAvailable reports whether Enhance requests can be honoured.
func (s *Service) EnhancementAvailable() bool {
	return s.enhancer != nil && s.enhancer.Available()
}

// Shutdown waits for in-flight batches.
func (s *Service) Shutdown(ctx context.Context) error { return s.batch.Shutdown(ctx) }

func (s *Service) resolveText(ctx context.Context, req AnalyzeRequest) (string, error) {
	if req.ObjectKey == "" {
		return req.Text, nil
	}
	if s.store == nil {
		return "", errors.New(errors.ErrCodeFeatureDisabled, "contract store not configured")
	}
	text, err := s.store.GetContractText(ctx, req.ObjectKey)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New(errors.ErrCodeContractTextEmpty, "contract text is empty").WithDetail("key=" + req.ObjectKey)
	}
	return text, nil
}

func (s *Service) answerAll(ctx context.Context, text string, categories []contract.Category) (map[contract.Category]contract.AnswerResult, error) {
	digest := textDigest(text)
	answers := make(map[contract.Category]contract.AnswerResult, len(categories))
	seen := make(map[contract.Category]bool, len(categories))
	var misses []contract.Category
	for _, c := range categories {
		if seen[c] {
			continue
		}
		seen[c] = true
		if res, ok := s.lookup(ctx, s.cacheKey(digest, c)); ok {
			answers[c] = res
			continue
		}
		misses = append(misses, c)
	}
	if len(misses) == 0 {
		return answers, nil
	}

	br, err := s.batch.Process(ctx, misses, func(ictx context.Context, c contract.Category) (contract.AnswerResult, error) {
		return s.engine.AnswerCategory(ictx, text, c)
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "category extraction rejected")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "analysis cancelled")
	}

	for i, item := range br.Results {
		c := misses[i]
		if item == nil || item.Status != common.ItemStatusSuccess {
			var cause error
			status := "missing"
			if item != nil {
				cause, status = item.Error, item.Status.String()
			}
			s.log.Warn("category extraction failed, using sentinel",
				logging.String("category", string(c)),
				logging.String("status", status),
				logging.Err(cause))
			answers[c] = sentinelFor(c)
			continue
		}
		answers[c] = item.Result
		s.remember(ctx, s.cacheKey(digest, c), item.Result)
	}
	return answers, nil
}

func (s *Service) lookup(ctx context.Context, key string) (contract.AnswerResult, bool) {
	if res, ok := s.local.Get(key); ok {
		s.metrics.RecordCacheAccess(ctx, true, localCacheName)
		return res, true
	}
	s.metrics.RecordCacheAccess(ctx, false, localCacheName)
	if s.shared == nil {
		return contract.AnswerResult{}, false
	}
	res, ok, err := s.shared.Get(ctx, key)
	if err != nil {
		s.log.Warn("shared answer cache read failed", logging.Err(err))
		return contract.AnswerResult{}, false
	}
	if ok {
		s.local.Add(key, res)
	}
	return res, ok
}

// remember fills both cache levels.
func (s *Service) remember(ctx context.Context, key string, res contract.AnswerResult) {
	s.local.Add(key, res)
	if s.shared == nil {
		return
	}
	if err := s.shared.Put(ctx, key, res); err != nil {
		s.log.Warn("shared answer cache write failed", logging.Err(err))
	}
}

func (s *Service) enhance(ctx context.Context, text string, t contract.AnalysisType, ct contract.ContractType) *contract.Enhancement {
	if !s.EnhancementAvailable() {
		s.log.Debug("enhancement requested but not configured")
		return nil
	}
	enh, err := s.enhancer.Enhance(ctx, text, t, ct)
	if err != nil {
		s.log.Warn("enhancement failed, continuing without it", logging.Err(err))
		return nil
	}
	return enh
}

func (s *Service) persist(ctx context.Context, a *contract.ContractAnalysis) {
	if !s.cfg.PersistAnalyses {
		return
	}
	if s.store != nil {
		if err := s.store.PutAnalysis(ctx, a); err != nil {
			s.log.Warn("persist analysis failed", logging.String("analysis_id", a.ID), logging.Err(err))
		}
	}
	if s.history != nil {
		if err := s.history.Record(ctx, a); err != nil {
			s.log.Warn("record analysis history failed", logging.String("analysis_id", a.ID), logging.Err(err))
		}
	}
	if s.clauses != nil {
		if err := s.clauses.IndexAnalysis(ctx, a); err != nil {
			s.log.Warn("index clauses failed", logging.String("analysis_id", a.ID), logging.Err(err))
		}
	}
}

func (s *Service) cacheKey(digest string, c contract.Category) string {
	return digest + ":" + string(c) + ":" + s.cfg.ModelID
}

func textDigest(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func sentinelFor(c contract.Category) contract.AnswerResult {
	q := ""
	if spec, ok := clause_qa.LookupCategory(c); ok && len(spec.Questions) > 0 {
		q = spec.Questions[0]
	}
	return contract.NoAnswer(q)
}

//Personal.AI order the ending
