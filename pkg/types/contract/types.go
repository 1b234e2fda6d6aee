// Package contract holds the public data model shared by the ContractLens
// question-answering core, the analysis service and the API surfaces.
package contract

import (
	"sort"
	"strings"
	"time"

	"github.com/turtacn/ContractLens/pkg/errors"
)

// NoAnswerText is the canonical sentinel carried by an AnswerResult when no
// candidate span was accepted.
const NoAnswerText = "No answer found"

// Category is a semantic legal-clause topic with its own question phrasings
// and keyword table.
type Category string

const (
	CategoryGoverningLaw         Category = "governing_law"
	CategoryTermination          Category = "termination"
	CategoryLiability            Category = "liability"
	CategoryPaymentTerms         Category = "payment_terms"
	CategoryIntellectualProperty Category = "intellectual_property"
	CategoryConfidentiality      Category = "confidentiality"
	CategoryForceMajeure         Category = "force_majeure"
	CategoryWarranty             Category = "warranty"
	CategoryDisputeResolution    Category = "dispute_resolution"
	CategoryRenewal              Category = "renewal"
	CategoryDataPrivacy          Category = "data_privacy"
	CategoryAppPermissions       Category = "app_permissions"
	CategorySubscriptionTerms    Category = "subscription_terms"
	CategoryUserContent          Category = "user_content"
)

var allCategories = []Category{
	CategoryGoverningLaw,
	CategoryTermination,
	CategoryLiability,
	CategoryPaymentTerms,
	CategoryIntellectualProperty,
	CategoryConfidentiality,
	CategoryForceMajeure,
	CategoryWarranty,
	CategoryDisputeResolution,
	CategoryRenewal,
	CategoryDataPrivacy,
	CategoryAppPermissions,
	CategorySubscriptionTerms,
	CategoryUserContent,
}

// AllCategories returns every supported category in canonical order.
func AllCategories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

func (c Category) String() string { return string(c) }

// IsValid reports whether c is one of the supported categories.
func (c Category) IsValid() bool {
	for _, known := range allCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory converts user input such as "Governing Law" or
// "governing-law" into a Category.
func ParseCategory(s string) (Category, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	c := Category(norm)
	if !c.IsValid() {
		return "", errors.New(errors.ErrCodeUnknownCategory, "unknown question category").WithDetail("category=" + s)
	}
	return c, nil
}

// ContractType is the coarse document type used to pick relevant categories.
type ContractType string

const (
	ContractTypeAppAgreement     ContractType = "app_agreement"
	ContractTypeEmployment       ContractType = "employment"
	ContractTypeVendorSupply     ContractType = "vendor_supply"
	ContractTypeServiceAgreement ContractType = "service_agreement"
	ContractTypeGeneral          ContractType = "general_contract"
)

// AnswerResult is the outcome of answering one category against one contract.
type AnswerResult struct {
	Answer       string  `json:"answer"`
	Confidence   float64 `json:"confidence"`
	QuestionUsed string  `json:"question_used"`
}

// NoAnswer returns the sentinel result for question.
func NoAnswer(question string) AnswerResult {
	return AnswerResult{Answer: NoAnswerText, Confidence: 0, QuestionUsed: question}
}

// Found reports whether the result carries an extracted answer.
func (r AnswerResult) Found() bool {
	return r.Answer != NoAnswerText && r.Confidence > 0
}

// RiskLevel represents the overall risk assessment level.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// RiskAssessment summarises keyword-driven risk findings for a contract.
type RiskAssessment struct {
	OverallRisk RiskLevel `json:"overall_risk"`
	RiskScore   int       `json:"risk_score"`
	HighRisk    []string  `json:"high_risk"`
	MediumRisk  []string  `json:"medium_risk"`
	LowRisk     []string  `json:"low_risk"`
	RedFlags    []string  `json:"red_flags"`
}

// AnalysisType selects the prompt used by the optional LLM enhancer.
type AnalysisType string

const (
	AnalysisComprehensive    AnalysisType = "comprehensive"
	AnalysisRiskAssessment   AnalysisType = "risk_assessment"
	AnalysisAppSpecific      AnalysisType = "app_specific"
	AnalysisSimpleSummary    AnalysisType = "simple_summary"
	AnalysisRiskHighlighting AnalysisType = "risk_highlighting"
)

// Enhancement is the free-text output of the optional LLM enhancer.
type Enhancement struct {
	Analysis  string    `json:"analysis"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
	Enhanced  bool      `json:"enhanced"`
}

// ContractAnalysis is the aggregated result of a full contract analysis.
type ContractAnalysis struct {
	ID              string                    `json:"id"`
	ContractType    ContractType              `json:"contract_type"`
	Answers         map[Category]AnswerResult `json:"cuad_analysis"`
	RiskAssessment  RiskAssessment            `json:"risk_assessment"`
	Enhancement     *Enhancement              `json:"optional_enhancement,omitempty"`
	Recommendations []string                  `json:"recommendations"`
	Timestamp       time.Time                 `json:"timestamp"`
}

// AnalysisSummary is one row of the analysis history index.
type AnalysisSummary struct {
	ID           string       `json:"id"`
	ContractType ContractType `json:"contract_type"`
	OverallRisk  RiskLevel    `json:"overall_risk"`
	RiskScore    int          `json:"risk_score"`
	RedFlags     int          `json:"red_flags"`
	Answered     int          `json:"answered"`
	Categories   int          `json:"categories"`
	Enhanced     bool         `json:"enhanced"`
	Timestamp    time.Time    `json:"timestamp"`
}

// Summarize projects a into its history row.
func Summarize(a *ContractAnalysis) AnalysisSummary {
	s := AnalysisSummary{
		ID:           a.ID,
		ContractType: a.ContractType,
		OverallRisk:  a.RiskAssessment.OverallRisk,
		RiskScore:    a.RiskAssessment.RiskScore,
		RedFlags:     len(a.RiskAssessment.RedFlags),
		Categories:   len(a.Answers),
		Enhanced:     a.Enhancement != nil && a.Enhancement.Enhanced,
		Timestamp:    a.Timestamp,
	}
	for _, r := range a.Answers {
		if r.Found() {
			s.Answered++
		}
	}
	return s
}

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// AnalysisFilter narrows a history listing. Zero fields match everything.
type AnalysisFilter struct {
	ContractType ContractType `json:"contract_type,omitempty"`
	Risk         RiskLevel    `json:"risk,omitempty"`
	Since        time.Time    `json:"since,omitempty"`
	Limit        int          `json:"limit,omitempty"`
	Offset       int          `json:"offset,omitempty"`
}

// Normalize clamps paging and validates the enum fields.
func (f *AnalysisFilter) Normalize() error {
	if err := checkEnums(f.Risk, f.ContractType); err != nil {
		return err
	}
	if f.Offset < 0 {
		return errors.InvalidParam("offset must not be negative")
	}
	if f.Limit <= 0 {
		f.Limit = DefaultHistoryLimit
	}
	if f.Limit > MaxHistoryLimit {
		f.Limit = MaxHistoryLimit
	}
	return nil
}

func checkEnums(risk RiskLevel, ct ContractType) error {
	switch risk {
	case "", RiskLow, RiskMedium, RiskHigh:
	default:
		return errors.InvalidParam("risk must be LOW, MEDIUM or HIGH").WithDetail("risk=" + string(risk))
	}
	switch ct {
	case "", ContractTypeAppAgreement, ContractTypeEmployment, ContractTypeVendorSupply,
		ContractTypeServiceAgreement, ContractTypeGeneral:
	default:
		return errors.InvalidParam("unknown contract type").WithDetail("contract_type=" + string(ct))
	}
	return nil
}

const (
	DefaultClauseLimit = 20
	MaxClauseLimit     = 100
)

// ClauseQuery searches extracted answers across recorded analyses. Text is
// matched against the answer span; the other fields are exact filters.
type ClauseQuery struct {
	Text          string       `json:"text,omitempty"`
	Category      Category     `json:"category,omitempty"`
	ContractType  ContractType `json:"contract_type,omitempty"`
	Risk          RiskLevel    `json:"risk,omitempty"`
	MinConfidence float64      `json:"min_confidence,omitempty"`
	Limit         int          `json:"limit,omitempty"`
	Offset        int          `json:"offset,omitempty"`
}

// Normalize clamps paging and rejects unknown enum values. A query with
// neither text nor category is rejected: it would page the whole index.
func (q *ClauseQuery) Normalize() error {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" && q.Category == "" {
		return errors.InvalidParam("clause search needs text or a category")
	}
	if q.Category != "" && !q.Category.IsValid() {
		return errors.New(errors.ErrCodeUnknownCategory, "unknown question category").WithDetail("category=" + string(q.Category))
	}
	if err := checkEnums(q.Risk, q.ContractType); err != nil {
		return err
	}
	if q.MinConfidence < 0 || q.MinConfidence > 1 {
		return errors.InvalidParam("min_confidence must be within [0, 1]")
	}
	if q.Offset < 0 {
		return errors.InvalidParam("offset must not be negative")
	}
	if q.Limit <= 0 {
		q.Limit = DefaultClauseLimit
	}
	if q.Limit > MaxClauseLimit {
		q.Limit = MaxClauseLimit
	}
	return nil
}

// ClauseHit is one indexed answer span.
type ClauseHit struct {
	AnalysisID   string       `json:"analysis_id"`
	Category     Category     `json:"category"`
	Answer       string       `json:"answer"`
	Confidence   float64      `json:"confidence"`
	ContractType ContractType `json:"contract_type"`
	OverallRisk  RiskLevel    `json:"overall_risk"`
	AnalyzedAt   time.Time    `json:"analyzed_at"`
	Score        float64      `json:"score,omitempty"`
	Highlights   []string     `json:"highlights,omitempty"`
}

// ClauseSearchResult is one page of clause hits.
type ClauseSearchResult struct {
	Hits   []ClauseHit `json:"hits"`
	Total  int64       `json:"total"`
	TookMs int64       `json:"took_ms"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// Clauses flattens the found answers of a into index documents, sorted by
// category. Sentinel answers are skipped.
func Clauses(a *ContractAnalysis) []ClauseHit {
	out := make([]ClauseHit, 0, len(a.Answers))
	for c, res := range a.Answers {
		if !res.Found() {
			continue
		}
		out = append(out, ClauseHit{
			AnalysisID:   a.ID,
			Category:     c,
			Answer:       res.Answer,
			Confidence:   res.Confidence,
			ContractType: a.ContractType,
			OverallRisk:  a.RiskAssessment.OverallRisk,
			AnalyzedAt:   a.Timestamp,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

//Personal.AI order the ending
