package clause_qa

import (
	"strings"

	"github.com/turtacn/ContractLens/pkg/types/contract"
)

const (
	unlimitedLiabilityScore = 30
	unclearGoverningScore   = 15
	highRiskTermScore       = 25
	mediumRiskTermScore     = 10
	redFlagScore            = 20

	highRiskThreshold   = 50
	mediumRiskThreshold = 25

	governingLawMinConfidence = 0.5
)

type riskTerm struct {
	term        string
	description string
}

var highRiskTerms = []riskTerm{
	{"no termination", "No clear termination rights"},
	{"perpetual", "Perpetual obligations or licenses"},
	{"exclusive", "Exclusive rights granted"},
	{"irrevocable", "Irrevocable commitments"},
	{"unlimited data", "Unlimited data collection rights"},
}

var mediumRiskTerms = []riskTerm{
	{"automatic renewal", "Automatic renewal clauses"},
	{"third party", "Third-party data sharing"},
	{"modify", "Unilateral modification rights"},
	{"arbitration", "Mandatory arbitration clauses"},
}

var redFlagTerms = []riskTerm{
	{"class action waiver", "Class action lawsuit waiver"},
	{"foreign jurisdiction", "Foreign jurisdiction governing law"},
	{"no warranty", "Complete warranty disclaimers"},
	{"unlimited access", "Unlimited device/data access"},
}

// AssessRisks scores text for risky language and weak category answers.
func AssessRisks(text string, answers map[contract.Category]contract.AnswerResult) contract.RiskAssessment {
	lower := strings.ToLower(text)
	r := contract.RiskAssessment{
		HighRisk:   []string{},
		MediumRisk: []string{},
		LowRisk:    []string{},
		RedFlags:   []string{},
	}

	if strings.Contains(lower, "unlimited") && strings.Contains(lower, "liability") {
		r.HighRisk = append(r.HighRisk, "Unlimited liability exposure")
		r.RiskScore += unlimitedLiabilityScore
	}
	if gl, ok := answers[contract.CategoryGoverningLaw]; ok && gl.Confidence < governingLawMinConfidence {
		r.MediumRisk = append(r.MediumRisk, "Unclear governing law provisions")
		r.RiskScore += unclearGoverningScore
	}

	r.HighRisk, r.RiskScore = matchTerms(lower, highRiskTerms, highRiskTermScore, r.HighRisk, r.RiskScore)
	r.MediumRisk, r.RiskScore = matchTerms(lower, mediumRiskTerms, mediumRiskTermScore, r.MediumRisk, r.RiskScore)
	r.RedFlags, r.RiskScore = matchTerms(lower, redFlagTerms, redFlagScore, r.RedFlags, r.RiskScore)

	r.OverallRisk = RiskLevelFor(r.RiskScore)
	return r
}

func matchTerms(lower string, terms []riskTerm, points int, found []string, score int) ([]string, int) {
	for _, t := range terms {
		if strings.Contains(lower, t.term) {
			found = append(found, t.description)
			score += points
		}
	}
	return found, score
}

// RiskLevelFor maps a risk score onto a level.
func RiskLevelFor(score int) contract.RiskLevel {
	switch {
	case score >= highRiskThreshold:
		return contract.RiskHigh
	case score >= mediumRiskThreshold:
		return contract.RiskMedium
	default:
		return contract.RiskLow
	}
}

// Recommendations derives reviewer advice from a risk assessment.
func Recommendations(t contract.ContractType, r contract.RiskAssessment) []string {
	recs := []string{}
	if r.OverallRisk == contract.RiskHigh {
		recs = append(recs,
			"HIGH RISK: Consider legal review before signing",
			"Negotiate liability limitations and termination rights")
	}
	if len(r.RedFlags) > 0 {
		recs = append(recs, "Red flags identified - detailed legal review recommended")
	}
	if t == contract.ContractTypeAppAgreement {
		recs = append(recs,
			"Review data privacy terms carefully",
			"Check app permission requirements",
			"Verify subscription cancellation process",
			"Understand content ownership rights")
	}
	if len(r.HighRisk) > 2 {
		recs = append(recs, "Consider negotiating high-risk terms before agreement")
	}
	return recs
}

//Personal.AI order the ending
