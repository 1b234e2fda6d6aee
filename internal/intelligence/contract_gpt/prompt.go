package contract_gpt

import (
	"bytes"
	"strings"
	"sync"
	"text/template"

	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

// SystemInstruction frames every enhancement request.
const SystemInstruction = "You are an expert contract attorney with specialization in technology agreements, " +
	"app terms of service, and risk assessment. Provide clear, accurate, and practical analysis."

// PromptData is the template input.
type PromptData struct {
	ContractText string
	ContractType contract.ContractType
}

var builtinTemplates = map[contract.AnalysisType]string{
	contract.AnalysisComprehensive: `Analyze this contract comprehensively. Provide:
1. Key contract terms summary
2. Risk assessment (High/Medium/Low risks)
3. Red flags or concerning clauses
4. Recommendations for negotiation
5. Compliance considerations
{{if .ContractType}}
The contract was classified as: {{.ContractType}}
{{end}}
Contract:
{{.ContractText}}`,

	contract.AnalysisRiskAssessment: `Perform a detailed risk assessment of this contract. Identify:
1. High-risk clauses that could cause significant harm
2. Medium-risk terms that need attention
3. Legal red flags or unusual provisions
4. Financial risks and exposure
5. Operational risks and constraints

Contract:
{{.ContractText}}`,

	contract.AnalysisAppSpecific: `This appears to be an app or software agreement. Analyze specifically:
1. Data privacy and user rights
2. App permissions and device access
3. Content ownership and licensing
4. Subscription and billing terms
5. Platform-specific risks (iOS/Android)
6. GDPR/CCPA compliance issues

Contract:
{{.ContractText}}`,

	contract.AnalysisSimpleSummary: `Please provide a simple, easy-to-understand summary of this contract in plain English.

Focus on:
1. What type of contract this is
2. Key terms a normal person should know about
3. Main risks or concerns to be aware of
4. Important clauses to pay attention to
5. Overall recommendation (favorable/unfavorable/neutral)

Keep it conversational and simple, like explaining to a friend who has no legal background.

Contract:
{{.ContractText}}`,

	contract.AnalysisRiskHighlighting: `Analyze this contract and identify specific clauses that represent different risk levels.

Please provide a simple analysis in this format:

HIGH RISK CLAUSES:
- [specific clause text] - [why this is high risk]

MEDIUM RISK CLAUSES:
- [specific clause text] - [why this is medium risk]

LOW RISK/SAFE CLAUSES:
- [specific clause text] - [why this is safe/good]

Focus on:
- Liability limitations (high risk if unlimited, low risk if limited)
- Termination clauses (high risk if difficult, low risk if reasonable)
- Payment terms (medium risk if unclear, low risk if clear)
- Data handling (high risk if unlimited collection, low risk if limited)
- Warranty disclaimers (medium to high risk)

Contract:
{{.ContractText}}`,
}

// PromptManager holds the parsed templates. Custom templates registered with
// Register replace the builtin one for the same analysis type.
type PromptManager struct {
	mu        sync.RWMutex
	templates map[contract.AnalysisType]*template.Template
}

// NewPromptManager parses the builtin templates.
func NewPromptManager() (*PromptManager, error) {
	pm := &PromptManager{templates: make(map[contract.AnalysisType]*template.Template, len(builtinTemplates))}
	for t, src := range builtinTemplates {
		if err := pm.Register(t, src); err != nil {
			return nil, err
		}
	}
	return pm, nil
}

// Register parses src and stores it under t.
func (pm *PromptManager) Register(t contract.AnalysisType, src string) error {
	if t == "" {
		return errors.InvalidParam("analysis type is required")
	}
	tmpl, err := template.New(string(t)).Option("missingkey=zero").Parse(src)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeBadRequest, "invalid prompt template").WithDetail(string(t))
	}
	pm.mu.Lock()
	pm.templates[t] = tmpl
	pm.mu.Unlock()
	return nil
}

// Types lists the registered analysis types.
func (pm *PromptManager) Types() []contract.AnalysisType {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	out := make([]contract.AnalysisType, 0, len(pm.templates))
	for t := range pm.templates {
		out = append(out, t)
	}
	return out
}

// Render fills the template for t. Unknown types are rejected.
func (pm *PromptManager) Render(t contract.AnalysisType, data PromptData) (string, error) {
	pm.mu.RLock()
	tmpl, ok := pm.templates[t]
	pm.mu.RUnlock()
	if !ok {
		return "", errors.InvalidParam("unknown analysis type").WithDetail(string(t))
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "render prompt")
	}
	return strings.TrimSpace(buf.String()), nil
}

// truncateRunes cuts s to at most n runes. n <= 0 leaves s unchanged.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

//Personal.AI order the ending
