package clause_qa

import (
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

// CategorySpec holds the ordered question variants and keyword stems of one
// category.
type CategorySpec struct {
	Name      contract.Category `json:"name"`
	Questions []string          `json:"questions"`
	Keywords  []string          `json:"keywords"`
}

// categoryTable is never mutated after init. Accessors hand out copies.
var categoryTable = map[contract.Category]CategorySpec{
	contract.CategoryGoverningLaw: {
		Questions: []string{
			"What law governs this contract?",
			"Which state or country's laws apply to this agreement?",
			"Under what jurisdiction is this contract governed?",
			"What governing law clause is specified?",
		},
		Keywords: []string{"governing law", "governed by", "jurisdiction", "laws of", "state law"},
	},
	contract.CategoryTermination: {
		Questions: []string{
			"How can this contract be terminated?",
			"What are the termination conditions?",
			"Under what circumstances can the agreement end?",
			"What notice is required for termination?",
		},
		Keywords: []string{"terminat", "end", "expire", "breach", "notice"},
	},
	contract.CategoryLiability: {
		Questions: []string{
			"What are the liability limits?",
			"How much liability is capped at?",
			"What damages are excluded?",
			"What is the maximum liability amount?",
		},
		Keywords: []string{"liabilit", "damages", "limit", "cap", "exclude", "indemnif"},
	},
	contract.CategoryPaymentTerms: {
		Questions: []string{
			"What is the payment amount?",
			"When are payments due?",
			"What are the payment schedules?",
			"How much does the client pay?",
		},
		Keywords: []string{"pay", "fee", "cost", "price", "invoice", "billing"},
	},
	contract.CategoryIntellectualProperty: {
		Questions: []string{
			"Who owns the intellectual property?",
			"What are the IP ownership rules?",
			"Who retains rights to intellectual property?",
			"What IP provisions are included?",
		},
		Keywords: []string{"intellectual property", "IP", "copyright", "patent", "trademark", "proprietary"},
	},
	contract.CategoryConfidentiality: {
		Questions: []string{
			"How long must information be kept confidential?",
			"What confidentiality obligations exist?",
			"What information must be protected?",
			"What are the non-disclosure requirements?",
		},
		Keywords: []string{"confidential", "non-disclosure", "NDA", "proprietary", "secret"},
	},
	contract.CategoryForceMajeure: {
		Questions: []string{
			"What events constitute force majeure?",
			"What circumstances excuse performance?",
			"What natural disasters are covered?",
			"What uncontrollable events are included?",
		},
		Keywords: []string{"force majeure", "act of god", "natural disaster", "uncontrollable"},
	},
	contract.CategoryWarranty: {
		Questions: []string{
			"What warranty is provided?",
			"How long is the warranty period?",
			"What does the warranty cover?",
			"What warranty disclaimers exist?",
		},
		Keywords: []string{"warrant", "guarantee", "defect", "performance"},
	},
	contract.CategoryDisputeResolution: {
		Questions: []string{
			"How are disputes resolved?",
			"What dispute resolution process is required?",
			"Must disputes go to arbitration or court?",
			"Where are disputes resolved?",
		},
		Keywords: []string{"dispute", "arbitration", "litigation", "court", "mediation"},
	},
	contract.CategoryRenewal: {
		Questions: []string{
			"How does this contract renew?",
			"What are the renewal terms?",
			"Does the contract auto-renew?",
			"What notice is needed to prevent renewal?",
		},
		Keywords: []string{"renew", "extend", "automatic", "term", "continuation"},
	},
	contract.CategoryDataPrivacy: {
		Questions: []string{
			"What data privacy provisions exist?",
			"How is user data protected?",
			"What data collection rights are granted?",
			"What data retention policies apply?",
		},
		Keywords: []string{"data", "privacy", "personal information", "collection"},
	},
	contract.CategoryAppPermissions: {
		Questions: []string{
			"What app permissions are required?",
			"What device access is granted?",
			"What user information can be collected?",
			"What third-party integrations are allowed?",
		},
		Keywords: []string{"permission", "access", "device", "location", "camera"},
	},
	contract.CategorySubscriptionTerms: {
		Questions: []string{
			"What are the subscription terms?",
			"How much does the subscription cost?",
			"What auto-renewal policies exist?",
			"How can subscriptions be cancelled?",
		},
		Keywords: []string{"subscription", "billing", "auto-renew", "cancel"},
	},
	contract.CategoryUserContent: {
		Questions: []string{
			"Who owns user-generated content?",
			"What rights does the app have to user content?",
			"Can user content be shared or monetized?",
			"What content moderation policies exist?",
		},
		Keywords: []string{"user content", "user data", "upload", "share"},
	},
}

// sectionHeaders earn a one-off bonus when found in an upper-cased sentence.
var sectionHeaders = []string{
	"GOVERNING LAW", "TERMINATION", "LIABILITY", "PAYMENT", "INTELLECTUAL PROPERTY",
	"CONFIDENTIALITY", "FORCE MAJEURE", "WARRANTY", "DISPUTE", "RENEWAL",
}

// LookupCategory returns a copy of the table entry for c.
func LookupCategory(c contract.Category) (CategorySpec, bool) {
	spec, ok := categoryTable[c]
	if !ok {
		return CategorySpec{}, false
	}
	return CategorySpec{
		Name:      c,
		Questions: append([]string(nil), spec.Questions...),
		Keywords:  append([]string(nil), spec.Keywords...),
	}, true
}

// Categories lists every category spec in canonical order.
func Categories() []CategorySpec {
	all := contract.AllCategories()
	out := make([]CategorySpec, 0, len(all))
	for _, c := range all {
		if spec, ok := LookupCategory(c); ok {
			out = append(out, spec)
		}
	}
	return out
}

// questionsFor returns the shared variants slice for read-only use inside
// the package. An unknown category is asked verbatim.
func questionsFor(c contract.Category) []string {
	if spec, ok := categoryTable[c]; ok {
		return spec.Questions
	}
	return []string{string(c)}
}

func keywordsFor(c contract.Category) []string {
	return categoryTable[c].Keywords
}

//Personal.AI order the ending
