package clause_qa

import (
	"strings"

	"github.com/turtacn/ContractLens/pkg/types/contract"
)

type typeIndicators struct {
	kind       contract.ContractType
	indicators []string
}

// contractTypeOrder is checked top to bottom; the first type with any
// indicator present wins.
var contractTypeOrder = []typeIndicators{
	{contract.ContractTypeAppAgreement, []string{
		"app store", "mobile app", "application", "ios", "android",
		"terms of service", "privacy policy", "user agreement",
		"software license", "saas", "platform", "api",
	}},
	{contract.ContractTypeEmployment, []string{
		"employment", "employee", "employer", "salary", "wages",
		"benefits", "vacation", "sick leave", "non-compete",
	}},
	{contract.ContractTypeVendorSupply, []string{
		"supply", "vendor", "supplier", "purchase", "goods",
		"delivery", "procurement", "materials",
	}},
	{contract.ContractTypeServiceAgreement, []string{
		"service agreement", "consulting", "professional services",
		"statement of work", "sow",
	}},
}

var baseCategories = []contract.Category{
	contract.CategoryGoverningLaw,
	contract.CategoryTermination,
	contract.CategoryLiability,
	contract.CategoryConfidentiality,
}

var typeCategories = map[contract.ContractType][]contract.Category{
	contract.ContractTypeAppAgreement: {
		contract.CategoryDataPrivacy, contract.CategoryAppPermissions, contract.CategorySubscriptionTerms,
		contract.CategoryUserContent, contract.CategoryIntellectualProperty,
	},
	contract.ContractTypeEmployment: {
		contract.CategoryPaymentTerms, contract.CategoryIntellectualProperty, contract.CategoryTermination,
	},
	contract.ContractTypeVendorSupply: {
		contract.CategoryPaymentTerms, contract.CategoryLiability, contract.CategoryTermination,
	},
	contract.ContractTypeServiceAgreement: {
		contract.CategoryPaymentTerms, contract.CategoryIntellectualProperty, contract.CategoryLiability,
	},
}

// DetectContractType classifies text by substring indicators.
func DetectContractType(text string) contract.ContractType {
	lower := strings.ToLower(text)
	for _, t := range contractTypeOrder {
		for _, ind := range t.indicators {
			if strings.Contains(lower, ind) {
				return t.kind
			}
		}
	}
	return contract.ContractTypeGeneral
}

// RelevantCategories returns the base categories followed by the type
// specific ones, without duplicates.
func RelevantCategories(t contract.ContractType) []contract.Category {
	seen := make(map[contract.Category]bool, len(baseCategories)+5)
	out := make([]contract.Category, 0, len(baseCategories)+5)
	for _, list := range [][]contract.Category{baseCategories, typeCategories[t]} {
		for _, c := range list {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}

//Personal.AI order the ending
