package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/ContractLens/internal/intelligence/clause_qa"
)

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the supported CUAD categories with their questions and keywords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return PrintResult(cmd, categoryList(clause_qa.Categories()))
		},
	}
}

type categoryList []clause_qa.CategorySpec

func (l categoryList) TableHeaders() []string {
	return []string{"CATEGORY", "KEYWORDS", "PRIMARY QUESTION"}
}

func (l categoryList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, spec := range l {
		var q string
		if len(spec.Questions) > 0 {
			q = spec.Questions[0]
		}
		rows = append(rows, []string{string(spec.Name), strings.Join(spec.Keywords, ","), q})
	}
	return rows
}

//Personal.AI order the ending
