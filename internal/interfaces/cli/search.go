package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/ContractLens/pkg/types/contract"
)

func newSearchCmd() *cobra.Command {
	var (
		category string
		ctype    string
		risk     string
		minConf  float64
		limit    int
		offset   int
	)

	cmd := &cobra.Command{
		Use:   "search [TEXT]",
		Short: "Search extracted clauses across recorded analyses",
		Example: `  contractlens search "binding arbitration"
  contractlens search --category governing_law --risk high`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			q := contract.ClauseQuery{
				ContractType:  contract.ContractType(ctype),
				Risk:          contract.RiskLevel(strings.ToUpper(risk)),
				MinConfidence: minConf,
				Limit:         limit,
				Offset:        offset,
			}
			if len(args) == 1 {
				q.Text = args[0]
			}
			if category != "" {
				if q.Category, err = contract.ParseCategory(category); err != nil {
					return err
				}
			}
			if err := q.Normalize(); err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()
			backend, err := cliCtx.deps.Backend(ctx, cliCtx)
			if err != nil {
				return err
			}
			defer backend.Close()

			res, err := backend.SearchClauses(ctx, q)
			if err != nil {
				return err
			}
			return PrintResult(cmd, clauseView{res})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "only answers of this category")
	cmd.Flags().StringVar(&ctype, "type", "", "only analyses of this contract type")
	cmd.Flags().StringVar(&risk, "risk", "", "only analyses with this overall risk (low|medium|high)")
	cmd.Flags().Float64Var(&minConf, "min-confidence", 0, "drop answers below this confidence")
	cmd.Flags().IntVar(&limit, "limit", contract.DefaultClauseLimit, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "hits to skip")
	return cmd
}

type clauseView struct {
	*contract.ClauseSearchResult
}

func (v clauseView) TableHeaders() []string {
	return []string{"ANALYSIS", "CATEGORY", "CONFIDENCE", "RISK", "ANSWER"}
}

func (v clauseView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Hits))
	for _, h := range v.Hits {
		rows = append(rows, []string{
			h.AnalysisID,
			string(h.Category),
			strconv.FormatFloat(h.Confidence, 'f', 2, 64),
			string(h.OverallRisk),
			h.Answer,
		})
	}
	return rows
}

func (v clauseView) RenderText(bool) string {
	if len(v.Hits) == 0 {
		return "No matching clauses.\n"
	}
	var sb strings.Builder
	sb.WriteString(FormatTable(v.TableHeaders(), v.TableRows()))
	fmt.Fprintf(&sb, "\nShowing %d-%d of %d (%d ms)\n", v.Offset+1, v.Offset+len(v.Hits), v.Total, v.TookMs)
	return sb.String()
}

//Personal.AI order the ending
