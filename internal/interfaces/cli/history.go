package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/ContractLens/internal/application/analysis"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

func newHistoryCmd() *cobra.Command {
	var (
		risk   string
		ctype  string
		since  time.Duration
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded analyses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			f := contract.AnalysisFilter{
				Risk:         contract.RiskLevel(strings.ToUpper(risk)),
				ContractType: contract.ContractType(ctype),
				Limit:        limit,
				Offset:       offset,
			}
			if since > 0 {
				f.Since = time.Now().Add(-since).UTC()
			}
			if err := f.Normalize(); err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()
			backend, err := cliCtx.deps.Backend(ctx, cliCtx)
			if err != nil {
				return err
			}
			defer backend.Close()

			page, err := backend.History(ctx, f)
			if err != nil {
				return err
			}
			return PrintResult(cmd, historyView{page})
		},
	}

	cmd.Flags().StringVar(&risk, "risk", "", "only analyses with this overall risk (low|medium|high)")
	cmd.Flags().StringVar(&ctype, "type", "", "only analyses of this contract type")
	cmd.Flags().DurationVar(&since, "since", 0, "only analyses newer than this age, e.g. 24h")
	cmd.Flags().IntVar(&limit, "limit", 20, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

type historyView struct {
	*analysis.AnalysisPage
}

func (v historyView) TableHeaders() []string {
	return []string{"ID", "TYPE", "RISK", "SCORE", "ANSWERED", "ANALYZED AT"}
}

func (v historyView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Items))
	for _, s := range v.Items {
		rows = append(rows, []string{
			s.ID,
			string(s.ContractType),
			string(s.OverallRisk),
			strconv.Itoa(s.RiskScore),
			fmt.Sprintf("%d/%d", s.Answered, s.Categories),
			s.Timestamp.Format("2006-01-02 15:04:05"),
		})
	}
	return rows
}

func (v historyView) RenderText(bool) string {
	if len(v.Items) == 0 {
		return "No analyses recorded.\n"
	}
	var sb strings.Builder
	sb.WriteString(FormatTable(v.TableHeaders(), v.TableRows()))
	fmt.Fprintf(&sb, "\nShowing %d-%d of %d\n", v.Offset+1, v.Offset+len(v.Items), v.Total)
	return sb.String()
}

//Personal.AI order the ending
