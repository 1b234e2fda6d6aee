package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/ContractLens/internal/application/analysis"
	"github.com/turtacn/ContractLens/pkg/types/contract"
)

var riskColors = map[contract.RiskLevel]color.Attribute{
	contract.RiskHigh:   color.FgRed,
	contract.RiskMedium: color.FgYellow,
	contract.RiskLow:    color.FgGreen,
}

func newAnalyzeCmd() *cobra.Command {
	var (
		categories   []string
		objectKey    string
		enhance      bool
		analysisType string
		async        bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [file|-]",
		Short: "Run a full clause analysis over a contract",
		Long: "Detects the contract type, answers every relevant CUAD category, scores risk\n" +
			"and prints recommendations. Reads the contract from a file, stdin, or an\n" +
			"object key in the configured store (--object-key).",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			req := analysis.AnalyzeRequest{
				ObjectKey:    objectKey,
				Enhance:      enhance,
				AnalysisType: contract.AnalysisType(analysisType),
			}
			for _, raw := range categories {
				c, err := contract.ParseCategory(raw)
				if err != nil {
					return err
				}
				req.Categories = append(req.Categories, c)
			}
			if objectKey == "" {
				var path string
				if len(args) > 0 {
					path = args[0]
				}
				if req.Text, err = readInput(cmd, path); err != nil {
					return err
				}
			}

			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()
			backend, err := cliCtx.deps.Backend(ctx, cliCtx)
			if err != nil {
				return err
			}
			defer backend.Close()

			if async {
				ticket, err := backend.SubmitJob(ctx, req)
				if err != nil {
					return err
				}
				return PrintResult(cmd, ticketView{ticket})
			}
			res, err := backend.Analyze(ctx, req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, analysisView{res})
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&categories, "categories", nil, "categories to answer (default: detected from the contract type)")
	f.StringVar(&objectKey, "object-key", "", "read the contract from the object store instead of a file")
	f.BoolVar(&enhance, "enhance", false, "request the optional LLM review")
	f.StringVar(&analysisType, "analysis-type", string(contract.AnalysisComprehensive), "LLM review style (comprehensive, risk_assessment, app_specific, simple_summary, risk_highlighting)")
	f.BoolVar(&async, "async", false, "queue the analysis as a job and print the ticket (requires --server)")
	return cmd
}

// analysisView renders a ContractAnalysis for the terminal. JSON output
// uses the embedded analysis as is.
type analysisView struct {
	*contract.ContractAnalysis
}

func (v analysisView) sortedCategories() []contract.Category {
	cats := make([]contract.Category, 0, len(v.Answers))
	for c := range v.Answers {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

func (v analysisView) TableHeaders() []string {
	return []string{"CATEGORY", "CONFIDENCE", "ANSWER"}
}

func (v analysisView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Answers))
	for _, c := range v.sortedCategories() {
		a := v.Answers[c]
		rows = append(rows, []string{string(c), strconv.FormatFloat(a.Confidence, 'f', 2, 64), a.Answer})
	}
	return rows
}

func (v analysisView) RenderText(colored bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analysis %s\n", v.ID)
	fmt.Fprintf(&sb, "Contract type: %s\n", v.ContractType)
	fmt.Fprintf(&sb, "Overall risk:  %s (score %d)\n\n", paintRisk(v.RiskAssessment.OverallRisk, colored), v.RiskAssessment.RiskScore)

	sb.WriteString(FormatTable(v.TableHeaders(), v.TableRows()))

	if len(v.RiskAssessment.RedFlags) > 0 {
		sb.WriteString("\nRed flags:\n")
		for _, f := range v.RiskAssessment.RedFlags {
			fmt.Fprintf(&sb, "  ! %s\n", f)
		}
	}
	if len(v.Recommendations) > 0 {
		sb.WriteString("\nRecommendations:\n")
		for _, r := range v.Recommendations {
			fmt.Fprintf(&sb, "  - %s\n", r)
		}
	}
	if e := v.Enhancement; e != nil {
		fmt.Fprintf(&sb, "\nLLM review (%s):\n%s\n", e.Model, e.Analysis)
	}
	return sb.String()
}

type ticketView struct {
	*analysis.JobTicket
}

func (v ticketView) RenderText(bool) string {
	return fmt.Sprintf("Queued job %s on %s at %s\n", v.JobID, v.Topic, v.SubmittedAt.Format("2006-01-02 15:04:05"))
}

// paintRisk colors level regardless of terminal detection; callers decide.
func paintRisk(level contract.RiskLevel, enabled bool) string {
	attr, ok := riskColors[level]
	if !enabled || !ok {
		return string(level)
	}
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(level)
}

//Personal.AI order the ending
