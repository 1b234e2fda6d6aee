package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/ContractLens/internal/intelligence/eval"
	"github.com/turtacn/ContractLens/pkg/errors"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Inspect prediction files and run the reference sample clauses",
	}
	cmd.AddCommand(newEvalPredictionsCmd(), newEvalSamplesCmd())
	return cmd
}

func newEvalPredictionsCmd() *cobra.Command {
	var preview int
	cmd := &cobra.Command{
		Use:   "predictions <file>",
		Short: "Summarise a JSON prediction file (id to answer)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, errors.CodeInvalidParam, "cannot open predictions file").WithDetail(args[0])
			}
			defer f.Close()
			preds, err := eval.LoadPredictions(f)
			if err != nil {
				return err
			}
			return PrintResult(cmd, predictionsView{
				Stats:   eval.PredictionStats(preds),
				Preview: eval.Preview(preds, preview),
			})
		},
	}
	cmd.Flags().IntVar(&preview, "preview", 5, "number of predictions to show")
	return cmd
}

type predictionsView struct {
	Stats   eval.Stats          `json:"stats"`
	Preview []eval.PreviewEntry `json:"preview"`
}

func (v predictionsView) RenderText(bool) string {
	var sb strings.Builder
	s := v.Stats
	fmt.Fprintf(&sb, "Total predictions: %d\n", s.Total)
	fmt.Fprintf(&sb, "Answered:          %d (%.1f%%)\n", s.NonEmpty, s.AnswerRate)
	fmt.Fprintf(&sb, "Empty:             %d\n", s.Empty)
	if s.NonEmpty > 0 {
		fmt.Fprintf(&sb, "Answer words:      avg %.1f, min %d, max %d\n", s.AvgAnswerWords, s.MinAnswerWords, s.MaxAnswerWords)
	}
	if len(v.Preview) > 0 {
		sb.WriteString("\n")
		for _, p := range v.Preview {
			fmt.Fprintf(&sb, "%s: %s\n", p.ID, p.Answer)
		}
	}
	return sb.String()
}

func newEvalSamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "samples",
		Short: "Answer the built-in reference clauses with the argmax decoder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			baseline, release, err := cliCtx.deps.Baseline(ctx, cliCtx)
			if err != nil {
				return err
			}
			defer release()

			rep, err := eval.RunSamples(ctx, baseline, eval.SampleCases())
			if err != nil {
				return err
			}
			return PrintResult(cmd, reportView{rep})
		},
	}
}

type reportView struct {
	*eval.Report
}

func (v reportView) TableHeaders() []string {
	return []string{"CASE", "MATCH", "CONFIDENCE", "PREDICTED"}
}

func (v reportView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Results))
	for _, r := range v.Results {
		rows = append(rows, []string{
			r.Case.Name,
			strconv.FormatBool(r.Match),
			strconv.FormatFloat(r.Confidence, 'f', 3, 64),
			r.Predicted,
		})
	}
	return rows
}

func (v reportView) RenderText(bool) string {
	return FormatTable(v.TableHeaders(), v.TableRows()) +
		fmt.Sprintf("\nMatched %d/%d\n", v.Matched, len(v.Results))
}

//Personal.AI order the ending
