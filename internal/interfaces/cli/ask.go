package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/ContractLens/pkg/types/contract"
)

func newAskCmd() *cobra.Command {
	var question string

	cmd := &cobra.Command{
		Use:   "ask [file|-] --question TEXT",
		Short: "Ask one free-form question about a contract",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			var path string
			if len(args) > 0 {
				path = args[0]
			}
			text, err := readInput(cmd, path)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()
			backend, err := cliCtx.deps.Backend(ctx, cliCtx)
			if err != nil {
				return err
			}
			defer backend.Close()

			res, err := backend.Ask(ctx, text, question)
			if err != nil {
				return err
			}
			return PrintResult(cmd, answerView(res))
		},
	}
	cmd.Flags().StringVarP(&question, "question", "q", "", "question to ask")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}

type answerView contract.AnswerResult

func (v answerView) RenderText(bool) string {
	return fmt.Sprintf("Q: %s\nA: %s\nConfidence: %.2f\n", v.QuestionUsed, v.Answer, v.Confidence)
}

//Personal.AI order the ending
