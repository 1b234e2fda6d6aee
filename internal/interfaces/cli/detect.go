package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/ContractLens/internal/application/analysis"
)

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect [file|-]",
		Short: "Classify a contract and list the categories it is checked for",
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

			res, err := backend.Detect(ctx, text)
			if err != nil {
				return err
			}
			return PrintResult(cmd, detectView(res))
		},
	}
}

type detectView analysis.DetectResult

func (v detectView) RenderText(bool) string {
	names := make([]string, len(v.RelevantCategories))
	for i, c := range v.RelevantCategories {
		names[i] = string(c)
	}
	return fmt.Sprintf("Contract type: %s\nCategories:    %s\n", v.ContractType, strings.Join(names, ", "))
}

//Personal.AI order the ending
