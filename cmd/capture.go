package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var captureCmd = &cobra.Command{
	Use:   "capture <session> <role>",
	Short: "Print the content of an agent's pane",
	Long: `Capture the visible content and scrollback of the pane holding the
given role, truncated to the configured trailing byte budget.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			out, err := a.Orchestrator.Capture(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)
}
