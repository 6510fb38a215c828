package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var killCmd = &cobra.Command{
	Use:   "kill <session>",
	Short: "Terminate a session",
	Long: `Kill the tmux session and mark its record terminated. The record and
any snapshots stay until cleanup removes them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.Orchestrator.Terminate(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println(a.Styles.Success.Render("♡ session terminated: " + args[0]))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(killCmd)
}
