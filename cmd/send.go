package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <session> <role> <text>...",
	Short: "Send text to an agent's pane",
	Long: `Send text to the pane holding the given role, followed by a newline.
The text is delivered literally; it is never interpreted as key names.

  kawaimux send kawaii_pair driver "let's refactor the parser"`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			return a.Orchestrator.Send(ctx, args[0], args[1], strings.Join(args[2:], " "))
		})
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
