package cmd

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
)

var attachCmd = &cobra.Command{
	Use:   "attach <session>",
	Short: "Attach to a live session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			attach, err := a.Orchestrator.AttachCommand(args[0])
			if err != nil {
				return err
			}
			parts := strings.Fields(attach)
			c := exec.CommandContext(ctx, parts[0], parts[1:]...)
			c.Stdin = os.Stdin
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			return c.Run()
		})
	},
	Args: cobra.ExactArgs(1),
}

func init() {
	rootCmd.AddCommand(attachCmd)
}
