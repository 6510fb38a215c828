package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var importName string

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Create a session from an exported record",
	Long: `Read an export file and create a fresh live session with the same
mode and pane layout. Without --name the session is named after the
exported one with an _imported suffix.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			sess, err := a.Orchestrator.Import(ctx, args[0], importName)
			if err != nil {
				return err
			}
			st := a.Styles
			fmt.Println(st.Success.Render("♡ session imported"))
			fmt.Printf("%s %s\n", st.Header.Render("Name:"), st.Name.Render(sess.Name))
			fmt.Printf("%s %s with %d agents\n", st.Header.Render("Mode:"), sess.Mode, sess.AgentCount)
			return nil
		})
	},
}

func init() {
	importCmd.Flags().StringVar(&importName, "name", "", "name for the imported session")
	rootCmd.AddCommand(importCmd)
}
