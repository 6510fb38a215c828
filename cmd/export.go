package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <session> <path>",
	Short: "Export a session record to a file",
	Long: `Write the session's record, including its pane tree, to a JSON file.
The file can recreate the session later via import, here or on another
machine.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.Orchestrator.Export(args[0], args[1]); err != nil {
				return err
			}
			st := a.Styles
			fmt.Println(st.Success.Render("♡ session exported"))
			fmt.Printf("%s %s\n", st.Header.Render("File:"), st.Name.Render(args[1]))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
