package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <snapshot-id>",
	Short: "Recreate a session from a snapshot",
	Long: `Create a fresh session with the pane layout recorded in the snapshot.
The snapshot's captured text is informational only and is never typed back
into the new panes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			sess, err := a.Orchestrator.Restore(ctx, args[0])
			if err != nil {
				return err
			}
			st := a.Styles
			fmt.Println(st.Success.Render("♡ session restored"))
			fmt.Printf("%s %s\n", st.Header.Render("Session:"), st.Name.Render(sess.Name))
			fmt.Printf("%s %s, %d agents\n", st.Header.Render("Mode:"), sess.Mode, sess.AgentCount)
			if attach, err := a.Orchestrator.AttachCommand(sess.Name); err == nil {
				fmt.Printf("%s %s\n", st.Header.Render("Attach:"), st.Muted.Render(attach))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}
