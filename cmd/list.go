package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var flagListAll bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List known sessions",
	Long: `List sessions in creation order, reconciling the registry against the
sessions tmux actually reports first. Terminated sessions are hidden
unless --all is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			sessions, err := a.Orchestrator.List(ctx)
			if err != nil {
				return err
			}
			st := a.Styles
			shown := 0
			for _, s := range sessions {
				if !flagListAll && !s.State.IsLive() {
					continue
				}
				shown++
				line := fmt.Sprintf("%s  %-12s %d agents  %s  %s",
					st.Name.Render(fmt.Sprintf("%-24s", s.Name)),
					s.Mode, s.AgentCount, s.State,
					st.Muted.Render(s.CreatedAt.Format(time.RFC3339)))
				if s.Expired(time.Now()) && s.State.IsLive() {
					line += "  " + st.Warning.Render("(past intended duration)")
				}
				if len(s.SnapshotIDs) > 0 {
					line += fmt.Sprintf("  ♡ %d snapshot(s)", len(s.SnapshotIDs))
				}
				fmt.Println(line)
			}
			if shown == 0 {
				fmt.Println(st.Muted.Render("no sessions"))
			}
			return nil
		})
	},
}

func init() {
	listCmd.Flags().BoolVar(&flagListAll, "all", false, "include terminated sessions")
	rootCmd.AddCommand(listCmd)
}
