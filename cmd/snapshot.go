package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <session>",
	Short: "Capture a snapshot of a live session",
	Long: `Capture every pane of the session and persist the result as an
immutable snapshot. Snapshot ids are <session>-<seq> with a per-session
monotonic sequence.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			snap, err := a.Orchestrator.Snapshot(ctx, args[0])
			if err != nil {
				return err
			}
			st := a.Styles
			fmt.Println(st.Success.Render("♡ snapshot captured"))
			fmt.Printf("%s %s\n", st.Header.Render("Id:"), st.Name.Render(snap.ID))
			fmt.Printf("%s %s\n", st.Header.Render("Captured:"), snap.CapturedAt.Format(time.RFC3339))
			return nil
		})
	},
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots [session]",
	Short: "List snapshots, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			session := ""
			if len(args) == 1 {
				session = args[0]
			}
			snaps, err := a.Orchestrator.Snapshots.List(session)
			if err != nil {
				return err
			}
			st := a.Styles
			if len(snaps) == 0 {
				fmt.Println(st.Muted.Render("no snapshots"))
				return nil
			}
			for _, s := range snaps {
				fmt.Printf("%s  %-12s %d agents  %s\n",
					st.Name.Render(fmt.Sprintf("%-28s", s.ID)),
					s.Mode, s.AgentCount,
					st.Muted.Render(s.CapturedAt.Format(time.RFC3339)))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(snapshotsCmd)
}
