package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize known sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			st, err := a.Orchestrator.Stats(ctx)
			if err != nil {
				return err
			}
			styles := a.Styles
			fmt.Println(styles.Title.Render("🎀 kawaimux stats ♡"))
			fmt.Printf("%s %d (%d live)\n", styles.Header.Render("Sessions:"), st.Total, st.Live)
			fmt.Printf("%s %d\n", styles.Header.Render("Snapshots:"), st.Snapshots)

			modes := make([]string, 0, len(st.ByMode))
			for mode := range st.ByMode {
				modes = append(modes, mode)
			}
			sort.Strings(modes)
			for _, mode := range modes {
				fmt.Printf("  %-12s %d\n", mode, st.ByMode[mode])
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
