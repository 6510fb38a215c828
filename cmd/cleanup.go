package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var flagCleanupAge time.Duration

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove old terminated session records",
	Long: `Reconcile the registry, then delete records of terminated sessions
older than the cutoff age. Live sessions are never touched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			age := flagCleanupAge
			if age == 0 {
				age = a.Config.CleanupAgeDuration
			}
			removed, err := a.Orchestrator.Cleanup(ctx, age)
			if err != nil {
				return err
			}
			st := a.Styles
			if len(removed) == 0 {
				fmt.Println(st.Muted.Render("nothing to clean up"))
				return nil
			}
			for _, name := range removed {
				fmt.Println(st.Muted.Render("removed " + name))
			}
			fmt.Println(st.Success.Render(fmt.Sprintf("♡ cleaned up %d record(s)", len(removed))))
			return nil
		})
	},
}

func init() {
	cleanupCmd.Flags().DurationVar(&flagCleanupAge, "age", 0, "cutoff age for terminated records (default: from config)")
	rootCmd.AddCommand(cleanupCmd)
}
