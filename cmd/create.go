package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/BasicFist/kawaimux/internal/model"
	"github.com/BasicFist/kawaimux/internal/orchestrator"
)

var (
	flagCreateName     string
	flagCreateMode     string
	flagCreateAgents   int
	flagCreateDuration time.Duration
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a themed collaboration session",
	Long: `Create a new tmux session laid out for the chosen collaboration mode.

Each mode defines a pane layout with named roles, for example:

  kawaimux create --mode pair
  kawaimux create --mode teaching --agents 4
  kawaimux create --mode debate --agents 3 --name kawaii_standoff

Without --name a timestamped kawaii_* name is generated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			mode, err := model.ParseMode(flagCreateMode)
			if err != nil {
				return err
			}
			sess, err := a.Orchestrator.Create(ctx, orchestrator.CreateOptions{
				Name:     flagCreateName,
				Mode:     mode,
				Agents:   flagCreateAgents,
				Duration: flagCreateDuration,
			})
			if err != nil {
				return err
			}

			st := a.Styles
			fmt.Println(st.Title.Render("🎀 Kawaii Session Created Successfully! ♡"))
			fmt.Printf("%s %s\n", st.Header.Render("Session:"), st.Name.Render(sess.Name))
			fmt.Printf("%s %s\n", st.Header.Render("Mode:"), sess.Mode)
			fmt.Printf("%s %d\n", st.Header.Render("Agents:"), sess.AgentCount)
			fmt.Printf("%s ", st.Header.Render("Roles:"))
			for i, leaf := range sess.Layout.Leaves() {
				if i > 0 {
					fmt.Print(", ")
				}
				fmt.Print(leaf.Role)
			}
			fmt.Println()
			attach, err := a.Orchestrator.AttachCommand(sess.Name)
			if err == nil {
				fmt.Printf("%s %s\n", st.Header.Render("Attach:"), st.Muted.Render(attach))
			}
			return nil
		})
	},
}

func init() {
	createCmd.Flags().StringVar(&flagCreateName, "name", "", "session name (default: kawaii_<timestamp>)")
	createCmd.Flags().StringVar(&flagCreateMode, "mode", "pair", "collaboration mode: pair, debate, teaching, consensus, competition")
	createCmd.Flags().IntVar(&flagCreateAgents, "agents", 2, "number of agents (range depends on mode)")
	createCmd.Flags().DurationVar(&flagCreateDuration, "duration", 0, "intended session duration, informational (0 = unbounded)")
	rootCmd.AddCommand(createCmd)
}
