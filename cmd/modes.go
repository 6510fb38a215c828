package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BasicFist/kawaimux/internal/config"
	"github.com/BasicFist/kawaimux/internal/layout"
	"github.com/BasicFist/kawaimux/internal/model"
	"github.com/BasicFist/kawaimux/internal/theme"
)

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List collaboration modes",
	Long:  `Show every collaboration mode with its agent-count range and whether panes share synchronized input.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Modes are a static table; no multiplexer or state needed.
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if flagTheme != "" {
			cfg.Theme = flagTheme
		}
		st := theme.NewStyles(theme.ByName(cfg.Theme))

		for _, mode := range model.Modes() {
			info, err := layout.Describe(mode)
			if err != nil {
				return err
			}
			agents := fmt.Sprintf("%d", info.Agents.Min)
			if info.Agents.Max != info.Agents.Min {
				agents = fmt.Sprintf("%d-%d", info.Agents.Min, info.Agents.Max)
			}
			sync := ""
			if info.Synchronize {
				sync = "  (synchronized input)"
			}
			fmt.Printf("%s %s %s\n", info.Icon, st.Header.Render(mode.String()), st.Name.Render(info.KawaiiName))
			fmt.Printf("   %s\n", info.Description)
			fmt.Printf("   %s%s\n", st.Muted.Render("agents: "+agents), sync)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modesCmd)
}
