package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BasicFist/kawaimux/internal/config"
	"github.com/BasicFist/kawaimux/internal/mux"
	"github.com/BasicFist/kawaimux/internal/orchestrator"
	telem "github.com/BasicFist/kawaimux/internal/otel"
	"github.com/BasicFist/kawaimux/internal/registry"
	"github.com/BasicFist/kawaimux/internal/snapshot"
	"github.com/BasicFist/kawaimux/internal/theme"
)

// Version is injected by the linker at build time.
var Version = "dev"

var (
	// Global flags.
	flagMux     string
	flagTheme   string
	flagBaseDir string
)

var rootCmd = &cobra.Command{
	Use:   "kawaimux",
	Short: "Hello Kitty themed multi-agent tmux session orchestrator",
	Long: `kawaimux creates and manages themed tmux sessions for AI agent
collaboration. Each collaboration mode (pair, debate, teaching, consensus,
competition) maps to a pane layout with named roles, and sessions can be
snapshotted and later restored.

Configuration is loaded from .kawaimux.yaml or environment variables.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagMux, "mux", envOrDefault("KAWAIMUX_MULTIPLEXER", ""), "terminal multiplexer: tmux (default: auto-detect)")
	rootCmd.PersistentFlags().StringVar(&flagTheme, "theme", "", "color theme: hello_kitty, dark (default: from config)")
	rootCmd.PersistentFlags().StringVar(&flagBaseDir, "base-dir", "", "state directory (default: ~/.kawaimux)")
}

// app bundles everything a subcommand needs.
type app struct {
	Config       *config.Config
	Orchestrator *orchestrator.Orchestrator
	Styles       theme.Styles
	shutdown     func(context.Context)
}

// Close flushes telemetry.
func (a *app) Close(ctx context.Context) {
	if a.shutdown != nil {
		a.shutdown(ctx)
	}
}

// buildApp loads config, initializes telemetry, and wires the orchestrator.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if flagMux != "" {
		cfg.Multiplexer = flagMux
	}
	if flagTheme != "" {
		cfg.Theme = flagTheme
	}
	if flagBaseDir != "" {
		cfg.BaseDir = flagBaseDir
	}

	telem.Version = Version
	tel, err := telem.Init(ctx, telem.OTELConfig{
		Endpoint:    cfg.OTELEndpoint,
		Headers:     cfg.OTELHeaders,
		Multiplexer: cfg.Multiplexer,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: otel init failed: %v\n", err)
	}

	m, err := mux.FromName(cfg.Multiplexer)
	if err != nil {
		return nil, err
	}
	reg, err := registry.Open(cfg.SessionsDir())
	if err != nil {
		return nil, err
	}
	snaps, err := snapshot.Open(cfg.SnapshotsDir())
	if err != nil {
		return nil, err
	}

	var metrics *telem.Metrics
	shutdown := func(context.Context) {}
	if tel != nil {
		metrics = tel.Metrics
		shutdown = tel.Shutdown
	}

	pal := theme.ByName(cfg.Theme)
	return &app{
		Config: cfg,
		Orchestrator: &orchestrator.Orchestrator{
			Mux:            m,
			Registry:       reg,
			Snapshots:      snaps,
			Theme:          pal,
			Metrics:        metrics,
			CommandTimeout: cfg.CommandTimeoutDuration,
			CaptureBytes:   cfg.CaptureBytes,
			RetryAttempts:  cfg.RetryAttempts,
			Banner:         cfg.ShowBanner(),
		},
		Styles:   theme.NewStyles(pal),
		shutdown: shutdown,
	}, nil
}

// runWithApp wraps a subcommand body with app setup and teardown.
func runWithApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)
	return fn(ctx, a)
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
