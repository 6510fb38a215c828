// Package config loads kawaimux configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Environment variables (KAWAIMUX_*)
//  2. Config file
//  3. Built-in defaults
//
// Config file search order:
//  1. .kawaimux.yaml in current directory
//  2. ~/.config/kawaimux/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all kawaimux configuration.
type Config struct {
	// BaseDir is the root of kawaimux state: session records under
	// sessions/, snapshots under snapshots/.
	BaseDir string `yaml:"base_dir"`

	// Multiplexer selects the backend: "auto" or "tmux".
	Multiplexer string `yaml:"multiplexer"`

	// Theme names the color palette applied to sessions and CLI output.
	Theme string `yaml:"theme"`

	// Banner toggles the welcome text echoed into each new pane.
	Banner *bool `yaml:"banner"`

	// CaptureBytes bounds pane captures to the trailing N bytes. 0 keeps
	// everything.
	CaptureBytes int `yaml:"capture_bytes"`

	// CommandTimeout bounds each multiplexer invocation. Go duration
	// string, e.g. "5s".
	CommandTimeout string `yaml:"command_timeout"`

	// RetryAttempts is the number of tries for transient multiplexer
	// failures during session creation.
	RetryAttempts int `yaml:"retry_attempts"`

	// CleanupAge is how old a terminated record must be before cleanup
	// removes it. Go duration string, e.g. "24h".
	CleanupAge string `yaml:"cleanup_age"`

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs

	// Parsed durations (not from YAML, set after loading)
	CommandTimeoutDuration time.Duration `yaml:"-"`
	CleanupAgeDuration     time.Duration `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	banner := true
	return &Config{
		BaseDir:        defaultBaseDir(),
		Multiplexer:    "auto",
		Theme:          "hello_kitty",
		Banner:         &banner,
		CaptureBytes:   16384,
		CommandTimeout: "5s",
		RetryAttempts:  3,
		CleanupAge:     "24h",
	}
}

func defaultBaseDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".kawaimux")
	}
	return ".kawaimux"
}

// ShowBanner reports whether new panes receive the welcome text.
func (c *Config) ShowBanner() bool {
	return c.Banner == nil || *c.Banner
}

// SessionsDir is where session records live.
func (c *Config) SessionsDir() string {
	return c.BaseDir
}

// SnapshotsDir is where snapshots live.
func (c *Config) SnapshotsDir() string {
	return filepath.Join(c.BaseDir, "snapshots")
}

// Load reads configuration from file and environment variables.
// Environment variables always override file values.
func Load() (*Config, error) {
	cfg := Defaults()

	if path, data, err := findConfigFile(); err == nil {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	}

	mergeEnv(cfg)

	var err error
	cfg.CommandTimeoutDuration, err = parseDurationOrDisable(cfg.CommandTimeout, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid command timeout %q: %w", cfg.CommandTimeout, err)
	}
	cfg.CleanupAgeDuration, err = parseDurationOrDisable(cfg.CleanupAge, 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup age %q: %w", cfg.CleanupAge, err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile() (string, []byte, error) {
	// 1. Current directory
	if data, err := os.ReadFile(".kawaimux.yaml"); err == nil {
		return ".kawaimux.yaml", data, nil
	}

	// 2. XDG config dir / ~/.config
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "kawaimux", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.BaseDir != "" {
		cfg.BaseDir = file.BaseDir
	}
	if file.Multiplexer != "" {
		cfg.Multiplexer = file.Multiplexer
	}
	if file.Theme != "" {
		cfg.Theme = file.Theme
	}
	if file.Banner != nil {
		cfg.Banner = file.Banner
	}
	if file.CaptureBytes > 0 {
		cfg.CaptureBytes = file.CaptureBytes
	}
	if file.CommandTimeout != "" {
		cfg.CommandTimeout = file.CommandTimeout
	}
	if file.RetryAttempts > 0 {
		cfg.RetryAttempts = file.RetryAttempts
	}
	if file.CleanupAge != "" {
		cfg.CleanupAge = file.CleanupAge
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) {
	if v := os.Getenv("KAWAIMUX_BASE_DIR"); v != "" {
		cfg.BaseDir = v
	}
	if v := os.Getenv("KAWAIMUX_MULTIPLEXER"); v != "" {
		cfg.Multiplexer = v
	}
	if v := os.Getenv("KAWAIMUX_THEME"); v != "" {
		cfg.Theme = v
	}
	if v := os.Getenv("KAWAIMUX_BANNER"); v != "" {
		banner := v == "true" || v == "1"
		cfg.Banner = &banner
	}
	if v := os.Getenv("KAWAIMUX_CAPTURE_BYTES"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			cfg.CaptureBytes = n
		}
	}
	if v := os.Getenv("KAWAIMUX_COMMAND_TIMEOUT"); v != "" {
		cfg.CommandTimeout = v
	}
	if v := os.Getenv("KAWAIMUX_RETRY_ATTEMPTS"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			cfg.RetryAttempts = n
		}
	}
	if v := os.Getenv("KAWAIMUX_CLEANUP_AGE"); v != "" {
		cfg.CleanupAge = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}
}

func parsePositiveInt(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}

// parseDurationOrDisable parses a duration string. "0", "off", "disable" return 0.
// Empty string returns the fallback value.
func parseDurationOrDisable(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	if s == "0" || s == "off" || s == "disable" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
