package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every env var Load consults so tests are hermetic.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"KAWAIMUX_BASE_DIR", "KAWAIMUX_MULTIPLEXER", "KAWAIMUX_THEME",
		"KAWAIMUX_BANNER", "KAWAIMUX_CAPTURE_BYTES", "KAWAIMUX_COMMAND_TIMEOUT",
		"KAWAIMUX_RETRY_ATTEMPTS", "KAWAIMUX_CLEANUP_AGE",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_HEADERS",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Multiplexer != "auto" {
		t.Errorf("Multiplexer: got %q, want %q", cfg.Multiplexer, "auto")
	}
	if cfg.Theme != "hello_kitty" {
		t.Errorf("Theme: got %q, want %q", cfg.Theme, "hello_kitty")
	}
	if !cfg.ShowBanner() {
		t.Error("banner should default to on")
	}
	if cfg.CaptureBytes != 16384 {
		t.Errorf("CaptureBytes: got %d, want %d", cfg.CaptureBytes, 16384)
	}
	if cfg.CommandTimeout != "5s" {
		t.Errorf("CommandTimeout: got %q, want %q", cfg.CommandTimeout, "5s")
	}
	if cfg.RetryAttempts != 3 {
		t.Errorf("RetryAttempts: got %d, want %d", cfg.RetryAttempts, 3)
	}
	if cfg.BaseDir == "" {
		t.Error("BaseDir should never be empty")
	}
}

func TestParseDurationOrDisable(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMs  int64
		wantErr bool
	}{
		{"empty returns fallback", "", 5000, false},
		{"zero disables", "0", 0, false},
		{"off disables", "off", 0, false},
		{"disable disables", "disable", 0, false},
		{"valid duration", "30s", 30000, false},
		{"valid short duration", "500ms", 500, false},
		{"invalid", "not-a-duration", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDurationOrDisable(tt.input, 5*time.Second)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDurationOrDisable(%q): error = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got.Milliseconds() != tt.wantMs {
				t.Errorf("parseDurationOrDisable(%q) = %v, want %dms", tt.input, got, tt.wantMs)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, ".kawaimux.yaml")
	content := `base_dir: /tmp/kawaii-state
multiplexer: tmux
theme: dark
banner: false
capture_bytes: 4096
command_timeout: "10s"
retry_attempts: 5
cleanup_age: "48h"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)
	os.Chdir(dir)

	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.BaseDir != "/tmp/kawaii-state" {
		t.Errorf("BaseDir: got %q", cfg.BaseDir)
	}
	if cfg.Multiplexer != "tmux" {
		t.Errorf("Multiplexer: got %q", cfg.Multiplexer)
	}
	if cfg.Theme != "dark" {
		t.Errorf("Theme: got %q", cfg.Theme)
	}
	if cfg.ShowBanner() {
		t.Error("banner: file says off")
	}
	if cfg.CaptureBytes != 4096 {
		t.Errorf("CaptureBytes: got %d", cfg.CaptureBytes)
	}
	if cfg.CommandTimeoutDuration != 10*time.Second {
		t.Errorf("CommandTimeoutDuration: got %v", cfg.CommandTimeoutDuration)
	}
	if cfg.RetryAttempts != 5 {
		t.Errorf("RetryAttempts: got %d", cfg.RetryAttempts)
	}
	if cfg.CleanupAgeDuration != 48*time.Hour {
		t.Errorf("CleanupAgeDuration: got %v", cfg.CleanupAgeDuration)
	}
	if cfg.ConfigFile != ".kawaimux.yaml" {
		t.Errorf("ConfigFile: got %q", cfg.ConfigFile)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, ".kawaimux.yaml")
	content := `theme: dark
multiplexer: tmux
capture_bytes: 4096
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)
	os.Chdir(dir)

	clearEnv(t)
	t.Setenv("KAWAIMUX_THEME", "hello_kitty")
	t.Setenv("KAWAIMUX_CAPTURE_BYTES", "8192")
	t.Setenv("KAWAIMUX_BANNER", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Theme != "hello_kitty" {
		t.Errorf("Theme: got %q (env should override file)", cfg.Theme)
	}
	if cfg.CaptureBytes != 8192 {
		t.Errorf("CaptureBytes: got %d (env should override file)", cfg.CaptureBytes)
	}
	if cfg.ShowBanner() {
		t.Error("banner: env says off")
	}
	// File value untouched by env wins over default.
	if cfg.Multiplexer != "tmux" {
		t.Errorf("Multiplexer: got %q", cfg.Multiplexer)
	}
}

func TestSnapshotsDir(t *testing.T) {
	cfg := Defaults()
	cfg.BaseDir = "/tmp/k"
	if got := cfg.SnapshotsDir(); got != filepath.Join("/tmp/k", "snapshots") {
		t.Errorf("SnapshotsDir = %q", got)
	}
}
