package mux

import (
	"fmt"
	"os"
	"os/exec"
)

// Detect auto-detects the terminal multiplexer to drive.
// It checks environment variables first, then falls back to checking
// whether the tmux binary exists on PATH.
func Detect() (Multiplexer, error) {
	if os.Getenv("TMUX") != "" {
		return NewTmux(), nil
	}
	if path, err := exec.LookPath("tmux"); err == nil && path != "" {
		return NewTmux(), nil
	}
	return nil, fmt.Errorf("%w: tmux not found (set $TMUX or install tmux)", ErrUnavailable)
}

// FromName creates a Multiplexer by name.
func FromName(name string) (Multiplexer, error) {
	switch name {
	case "", "auto":
		return Detect()
	case "tmux":
		return NewTmux(), nil
	default:
		return nil, fmt.Errorf("unknown multiplexer: %q (supported: tmux)", name)
	}
}
