// Package theme defines kawaimux color palettes and turns them into tmux
// style strings and lipgloss styles for CLI output.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme defines all colors used for session theming and CLI output.
// Use HelloKitty() or Dark() to get a pre-built theme.
type Theme struct {
	Primary    lipgloss.Color // status bar, pane borders
	Secondary  lipgloss.Color // emphasis in CLI output
	Accent     lipgloss.Color // active pane border, highlights
	Background lipgloss.Color // status bar text background
	Text       lipgloss.Color // primary text
	Success    lipgloss.Color // success messages
	Warning    lipgloss.Color // warnings, expired sessions
	Info       lipgloss.Color // informational text
}

// HelloKitty returns the default palette.
func HelloKitty() Theme {
	return Theme{
		Primary:    lipgloss.Color("#F5A3C8"), // Rogue Pink
		Secondary:  lipgloss.Color("#ED164F"), // Spanish Crimson
		Accent:     lipgloss.Color("#FFE717"), // Vivid Yellow
		Background: lipgloss.Color("#1E181A"), // Eerie Black
		Text:       lipgloss.Color("#F2F1F2"), // Aragonite White
		Success:    lipgloss.Color("#E9CA01"), // Wild Honey
		Warning:    lipgloss.Color("#F2D925"),
		Info:       lipgloss.Color("#095D9A"),
	}
}

// Dark returns a muted palette for plainer terminals.
func Dark() Theme {
	return Theme{
		Primary:    lipgloss.Color("#5c9cf5"),
		Secondary:  lipgloss.Color("#9d7cd8"),
		Accent:     lipgloss.Color("#f5a742"),
		Background: lipgloss.Color("#141414"),
		Text:       lipgloss.Color("#eeeeee"),
		Success:    lipgloss.Color("#7fd88f"),
		Warning:    lipgloss.Color("#f5a742"),
		Info:       lipgloss.Color("#56b6c2"),
	}
}

// ByName returns a theme by name. Defaults to hello_kitty.
func ByName(name string) Theme {
	switch name {
	case "dark":
		return Dark()
	default:
		return HelloKitty()
	}
}

// SessionOption is a session-scoped tmux option with its themed value.
type SessionOption struct {
	Option string
	Value  string
}

// WindowOption is a window-scoped tmux option with its themed value.
type WindowOption struct {
	Option string
	Value  string
}

// SessionOptions returns the tmux session options that apply the theme to
// the status bar, pane borders, and message line.
func (t Theme) SessionOptions() []SessionOption {
	return []SessionOption{
		{"status-style", "bg=" + string(t.Primary) + " fg=" + string(t.Background)},
		{"status-left", "#[bg=" + string(t.Primary) + " fg=" + string(t.Background) + "]🎀 Kawaii #[bg=" + string(t.Background) + " fg=" + string(t.Accent) + "] Mode #[default]"},
		{"status-right", "#[bg=" + string(t.Accent) + " fg=" + string(t.Background) + "]♡ oωo ♡ #[bg=" + string(t.Background) + " fg=" + string(t.Primary) + "]%H:%M #[default]"},
		{"pane-border-style", "fg=" + string(t.Primary)},
		{"pane-active-border-style", "fg=" + string(t.Accent) + " bold"},
		{"message-style", "bg=" + string(t.Accent) + " fg=" + string(t.Background) + " bold"},
	}
}

// WindowOptions returns the tmux window options that theme the window
// status line.
func (t Theme) WindowOptions() []WindowOption {
	return []WindowOption{
		{"window-status-current-style", "fg=" + string(t.Accent) + " bg=" + string(t.Background) + " bold"},
		{"window-status-style", "fg=" + string(t.Primary) + " bg=" + string(t.Background)},
	}
}

// Styles holds lipgloss styles derived from a Theme for CLI output.
type Styles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Name    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// NewStyles builds the CLI styles for a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		Header:  lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		Name:    lipgloss.NewStyle().Foreground(t.Secondary),
		Muted:   lipgloss.NewStyle().Foreground(t.Info),
		Success: lipgloss.NewStyle().Foreground(t.Success),
		Warning: lipgloss.NewStyle().Foreground(t.Warning),
		Error:   lipgloss.NewStyle().Foreground(t.Secondary).Bold(true),
	}
}
