package mux

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/BasicFist/kawaimux/internal/model"
)

// Session names must be addressable in tmux targets without quoting.
var sessionNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateSessionName checks that a name can be used as a tmux target.
func ValidateSessionName(name string) error {
	if name == "" || !sessionNameRe.MatchString(name) {
		return fmt.Errorf("%w: %q (allowed: letters, digits, underscore, hyphen)", ErrInvalidSessionName, name)
	}
	return nil
}

// Tmux implements the Multiplexer interface for tmux.
type Tmux struct{}

// NewTmux creates a new tmux multiplexer.
func NewTmux() *Tmux {
	return &Tmux{}
}

// Name returns "tmux".
func (t *Tmux) Name() string {
	return "tmux"
}

// CreateSession creates a detached session holding a single pane.
func (t *Tmux) CreateSession(ctx context.Context, name string) error {
	if err := ValidateSessionName(name); err != nil {
		return err
	}
	if _, err := t.run(ctx, "new-session", "-d", "-s", name); err != nil {
		return fmt.Errorf("tmux new-session -s %s: %w", name, err)
	}
	return nil
}

// ApplyLayout realizes the pane tree depth-first, splitting from the last
// created pane at each level so declaration order matches visual order.
func (t *Tmux) ApplyLayout(ctx context.Context, session string, tree *model.PaneTree) error {
	root, err := t.run(ctx, "display-message", "-p", "-t", exactTarget(session), "#{pane_id}")
	if err != nil {
		return fmt.Errorf("tmux display-message -t %s: %w", session, err)
	}
	var realized []string
	if err := t.realize(ctx, tree, strings.TrimSpace(root), &realized); err != nil {
		return &PartialLayoutError{Session: session, Realized: realized, Err: err}
	}
	return nil
}

// realize fills in pane identifiers for the subtree rooted at paneID.
func (t *Tmux) realize(ctx context.Context, node *model.PaneTree, paneID string, realized *[]string) error {
	if node.IsLeaf() {
		node.PaneID = paneID
		if _, err := t.run(ctx, "select-pane", "-t", paneID, "-T", node.Role); err != nil {
			return fmt.Errorf("title pane %s as %q: %w", paneID, node.Role, err)
		}
		*realized = append(*realized, node.Role)
		return nil
	}

	flag := "-h"
	if node.Orientation == model.SplitVertical {
		flag = "-v"
	}

	// Split the target pane k-1 times, assigning each child an even share
	// of the remaining space.
	k := len(node.Children)
	ids := make([]string, k)
	ids[0] = paneID
	cur := paneID
	for i := 1; i < k; i++ {
		pct := 100 * (k - i) / (k - i + 1)
		out, err := t.run(ctx, "split-window", flag, "-t", cur, "-p", fmt.Sprint(pct), "-P", "-F", "#{pane_id}")
		if err != nil {
			return fmt.Errorf("split pane %s: %w", cur, err)
		}
		ids[i] = strings.TrimSpace(out)
		cur = ids[i]
	}

	for i, child := range node.Children {
		if err := t.realize(ctx, child, ids[i], realized); err != nil {
			return err
		}
	}
	return nil
}

// SendText sends text to a pane as a literal string, then a newline.
// The -l flag stops tmux from interpreting the text as key names.
func (t *Tmux) SendText(ctx context.Context, session, paneID, text string) error {
	if _, err := t.run(ctx, "send-keys", "-t", paneID, "-l", "--", text); err != nil {
		return fmt.Errorf("tmux send-keys -t %s: %w", paneID, err)
	}
	if _, err := t.run(ctx, "send-keys", "-t", paneID, "Enter"); err != nil {
		return fmt.Errorf("tmux send-keys -t %s Enter: %w", paneID, err)
	}
	return nil
}

// CapturePane captures pane content including scrollback.
// Uses -p (stdout), -J (joined, unwraps lines), and -S - (whole history).
func (t *Tmux) CapturePane(ctx context.Context, session, paneID string, maxBytes int) (string, error) {
	out, err := t.run(ctx, "capture-pane", "-t", paneID, "-p", "-J", "-S", "-")
	if err != nil {
		return "", fmt.Errorf("tmux capture-pane -t %s: %w", paneID, err)
	}
	return tailBytes(out, maxBytes), nil
}

// ListSessions returns the names of all live sessions.
func (t *Tmux) ListSessions(ctx context.Context) ([]string, error) {
	out, err := t.run(ctx, "list-sessions", "-F", "#{session_name}")
	if err != nil {
		// A stopped server means zero sessions, not a failure. Anything
		// else (cancellation, timeouts, a missing binary) must surface:
		// an empty listing is taken as authoritative by callers.
		if errors.Is(err, errNoServer) {
			return nil, nil
		}
		return nil, fmt.Errorf("tmux list-sessions: %w", err)
	}
	var names []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

// KillSession terminates a session. Already-gone sessions are not an error.
func (t *Tmux) KillSession(ctx context.Context, name string) error {
	_, err := t.run(ctx, "kill-session", "-t", exactTarget(name))
	if err == nil || errors.Is(err, ErrSessionNotFound) || errors.Is(err, errNoServer) {
		return nil
	}
	return fmt.Errorf("tmux kill-session -t %s: %w", name, err)
}

// HasSession reports whether a session named exactly name exists.
func (t *Tmux) HasSession(ctx context.Context, name string) (bool, error) {
	_, err := t.run(ctx, "has-session", "-t", exactTarget(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrSessionNotFound) || errors.Is(err, errNoServer) {
		return false, nil
	}
	return false, fmt.Errorf("tmux has-session -t %s: %w", name, err)
}

// SetOption sets a session-scoped option.
func (t *Tmux) SetOption(ctx context.Context, session, option, value string) error {
	if _, err := t.run(ctx, "set-option", "-t", exactTarget(session), option, value); err != nil {
		return fmt.Errorf("tmux set-option %s: %w", option, err)
	}
	return nil
}

// SetWindowOption sets a window-scoped option on the session's first window.
func (t *Tmux) SetWindowOption(ctx context.Context, session, option, value string) error {
	if _, err := t.run(ctx, "set-window-option", "-t", session+":0", option, value); err != nil {
		return fmt.Errorf("tmux set-window-option %s: %w", option, err)
	}
	return nil
}

// exactTarget prefixes a session name with = so tmux matches it exactly
// instead of by prefix.
func exactTarget(name string) string {
	return "=" + name
}

// run executes a tmux command and returns its stdout, classifying failures
// into the package sentinel errors.
func (t *Tmux) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "tmux", args...)
	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %w", ErrUnavailable, ctxErr)
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr := strings.TrimSpace(string(exitErr.Stderr))
			if sentinel := classifyStderr(stderr); sentinel != nil {
				return "", fmt.Errorf("%w: %s", sentinel, stderr)
			}
			return "", fmt.Errorf("%w: %s", err, stderr)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return "", err
	}
	return string(out), nil
}

// errNoServer marks the one ErrUnavailable cause that is benign: tmux
// itself said no server is running, so there are provably no sessions.
// Cancellation and timeouts never map here.
var errNoServer = fmt.Errorf("%w: no server", ErrUnavailable)

// classifyStderr maps tmux diagnostics to sentinel errors. tmux reports
// failures only as prose on stderr, so substring matching is the protocol.
func classifyStderr(stderr string) error {
	switch {
	case strings.Contains(stderr, "duplicate session"):
		return ErrSessionExists
	case strings.Contains(stderr, "can't find pane"),
		strings.Contains(stderr, "no such pane"):
		return ErrPaneNotFound
	case strings.Contains(stderr, "can't find session"),
		strings.Contains(stderr, "session not found"),
		strings.Contains(stderr, "no such session"):
		return ErrSessionNotFound
	case strings.Contains(stderr, "no server running"),
		strings.Contains(stderr, "error connecting to"):
		return errNoServer
	default:
		return nil
	}
}

// tailBytes keeps the trailing max bytes of s, dropping the partial first
// line so the result starts at a line boundary. Non-positive max keeps
// everything.
func tailBytes(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := s[len(s)-max:]
	if s[len(s)-max-1] == '\n' {
		return cut
	}
	if idx := strings.IndexByte(cut, '\n'); idx >= 0 && idx+1 < len(cut) {
		cut = cut[idx+1:]
	}
	return cut
}
