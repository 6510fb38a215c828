// Package mux provides an abstraction over terminal multiplexers.
//
// This package is pure transport: it translates abstract session operations
// into multiplexer invocations and parses textual output back into structured
// results. It holds no session state; the registry owns that.
package mux

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BasicFist/kawaimux/internal/model"
)

// Sentinel errors for classified multiplexer failures. Callers match with
// errors.Is.
var (
	// ErrSessionExists means a session with the requested name already runs.
	ErrSessionExists = errors.New("session already exists")
	// ErrSessionNotFound means the named session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrPaneNotFound means a pane identifier no longer resolves.
	ErrPaneNotFound = errors.New("pane not found")
	// ErrUnavailable means the multiplexer binary or server cannot be
	// reached, including command timeouts.
	ErrUnavailable = errors.New("multiplexer unavailable")
	// ErrInvalidSessionName means the name contains characters the
	// multiplexer cannot address reliably.
	ErrInvalidSessionName = errors.New("invalid session name")
)

// PartialLayoutError reports a layout realization that failed after some
// panes were already created. Realized holds the roles that made it, in
// declaration order; callers use it to decide compensation.
type PartialLayoutError struct {
	Session  string
	Realized []string
	Err      error
}

func (e *PartialLayoutError) Error() string {
	return fmt.Sprintf("layout for session %q failed after realizing panes [%s]: %v",
		e.Session, strings.Join(e.Realized, ", "), e.Err)
}

func (e *PartialLayoutError) Unwrap() error {
	return e.Err
}

// Multiplexer abstracts terminal multiplexer operations.
type Multiplexer interface {
	// Name returns the multiplexer name (e.g., "tmux").
	Name() string

	// CreateSession creates a detached session with a single pane.
	// Fails with ErrSessionExists if the name is taken.
	CreateSession(ctx context.Context, name string) error

	// ApplyLayout realizes the pane tree inside an existing session,
	// filling each leaf's PaneID depth-first in declaration order.
	// On failure partway through it returns a PartialLayoutError.
	ApplyLayout(ctx context.Context, session string, tree *model.PaneTree) error

	// SendText sends text to a pane literally, followed by a newline.
	// The text is never interpreted for key names.
	SendText(ctx context.Context, session, paneID, text string) error

	// CapturePane returns the pane's visible content plus scrollback,
	// truncated to the trailing maxBytes when positive.
	CapturePane(ctx context.Context, session, paneID string, maxBytes int) (string, error)

	// ListSessions returns the names of all live sessions. A missing
	// server yields an empty list, not an error.
	ListSessions(ctx context.Context) ([]string, error)

	// KillSession terminates a session. Killing a session that is already
	// gone is not an error.
	KillSession(ctx context.Context, name string) error

	// HasSession reports whether a session with exactly this name exists.
	HasSession(ctx context.Context, name string) (bool, error)

	// SetOption sets a session-scoped option, used for theming and
	// synchronized input.
	SetOption(ctx context.Context, session, option, value string) error

	// SetWindowOption sets a window-scoped option on the session's
	// first window.
	SetWindowOption(ctx context.Context, session, option, value string) error
}
