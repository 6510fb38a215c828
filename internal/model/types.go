// Package model defines the core data types shared across kawaimux:
// collaboration modes, sessions, pane trees, and snapshots.
package model

import (
	"fmt"
	"time"
)

// Mode is a named collaboration pattern. The set is closed: adding a mode
// means extending this enum and the layout table, both checked at compile time.
type Mode int

const (
	ModePair Mode = iota
	ModeDebate
	ModeTeaching
	ModeConsensus
	ModeCompetition
)

// Modes returns all collaboration modes in declaration order.
func Modes() []Mode {
	return []Mode{ModePair, ModeDebate, ModeTeaching, ModeConsensus, ModeCompetition}
}

// String returns the wire/CLI name of the mode.
func (m Mode) String() string {
	switch m {
	case ModePair:
		return "pair"
	case ModeDebate:
		return "debate"
	case ModeTeaching:
		return "teaching"
	case ModeConsensus:
		return "consensus"
	case ModeCompetition:
		return "competition"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses a mode name as used on the CLI and in persisted records.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "pair":
		return ModePair, nil
	case "debate":
		return ModeDebate, nil
	case "teaching":
		return ModeTeaching, nil
	case "consensus":
		return ModeConsensus, nil
	case "competition":
		return ModeCompetition, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (supported: pair, debate, teaching, consensus, competition)", s)
	}
}

// MarshalText implements encoding.TextMarshaler so modes persist by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// State is a session lifecycle state.
type State string

const (
	// StateCreated means the session record exists but not all panes are
	// realized in the external multiplexer yet.
	StateCreated State = "created"
	// StateActive means every leaf of the pane tree is realized.
	StateActive State = "active"
	// StateSnapshotted is an active session that has at least one snapshot.
	// It behaves as live for every operation; the distinction only matters
	// for listings and stats.
	StateSnapshotted State = "snapshotted"
	// StateTerminated means the external session is gone. Only read-only
	// snapshot retrieval remains valid.
	StateTerminated State = "terminated"
)

// IsLive reports whether the state counts as alive in the external multiplexer.
func (s State) IsLive() bool {
	return s == StateCreated || s == StateActive || s == StateSnapshotted
}

// Session is a named, lifecycle-tracked collaboration workspace.
// Owned exclusively by the registry; callers receive deep copies.
type Session struct {
	Name       string        `json:"name"`
	Mode       Mode          `json:"mode"`
	AgentCount int           `json:"agent_count"`
	Duration   time.Duration `json:"duration,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	State      State         `json:"state"`
	Layout     *PaneTree     `json:"layout"`

	// SnapshotIDs are back-references only; snapshot content lives with the
	// snapshot engine.
	SnapshotIDs []string `json:"snapshot_ids,omitempty"`
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Layout = s.Layout.Clone()
	out.SnapshotIDs = append([]string(nil), s.SnapshotIDs...)
	return &out
}

// Expired reports whether the session's optional duration has elapsed at now.
func (s *Session) Expired(now time.Time) bool {
	return s.Duration > 0 && now.Sub(s.CreatedAt) > s.Duration
}

// Snapshot is an immutable point-in-time capture of a session: its attributes
// and a deep copy of its pane tree with per-leaf captured output.
type Snapshot struct {
	ID         string    `json:"id"`
	Session    string    `json:"session"`
	Seq        int       `json:"seq"`
	Mode       Mode      `json:"mode"`
	AgentCount int       `json:"agent_count"`
	CapturedAt time.Time `json:"captured_at"`
	Layout     *PaneTree `json:"layout"`
}

// GenerateName returns a session name for requests that did not supply one.
func GenerateName(t time.Time) string {
	return "kawaii_" + t.Format("20060102_150405")
}
