// Package snapshot persists point-in-time captures of sessions. Snapshots
// are immutable once written; sequence numbers are monotonic per session.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/BasicFist/kawaimux/internal/model"
)

// ErrCorrupt means a stored snapshot fails structural validation and cannot
// be used for restoration.
var ErrCorrupt = errors.New("snapshot corrupt")

// ErrNotFound means no snapshot exists with the given id.
var ErrNotFound = errors.New("snapshot not found")

// Engine stores snapshots as one JSON document each under its directory.
// Sequence allocation and writes run under a file lock so concurrent
// processes never reuse a sequence number.
type Engine struct {
	dir  string
	lock *flock.Flock
}

// Open prepares the snapshot directory.
func Open(dir string) (*Engine, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}
	return &Engine{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, "snapshots.lock")),
	}, nil
}

// Create allocates the next sequence number for the session and persists the
// snapshot. The layout is stored as given, captured text included.
func (e *Engine) Create(sess *model.Session, layout *model.PaneTree, at time.Time) (*model.Snapshot, error) {
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := e.lock.Lock(); err != nil {
		return nil, fmt.Errorf("acquiring snapshot lock: %w", err)
	}
	defer func() { _ = e.lock.Unlock() }()

	seq, err := e.nextSeq(sess.Name)
	if err != nil {
		return nil, err
	}
	snap := &model.Snapshot{
		ID:         fmt.Sprintf("%s-%d", sess.Name, seq),
		Session:    sess.Name,
		Seq:        seq,
		Mode:       sess.Mode,
		AgentCount: sess.AgentCount,
		CapturedAt: at,
		Layout:     layout.Clone(),
	}
	if err := e.write(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Get loads a snapshot by id. Structurally invalid documents fail with
// ErrCorrupt.
func (e *Engine) Get(id string) (*model.Snapshot, error) {
	data, err := os.ReadFile(e.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("reading snapshot %s: %w", id, err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, id, err)
	}
	if err := validate(&snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, id, err)
	}
	return &snap, nil
}

// List returns snapshots newest first. An empty session lists all sessions'
// snapshots. Unreadable documents are skipped; listing never fails on one
// bad file.
func (e *Engine) List(session string) ([]*model.Snapshot, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot directory: %w", err)
	}
	var out []*model.Snapshot
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		snap, err := e.Get(id)
		if err != nil {
			continue
		}
		if session != "" && snap.Session != session {
			continue
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Session == out[j].Session {
			return out[i].Seq > out[j].Seq
		}
		return out[i].CapturedAt.After(out[j].CapturedAt)
	})
	return out, nil
}

func (e *Engine) path(id string) string {
	return filepath.Join(e.dir, id+".json")
}

// nextSeq scans existing snapshot files for the session and returns the
// highest sequence plus one. Corrupt or foreign files do not disturb the
// sequence.
func (e *Engine) nextSeq(session string) (int, error) {
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return 0, fmt.Errorf("reading snapshot directory: %w", err)
	}
	max := 0
	prefix := session + "-"
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		seqStr := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json")
		seq, err := strconv.Atoi(seqStr)
		if err != nil {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	return max + 1, nil
}

// write persists a snapshot through a temp file and rename.
func (e *Engine) write(snap *model.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", snap.ID, err)
	}
	tmp, err := os.CreateTemp(e.dir, snap.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmpName, e.path(snap.ID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// validate checks the invariants a snapshot must satisfy before restoration.
func validate(snap *model.Snapshot) error {
	if snap.Session == "" {
		return errors.New("missing session name")
	}
	if snap.Seq < 1 {
		return fmt.Errorf("invalid sequence %d", snap.Seq)
	}
	if err := snap.Layout.Validate(); err != nil {
		return err
	}
	if got := len(snap.Layout.Leaves()); got != snap.AgentCount {
		return fmt.Errorf("layout has %d leaves, agent count is %d", got, snap.AgentCount)
	}
	return nil
}
