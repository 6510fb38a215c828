// Package registry maintains the index of known sessions, both in memory and
// on disk. Each session persists as one JSON document; writes go through a
// temp file and rename under a file lock so concurrent processes never
// observe a torn record.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/BasicFist/kawaimux/internal/model"
)

var (
	// ErrNotFound means no record exists for the session name.
	ErrNotFound = errors.New("session not registered")
	// ErrExists means a live record already holds the session name.
	ErrExists = errors.New("session already registered")
)

// Registry is the authoritative session index. All returned sessions are
// deep copies; callers never share memory with the registry.
type Registry struct {
	dir  string
	lock *flock.Flock

	mu       sync.RWMutex
	sessions map[string]*model.Session
	order    []string
}

// Stats summarizes the registry contents.
type Stats struct {
	Total     int                `json:"total"`
	Live      int                `json:"live"`
	ByState   map[model.State]int `json:"by_state"`
	ByMode    map[string]int     `json:"by_mode"`
	Snapshots int                `json:"snapshots"`
}

// Open loads the registry rooted at dir, creating the directory layout on
// first use.
func Open(dir string) (*Registry, error) {
	sessionsDir := filepath.Join(dir, "sessions")
	if err := os.MkdirAll(sessionsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating registry directory: %w", err)
	}
	r := &Registry{
		dir:      dir,
		lock:     flock.New(filepath.Join(dir, "registry.lock")),
		sessions: make(map[string]*model.Session),
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) sessionsDir() string {
	return filepath.Join(r.dir, "sessions")
}

func (r *Registry) sessionPath(name string) string {
	return filepath.Join(r.sessionsDir(), name+".json")
}

// load reads every persisted session record into memory.
func (r *Registry) load() error {
	entries, err := os.ReadDir(r.sessionsDir())
	if err != nil {
		return fmt.Errorf("reading registry directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.sessionsDir(), e.Name()))
		if err != nil {
			return fmt.Errorf("reading session record %s: %w", e.Name(), err)
		}
		var s model.Session
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("parsing session record %s: %w", e.Name(), err)
		}
		r.sessions[s.Name] = &s
	}
	r.rebuildOrder()
	return nil
}

// rebuildOrder sorts names by creation time so List is stable across loads.
func (r *Registry) rebuildOrder() {
	r.order = r.order[:0]
	for name := range r.sessions {
		r.order = append(r.order, name)
	}
	sort.Slice(r.order, func(i, j int) bool {
		a, b := r.sessions[r.order[i]], r.sessions[r.order[j]]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.Name < b.Name
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// persist writes one session record atomically under the registry file lock.
func (r *Registry) persist(s *model.Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", s.Name, err)
	}
	if err := r.lock.Lock(); err != nil {
		return fmt.Errorf("acquiring registry lock: %w", err)
	}
	defer func() { _ = r.lock.Unlock() }()

	tmp, err := os.CreateTemp(r.sessionsDir(), s.Name+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp record: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing session record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing session record: %w", err)
	}
	if err := os.Rename(tmpName, r.sessionPath(s.Name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing session record: %w", err)
	}
	return nil
}

// Register stores a new session record. Fails with ErrExists when a live
// record already holds the name; a terminated record of the same name is
// superseded.
func (r *Registry) Register(s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[s.Name]; ok && existing.State.IsLive() {
		return fmt.Errorf("%w: %s", ErrExists, s.Name)
	}
	clone := s.Clone()
	if err := r.persist(clone); err != nil {
		return err
	}
	r.sessions[s.Name] = clone
	r.rebuildOrder()
	return nil
}

// Get returns a copy of the named session record.
func (r *Registry) Get(name string) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s.Clone(), nil
}

// List returns copies of all records in creation order.
func (r *Registry) List() []*model.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Session, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.sessions[name].Clone())
	}
	return out
}

// UpdateState transitions a session to the given state and persists it.
func (r *Registry) UpdateState(name string, state model.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if s.State == state {
		return nil
	}
	s.State = state
	return r.persist(s)
}

// SetLayout replaces the session's pane tree, used once realization fills
// in pane identifiers.
func (r *Registry) SetLayout(name string, layout *model.PaneTree) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	s.Layout = layout.Clone()
	return r.persist(s)
}

// AddSnapshotRef appends a snapshot id to the session's back-references and
// marks the session snapshotted.
func (r *Registry) AddSnapshotRef(name, snapshotID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	s.SnapshotIDs = append(s.SnapshotIDs, snapshotID)
	if s.State.IsLive() {
		s.State = model.StateSnapshotted
	}
	return r.persist(s)
}

// Remove deletes a session record entirely, memory and disk.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err := r.lock.Lock(); err != nil {
		return fmt.Errorf("acquiring registry lock: %w", err)
	}
	defer func() { _ = r.lock.Unlock() }()
	if err := os.Remove(r.sessionPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing session record: %w", err)
	}
	delete(r.sessions, name)
	r.rebuildOrder()
	return nil
}

// Reconcile compares registry records against the live session names
// reported by the multiplexer. Records whose external session vanished are
// marked Terminated. Returns the names that drifted.
func (r *Registry) Reconcile(live []string) ([]string, error) {
	liveSet := make(map[string]bool, len(live))
	for _, name := range live {
		liveSet[name] = true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var drifted []string
	for _, name := range r.order {
		s := r.sessions[name]
		if s.State.IsLive() && !liveSet[name] {
			s.State = model.StateTerminated
			if err := r.persist(s); err != nil {
				return drifted, err
			}
			drifted = append(drifted, name)
		}
	}
	return drifted, nil
}

// Stats summarizes the current records.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := Stats{
		ByState: make(map[model.State]int),
		ByMode:  make(map[string]int),
	}
	for _, s := range r.sessions {
		st.Total++
		st.ByState[s.State]++
		st.ByMode[s.Mode.String()]++
		st.Snapshots += len(s.SnapshotIDs)
		if s.State.IsLive() {
			st.Live++
		}
	}
	return st
}

// Cleanup removes terminated records created before now minus maxAge.
// Returns the names removed.
func (r *Registry) Cleanup(now time.Time, maxAge time.Duration) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []string
	for _, name := range append([]string(nil), r.order...) {
		s := r.sessions[name]
		if s.State != model.StateTerminated {
			continue
		}
		if now.Sub(s.CreatedAt) < maxAge {
			continue
		}
		if err := r.lock.Lock(); err != nil {
			return removed, fmt.Errorf("acquiring registry lock: %w", err)
		}
		err := os.Remove(r.sessionPath(name))
		_ = r.lock.Unlock()
		if err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("removing session record: %w", err)
		}
		delete(r.sessions, name)
		removed = append(removed, name)
	}
	if len(removed) > 0 {
		r.rebuildOrder()
	}
	return removed, nil
}
