package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BasicFist/kawaimux/internal/model"
	"github.com/BasicFist/kawaimux/internal/mux"
	"github.com/BasicFist/kawaimux/internal/registry"
	"github.com/BasicFist/kawaimux/internal/snapshot"
	"github.com/BasicFist/kawaimux/internal/theme"
)

// mockMultiplexer implements mux.Multiplexer for testing. It tracks live
// sessions and records every operation.
type mockMultiplexer struct {
	mu       sync.Mutex
	sessions map[string]bool
	captures map[string]string // paneID -> content
	sent     []string          // "session/paneID: text"
	options  []string          // "option=value"
	killed   []string

	createErr     error
	createErrOnce bool
	layoutErr     error
	layoutAfter   int    // realize this many leaves before failing
	layoutDone    func() // runs after a successful layout
	sendErr       error
	captErr       error
	listErr       error

	nextPane int
}

func newMock() *mockMultiplexer {
	return &mockMultiplexer{
		sessions: map[string]bool{},
		captures: map[string]string{},
	}
}

func (m *mockMultiplexer) Name() string { return "mock" }

func (m *mockMultiplexer) CreateSession(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		err := m.createErr
		if m.createErrOnce {
			m.createErr = nil
		}
		return err
	}
	if m.sessions[name] {
		return fmt.Errorf("new-session: %w", mux.ErrSessionExists)
	}
	m.sessions[name] = true
	return nil
}

func (m *mockMultiplexer) ApplyLayout(_ context.Context, session string, tree *model.PaneTree) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	leaves := tree.Leaves()
	if m.layoutErr != nil {
		var realized []string
		for i := 0; i < m.layoutAfter && i < len(leaves); i++ {
			leaves[i].PaneID = fmt.Sprintf("%%%d", m.nextPane)
			m.nextPane++
			realized = append(realized, leaves[i].Role)
		}
		return &mux.PartialLayoutError{Session: session, Realized: realized, Err: m.layoutErr}
	}
	for _, leaf := range leaves {
		leaf.PaneID = fmt.Sprintf("%%%d", m.nextPane)
		m.nextPane++
	}
	if m.layoutDone != nil {
		m.layoutDone()
	}
	return nil
}

func (m *mockMultiplexer) SendText(_ context.Context, session, paneID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, session+"/"+paneID+": "+text)
	return nil
}

func (m *mockMultiplexer) CapturePane(_ context.Context, session, paneID string, maxBytes int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.captErr != nil {
		return "", m.captErr
	}
	return m.captures[paneID], nil
}

func (m *mockMultiplexer) ListSessions(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var names []string
	for name, live := range m.sessions {
		if live {
			names = append(names, name)
		}
	}
	return names, nil
}

func (m *mockMultiplexer) KillSession(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, name)
	m.killed = append(m.killed, name)
	return nil
}

func (m *mockMultiplexer) HasSession(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[name], nil
}

func (m *mockMultiplexer) SetOption(_ context.Context, session, option, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.options = append(m.options, option+"="+value)
	return nil
}

func (m *mockMultiplexer) SetWindowOption(_ context.Context, session, option, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.options = append(m.options, option+"="+value)
	return nil
}

func newOrchestrator(t *testing.T, m *mockMultiplexer) *Orchestrator {
	t.Helper()
	reg, err := registry.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	snaps, err := snapshot.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return &Orchestrator{
		Mux:            m,
		Registry:       reg,
		Snapshots:      snaps,
		Theme:          theme.HelloKitty(),
		CommandTimeout: time.Second,
		CaptureBytes:   16384,
		RetryAttempts:  1,
	}
}

func TestCreatePair(t *testing.T) {
	m := newMock()
	o := newOrchestrator(t, m)

	sess, err := o.Create(context.Background(), CreateOptions{
		Name: "kawaii_pair", Mode: model.ModePair, Agents: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if sess.State != model.StateActive {
		t.Errorf("state = %s", sess.State)
	}
	leaves := sess.Layout.Leaves()
	if len(leaves) != 2 || leaves[0].PaneID == "" || leaves[1].PaneID == "" {
		t.Errorf("pane ids not realized: %+v", leaves)
	}
	if !m.sessions["kawaii_pair"] {
		t.Error("external session missing")
	}

	// Pair mode has synchronized input and the theme applied.
	foundSync, foundTheme := false, false
	for _, opt := range m.options {
		if opt == "synchronize-panes=on" {
			foundSync = true
		}
		if strings.HasPrefix(opt, "status-style=") {
			foundTheme = true
		}
	}
	if !foundSync {
		t.Error("synchronize-panes not enabled for pair mode")
	}
	if !foundTheme {
		t.Error("theme options not applied")
	}

	got, err := o.Registry.Get("kawaii_pair")
	if err != nil {
		t.Fatal(err)
	}
	if got.State != model.StateActive {
		t.Errorf("registry state = %s", got.State)
	}
}

func TestCreateGeneratesName(t *testing.T) {
	m := newMock()
	o := newOrchestrator(t, m)
	o.Now = func() time.Time { return time.Date(2026, 8, 26, 15, 0, 0, 0, time.UTC) }

	sess, err := o.Create(context.Background(), CreateOptions{Mode: model.ModePair, Agents: 2})
	if err != nil {
		t.Fatal(err)
	}
	if sess.Name != "kawaii_20260826_150000" {
		t.Errorf("name = %q", sess.Name)
	}
}

func TestCreateInvalidAgentCountNoSideEffects(t *testing.T) {
	m := newMock()
	o := newOrchestrator(t, m)

	_, err := o.Create(context.Background(), CreateOptions{
		Name: "kawaii_big", Mode: model.ModeDebate, Agents: 5,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(m.sessions) != 0 {
		t.Error("external session created despite invalid agent count")
	}
	if _, err := o.Registry.Get("kawaii_big"); !errors.Is(err, registry.ErrNotFound) {
		t.Error("registry touched despite invalid agent count")
	}
}

func TestCreateDuplicate(t *testing.T) {
	m := newMock()
	o := newOrchestrator(t, m)
	opts := CreateOptions{Name: "kawaii_dup", Mode: model.ModePair, Agents: 2}
	if _, err := o.Create(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	_, err := o.Create(context.Background(), opts)
	if !errors.Is(err, registry.ErrExists) {
		t.Errorf("want ErrExists, got %v", err)
	}
}

func TestCreateRollbackOnPartialLayout(t *testing.T) {
	m := newMock()
	m.layoutErr = errors.New("split-window failed")
	m.layoutAfter = 1
	o := newOrchestrator(t, m)

	_, err := o.Create(context.Background(), CreateOptions{
		Name: "kawaii_broken", Mode: model.ModeDebate, Agents: 3,
	})
	var partial *mux.PartialLayoutError
	if !errors.As(err, &partial) {
		t.Fatalf("want PartialLayoutError, got %v", err)
	}
	if len(partial.Realized) != 1 {
		t.Errorf("realized = %v", partial.Realized)
	}
	// Compensation: external session gone, record removed.
	if m.sessions["kawaii_broken"] {
		t.Error("session not killed after partial layout")
	}
	if len(m.killed) == 0 || m.killed[0] != "kawaii_broken" {
		t.Errorf("killed = %v", m.killed)
	}
	if _, err := o.Registry.Get("kawaii_broken"); !errors.Is(err, registry.ErrNotFound) {
		t.Error("registry record not removed after rollback")
	}
}

func TestCreateRollbackOnPersistFailure(t *testing.T) {
	m := newMock()
	o := newOrchestrator(t, m)
	// The record vanishes between realization and the final persist, so
	// SetLayout fails after the external session is fully built.
	m.layoutDone = func() {
		if err := o.Registry.Remove("kawaii_stuck"); err != nil {
			t.Error(err)
		}
	}

	_, err := o.Create(context.Background(), CreateOptions{
		Name: "kawaii_stuck", Mode: model.ModePair, Agents: 2,
	})
	if !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	// Compensation must run: no live external session is left behind a
	// record that never reached Active.
	if m.sessions["kawaii_stuck"] {
		t.Error("session not killed after persist failure")
	}
	if len(m.killed) == 0 || m.killed[len(m.killed)-1] != "kawaii_stuck" {
		t.Errorf("killed = %v", m.killed)
	}
}

func TestCreateRetriesTransientFailure(t *testing.T) {
	m := newMock()
	m.createErr = fmt.Errorf("socket hiccup: %w", mux.ErrUnavailable)
	m.createErrOnce = true
	o := newOrchestrator(t, m)
	o.RetryAttempts = 3

	sess, err := o.Create(context.Background(), CreateOptions{
		Name: "kawaii_retry", Mode: model.ModePair, Agents: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if sess.State != model.StateActive {
		t.Errorf("state = %s", sess.State)
	}
}

func TestSendAndCapture(t *testing.T) {
	m := newMock()
	o := newOrchestrator(t, m)
	o.Banner = false

	sess, err := o.Create(context.Background(), CreateOptions{
		Name: "kawaii_chat", Mode: model.ModePair, Agents: 2,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := o.Send(context.Background(), "kawaii_chat", "driver", "hello driver"); err != nil {
		t.Fatal(err)
	}
	driverPane := sess.Layout.FindLeaf("driver").PaneID
	want := "kawaii_chat/" + driverPane + ": hello driver"
	found := false
	for _, s := range m.sent {
		if s == want {
			found = true
		}
	}
	if !found {
		t.Errorf("sent = %v, want %q", m.sent, want)
	}

	m.captures[driverPane] = "driver scrollback"
	out, err := o.Capture(context.Background(), "kawaii_chat", "driver")
	if err != nil {
		t.Fatal(err)
	}
	if out != "driver scrollback" {
		t.Errorf("capture = %q", out)
	}

	if err := o.Send(context.Background(), "kawaii_chat", "ghost", "x"); !errors.Is(err, mux.ErrPaneNotFound) {
		t.Errorf("unknown role: want ErrPaneNotFound, got %v", err)
	}
	if err := o.Send(context.Background(), "kawaii_nope", "driver", "x"); !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("unknown session: want ErrNotFound, got %v", err)
	}
}

func TestSnapshotAndRestore(t *testing.T) {
	m := newMock()
	o := newOrchestrator(t, m)
	o.Now = func() time.Time { return time.Date(2026, 8, 26, 15, 0, 0, 0, time.UTC) }

	sess, err := o.Create(context.Background(), CreateOptions{
		Name: "kawaii_snap", Mode: model.ModePair, Agents: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, leaf := range sess.Layout.Leaves() {
		m.captures[leaf.PaneID] = "output of " + leaf.Role
	}

	snap, err := o.Snapshot(context.Background(), "kawaii_snap")
	if err != nil {
		t.Fatal(err)
	}
	if snap.ID != "kawaii_snap-1" || snap.Seq != 1 {
		t.Errorf("snapshot = %s seq %d", snap.ID, snap.Seq)
	}
	if got := snap.Layout.FindLeaf("driver").Capture; got != "output of driver" {
		t.Errorf("driver capture = %q", got)
	}

	got, err := o.Registry.Get("kawaii_snap")
	if err != nil {
		t.Fatal(err)
	}
	if got.State != model.StateSnapshotted || len(got.SnapshotIDs) != 1 {
		t.Errorf("session after snapshot: state=%s refs=%v", got.State, got.SnapshotIDs)
	}

	// Restore creates a fresh session; captured text never replays.
	sentBefore := len(m.sent)
	o.Now = func() time.Time { return time.Date(2026, 8, 26, 16, 0, 0, 0, time.UTC) }
	restored, err := o.Restore(context.Background(), "kawaii_snap-1")
	if err != nil {
		t.Fatal(err)
	}
	if restored.Name != "kawaii_20260826_160000" {
		t.Errorf("restored name = %q", restored.Name)
	}
	if restored.Mode != model.ModePair || restored.AgentCount != 2 {
		t.Errorf("restored = %+v", restored)
	}
	for _, leaf := range restored.Layout.Leaves() {
		if leaf.Capture != "" {
			t.Errorf("restored leaf %q carries captured text", leaf.Role)
		}
		if leaf.PaneID == "" {
			t.Errorf("restored leaf %q not realized", leaf.Role)
		}
	}
	for _, s := range m.sent[sentBefore:] {
		if strings.Contains(s, "output of") {
			t.Errorf("captured text replayed: %q", s)
		}
	}
}

func TestRestoreCorruptSnapshot(t *testing.T) {
	m := newMock()
	o := newOrchestrator(t, m)
	_, err := o.Restore(context.Background(), "kawaii_missing-1")
	if !errors.Is(err, snapshot.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestSnapshotTerminatedSession(t *testing.T) {
	m := newMock()
	o := newOrchestrator(t, m)
	if _, err := o.Create(context.Background(), CreateOptions{Name: "kawaii_done", Mode: model.ModePair, Agents: 2}); err != nil {
		t.Fatal(err)
	}
	if err := o.Terminate(context.Background(), "kawaii_done"); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Snapshot(context.Background(), "kawaii_done"); !errors.Is(err, mux.ErrSessionNotFound) {
		t.Errorf("want ErrSessionNotFound, got %v", err)
	}
}

func TestListReconciles(t *testing.T) {
	m := newMock()
	o := newOrchestrator(t, m)
	if _, err := o.Create(context.Background(), CreateOptions{Name: "kawaii_a", Mode: model.ModePair, Agents: 2}); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Create(context.Background(), CreateOptions{Name: "kawaii_b", Mode: model.ModePair, Agents: 2}); err != nil {
		t.Fatal(err)
	}

	// kawaii_b dies out-of-band.
	m.mu.Lock()
	delete(m.sessions, "kawaii_b")
	m.mu.Unlock()

	sessions, err := o.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	states := map[string]model.State{}
	for _, s := range sessions {
		states[s.Name] = s.State
	}
	if states["kawaii_a"] != model.StateActive {
		t.Errorf("kawaii_a = %s", states["kawaii_a"])
	}
	if states["kawaii_b"] != model.StateTerminated {
		t.Errorf("kawaii_b = %s", states["kawaii_b"])
	}
}

func TestTerminateAndStats(t *testing.T) {
	m := newMock()
	o := newOrchestrator(t, m)
	if _, err := o.Create(context.Background(), CreateOptions{Name: "kawaii_a", Mode: model.ModePair, Agents: 2}); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Create(context.Background(), CreateOptions{Name: "kawaii_b", Mode: model.ModeTeaching, Agents: 3}); err != nil {
		t.Fatal(err)
	}
	if err := o.Terminate(context.Background(), "kawaii_a"); err != nil {
		t.Fatal(err)
	}

	st, err := o.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Total != 2 || st.Live != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.ByMode["teaching"] != 1 {
		t.Errorf("by mode = %v", st.ByMode)
	}
}

func TestCleanup(t *testing.T) {
	m := newMock()
	o := newOrchestrator(t, m)
	created := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	o.Now = func() time.Time { return created }
	if _, err := o.Create(context.Background(), CreateOptions{Name: "kawaii_old", Mode: model.ModePair, Agents: 2}); err != nil {
		t.Fatal(err)
	}
	if err := o.Terminate(context.Background(), "kawaii_old"); err != nil {
		t.Fatal(err)
	}

	o.Now = func() time.Time { return created.Add(48 * time.Hour) }
	removed, err := o.Cleanup(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 1 || removed[0] != "kawaii_old" {
		t.Errorf("removed = %v", removed)
	}
}

func TestAttachCommand(t *testing.T) {
	m := newMock()
	o := newOrchestrator(t, m)
	if _, err := o.Create(context.Background(), CreateOptions{Name: "kawaii_a", Mode: model.ModePair, Agents: 2}); err != nil {
		t.Fatal(err)
	}
	cmd, err := o.AttachCommand("kawaii_a")
	if err != nil {
		t.Fatal(err)
	}
	if cmd != "mock attach -t kawaii_a" {
		t.Errorf("attach command = %q", cmd)
	}
	if err := o.Terminate(context.Background(), "kawaii_a"); err != nil {
		t.Fatal(err)
	}
	if _, err := o.AttachCommand("kawaii_a"); err == nil {
		t.Error("attach to terminated session should fail")
	}
}

func TestParallelCreateDistinctNames(t *testing.T) {
	m := newMock()
	o := newOrchestrator(t, m)
	o.Banner = false

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = o.Create(context.Background(), CreateOptions{
				Name: fmt.Sprintf("kawaii_p%d", i), Mode: model.ModePair, Agents: 2,
			})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Errorf("create %d: %v", i, err)
		}
	}
	if len(o.Registry.List()) != 8 {
		t.Errorf("registered %d sessions", len(o.Registry.List()))
	}
}

func TestBannerSentPerPane(t *testing.T) {
	m := newMock()
	o := newOrchestrator(t, m)
	o.Banner = true

	if _, err := o.Create(context.Background(), CreateOptions{Name: "kawaii_hi", Mode: model.ModeTeaching, Agents: 3}); err != nil {
		t.Fatal(err)
	}
	if len(m.sent) != 3 {
		t.Fatalf("banner sent to %d panes, want 3", len(m.sent))
	}
	if !strings.Contains(m.sent[0], "teacher") {
		t.Errorf("first banner = %q", m.sent[0])
	}
}
