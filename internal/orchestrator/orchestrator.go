// Package orchestrator coordinates session lifecycle across the layout
// resolver, multiplexer adapter, registry, and snapshot engine. Operations
// on the same session name serialize; different names proceed in parallel.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/BasicFist/kawaimux/internal/layout"
	"github.com/BasicFist/kawaimux/internal/model"
	"github.com/BasicFist/kawaimux/internal/mux"
	kotel "github.com/BasicFist/kawaimux/internal/otel"
	"github.com/BasicFist/kawaimux/internal/registry"
	"github.com/BasicFist/kawaimux/internal/snapshot"
	"github.com/BasicFist/kawaimux/internal/theme"
)

var tracer = otel.Tracer("kawaimux")

// lockTimeout bounds how long an operation waits for another operation on
// the same session name.
const lockTimeout = 10 * time.Second

// Orchestrator drives session operations end to end.
type Orchestrator struct {
	Mux       mux.Multiplexer
	Registry  *registry.Registry
	Snapshots *snapshot.Engine
	Theme     theme.Theme
	Metrics   *kotel.Metrics // nil-safe

	// CommandTimeout bounds a single multiplexer invocation. Zero disables
	// the bound.
	CommandTimeout time.Duration
	// CaptureBytes bounds pane captures to the trailing N bytes.
	CaptureBytes int
	// RetryAttempts is the number of tries for transient failures during
	// external session creation.
	RetryAttempts int
	// Banner toggles the welcome text echoed into each new pane.
	Banner bool

	// Now is the clock, replaceable in tests.
	Now func() time.Time

	// locks holds one single-slot channel per session name.
	locks sync.Map
	// reconcileMu lets creations proceed concurrently while reconciliation
	// runs exclusively, so a reconcile never races a half-created session.
	reconcileMu sync.RWMutex
}

// CreateOptions parameterizes session creation.
type CreateOptions struct {
	// Name is the session name; empty generates kawaii_<timestamp>.
	Name     string
	Mode     model.Mode
	Agents   int
	Duration time.Duration
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// opCtx derives a context bounding one multiplexer invocation. n scales the
// bound for operations that issue several commands.
func (o *Orchestrator) opCtx(ctx context.Context, n int) (context.Context, context.CancelFunc) {
	if o.CommandTimeout <= 0 {
		return ctx, func() {}
	}
	if n < 1 {
		n = 1
	}
	return context.WithTimeout(ctx, o.CommandTimeout*time.Duration(n))
}

// acquire takes the per-name lock, waiting up to lockTimeout.
func (o *Orchestrator) acquire(name string) (func(), error) {
	v, _ := o.locks.LoadOrStore(name, make(chan struct{}, 1))
	ch := v.(chan struct{})
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-time.After(lockTimeout):
		return nil, fmt.Errorf("timed out waiting for session %q", name)
	}
}

// Create resolves the layout for the mode, creates the external session,
// realizes every pane, themes it, and registers it. A failure after panes
// were created kills the session again so nothing half-built leaks.
func (o *Orchestrator) Create(ctx context.Context, opts CreateOptions) (*model.Session, error) {
	ctx, span := tracer.Start(ctx, "create_session",
		trace.WithAttributes(
			attribute.String("session.mode", opts.Mode.String()),
			attribute.Int("session.agents", opts.Agents),
		))
	defer span.End()

	name := opts.Name
	if name == "" {
		name = model.GenerateName(o.now())
	}
	if err := mux.ValidateSessionName(name); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("session.name", name))

	// Resolve before any side effect so InvalidAgentCount leaves no trace.
	tree, err := layout.Resolve(opts.Mode, opts.Agents)
	if err != nil {
		return nil, err
	}

	release, err := o.acquire(name)
	if err != nil {
		return nil, err
	}
	defer release()
	o.reconcileMu.RLock()
	defer o.reconcileMu.RUnlock()

	sess, err := o.materialize(ctx, name, opts.Mode, opts.Agents, opts.Duration, tree)
	if err != nil {
		return nil, err
	}
	o.Metrics.RecordSessionCreated(ctx, opts.Mode.String(), opts.Agents)
	return sess, nil
}

// materialize runs the shared creation path for Create and Restore.
// Callers hold the per-name lock and the reconcile read lock.
func (o *Orchestrator) materialize(ctx context.Context, name string, mode model.Mode, agents int, duration time.Duration, tree *model.PaneTree) (*model.Session, error) {
	sess := &model.Session{
		Name:       name,
		Mode:       mode,
		AgentCount: agents,
		Duration:   duration,
		CreatedAt:  o.now(),
		State:      model.StateCreated,
		Layout:     tree,
	}
	// Register first: if the process dies mid-creation, reconciliation
	// finds the record and marks it terminated.
	if err := o.Registry.Register(sess); err != nil {
		return nil, err
	}

	if err := o.createExternal(ctx, name); err != nil {
		_ = o.Registry.Remove(name)
		return nil, err
	}

	if err := o.realize(ctx, sess, tree); err != nil {
		o.rollback(name, mode)
		return nil, err
	}

	// Persistence failures compensate too: a live external session with a
	// stuck Created record would otherwise outlive the error.
	if err := o.Registry.SetLayout(name, tree); err != nil {
		o.rollback(name, mode)
		return nil, err
	}
	if err := o.Registry.UpdateState(name, model.StateActive); err != nil {
		o.rollback(name, mode)
		return nil, err
	}
	sess.State = model.StateActive
	return sess.Clone(), nil
}

// createExternal creates the tmux session, retrying transient failures.
func (o *Orchestrator) createExternal(ctx context.Context, name string) error {
	attempts := o.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		opCtx, cancel := o.opCtx(ctx, 1)
		defer cancel()
		err := o.Mux.CreateSession(opCtx, name)
		o.Metrics.RecordMuxCommand(ctx, "create_session", err)
		if errors.Is(err, mux.ErrSessionExists) || errors.Is(err, mux.ErrInvalidSessionName) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(uint(attempts)))
	return err
}

// realize applies the layout and session dressing: pane titles, theme,
// banner text, synchronized input.
func (o *Orchestrator) realize(ctx context.Context, sess *model.Session, tree *model.PaneTree) error {
	leafCount := len(tree.Leaves())
	opCtx, cancel := o.opCtx(ctx, 2*leafCount+1)
	defer cancel()
	if err := o.Mux.ApplyLayout(opCtx, sess.Name, tree); err != nil {
		o.Metrics.RecordMuxCommand(ctx, "apply_layout", err)
		return err
	}
	o.Metrics.RecordMuxCommand(ctx, "apply_layout", nil)

	o.applyTheme(ctx, sess.Name)

	if o.Banner {
		o.sendBanner(ctx, sess, tree)
	}

	if layout.Synchronize(sess.Mode) {
		syncCtx, cancelSync := o.opCtx(ctx, 1)
		err := o.Mux.SetWindowOption(syncCtx, sess.Name, "synchronize-panes", "on")
		cancelSync()
		o.Metrics.RecordMuxCommand(ctx, "set_window_option", err)
		if err != nil {
			return fmt.Errorf("enabling synchronized input: %w", err)
		}
	}
	return nil
}

// applyTheme sets the themed tmux options. Theming is cosmetic; individual
// failures do not fail the session.
func (o *Orchestrator) applyTheme(ctx context.Context, name string) {
	for _, opt := range o.Theme.SessionOptions() {
		opCtx, cancel := o.opCtx(ctx, 1)
		err := o.Mux.SetOption(opCtx, name, opt.Option, opt.Value)
		cancel()
		o.Metrics.RecordMuxCommand(ctx, "set_option", err)
	}
	for _, opt := range o.Theme.WindowOptions() {
		opCtx, cancel := o.opCtx(ctx, 1)
		err := o.Mux.SetWindowOption(opCtx, name, opt.Option, opt.Value)
		cancel()
		o.Metrics.RecordMuxCommand(ctx, "set_window_option", err)
	}
}

// sendBanner echoes a welcome line into each pane. Runs before synchronized
// input is enabled so every pane gets its own role text. Best effort.
func (o *Orchestrator) sendBanner(ctx context.Context, sess *model.Session, tree *model.PaneTree) {
	info, err := layout.Describe(sess.Mode)
	if err != nil {
		return
	}
	for _, leaf := range tree.Leaves() {
		text := fmt.Sprintf("clear; echo '🎀 %s %s ♡ role: %s'", info.Icon, info.KawaiiName, leaf.Role)
		opCtx, cancel := o.opCtx(ctx, 2)
		err := o.Mux.SendText(opCtx, sess.Name, leaf.PaneID, text)
		cancel()
		o.Metrics.RecordMuxCommand(ctx, "send_text", err)
	}
}

// rollback kills a partially built session and drops its record. Uses a
// fresh context so compensation still runs when the caller's context is
// already dead.
func (o *Orchestrator) rollback(name string, mode model.Mode) {
	killCtx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	err := o.Mux.KillSession(killCtx, name)
	o.Metrics.RecordMuxCommand(killCtx, "kill_session", err)
	_ = o.Registry.Remove(name)
	o.Metrics.RecordRollback(killCtx, mode.String())
}

// Terminate kills the session and marks its record terminated. The record
// stays for stats and snapshot back-references until cleanup removes it.
func (o *Orchestrator) Terminate(ctx context.Context, name string) error {
	ctx, span := tracer.Start(ctx, "terminate_session",
		trace.WithAttributes(attribute.String("session.name", name)))
	defer span.End()

	release, err := o.acquire(name)
	if err != nil {
		return err
	}
	defer release()

	sess, err := o.Registry.Get(name)
	if err != nil {
		return err
	}
	opCtx, cancel := o.opCtx(ctx, 1)
	defer cancel()
	killErr := o.Mux.KillSession(opCtx, name)
	o.Metrics.RecordMuxCommand(ctx, "kill_session", killErr)
	if killErr != nil {
		return killErr
	}
	if sess.State != model.StateTerminated {
		if err := o.Registry.UpdateState(name, model.StateTerminated); err != nil {
			return err
		}
		o.Metrics.RecordSessionTerminated(ctx)
	}
	return nil
}

// Reconcile aligns registry records with the sessions the multiplexer
// actually reports. Returns the names found terminated out-of-band.
func (o *Orchestrator) Reconcile(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "reconcile")
	defer span.End()

	o.reconcileMu.Lock()
	defer o.reconcileMu.Unlock()

	opCtx, cancel := o.opCtx(ctx, 1)
	defer cancel()
	live, err := o.Mux.ListSessions(opCtx)
	o.Metrics.RecordMuxCommand(ctx, "list_sessions", err)
	if err != nil {
		return nil, err
	}
	drifted, err := o.Registry.Reconcile(live)
	if err != nil {
		return drifted, err
	}
	span.SetAttributes(attribute.Int("reconcile.drift", len(drifted)))
	o.Metrics.RecordDrift(ctx, len(drifted))
	return drifted, nil
}

// List reconciles and returns all session records in creation order.
func (o *Orchestrator) List(ctx context.Context) ([]*model.Session, error) {
	if _, err := o.Reconcile(ctx); err != nil {
		return nil, err
	}
	return o.Registry.List(), nil
}

// Send delivers text to the pane holding the given role. A stale pane
// triggers a reconcile so the registry catches up with reality.
func (o *Orchestrator) Send(ctx context.Context, name, role, text string) error {
	ctx, span := tracer.Start(ctx, "send_text",
		trace.WithAttributes(
			attribute.String("session.name", name),
			attribute.String("pane.role", role),
		))
	defer span.End()

	sess, err := o.Registry.Get(name)
	if err != nil {
		return err
	}
	if !sess.State.IsLive() {
		return fmt.Errorf("session %q is terminated: %w", name, mux.ErrSessionNotFound)
	}
	leaf := sess.Layout.FindLeaf(role)
	if leaf == nil || leaf.PaneID == "" {
		return fmt.Errorf("session %q has no pane for role %q: %w", name, role, mux.ErrPaneNotFound)
	}
	opCtx, cancel := o.opCtx(ctx, 2)
	defer cancel()
	err = o.Mux.SendText(opCtx, name, leaf.PaneID, text)
	o.Metrics.RecordMuxCommand(ctx, "send_text", err)
	if errors.Is(err, mux.ErrPaneNotFound) || errors.Is(err, mux.ErrSessionNotFound) {
		_, _ = o.Reconcile(ctx)
	}
	return err
}

// Capture returns the trailing content of the pane holding the given role.
func (o *Orchestrator) Capture(ctx context.Context, name, role string) (string, error) {
	sess, err := o.Registry.Get(name)
	if err != nil {
		return "", err
	}
	if !sess.State.IsLive() {
		return "", fmt.Errorf("session %q is terminated: %w", name, mux.ErrSessionNotFound)
	}
	leaf := sess.Layout.FindLeaf(role)
	if leaf == nil || leaf.PaneID == "" {
		return "", fmt.Errorf("session %q has no pane for role %q: %w", name, role, mux.ErrPaneNotFound)
	}
	opCtx, cancel := o.opCtx(ctx, 1)
	defer cancel()
	out, err := o.Mux.CapturePane(opCtx, name, leaf.PaneID, o.CaptureBytes)
	o.Metrics.RecordMuxCommand(ctx, "capture_pane", err)
	if errors.Is(err, mux.ErrPaneNotFound) || errors.Is(err, mux.ErrSessionNotFound) {
		_, _ = o.Reconcile(ctx)
	}
	return out, err
}

// Snapshot captures every pane of a live session and persists the result
// with the next sequence number.
func (o *Orchestrator) Snapshot(ctx context.Context, name string) (*model.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "snapshot_session",
		trace.WithAttributes(attribute.String("session.name", name)))
	defer span.End()

	release, err := o.acquire(name)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := o.Registry.Get(name)
	if err != nil {
		return nil, err
	}
	if !sess.State.IsLive() {
		return nil, fmt.Errorf("session %q is terminated: %w", name, mux.ErrSessionNotFound)
	}

	captured := sess.Layout.Clone()
	for _, leaf := range captured.Leaves() {
		opCtx, cancel := o.opCtx(ctx, 1)
		out, err := o.Mux.CapturePane(opCtx, name, leaf.PaneID, o.CaptureBytes)
		cancel()
		o.Metrics.RecordMuxCommand(ctx, "capture_pane", err)
		if err != nil {
			return nil, fmt.Errorf("capturing pane %q: %w", leaf.Role, err)
		}
		leaf.Capture = out
	}

	snap, err := o.Snapshots.Create(sess, captured, o.now())
	if err != nil {
		return nil, err
	}
	if err := o.Registry.AddSnapshotRef(name, snap.ID); err != nil {
		return nil, err
	}
	o.Metrics.RecordSnapshotCaptured(ctx, sess.Mode.String())
	span.SetAttributes(attribute.String("snapshot.id", snap.ID))
	return snap, nil
}

// Restore recreates a session from a snapshot's pane tree shape. Captured
// text is informational only and is never replayed into the new panes.
func (o *Orchestrator) Restore(ctx context.Context, snapshotID string) (*model.Session, error) {
	ctx, span := tracer.Start(ctx, "restore_snapshot",
		trace.WithAttributes(attribute.String("snapshot.id", snapshotID)))
	defer span.End()

	snap, err := o.Snapshots.Get(snapshotID)
	if err != nil {
		return nil, err
	}

	// Fresh tree: shape only, no stale pane ids, no captured text.
	tree := snap.Layout.Clone()
	for _, leaf := range tree.Leaves() {
		leaf.PaneID = ""
		leaf.Capture = ""
	}

	name := model.GenerateName(o.now())
	span.SetAttributes(attribute.String("session.name", name))

	release, err := o.acquire(name)
	if err != nil {
		return nil, err
	}
	defer release()
	o.reconcileMu.RLock()
	defer o.reconcileMu.RUnlock()

	sess, err := o.materialize(ctx, name, snap.Mode, snap.AgentCount, 0, tree)
	if err != nil {
		return nil, err
	}
	o.Metrics.RecordSnapshotRestored(ctx, snap.Mode.String())
	return sess, nil
}

// Stats reconciles and summarizes the registry.
func (o *Orchestrator) Stats(ctx context.Context) (registry.Stats, error) {
	if _, err := o.Reconcile(ctx); err != nil {
		return registry.Stats{}, err
	}
	return o.Registry.Stats(), nil
}

// Cleanup removes terminated records older than maxAge.
func (o *Orchestrator) Cleanup(ctx context.Context, maxAge time.Duration) ([]string, error) {
	if _, err := o.Reconcile(ctx); err != nil {
		return nil, err
	}
	return o.Registry.Cleanup(o.now(), maxAge)
}

// AttachCommand returns the shell command that attaches to a live session.
func (o *Orchestrator) AttachCommand(name string) (string, error) {
	sess, err := o.Registry.Get(name)
	if err != nil {
		return "", err
	}
	if !sess.State.IsLive() {
		return "", fmt.Errorf("session %q is terminated: %w", name, mux.ErrSessionNotFound)
	}
	return fmt.Sprintf("%s attach -t %s", o.Mux.Name(), name), nil
}
