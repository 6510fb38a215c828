package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/BasicFist/kawaimux/internal/model"
	"github.com/BasicFist/kawaimux/internal/mux"
)

// ErrBadExport means an export file could not be parsed or describes an
// inconsistent session.
var ErrBadExport = errors.New("invalid session export")

// exportEnvelope is the portable on-disk form of an exported session record.
type exportEnvelope struct {
	ExportedAt time.Time      `json:"exported_at"`
	ExportedBy string         `json:"exported_by"`
	Session    *model.Session `json:"session"`
}

// Export writes the named session's record to path as JSON. The export
// carries the full record including the pane tree, so it can seed a new
// session elsewhere via Import.
func (o *Orchestrator) Export(name, path string) error {
	sess, err := o.Registry.Get(name)
	if err != nil {
		return err
	}
	env := exportEnvelope{
		ExportedAt: o.now(),
		ExportedBy: "kawaimux",
		Session:    sess,
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding export of %s: %w", name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

// Import reads an export file and creates a fresh live session from its
// mode and pane tree shape. newName overrides the session name; empty
// defaults to the exported name with an _imported suffix. Captured text and
// stale pane ids in the export are discarded, matching Restore.
func (o *Orchestrator) Import(ctx context.Context, path, newName string) (*model.Session, error) {
	ctx, span := tracer.Start(ctx, "import_session",
		trace.WithAttributes(attribute.String("export.path", path)))
	defer span.End()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	var env exportEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadExport, err)
	}
	if err := validateExport(&env); err != nil {
		return nil, err
	}

	name := newName
	if name == "" {
		name = env.Session.Name + "_imported"
	}
	if err := mux.ValidateSessionName(name); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("session.name", name))

	tree := env.Session.Layout.Clone()
	for _, leaf := range tree.Leaves() {
		leaf.PaneID = ""
		leaf.Capture = ""
	}

	release, err := o.acquire(name)
	if err != nil {
		return nil, err
	}
	defer release()
	o.reconcileMu.RLock()
	defer o.reconcileMu.RUnlock()

	sess, err := o.materialize(ctx, name, env.Session.Mode, env.Session.AgentCount, env.Session.Duration, tree)
	if err != nil {
		return nil, err
	}
	o.Metrics.RecordSessionCreated(ctx, env.Session.Mode.String(), env.Session.AgentCount)
	return sess, nil
}

// validateExport checks that an export envelope describes a realizable
// session.
func validateExport(env *exportEnvelope) error {
	s := env.Session
	if s == nil || s.Name == "" {
		return fmt.Errorf("%w: missing session record", ErrBadExport)
	}
	if s.Layout == nil {
		return fmt.Errorf("%w: session %s has no pane tree", ErrBadExport, s.Name)
	}
	if err := s.Layout.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrBadExport, err)
	}
	if got := len(s.Layout.Leaves()); got != s.AgentCount {
		return fmt.Errorf("%w: %d panes for %d agents", ErrBadExport, got, s.AgentCount)
	}
	return nil
}
