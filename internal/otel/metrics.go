package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "kawaimux"

// Metrics holds all OTEL metric instruments for kawaimux.
// All counters are cumulative (monotonic) and safe for concurrent use.
type Metrics struct {
	// Session lifecycle counters (partitioned by mode via attributes)
	SessionsCreated    metric.Int64Counter
	SessionsTerminated metric.Int64Counter
	SessionRollbacks   metric.Int64Counter

	// Snapshot counters
	SnapshotsCaptured metric.Int64Counter
	SnapshotsRestored metric.Int64Counter

	// Reconciliation: sessions found terminated out-of-band
	ReconcileDrift metric.Int64Counter

	// Multiplexer commands (partitioned by operation and outcome)
	MuxCommands metric.Int64Counter
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.SessionsCreated, err = meter.Int64Counter("sessions.created",
		metric.WithDescription("Sessions created, partitioned by mode"))
	if err != nil {
		return nil, err
	}

	m.SessionsTerminated, err = meter.Int64Counter("sessions.terminated",
		metric.WithDescription("Sessions terminated on request"))
	if err != nil {
		return nil, err
	}

	m.SessionRollbacks, err = meter.Int64Counter("sessions.rollbacks",
		metric.WithDescription("Session creations rolled back after partial layout failure"))
	if err != nil {
		return nil, err
	}

	m.SnapshotsCaptured, err = meter.Int64Counter("snapshots.captured",
		metric.WithDescription("Snapshots captured"))
	if err != nil {
		return nil, err
	}

	m.SnapshotsRestored, err = meter.Int64Counter("snapshots.restored",
		metric.WithDescription("Sessions recreated from snapshots"))
	if err != nil {
		return nil, err
	}

	m.ReconcileDrift, err = meter.Int64Counter("reconcile.drift",
		metric.WithDescription("Registry records found terminated out-of-band during reconciliation"))
	if err != nil {
		return nil, err
	}

	m.MuxCommands, err = meter.Int64Counter("mux.commands",
		metric.WithDescription("Multiplexer operations, partitioned by operation and outcome"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordSessionCreated records a successful session creation.
func (m *Metrics) RecordSessionCreated(ctx context.Context, mode string, agents int) {
	if m == nil {
		return
	}
	m.SessionsCreated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("session.mode", mode),
		attribute.Int("session.agents", agents),
	))
}

// RecordSessionTerminated records a requested termination.
func (m *Metrics) RecordSessionTerminated(ctx context.Context) {
	if m == nil {
		return
	}
	m.SessionsTerminated.Add(ctx, 1)
}

// RecordRollback records a compensating kill after partial layout failure.
func (m *Metrics) RecordRollback(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.SessionRollbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("session.mode", mode),
	))
}

// RecordSnapshotCaptured records a captured snapshot.
func (m *Metrics) RecordSnapshotCaptured(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.SnapshotsCaptured.Add(ctx, 1, metric.WithAttributes(
		attribute.String("session.mode", mode),
	))
}

// RecordSnapshotRestored records a session recreated from a snapshot.
func (m *Metrics) RecordSnapshotRestored(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.SnapshotsRestored.Add(ctx, 1, metric.WithAttributes(
		attribute.String("session.mode", mode),
	))
}

// RecordDrift records sessions discovered terminated out-of-band.
func (m *Metrics) RecordDrift(ctx context.Context, count int) {
	if m == nil || count == 0 {
		return
	}
	m.ReconcileDrift.Add(ctx, int64(count))
}

// RecordMuxCommand records a multiplexer operation and its outcome.
func (m *Metrics) RecordMuxCommand(ctx context.Context, op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.MuxCommands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mux.operation", op),
		attribute.String("mux.outcome", outcome),
	))
}
