package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/halyardlabs/snapview/internal/activity"
	"github.com/halyardlabs/snapview/internal/metrics"
	"github.com/halyardlabs/snapview/internal/replay"
	"github.com/halyardlabs/snapview/internal/store"
)

// Worker is the logically single-threaded snapshot computation consumer.
//
// Triggers arrive through a buffered signal of size one: while a computation
// is in flight, any number of additional triggers collapse into a single
// pending signal, and the loop runs exactly one follow-up covering whatever
// range accumulated. This serializes computation globally - not for
// correctness (the store's ordinal-guarded swap would suffice) but to bound
// memory and avoid duplicated replay work.
//
// ERROR HANDLING: a failed computation is logged and dropped. The previously
// stored latest snapshot is untouched (candidates only reach the store fully
// materialized), and the next trigger retries over the widened range.
type Worker struct {
	store  *store.Store
	retain int
	now    func() time.Time
	logger *slog.Logger
	signal chan struct{}
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithRetention bounds how many superseded snapshots are kept per target.
func WithRetention(retain int) WorkerOption {
	return func(w *Worker) {
		w.retain = retain
	}
}

// WithNow overrides the wall-clock source for computed_at stamps.
func WithNow(now func() time.Time) WorkerOption {
	return func(w *Worker) {
		w.now = now
	}
}

// DefaultRetention is how many superseded snapshots are kept by default.
const DefaultRetention = 5

// NewWorker creates a computation worker over the given store.
func NewWorker(s *store.Store, logger *slog.Logger, opts ...WorkerOption) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Worker{
		store:  s,
		retain: DefaultRetention,
		now:    time.Now,
		logger: logger,
		signal: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Trigger requests a snapshot computation.
// Thread-safe; may be called from any goroutine. Triggers raised while a
// signal is already pending coalesce into it.
func (w *Worker) Trigger() {
	select {
	case w.signal <- struct{}{}:
	default:
		// A computation is already pending; this trigger rides along.
		metrics.TriggersCoalesced.Inc()
	}
}

// Run consumes triggers until the context is cancelled.
//
// CRITICAL: must be called from exactly ONE goroutine. The single consumer
// is what guarantees at most one computation in flight globally.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("snapshot worker starting")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("snapshot worker stopping")
			return ctx.Err()
		case <-w.signal:
		}

		if err := w.ComputeOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			// Log and continue: the stored latest is untouched and the next
			// trigger retries over the accumulated range.
			metrics.SnapshotsComputed.WithLabelValues(metrics.OutcomeFailed).Inc()
			w.logger.Error("snapshot computation failed", "error", err)
		}
	}
}

// ComputeOnce runs a single snapshot computation over the activity range
// (latest stored ordinal, current max ordinal].
//
// Exported so the CLI can force a computation without a running worker.
func (w *Worker) ComputeOnce(ctx context.Context) error {
	var seed map[string][]activity.Record
	var seedOrdinal int64

	latest, err := w.store.LatestSnapshot(ctx, activity.TargetAll)
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
		// First computation covers the full history from ordinal 0.
	case err != nil:
		return fmt.Errorf("compute snapshot: read latest: %w", err)
	default:
		seed = latest.Data
		seedOrdinal = latest.LastActivityOrdinal
	}

	// Pin the upper bound before reading so the run covers a fixed range;
	// activities ingested after this point belong to the next trigger.
	upTo, err := w.store.MaxOrdinal(ctx)
	if err != nil {
		return fmt.Errorf("compute snapshot: max ordinal: %w", err)
	}

	acts, err := w.store.ReadRange(ctx, seedOrdinal, upTo)
	if err != nil {
		return fmt.Errorf("compute snapshot: read range: %w", err)
	}

	res := replay.BuildSnapshot(seed, seedOrdinal, acts, w.now())
	for _, a := range res.Anomalies {
		metrics.ReplayAnomalies.WithLabelValues(string(a.Kind)).Inc()
		w.logger.Warn("replay anomaly",
			"kind", a.Kind, "ordinal", a.Ordinal, "frame", a.Frame, "target", a.Target)
	}

	if !res.Computed {
		// Trigger fired with zero new activities; skip producing a snapshot.
		metrics.SnapshotsComputed.WithLabelValues(metrics.OutcomeEmpty).Inc()
		return nil
	}

	stored, err := w.store.StoreSnapshot(ctx, res.Snapshot)
	if err != nil {
		return fmt.Errorf("compute snapshot: store: %w", err)
	}
	if !stored {
		// Lost the ordinal-guarded swap to a more-advanced snapshot.
		// Resolved automatically and invisibly.
		metrics.SnapshotsComputed.WithLabelValues(metrics.OutcomeStale).Inc()
		w.logger.Info("snapshot discarded as stale",
			"last_activity_ordinal", res.Snapshot.LastActivityOrdinal)
		return nil
	}

	metrics.SnapshotsComputed.WithLabelValues(metrics.OutcomeStored).Inc()
	w.logger.Info("snapshot stored",
		"last_activity_ordinal", res.Snapshot.LastActivityOrdinal,
		"activities", len(acts),
		"anomalies", len(res.Anomalies))

	if pruned, err := w.store.PruneSnapshots(ctx, activity.TargetAll, w.retain); err != nil {
		// Retention is best-effort; a failed prune never fails the run.
		w.logger.Warn("snapshot prune failed", "error", err)
	} else if pruned > 0 {
		w.logger.Info("pruned superseded snapshots", "count", pruned)
	}

	return nil
}
