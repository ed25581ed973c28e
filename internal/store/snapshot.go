package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/halyardlabs/snapview/internal/activity"
)

// ErrNoSnapshot is returned by LatestSnapshot when no snapshot has ever been
// stored for the target. Callers treat it as the "none" sentinel and fall
// back to full-history replay from ordinal 0.
var ErrNoSnapshot = errors.New("no snapshot stored for target")

// StoreSnapshot performs the ordinal-guarded compare-and-swap for the
// target's latest pointer (CP-3 in the package doc).
//
// The candidate wins only if its last_activity_ordinal is strictly greater
// than the current latest's (or no latest exists yet). A losing candidate is
// discarded and stored=false is returned; this is not an error. Concurrent
// computations that complete out of order therefore resolve automatically:
// the one covering the most activity always wins.
//
// Winning candidates are inserted as a new snapshot row and the latest
// pointer is advanced, all in one transaction, so a crash can never leave a
// pointer at a half-written snapshot.
func (s *Store) StoreSnapshot(ctx context.Context, snap activity.Snapshot) (stored bool, err error) {
	dataJSON, err := json.Marshal(snap.Data)
	if err != nil {
		return false, fmt.Errorf("store snapshot: marshal data: %w", err)
	}
	countsJSON, err := json.Marshal(snap.RecordCounts)
	if err != nil {
		return false, fmt.Errorf("store snapshot: marshal record counts: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("store snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// Compare: read the current latest ordinal under the transaction.
	var current sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT last_activity_ordinal FROM latest_snapshots WHERE target = ?
	`, snap.Target).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("store snapshot: read latest: %w", err)
	}

	if current.Valid && snap.LastActivityOrdinal <= current.Int64 {
		// Stale candidate - the stored latest already covers at least this
		// much of the log. Silently discard.
		return false, nil
	}

	// Swap: insert the snapshot row and advance the pointer.
	res, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots
		(target, data, record_counts, computed_at, last_activity_ordinal)
		VALUES (?, ?, ?, ?, ?)
	`,
		snap.Target,
		string(dataJSON),
		string(countsJSON),
		snap.ComputedAt.UTC().Format(timeFormat),
		snap.LastActivityOrdinal,
	)
	if err != nil {
		return false, fmt.Errorf("store snapshot: insert: %w", err)
	}

	snapshotID, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("store snapshot: last insert id: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO latest_snapshots (target, snapshot_id, last_activity_ordinal)
		VALUES (?, ?, ?)
		ON CONFLICT(target) DO UPDATE SET
			snapshot_id = excluded.snapshot_id,
			last_activity_ordinal = excluded.last_activity_ordinal
	`, snap.Target, snapshotID, snap.LastActivityOrdinal)
	if err != nil {
		return false, fmt.Errorf("store snapshot: advance latest: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("store snapshot: commit: %w", err)
	}

	return true, nil
}

// LatestSnapshot returns the current latest snapshot for a target.
// Returns ErrNoSnapshot if none has ever been stored.
func (s *Store) LatestSnapshot(ctx context.Context, target string) (activity.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.target, s.data, s.record_counts, s.computed_at, s.last_activity_ordinal
		FROM latest_snapshots l
		JOIN snapshots s ON s.id = l.snapshot_id
		WHERE l.target = ?
	`, target)

	var snap activity.Snapshot
	var dataJSON, countsJSON, computedAt string
	err := row.Scan(&snap.Target, &dataJSON, &countsJSON, &computedAt, &snap.LastActivityOrdinal)
	if errors.Is(err, sql.ErrNoRows) {
		return activity.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return activity.Snapshot{}, fmt.Errorf("latest snapshot: %w", err)
	}

	if err := json.Unmarshal([]byte(dataJSON), &snap.Data); err != nil {
		return activity.Snapshot{}, fmt.Errorf("latest snapshot: unmarshal data: %w", err)
	}
	if err := json.Unmarshal([]byte(countsJSON), &snap.RecordCounts); err != nil {
		return activity.Snapshot{}, fmt.Errorf("latest snapshot: unmarshal record counts: %w", err)
	}

	t, err := time.Parse(timeFormat, computedAt)
	if err != nil {
		return activity.Snapshot{}, fmt.Errorf("latest snapshot: parse computed_at: %w", err)
	}
	snap.ComputedAt = t

	return snap, nil
}

// PruneSnapshots deletes superseded snapshot rows for a target, keeping the
// retain most recent by last_activity_ordinal. The row referenced by the
// latest pointer is always kept regardless of retain.
//
// The activity log is the sole permanent source of truth; pruning snapshots
// never loses information, only cached materializations.
func (s *Store) PruneSnapshots(ctx context.Context, target string, retain int) (pruned int64, err error) {
	if retain < 1 {
		retain = 1
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE target = ?
		AND id NOT IN (SELECT snapshot_id FROM latest_snapshots WHERE target = ?)
		AND id NOT IN (
			SELECT id FROM snapshots
			WHERE target = ?
			ORDER BY last_activity_ordinal DESC, id DESC
			LIMIT ?
		)
	`, target, target, target, retain)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}

	pruned, err = res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: rows affected: %w", err)
	}
	return pruned, nil
}
