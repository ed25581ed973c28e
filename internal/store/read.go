package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/halyardlabs/snapview/internal/activity"
)

// ReadSince returns activities with ordinal strictly greater than after,
// ascending by ordinal (CP-1). limit bounds the page size; limit <= 0 means
// no bound.
//
// next is a continuation cursor: the ordinal of the last returned activity,
// valid as the after argument of a follow-up call. more reports whether the
// page was cut short by limit.
//
// Returns an empty slice (not nil) if no activities qualify.
func (s *Store) ReadSince(ctx context.Context, after int64, limit int) (acts []activity.Activity, next int64, more bool, err error) {
	query := `
		SELECT ordinal, id, uuid, agent, operator, target, frame, payload, created_at
		FROM activities
		WHERE ordinal > ?
		ORDER BY ordinal ASC
	`
	args := []any{after}
	if limit > 0 {
		// Fetch one extra row to detect whether more pages remain.
		query += " LIMIT ?"
		args = append(args, limit+1)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, false, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	acts = []activity.Activity{}
	for rows.Next() {
		act, err := scanActivity(rows)
		if err != nil {
			return nil, 0, false, err
		}
		acts = append(acts, act)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, false, fmt.Errorf("iterate activities: %w", err)
	}

	if limit > 0 && len(acts) > limit {
		acts = acts[:limit]
		more = true
	}

	next = after
	if len(acts) > 0 {
		next = acts[len(acts)-1].Ordinal
	}

	return acts, next, more, nil
}

// ReadRange returns activities with ordinal in (after, upTo], ascending.
// Used by the snapshot computation engine so a run covers exactly the range
// its trigger promised, even while ingestion continues.
func (s *Store) ReadRange(ctx context.Context, after, upTo int64) ([]activity.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ordinal, id, uuid, agent, operator, target, frame, payload, created_at
		FROM activities
		WHERE ordinal > ? AND ordinal <= ?
		ORDER BY ordinal ASC
	`, after, upTo)
	if err != nil {
		return nil, fmt.Errorf("query activity range: %w", err)
	}
	defer rows.Close()

	acts := []activity.Activity{}
	for rows.Next() {
		act, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		acts = append(acts, act)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity range: %w", err)
	}

	return acts, nil
}

// MaxOrdinal returns the highest assigned ordinal, or 0 if the log is empty.
func (s *Store) MaxOrdinal(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(ordinal) FROM activities`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max ordinal: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

// scanActivity scans a row into an Activity struct.
func scanActivity(rows *sql.Rows) (activity.Activity, error) {
	var act activity.Activity
	var operator, payload, createdAt string

	if err := rows.Scan(
		&act.Ordinal, &act.ID, &act.UUID, &act.Agent, &operator,
		&act.Target, &act.Frame, &payload, &createdAt,
	); err != nil {
		return activity.Activity{}, fmt.Errorf("scan activity: %w", err)
	}

	return finishActivity(act, operator, payload, createdAt)
}

// scanActivityRow scans a single row into an Activity struct.
func scanActivityRow(row *sql.Row) (activity.Activity, error) {
	var act activity.Activity
	var operator, payload, createdAt string

	if err := row.Scan(
		&act.Ordinal, &act.ID, &act.UUID, &act.Agent, &operator,
		&act.Target, &act.Frame, &payload, &createdAt,
	); err != nil {
		return activity.Activity{}, err
	}

	return finishActivity(act, operator, payload, createdAt)
}

// finishActivity converts scanned TEXT columns to their typed forms.
func finishActivity(act activity.Activity, operator, payload, createdAt string) (activity.Activity, error) {
	act.Operator = activity.Operator(operator)
	act.Payload = json.RawMessage(payload)

	t, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return activity.Activity{}, fmt.Errorf("parse created_at: %w", err)
	}
	act.CreatedAt = t

	return act, nil
}
