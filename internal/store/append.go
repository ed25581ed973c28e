package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/halyardlabs/snapview/internal/activity"
)

// timeFormat is how timestamps are stored. RFC 3339 with nanoseconds
// round-trips through TEXT columns losslessly; ordering still comes from
// ordinals, never from these strings.
const timeFormat = time.RFC3339Nano

// Append validates and ingests one activity, assigning its ordinal, id, and
// created_at. The ordinal comes from the activities rowid (AUTOINCREMENT),
// making this insert the single serialization point for ordering.
//
// Ingestion is idempotent on the client-assigned uuid: if the uuid was seen
// before, the previously stored activity is returned with existing=true and
// no new ordinal is assigned.
//
// A malformed input is rejected with activity.ValidationError and never
// stored.
func (s *Store) Append(ctx context.Context, in activity.Input) (act activity.Activity, existing bool, err error) {
	if err := in.Validate(); err != nil {
		return activity.Activity{}, false, err
	}

	createdAt := s.now().UTC()
	id := uuid.Must(uuid.NewV7()).String()

	payload := in.Payload
	if len(payload) == 0 {
		// NUL with no payload; store canonical empty object.
		payload = []byte("{}")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO activities
		(id, uuid, agent, operator, target, frame, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uuid) DO NOTHING
	`,
		id,
		in.UUID,
		in.Agent,
		string(in.Operator),
		in.Target,
		in.Frame,
		string(payload),
		createdAt.Format(timeFormat),
	)
	if err != nil {
		return activity.Activity{}, false, fmt.Errorf("append activity: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return activity.Activity{}, false, fmt.Errorf("append activity: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Duplicate uuid - return the original result without reprocessing.
		prior, err := s.readByUUID(ctx, in.UUID)
		if err != nil {
			return activity.Activity{}, false, fmt.Errorf("append activity: read prior: %w", err)
		}
		return prior, true, nil
	}

	ordinal, err := res.LastInsertId()
	if err != nil {
		return activity.Activity{}, false, fmt.Errorf("append activity: last insert id: %w", err)
	}

	return activity.Activity{
		Ordinal:   ordinal,
		ID:        id,
		UUID:      in.UUID,
		Agent:     in.Agent,
		Operator:  in.Operator,
		Target:    in.Target,
		Frame:     in.Frame,
		Payload:   payload,
		CreatedAt: createdAt,
	}, false, nil
}

// readByUUID retrieves the activity stored under a client idempotency key.
func (s *Store) readByUUID(ctx context.Context, clientUUID string) (activity.Activity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT ordinal, id, uuid, agent, operator, target, frame, payload, created_at
		FROM activities
		WHERE uuid = ?
	`, clientUUID)
	return scanActivityRow(row)
}
