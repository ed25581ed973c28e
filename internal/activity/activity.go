package activity

import (
	"encoding/json"
	"time"
)

// Operator identifies the mutation kind carried by an activity.
type Operator string

const (
	// OpInsert creates a record in a frame.
	OpInsert Operator = "INS"
	// OpAlter sets a single field of an existing record.
	OpAlter Operator = "ALT"
	// OpRemove deletes a record from a frame.
	OpRemove Operator = "NUL"
)

// ValidOperators defines the allowed operator values.
var ValidOperators = map[Operator]bool{
	OpInsert: true,
	OpAlter:  true,
	OpRemove: true,
}

// Activity is an immutable diff record with a global ordinal position.
//
// Ordinal is assigned exactly once at ingestion and is the sole ordering
// authority. UUID is the client-assigned idempotency key; resubmitting the
// same UUID returns the original activity without assigning a new ordinal.
type Activity struct {
	Ordinal   int64           `json:"ordinal"`
	ID        string          `json:"id"`   // server-assigned, UUIDv7
	UUID      string          `json:"uuid"` // client-assigned idempotency key
	Agent     string          `json:"agent"`
	Operator  Operator        `json:"operator"`
	Target    string          `json:"target"`
	Frame     string          `json:"frame"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Input is the client-supplied portion of an activity, before the system
// assigns ordinal, id, and created_at.
type Input struct {
	Agent    string          `json:"agent"`
	UUID     string          `json:"uuid"`
	Operator Operator        `json:"operator"`
	Target   string          `json:"target"`
	Frame    string          `json:"frame"`
	Payload  json.RawMessage `json:"payload"`
}

// InsertPayload is the payload shape for OpInsert.
type InsertPayload struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// AlterPayload is the payload shape for OpAlter.
//
// OldValue is advisory only: replay never enforces it as an optimistic-lock
// check. Last write by ordinal wins.
type AlterPayload struct {
	Field    string          `json:"field"`
	OldValue json.RawMessage `json:"old_value,omitempty"`
	NewValue json.RawMessage `json:"new_value"`
}

// RemovePayload is the payload shape for OpRemove.
//
// SnapshotOfDeleted is an optional audit copy of the record at deletion
// time. It is stored in the log but never replayed into served state.
type RemovePayload struct {
	Reason            string          `json:"reason,omitempty"`
	SnapshotOfDeleted json.RawMessage `json:"snapshot_of_deleted,omitempty"`
}

// Record is one domain record inside a frame.
//
// CreationOrdinal is the ordinal of the INS that created the record (or the
// last INS, if the id was deleted and recreated). Frames materialize their
// records sorted by it, ascending.
type Record struct {
	ID              string         `json:"id"`
	Fields          map[string]any `json:"fields"`
	CreationOrdinal int64          `json:"creation_ordinal"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Clone returns a deep copy of the record.
//
// Replay seeds mutate records in place; the read path clones snapshot
// records first so a stored snapshot is never aliased by a merge.
func (r Record) Clone() Record {
	out := r
	out.Fields = make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	return out
}

// Snapshot is a computed full-state materialization at an ordinal boundary.
//
// Data maps frame name to that frame's surviving records, ordered by
// creation ordinal ascending. LastActivityOrdinal is the maximum ordinal
// incorporated; it never decreases across successively stored snapshots.
type Snapshot struct {
	Target              string              `json:"target"`
	Data                map[string][]Record `json:"data"`
	RecordCounts        map[string]int      `json:"record_counts"`
	ComputedAt          time.Time           `json:"computed_at"`
	LastActivityOrdinal int64               `json:"last_activity_ordinal"`
}

// TargetAll is the single snapshot target this system serves.
const TargetAll = "all"
