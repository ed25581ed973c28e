// Package activity defines the data model shared by the store, the replay
// engine, and the read path.
//
// An Activity is an immutable diff record. Activities are totally ordered by
// an ordinal assigned once at ingestion; nothing downstream ever consults
// wall-clock time for ordering.
//
// # Operators
//
// Every activity carries exactly one operator:
//   - INS: insert a record into a frame
//   - ALT: set one field of an existing record
//   - NUL: remove a record from a frame
//
// The operator determines the payload shape. Payloads are validated at
// ingestion; a structurally malformed payload is a ValidationError and is
// never stored. Replay handles all three operators exhaustively with no
// default case.
//
// # Frames and Records
//
// A Frame is a named collection of records (e.g. "organizations"), keyed by
// target id. A Record carries its field values plus bookkeeping: the ordinal
// of the INS that created it, created_at, and updated_at. Snapshot output
// orders each frame's records by creation ordinal so that materialization is
// reproducible regardless of map iteration order.
package activity
