// Package store provides SQLite-backed durable storage for the activity log
// and the snapshot store.
//
// The store implements:
//   - Activities: an append-only log; each row is assigned a strictly
//     increasing ordinal at insert time and is never mutated or deleted
//   - Snapshots: computed full-state materializations, with a per-target
//     "latest" pointer advanced only by an ordinal-guarded compare-and-swap
//
// # Critical Patterns
//
// CP-1: Ordinal as the Only Ordering Authority
//   - ordinal INTEGER PRIMARY KEY AUTOINCREMENT (monotonic, never reused)
//   - All range reads ORDER BY ordinal ASC; timestamps are bookkeeping only
//
// CP-2: Idempotent Ingestion
//   - UNIQUE(uuid) constraint; a duplicate uuid returns the original row
//     without assigning a new ordinal
//
// CP-3: Ordinal-Guarded Latest Pointer
//   - The latest pointer for a target advances only when the candidate's
//     last_activity_ordinal is strictly greater than the stored one
//   - Stale candidates are discarded inside the same transaction, so a
//     regression can never overwrite a more-advanced snapshot
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
