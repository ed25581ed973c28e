// Package session decides when snapshots get computed.
//
// The Tracker observes ingestion: every stored activity refreshes a
// per-agent inactivity deadline, and an explicit end-of-session beacon or an
// expiring deadline raises a snapshot trigger.
//
// Triggers feed a single-consumer Worker through a buffered signal of size
// one, so they coalesce: at most one computation runs at a time, and any
// triggers raised during a run collapse into exactly one follow-up covering
// the accumulated range. An end beacon and an inactivity deadline racing for
// the same agent therefore cost one extra replay at worst, never a divergent
// snapshot - the store's ordinal-guarded swap settles whatever remains.
//
// # Timer Races
//
// Per-agent deadlines are cancellable scheduled tasks. Cancellation and
// rescheduling are guarded by the tracker mutex plus a per-session
// generation stamp: a deadline that fires after its session was ended or
// refreshed observes a stale generation and does nothing.
package session
