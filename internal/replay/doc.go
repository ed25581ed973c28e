// Package replay implements the snapshot computation engine.
//
// # Determinism
//
// Replay is a pure function of an ordinal-ordered activity slice: identical
// input always yields identical frame contents and record counts. Three
// mechanisms enforce this:
//
// 1. Ordinal-Driven Application
//
// Activities are applied strictly in ordinal order, globally across all
// frames. Cross-frame causal ordering is preserved even though each
// mutation only touches one frame.
//
// 2. Creation-Ordinal Materialization
//
// Accumulator state lives in maps, whose iteration order is unspecified.
// Every record carries the ordinal of the INS that created it, and
// materialization sorts each frame by that stamp, so output order never
// depends on map iteration.
//
// 3. Log and Continue
//
// Record-level problems (duplicate INS, orphan ALT/NUL, malformed payload)
// are absorbed as no-ops or overwrites and reported as anomalies. They never
// abort the remaining range, so a bad activity cannot make two replays of
// the same range diverge.
//
// # Merge Equivalence
//
// Replay accepts a seed accumulator. Seeding with the frames of a snapshot
// at ordinal N and replaying activities > N yields exactly the state of a
// full from-scratch replay. The read path and the snapshot engine share this
// one code path, which is what makes snapshots a pure optimization.
package replay
