// Package state serves current application state by merging the latest
// snapshot with the activity tail.
package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/halyardlabs/snapview/internal/activity"
	"github.com/halyardlabs/snapview/internal/replay"
	"github.com/halyardlabs/snapview/internal/store"
)

// Coordinator implements the read path.
//
// Every call re-merges whatever latest snapshot and tail are visible at call
// time; there is no caching or staleness window. Reads never block on an
// in-progress computation and run concurrently with ingestion - the result
// is eventually consistent against in-flight writes but always internally
// coherent, because the merge is the same replay the computation engine
// runs: snapshot@N + activities>N equals a full replay from ordinal 0.
type Coordinator struct {
	store *store.Store
	now   func() time.Time
}

// New creates a read coordinator over the given store.
func New(s *store.Store) *Coordinator {
	return &Coordinator{store: s, now: time.Now}
}

// WithNow overrides the wall-clock source for computed_at stamps on merged
// results. Used by tests.
func (c *Coordinator) WithNow(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// CurrentState returns the current full state for the "all" target.
//
// If no snapshot has ever been computed, the replay seed is empty and the
// tail is the entire activity history from ordinal 0; callers see no
// difference. The returned snapshot's LastActivityOrdinal reflects the
// highest ordinal actually merged.
func (c *Coordinator) CurrentState(ctx context.Context) (activity.Snapshot, error) {
	var seed map[string][]activity.Record
	var seedOrdinal int64
	var computedAt time.Time

	latest, err := c.store.LatestSnapshot(ctx, activity.TargetAll)
	switch {
	case errors.Is(err, store.ErrNoSnapshot):
		// Transparent fallback to full-history replay.
	case err != nil:
		return activity.Snapshot{}, fmt.Errorf("current state: read latest: %w", err)
	default:
		seed = latest.Data
		seedOrdinal = latest.LastActivityOrdinal
		computedAt = latest.ComputedAt
	}

	tail, _, _, err := c.store.ReadSince(ctx, seedOrdinal, 0)
	if err != nil {
		return activity.Snapshot{}, fmt.Errorf("current state: read tail: %w", err)
	}

	if len(tail) == 0 {
		if computedAt.IsZero() {
			// No snapshot and no activities: empty state at ordinal 0.
			return activity.Snapshot{
				Target:       activity.TargetAll,
				Data:         map[string][]activity.Record{},
				RecordCounts: map[string]int{},
				ComputedAt:   c.now().UTC(),
			}, nil
		}
		return latest, nil
	}

	res := replay.BuildSnapshot(seed, seedOrdinal, tail, c.now())
	return res.Snapshot, nil
}
