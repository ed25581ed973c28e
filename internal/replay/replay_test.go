package replay

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halyardlabs/snapview/internal/activity"
	"github.com/halyardlabs/snapview/internal/testutil"
)

var computeTime = time.Date(2026, 1, 2, 4, 0, 0, 0, time.UTC)

func TestReplay_Lifecycle(t *testing.T) {
	acts := []activity.Activity{
		testutil.Insert(1, "organizations", "org_1", map[string]any{"name": "A"}),
		testutil.Alter(2, "organizations", "org_1", "name", "B"),
	}

	res := BuildSnapshot(nil, 0, acts, computeTime)
	require.True(t, res.Computed)
	require.Empty(t, res.Anomalies)

	orgs := res.Snapshot.Data["organizations"]
	require.Len(t, orgs, 1)
	assert.Equal(t, "org_1", orgs[0].ID)
	assert.Equal(t, "B", orgs[0].Fields["name"])
	assert.Equal(t, int64(1), orgs[0].CreationOrdinal)
	assert.Equal(t, int64(2), res.Snapshot.LastActivityOrdinal)
	assert.Equal(t, 1, res.Snapshot.RecordCounts["organizations"])
}

func TestReplay_DeleteThenRecreate(t *testing.T) {
	acts := []activity.Activity{
		testutil.Insert(1, "organizations", "org_1", map[string]any{"name": "A", "size": 10}),
		testutil.Alter(2, "organizations", "org_1", "name", "B"),
		testutil.Remove(3, "organizations", "org_1"),
	}

	res := BuildSnapshot(nil, 0, acts, computeTime)
	require.True(t, res.Computed)
	assert.Empty(t, res.Snapshot.Data["organizations"])
	assert.Equal(t, int64(3), res.Snapshot.LastActivityOrdinal)

	// Recreate: no residual fields from the deleted record survive.
	acts = append(acts, testutil.Insert(4, "organizations", "org_1", map[string]any{"name": "C"}))
	res = BuildSnapshot(nil, 0, acts, computeTime)

	orgs := res.Snapshot.Data["organizations"]
	require.Len(t, orgs, 1)
	assert.Equal(t, "C", orgs[0].Fields["name"])
	assert.NotContains(t, orgs[0].Fields, "size")
	assert.Equal(t, int64(4), orgs[0].CreationOrdinal)
}

func TestReplay_Determinism(t *testing.T) {
	acts := []activity.Activity{
		testutil.Insert(1, "organizations", "org_2", map[string]any{"name": "Beta"}),
		testutil.Insert(2, "organizations", "org_1", map[string]any{"name": "Alpha"}),
		testutil.Insert(3, "teams", "team_1", map[string]any{"name": "Core"}),
		testutil.Alter(4, "organizations", "org_2", "name", "Gamma"),
		testutil.Remove(5, "teams", "team_1"),
		testutil.Insert(6, "teams", "team_2", map[string]any{"name": "Edge"}),
	}

	first := BuildSnapshot(nil, 0, acts, computeTime)
	second := BuildSnapshot(nil, 0, acts, computeTime)

	assert.Equal(t, first.Snapshot, second.Snapshot)
	assert.Equal(t, first.Anomalies, second.Anomalies)
}

func TestReplay_OrphanMutationsAreNoOps(t *testing.T) {
	acts := []activity.Activity{
		testutil.Insert(1, "organizations", "org_1", map[string]any{"name": "A"}),
		testutil.Alter(2, "organizations", "ghost", "name", "B"),
		testutil.Remove(3, "organizations", "phantom"),
	}

	res := BuildSnapshot(nil, 0, acts, computeTime)
	require.True(t, res.Computed)

	// Frame unaffected beyond the legitimate insert.
	require.Len(t, res.Snapshot.Data["organizations"], 1)
	assert.Equal(t, "org_1", res.Snapshot.Data["organizations"][0].ID)

	require.Len(t, res.Anomalies, 2)
	assert.Equal(t, AnomalyOrphanAlter, res.Anomalies[0].Kind)
	assert.Equal(t, "ghost", res.Anomalies[0].Target)
	assert.Equal(t, AnomalyOrphanRemove, res.Anomalies[1].Kind)
	assert.Equal(t, "phantom", res.Anomalies[1].Target)
}

func TestReplay_DuplicateInsertOverwrites(t *testing.T) {
	acts := []activity.Activity{
		testutil.Insert(1, "organizations", "org_1", map[string]any{"name": "A", "size": 1}),
		testutil.Insert(2, "organizations", "org_1", map[string]any{"name": "B"}),
	}

	res := BuildSnapshot(nil, 0, acts, computeTime)
	require.True(t, res.Computed)

	orgs := res.Snapshot.Data["organizations"]
	require.Len(t, orgs, 1)
	assert.Equal(t, "B", orgs[0].Fields["name"])
	assert.NotContains(t, orgs[0].Fields, "size")
	assert.Equal(t, int64(2), orgs[0].CreationOrdinal)

	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, AnomalyDuplicateInsert, res.Anomalies[0].Kind)
}

func TestReplay_MalformedActivitySkipped(t *testing.T) {
	bad := testutil.Insert(2, "organizations", "org_2", map[string]any{"name": "B"})
	bad.Payload = json.RawMessage(`{"not":"an insert payload"}`)

	acts := []activity.Activity{
		testutil.Insert(1, "organizations", "org_1", map[string]any{"name": "A"}),
		bad,
		testutil.Insert(3, "organizations", "org_3", map[string]any{"name": "C"}),
	}

	res := BuildSnapshot(nil, 0, acts, computeTime)
	require.True(t, res.Computed)

	// Processing of the remaining range continued past the malformed entry.
	require.Len(t, res.Snapshot.Data["organizations"], 2)
	require.Len(t, res.Anomalies, 1)
	assert.Equal(t, AnomalyMalformedPayload, res.Anomalies[0].Kind)
	assert.Equal(t, int64(2), res.Anomalies[0].Ordinal)
}

func TestReplay_MaterializeOrdersByCreationOrdinal(t *testing.T) {
	// Insert in an order that disagrees with target id lexicographic order,
	// so a map-iteration bug would be visible.
	acts := []activity.Activity{
		testutil.Insert(1, "organizations", "org_z", map[string]any{"name": "Z"}),
		testutil.Insert(2, "organizations", "org_a", map[string]any{"name": "A"}),
		testutil.Insert(3, "organizations", "org_m", map[string]any{"name": "M"}),
	}

	res := BuildSnapshot(nil, 0, acts, computeTime)

	orgs := res.Snapshot.Data["organizations"]
	require.Len(t, orgs, 3)
	assert.Equal(t, []string{"org_z", "org_a", "org_m"},
		[]string{orgs[0].ID, orgs[1].ID, orgs[2].ID})
}

func TestReplay_EmptyRangeSkips(t *testing.T) {
	res := BuildSnapshot(nil, 42, nil, computeTime)
	assert.False(t, res.Computed)
	assert.Empty(t, res.Anomalies)
}

func TestReplay_SeededMergeEqualsFullReplay(t *testing.T) {
	acts := []activity.Activity{
		testutil.Insert(1, "organizations", "org_1", map[string]any{"name": "A"}),
		testutil.Insert(2, "teams", "team_1", map[string]any{"name": "Core"}),
		testutil.Alter(3, "organizations", "org_1", "name", "B"),
		testutil.Remove(4, "teams", "team_1"),
		testutil.Insert(5, "teams", "team_2", map[string]any{"name": "Edge"}),
		testutil.Alter(6, "teams", "team_2", "name", "Edge v2"),
	}

	full := BuildSnapshot(nil, 0, acts, computeTime)

	// Snapshot at ordinal 3, then merge the tail on top of it.
	mid := BuildSnapshot(nil, 0, acts[:3], computeTime)
	merged := BuildSnapshot(mid.Snapshot.Data, mid.Snapshot.LastActivityOrdinal, acts[3:], computeTime)

	assert.Equal(t, full.Snapshot.Data, merged.Snapshot.Data)
	assert.Equal(t, full.Snapshot.RecordCounts, merged.Snapshot.RecordCounts)
	assert.Equal(t, full.Snapshot.LastActivityOrdinal, merged.Snapshot.LastActivityOrdinal)
}

func TestReplay_SeedIsNotAliased(t *testing.T) {
	seedAct := testutil.Insert(1, "organizations", "org_1", map[string]any{"name": "A"})
	seedSnap := BuildSnapshot(nil, 0, []activity.Activity{seedAct}, computeTime)

	tail := []activity.Activity{
		testutil.Alter(2, "organizations", "org_1", "name", "B"),
	}
	BuildSnapshot(seedSnap.Snapshot.Data, 1, tail, computeTime)

	// The seed snapshot's record is untouched by the merge.
	assert.Equal(t, "A", seedSnap.Snapshot.Data["organizations"][0].Fields["name"])
}

func TestReplay_CrossFrameOrdinalOrder(t *testing.T) {
	// A NUL in one frame between two INS in another must not disturb either.
	acts := []activity.Activity{
		testutil.Insert(1, "organizations", "org_1", map[string]any{"name": "A"}),
		testutil.Insert(2, "teams", "team_1", map[string]any{"name": "Core"}),
		testutil.Remove(3, "organizations", "org_1"),
		testutil.Insert(4, "organizations", "org_1", map[string]any{"name": "B"}),
	}

	res := BuildSnapshot(nil, 0, acts, computeTime)

	require.Len(t, res.Snapshot.Data["organizations"], 1)
	assert.Equal(t, "B", res.Snapshot.Data["organizations"][0].Fields["name"])
	require.Len(t, res.Snapshot.Data["teams"], 1)
}
