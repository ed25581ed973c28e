package replay

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/halyardlabs/snapview/internal/activity"
	"github.com/halyardlabs/snapview/internal/testutil"
)

// TestBuildSnapshot_Golden pins the exact serialized shape of a computed
// snapshot. Run with -update to regenerate after an intentional change.
func TestBuildSnapshot_Golden(t *testing.T) {
	acts := []activity.Activity{
		testutil.Insert(1, "organizations", "org_1", map[string]any{"name": "Acme", "size": 3}),
		testutil.Alter(2, "organizations", "org_1", "name", "Acme Corp"),
		testutil.Insert(3, "teams", "team_1", map[string]any{"name": "Core"}),
	}

	res := BuildSnapshot(nil, 0, acts, computeTime)
	require.True(t, res.Computed)
	require.Empty(t, res.Anomalies)

	data, err := json.MarshalIndent(res.Snapshot, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "snapshot", append(data, '\n'))
}
