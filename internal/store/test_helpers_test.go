package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/halyardlabs/snapview/internal/activity"
)

// createTestStore creates a file-backed store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testUUID returns a deterministic, valid UUID for test inputs.
func testUUID(n int) string {
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
}

// insertInput builds a valid INS input for a target.
func insertInput(n int, frame, target string, fields map[string]any) activity.Input {
	payload, err := json.Marshal(activity.InsertPayload{ID: target, Fields: fields})
	if err != nil {
		panic(err)
	}
	return activity.Input{
		Agent:    "test-agent",
		UUID:     testUUID(n),
		Operator: activity.OpInsert,
		Target:   target,
		Frame:    frame,
		Payload:  payload,
	}
}

// testSnapshot builds a minimal snapshot candidate at the given ordinal.
func testSnapshot(lastOrdinal int64) activity.Snapshot {
	return activity.Snapshot{
		Target: activity.TargetAll,
		Data: map[string][]activity.Record{
			"organizations": {
				{
					ID:              "org_1",
					Fields:          map[string]any{"name": "Acme"},
					CreationOrdinal: 1,
					CreatedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
					UpdatedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
				},
			},
		},
		RecordCounts:        map[string]int{"organizations": 1},
		ComputedAt:          time.Date(2026, 1, 2, 4, 0, 0, 0, time.UTC),
		LastActivityOrdinal: lastOrdinal,
	}
}
