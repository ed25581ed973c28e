package store

import (
	"context"
	"testing"
)

// seedActivities appends n INS activities and returns their ordinals.
func seedActivities(t *testing.T, s *Store, n int) []int64 {
	t.Helper()
	ctx := context.Background()
	ordinals := make([]int64, 0, n)
	for i := 1; i <= n; i++ {
		act, _, err := s.Append(ctx, insertInput(i, "organizations", "org_1", map[string]any{"n": i}))
		if err != nil {
			t.Fatalf("seed Append() %d failed: %v", i, err)
		}
		ordinals = append(ordinals, act.Ordinal)
	}
	return ordinals
}

func TestReadSince_ReturnsAscendingTail(t *testing.T) {
	s := createTestStore(t)
	ordinals := seedActivities(t, s, 5)

	acts, next, more, err := s.ReadSince(context.Background(), ordinals[1], 0)
	if err != nil {
		t.Fatalf("ReadSince() failed: %v", err)
	}
	if more {
		t.Error("unexpected more=true without a limit")
	}
	if len(acts) != 3 {
		t.Fatalf("expected 3 activities, got %d", len(acts))
	}
	for i := 1; i < len(acts); i++ {
		if acts[i].Ordinal <= acts[i-1].Ordinal {
			t.Errorf("activities not ascending at %d: %d <= %d", i, acts[i].Ordinal, acts[i-1].Ordinal)
		}
	}
	if next != ordinals[4] {
		t.Errorf("next cursor = %d, expected %d", next, ordinals[4])
	}
}

func TestReadSince_EmptyTail(t *testing.T) {
	s := createTestStore(t)
	ordinals := seedActivities(t, s, 2)

	acts, next, more, err := s.ReadSince(context.Background(), ordinals[1], 0)
	if err != nil {
		t.Fatalf("ReadSince() failed: %v", err)
	}
	if acts == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(acts) != 0 || more {
		t.Errorf("expected empty page, got %d activities more=%v", len(acts), more)
	}
	if next != ordinals[1] {
		t.Errorf("cursor moved on empty page: %d", next)
	}
}

func TestReadSince_PaginatesWithCursor(t *testing.T) {
	s := createTestStore(t)
	seedActivities(t, s, 7)
	ctx := context.Background()

	var total int
	var cursor int64
	pages := 0
	for {
		acts, next, more, err := s.ReadSince(ctx, cursor, 3)
		if err != nil {
			t.Fatalf("ReadSince() page %d failed: %v", pages, err)
		}
		total += len(acts)
		pages++
		cursor = next
		if !more {
			break
		}
		if len(acts) != 3 {
			t.Errorf("full page expected 3, got %d", len(acts))
		}
	}

	if total != 7 {
		t.Errorf("paginated walk saw %d activities, expected 7", total)
	}
	if pages != 3 {
		t.Errorf("expected 3 pages, got %d", pages)
	}
}

func TestReadRange_IsInclusiveUpper(t *testing.T) {
	s := createTestStore(t)
	ordinals := seedActivities(t, s, 5)

	acts, err := s.ReadRange(context.Background(), ordinals[0], ordinals[3])
	if err != nil {
		t.Fatalf("ReadRange() failed: %v", err)
	}
	if len(acts) != 3 {
		t.Fatalf("expected 3 activities in (%d, %d], got %d", ordinals[0], ordinals[3], len(acts))
	}
	if acts[0].Ordinal != ordinals[1] || acts[2].Ordinal != ordinals[3] {
		t.Errorf("range bounds wrong: first=%d last=%d", acts[0].Ordinal, acts[2].Ordinal)
	}
}

func TestMaxOrdinal_EmptyLog(t *testing.T) {
	s := createTestStore(t)

	max, err := s.MaxOrdinal(context.Background())
	if err != nil {
		t.Fatalf("MaxOrdinal() failed: %v", err)
	}
	if max != 0 {
		t.Errorf("empty log max ordinal = %d, expected 0", max)
	}
}

func TestMaxOrdinal_TracksAppends(t *testing.T) {
	s := createTestStore(t)
	ordinals := seedActivities(t, s, 3)

	max, err := s.MaxOrdinal(context.Background())
	if err != nil {
		t.Fatalf("MaxOrdinal() failed: %v", err)
	}
	if max != ordinals[2] {
		t.Errorf("max ordinal = %d, expected %d", max, ordinals[2])
	}
}
