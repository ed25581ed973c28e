package replay

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/halyardlabs/snapview/internal/activity"
)

// AnomalyKind categorizes record-level problems absorbed during replay.
type AnomalyKind string

const (
	// AnomalyDuplicateInsert is an INS for an id already present in the
	// frame. The later INS wins (last write by ordinal).
	AnomalyDuplicateInsert AnomalyKind = "DUPLICATE_INSERT"

	// AnomalyOrphanAlter is an ALT referencing a target absent from the
	// frame. Absorbed as a no-op.
	AnomalyOrphanAlter AnomalyKind = "ORPHAN_ALTER"

	// AnomalyOrphanRemove is a NUL referencing a target absent from the
	// frame. Absorbed as a no-op.
	AnomalyOrphanRemove AnomalyKind = "ORPHAN_REMOVE"

	// AnomalyMalformedPayload is an activity whose payload cannot be decoded
	// for its operator. The activity is skipped.
	AnomalyMalformedPayload AnomalyKind = "MALFORMED_PAYLOAD"
)

// Anomaly describes one absorbed problem, for observability only.
// Anomalies never affect the outcome of a replay beyond the documented
// no-op/overwrite behavior.
type Anomaly struct {
	Kind    AnomalyKind `json:"kind"`
	Ordinal int64       `json:"ordinal"`
	Frame   string      `json:"frame"`
	Target  string      `json:"target"`
	Detail  string      `json:"detail,omitempty"`
}

// Accumulator holds mutable per-frame record state during a replay run.
//
// Not safe for concurrent use; a replay is a bounded synchronous batch with
// no suspension points, so each run owns its accumulator exclusively.
type Accumulator struct {
	frames map[string]map[string]activity.Record
}

// NewAccumulator returns an empty accumulator (the seed for full-history
// replay from ordinal 0).
func NewAccumulator() *Accumulator {
	return &Accumulator{frames: make(map[string]map[string]activity.Record)}
}

// Seed returns an accumulator pre-populated with a snapshot's frames.
// Records are deep-copied so replay never aliases the snapshot it merges on
// top of.
func Seed(data map[string][]activity.Record) *Accumulator {
	acc := NewAccumulator()
	for frame, records := range data {
		m := make(map[string]activity.Record, len(records))
		for _, rec := range records {
			m[rec.ID] = rec.Clone()
		}
		acc.frames[frame] = m
	}
	return acc
}

// Apply folds one activity into the accumulator and returns the anomaly it
// produced, if any.
//
// All three operators are handled explicitly; an unknown operator (which
// ingestion validation should have rejected) is reported as malformed and
// skipped, never a panic and never an abort.
func (acc *Accumulator) Apply(act activity.Activity) *Anomaly {
	switch act.Operator {
	case activity.OpInsert:
		return acc.applyInsert(act)
	case activity.OpAlter:
		return acc.applyAlter(act)
	case activity.OpRemove:
		return acc.applyRemove(act)
	}
	return &Anomaly{
		Kind:    AnomalyMalformedPayload,
		Ordinal: act.Ordinal,
		Frame:   act.Frame,
		Target:  act.Target,
		Detail:  fmt.Sprintf("unknown operator %q", act.Operator),
	}
}

// applyInsert constructs a record from the INS payload. A duplicate INS for
// an id already present overwrites it entirely: no residual fields survive,
// and the creation ordinal restarts at this activity.
func (acc *Accumulator) applyInsert(act activity.Activity) *Anomaly {
	var p activity.InsertPayload
	if err := json.Unmarshal(act.Payload, &p); err != nil || p.Fields == nil {
		return malformed(act, "INS payload missing fields")
	}

	frame := acc.frame(act.Frame)
	_, dup := frame[act.Target]

	fields := make(map[string]any, len(p.Fields))
	for k, v := range p.Fields {
		fields[k] = v
	}

	frame[act.Target] = activity.Record{
		ID:              act.Target,
		Fields:          fields,
		CreationOrdinal: act.Ordinal,
		CreatedAt:       act.CreatedAt,
		UpdatedAt:       act.CreatedAt,
	}

	if dup {
		return &Anomaly{
			Kind:    AnomalyDuplicateInsert,
			Ordinal: act.Ordinal,
			Frame:   act.Frame,
			Target:  act.Target,
		}
	}
	return nil
}

// applyAlter sets one field of an existing record. old_value in the payload
// is advisory only and never checked; last write by ordinal wins. An absent
// target is a no-op.
func (acc *Accumulator) applyAlter(act activity.Activity) *Anomaly {
	var p activity.AlterPayload
	if err := json.Unmarshal(act.Payload, &p); err != nil || p.Field == "" || len(p.NewValue) == 0 {
		return malformed(act, "ALT payload missing field or new_value")
	}

	frame := acc.frame(act.Frame)
	rec, ok := frame[act.Target]
	if !ok {
		return &Anomaly{
			Kind:    AnomalyOrphanAlter,
			Ordinal: act.Ordinal,
			Frame:   act.Frame,
			Target:  act.Target,
		}
	}

	var value any
	if err := json.Unmarshal(p.NewValue, &value); err != nil {
		return malformed(act, "ALT new_value is not valid JSON")
	}

	rec.Fields[p.Field] = value
	rec.UpdatedAt = act.CreatedAt
	frame[act.Target] = rec
	return nil
}

// applyRemove deletes the target from the frame entirely. No tombstone is
// retained in served state; deletion history lives only in the activity
// log. An absent target is a no-op.
func (acc *Accumulator) applyRemove(act activity.Activity) *Anomaly {
	frame := acc.frame(act.Frame)
	if _, ok := frame[act.Target]; !ok {
		return &Anomaly{
			Kind:    AnomalyOrphanRemove,
			Ordinal: act.Ordinal,
			Frame:   act.Frame,
			Target:  act.Target,
		}
	}
	delete(frame, act.Target)
	return nil
}

// frame returns the named frame's record map, creating it if needed.
func (acc *Accumulator) frame(name string) map[string]activity.Record {
	f, ok := acc.frames[name]
	if !ok {
		f = make(map[string]activity.Record)
		acc.frames[name] = f
	}
	return f
}

func malformed(act activity.Activity, detail string) *Anomaly {
	return &Anomaly{
		Kind:    AnomalyMalformedPayload,
		Ordinal: act.Ordinal,
		Frame:   act.Frame,
		Target:  act.Target,
		Detail:  detail,
	}
}

// Replay folds an ordinal-ordered activity slice into the accumulator and
// returns the anomalies it absorbed. The slice must already be sorted
// ascending by ordinal; the store's range reads guarantee this.
func (acc *Accumulator) Replay(acts []activity.Activity) []Anomaly {
	var anomalies []Anomaly
	for _, act := range acts {
		if a := acc.Apply(act); a != nil {
			anomalies = append(anomalies, *a)
		}
	}
	return anomalies
}

// Materialize converts the accumulator's frame maps into the snapshot data
// shape: each frame's surviving records as a slice ordered by creation
// ordinal ascending (ties broken by id for full determinism).
//
// Empty frames (every record deleted) are dropped from the output.
func (acc *Accumulator) Materialize() map[string][]activity.Record {
	out := make(map[string][]activity.Record, len(acc.frames))
	for name, frame := range acc.frames {
		if len(frame) == 0 {
			continue
		}
		records := make([]activity.Record, 0, len(frame))
		for _, rec := range frame {
			records = append(records, rec)
		}
		sort.Slice(records, func(i, j int) bool {
			if records[i].CreationOrdinal != records[j].CreationOrdinal {
				return records[i].CreationOrdinal < records[j].CreationOrdinal
			}
			return records[i].ID < records[j].ID
		})
		out[name] = records
	}
	return out
}

// Result is the outcome of one snapshot computation.
type Result struct {
	Snapshot  activity.Snapshot
	Anomalies []Anomaly

	// Computed is false when the input range was empty: no new snapshot is
	// produced and the stored latest remains authoritative.
	Computed bool
}

// BuildSnapshot runs the computation engine over activities in
// (seed's ordinal, max ordinal of acts], seeded with a prior snapshot's
// frames, and materializes a candidate snapshot.
//
// An empty input range short-circuits: Computed=false and no snapshot is
// produced. Refreshing computed_at on unchanged data would force a store
// round-trip for nothing, so the skip policy is used throughout.
func BuildSnapshot(seed map[string][]activity.Record, seedOrdinal int64, acts []activity.Activity, now time.Time) Result {
	if len(acts) == 0 {
		return Result{Computed: false}
	}

	acc := Seed(seed)
	anomalies := acc.Replay(acts)

	data := acc.Materialize()
	counts := make(map[string]int, len(data))
	for frame, records := range data {
		counts[frame] = len(records)
	}

	last := seedOrdinal
	if n := acts[len(acts)-1].Ordinal; n > last {
		last = n
	}

	return Result{
		Snapshot: activity.Snapshot{
			Target:              activity.TargetAll,
			Data:                data,
			RecordCounts:        counts,
			ComputedAt:          now.UTC(),
			LastActivityOrdinal: last,
		},
		Anomalies: anomalies,
		Computed:  true,
	}
}
