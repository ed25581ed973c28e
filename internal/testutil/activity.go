package testutil

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/halyardlabs/snapview/internal/activity"
)

// BaseTime is the reference instant activity builders stamp by default.
var BaseTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// Insert builds an INS activity. fields must be JSON-marshalable.
func Insert(ordinal int64, frame, target string, fields map[string]any) activity.Activity {
	payload, err := json.Marshal(activity.InsertPayload{ID: target, Fields: fields})
	if err != nil {
		panic(fmt.Sprintf("marshal INS payload: %v", err))
	}
	return build(ordinal, activity.OpInsert, frame, target, payload)
}

// Alter builds an ALT activity setting field to newValue.
func Alter(ordinal int64, frame, target, field string, newValue any) activity.Activity {
	raw, err := json.Marshal(newValue)
	if err != nil {
		panic(fmt.Sprintf("marshal ALT new_value: %v", err))
	}
	payload, err := json.Marshal(activity.AlterPayload{Field: field, NewValue: raw})
	if err != nil {
		panic(fmt.Sprintf("marshal ALT payload: %v", err))
	}
	return build(ordinal, activity.OpAlter, frame, target, payload)
}

// Remove builds a NUL activity.
func Remove(ordinal int64, frame, target string) activity.Activity {
	return build(ordinal, activity.OpRemove, frame, target, json.RawMessage("{}"))
}

func build(ordinal int64, op activity.Operator, frame, target string, payload json.RawMessage) activity.Activity {
	return activity.Activity{
		Ordinal:   ordinal,
		ID:        fmt.Sprintf("act-%d", ordinal),
		UUID:      fmt.Sprintf("00000000-0000-4000-8000-%012d", ordinal),
		Agent:     "test-agent",
		Operator:  op,
		Target:    target,
		Frame:     frame,
		Payload:   payload,
		CreatedAt: BaseTime.Add(time.Duration(ordinal) * time.Minute),
	}
}
