package activity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ValidationError reports a malformed activity shape, detected synchronously
// at ingestion. Activities that fail validation are never stored.
type ValidationError struct {
	// Field names the offending field ("operator", "payload.fields", ...).
	Field string

	// Reason is a human-readable description.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid activity: %s: %s", e.Field, e.Reason)
}

// IsValidationError returns true if the error is a ValidationError.
// Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks the structural shape of an activity input, including the
// operator-specific payload shape. It does not consult any stored state:
// referencing a nonexistent target is legal here and absorbed during replay.
func (in Input) Validate() error {
	if in.Agent == "" {
		return &ValidationError{Field: "agent", Reason: "must not be empty"}
	}
	if _, err := uuid.Parse(in.UUID); err != nil {
		return &ValidationError{Field: "uuid", Reason: "must be a valid UUID"}
	}
	if !ValidOperators[in.Operator] {
		return &ValidationError{Field: "operator", Reason: fmt.Sprintf("unknown operator %q", in.Operator)}
	}
	if in.Target == "" {
		return &ValidationError{Field: "target", Reason: "must not be empty"}
	}
	if in.Frame == "" {
		return &ValidationError{Field: "frame", Reason: "must not be empty"}
	}
	return validatePayload(in.Operator, in.Payload)
}

// validatePayload checks the operator-specific payload shape.
func validatePayload(op Operator, raw json.RawMessage) error {
	switch op {
	case OpInsert:
		var p InsertPayload
		if err := strictUnmarshal(raw, &p); err != nil {
			return &ValidationError{Field: "payload", Reason: err.Error()}
		}
		if p.Fields == nil {
			return &ValidationError{Field: "payload.fields", Reason: "required for INS"}
		}
		return nil
	case OpAlter:
		var p AlterPayload
		if err := strictUnmarshal(raw, &p); err != nil {
			return &ValidationError{Field: "payload", Reason: err.Error()}
		}
		if p.Field == "" {
			return &ValidationError{Field: "payload.field", Reason: "required for ALT"}
		}
		if len(p.NewValue) == 0 {
			return &ValidationError{Field: "payload.new_value", Reason: "required for ALT"}
		}
		return nil
	case OpRemove:
		// Both NUL payload fields are optional; an absent payload is legal.
		if len(raw) == 0 {
			return nil
		}
		var p RemovePayload
		if err := strictUnmarshal(raw, &p); err != nil {
			return &ValidationError{Field: "payload", Reason: err.Error()}
		}
		return nil
	}
	// Unreachable when called after operator validation; kept explicit so the
	// switch stays exhaustive.
	return &ValidationError{Field: "operator", Reason: fmt.Sprintf("unknown operator %q", op)}
}

// strictUnmarshal decodes JSON rejecting fields the payload shape does not
// declare. Unknown fields in a payload are a client bug worth surfacing at
// ingestion rather than silently dropping.
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("payload must not be empty")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	return nil
}
