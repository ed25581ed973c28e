package activity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validUUID = "0191a2b3-c4d5-7e6f-8a9b-0c1d2e3f4a5b"

func validInput(op Operator, payload string) Input {
	return Input{
		Agent:    "agent-1",
		UUID:     validUUID,
		Operator: op,
		Target:   "org_1",
		Frame:    "organizations",
		Payload:  json.RawMessage(payload),
	}
}

func TestValidate_AcceptsWellFormedInputs(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"INS", validInput(OpInsert, `{"id":"org_1","fields":{"name":"Acme"}}`)},
		{"INS empty fields", validInput(OpInsert, `{"id":"org_1","fields":{}}`)},
		{"ALT", validInput(OpAlter, `{"field":"name","new_value":"B"}`)},
		{"ALT with advisory old_value", validInput(OpAlter, `{"field":"name","old_value":"A","new_value":"B"}`)},
		{"NUL with reason", validInput(OpRemove, `{"reason":"cleanup"}`)},
		{"NUL empty payload", validInput(OpRemove, `{}`)},
		{"NUL absent payload", validInput(OpRemove, ``)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, tt.in.Validate())
		})
	}
}

func TestValidate_RejectsMalformedInputs(t *testing.T) {
	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{"empty agent", Input{UUID: validUUID, Operator: OpRemove, Target: "t", Frame: "f"}, "agent"},
		{"bad uuid", Input{Agent: "a", UUID: "nope", Operator: OpRemove, Target: "t", Frame: "f"}, "uuid"},
		{"unknown operator", func() Input { in := validInput("UPD", `{}`); return in }(), "operator"},
		{"empty target", func() Input { in := validInput(OpRemove, `{}`); in.Target = ""; return in }(), "target"},
		{"empty frame", func() Input { in := validInput(OpRemove, `{}`); in.Frame = ""; return in }(), "frame"},
		{"INS missing fields", validInput(OpInsert, `{"id":"org_1"}`), "payload.fields"},
		{"INS payload not JSON", validInput(OpInsert, `{oops`), "payload"},
		{"INS unknown payload key", validInput(OpInsert, `{"id":"x","fields":{},"extra":1}`), "payload"},
		{"ALT missing field", validInput(OpAlter, `{"new_value":"B"}`), "payload.field"},
		{"ALT missing new_value", validInput(OpAlter, `{"field":"name"}`), "payload.new_value"},
		{"INS empty payload", validInput(OpInsert, ``), "payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			require.Error(t, err)
			assert.True(t, IsValidationError(err), "expected ValidationError, got %T", err)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestRecord_CloneIsDeep(t *testing.T) {
	rec := Record{
		ID:              "org_1",
		Fields:          map[string]any{"name": "Acme"},
		CreationOrdinal: 1,
	}

	clone := rec.Clone()
	clone.Fields["name"] = "Changed"

	assert.Equal(t, "Acme", rec.Fields["name"])
}
