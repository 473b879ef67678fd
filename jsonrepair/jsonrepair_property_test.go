package jsonrepair

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
	"pgregory.net/rapid"
)

// buildObject renders a small flat JSON object from generated field names
// and values, with an optional trailing comma and line comment inserted —
// the two malformations Repair is meant to strip.
func buildObject(rt *rapid.T) (clean string, dirty string) {
	n := rapid.IntRange(1, 4).Draw(rt, "numFields")
	fields := ""
	for i := 0; i < n; i++ {
		name := rapid.StringMatching(`[a-z][a-z0-9]{0,6}`).Draw(rt, fmt.Sprintf("field_%d", i))
		value := rapid.IntRange(0, 1000).Draw(rt, fmt.Sprintf("value_%d", i))
		if i > 0 {
			fields += ","
		}
		fields += fmt.Sprintf("%q:%d", name, value)
	}
	clean = "{" + fields + "}"

	withComment := rapid.Bool().Draw(rt, "withComment")
	withTrailingComma := rapid.Bool().Draw(rt, "withTrailingComma")
	withFence := rapid.Bool().Draw(rt, "withFence")

	body := "{" + fields
	if withTrailingComma {
		body += ","
	}
	body += "}"

	dirty = body
	if withComment {
		dirty = "// a helpful aside\n" + dirty
	}
	if withFence {
		dirty = "```json\n" + dirty + "\n```"
	}
	return clean, dirty
}

// TestProperty_Repair_RoundTripsWellFormedFields checks that Repair always
// recovers a valid, field-preserving JSON object from text that wraps it in
// any combination of a fenced code block, a line comment, and a trailing
// comma — the malformations the heuristic pass is built to undo.
func TestProperty_Repair_RoundTripsWellFormedFields(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		clean, dirty := buildObject(rt)

		repaired, ok, err := Repair(context.Background(), dirty, nil)
		assert.NoError(rt, err)
		assert.True(rt, ok, "expected Repair to succeed on %q", dirty)
		assert.True(rt, gjson.Valid(repaired), "repaired output must be valid JSON: %q", repaired)

		want := gjson.Parse(clean)
		got := gjson.Parse(repaired)
		want.ForEach(func(key, value gjson.Result) bool {
			assert.True(rt, got.Get(key.String()).Exists(), "missing field %s in repaired output", key.String())
			assert.Equal(rt, value.Raw, got.Get(key.String()).Raw, "field %s value mismatch", key.String())
			return true
		})
	})
}

// TestProperty_Repair_IdempotentOnAlreadyValidJSON checks that re-repairing
// already-clean JSON returns it unchanged (modulo whitespace Extract may
// trim), rather than mangling valid input on a second pass.
func TestProperty_Repair_IdempotentOnAlreadyValidJSON(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		clean, _ := buildObject(rt)

		first, ok, err := Repair(context.Background(), clean, nil)
		assert.NoError(rt, err)
		assert.True(rt, ok)

		second, ok2, err2 := Repair(context.Background(), first, nil)
		assert.NoError(rt, err2)
		assert.True(rt, ok2)
		assert.Equal(rt, first, second)
	})
}
