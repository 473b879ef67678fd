package jsonrepair

import (
	"context"
	"regexp"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/tidwall/gjson"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)```")

// trailing commas before a closing brace/bracket: ", }" or ",\n]"
var trailingComma = regexp2.MustCompile(`,(\s*[}\]])`, regexp2.None)

// a line comment, but not inside a quoted string — good enough for the
// heuristic repair pass LLMs' own chatty asides tend to produce.
var lineComment = regexp2.MustCompile(`(?m)^[ \t]*//[^\n]*$`, regexp2.None)

// LLMRepairFunc is invoked at most once, with the best-effort extracted
// JSON region, when the heuristic repair still fails to parse.
type LLMRepairFunc func(ctx context.Context, malformed string) (string, error)

// LooksLikeJSON is the router's post-processing gate: does text plausibly
// contain a JSON object/array, fenced or bare.
func LooksLikeJSON(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if fencedBlock.MatchString(trimmed) {
		return true
	}
	return strings.ContainsAny(trimmed, "{[")
}

// Extract pulls the most likely JSON region out of free-form text: a
// fenced ```json block takes priority, otherwise the substring spanning
// the first '{' or '[' to the matching last '}' or ']'.
func Extract(text string) string {
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return strings.TrimSpace(text)
	}
	openCh := text[start]
	closeCh := byte('}')
	if openCh == '[' {
		closeCh = ']'
	}
	end := strings.LastIndexByte(text, closeCh)
	if end < start {
		return strings.TrimSpace(text[start:])
	}
	return strings.TrimSpace(text[start : end+1])
}

func stripComments(s string) string {
	out, err := lineComment.Replace(s, "", -1, -1)
	if err != nil {
		return s
	}
	return out
}

func stripTrailingCommas(s string) string {
	out, err := trailingComma.Replace(s, "$1", -1, -1)
	if err != nil {
		return s
	}
	return out
}

// Repair extracts and validates JSON from text. It tries, in order:
// fenced/bracket extraction, comment + trailing-comma stripping, and
// (if llmRepair is non-nil) a single LLM-assisted repair call. ok is true
// only when the returned string is valid, gjson-parseable JSON; on
// complete failure the original text is returned unchanged with ok=false.
func Repair(ctx context.Context, text string, llmRepair LLMRepairFunc) (string, bool, error) {
	candidate := Extract(text)
	candidate = stripTrailingCommas(stripComments(candidate))
	if gjson.Valid(candidate) {
		return candidate, true, nil
	}

	if llmRepair == nil {
		return text, false, nil
	}

	repaired, err := llmRepair(ctx, candidate)
	if err != nil {
		return text, false, nil
	}
	repaired = stripTrailingCommas(stripComments(Extract(repaired)))
	if gjson.Valid(repaired) {
		return repaired, true, nil
	}
	return text, false, nil
}
