// Package narrator parses raw narrator output into a narrative segment and a
// structured payload. The narrator transport itself is an external
// collaborator; this package only has to survive whatever text it produces.
package narrator

import (
	"encoding/json"
	"strings"

	"github.com/dcowern/whispyrkeep/internal/campaign/domain"
)

// Section markers the narrator is prompted to emit. Parsing tolerates their
// absence: real narrator output drifts.
const (
	NarrativeMarker = "=== NARRATIVE ==="
	PayloadMarker   = "=== STATE ==="
)

// Payload is the machine-readable segment of a narrator response. Every list
// is independently optional and independently defaults to empty.
type Payload struct {
	RollRequests []domain.RollRequest `json:"roll_requests"`
	StatePatch   domain.StatePatch    `json:"state_patch"`
	LoreDeltas   []domain.LoreDelta   `json:"lore_deltas"`
}

// IsEmpty reports whether the payload carries nothing. An empty payload is
// valid: a purely narrative turn is an ordinary turn.
func (p Payload) IsEmpty() bool {
	return len(p.RollRequests) == 0 && len(p.StatePatch) == 0 && len(p.LoreDeltas) == 0
}

// Result is the outcome of parsing one narrator response. A malformed or
// missing payload never discards recovered narrative: Narrative is populated
// whenever any usable text exists, and Errors records what went wrong.
type Result struct {
	Narrative    string
	Payload      Payload
	PayloadFound bool
	Errors       []string
}

// Parse splits raw narrator output into narrative text and a structured
// payload. Resolution order: explicit markers first, then a scan for the
// first top-level JSON object, then narrative-only with a recorded error.
func Parse(raw string) Result {
	var result Result

	if idx := strings.Index(raw, PayloadMarker); idx >= 0 {
		result.Narrative = cleanNarrative(raw[:idx])
		payloadText := stripCodeFence(strings.TrimSpace(raw[idx+len(PayloadMarker):]))
		if payloadText == "" {
			result.Errors = append(result.Errors, "payload marker present but payload is empty")
			return result
		}
		if err := json.Unmarshal([]byte(payloadText), &result.Payload); err != nil {
			result.Errors = append(result.Errors, "malformed structured payload: "+err.Error())
			return result
		}
		result.PayloadFound = true
		return result
	}

	// No marker: scan for the first top-level JSON object.
	start, end := firstJSONObject(raw)
	if start < 0 {
		result.Narrative = cleanNarrative(raw)
		result.Errors = append(result.Errors, "no structured payload found in narrator output")
		return result
	}

	if err := json.Unmarshal([]byte(raw[start:end]), &result.Payload); err != nil {
		result.Narrative = cleanNarrative(raw)
		result.Errors = append(result.Errors, "malformed structured payload: "+err.Error())
		return result
	}
	result.PayloadFound = true
	result.Narrative = cleanNarrative(joinSegments(raw[:start], raw[end:]))
	return result
}

// cleanNarrative strips markers and surrounding whitespace from a narrative
// segment.
func cleanNarrative(text string) string {
	text = strings.ReplaceAll(text, NarrativeMarker, "")
	return strings.TrimSpace(text)
}

// joinSegments merges the text around an extracted payload back into one
// narrative block.
func joinSegments(before, after string) string {
	before = strings.TrimSpace(before)
	after = strings.TrimSpace(after)
	switch {
	case before == "":
		return after
	case after == "":
		return before
	default:
		return before + "\n\n" + after
	}
}

// stripCodeFence removes a surrounding markdown code fence, with or without
// a language tag.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		// Drop the language tag line (e.g. "json").
		firstLine := strings.TrimSpace(text[:idx])
		if firstLine == "" || !strings.ContainsAny(firstLine, "{}") {
			text = text[idx+1:]
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// firstJSONObject returns the bounds of the first balanced top-level JSON
// object in text, or (-1, -1). Braces inside JSON strings are ignored.
func firstJSONObject(text string) (int, int) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			c := text[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					if json.Valid([]byte(text[start : i+1])) {
						return start, i + 1
					}
					// Not valid JSON; try the next opening brace.
					next := strings.IndexByte(text[start+1:], '{')
					if next < 0 {
						return -1, -1
					}
					start = start + 1 + next
					i = len(text)
				}
			}
		}
		if depth != 0 {
			return -1, -1
		}
	}
	return -1, -1
}
