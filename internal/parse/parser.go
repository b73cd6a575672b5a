package parse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Candidate is one decoded but not-yet-validated step record.
type Candidate struct {
	Line   int
	Fields map[string]any
}

// Error reports a malformed raw batch. The whole batch is discarded and the
// invoker retries; single bad records that still decode are left to the
// validator instead.
type Error struct {
	Line   int
	Reason string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse: line %d: %s", e.Line, e.Reason)
	}
	return "parse: " + e.Reason
}

var (
	fenceLine = regexp.MustCompile("^```[a-zA-Z]*$")
	objectRe  = regexp.MustCompile(`\{[\s\S]*\}`)
)

// decodeObject decodes one line as a JSON object, falling back to the first
// {...} span when the model wrapped the record in stray text.
func decodeObject(line string) (map[string]any, bool) {
	var obj map[string]any
	// A nil map means the line was a bare JSON null, not an object.
	if err := json.Unmarshal([]byte(line), &obj); err == nil && obj != nil {
		return obj, true
	}
	span := objectRe.FindString(line)
	if span == "" {
		return nil, false
	}
	var fromSpan map[string]any
	if err := json.Unmarshal([]byte(span), &fromSpan); err != nil {
		return nil, false
	}
	return fromSpan, true
}

// Steps splits raw reasoning output into candidate step records, one JSON
// object per line. Code fence markers are skipped. Any non-empty line that
// fails to decode as an object aborts the whole batch with *Error.
func Steps(raw string) ([]Candidate, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &Error{Reason: "empty output"}
	}

	var out []Candidate
	for n, line := range strings.Split(raw, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || fenceLine.MatchString(t) {
			continue
		}
		obj, ok := decodeObject(t)
		if !ok {
			return nil, &Error{Line: n + 1, Reason: "record is not a JSON object"}
		}
		out = append(out, Candidate{Line: n + 1, Fields: obj})
	}

	if len(out) == 0 {
		return nil, &Error{Reason: "no records in output"}
	}
	return out, nil
}
