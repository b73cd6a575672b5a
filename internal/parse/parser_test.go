package parse

import (
	"errors"
	"testing"
)

func TestStepsHappyPath(t *testing.T) {
	raw := `{"id":"step-a","kind":"prompt","question":"A?"}
{"id":"step-b","kind":"choice","question":"B?","options":["x","y"]}

{"id":"step-c","kind":"info","title":"C"}`

	candidates, err := Steps(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}
	if candidates[1].Fields["id"] != "step-b" {
		t.Errorf("unexpected second candidate: %+v", candidates[1].Fields)
	}
	if candidates[2].Line != 4 {
		t.Errorf("line tracking off: got %d, want 4", candidates[2].Line)
	}
}

func TestStepsStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"id\":\"step-a\",\"kind\":\"prompt\",\"question\":\"A?\"}\n```"
	candidates, err := Steps(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
}

func TestStepsExtractsWrappedObjects(t *testing.T) {
	// Some models prefix a record with stray text on the same line.
	raw := `step 1: {"id":"step-a","kind":"prompt","question":"A?"}`
	candidates, err := Steps(raw)
	if err != nil {
		t.Fatal(err)
	}
	if candidates[0].Fields["id"] != "step-a" {
		t.Errorf("wrapped object not extracted: %+v", candidates[0].Fields)
	}
}

func TestStepsMalformedBatch(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "  \n \n"},
		{"prose", "I could not produce any steps."},
		{"bad line aborts batch", "{\"id\":\"step-a\",\"kind\":\"prompt\",\"question\":\"A?\"}\nnot json at all"},
		{"array not object", `["step-a","step-b"]`},
		{"bare number", "123"},
		{"bare null aborts batch", "null\n{\"id\":\"step-a\",\"kind\":\"prompt\",\"question\":\"A?\"}"},
		{"fences only", "```json\n```"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Steps(c.raw)
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("expected *parse.Error, got %v", err)
			}
		})
	}
}

func TestStepsErrorNamesLine(t *testing.T) {
	_, err := Steps("{\"id\":\"step-a\",\"kind\":\"prompt\",\"question\":\"A?\"}\ngarbage")
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *parse.Error, got %v", err)
	}
	if perr.Line != 2 {
		t.Errorf("error line = %d, want 2", perr.Line)
	}
}
