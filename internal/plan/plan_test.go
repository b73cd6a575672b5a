package plan

import "testing"

func TestNormalizeKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Budget Range", "budget_range"},
		{"  project--goal  ", "project_goal"},
		{"UPLOAD (logo)", "upload_logo"},
		{"___", ""},
	}
	for _, c := range cases {
		if got := NormalizeKey(c.in); got != c.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestStepID(t *testing.T) {
	if got := StepID("budget_range"); got != "step-budget-range" {
		t.Errorf("StepID = %q, want step-budget-range", got)
	}
}

func TestValidate(t *testing.T) {
	good := Plan{
		ID: "plan-1",
		Intents: []Intent{
			{Key: "intro", Goal: "welcome the user"},
			{Key: "budget", Goal: "learn the budget", Placement: &Placement{Kind: HintAfter, Ref: "intro"}},
		},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid plan rejected: %v", err)
	}

	noID := Plan{Intents: []Intent{{Key: "a", Goal: "g"}}}
	if err := noID.Validate(); err == nil {
		t.Error("expected error for missing plan id")
	}

	dup := Plan{
		ID: "plan-2",
		Intents: []Intent{
			{Key: "Budget Range", Goal: "g"},
			{Key: "budget_range", Goal: "g"},
		},
	}
	if err := dup.Validate(); err == nil {
		t.Error("expected error for duplicate normalized keys")
	}

	danglingRef := Plan{
		ID: "plan-3",
		Intents: []Intent{
			{Key: "a", Goal: "g", Placement: &Placement{Kind: HintBefore}},
		},
	}
	if err := danglingRef.Validate(); err == nil {
		t.Error("expected error for relative hint without ref")
	}

	badKind := Plan{
		ID: "plan-4",
		Intents: []Intent{
			{Key: "a", Goal: "g", Placement: &Placement{Kind: "around"}},
		},
	}
	if err := badKind.Validate(); err == nil {
		t.Error("expected error for unknown hint kind")
	}
}

func TestNormalize(t *testing.T) {
	p := Plan{
		ID: "plan-1",
		Intents: []Intent{
			{Key: "Budget Range", Goal: "g", Placement: &Placement{Kind: HintAfter, Ref: "Project Goal"}},
		},
	}
	n := p.Normalize()
	if n.Intents[0].Key != "budget_range" {
		t.Errorf("key not normalized: %q", n.Intents[0].Key)
	}
	if n.Intents[0].Placement.Ref != "project_goal" {
		t.Errorf("ref not normalized: %q", n.Intents[0].Placement.Ref)
	}
	// Original must be untouched
	if p.Intents[0].Placement.Ref != "Project Goal" {
		t.Error("Normalize mutated the source plan")
	}
}
