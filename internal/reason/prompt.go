package reason

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tanvi/stepflow/internal/plan"
	"github.com/tanvi/stepflow/internal/schema"
)

func joinBlocks(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, "\n\n") + "\n"
}

func bullets(title string, items []string) string {
	lines := make([]string, 0, len(items))
	for _, b := range items {
		if t := strings.TrimSpace(b); t != "" {
			lines = append(lines, "- "+t)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return joinBlocks(title, strings.Join(lines, "\n"))
}

// RendererPrompt builds the system prompt for the step-rendering call.
func RendererPrompt() string {
	kinds := []string{
		string(schema.KindPrompt),
		string(schema.KindChoice),
		string(schema.KindInfo),
		string(schema.KindTerminal),
	}
	return joinBlocks(
		"Render a given question plan into strict JSONL UI steps.",
		joinBlocks(
			"ROLE AND GOAL:",
			"You are the Step Renderer.",
			"Convert a question plan into valid UI steps for the frontend.",
		),
		bullets("HARD RULES:", []string{
			"Output MUST be JSONL only: one JSON object per line, nothing else.",
			"Do not include prose, markdown, or code fences.",
			"Do NOT invent new plan items, steps, or keys. Only render items from `intents[]`.",
			"If an intent includes `type_hint`, you MUST set the output step `kind` to that exact value.",
			`Deterministic ids: id = "step-" + key with "_" replaced by "-".`,
			"Emit exactly one step per intent.",
			fmt.Sprintf("Allowed step kinds: %s.", strings.Join(kinds, ", ")),
			"Copy must be user-facing (never output 'Ask user...' / meta-instructions).",
			"Use the intent's `question` as the step `question` when present; otherwise rewrite `goal` into a user-facing question.",
			"For choice kinds, include options (use `option_hints` when present; otherwise generate realistic options).",
		}),
	)
}

// renderView is the subset of an intent the model needs. Placement hints are
// withheld: ordering is restored deterministically downstream.
type renderView struct {
	Key         string   `json:"key"`
	Goal        string   `json:"goal"`
	Question    string   `json:"question,omitempty"`
	TypeHint    string   `json:"type_hint,omitempty"`
	OptionHints []string `json:"option_hints,omitempty"`
	Required    bool     `json:"required,omitempty"`
}

// PlanPayload serializes the plan into the compact JSON handed to the model.
func PlanPayload(p *plan.Plan) (string, error) {
	views := make([]renderView, 0, len(p.Intents))
	for _, it := range p.Intents {
		views = append(views, renderView{
			Key:         plan.NormalizeKey(it.Key),
			Goal:        it.Goal,
			Question:    it.Question,
			TypeHint:    it.TypeHint,
			OptionHints: it.OptionHints,
			Required:    it.Required,
		})
	}
	data, err := json.Marshal(map[string]any{
		"plan_id":   p.ID,
		"max_steps": len(p.Intents),
		"intents":   views,
	})
	if err != nil {
		return "", fmt.Errorf("failed to serialize plan %s: %v", p.ID, err)
	}
	return string(data), nil
}
