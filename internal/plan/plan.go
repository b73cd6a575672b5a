package plan

import (
	"fmt"
	"regexp"
	"strings"
)

// HintKind identifies how an intent wants to be positioned in the final
// sequence. An empty kind means the intent is unconstrained.
type HintKind string

const (
	HintNone   HintKind = ""
	HintIndex  HintKind = "index"
	HintBefore HintKind = "before"
	HintAfter  HintKind = "after"
)

// Placement is an optional per-intent ordering hint.
type Placement struct {
	Kind  HintKind `json:"kind,omitempty"`
	Index int      `json:"index,omitempty"`
	Ref   string   `json:"ref,omitempty"` // intent key, for before/after
}

// Intent is one atomic unit of the plan. Every intent produces exactly one
// step in the rendered sequence.
type Intent struct {
	Key         string     `json:"key"`
	Goal        string     `json:"goal"`
	Question    string     `json:"question,omitempty"`
	TypeHint    string     `json:"type_hint,omitempty"`
	OptionHints []string   `json:"option_hints,omitempty"`
	Required    bool       `json:"required,omitempty"`
	Placement   *Placement `json:"placement,omitempty"`
}

// Plan is the upstream question plan. It is read-only to the renderer.
type Plan struct {
	ID      string   `json:"id"`
	Intents []Intent `json:"intents"`
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeKey canonicalizes an intent key: lowercase, runs of
// non-alphanumerics collapsed to a single underscore, capped at 48 chars.
func NormalizeKey(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	if t == "" {
		return ""
	}
	t = nonAlnum.ReplaceAllString(t, "_")
	t = strings.Trim(t, "_")
	if len(t) > 48 {
		t = t[:48]
	}
	return t
}

// StepID derives the stable step identifier for an intent key. The id comes
// from the plan, never from the model, so re-renders keep step identity.
func StepID(key string) string {
	return "step-" + strings.ReplaceAll(key, "_", "-")
}

// Hint returns the intent's placement hint kind, HintNone when absent.
func (i *Intent) Hint() HintKind {
	if i.Placement == nil {
		return HintNone
	}
	return i.Placement.Kind
}

// Validate checks the plan invariants: a plan id, at least one intent, and
// unique normalized intent keys.
func (p *Plan) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("plan: missing id")
	}
	if len(p.Intents) == 0 {
		return fmt.Errorf("plan %s: no intents", p.ID)
	}
	seen := make(map[string]bool, len(p.Intents))
	for n, it := range p.Intents {
		key := NormalizeKey(it.Key)
		if key == "" {
			return fmt.Errorf("plan %s: intent %d has no key", p.ID, n)
		}
		if seen[key] {
			return fmt.Errorf("plan %s: duplicate intent key %q", p.ID, key)
		}
		seen[key] = true
		if pl := it.Placement; pl != nil {
			switch pl.Kind {
			case HintNone, HintIndex:
			case HintBefore, HintAfter:
				if NormalizeKey(pl.Ref) == "" {
					return fmt.Errorf("plan %s: intent %q has a %s hint with no ref", p.ID, key, pl.Kind)
				}
			default:
				return fmt.Errorf("plan %s: intent %q has unknown hint kind %q", p.ID, key, pl.Kind)
			}
		}
	}
	return nil
}

// Normalize returns a copy of the plan with all intent keys and hint refs
// normalized. The placer and invoker both work on the normalized form.
func (p *Plan) Normalize() *Plan {
	out := &Plan{ID: p.ID, Intents: make([]Intent, len(p.Intents))}
	for n, it := range p.Intents {
		c := it
		c.Key = NormalizeKey(it.Key)
		if it.Placement != nil {
			pl := *it.Placement
			pl.Ref = NormalizeKey(pl.Ref)
			c.Placement = &pl
		}
		out.Intents[n] = c
	}
	return out
}

// IntentByKey looks up an intent by normalized key.
func (p *Plan) IntentByKey(key string) (*Intent, bool) {
	for n := range p.Intents {
		if NormalizeKey(p.Intents[n].Key) == key {
			return &p.Intents[n], true
		}
	}
	return nil, false
}
