package place

import (
	"fmt"
	"strings"

	"github.com/tanvi/stepflow/internal/plan"
	"github.com/tanvi/stepflow/internal/schema"
)

// ConflictError reports contradictory explicit placement: two intents
// resolving to the same index, an index outside the sequence, or a relative
// hint with no free slot left on its side of the reference.
type ConflictError struct {
	Index   int
	Intents []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("placement conflict at index %d between intents %s", e.Index, strings.Join(e.Intents, ", "))
}

// CycleError reports a relative-hint graph with no valid linear extension.
type CycleError struct {
	Intents []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("placement hint cycle involving intents %s", strings.Join(e.Intents, ", "))
}

// Placer assigns final sequence positions. It is fully deterministic: the
// same plan and the same validated steps always produce identical positions.
type Placer struct {
	// PassLimit bounds relative-hint relaxation. Zero means one pass per
	// plan intent, which is always enough for an acyclic hint graph.
	PassLimit int
}

// IntentSteps maps validated steps back onto plan intents by derived step
// id. Steps whose id matches no intent are dropped (the model must not
// invent steps); when two steps claim one intent the first wins.
func IntentSteps(p *plan.Plan, steps []schema.Step) map[string]schema.Step {
	idToKey := make(map[string]string, len(p.Intents))
	for _, it := range p.Intents {
		key := plan.NormalizeKey(it.Key)
		idToKey[plan.StepID(key)] = key
	}

	out := make(map[string]schema.Step, len(steps))
	for _, s := range steps {
		key, ok := idToKey[schema.NormalizeStepID(s.ID)]
		if !ok {
			continue
		}
		if _, taken := out[key]; taken {
			continue
		}
		out[key] = s
	}
	return out
}

// Place produces the final ordered sequence: exactly one step per intent, at
// positions 0..n-1. Intents without a surviving valid step get a
// deterministic plan-derived fallback step.
func (pl *Placer) Place(p *plan.Plan, steps []schema.Step) ([]schema.Step, error) {
	norm := p.Normalize()
	n := len(norm.Intents)
	slots := make([]string, n) // position -> intent key, "" while free
	placed := make(map[string]int, n)

	assign := func(key string, pos int) {
		slots[pos] = key
		placed[key] = pos
	}

	// Phase 1: explicit index hints.
	for _, it := range norm.Intents {
		if it.Hint() != plan.HintIndex {
			continue
		}
		idx := it.Placement.Index
		if idx < 0 || idx >= n {
			return nil, &ConflictError{Index: idx, Intents: []string{it.Key}}
		}
		if prev := slots[idx]; prev != "" {
			return nil, &ConflictError{Index: idx, Intents: []string{prev, it.Key}}
		}
		assign(it.Key, idx)
	}

	// Phase 2: relative hints by iterative relaxation. A hint resolves once
	// its reference has a final position; chains resolve over passes.
	var pending []*plan.Intent
	for i := range norm.Intents {
		switch norm.Intents[i].Hint() {
		case plan.HintBefore, plan.HintAfter:
			pending = append(pending, &norm.Intents[i])
		}
	}

	limit := pl.PassLimit
	if limit <= 0 {
		limit = n
	}

	for pass := 0; pass < limit && len(pending) > 0; pass++ {
		progressed := false
		var still []*plan.Intent

		for _, it := range pending {
			ref, known := norm.IntentByKey(it.Placement.Ref)
			if !known {
				// Hint points outside the plan: fall back to unconstrained
				// placement in phase 3.
				progressed = true
				continue
			}

			refPos, ok := placed[ref.Key]
			if !ok && ref.Hint() == plan.HintNone {
				// The anchor is hintless and would otherwise only be placed
				// in phase 3; pull it forward so the chain can resolve. A
				// before hint needs room on the anchor's left, so the
				// dependent lands in the first free gap and the anchor takes
				// the next one after it.
				if it.Placement.Kind == plan.HintBefore {
					pos, free := firstFree(slots, 0, +1)
					if !free {
						return nil, &ConflictError{Index: n - 1, Intents: []string{it.Key, ref.Key}}
					}
					assign(it.Key, pos)
					anchor, free := firstFree(slots, pos+1, +1)
					if !free {
						return nil, &ConflictError{Index: pos, Intents: []string{it.Key, ref.Key}}
					}
					assign(ref.Key, anchor)
					progressed = true
					continue
				}
				pos, free := firstFree(slots, 0, +1)
				if !free {
					return nil, &ConflictError{Index: n - 1, Intents: []string{ref.Key}}
				}
				assign(ref.Key, pos)
				refPos, ok = pos, true
			}
			if !ok {
				still = append(still, it)
				continue
			}

			var pos int
			var free bool
			if it.Placement.Kind == plan.HintAfter {
				pos, free = firstFree(slots, refPos+1, +1)
			} else {
				pos, free = firstFree(slots, refPos-1, -1)
			}
			if !free {
				return nil, &ConflictError{Index: refPos, Intents: []string{it.Key, ref.Key}}
			}
			assign(it.Key, pos)
			progressed = true
		}

		pending = still
		if !progressed {
			break
		}
	}

	if len(pending) > 0 {
		keys := make([]string, 0, len(pending))
		for _, it := range pending {
			keys = append(keys, it.Key)
		}
		return nil, &CycleError{Intents: keys}
	}

	// Phase 3: everything else in plan intent order, first free gap wins.
	for _, it := range norm.Intents {
		if _, done := placed[it.Key]; done {
			continue
		}
		pos, free := firstFree(slots, 0, +1)
		if !free {
			return nil, &ConflictError{Index: n - 1, Intents: []string{it.Key}}
		}
		assign(it.Key, pos)
	}

	byIntent := IntentSteps(norm, steps)

	out := make([]schema.Step, n)
	for pos, key := range slots {
		it, _ := norm.IntentByKey(key)
		step, ok := byIntent[key]
		if !ok {
			step = FallbackStep(it)
		}
		step.ID = plan.StepID(key)
		step.Position = pos
		out[pos] = step
	}
	return out, nil
}

// firstFree scans slots from start in the given direction and returns the
// first free index.
func firstFree(slots []string, start, dir int) (int, bool) {
	for i := start; i >= 0 && i < len(slots); i += dir {
		if slots[i] == "" {
			return i, true
		}
	}
	return 0, false
}

// FallbackStep derives a step purely from the plan when the reasoning output
// omitted an intent or its step was rejected. The content policy: use the
// intent's own question, else its goal, else the key words; honor the type
// hint when it can be satisfied without invented content, otherwise demote
// to a free-text prompt.
func FallbackStep(it *plan.Intent) schema.Step {
	copyText := strings.TrimSpace(it.Question)
	if copyText == "" {
		copyText = strings.TrimSpace(it.Goal)
	}
	if copyText == "" {
		copyText = strings.ReplaceAll(plan.NormalizeKey(it.Key), "_", " ")
	}

	kind := schema.KindPrompt
	if hinted, ok := schema.ParseKind(strings.ToLower(strings.TrimSpace(it.TypeHint))); ok {
		kind = hinted
	}

	step := schema.Step{Kind: kind, Position: -1}
	switch kind {
	case schema.KindChoice:
		options := schema.OptionsFromStrings(it.OptionHints)
		if len(options) == 0 {
			// A choice without options can't validate; ask in free text.
			step.Kind = schema.KindPrompt
			step.Payload.Question = copyText
			step.Payload.Required = it.Required
			break
		}
		step.Payload.Question = copyText
		step.Payload.Options = options
		step.Payload.Required = it.Required
	case schema.KindInfo, schema.KindTerminal:
		step.Payload.Title = copyText
	default:
		step.Payload.Question = copyText
		step.Payload.Required = it.Required
	}
	return step
}
