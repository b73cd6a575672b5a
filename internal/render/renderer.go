package render

import (
	"context"
	"fmt"
	"time"

	"github.com/tanvi/stepflow/internal/guardrail"
	"github.com/tanvi/stepflow/internal/observability"
	"github.com/tanvi/stepflow/internal/parse"
	"github.com/tanvi/stepflow/internal/place"
	"github.com/tanvi/stepflow/internal/plan"
	"github.com/tanvi/stepflow/internal/schema"
)

// Stage names the pipeline stage a fatal error surfaced from. Parsing loops
// inside the invoker's retry budget, so a parse failure that escapes is an
// invoke-stage failure.
type Stage string

const (
	StageInvoke   Stage = "invoke"
	StageValidate Stage = "validate"
	StagePlace    Stage = "place"
)

// Error is the single error type surfaced to callers. It wraps the first
// fatal cause; recoverable failures (single rejected candidates, retried
// parse failures) never reach it.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render failed during %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Invoker is the reasoning dependency of the renderer.
type Invoker interface {
	Invoke(ctx context.Context, p *plan.Plan) ([]parse.Candidate, error)
}

// Renderer composes invoke -> validate -> place into one render call. Each
// call is self-contained: no state is shared across calls, so concurrent
// renders of different plans need no coordination.
type Renderer struct {
	Invoker Invoker
	Placer  *place.Placer
	Policy  guardrail.PolicyEngine
	Logger  *observability.Logger
}

func NewRenderer(invoker Invoker, placer *place.Placer, policy guardrail.PolicyEngine, logger *observability.Logger) *Renderer {
	return &Renderer{
		Invoker: invoker,
		Placer:  placer,
		Policy:  policy,
		Logger:  logger,
	}
}

// Render turns one plan into its final ordered step sequence. It is
// all-or-nothing: on any fatal failure the caller gets an *Error and no
// partial sequence.
func (r *Renderer) Render(ctx context.Context, p *plan.Plan) ([]schema.Step, error) {
	started := time.Now()

	candidates, err := r.Invoker.Invoke(ctx, p)
	if err != nil {
		return nil, &Error{Stage: StageInvoke, Err: err}
	}

	valid := make([]schema.Step, 0, len(candidates))
	rejected := 0
	for _, c := range candidates {
		step, verr := schema.Validate(c.Fields)
		if verr != nil {
			rejected++
			if r.Logger != nil {
				r.Logger.LogReject(p.ID, step.ID, verr.Error())
			}
			continue
		}
		if r.Policy != nil {
			res, perr := r.Policy.Evaluate(ctx, guardrail.Request{
				StepID:   step.ID,
				Kind:     step.Kind,
				Question: step.Payload.Question,
				Options:  step.Payload.Options,
			})
			if perr != nil {
				return nil, &Error{Stage: StageValidate, Err: perr}
			}
			if res.Effect == guardrail.EffectDeny {
				rejected++
				if r.Logger != nil {
					r.Logger.LogReject(p.ID, step.ID, res.Reason)
				}
				continue
			}
		}
		valid = append(valid, step)
	}

	seq, err := r.Placer.Place(p, valid)
	if err != nil {
		return nil, &Error{Stage: StagePlace, Err: err}
	}

	if r.Logger != nil {
		fallbacks := len(seq) - len(place.IntentSteps(p, valid))
		r.Logger.LogRender(p.ID, len(seq), rejected, fallbacks, time.Since(started))
	}
	return seq, nil
}
