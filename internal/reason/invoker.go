package reason

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tanvi/stepflow/internal/observability"
	"github.com/tanvi/stepflow/internal/parse"
	"github.com/tanvi/stepflow/internal/plan"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// ExhaustedError is returned when every attempt produced unusable output.
type ExhaustedError struct {
	Attempts    int
	LastFailure error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("reasoning exhausted after %d attempts: %v", e.Attempts, e.LastFailure)
}

func (e *ExhaustedError) Unwrap() error { return e.LastFailure }

// TimeoutError is returned when retries ran out and the final attempt timed
// out rather than returning malformed output.
type TimeoutError struct {
	Attempts int
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("reasoning timed out after %d attempts (per-call timeout %s)", e.Attempts, e.Timeout)
}

// Invoker wraps the external reasoning call. It owns the
// retry-on-malformed-output policy: a raw batch that fails parsing is thrown
// away and the call repeated, with a terse note about the failure appended so
// the next attempt can steer away from it. The call itself stays
// non-deterministic; ordering determinism is restored by the placer.
type Invoker struct {
	Model       llms.Model
	MaxRetries  int
	CallTimeout time.Duration
	Logger      *observability.Logger
}

func NewInvoker(model llms.Model, maxRetries int, callTimeout time.Duration, logger *observability.Logger) *Invoker {
	return &Invoker{
		Model:       model,
		MaxRetries:  maxRetries,
		CallTimeout: callTimeout,
		Logger:      logger,
	}
}

// Invoke renders the plan through the model and returns parsed candidate
// steps. At most MaxRetries additional calls are made after a failed parse.
func (iv *Invoker) Invoke(ctx context.Context, p *plan.Plan) ([]parse.Candidate, error) {
	payload, err := PlanPayload(p)
	if err != nil {
		return nil, err
	}

	messages := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(RendererPrompt())},
		},
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(payload)},
		},
	}

	attempts := iv.MaxRetries + 1
	var lastErr error
	timedOut := false

	for attempt := 1; attempt <= attempts; attempt++ {
		if iv.Logger != nil {
			iv.Logger.LogInvoke(p.ID, attempt, len(p.Intents))
		}

		raw, err := iv.call(ctx, messages)
		if err != nil {
			// Caller cancellation is not retryable: abandon the render.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			timedOut = errors.Is(err, context.DeadlineExceeded)
			lastErr = err
			messages = appendFailureNote(messages, err)
			if iv.Logger != nil {
				iv.Logger.LogRetry(p.ID, attempt, err.Error())
			}
			continue
		}

		if iv.Logger != nil {
			iv.Logger.LogLLM(p.ID, attempt, raw)
		}

		candidates, perr := parse.Steps(raw)
		if perr != nil {
			timedOut = false
			lastErr = perr
			messages = appendFailureNote(messages, perr)
			if iv.Logger != nil {
				iv.Logger.LogRetry(p.ID, attempt, perr.Error())
			}
			continue
		}
		return candidates, nil
	}

	if timedOut {
		return nil, &TimeoutError{Attempts: attempts, Timeout: iv.CallTimeout}
	}
	return nil, &ExhaustedError{Attempts: attempts, LastFailure: lastErr}
}

func (iv *Invoker) call(ctx context.Context, messages []llms.MessageContent) (string, error) {
	callCtx := ctx
	if iv.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, iv.CallTimeout)
		defer cancel()
	}

	resp, err := iv.Model.GenerateContent(callCtx, messages)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return resp.Choices[0].Content, nil
}

func appendFailureNote(messages []llms.MessageContent, cause error) []llms.MessageContent {
	note := fmt.Sprintf("Your previous output was unusable (%v). Respond again with ONLY JSONL: one JSON object per line, one step per intent, no prose.", cause)
	return append(messages, llms.MessageContent{
		Role:  schema.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(note)},
	})
}
