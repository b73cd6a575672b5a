package reason

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tanvi/stepflow/internal/plan"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// scriptedModel returns its outputs in order, one per call.
type scriptedModel struct {
	outputs  []string
	delay    time.Duration
	calls    int
	messages [][]llms.MessageContent
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.calls++
	m.messages = append(m.messages, messages)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	out := ""
	if m.calls-1 < len(m.outputs) {
		out = m.outputs[m.calls-1]
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: out}},
	}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(schema.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func testPlan() *plan.Plan {
	return &plan.Plan{
		ID: "plan-1",
		Intents: []plan.Intent{
			{Key: "budget", Goal: "learn the budget"},
		},
	}
}

const goodOutput = `{"id":"step-budget","kind":"prompt","question":"What is your budget?"}`

func TestInvokeFirstTry(t *testing.T) {
	model := &scriptedModel{outputs: []string{goodOutput}}
	iv := NewInvoker(model, 2, time.Second, nil)

	candidates, err := iv.Invoke(context.Background(), testPlan())
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 || model.calls != 1 {
		t.Errorf("candidates=%d calls=%d, want 1 and 1", len(candidates), model.calls)
	}
}

func TestInvokeRetriesThenSucceeds(t *testing.T) {
	model := &scriptedModel{outputs: []string{"garbage", "still garbage", goodOutput}}
	iv := NewInvoker(model, 2, time.Second, nil)

	candidates, err := iv.Invoke(context.Background(), testPlan())
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if model.calls != 3 {
		t.Errorf("expected 3 calls, got %d", model.calls)
	}

	// Each retry must append a note about the previous failure.
	last := model.messages[len(model.messages)-1]
	if len(last) != 4 {
		t.Fatalf("expected system + plan + 2 failure notes, got %d messages", len(last))
	}
	note, ok := last[3].Parts[0].(llms.TextContent)
	if !ok || !strings.Contains(note.Text, "unusable") {
		t.Errorf("missing failure note in retry messages: %+v", last[3])
	}
}

func TestInvokeExhausted(t *testing.T) {
	model := &scriptedModel{outputs: []string{"a", "b", "c"}}
	iv := NewInvoker(model, 2, time.Second, nil)

	_, err := iv.Invoke(context.Background(), testPlan())
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", exhausted.Attempts)
	}
	if exhausted.LastFailure == nil {
		t.Error("ExhaustedError must name the last parse failure")
	}
	if model.calls != 3 {
		t.Errorf("expected 3 calls, got %d", model.calls)
	}
}

func TestInvokeTimeout(t *testing.T) {
	model := &scriptedModel{outputs: []string{goodOutput}, delay: 200 * time.Millisecond}
	iv := NewInvoker(model, 1, 10*time.Millisecond, nil)

	_, err := iv.Invoke(context.Background(), testPlan())
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if model.calls != 2 {
		t.Errorf("timeouts must consume the retry budget: %d calls", model.calls)
	}
}

func TestInvokeCanceled(t *testing.T) {
	model := &scriptedModel{outputs: []string{goodOutput}, delay: time.Second}
	iv := NewInvoker(model, 2, time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := iv.Invoke(ctx, testPlan())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if model.calls != 1 {
		t.Errorf("cancellation must not be retried: %d calls", model.calls)
	}
}
