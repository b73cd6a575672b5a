package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tanvi/stepflow/internal/place"
	"github.com/tanvi/stepflow/internal/plan"
	"github.com/tanvi/stepflow/internal/reason"
	"github.com/tanvi/stepflow/internal/schema"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRenderer struct {
	steps []schema.Step
	err   error
}

func (s *stubRenderer) Render(ctx context.Context, p *plan.Plan) ([]schema.Step, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.steps, nil
}

const planBody = `{"id":"plan-1","intents":[{"key":"budget","goal":"learn the budget"}]}`

func postRender(t *testing.T, r Renderer, body string) *httptest.ResponseRecorder {
	t.Helper()
	gw := NewHTTPGateway(":0", r, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/render", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleRenderOK(t *testing.T) {
	r := &stubRenderer{steps: []schema.Step{
		{ID: "step-budget", Kind: schema.KindPrompt, Position: 0, Payload: schema.Payload{Question: "Budget?"}},
	}}
	rec := postRender(t, r, planBody)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("content type = %q", ct)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}

	scanner := bufio.NewScanner(rec.Body)
	lines := 0
	for scanner.Scan() {
		var obj map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &obj); err != nil {
			t.Fatalf("body line is not JSON: %v", err)
		}
		lines++
	}
	if lines != 1 {
		t.Errorf("expected 1 JSONL line, got %d", lines)
	}
}

func TestHandleRenderBadPlan(t *testing.T) {
	r := &stubRenderer{}

	if rec := postRender(t, r, "not json"); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", rec.Code)
	}
	if rec := postRender(t, r, `{"id":"","intents":[]}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid plan: status = %d, want 400", rec.Code)
	}
}

func TestHandleRenderErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"conflict", &place.ConflictError{Index: 1, Intents: []string{"a", "b"}}, http.StatusUnprocessableEntity},
		{"cycle", &place.CycleError{Intents: []string{"a", "b"}}, http.StatusUnprocessableEntity},
		{"exhausted", &reason.ExhaustedError{Attempts: 3}, http.StatusBadGateway},
		{"timeout", &reason.TimeoutError{Attempts: 3}, http.StatusBadGateway},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := postRender(t, &stubRenderer{err: c.err}, planBody)
			if rec.Code != c.want {
				t.Errorf("status = %d, want %d", rec.Code, c.want)
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	gw := NewHTTPGateway(":0", &stubRenderer{}, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
