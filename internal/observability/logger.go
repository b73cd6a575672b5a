package observability

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeInvoke    EventType = "invoke"
	EventTypeRetry     EventType = "retry"
	EventTypeReject    EventType = "reject"
	EventTypePlace     EventType = "place"
	EventTypeRender    EventType = "render"
	EventTypeArchive   EventType = "archive"
	EventTypeHeartbeat EventType = "heartbeat"
	EventTypeLLM       EventType = "llm"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	PlanID    string    `json:"plan_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging.
type Logger struct {
	llmLogPath string
	maxSize    int64
}

func NewLogger() *Logger {
	return &Logger{
		llmLogPath: filepath.Join("logs", "llm.jsonl"),
		maxSize:    10 * 1024 * 1024, // 10MB
	}
}

// Log emits a structured JSON event to stdout.
func (l *Logger) Log(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Printf("{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Println(string(data))

	if evt.Type == EventTypeLLM {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogInvoke(planID string, attempt, intents int) {
	l.Log(Event{
		Type:   EventTypeInvoke,
		PlanID: planID,
		Data: map[string]any{
			"attempt": attempt,
			"intents": intents,
		},
	})
}

func (l *Logger) LogRetry(planID string, attempt int, reason string) {
	l.Log(Event{
		Type:   EventTypeRetry,
		PlanID: planID,
		Data: map[string]any{
			"attempt": attempt,
			"reason":  reason,
		},
	})
}

func (l *Logger) LogReject(planID, stepID, reason string) {
	l.Log(Event{
		Type:   EventTypeReject,
		PlanID: planID,
		Data: map[string]string{
			"step_id": stepID,
			"reason":  reason,
		},
	})
}

func (l *Logger) LogRender(planID string, steps, rejected, fallbacks int, latency time.Duration) {
	l.Log(Event{
		Type:   EventTypeRender,
		PlanID: planID,
		Data: map[string]any{
			"steps":      steps,
			"rejected":   rejected,
			"fallbacks":  fallbacks,
			"latency_ms": latency.Milliseconds(),
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

func (l *Logger) LogLLM(planID string, attempt int, raw string) {
	l.Log(Event{
		Type:   EventTypeLLM,
		PlanID: planID,
		Data: map[string]any{
			"attempt": attempt,
			"raw":     raw,
		},
	})
}
