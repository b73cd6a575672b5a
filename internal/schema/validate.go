package schema

import (
	"fmt"
	"strings"
)

// ValidationError reports one rejected candidate step. Field is the path of
// the offending field, e.g. "kind" or "payload.options".
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid step: %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NormalizeStepID canonicalizes a step id the way the frontend expects:
// underscores become hyphens and the leading "step-" prefix is preserved.
func NormalizeStepID(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), "_", "-")
}

func stringField(fields map[string]any, keys ...string) (string, string, bool) {
	for _, k := range keys {
		v, present := fields[k]
		if !present || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return "", k, false
		}
		if t := strings.TrimSpace(s); t != "" {
			return t, k, true
		}
	}
	return "", "", true
}

func boolField(fields map[string]any, keys ...string) (bool, string, bool) {
	for _, k := range keys {
		v, present := fields[k]
		if !present || v == nil {
			continue
		}
		b, ok := v.(bool)
		if !ok {
			return false, k, false
		}
		return b, "", true
	}
	return false, "", true
}

// Validate checks one decoded candidate record against the step schema and
// returns a normalized Step with Position unset. Unknown fields are dropped.
// It is pure: the same input always yields the same step or the same error.
func Validate(fields map[string]any) (Step, error) {
	var step Step
	step.Position = -1

	id, badKey, ok := stringField(fields, "id", "stepId", "step_id", "stepID")
	if !ok {
		return step, invalid(badKey, "must be a string")
	}
	if id == "" {
		return step, invalid("id", "missing step id")
	}
	step.ID = NormalizeStepID(id)

	rawKind, badKey, ok := stringField(fields, "kind", "type", "component_hint", "componentHint")
	if !ok {
		return step, invalid(badKey, "must be a string")
	}
	if rawKind == "" {
		return step, invalid("kind", "missing step kind")
	}
	kind, known := ParseKind(strings.ToLower(rawKind))
	if !known {
		return step, invalid("kind", "unrecognized kind %q", rawKind)
	}
	step.Kind = kind

	question, badKey, ok := stringField(fields, "question", "title")
	if !ok {
		return step, invalid("payload."+badKey, "must be a string")
	}
	title, badKey, ok := stringField(fields, "title", "question")
	if !ok {
		return step, invalid("payload."+badKey, "must be a string")
	}
	body, badKey, ok := stringField(fields, "body", "message", "description")
	if !ok {
		return step, invalid("payload."+badKey, "must be a string")
	}

	required, badKey, ok := boolField(fields, "required")
	if !ok {
		return step, invalid("payload."+badKey, "must be a boolean")
	}

	switch kind {
	case KindPrompt, KindChoice:
		if question == "" {
			return step, invalid("payload.question", "missing question copy")
		}
		step.Payload.Question = question
		step.Payload.Required = required
	case KindInfo, KindTerminal:
		if title == "" {
			return step, invalid("payload.title", "missing title copy")
		}
		step.Payload.Title = title
		step.Payload.Body = body
	}

	if kind == KindPrompt {
		placeholder, badKey, ok := stringField(fields, "placeholder")
		if !ok {
			return step, invalid("payload."+badKey, "must be a string")
		}
		step.Payload.Placeholder = placeholder
	}

	if kind == KindChoice {
		rawOptions, present := fields["options"]
		if !present || rawOptions == nil {
			return step, invalid("payload.options", "choice steps need options")
		}
		list, ok := rawOptions.([]any)
		if !ok {
			return step, invalid("payload.options", "must be an array")
		}
		options := cleanOptions(list)
		if len(options) == 0 {
			return step, invalid("payload.options", "no usable options")
		}
		step.Payload.Options = options

		multi, badKey, ok := boolField(fields, "allow_multiple", "allowMultiple", "multi_select", "multiSelect")
		if !ok {
			return step, invalid("payload."+badKey, "must be a boolean")
		}
		step.Payload.AllowMultiple = multi
	}

	return step, nil
}
