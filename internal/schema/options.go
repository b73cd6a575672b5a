package schema

import (
	"fmt"
	"regexp"
	"strings"
)

var optionNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

func normalizeOptionLabel(text string) string {
	return strings.TrimSpace(optionNonAlnum.ReplaceAllString(strings.ToLower(text), " "))
}

func slugOptionValue(label string) string {
	base := strings.Trim(strings.ReplaceAll(normalizeOptionLabel(label), " ", "_"), "_")
	if base == "" {
		return "option"
	}
	return base
}

// coerceOptions normalizes a raw option array into canonical {label, value}
// pairs. Bare strings get slugged values; duplicate values are deduped with
// numeric suffixes so values stay unique within one step.
func coerceOptions(raw []any) []Option {
	out := make([]Option, 0, len(raw))
	seen := make(map[string]int)

	for _, entry := range raw {
		var label, value string
		switch v := entry.(type) {
		case string:
			label = strings.TrimSpace(v)
			value = slugOptionValue(label)
		case map[string]any:
			rawLabel, _ := v["label"].(string)
			rawValue, _ := v["value"].(string)
			label = strings.TrimSpace(rawLabel)
			if label == "" {
				label = strings.TrimSpace(rawValue)
			}
			value = strings.TrimSpace(rawValue)
			if value == "" {
				value = slugOptionValue(label)
			}
		default:
			continue
		}

		if label == "" {
			continue
		}
		if n, dup := seen[value]; dup {
			seen[value] = n + 1
			value = fmt.Sprintf("%s_%d", value, n+1)
		} else {
			seen[value] = 1
		}
		out = append(out, Option{Label: label, Value: value})
	}
	return out
}

// placeholderPatterns are junk tokens some models leave in option copy when
// they truncate generation.
var placeholderPatterns = []string{"<<max_depth>>", "<<max_depth", "max_depth>>", "<max_depth>", "max_depth"}

func isPlaceholderOption(label, value string) bool {
	combined := strings.ToLower(label + " " + value)
	for _, p := range placeholderPatterns {
		if strings.Contains(combined, p) {
			return true
		}
	}
	return false
}

// OptionsFromStrings builds canonical options from plain labels. Used for
// plan-derived fallback steps, which never see model output.
func OptionsFromStrings(labels []string) []Option {
	raw := make([]any, 0, len(labels))
	for _, l := range labels {
		raw = append(raw, l)
	}
	return coerceOptions(raw)
}

// cleanOptions drops placeholder entries before coercion.
func cleanOptions(raw []any) []Option {
	kept := make([]any, 0, len(raw))
	for _, entry := range raw {
		switch v := entry.(type) {
		case string:
			if !isPlaceholderOption(v, "") {
				kept = append(kept, v)
			}
		case map[string]any:
			label, _ := v["label"].(string)
			value, _ := v["value"].(string)
			if !isPlaceholderOption(label, value) {
				kept = append(kept, v)
			}
		}
	}
	return coerceOptions(kept)
}
