package guardrail

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tanvi/stepflow/internal/schema"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request contains the content of a validated step to be evaluated.
type Request struct {
	StepID   string
	Kind     schema.Kind
	Question string
	Options  []schema.Option
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates step content against a set of guardrails.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultPolicyEngine is a basic implementation of PolicyEngine. It rejects
// "toy" option sets and option terms that signal the model filled a choice
// with filler content instead of real answers, plus any copy that matches a
// denied pattern.
type DefaultPolicyEngine struct {
	BannedOptionSets [][]string
	DeniedTerms      map[string]bool
	DeniedCopy       []*regexp.Regexp
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		BannedOptionSets: [][]string{
			{"red", "blue", "green"},
			{"circle", "square", "triangle"},
		},
		DeniedTerms: map[string]bool{"abstract": true},
		DeniedCopy:  make([]*regexp.Regexp, 0),
	}
}

// DenyTerm blocks any step whose option copy contains the given term.
func (e *DefaultPolicyEngine) DenyTerm(term string) {
	e.DeniedTerms[strings.ToLower(term)] = true
}

// DenyCopy blocks any step whose question copy matches the given pattern.
func (e *DefaultPolicyEngine) DenyCopy(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.DeniedCopy = append(e.DeniedCopy, re)
	return nil
}

var labelNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

func optionTokens(options []schema.Option) map[string]bool {
	tokens := make(map[string]bool)
	for _, opt := range options {
		label := opt.Label
		if label == "" {
			label = opt.Value
		}
		norm := strings.TrimSpace(labelNonAlnum.ReplaceAllString(strings.ToLower(label), " "))
		if norm == "" {
			continue
		}
		parts := strings.Fields(norm)
		if len(parts) == 1 {
			tokens[parts[0]] = true
		}
	}
	return tokens
}

func (e *DefaultPolicyEngine) bannedSet(options []schema.Option) (string, bool) {
	tokens := optionTokens(options)
	for _, banned := range e.BannedOptionSets {
		all := true
		for _, term := range banned {
			if !tokens[term] {
				all = false
				break
			}
		}
		if all && len(tokens) <= len(banned)+1 {
			return strings.Join(banned, "/"), true
		}
	}
	for _, opt := range options {
		combined := strings.ToLower(opt.Label + " " + opt.Value)
		for term := range e.DeniedTerms {
			if strings.Contains(combined, term) {
				return term, true
			}
		}
	}
	return "", false
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	if req.Kind == schema.KindChoice {
		if term, banned := e.bannedSet(req.Options); banned {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("step '%s' uses a banned option set (%s)", req.StepID, term),
			}, nil
		}
	}

	for _, re := range e.DeniedCopy {
		if re.MatchString(req.Question) {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("copy matches restricted pattern: %s", re.String()),
			}, nil
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "Approved by default policy",
	}, nil
}
