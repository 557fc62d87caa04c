package intent

import (
	"strings"

	"github.com/polisai/omnis/pkg/domain"
)

// Predicate tests normalised (lowercased) request text.
type Predicate func(text string) bool

// Rule maps a predicate to a category. Rules are evaluated in order and the
// first match wins.
type Rule struct {
	Name     string
	Category domain.Category
	Variant  domain.Variant
	Match    Predicate
}

// Contains matches when the text contains token.
func Contains(token string) Predicate {
	token = strings.ToLower(token)
	return func(text string) bool {
		return strings.Contains(text, token)
	}
}

// Any matches when the text contains at least one of the tokens.
func Any(tokens ...string) Predicate {
	preds := make([]Predicate, len(tokens))
	for i, t := range tokens {
		preds[i] = Contains(t)
	}
	return Or(preds...)
}

// Or matches when at least one predicate matches.
func Or(preds ...Predicate) Predicate {
	return func(text string) bool {
		for _, p := range preds {
			if p(text) {
				return true
			}
		}
		return false
	}
}

// All matches when every predicate matches.
func All(preds ...Predicate) Predicate {
	return func(text string) bool {
		for _, p := range preds {
			if !p(text) {
				return false
			}
		}
		return len(preds) > 0
	}
}

// Rule names of the built-in table.
const (
	RuleAutonomousFleet = "autonomous-fleet"
	RuleHealth          = "health"
	RuleBorderSecurity  = "border-security"
	RuleESGInvestment   = "esg-investment"
	RuleCrisisResponse  = "crisis-response"
	RuleDefault         = "default"
)

// DefaultRules returns the built-in rule table in priority order. The
// autonomous-fleet phrase overlaps the general health tokens, so it comes first.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     RuleAutonomousFleet,
			Category: domain.CategoryHealth,
			Variant:  domain.VariantAutonomousFleet,
			Match:    All(Contains("autonomous"), Any("performance", "fleet")),
		},
		{
			Name:     RuleHealth,
			Category: domain.CategoryHealth,
			Match:    Any("health", "medical", "measles", "outbreak"),
		},
		{
			Name:     RuleBorderSecurity,
			Category: domain.CategoryBorderSecurity,
			Match:    Any("border", "security", "customs"),
		},
		{
			Name:     RuleESGInvestment,
			Category: domain.CategoryESGInvestment,
			Match: Any(
				"esg", "scope", "carbon", "emission", "investment", "portfolio",
				"analysis", "excel", "spreadsheet", "upload",
			),
		},
		{
			Name:     RuleCrisisResponse,
			Category: domain.CategoryCrisisResponse,
			Match:    Any("disaster", "emergency", "weather"),
		},
	}
}

// KeywordRule builds a rule that matches when any of the tokens is present.
// Blank tokens are ignored; a rule with no tokens never matches.
func KeywordRule(name string, category domain.Category, tokens []string) Rule {
	kept := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, t)
		}
	}
	return Rule{Name: name, Category: category, Match: Any(kept...)}
}
