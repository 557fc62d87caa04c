// Package intent classifies request text into a workflow category using an
// ordered table of keyword rules.
package intent

import (
	"fmt"
	"slices"
	"strings"

	"github.com/polisai/omnis/pkg/domain"
)

// Decision is the outcome of classifying one request.
type Decision struct {
	Category domain.Category `json:"category"`
	Variant  domain.Variant  `json:"variant,omitempty"`
	Rule     string          `json:"rule"`
}

// Classifier evaluates rules in order; the first match wins and Default is the
// fallback, so classification is total. It holds no mutable state.
type Classifier struct {
	rules []Rule
}

// New creates a classifier over the given rules, in priority order.
// With no rules it uses DefaultRules.
func New(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{rules: slices.Clone(rules)}
}

// WithExtraRules returns the built-in table followed by extra, validated so every
// extra rule names a known category.
func WithExtraRules(extra []Rule) (*Classifier, error) {
	for _, r := range extra {
		if !r.Category.Valid() {
			return nil, &domain.UnknownCategoryError{Category: r.Category}
		}
		if r.Match == nil {
			return nil, &domain.ValidationError{Field: "rule " + r.Name, Reason: "has no predicate"}
		}
	}
	return New(append(DefaultRules(), extra...)...), nil
}

// Classify returns the category for text.
func (c *Classifier) Classify(text string) domain.Category {
	return c.Match(text).Category
}

// Match returns the full decision for text, including the matching rule name.
func (c *Classifier) Match(text string) Decision {
	normalized := Normalize(text)
	for _, r := range c.rules {
		if r.Match != nil && r.Match(normalized) {
			return Decision{Category: r.Category, Variant: r.Variant, Rule: r.Name}
		}
	}
	return Decision{Category: domain.CategoryDefault, Rule: RuleDefault}
}

// Rules returns the rule names in evaluation order.
func (c *Classifier) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

// Normalize lowercases text for matching.
func Normalize(text string) string {
	return strings.ToLower(text)
}

func (d Decision) String() string {
	if d.Variant != domain.VariantNone {
		return fmt.Sprintf("%s (%s) via %s", d.Category, d.Variant, d.Rule)
	}
	return fmt.Sprintf("%s via %s", d.Category, d.Rule)
}
