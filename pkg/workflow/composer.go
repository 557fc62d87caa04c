// Package workflow builds the static DAG templates that describe how agents
// collaborate for each workflow category.
package workflow

import (
	"fmt"

	"github.com/polisai/omnis/pkg/catalog"
	"github.com/polisai/omnis/pkg/domain"
)

// Composer hands out immutable DAG templates. Composing the same category twice
// yields structurally equal DAGs.
type Composer struct {
	templates map[domain.Category]domain.DAG
}

// NewComposer validates every template and checks that each referenced agent is
// registered in cat. A nil catalog skips the agent check.
func NewComposer(cat *catalog.Catalog) (*Composer, error) {
	built := make(map[domain.Category]domain.DAG, len(templates))

	for _, category := range domain.Categories() {
		tmpl, ok := templates[category]
		if !ok {
			return nil, &domain.UnknownCategoryError{Category: category}
		}

		dag := tmpl.Clone()
		dag.RootStages = Roots(dag)
		if err := Validate(dag); err != nil {
			return nil, fmt.Errorf("template %s: %w", category, err)
		}

		if cat != nil {
			for _, s := range dag.Stages {
				for _, id := range s.AgentIDs {
					if !cat.Contains(id) {
						return nil, fmt.Errorf("template %s stage %s: %w", category, s.Name,
							&domain.NotFoundError{Kind: "agent", ID: id})
					}
				}
			}
		}

		built[category] = dag
	}

	return &Composer{templates: built}, nil
}

// Compose returns the DAG for category.
func (c *Composer) Compose(category domain.Category) (domain.DAG, error) {
	dag, ok := c.templates[category]
	if !ok {
		return domain.DAG{}, &domain.UnknownCategoryError{Category: category}
	}
	return dag.Clone(), nil
}

// Describe returns every template keyed by category, for catalog-style dumps.
func (c *Composer) Describe() map[domain.Category]domain.DAG {
	out := make(map[domain.Category]domain.DAG, len(c.templates))
	for k, v := range c.templates {
		out[k] = v.Clone()
	}
	return out
}
