package workflow

import (
	"fmt"

	"github.com/polisai/omnis/pkg/domain"
)

// Validate checks the structural invariants of a DAG: stage names are unique,
// every dependency names a stage in the same DAG, and no stage depends on itself
// directly or transitively.
func Validate(d domain.DAG) error {
	index := make(map[string]int, len(d.Stages))
	for i, s := range d.Stages {
		if s.Name == "" {
			return &domain.ValidationError{Field: fmt.Sprintf("stages[%d].name", i), Reason: "must not be blank"}
		}
		if _, dup := index[s.Name]; dup {
			return &domain.ValidationError{Field: "stages", Reason: fmt.Sprintf("duplicate stage %q", s.Name)}
		}
		index[s.Name] = i
	}

	for _, s := range d.Stages {
		for _, dep := range s.DependsOn {
			if _, ok := index[dep]; !ok {
				return &domain.ValidationError{
					Field:  "stages." + s.Name + ".dependsOn",
					Reason: fmt.Sprintf("unknown stage %q", dep),
				}
			}
		}
	}

	if hasCycle(d) {
		return domain.ErrCycleDetected
	}
	return nil
}

// hasCycle uses depth-first search with colouring to detect back edges.
func hasCycle(d domain.DAG) bool {
	// 0 = unvisited, 1 = in progress, 2 = done.
	colors := make(map[string]int, len(d.Stages))
	deps := make(map[string][]string, len(d.Stages))
	for _, s := range d.Stages {
		deps[s.Name] = s.DependsOn
	}

	var visit func(name string) bool
	visit = func(name string) bool {
		colors[name] = 1
		for _, dep := range deps[name] {
			switch colors[dep] {
			case 1:
				return true
			case 0:
				if visit(dep) {
					return true
				}
			}
		}
		colors[name] = 2
		return false
	}

	for _, s := range d.Stages {
		if colors[s.Name] == 0 && visit(s.Name) {
			return true
		}
	}
	return false
}

// Roots returns the names of stages with no dependencies, in declaration order.
func Roots(d domain.DAG) []string {
	roots := make([]string, 0, 1)
	for _, s := range d.Stages {
		if len(s.DependsOn) == 0 {
			roots = append(roots, s.Name)
		}
	}
	return roots
}

// TopologicalOrder returns stage names so that every stage follows its
// dependencies. Ties are broken by declaration order, so the result is stable.
func TopologicalOrder(d domain.DAG) ([]string, error) {
	if err := Validate(d); err != nil {
		return nil, err
	}

	remaining := make(map[string]int, len(d.Stages))
	dependents := make(map[string][]string, len(d.Stages))
	for _, s := range d.Stages {
		remaining[s.Name] = len(s.DependsOn)
		for _, dep := range s.DependsOn {
			dependents[dep] = append(dependents[dep], s.Name)
		}
	}

	order := make([]string, 0, len(d.Stages))
	done := make(map[string]bool, len(d.Stages))
	for len(order) < len(d.Stages) {
		progressed := false
		for _, s := range d.Stages {
			if done[s.Name] || remaining[s.Name] > 0 {
				continue
			}
			done[s.Name] = true
			order = append(order, s.Name)
			for _, next := range dependents[s.Name] {
				remaining[next]--
			}
			progressed = true
			break
		}
		if !progressed {
			return nil, domain.ErrCycleDetected
		}
	}
	return order, nil
}

// Levels groups stage names into waves that could run concurrently: every stage
// in a wave depends only on stages in earlier waves.
func Levels(d domain.DAG) ([][]string, error) {
	order, err := TopologicalOrder(d)
	if err != nil {
		return nil, err
	}
	if len(order) == 0 {
		return nil, nil
	}

	depth := make(map[string]int, len(order))
	maxDepth := 0
	for _, name := range order {
		s, _ := d.Stage(name)
		level := 0
		for _, dep := range s.DependsOn {
			if depth[dep]+1 > level {
				level = depth[dep] + 1
			}
		}
		depth[name] = level
		if level > maxDepth {
			maxDepth = level
		}
	}

	levels := make([][]string, maxDepth+1)
	for _, s := range d.Stages {
		levels[depth[s.Name]] = append(levels[depth[s.Name]], s.Name)
	}
	return levels, nil
}
