package domain

import (
	"slices"
	"strings"
	"time"
)

// Category is the closed set of workflow classes a request can be routed to.
type Category string

// Workflow categories.
const (
	CategoryGeneral        Category = "General"
	CategoryHealth         Category = "Health"
	CategoryBorderSecurity Category = "BorderSecurity"
	CategoryESGInvestment  Category = "ESGInvestment"
	CategoryCrisisResponse Category = "CrisisResponse"
	CategoryDefault        Category = "Default"
)

// Categories lists every member of the enumeration in declaration order.
func Categories() []Category {
	return []Category{
		CategoryGeneral,
		CategoryHealth,
		CategoryBorderSecurity,
		CategoryESGInvestment,
		CategoryCrisisResponse,
		CategoryDefault,
	}
}

// Valid reports whether c is a member of the enumeration.
func (c Category) Valid() bool {
	return slices.Contains(Categories(), c)
}

func (c Category) String() string { return string(c) }

// Variant refines the narrative of a category without changing its DAG.
type Variant string

// Narrative variants.
const (
	VariantNone            Variant = ""
	VariantAutonomousFleet Variant = "autonomous-fleet"
)

// Stage is a named group of agents within a workflow DAG.
type Stage struct {
	Name      string   `json:"name"`
	AgentIDs  []string `json:"agentIds"`
	DependsOn []string `json:"dependsOn"`
}

// DAG describes how agents collaborate for one category.
// Stages are kept in declaration order so output is stable.
type DAG struct {
	Category   Category `json:"category"`
	Stages     []Stage  `json:"stages"`
	RootStages []string `json:"rootStages"`
}

// Clone returns a deep copy of the DAG.
func (d DAG) Clone() DAG {
	out := DAG{
		Category:   d.Category,
		Stages:     make([]Stage, len(d.Stages)),
		RootStages: slices.Clone(d.RootStages),
	}
	for i, s := range d.Stages {
		out.Stages[i] = Stage{
			Name:      s.Name,
			AgentIDs:  slices.Clone(s.AgentIDs),
			DependsOn: slices.Clone(s.DependsOn),
		}
	}
	return out
}

// Stage returns the stage with the given name.
func (d DAG) Stage(name string) (Stage, bool) {
	for _, s := range d.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return Stage{}, false
}

// Phase names a segment of the simulated execution narrative.
type Phase string

// Narrative phases, in the order they are emitted.
const (
	PhaseReasoning Phase = "reasoning"
	PhaseAnalysis  Phase = "performing analysis"
	PhaseCompleted Phase = "completed"
)

// Segment is one unit of narrative output.
type Segment struct {
	Phase Phase  `json:"phase"`
	Text  string `json:"text"`
}

// ExecutionRecord is the immutable result of one simulated execution.
type ExecutionRecord struct {
	RequestID   string    `json:"requestId"`
	Category    Category  `json:"category"`
	Variant     Variant   `json:"variant,omitempty"`
	DAG         DAG       `json:"dag"`
	Narrative   []Segment `json:"narrative"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
}

// Message joins the narrative segments into a single message body.
func (r *ExecutionRecord) Message() string {
	parts := make([]string, 0, len(r.Narrative))
	for _, s := range r.Narrative {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, "\n\n")
}
