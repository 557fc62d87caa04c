package workflow

import (
	"testing"

	"github.com/polisai/omnis/pkg/catalog"
	"github.com/polisai/omnis/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestComposer(t *testing.T) *Composer {
	t.Helper()
	c, err := NewComposer(catalog.Default())
	require.NoError(t, err)
	return c
}

func TestCompose_ESGPipelineOrder(t *testing.T) {
	c := newTestComposer(t)

	dag, err := c.Compose(domain.CategoryESGInvestment)
	require.NoError(t, err)

	order, err := TopologicalOrder(dag)
	require.NoError(t, err)
	assert.Equal(t, []string{StageAcquisition, StageValidation, StageCalculation, StageReporting}, order)
	assert.Equal(t, []string{StageAcquisition}, dag.RootStages)

	validation, ok := dag.Stage(StageValidation)
	require.True(t, ok)
	assert.Equal(t, []string{StageAcquisition}, validation.DependsOn)

	calculation, _ := dag.Stage(StageCalculation)
	assert.Equal(t, []string{StageValidation}, calculation.DependsOn)

	reporting, _ := dag.Stage(StageReporting)
	assert.Equal(t, []string{StageCalculation}, reporting.DependsOn)
}

func TestCompose_EveryCategoryIsDeterministicAndAcyclic(t *testing.T) {
	c := newTestComposer(t)

	for _, category := range domain.Categories() {
		t.Run(string(category), func(t *testing.T) {
			first, err := c.Compose(category)
			require.NoError(t, err)
			second, err := c.Compose(category)
			require.NoError(t, err)

			assert.Equal(t, first, second)
			assert.Equal(t, category, first.Category)
			assert.NotEmpty(t, first.RootStages)
			assert.NoError(t, Validate(first))
		})
	}
}

func TestCompose_ReturnsIndependentCopies(t *testing.T) {
	c := newTestComposer(t)

	dag, err := c.Compose(domain.CategoryHealth)
	require.NoError(t, err)
	dag.Stages[0].AgentIDs[0] = "tampered"
	dag.Stages = append(dag.Stages, domain.Stage{Name: "extra"})

	again, err := c.Compose(domain.CategoryHealth)
	require.NoError(t, err)
	assert.Equal(t, catalog.AgentHealth, again.Stages[0].AgentIDs[0])
	_, found := again.Stage("extra")
	assert.False(t, found)
}

func TestCompose_UnknownCategory(t *testing.T) {
	c := newTestComposer(t)

	_, err := c.Compose("Sports")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownCategory)
}

func TestNewComposer_RejectsMissingAgents(t *testing.T) {
	small, err := catalog.New([]domain.Agent{{ID: catalog.AgentDemo}})
	require.NoError(t, err)

	_, err = NewComposer(small)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestLevels_BorderDiamond(t *testing.T) {
	c := newTestComposer(t)

	dag, err := c.Compose(domain.CategoryBorderSecurity)
	require.NoError(t, err)

	levels, err := Levels(dag)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"monitoring"},
		{"risk-assessment", "compliance"},
		{"briefing"},
	}, levels)
}

func TestComposeProperty_AllTemplatesAcyclic(t *testing.T) {
	c := newTestComposer(t)

	rapid.Check(t, func(t *rapid.T) {
		category := rapid.SampledFrom(domain.Categories()).Draw(t, "category")
		dag, err := c.Compose(category)
		if err != nil {
			t.Fatalf("compose %s: %v", category, err)
		}

		order, err := TopologicalOrder(dag)
		if err != nil {
			t.Fatalf("order %s: %v", category, err)
		}
		position := make(map[string]int, len(order))
		for i, name := range order {
			position[name] = i
		}
		for _, s := range dag.Stages {
			for _, dep := range s.DependsOn {
				if position[dep] >= position[s.Name] {
					t.Fatalf("stage %s ordered before its dependency %s", s.Name, dep)
				}
			}
		}
	})
}
