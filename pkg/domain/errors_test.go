package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	notFound := fmt.Errorf("lookup: %w", &NotFoundError{Kind: "agent", ID: "agent-x"})
	assert.True(t, IsNotFound(notFound))
	assert.Equal(t, "lookup: agent not found: agent-x", notFound.Error())

	unknown := &UnknownCategoryError{Category: "Sports"}
	assert.True(t, errors.Is(unknown, ErrUnknownCategory))
	assert.False(t, errors.Is(unknown, ErrNotFound))

	invalid := &ValidationError{Field: "identity", Reason: "must not be blank"}
	assert.True(t, IsValidation(invalid))
	assert.Equal(t, "invalid identity: must not be blank", invalid.Error())
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"empty prompt", fmt.Errorf("execute: %w", ErrEmptyPrompt), CodeEmptyPrompt},
		{"validation", &ValidationError{Field: "view", Reason: "unknown"}, CodeValidationFailed},
		{"not found", &NotFoundError{Kind: "agent", ID: "a"}, CodeNotFound},
		{"unknown category", &UnknownCategoryError{Category: "x"}, CodeUnknownCategory},
		{"rate limited", ErrRateLimited, CodeRateLimited},
		{"other", errors.New("boom"), CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories() {
		assert.True(t, c.Valid(), "category %s should be valid", c)
	}
	assert.False(t, Category("Sports").Valid())
	assert.False(t, Category("").Valid())
}

func TestDAGCloneIsDeep(t *testing.T) {
	original := DAG{
		Category:   CategoryGeneral,
		Stages:     []Stage{{Name: "intake", AgentIDs: []string{"agent-demo"}}},
		RootStages: []string{"intake"},
	}
	clone := original.Clone()
	clone.Stages[0].AgentIDs[0] = "agent-other"
	clone.RootStages[0] = "changed"

	assert.Equal(t, "agent-demo", original.Stages[0].AgentIDs[0])
	assert.Equal(t, "intake", original.RootStages[0])
}
