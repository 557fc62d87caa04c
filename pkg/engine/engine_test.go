package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/polisai/omnis/pkg/attachment"
	"github.com/polisai/omnis/pkg/catalog"
	"github.com/polisai/omnis/pkg/domain"
	"github.com/polisai/omnis/pkg/intent"
	"github.com/polisai/omnis/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()

	if opts.Simulator == nil {
		sim := NewSimulator(SimulatorConfig{}, NewSeededSelector(1), discardLogger())
		sim.sleep = func(time.Duration) {}
		opts.Simulator = sim
	}
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}

	e, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func stageOrder(t *testing.T, dag domain.DAG) []string {
	t.Helper()

	order, err := workflow.TopologicalOrder(dag)
	require.NoError(t, err)
	return order
}

func TestEngine_ListAndGetAgents(t *testing.T) {
	e := newTestEngine(t, Options{})

	agents := e.ListAgents()
	require.Len(t, agents, len(catalog.DefaultAgents()))
	assert.Equal(t, catalog.AgentDemo, agents[0].ID)

	agent, err := e.GetAgent(catalog.AgentESG)
	require.NoError(t, err)
	assert.Equal(t, catalog.AgentESG, agent.ID)

	_, err = e.GetAgent("agent-unknown")
	assert.True(t, domain.IsNotFound(err))
}

func TestEngine_Workflows(t *testing.T) {
	e := newTestEngine(t, Options{})

	workflows, err := e.Workflows()
	require.NoError(t, err)
	require.Len(t, workflows, len(domain.Categories()))

	for i, w := range workflows {
		assert.Equal(t, domain.Categories()[i], w.Category)
		assert.Equal(t, w.Category, w.DAG.Category)
	}

	esg := workflows[3]
	require.Equal(t, domain.CategoryESGInvestment, esg.Category)
	assert.Equal(t, [][]string{{"acquisition"}, {"validation"}, {"calculation"}, {"reporting"}}, esg.Levels)

	// Callers get copies of the templates.
	esg.DAG.Stages[0].Name = "mutated"
	again, err := e.Workflows()
	require.NoError(t, err)
	assert.Equal(t, "acquisition", again[3].DAG.Stages[0].Name)
}

func TestEngine_SubmitESGScenario(t *testing.T) {
	e := newTestEngine(t, Options{})

	result, err := e.Submit(context.Background(), SubmitRequest{
		Identity: "analyst",
		Text:     "How can I calculate financed emissions for my portfolio using an Excel upload",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.CategoryESGInvestment, result.Category)
	assert.Equal(t, []string{
		workflow.StageAcquisition,
		workflow.StageValidation,
		workflow.StageCalculation,
		workflow.StageReporting,
	}, stageOrder(t, result.DAG))
	assert.NotEmpty(t, result.RequestID)
	assert.Len(t, result.NarrativeSegments, 3)
	assert.Contains(t, result.Message, "has completed the analysis")
	assert.False(t, result.CompletedAt.Before(result.StartedAt))

	session, ok := e.GetSession(context.Background(), "analyst")
	require.True(t, ok)
	assert.Equal(t, "How can I calculate financed emissions for my portfolio using an Excel upload", session.LastPrompt)
	assert.Equal(t, domain.ViewDAG, session.PreferredView)
}

func TestEngine_SubmitBorderScenario(t *testing.T) {
	e := newTestEngine(t, Options{})

	result, err := e.Submit(context.Background(), SubmitRequest{
		Identity: "officer",
		Text:     "What is happening at the border checkpoint today",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryBorderSecurity, result.Category)
	assert.Equal(t, domain.CategoryBorderSecurity, result.DAG.Category)
}

func TestEngine_SubmitAutonomousFleetVariant(t *testing.T) {
	e := newTestEngine(t, Options{})

	result, err := e.Submit(context.Background(), SubmitRequest{
		Identity: "ops",
		Text:     "Show me today's autonomous truck performance",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryHealth, result.Category)
	assert.Equal(t, domain.VariantAutonomousFleet, result.Variant)
	assert.Contains(t, result.Message, "Gatik")
}

func TestEngine_EmptyPromptLeavesSessionUntouched(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx := context.Background()

	_, err := e.Submit(ctx, SubmitRequest{Identity: "u1", Text: "carbon footprint"})
	require.NoError(t, err)
	before, ok := e.GetSession(ctx, "u1")
	require.True(t, ok)

	result, err := e.Submit(ctx, SubmitRequest{
		Identity:       "u1",
		Text:           "   ",
		RawAttachments: []domain.RawFile{{FileName: "a.pdf", MimeType: attachment.TypePDF, SizeBytes: 10}},
	})
	require.ErrorIs(t, err, domain.ErrEmptyPrompt)
	assert.Nil(t, result)

	after, ok := e.GetSession(ctx, "u1")
	require.True(t, ok)
	assert.Equal(t, before, after)

	_, err = e.Submit(ctx, SubmitRequest{Identity: "u2", Text: ""})
	require.ErrorIs(t, err, domain.ErrEmptyPrompt)
	_, ok = e.GetSession(ctx, "u2")
	assert.False(t, ok, "empty prompt must not create a session")
}

func TestEngine_AttachmentRejectionDoesNotBlock(t *testing.T) {
	e := newTestEngine(t, Options{})

	result, err := e.Submit(context.Background(), SubmitRequest{
		Identity: "u1",
		Text:     "analyse these files",
		RawAttachments: []domain.RawFile{
			{FileName: "report.pdf", MimeType: attachment.TypePDF, SizeBytes: 15 * 1024 * 1024},
			{FileName: "data.csv", MimeType: attachment.TypeCSV, SizeBytes: 2 * 1024},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.RejectedAttachmentCount)
	require.Len(t, result.Attachments, 1)
	assert.Equal(t, "data.csv", result.Attachments[0].FileName)
	assert.NotEmpty(t, result.NarrativeSegments)

	session, ok := e.GetSession(context.Background(), "u1")
	require.True(t, ok)
	require.Len(t, session.Attachments, 1)
	assert.Equal(t, "data.csv", session.Attachments[0].FileName)
}

func TestEngine_AllAttachmentsRejectedIsNotAnError(t *testing.T) {
	e := newTestEngine(t, Options{})

	result, err := e.Submit(context.Background(), SubmitRequest{
		Identity:       "u1",
		Text:           "hello",
		RawAttachments: []domain.RawFile{{FileName: "movie.mp4", MimeType: "video/mp4", SizeBytes: 100}},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Attachments)
	assert.Equal(t, 1, result.RejectedAttachmentCount)
}

func TestEngine_SubmitValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   SubmitRequest
		field string
	}{
		{"blank identity", SubmitRequest{Identity: "  ", Text: "hello"}, "identity"},
		{"unknown view", SubmitRequest{Identity: "u", Text: "hello", PreferredView: "Kanban"}, "preferredView"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, Options{})

			_, err := e.Submit(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err))

			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Zero(t, e.ActiveSessions())
		})
	}
}

func TestEngine_MalformedAttachmentsAreRejectedNotFatal(t *testing.T) {
	e := newTestEngine(t, Options{})

	result, err := e.Submit(context.Background(), SubmitRequest{
		Identity: "u",
		Text:     "border crossing report",
		RawAttachments: []domain.RawFile{
			{FileName: " ", MimeType: attachment.TypePDF, SizeBytes: 1},
			{FileName: "ok.pdf", MimeType: attachment.TypePDF, SizeBytes: 1},
			{FileName: "bad.pdf", MimeType: attachment.TypePDF, SizeBytes: -1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.RejectedAttachmentCount)
	require.Len(t, result.Attachments, 1)
	assert.Equal(t, "ok.pdf", result.Attachments[0].FileName)

	session, ok := e.GetSession(context.Background(), "u")
	require.True(t, ok)
	assert.Len(t, session.Attachments, 1)
}

func TestEngine_UnknownCategoryIsSurfaced(t *testing.T) {
	classifier := intent.New(intent.Rule{
		Name:     "bogus",
		Category: domain.Category("Bogus"),
		Match:    intent.Contains("bogus"),
	})
	e := newTestEngine(t, Options{Classifier: classifier})

	_, err := e.Submit(context.Background(), SubmitRequest{Identity: "u", Text: "bogus request"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownCategory))
	assert.Equal(t, domain.CodeUnknownCategory, domain.ErrorCode(err))

	_, ok := e.GetSession(context.Background(), "u")
	assert.False(t, ok)
}

func TestEngine_PreferredView(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx := context.Background()

	_, err := e.Submit(ctx, SubmitRequest{Identity: "u", Text: "measles outbreak", PreferredView: domain.ViewDashboard})
	require.NoError(t, err)
	session, _ := e.GetSession(ctx, "u")
	assert.Equal(t, domain.ViewDashboard, session.PreferredView)

	// A later submission without a view keeps the previous choice.
	_, err = e.Submit(ctx, SubmitRequest{Identity: "u", Text: "border"})
	require.NoError(t, err)
	session, _ = e.GetSession(ctx, "u")
	assert.Equal(t, domain.ViewDashboard, session.PreferredView)
	assert.Equal(t, "border", session.LastPrompt)

	session, err = e.SetPreferredView(ctx, "u", domain.ViewChat)
	require.NoError(t, err)
	assert.Equal(t, domain.ViewChat, session.PreferredView)
}

func TestEngine_ResetSession(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx := context.Background()

	_, err := e.Submit(ctx, SubmitRequest{
		Identity:       "u",
		Text:           "esg",
		PreferredView:  domain.ViewChat,
		RawAttachments: []domain.RawFile{{FileName: "a.csv", MimeType: attachment.TypeCSV, SizeBytes: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, e.ResetSession(ctx, "u", false))
	session, ok := e.GetSession(ctx, "u")
	require.True(t, ok)
	assert.Empty(t, session.LastPrompt)
	assert.Empty(t, session.Attachments)
	assert.Equal(t, domain.ViewChat, session.PreferredView)

	require.NoError(t, e.ResetSession(ctx, "u", true))
	session, _ = e.GetSession(ctx, "u")
	assert.Equal(t, domain.ViewDAG, session.PreferredView)

	require.NoError(t, e.ResetSession(ctx, "nobody", true))
	assert.True(t, domain.IsValidation(e.ResetSession(ctx, " ", false)))
}

func TestEngine_Classify(t *testing.T) {
	e := newTestEngine(t, Options{})

	decision := e.Classify("Severe weather emergency in the north")
	assert.Equal(t, domain.CategoryCrisisResponse, decision.Category)
	assert.Equal(t, intent.RuleCrisisResponse, decision.Rule)
	assert.Zero(t, e.ActiveSessions(), "classify must not touch sessions")
}

// blockingSleeper parks the first simulated delay until released so tests can
// observe other submissions completing meanwhile.
type blockingSleeper struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSleeper) sleep(time.Duration) {
	if b.calls.Add(1) == 1 {
		close(b.entered)
		<-b.release
	}
}

func TestEngine_IdentitiesAreIsolated(t *testing.T) {
	blocker := &blockingSleeper{entered: make(chan struct{}), release: make(chan struct{})}
	sim := NewSimulator(SimulatorConfig{}, NewSeededSelector(1), discardLogger())
	sim.sleep = blocker.sleep
	e := newTestEngine(t, Options{Simulator: sim})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := e.Submit(ctx, SubmitRequest{Identity: "slow", Text: "health"})
		done <- err
	}()

	select {
	case <-blocker.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("slow submission never reached the simulated delay")
	}

	result, err := e.Submit(ctx, SubmitRequest{Identity: "fast", Text: "border"})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryBorderSecurity, result.Category)

	_, ok := e.GetSession(ctx, "fast")
	assert.True(t, ok)
	_, ok = e.GetSession(ctx, "slow")
	assert.False(t, ok, "slow session must not exist before its delay ends")

	close(blocker.release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("slow submission did not finish")
	}

	session, ok := e.GetSession(ctx, "slow")
	require.True(t, ok)
	assert.Equal(t, "health", session.LastPrompt)
}

func TestEngine_SameIdentityLastWriteWins(t *testing.T) {
	e := newTestEngine(t, Options{})
	ctx := context.Background()
	prompts := []string{"health check", "border status", "carbon report", "storm warning"}

	var wg sync.WaitGroup
	for _, p := range prompts {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			_, err := e.Submit(ctx, SubmitRequest{Identity: "shared", Text: text})
			assert.NoError(t, err)
		}(p)
	}
	wg.Wait()

	session, ok := e.GetSession(ctx, "shared")
	require.True(t, ok)
	assert.Contains(t, prompts, session.LastPrompt)
	assert.Equal(t, 1, e.ActiveSessions())
}
