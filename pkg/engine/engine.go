package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/polisai/omnis/pkg/attachment"
	"github.com/polisai/omnis/pkg/catalog"
	"github.com/polisai/omnis/pkg/domain"
	"github.com/polisai/omnis/pkg/intent"
	"github.com/polisai/omnis/pkg/storage"
	"github.com/polisai/omnis/pkg/telemetry"
	"github.com/polisai/omnis/pkg/workflow"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SubmitRequest is one prompt submission from a caller.
type SubmitRequest struct {
	Identity       string           `json:"-"`
	Text           string           `json:"text"`
	RawAttachments []domain.RawFile `json:"attachments,omitempty"`
	PreferredView  domain.View      `json:"preferredView,omitempty"`
}

// SubmitResult is returned for a successful submission.
type SubmitResult struct {
	RequestID               string              `json:"requestId"`
	Category                domain.Category     `json:"category"`
	Variant                 domain.Variant      `json:"variant,omitempty"`
	DAG                     domain.DAG          `json:"dag"`
	NarrativeSegments       []domain.Segment    `json:"narrativeSegments"`
	Message                 string              `json:"message"`
	Attachments             []domain.Attachment `json:"attachments"`
	RejectedAttachmentCount int                 `json:"rejectedAttachmentCount"`
	StartedAt               time.Time           `json:"startedAt"`
	CompletedAt             time.Time           `json:"completedAt"`
}

// WorkflowSummary describes one category's DAG and the waves its stages fall into.
type WorkflowSummary struct {
	Category domain.Category `json:"category"`
	DAG      domain.DAG      `json:"dag"`
	Levels   [][]string      `json:"levels"`
}

// Options wires the engine's collaborators. Nil fields get the built-in defaults.
type Options struct {
	Catalog    *catalog.Catalog
	Validator  *attachment.Validator
	Classifier *intent.Classifier
	Composer   *workflow.Composer
	Simulator  *Simulator
	Sessions   storage.SessionStore
	Logger     *slog.Logger
}

// Engine is the request boundary: it validates, classifies, composes, simulates
// and records submissions. It is safe for concurrent use; submissions for
// different identities never wait on each other.
type Engine struct {
	catalog    *catalog.Catalog
	validator  *attachment.Validator
	classifier *intent.Classifier
	composer   *workflow.Composer
	simulator  *Simulator
	sessions   storage.SessionStore
	logger     *slog.Logger
	now        func() time.Time
}

// New builds an engine from opts.
func New(opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	composer := opts.Composer
	if composer == nil {
		var err error
		composer, err = workflow.NewComposer(cat)
		if err != nil {
			return nil, fmt.Errorf("build workflow composer: %w", err)
		}
	}

	validator := opts.Validator
	if validator == nil {
		validator = attachment.NewValidator(attachment.DefaultPolicy(), logger)
	}

	classifier := opts.Classifier
	if classifier == nil {
		classifier = intent.New()
	}

	simulator := opts.Simulator
	if simulator == nil {
		simulator = NewSimulator(SimulatorConfig{}, nil, logger)
	}

	sessions := opts.Sessions
	if sessions == nil {
		sessions = storage.NewMemorySessionStore(domain.ViewDAG, logger)
	}

	return &Engine{
		catalog:    cat,
		validator:  validator,
		classifier: classifier,
		composer:   composer,
		simulator:  simulator,
		sessions:   sessions,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// ListAgents returns the catalog in registration order.
func (e *Engine) ListAgents() []domain.Agent {
	return e.catalog.List()
}

// GetAgent returns a single agent by ID.
func (e *Engine) GetAgent(id string) (domain.Agent, error) {
	return e.catalog.Get(id)
}

// Classify reports where text would be routed without executing anything.
func (e *Engine) Classify(text string) intent.Decision {
	return e.classifier.Match(text)
}

// Workflows lists every workflow template in category order.
func (e *Engine) Workflows() ([]WorkflowSummary, error) {
	templates := e.composer.Describe()
	out := make([]WorkflowSummary, 0, len(templates))
	for _, category := range domain.Categories() {
		dag, ok := templates[category]
		if !ok {
			continue
		}
		levels, err := workflow.Levels(dag)
		if err != nil {
			return nil, fmt.Errorf("workflow %s: %w", category, err)
		}
		out = append(out, WorkflowSummary{Category: category, DAG: dag, Levels: levels})
	}
	return out, nil
}

// Submit runs one submission end to end. On any error the caller's session is
// left untouched.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	start := e.now()
	ctx, span := telemetry.Tracer().Start(ctx, "engine.submit",
		trace.WithAttributes(telemetry.IdentityAttribute(req.Identity)))
	defer span.End()

	result, decision, err := e.submit(ctx, span, req)

	metrics := telemetry.SubmissionMetrics{
		Category: decision.Category.String(),
		Variant:  string(decision.Variant),
		Outcome:  outcomeFor(err),
		Duration: e.now().Sub(start),
	}
	if result != nil {
		metrics.AcceptedAttachments = len(result.Attachments)
		metrics.RejectedAttachments = result.RejectedAttachmentCount
	}
	telemetry.RecordSubmission(ctx, metrics)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

func (e *Engine) submit(ctx context.Context, span trace.Span, req SubmitRequest) (*SubmitResult, intent.Decision, error) {
	identity := strings.TrimSpace(req.Identity)
	if identity == "" {
		return nil, intent.Decision{}, &domain.ValidationError{Field: "identity", Reason: "must not be blank"}
	}
	if req.PreferredView != "" && !req.PreferredView.Valid() {
		return nil, intent.Decision{}, &domain.ValidationError{Field: "preferredView", Reason: fmt.Sprintf("unknown view %q", req.PreferredView)}
	}
	prompt := strings.TrimSpace(req.Text)
	if prompt == "" {
		return nil, intent.Decision{}, domain.ErrEmptyPrompt
	}

	filtered := e.validator.Filter(req.RawAttachments)
	decision := e.classifier.Match(prompt)

	dag, err := e.composer.Compose(decision.Category)
	if err != nil {
		e.logger.Error("Classifier produced a category without a workflow",
			"category", decision.Category,
			"rule", decision.Rule,
			"error", err)
		return nil, decision, fmt.Errorf("compose workflow: %w", err)
	}
	telemetry.RecordWorkflowEvent(span, decision.Category.String(), string(decision.Variant), decision.Rule, len(dag.Stages))

	record, err := e.simulator.Execute(ctx, dag, decision.Variant, prompt, filtered.Accepted)
	if err != nil {
		return nil, decision, err
	}

	if _, err := e.sessions.Upsert(ctx, identity, prompt, filtered.Accepted); err != nil {
		return nil, decision, fmt.Errorf("record session: %w", err)
	}
	if req.PreferredView != "" {
		if _, err := e.sessions.SetPreferredView(ctx, identity, req.PreferredView); err != nil {
			return nil, decision, fmt.Errorf("record preferred view: %w", err)
		}
	}

	e.logger.Info("Submission completed",
		"request_id", record.RequestID,
		"category", decision.Category,
		"rule", decision.Rule,
		"accepted_attachments", len(filtered.Accepted),
		"rejected_attachments", filtered.RejectedCount)

	return &SubmitResult{
		RequestID:               record.RequestID,
		Category:                record.Category,
		Variant:                 record.Variant,
		DAG:                     record.DAG,
		NarrativeSegments:       record.Narrative,
		Message:                 record.Message(),
		Attachments:             domain.CloneAttachments(filtered.Accepted),
		RejectedAttachmentCount: filtered.RejectedCount,
		StartedAt:               record.StartedAt,
		CompletedAt:             record.CompletedAt,
	}, decision, nil
}

// GetSession returns the caller's session, if one exists.
func (e *Engine) GetSession(ctx context.Context, identity string) (domain.Session, bool) {
	return e.sessions.Get(ctx, strings.TrimSpace(identity))
}

// ResetSession clears the caller's prompt and attachments. With resetView the
// preferred view also returns to the default.
func (e *Engine) ResetSession(ctx context.Context, identity string, resetView bool) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return &domain.ValidationError{Field: "identity", Reason: "must not be blank"}
	}
	return e.sessions.Reset(ctx, identity, resetView)
}

// SetPreferredView records the view the caller wants to land on.
func (e *Engine) SetPreferredView(ctx context.Context, identity string, view domain.View) (domain.Session, error) {
	return e.sessions.SetPreferredView(ctx, strings.TrimSpace(identity), view)
}

// ActiveSessions reports how many sessions the engine is tracking.
func (e *Engine) ActiveSessions() int {
	return e.sessions.Count()
}

// Close releases the session store.
func (e *Engine) Close() error {
	return e.sessions.Close()
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return telemetry.OutcomeSuccess
	case errors.Is(err, domain.ErrEmptyPrompt):
		return telemetry.OutcomeEmptyPrompt
	case errors.Is(err, domain.ErrValidation):
		return telemetry.OutcomeInvalid
	default:
		return telemetry.OutcomeError
	}
}
