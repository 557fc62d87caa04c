package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/polisai/omnis/pkg/domain"
	"github.com/polisai/omnis/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Simulated agent latency bounds used when none are configured.
const (
	DefaultMinDelay = 500 * time.Millisecond
	DefaultMaxDelay = 1500 * time.Millisecond
)

// SimulatorConfig tunes the simulated execution.
type SimulatorConfig struct {
	MinDelay      time.Duration
	MaxDelay      time.Duration
	FrameworkName string
}

// Simulator produces execution records for composed workflows without
// contacting any agent. The only side effect is the simulated delay.
type Simulator struct {
	cfg      SimulatorConfig
	selector Selector
	logger   *slog.Logger
	tracer   trace.Tracer

	sleep func(time.Duration)
	now   func() time.Time
	newID func() string
}

// NewSimulator creates a simulator. A nil selector draws from the runtime
// entropy source; zero delay bounds fall back to the defaults.
func NewSimulator(cfg SimulatorConfig, selector Selector, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	if selector == nil {
		selector = NewRandomSelector()
	}
	if cfg.MinDelay == 0 && cfg.MaxDelay == 0 {
		cfg.MinDelay, cfg.MaxDelay = DefaultMinDelay, DefaultMaxDelay
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	if strings.TrimSpace(cfg.FrameworkName) == "" {
		cfg.FrameworkName = DefaultFrameworkName
	}

	return &Simulator{
		cfg:      cfg,
		selector: selector,
		logger:   logger,
		tracer:   telemetry.Tracer(),
		sleep:    time.Sleep,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Execute simulates the given DAG for prompt and returns its record.
// The simulated delay always runs to completion; ctx only carries the trace.
func (s *Simulator) Execute(ctx context.Context, dag domain.DAG, variant domain.Variant, prompt string, attachments []domain.Attachment) (*domain.ExecutionRecord, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, domain.ErrEmptyPrompt
	}

	ctx, span := s.tracer.Start(ctx, "simulator.execute", trace.WithAttributes(
		attribute.String("workflow.category", dag.Category.String()),
		attribute.Int("workflow.stages", len(dag.Stages)),
		attribute.Int("attachments.count", len(attachments)),
	))
	defer span.End()
	span.SetAttributes(telemetry.PromptAttributes(prompt)...)

	requestID := s.newID()
	startedAt := s.now().UTC()

	s.logger.Debug("starting workflow simulation",
		slog.String("request_id", requestID),
		slog.String("category", dag.Category.String()),
		slog.String("variant", string(variant)))

	n := selectNarrative(dag.Category, variant, s.selector)
	segments, err := n.render(narrativeData{
		Framework:   s.cfg.FrameworkName,
		Prompt:      prompt,
		Attachments: attachments,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("simulate %s workflow: %w", dag.Category, err)
	}

	delay := drawDelay(s.selector, s.cfg.MinDelay, s.cfg.MaxDelay)
	s.sleep(delay)

	completedAt := s.now().UTC()
	telemetry.RecordExecution(ctx, dag.Category.String(), len(dag.Stages), completedAt.Sub(startedAt))
	span.SetAttributes(
		attribute.String("request.id", requestID),
		attribute.String("narrative.template", n.name),
		attribute.Int64("simulator.delay_ms", delay.Milliseconds()),
	)

	s.logger.Debug("workflow simulation complete",
		slog.String("request_id", requestID),
		slog.String("narrative", n.name),
		slog.Duration("delay", delay))

	return &domain.ExecutionRecord{
		RequestID:   requestID,
		Category:    dag.Category,
		Variant:     variant,
		DAG:         dag.Clone(),
		Narrative:   segments,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
	}, nil
}
