package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Submission outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeEmptyPrompt = "empty_prompt"
	OutcomeInvalid     = "invalid"
	OutcomeError       = "error"
)

var (
	metricsOnce                sync.Once
	metricsInitErr             error
	submissionCounter          metric.Int64Counter
	attachmentAcceptedCounter  metric.Int64Counter
	attachmentRejectedCounter  metric.Int64Counter
	executionLatencyHistogram  metric.Float64Histogram
	submissionLatencyHistogram metric.Float64Histogram
)

// SubmissionMetrics captures the fields needed to record one submission.
type SubmissionMetrics struct {
	Category            string
	Variant             string
	Outcome             string
	AcceptedAttachments int
	RejectedAttachments int
	Duration            time.Duration
}

// RecordSubmission emits counters and a latency histogram for one submit call.
func RecordSubmission(ctx context.Context, m SubmissionMetrics) {
	if err := ensureMetrics(); err != nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("workflow.category", m.Category),
		attribute.String("workflow.variant", m.Variant),
		attribute.String("submission.outcome", m.Outcome),
	}

	submissionCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	if m.Duration > 0 {
		submissionLatencyHistogram.Record(ctx, float64(m.Duration)/float64(time.Millisecond), metric.WithAttributes(attrs...))
	}

	categoryAttr := metric.WithAttributes(attribute.String("workflow.category", m.Category))
	if m.AcceptedAttachments > 0 {
		attachmentAcceptedCounter.Add(ctx, int64(m.AcceptedAttachments), categoryAttr)
	}
	if m.RejectedAttachments > 0 {
		attachmentRejectedCounter.Add(ctx, int64(m.RejectedAttachments), categoryAttr)
	}
}

// RecordExecution records the simulated execution latency of one DAG.
func RecordExecution(ctx context.Context, category string, stages int, duration time.Duration) {
	if err := ensureMetrics(); err != nil {
		return
	}

	executionLatencyHistogram.Record(ctx, float64(duration)/float64(time.Millisecond),
		metric.WithAttributes(
			attribute.String("workflow.category", category),
			attribute.Int("workflow.stages", stages),
		))
}

// resetMetrics drops the cached instruments so the next recording binds to
// the current global MeterProvider. It must not race with recordings.
func resetMetrics() {
	metricsOnce = sync.Once{}
	metricsInitErr = nil
	submissionCounter = nil
	attachmentAcceptedCounter = nil
	attachmentRejectedCounter = nil
	executionLatencyHistogram = nil
	submissionLatencyHistogram = nil
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("omnis.engine")

		submissionCounter, metricsInitErr = meter.Int64Counter(
			"omnis.submissions_total",
			metric.WithDescription("Workflow submissions partitioned by category and outcome"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		attachmentAcceptedCounter, metricsInitErr = meter.Int64Counter(
			"omnis.attachments.accepted_total",
			metric.WithDescription("Attachments accepted by the upload policy"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		attachmentRejectedCounter, metricsInitErr = meter.Int64Counter(
			"omnis.attachments.rejected_total",
			metric.WithDescription("Attachments rejected by the upload policy"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		submissionLatencyHistogram, metricsInitErr = meter.Float64Histogram(
			"omnis.submission.duration_ms",
			metric.WithDescription("End-to-end submit latency including the simulated delay"),
			metric.WithUnit("ms"),
		)
		if metricsInitErr != nil {
			return
		}

		executionLatencyHistogram, metricsInitErr = meter.Float64Histogram(
			"omnis.execution.duration_ms",
			metric.WithDescription("Simulated multi-agent execution latency"),
			metric.WithUnit("ms"),
		)
	})

	return metricsInitErr
}

// RecordWorkflowEvent attaches the routing decision to the provided span.
func RecordWorkflowEvent(span trace.Span, category, variant, rule string, stages int) {
	if span == nil || !span.IsRecording() {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("workflow.category", category),
		attribute.String("workflow.rule", rule),
		attribute.Int("workflow.stages", stages),
	}
	if variant != "" {
		attrs = append(attrs, attribute.String("workflow.variant", variant))
	}

	span.AddEvent("workflow.routed", trace.WithAttributes(attrs...))
}
