package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Submission outcomes
const (
	OutcomeSaved   = "saved"
	OutcomeInvalid = "invalid"
	OutcomeDenied  = "denied"
	OutcomeFailed  = "failed"
)

// StartSubmit starts the span covering one submit
func StartSubmit(ctx context.Context, tracer trace.Tracer, provider, name, mode string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "cloud.submit",
		trace.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("cloud.name", name),
			attribute.String("form.mode", mode),
		),
	)
}

// RecordValidationFailedEvent adds the failing field paths to span and
// counts each one
func RecordValidationFailedEvent(ctx context.Context, span trace.Span, provider string, paths []string) {
	for _, p := range paths {
		ValidationFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("field", p),
		))
	}

	if span == nil {
		return
	}
	span.AddEvent("cloud.validation.failed", trace.WithAttributes(
		attribute.String("event.type", "cloud.validation.failed"),
		attribute.String("provider", provider),
		attribute.StringSlice("fields", paths),
		attribute.Int("errors", len(paths)),
	))
}

// RecordPolicyViolationEvent records one policy denial
func RecordPolicyViolationEvent(ctx context.Context, span trace.Span, policyName, field, message string) {
	PolicyViolations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("policy", policyName),
		attribute.String("field", field),
	))

	if span == nil {
		return
	}
	span.AddEvent("cloud.policy.violation", trace.WithAttributes(
		attribute.String("event.type", "cloud.policy.violation"),
		attribute.String("policy.name", policyName),
		attribute.String("field", field),
		attribute.String("message", message),
	))
}

// RecordSubmitted counts a finished submit and its duration
func RecordSubmitted(ctx context.Context, span trace.Span, provider, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	)
	Submissions.Add(ctx, 1, attrs)
	SubmitDuration.Record(ctx, elapsed.Seconds(), attrs)

	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.String("submit.outcome", outcome),
		attribute.Float64("duration.seconds", elapsed.Seconds()),
	)
}

// RecordStorageWrite counts a write and updates the storage gauges
func RecordStorageWrite(ctx context.Context, operation string, revision int64, clouds int) {
	StorageWrites.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
	StorageRevision.Record(ctx, revision)
	CloudsInStorage.Record(ctx, int64(clouds))
}
