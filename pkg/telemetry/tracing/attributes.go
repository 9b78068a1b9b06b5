package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for Scruffy spans.
const (
	AttrJobType   = "scruffy.job.type"
	AttrRunID     = "scruffy.run.id"
	AttrTrigger   = "scruffy.trigger"
	AttrRequestID = "scruffy.request.id"
	AttrMediaType = "scruffy.media.type"
	AttrTitle     = "scruffy.media.title"
	AttrStage     = "scruffy.stage"
	AttrOutcome   = "scruffy.outcome"
	AttrDaysLeft  = "scruffy.days_left"
	AttrFailures  = "scruffy.failures"

	AttrHTTPMethod = "http.request.method"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.response.status_code"
)

// SetRunAttributes describes a job run on span.
func SetRunAttributes(span trace.Span, jobType, runID, trigger string) {
	span.SetAttributes(
		attribute.String(AttrJobType, jobType),
		attribute.String(AttrRunID, runID),
		attribute.String(AttrTrigger, trigger),
	)
}

// SetItemAttributes describes a loan on span.
func SetItemAttributes(span trace.Span, requestID int, mediaType, title string) {
	span.SetAttributes(
		attribute.Int(AttrRequestID, requestID),
		attribute.String(AttrMediaType, mediaType),
		attribute.String(AttrTitle, title),
	)
}

// SetRunOutcome records the result of a job run and marks the span failed
// when the run did not succeed.
func SetRunOutcome(span trace.Span, outcome string, failures int, success bool) {
	span.SetAttributes(
		attribute.String(AttrOutcome, outcome),
		attribute.Int(AttrFailures, failures),
	)
	if success {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, outcome)
	}
}

// SetHTTPAttributes records the route and status of a served request.
// Server errors mark the span failed.
func SetHTTPAttributes(span trace.Span, method, route string, status int) {
	span.SetAttributes(
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPRoute, route),
		attribute.Int(AttrHTTPStatus, status),
	)
	if status >= 500 {
		span.SetStatus(codes.Error, "")
	}
}
