package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// RunIDKey is the context key for job run correlation IDs.
	RunIDKey contextKey = "run_id"

	// JobTypeKey is the context key for the job type of a run.
	JobTypeKey contextKey = "job_type"

	// RequestIDKey is the context key for admin API request IDs.
	RequestIDKey contextKey = "request_id"
)

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	if v, ok := ctx.Value(RunIDKey).(string); ok {
		return v
	}
	return ""
}

// WithJobType adds a job type to the context.
func WithJobType(ctx context.Context, jobType string) context.Context {
	return context.WithValue(ctx, JobTypeKey, jobType)
}

// GetJobType retrieves the job type from the context.
func GetJobType(ctx context.Context) string {
	if v, ok := ctx.Value(JobTypeKey).(string); ok {
		return v
	}
	return ""
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

// contextAttrs extracts the known fields present in ctx, plus the trace ID
// of a recording span.
func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}

	var attrs []slog.Attr
	if v := GetRunID(ctx); v != "" {
		attrs = append(attrs, slog.String(string(RunIDKey), v))
	}
	if v := GetJobType(ctx); v != "" {
		attrs = append(attrs, slog.String(string(JobTypeKey), v))
	}
	if v := GetRequestID(ctx); v != "" {
		attrs = append(attrs, slog.String(string(RequestIDKey), v))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs, slog.String("trace_id", sc.TraceID().String()))
	}
	return attrs
}
