// Package tracing provides OpenTelemetry tracing for Scruffy.
//
// Each job run is a span named after its job type ("job.check",
// "job.process") with a child span per loan handled, so a slow or failing
// deletion can be found in the trace of its run. Admin API requests get a
// server span named after their route, and the Overseerr, Radarr and Sonarr
// clients propagate the W3C trace context on their requests.
//
// Spans are exported over OTLP gRPC:
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: otel-collector:4317
//	    sampler: ratio
//	    sample_ratio: 0.25
//	    otlp:
//	      insecure: true
//
// A nil *Tracer starts noop spans, so components take an optional tracer
// without checking for it.
package tracing
