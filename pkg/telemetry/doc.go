// Package telemetry groups Scruffy's observability packages:
//
//   - logging: structured slog logging with run correlation and email redaction
//   - metrics: Prometheus job, item, cache and HTTP metrics
//   - tracing: OpenTelemetry spans for job runs, loans and admin API requests
//   - health: liveness, readiness and version endpoints
//
// Each is configured from the telemetry section of the configuration file:
//
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
//	  metrics:
//	    enabled: true
//	    path: /metrics
//	  tracing:
//	    enabled: false
//	  health:
//	    check_timeout: 5s
package telemetry
