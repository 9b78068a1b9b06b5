package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	"github.com/jeajar/scruffy/pkg/telemetry/tracing"
)

// TraceIDHeader carries the trace ID of a traced request in the response.
const TraceIDHeader = "X-Trace-ID"

// Tracing starts a server span per request, continuing any W3C trace context
// sent by the client. The span is renamed after the chi route pattern once
// the handler returns, so it must run inside the router. A disabled or nil
// tracer turns it off.
func Tracing(tracer *tracing.Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !tracer.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := tracing.Extract(r.Context(), r.Header)
			ctx, span := tracer.Start(ctx, r.Method, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			if id := tracing.TraceID(ctx); id != "" {
				w.Header().Set(TraceIDHeader, id)
			}

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r.WithContext(ctx))

			route := unmatchedRoute
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			span.SetName(r.Method + " " + route)
			tracing.SetHTTPAttributes(span, r.Method, route, rw.statusCode)
		})
	}
}
