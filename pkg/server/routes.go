package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jeajar/scruffy/pkg/security/auth"
	"github.com/jeajar/scruffy/pkg/server/middleware"
	"github.com/jeajar/scruffy/pkg/telemetry/health"
	"github.com/jeajar/scruffy/pkg/telemetry/metrics"
	"github.com/jeajar/scruffy/pkg/telemetry/tracing"
)

// Routes holds the handlers NewRouter mounts. Nil fields are skipped.
type Routes struct {
	// API serves /api/v1.
	API http.Handler

	// Auth guards API when set.
	Auth *auth.Middleware

	Health *health.Checker

	Metrics     *metrics.Collector
	MetricsPath string

	// Tracer starts a span per request when enabled.
	Tracer *tracing.Tracer

	Version, Commit, BuildTime string

	Logger *slog.Logger
}

// NewRouter builds the admin HTTP handler.
func NewRouter(routes Routes) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(routes.Tracer))
	r.Use(middleware.Logging(routes.Logger))
	r.Use(middleware.Metrics(routes.Metrics))

	if routes.Health != nil {
		r.Get("/health", routes.Health.LivenessHandler())
		r.Get("/ready", routes.Health.ReadinessHandler())
	}
	r.Get("/version", health.VersionHandler(routes.Version, routes.Commit, routes.BuildTime))

	if routes.Metrics != nil {
		path := routes.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, routes.Metrics.Handler())
	}

	if routes.API != nil {
		api := routes.API
		if routes.Auth != nil {
			api = routes.Auth.Handle(api)
		}
		r.Mount("/api/v1", api)
	}

	return r
}
