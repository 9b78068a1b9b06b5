// Package health implements the liveness and readiness probes.
//
// Liveness (/health) only reports that the process is running. Readiness
// (/ready) runs the registered dependency checks concurrently, each with its
// own timeout, and answers 503 when any of them fails:
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("database", store.Ping)
//	checker.RegisterCheck("overseerr", overseerr.Ping)
//
//	router.Get("/health", checker.LivenessHandler())
//	router.Get("/ready", checker.ReadinessHandler())
package health
