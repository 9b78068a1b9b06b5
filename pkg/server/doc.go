// Package server runs the admin HTTP server.
//
// NewRouter assembles the middleware chain, the probe and scrape endpoints
// and the /api/v1 routes:
//
//   - GET /health      liveness
//   - GET /ready       readiness (database and media services)
//   - GET /version     build information
//   - GET /metrics     Prometheus exposition, when metrics are enabled
//   - /api/v1/...      administrative API
//
// Server owns the listener lifecycle. Start blocks until its context is
// cancelled or Shutdown is called, then drains connections for at most the
// configured shutdown timeout.
package server
