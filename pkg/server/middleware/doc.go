// Package middleware provides the HTTP middleware chain of the admin server.
//
// The chain, outermost first:
//
//	Recovery -> RequestID -> Logging -> Metrics -> router
//
// RequestID stores the request id with logging.WithRequestID, so every log
// record written while serving the request carries it. Metrics labels
// requests by chi route pattern rather than raw path to keep label
// cardinality bounded.
package middleware
