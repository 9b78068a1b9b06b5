// Package metrics provides Prometheus metrics collection for Scruffy.
//
// # Metrics Categories
//
//   - Job Metrics: run counts by outcome, run duration, skipped triggers and
//     per-request results
//   - Cache Metrics: catalog media lookup hits, misses and size
//   - HTTP Metrics: admin API request counts and latency by route
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordJobRun("process", "success", 12*time.Second)
//
//	router.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// Every Record method is a no-op when metrics are disabled or the collector
// is nil.
package metrics
