package metrics

import (
	"time"

	"github.com/jeajar/scruffy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every Prometheus metric exported by Scruffy.
//
// A nil *Collector is valid and records nothing, so components can take one
// as an optional dependency without guarding each call.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	jobMetrics   *JobMetrics
	cacheMetrics *CacheMetrics
	httpMetrics  *HTTPMetrics
}

// NewCollector creates a collector and registers its metrics with registry.
// If registry is nil a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{Enabled: true, Namespace: "scruffy"}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.JobDurationBuckets) == 0 {
		// Job runs page through the whole catalog: seconds to tens of minutes.
		cfg.JobDurationBuckets = []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800}
	}
	if len(cfg.HTTPDurationBuckets) == 0 {
		cfg.HTTPDurationBuckets = prometheus.DefBuckets
	}

	return &Collector{
		config:       cfg,
		registry:     registry,
		jobMetrics:   NewJobMetrics(cfg, registry),
		cacheMetrics: NewCacheMetrics(cfg, registry),
		httpMetrics:  NewHTTPMetrics(cfg, registry),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordJobRun records a finished run with its outcome
// ("success", "partial", "failed").
func (c *Collector) RecordJobRun(jobType, outcome string, duration time.Duration) {
	if !c.enabled() {
		return
	}

	c.jobMetrics.RecordRun(jobType, outcome, duration)
}

// RecordTriggerSkipped records a trigger dropped because a run of the same
// job type was in flight.
func (c *Collector) RecordTriggerSkipped(jobType string) {
	if !c.enabled() {
		return
	}

	c.jobMetrics.RecordSkipped(jobType)
}

// RecordItem records the result of one evaluated request
// (e.g. "ok", "reminded", "deleted", "needs_attention", "failed").
func (c *Collector) RecordItem(jobType, result string) {
	if !c.enabled() {
		return
	}

	c.jobMetrics.RecordItem(jobType, result)
}

// RecordCacheHit records a catalog media lookup served from the cache.
func (c *Collector) RecordCacheHit() {
	if !c.enabled() {
		return
	}

	c.cacheMetrics.RecordLookup(true)
}

// RecordCacheMiss records a catalog media lookup that reached the services.
func (c *Collector) RecordCacheMiss() {
	if !c.enabled() {
		return
	}

	c.cacheMetrics.RecordLookup(false)
}

// UpdateCacheSize sets the number of cached media lookups.
func (c *Collector) UpdateCacheSize(size int) {
	if !c.enabled() {
		return
	}

	c.cacheMetrics.UpdateSize(size)
}

// RecordHTTPRequest records a completed admin API request. route is the
// matched route pattern, not the raw path.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if !c.enabled() {
		return
	}

	c.httpMetrics.RecordRequest(method, route, status, duration)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
