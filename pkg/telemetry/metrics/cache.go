package metrics

import (
	"github.com/jeajar/scruffy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics tracks the catalog media lookup cache.
//
// Metrics:
//   - scruffy_catalog_cache_lookups_total: lookups by result ("hit", "miss")
//   - scruffy_catalog_cache_entries: current number of cached lookups
type CacheMetrics struct {
	lookupsTotal *prometheus.CounterVec
	entries      prometheus.Gauge
}

// NewCacheMetrics creates and registers cache metrics with the provided registry.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		lookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "catalog",
				Name:      "cache_lookups_total",
				Help:      "Total number of catalog media cache lookups",
			},
			[]string{"result"},
		),

		entries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "catalog",
				Name:      "cache_entries",
				Help:      "Current number of entries in the catalog media cache",
			},
		),
	}

	registry.MustRegister(cm.lookupsTotal, cm.entries)

	return cm
}

// RecordLookup records a cache lookup.
func (cm *CacheMetrics) RecordLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cm.lookupsTotal.WithLabelValues(result).Inc()
}

// UpdateSize sets the current number of entries.
func (cm *CacheMetrics) UpdateSize(size int) {
	cm.entries.Set(float64(size))
}
