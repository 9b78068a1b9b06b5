package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jeajar/scruffy/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:             true,
		Namespace:           "test",
		JobDurationBuckets:  []float64{1, 10, 100},
		HTTPDurationBuckets: []float64{0.1, 1},
	}
}

func TestCollector_JobMetrics(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	c.RecordJobRun("process", "success", 2*time.Second)
	c.RecordJobRun("process", "success", 3*time.Second)
	c.RecordJobRun("check", "failed", time.Second)
	c.RecordTriggerSkipped("process")
	c.RecordItem("check", "reminded")
	c.RecordItem("check", "reminded")

	if got := testutil.ToFloat64(c.jobMetrics.runsTotal.WithLabelValues("process", "success")); got != 2 {
		t.Errorf("runs_total{process,success} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.jobMetrics.runsTotal.WithLabelValues("check", "failed")); got != 1 {
		t.Errorf("runs_total{check,failed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.jobMetrics.skippedTotal.WithLabelValues("process")); got != 1 {
		t.Errorf("triggers_skipped_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.jobMetrics.itemsTotal.WithLabelValues("check", "reminded")); got != 2 {
		t.Errorf("items_total = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(c.jobMetrics.runDuration); got != 2 {
		t.Errorf("run_duration series = %d, want 2", got)
	}
}

func TestCollector_CacheAndHTTP(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())

	c.RecordCacheHit()
	c.RecordCacheMiss()
	c.RecordCacheMiss()
	c.UpdateCacheSize(7)
	c.RecordHTTPRequest("GET", "/api/v1/jobs", 200, 10*time.Millisecond)

	if got := testutil.ToFloat64(c.cacheMetrics.lookupsTotal.WithLabelValues("miss")); got != 2 {
		t.Errorf("cache misses = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.cacheMetrics.entries); got != 7 {
		t.Errorf("cache entries = %v, want 7", got)
	}
	if got := testutil.ToFloat64(c.httpMetrics.requestsTotal.WithLabelValues("GET", "/api/v1/jobs", "200")); got != 1 {
		t.Errorf("http requests = %v, want 1", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	c := NewCollector(cfg, prometheus.NewRegistry())

	c.RecordJobRun("check", "success", time.Second)
	if got := testutil.ToFloat64(c.jobMetrics.runsTotal.WithLabelValues("check", "success")); got != 0 {
		t.Errorf("disabled collector recorded %v runs", got)
	}
}

func TestCollector_Nil(t *testing.T) {
	var c *Collector
	c.RecordJobRun("check", "success", time.Second)
	c.RecordTriggerSkipped("check")
	c.RecordItem("check", "ok")
	c.RecordCacheHit()
	c.RecordHTTPRequest("GET", "/", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("nil collector handler status = %d, want 404", rec.Code)
	}
}

func TestCollector_Defaults(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	NewCollector(cfg, nil)

	if cfg.Namespace != "scruffy" {
		t.Errorf("Namespace = %q, want scruffy", cfg.Namespace)
	}
	if len(cfg.JobDurationBuckets) == 0 || len(cfg.HTTPDurationBuckets) == 0 {
		t.Error("buckets were not defaulted")
	}
}

func TestHandler(t *testing.T) {
	c := NewCollector(testConfig(), prometheus.NewRegistry())
	c.RecordJobRun("process", "partial", time.Second)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`test_jobs_runs_total{job_type="process",outcome="partial"} 1`,
		"test_jobs_run_duration_seconds_bucket",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
