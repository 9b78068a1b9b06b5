package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	MinAPIKeyLength        = 16

	// Storage defaults
	DefaultStorageDriver       = "sqlite3"
	DefaultStoragePath         = "data/scruffy.db"
	DefaultStorageMaxOpenConns = 4
	DefaultStorageBusyTimeout  = 5 * time.Second
	DefaultStorageWALMode      = true

	// Job history defaults
	DefaultHistoryRetentionDays = 90
	DefaultHistoryMaxRuns       = 1000
	DefaultHistoryPruneSchedule = "0 3 * * *"

	// Scheduler defaults
	DefaultSchedulerEnabled        = true
	DefaultSchedulerTickInterval   = time.Second
	DefaultSchedulerRunTimeout     = 30 * time.Minute
	DefaultSchedulerReloadInterval = time.Minute

	// Catalog defaults
	DefaultCatalogConcurrency = 8
	DefaultCatalogPageSize    = 100
	DefaultCatalogCacheSize   = 512
	DefaultCatalogCacheTTL    = 5 * time.Minute
	DefaultServiceTimeout     = 30 * time.Second

	// Email defaults
	DefaultEmailHost = "localhost"
	DefaultEmailPort = 25
	DefaultEmailFrom = "scruffy@example.com"

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "scruffy"
	DefaultHealthCheckTimeout = 5 * time.Second
	DefaultTracingSampler     = "always"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingExporter    = "otlp"
	DefaultTracingService     = "scruffy"
	DefaultTracingOTLPTimeout = 10 * time.Second
)

// NewDefaultConfig returns a configuration with every default applied.
// Files are decoded over it so that booleans defaulting to true can still
// be switched off explicitly.
func NewDefaultConfig() *Config {
	cfg := &Config{
		Storage: StorageConfig{
			WALMode: DefaultStorageWALMode,
			History: HistoryConfig{
				RetentionDays: DefaultHistoryRetentionDays,
				MaxRuns:       DefaultHistoryMaxRuns,
				PruneSchedule: DefaultHistoryPruneSchedule,
			},
		},
		Scheduler: SchedulerConfig{
			Enabled: DefaultSchedulerEnabled,
		},
		Catalog: CatalogConfig{
			CacheSize: DefaultCatalogCacheSize,
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
//
// The retention day counts are left alone: zero means "not configured" and
// the settings resolver falls back to its own defaults.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Storage defaults
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DefaultStorageDriver
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}
	if cfg.Storage.MaxOpenConns == 0 {
		cfg.Storage.MaxOpenConns = DefaultStorageMaxOpenConns
	}
	if cfg.Storage.BusyTimeout == 0 {
		cfg.Storage.BusyTimeout = DefaultStorageBusyTimeout
	}

	// Scheduler defaults
	if cfg.Scheduler.TickInterval == 0 {
		cfg.Scheduler.TickInterval = DefaultSchedulerTickInterval
	}
	if cfg.Scheduler.RunTimeout == 0 {
		cfg.Scheduler.RunTimeout = DefaultSchedulerRunTimeout
	}
	if cfg.Scheduler.ReloadInterval == 0 {
		cfg.Scheduler.ReloadInterval = DefaultSchedulerReloadInterval
	}

	// Catalog defaults
	if cfg.Catalog.Concurrency == 0 {
		cfg.Catalog.Concurrency = DefaultCatalogConcurrency
	}
	if cfg.Catalog.PageSize == 0 {
		cfg.Catalog.PageSize = DefaultCatalogPageSize
	}
	if cfg.Catalog.CacheTTL == 0 {
		cfg.Catalog.CacheTTL = DefaultCatalogCacheTTL
	}
	for _, svc := range []*ServiceConfig{&cfg.Overseerr, &cfg.Radarr, &cfg.Sonarr} {
		if svc.Timeout == 0 {
			svc.Timeout = DefaultServiceTimeout
		}
	}

	// Email defaults
	if cfg.Email.Host == "" {
		cfg.Email.Host = DefaultEmailHost
	}
	if cfg.Email.Port == 0 {
		cfg.Email.Port = DefaultEmailPort
	}
	if cfg.Email.From == "" {
		cfg.Email.From = DefaultEmailFrom
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.JobDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.JobDurationBuckets = []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800}
	}
	if len(cfg.Telemetry.Metrics.HTTPDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.Exporter == "" {
		cfg.Telemetry.Tracing.Exporter = DefaultTracingExporter
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
	if cfg.Telemetry.Tracing.OTLP.Timeout == 0 {
		cfg.Telemetry.Tracing.OTLP.Timeout = DefaultTracingOTLPTimeout
	}
}
