package config

import "time"

// Config is the root configuration structure for Scruffy.
// It contains the admin server, storage, retention policy fallbacks,
// scheduler, media service clients, email and telemetry sections.
type Config struct {
	// Server contains the admin HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Storage selects and configures the persistence backend.
	Storage StorageConfig `yaml:"storage"`

	// Retention holds the configuration tier of the retention settings.
	// Values stored by an administrator in the database take precedence.
	Retention RetentionConfig `yaml:"retention"`

	// Scheduler contains the cron scheduler configuration.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Catalog contains media resolution settings shared by the clients.
	Catalog CatalogConfig `yaml:"catalog"`

	// Overseerr is the request catalog.
	Overseerr ServiceConfig `yaml:"overseerr"`

	// Radarr manages movies.
	Radarr ServiceConfig `yaml:"radarr"`

	// Sonarr manages series.
	Sonarr ServiceConfig `yaml:"sonarr"`

	// Email contains SMTP settings for requester notifications.
	Email EmailConfig `yaml:"email"`

	// Telemetry contains logging, metrics and health configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the admin HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 15s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown, including in-flight runs.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// WatchConfig reloads the configuration file when it changes.
	// Default: false
	WatchConfig bool `yaml:"watch_config"`

	// APIKeys guard the admin API. With none configured the API is open.
	APIKeys []APIKeyConfig `yaml:"api_keys"`
}

// APIKeyConfig is a named admin API key.
type APIKeyConfig struct {
	Name     string `yaml:"name"`
	Key      string `yaml:"key"`
	Disabled bool   `yaml:"disabled"`
}

// StorageConfig contains configuration for the persistence backend.
type StorageConfig struct {
	// Driver selects the backend.
	// Options: "sqlite3" (cgo), "sqlite" (pure Go), "memory"
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// Path is the SQLite database file.
	// Default: "data/scruffy.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int `yaml:"max_open_conns"`

	// BusyTimeout is how long a writer waits for a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// History bounds the job run log.
	History HistoryConfig `yaml:"history"`
}

// HistoryConfig controls pruning of the job run log. Zero disables a limit.
type HistoryConfig struct {
	// RetentionDays deletes runs older than this many days.
	// Default: 90
	RetentionDays int `yaml:"retention_days"`

	// MaxRuns keeps at most this many runs.
	// Default: 1000
	MaxRuns int `yaml:"max_runs"`

	// PruneSchedule is the cron expression of the pruning run started with
	// the server. Empty disables scheduled pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// RetentionConfig is the configuration tier of the retention settings.
// Zero values are "not set" and fall through to the built-in defaults
// (30 / 7 / 7 days).
type RetentionConfig struct {
	RetentionDays int    `yaml:"retention_days"`
	ReminderDays  int    `yaml:"reminder_days"`
	ExtensionDays int    `yaml:"extension_days"`
	BaseURL       string `yaml:"base_url"`

	// Timezone is the IANA zone used for calendar-day arithmetic.
	Timezone string `yaml:"timezone"`
}

// SchedulerConfig contains configuration for the cron scheduler.
type SchedulerConfig struct {
	// Enabled starts the scheduler loop with the server.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// TickInterval is how often due schedules are collected.
	// Default: 1s
	TickInterval time.Duration `yaml:"tick_interval"`

	// RunTimeout bounds a single job run.
	// Default: 30m
	RunTimeout time.Duration `yaml:"run_timeout"`

	// ReloadInterval is how often schedules are re-read from storage so
	// changes made through the CLI are picked up.
	// Default: 1m
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// CatalogConfig contains media resolution settings.
type CatalogConfig struct {
	// Concurrency bounds parallel media lookups within a run.
	// Default: 8
	Concurrency int `yaml:"concurrency"`

	// PageSize is the Overseerr request page size.
	// Default: 100
	PageSize int `yaml:"page_size"`

	// CacheSize is the number of media lookups kept in memory. Zero or a
	// negative value disables the cache.
	// Default: 512
	CacheSize int `yaml:"cache_size"`

	// CacheTTL is how long a cached media lookup stays valid.
	// Default: 5m
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// ServiceConfig contains the connection settings of a media service.
type ServiceConfig struct {
	// URL is the base URL of the service (e.g., "http://radarr:7878").
	URL string `yaml:"url"`

	// APIKey is sent in the X-Api-Key header.
	APIKey string `yaml:"api_key"`

	// Timeout bounds each HTTP call.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// EmailConfig contains SMTP settings.
type EmailConfig struct {
	// Enabled sends notifications by email. When false, notifications are
	// only logged.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Host is the SMTP server host.
	// Default: "localhost"
	Host string `yaml:"host"`

	// Port is the SMTP server port.
	// Default: 25
	Port int `yaml:"port"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// From is the sender address.
	// Default: "scruffy@example.com"
	From string `yaml:"from"`

	// SSLTLS connects with implicit TLS (usually port 465).
	SSLTLS bool `yaml:"ssl_tls"`

	// StartTLS upgrades a plain connection with STARTTLS.
	StartTLS bool `yaml:"starttls"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Health  HealthConfig  `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactEmails masks requester email addresses in log output.
	// Default: false
	RedactEmails bool `yaml:"redact_emails"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "scruffy"
	Namespace string `yaml:"namespace"`

	// JobDurationBuckets defines histogram buckets for job run duration (seconds).
	// Default: [1, 5, 15, 30, 60, 120, 300, 600, 1800]
	JobDurationBuckets []float64 `yaml:"job_duration_buckets"`

	// HTTPDurationBuckets defines histogram buckets for admin API latency (seconds).
	// Default: [0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5]
	HTTPDurationBuckets []float64 `yaml:"http_duration_buckets"`
}

// TracingConfig contains OpenTelemetry tracing configuration. Job runs,
// loans and admin API requests are traced.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter determines the trace exporter to use.
	// Options: "otlp"
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP gRPC collector endpoint (e.g., "localhost:4317").
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "scruffy"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains readiness check configuration.
type HealthConfig struct {
	// CheckTimeout bounds each readiness check.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
