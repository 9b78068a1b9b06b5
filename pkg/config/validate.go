package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "radarr.url").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
//
// Media service URLs are only checked for format here; commands that talk
// to the services call RequireServices.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateRetention(&cfg.Retention)...)
	errs = append(errs, validateScheduler(&cfg.Scheduler)...)
	errs = append(errs, validateCatalog(&cfg.Catalog)...)
	errs = append(errs, validateService("overseerr", &cfg.Overseerr)...)
	errs = append(errs, validateService("radarr", &cfg.Radarr)...)
	errs = append(errs, validateService("sonarr", &cfg.Sonarr)...)
	errs = append(errs, validateEmail(&cfg.Email)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// RequireServices reports missing media service URLs or API keys.
func (c *Config) RequireServices() error {
	var errs []FieldError
	for _, s := range []struct {
		name string
		svc  *ServiceConfig
	}{
		{"overseerr", &c.Overseerr},
		{"radarr", &c.Radarr},
		{"sonarr", &c.Sonarr},
	} {
		if s.svc.URL == "" {
			errs = append(errs, FieldError{Field: s.name + ".url", Message: "field is required"})
		}
		if s.svc.APIKey == "" {
			errs = append(errs, FieldError{Field: s.name + ".api_key", Message: "field is required"})
		}
	}
	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	for field, d := range map[string]time.Duration{
		"server.read_timeout":     cfg.ReadTimeout,
		"server.write_timeout":    cfg.WriteTimeout,
		"server.idle_timeout":     cfg.IdleTimeout,
		"server.shutdown_timeout": cfg.ShutdownTimeout,
	} {
		if d < 0 {
			errs = append(errs, FieldError{Field: field, Message: "must not be negative"})
		}
	}

	names := make(map[string]bool, len(cfg.APIKeys))
	for i, k := range cfg.APIKeys {
		field := fmt.Sprintf("server.api_keys[%d]", i)
		switch {
		case k.Name == "":
			errs = append(errs, FieldError{Field: field + ".name", Message: "name is required"})
		case names[k.Name]:
			errs = append(errs, FieldError{Field: field + ".name", Message: fmt.Sprintf("duplicate key name %q", k.Name)})
		}
		names[k.Name] = true
		if len(k.Key) < MinAPIKeyLength {
			errs = append(errs, FieldError{
				Field:   field + ".key",
				Message: fmt.Sprintf("key must be at least %d characters", MinAPIKeyLength),
			})
		}
	}

	return errs
}

func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	switch cfg.Driver {
	case "sqlite3", "sqlite":
		if cfg.Path == "" {
			errs = append(errs, FieldError{
				Field:   "storage.path",
				Message: "path is required for SQLite storage",
			})
		}
	case "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "storage.driver",
			Message: fmt.Sprintf("invalid driver %q (must be 'sqlite3', 'sqlite' or 'memory')", cfg.Driver),
		})
	}
	if cfg.MaxOpenConns < 0 {
		errs = append(errs, FieldError{Field: "storage.max_open_conns", Message: "must not be negative"})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{Field: "storage.busy_timeout", Message: "must not be negative"})
	}
	if cfg.History.RetentionDays < 0 {
		errs = append(errs, FieldError{Field: "storage.history.retention_days", Message: "must not be negative"})
	}
	if cfg.History.MaxRuns < 0 {
		errs = append(errs, FieldError{Field: "storage.history.max_runs", Message: "must not be negative"})
	}
	if cfg.History.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.History.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "storage.history.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.History.PruneSchedule, err),
			})
		}
	}

	return errs
}

func validateRetention(cfg *RetentionConfig) []FieldError {
	var errs []FieldError

	for field, v := range map[string]int{
		"retention.retention_days": cfg.RetentionDays,
		"retention.reminder_days":  cfg.ReminderDays,
		"retention.extension_days": cfg.ExtensionDays,
	} {
		if v < 0 {
			errs = append(errs, FieldError{Field: field, Message: "must not be negative"})
		}
	}

	// Only a fully configured pair can be checked here; mixed tiers are
	// checked when settings are resolved.
	if cfg.RetentionDays > 0 && cfg.ReminderDays > 0 && cfg.ReminderDays >= cfg.RetentionDays {
		errs = append(errs, FieldError{
			Field:   "retention.reminder_days",
			Message: fmt.Sprintf("must be less than retention_days (%d >= %d)", cfg.ReminderDays, cfg.RetentionDays),
		})
	}

	if cfg.BaseURL != "" {
		if msg := checkHTTPURL(cfg.BaseURL); msg != "" {
			errs = append(errs, FieldError{Field: "retention.base_url", Message: msg})
		}
	}
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			errs = append(errs, FieldError{
				Field:   "retention.timezone",
				Message: fmt.Sprintf("unknown time zone %q", cfg.Timezone),
			})
		}
	}

	return errs
}

func validateScheduler(cfg *SchedulerConfig) []FieldError {
	var errs []FieldError

	if cfg.TickInterval <= 0 {
		errs = append(errs, FieldError{Field: "scheduler.tick_interval", Message: "must be positive"})
	}
	if cfg.RunTimeout <= 0 {
		errs = append(errs, FieldError{Field: "scheduler.run_timeout", Message: "must be positive"})
	}
	if cfg.ReloadInterval < 0 {
		errs = append(errs, FieldError{Field: "scheduler.reload_interval", Message: "must not be negative"})
	}

	return errs
}

func validateCatalog(cfg *CatalogConfig) []FieldError {
	var errs []FieldError

	if cfg.Concurrency < 1 {
		errs = append(errs, FieldError{Field: "catalog.concurrency", Message: "must be at least 1"})
	}
	if cfg.PageSize < 1 || cfg.PageSize > 1000 {
		errs = append(errs, FieldError{Field: "catalog.page_size", Message: "must be between 1 and 1000"})
	}
	if cfg.CacheTTL < 0 {
		errs = append(errs, FieldError{Field: "catalog.cache_ttl", Message: "must not be negative"})
	}

	return errs
}

func validateService(name string, cfg *ServiceConfig) []FieldError {
	var errs []FieldError

	if cfg.URL != "" {
		if msg := checkHTTPURL(cfg.URL); msg != "" {
			errs = append(errs, FieldError{Field: name + ".url", Message: msg})
		}
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{Field: name + ".timeout", Message: "must not be negative"})
	}

	return errs
}

func validateEmail(cfg *EmailConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}
	if cfg.Host == "" {
		errs = append(errs, FieldError{Field: "email.host", Message: "host is required when email is enabled"})
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, FieldError{Field: "email.port", Message: "port must be between 1 and 65535"})
	}
	if !strings.Contains(cfg.From, "@") {
		errs = append(errs, FieldError{Field: "email.from", Message: fmt.Sprintf("invalid sender address %q", cfg.From)})
	}
	if cfg.SSLTLS && cfg.StartTLS {
		errs = append(errs, FieldError{Field: "email.starttls", Message: "ssl_tls and starttls are mutually exclusive"})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn or error)", cfg.Logging.Level),
		})
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be 'json' or 'text')", cfg.Logging.Format),
		})
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "path must start with '/'"})
	}
	if cfg.Health.CheckTimeout < 0 {
		errs = append(errs, FieldError{Field: "telemetry.health.check_timeout", Message: "must not be negative"})
	}
	errs = append(errs, validateTracing(&cfg.Tracing)...)

	return errs
}

func validateTracing(cfg *TracingConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}

	var errs []FieldError
	switch cfg.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q (must be always, never or ratio)", cfg.Sampler),
		})
	}
	if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "must be between 0.0 and 1.0"})
	}
	if cfg.Exporter != "otlp" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.exporter",
			Message: fmt.Sprintf("unsupported exporter %q (must be otlp)", cfg.Exporter),
		})
	}
	if cfg.Endpoint == "" {
		errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
	}
	return errs
}

func checkHTTPURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid URL format: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Sprintf("URL must use http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Sprintf("URL has no host: %q", raw)
	}
	return ""
}
