package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SCRUFFY_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded over the defaults, then validated. The configuration
// is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention SCRUFFY_SECTION_FIELD (e.g., SCRUFFY_RADARR_API_KEY).
// Environment variables always take precedence over file-based configuration.
//
// An empty path loads the defaults, so the CLI works with environment
// variables alone.
//
// The loading sequence is:
// 1. Apply default values
// 2. Decode YAML from file
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = NewDefaultConfig()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if cfg, err = parse(data); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// legacyEnv maps SCRUFFY_ variables to the unprefixed names understood by
// earlier deployments. Prefixed names win.
var legacyEnv = map[string]string{
	"SCRUFFY_OVERSEERR_URL":            "OVERSEERR_URL",
	"SCRUFFY_OVERSEERR_API_KEY":        "OVERSEERR_API_KEY",
	"SCRUFFY_RADARR_URL":               "RADARR_URL",
	"SCRUFFY_RADARR_API_KEY":           "RADARR_API_KEY",
	"SCRUFFY_SONARR_URL":               "SONARR_URL",
	"SCRUFFY_SONARR_API_KEY":           "SONARR_API_KEY",
	"SCRUFFY_RETENTION_RETENTION_DAYS": "RETENTION_DAYS",
	"SCRUFFY_RETENTION_REMINDER_DAYS":  "REMINDER_DAYS",
	"SCRUFFY_RETENTION_EXTENSION_DAYS": "EXTENSION_DAYS",
	"SCRUFFY_RETENTION_BASE_URL":       "APP_BASE_URL",
	"SCRUFFY_EMAIL_ENABLED":            "EMAIL_ENABLED",
	"SCRUFFY_EMAIL_HOST":               "SMTP_HOST",
	"SCRUFFY_EMAIL_PORT":               "SMTP_PORT",
	"SCRUFFY_EMAIL_USERNAME":           "SMTP_USERNAME",
	"SCRUFFY_EMAIL_PASSWORD":           "SMTP_PASSWORD",
	"SCRUFFY_EMAIL_FROM":               "SMTP_FROM_EMAIL",
	"SCRUFFY_EMAIL_SSL_TLS":            "SMTP_SSL_TLS",
	"SCRUFFY_EMAIL_STARTTLS":           "SMTP_STARTTLS",
	"SCRUFFY_TELEMETRY_LOGGING_LEVEL":  "LOG_LEVEL",
}

func getenv(name string) string {
	if val := os.Getenv(name); val != "" {
		return val
	}
	if legacy, ok := legacyEnv[name]; ok {
		return os.Getenv(legacy)
	}
	return ""
}

func envString(name string, dst *string) {
	if val := getenv(name); val != "" {
		*dst = val
	}
}

func envInt(name string, dst *int) {
	if val := getenv(name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(name string, dst *bool) {
	if val := getenv(name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := getenv(name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format SCRUFFY_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SCRUFFY_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SCRUFFY_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envBool("SCRUFFY_SERVER_WATCH_CONFIG", &cfg.Server.WatchConfig)
	if key := getenv("SCRUFFY_SERVER_API_KEY"); key != "" {
		cfg.Server.APIKeys = append(cfg.Server.APIKeys, APIKeyConfig{Name: "env", Key: key})
	}

	// Storage overrides
	envString("SCRUFFY_STORAGE_DRIVER", &cfg.Storage.Driver)
	envString("SCRUFFY_STORAGE_PATH", &cfg.Storage.Path)
	envBool("SCRUFFY_STORAGE_WAL_MODE", &cfg.Storage.WALMode)

	// Retention overrides
	envInt("SCRUFFY_RETENTION_RETENTION_DAYS", &cfg.Retention.RetentionDays)
	envInt("SCRUFFY_RETENTION_REMINDER_DAYS", &cfg.Retention.ReminderDays)
	envInt("SCRUFFY_RETENTION_EXTENSION_DAYS", &cfg.Retention.ExtensionDays)
	envString("SCRUFFY_RETENTION_BASE_URL", &cfg.Retention.BaseURL)
	envString("SCRUFFY_RETENTION_TIMEZONE", &cfg.Retention.Timezone)

	// Scheduler overrides
	envBool("SCRUFFY_SCHEDULER_ENABLED", &cfg.Scheduler.Enabled)
	envDuration("SCRUFFY_SCHEDULER_RUN_TIMEOUT", &cfg.Scheduler.RunTimeout)
	envDuration("SCRUFFY_SCHEDULER_RELOAD_INTERVAL", &cfg.Scheduler.ReloadInterval)

	// Catalog overrides
	envInt("SCRUFFY_CATALOG_CONCURRENCY", &cfg.Catalog.Concurrency)
	envInt("SCRUFFY_CATALOG_CACHE_SIZE", &cfg.Catalog.CacheSize)
	envDuration("SCRUFFY_CATALOG_CACHE_TTL", &cfg.Catalog.CacheTTL)

	// Media service overrides
	applyServiceEnvOverrides(&cfg.Overseerr, "OVERSEERR")
	applyServiceEnvOverrides(&cfg.Radarr, "RADARR")
	applyServiceEnvOverrides(&cfg.Sonarr, "SONARR")

	// Email overrides
	envBool("SCRUFFY_EMAIL_ENABLED", &cfg.Email.Enabled)
	envString("SCRUFFY_EMAIL_HOST", &cfg.Email.Host)
	envInt("SCRUFFY_EMAIL_PORT", &cfg.Email.Port)
	envString("SCRUFFY_EMAIL_USERNAME", &cfg.Email.Username)
	envString("SCRUFFY_EMAIL_PASSWORD", &cfg.Email.Password)
	envString("SCRUFFY_EMAIL_FROM", &cfg.Email.From)
	envBool("SCRUFFY_EMAIL_SSL_TLS", &cfg.Email.SSLTLS)
	envBool("SCRUFFY_EMAIL_STARTTLS", &cfg.Email.StartTLS)

	// Telemetry overrides
	envString("SCRUFFY_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("SCRUFFY_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("SCRUFFY_TELEMETRY_LOGGING_REDACT_EMAILS", &cfg.Telemetry.Logging.RedactEmails)
	envBool("SCRUFFY_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("SCRUFFY_TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("SCRUFFY_TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("SCRUFFY_TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envBool("SCRUFFY_TELEMETRY_TRACING_OTLP_INSECURE", &cfg.Telemetry.Tracing.OTLP.Insecure)
}

// applyServiceEnvOverrides applies SCRUFFY_<NAME>_URL, _API_KEY and
// _TIMEOUT to a media service section.
func applyServiceEnvOverrides(svc *ServiceConfig, name string) {
	prefix := EnvPrefix + name + "_"
	envString(prefix+"URL", &svc.URL)
	envString(prefix+"API_KEY", &svc.APIKey)
	envDuration(prefix+"TIMEOUT", &svc.Timeout)
}
