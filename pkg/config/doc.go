// Package config provides configuration management for Scruffy.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("scruffy.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("scruffy.yaml")
//
// An empty path to LoadConfigWithEnvOverrides yields the defaults plus the
// environment, so the CLI can run without a configuration file.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention SCRUFFY_SECTION_FIELD:
//
//   - SCRUFFY_RADARR_API_KEY overrides radarr.api_key
//   - SCRUFFY_RETENTION_RETENTION_DAYS overrides retention.retention_days
//   - SCRUFFY_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// The unprefixed names of earlier deployments (OVERSEERR_URL, RETENTION_DAYS,
// SMTP_HOST, APP_BASE_URL, ...) are honored when the prefixed variable is not
// set.
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// The retention section is itself only the middle tier of the retention
// settings: values saved by an administrator through the API or CLI take
// precedence, and built-in defaults apply when neither is set.
//
// # Hot Reload
//
// With server.watch_config enabled, a Watcher reloads the file when it
// changes. A file that fails to load or validate is logged and the previous
// configuration stays in effect.
//
// # Example Configuration
//
//	server:
//	  listen_address: "0.0.0.0:8080"
//
//	storage:
//	  driver: "sqlite3"
//	  path: "/data/scruffy.db"
//
//	retention:
//	  retention_days: 30
//	  reminder_days: 7
//	  base_url: "https://scruffy.example.com"
//
//	overseerr:
//	  url: "http://overseerr:5055"
//	  api_key: "your-overseerr-api-key"
//
//	email:
//	  enabled: true
//	  host: "smtp.example.com"
//	  port: 587
//	  starttls: true
package config
