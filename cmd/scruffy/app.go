package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeajar/scruffy/pkg/catalog"
	"github.com/jeajar/scruffy/pkg/cli"
	"github.com/jeajar/scruffy/pkg/config"
	"github.com/jeajar/scruffy/pkg/loans"
	"github.com/jeajar/scruffy/pkg/loans/runner"
	"github.com/jeajar/scruffy/pkg/loans/settings"
	"github.com/jeajar/scruffy/pkg/loans/storage"
	"github.com/jeajar/scruffy/pkg/notify"
	"github.com/jeajar/scruffy/pkg/telemetry/logging"
	"github.com/jeajar/scruffy/pkg/telemetry/metrics"
	"github.com/jeajar/scruffy/pkg/telemetry/tracing"
)

// exitConfig is the exit code of configuration errors.
const exitConfig = 2

// app holds the components shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    loans.Store
	resolver *settings.Resolver
	metrics  *metrics.Collector
	tracer   *tracing.Tracer

	// catalog and notifier are built from cfg on first use.
	catalog  catalog.Catalog
	services *catalog.Service
	notifier loans.Notifier

	// now overrides the wall clock of job runs.
	now func() time.Time
}

// newApp loads the configuration, sets up logging and opens the store.
func newApp() (*app, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewExitError(exitConfig, fmt.Errorf("failed to load config: %w", err))
	}
	cfg := config.GetConfig()
	if storageDriver != "" {
		cfg.Storage.Driver = storageDriver
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:        cfg.Telemetry.Logging.Level,
		Format:       cfg.Telemetry.Logging.Format,
		AddSource:    cfg.Telemetry.Logging.AddSource,
		RedactEmails: cfg.Telemetry.Logging.RedactEmails,
	})
	if err != nil {
		return nil, cli.NewExitError(exitConfig, err)
	}
	slog.SetDefault(logger)

	store, err := openStore(cfg.Storage)
	if err != nil {
		return nil, err
	}

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		store.Close()
		return nil, cli.NewExitError(exitConfig, fmt.Errorf("failed to set up tracing: %w", err))
	}

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		resolver: settings.NewResolver(store, retentionFallback),
		metrics:  collector,
		tracer:   tracer,
	}, nil
}

// Close flushes pending spans and releases the store.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("failed to flush traces", "error", err)
	}
	return a.store.Close()
}

// retentionFallback reads the configuration tier of the retention settings
// from the current configuration, so reloads apply to the next run.
func retentionFallback() settings.Fallback {
	cfg := config.GetConfig()
	if cfg == nil {
		return settings.Fallback{}
	}
	r := cfg.Retention
	return settings.Fallback{
		RetentionDays: r.RetentionDays,
		ReminderDays:  r.ReminderDays,
		ExtensionDays: r.ExtensionDays,
		BaseURL:       r.BaseURL,
		Timezone:      r.Timezone,
	}
}

// openStore opens the backend selected by cfg.Driver.
func openStore(cfg config.StorageConfig) (loans.Store, error) {
	switch cfg.Driver {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case storage.DriverMattn, storage.DriverModernc:
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create storage directory: %w", err)
			}
		}
		s, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Driver:       cfg.Driver,
			Path:         cfg.Path,
			MaxOpenConns: cfg.MaxOpenConns,
			WALMode:      cfg.WALMode,
			BusyTimeout:  cfg.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		return s, nil
	}
	return nil, cli.NewExitError(exitConfig, loans.NewConfigError("storage.driver",
		fmt.Sprintf("unsupported driver %q (want sqlite3, sqlite or memory)", cfg.Driver)))
}

// requireServices fails with a configuration exit code when a media service
// is not configured.
func (a *app) requireServices() error {
	if err := a.cfg.RequireServices(); err != nil {
		return cli.NewExitError(exitConfig, err)
	}
	return nil
}

// collaborators returns the catalog used by job runs, wrapped in the media
// cache unless it is disabled.
func (a *app) collaborators() catalog.Catalog {
	if a.catalog != nil {
		return a.catalog
	}
	a.services = catalog.NewServiceFromConfig(a.cfg)
	a.catalog = a.services
	if a.cfg.Catalog.CacheSize > 0 {
		a.catalog = catalog.NewCached(a.services, a.cfg.Catalog.CacheSize, a.cfg.Catalog.CacheTTL, a.metrics)
	}
	return a.catalog
}

func (a *app) newRunner() *runner.Runner {
	if a.notifier == nil {
		a.notifier = notify.FromConfig(a.cfg.Email)
	}
	cat := a.collaborators()
	opts := []runner.Option{
		runner.WithConcurrency(a.cfg.Catalog.Concurrency),
		runner.WithMetrics(a.metrics),
		runner.WithTracer(a.tracer),
	}
	if a.now != nil {
		opts = append(opts, runner.WithNow(a.now))
	}
	return runner.New(a.store, cat, cat, a.notifier, a.resolver, opts...)
}

// location returns the time zone of the effective settings, falling back to
// the local zone while the settings do not resolve.
func (a *app) location() *time.Location {
	s, err := a.resolver.Resolve(context.Background())
	if err != nil {
		return time.Local
	}
	return s.Location
}

// withApp adapts fn to a cobra RunE: it builds the app, cancels the context
// on SIGINT or SIGTERM and closes the store afterwards.
func withApp(fn func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := cli.SetupSignalHandler(commandContext(cmd))
		defer cancel()

		return fn(ctx, cmd, a, args)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// summaryFormat parses the --format flag of commands printing a single
// result, which have no CSV rendering.
func summaryFormat(format string) error {
	f, err := cli.ParseFormat(format)
	if err != nil {
		return err
	}
	if f == cli.FormatCSV {
		return fmt.Errorf("--format csv is only available for list commands")
	}
	return nil
}

// output writes data to the command output in the format of the --format
// flag.
func output(cmd *cobra.Command, format string, data any) error {
	f, err := cli.ParseFormat(format)
	if err != nil {
		return err
	}
	return cli.NewFormatter(f).FormatTo(cmd.OutOrStdout(), data)
}
