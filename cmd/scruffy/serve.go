package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeajar/scruffy/pkg/api"
	"github.com/jeajar/scruffy/pkg/cli"
	"github.com/jeajar/scruffy/pkg/config"
	"github.com/jeajar/scruffy/pkg/loans/history"
	"github.com/jeajar/scruffy/pkg/loans/retention"
	"github.com/jeajar/scruffy/pkg/loans/scheduler"
	"github.com/jeajar/scruffy/pkg/security/auth"
	"github.com/jeajar/scruffy/pkg/server"
	"github.com/jeajar/scruffy/pkg/telemetry/health"
)

var serveFlags struct {
	listenAddress string
	noScheduler   bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin API and the cron scheduler",
	Long: `Start the admin HTTP API and the cron scheduler.

The scheduler fires the stored schedules and picks up schedules changed
through the CLI within scheduler.reload_interval. The admin API manages
schedules, settings and extensions, and triggers runs on demand.

Examples:
  # Start with a configuration file
  scruffy serve --config /etc/scruffy/config.yaml

  # Override listen address
  scruffy serve --listen 0.0.0.0:8080

  # Serve the API without firing schedules
  scruffy serve --no-scheduler`,
	RunE: withApp(runServe),
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
	serveCmd.Flags().BoolVar(&serveFlags.noScheduler, "no-scheduler", false, "do not fire schedules (manual runs still work)")
}

func runServe(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
	if serveFlags.listenAddress != "" {
		a.cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if err := a.requireServices(); err != nil {
		return err
	}

	run := a.newRunner()
	sched := scheduler.New(a.store, run, a.cfg.Scheduler,
		scheduler.WithLocation(a.location),
		scheduler.WithMetrics(a.metrics),
	)
	defer sched.Stop()

	checker := health.New(a.cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("database", a.store.Ping)
	for name, ping := range a.services.Pingers() {
		checker.RegisterCheck(name, ping)
	}

	keys := auth.NewValidator(apiKeys(a.cfg.Server.APIKeys))
	ledger := retention.NewLedger(a.store, a.resolver)
	handler := server.NewRouter(server.Routes{
		API:         api.New(a.store, sched, a.resolver, ledger).Routes(),
		Auth:        auth.NewMiddleware(keys, nil),
		Health:      checker,
		Metrics:     a.metrics,
		MetricsPath: a.cfg.Telemetry.Metrics.Path,
		Tracer:      a.tracer,
		Version:     Version,
		Commit:      GitCommit,
		BuildTime:   BuildDate,
		Logger:      a.logger,
	})
	srv := server.NewServer(&a.cfg.Server, handler)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Scruffy v%s\n", Version)
	fmt.Fprintln(w, "✓ Configuration loaded")
	fmt.Fprintf(w, "✓ Storage ready (%s)\n", a.cfg.Storage.Driver)
	if keys.Empty() {
		fmt.Fprintln(w, "! Admin API is not protected: no server.api_keys configured")
	} else {
		fmt.Fprintf(w, "✓ Admin API keys loaded (%d)\n", len(a.cfg.Server.APIKeys))
	}

	if a.cfg.Scheduler.Enabled && !serveFlags.noScheduler {
		if err := sched.Start(ctx); err != nil {
			return cli.NewCommandError("serve", err)
		}
		fmt.Fprintf(w, "✓ Scheduler started (%d schedules)\n", len(sched.Entries()))
	} else {
		fmt.Fprintln(w, "✓ Scheduler disabled")
	}

	pruner := history.NewPruner(a.store, a.cfg.Storage.History)
	if err := pruner.Start(ctx, a.location()); err != nil {
		return cli.NewExitError(exitConfig, err)
	}
	defer pruner.Stop()
	if next := pruner.NextRun(); !next.IsZero() {
		fmt.Fprintf(w, "✓ Job history pruning scheduled (next %s)\n", next.Format(time.DateTime))
	}

	if a.cfg.Server.WatchConfig && cfgFile != "" {
		config.OnReload(func(c *config.Config) {
			keys.Replace(apiKeys(c.Server.APIKeys))
			fb := retentionFallback()
			slog.Info("retention configuration reloaded",
				"retention_days", fb.RetentionDays,
				"reminder_days", fb.ReminderDays,
				"extension_days", fb.ExtensionDays,
			)
		})
		watcher, err := config.NewWatcher(cfgFile, 0, nil)
		if err != nil {
			slog.Warn("config watcher disabled", "error", err)
		} else {
			go func() {
				if err := watcher.Watch(ctx); err != nil {
					slog.Error("config watcher stopped", "error", err)
				}
			}()
			defer watcher.Stop()
			fmt.Fprintf(w, "✓ Watching %s\n", cfgFile)
		}
	}

	addr := a.cfg.Server.ListenAddress
	fmt.Fprintln(w)
	fmt.Fprintf(w, "✓ Admin API: http://%s/api/v1\n", addr)
	fmt.Fprintf(w, "✓ Health endpoint: http://%s/health\n", addr)
	if a.cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(w, "✓ Metrics endpoint: http://%s%s\n", addr, a.cfg.Telemetry.Metrics.Path)
	}
	if a.tracer.Enabled() {
		fmt.Fprintf(w, "✓ Tracing to %s\n", a.cfg.Telemetry.Tracing.Endpoint)
	}
	fmt.Fprintln(w, "\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}

	fmt.Fprintln(w, "✓ Waiting for running jobs")
	sched.Stop()
	fmt.Fprintln(w, "✓ Server stopped")
	return nil
}

func apiKeys(cfg []config.APIKeyConfig) []auth.APIKey {
	keys := make([]auth.APIKey, len(cfg))
	for i, k := range cfg {
		keys[i] = auth.APIKey{Name: k.Name, Key: k.Key, Enabled: !k.Disabled}
	}
	return keys
}
