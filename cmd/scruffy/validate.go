package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jeajar/scruffy/pkg/cli"
)

var validateFlags struct {
	skipServices bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the retention policy and service connectivity",
	Long: `Validate the configuration before scheduling jobs.

The validate command checks that:
  - the configuration file loads and validates
  - the effective retention policy is consistent
  - the database is reachable and migrated
  - Overseerr, Radarr and Sonarr are configured and answer

It exits non-zero when any check fails.

Examples:
  scruffy validate --config /etc/scruffy/config.yaml
  scruffy validate --skip-services`,
	Args: cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		if !runValidation(ctx, cmd.OutOrStdout(), a, !validateFlags.skipServices) {
			return cli.NewExitError(1, nil)
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.skipServices, "skip-services", false, "do not contact the media services")
}

// check is the outcome of one validation step.
type check struct {
	name string
	err  error
}

func (c check) write(w io.Writer) {
	if c.err != nil {
		fmt.Fprintf(w, "✗ %s: %v\n", c.name, c.err)
		return
	}
	fmt.Fprintf(w, "✓ %s\n", c.name)
}

// runValidation prints every check and reports whether all passed.
func runValidation(ctx context.Context, w io.Writer, a *app, services bool) bool {
	ok := true
	report := func(c check) {
		c.write(w)
		if c.err != nil {
			ok = false
		}
	}

	report(check{name: "Configuration loaded"})

	s, err := a.resolver.Resolve(ctx)
	if err != nil {
		report(check{name: "Retention policy", err: err})
	} else {
		p := s.Policy
		report(check{name: fmt.Sprintf("Retention policy: %d days, reminder %d days before, extension %d days (%s)",
			p.RetentionDays, p.ReminderDays, p.ExtensionDays, s.Location)})
	}

	report(check{name: fmt.Sprintf("Database (%s)", a.cfg.Storage.Driver), err: a.store.Ping(ctx)})

	if !services {
		return ok
	}
	if err := a.cfg.RequireServices(); err != nil {
		report(check{name: "Media services configured", err: err})
		return false
	}

	a.collaborators()
	pingers := a.services.Pingers()
	names := make([]string, 0, len(pingers))
	for name := range pingers {
		names = append(names, name)
	}
	sort.Strings(names)

	timeout := a.cfg.Telemetry.Health.CheckTimeout
	results := make([]check, len(names))
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			results[i] = check{name: "Service " + name, err: pingers[name](pctx)}
			return nil
		})
	}
	g.Wait()

	for _, c := range results {
		report(c)
	}
	return ok
}
