package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeajar/scruffy/pkg/cli"
	"github.com/jeajar/scruffy/pkg/config"
	"github.com/jeajar/scruffy/pkg/loans"
	"github.com/jeajar/scruffy/pkg/loans/history"
	"github.com/jeajar/scruffy/pkg/loans/runner"
	"github.com/jeajar/scruffy/pkg/loans/storage"
)

var jobFlags struct {
	format string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report the loans needing attention",
	Long: `Run the check job once.

The check job lists the available requests, records newly available media
and reports the loans inside their reminder window or past their deadline.
Loans in their reminder window get one reminder per window, like the
process job. Expired loans are only reported: check never deletes.

The command exits non-zero when the run failed outright, for example when
Overseerr could not be listed. Per-item failures are reported in the
summary.`,
	Args: cobra.NoArgs,
	RunE: withApp(runJob(loans.JobCheck)),
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Send reminders and delete expired media",
	Long: `Run the process job once.

Loans in their reminder window get one reminder per window with an
extension link. Expired loans are deleted from Radarr or Sonarr and from
Overseerr, and the requester is notified. A failed deletion is retried by
the next run.

Examples:
  # Process and print the summary
  scruffy process

  # Machine readable summary
  scruffy process --format json`,
	Args: cobra.NoArgs,
	RunE: withApp(runJob(loans.JobProcess)),
}

var historyFlags struct {
	limit  int
	format string
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Show the job run history",
	Long:  `Show the recorded job runs, newest first, with their outcome and failures.`,
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		return listJobRuns(ctx, cmd, a, historyFlags.limit, historyFlags.format)
	}),
}

var pruneFlags struct {
	retentionDays int
	maxRuns       int
}

var jobsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old job runs",
	Long: `Delete job runs beyond the history limits: runs older than
storage.history.retention_days, then all but the newest
storage.history.max_runs. Flags override the configured limits; zero
disables a limit.

Examples:
  # Apply the configured limits
  scruffy jobs prune

  # Keep only the last 100 runs
  scruffy jobs prune --max-runs 100 --retention-days 0`,
	Args: cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		limits := a.cfg.Storage.History
		if cmd.Flags().Changed("retention-days") {
			limits.RetentionDays = pruneFlags.retentionDays
		}
		if cmd.Flags().Changed("max-runs") {
			limits.MaxRuns = pruneFlags.maxRuns
		}
		return pruneJobRuns(ctx, cmd, a, limits)
	}),
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsPruneCmd)

	jobsPruneCmd.Flags().IntVar(&pruneFlags.retentionDays, "retention-days", 0, "delete runs older than this many days")
	jobsPruneCmd.Flags().IntVar(&pruneFlags.maxRuns, "max-runs", 0, "keep at most this many runs")

	for _, cmd := range []*cobra.Command{checkCmd, processCmd} {
		cmd.Flags().StringVar(&jobFlags.format, "format", "text", "output format: text, json")
	}

	jobsCmd.Flags().IntVarP(&historyFlags.limit, "limit", "n", storage.DefaultHistoryLimit, "maximum number of runs")
	jobsCmd.Flags().StringVar(&historyFlags.format, "format", "text", "output format: text, json, csv")
}

func runJob(jobType loans.JobType) func(context.Context, *cobra.Command, *app, []string) error {
	return func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		if err := summaryFormat(jobFlags.format); err != nil {
			return err
		}
		if err := a.requireServices(); err != nil {
			return err
		}
		return executeJob(ctx, cmd, a, jobType, jobFlags.format)
	}
}

// executeJob runs jobType in the foreground and prints its summary.
func executeJob(ctx context.Context, cmd *cobra.Command, a *app, jobType loans.JobType, format string) error {
	run, err := a.newRunner().Run(ctx, jobType, runner.TriggerCLI)
	if err != nil {
		return cli.NewCommandError(string(jobType), err)
	}
	if err := output(cmd, format, &runView{JobRun: run}); err != nil {
		return err
	}
	if !run.Success {
		return cli.NewExitError(1, nil)
	}
	return nil
}

func listJobRuns(ctx context.Context, cmd *cobra.Command, a *app, limit int, format string) error {
	if limit < 1 {
		return fmt.Errorf("--limit must be at least 1")
	}
	runs, err := a.store.ListJobRuns(ctx, limit)
	if err != nil {
		return err
	}
	if f, _ := cli.ParseFormat(format); f == cli.FormatJSON {
		return output(cmd, format, runs)
	}

	table := &cli.Table{
		Headers: []string{"ID", "JOB", "TRIGGER", "FINISHED", "DURATION", "OUTCOME", "FAILURES", "ERROR"},
		Empty:   "No job runs recorded.",
	}
	for _, r := range runs {
		table.Rows = append(table.Rows, []string{
			strconv.FormatInt(r.ID, 10),
			string(r.JobType),
			r.Trigger,
			r.FinishedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			r.Outcome(),
			strconv.Itoa(len(r.Failures())),
			r.ErrorMessage,
		})
	}
	return output(cmd, format, table)
}

func pruneJobRuns(ctx context.Context, cmd *cobra.Command, a *app, limits config.HistoryConfig) error {
	if limits.RetentionDays < 0 || limits.MaxRuns < 0 {
		return fmt.Errorf("history limits must not be negative")
	}
	deleted, err := history.NewPruner(a.store, limits).Prune(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d job runs\n", deleted)
	return nil
}

// runView renders a job run as a human readable summary. Its JSON form is
// the run itself.
type runView struct {
	*loans.JobRun
}

// WriteText implements cli.Texter.
func (v *runView) WriteText(w io.Writer) error {
	r := v.JobRun
	fmt.Fprintf(w, "%s run %s (%s): %s in %s\n",
		r.JobType, r.RunID, r.Trigger, r.Outcome(), r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	if r.ErrorMessage != "" {
		fmt.Fprintf(w, "Error: %s\n", r.ErrorMessage)
	}

	switch {
	case r.Check != nil:
		fmt.Fprintf(w, "Items checked: %d\n", r.Check.ItemsChecked)
		fmt.Fprintf(w, "Needing attention: %d\n", r.Check.NeedingAttention)
	case r.Process != nil:
		p := r.Process
		if err := writeReminders(w, "Reminders sent", p.RemindersSent); err != nil {
			return err
		}
		if err := writeReminders(w, "Needs attention", p.NeedsAttention); err != nil {
			return err
		}
		fmt.Fprintf(w, "\nDeletions (%d):\n", len(p.Deletions))
		if len(p.Deletions) > 0 {
			table := &cli.Table{Headers: []string{"TITLE", "REQUESTER"}}
			for _, d := range p.Deletions {
				table.Rows = append(table.Rows, []string{d.Title, d.Email})
			}
			if err := table.WriteText(w); err != nil {
				return err
			}
		}
	}

	failures := r.Failures()
	if len(failures) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\nFailures (%d):\n", len(failures))
	table := &cli.Table{Headers: []string{"REQUEST", "TITLE", "STAGE", "ERROR"}}
	for _, f := range failures {
		table.Rows = append(table.Rows, []string{strconv.Itoa(f.RequestID), f.Title, f.Stage, f.Error})
	}
	return table.WriteText(w)
}

func writeReminders(w io.Writer, heading string, entries []loans.ReminderEntry) error {
	fmt.Fprintf(w, "\n%s (%d):\n", heading, len(entries))
	if len(entries) == 0 {
		return nil
	}
	table := &cli.Table{Headers: []string{"TITLE", "REQUESTER", "DAYS LEFT"}}
	for _, e := range entries {
		table.Rows = append(table.Rows, []string{e.Title, e.Email, strconv.Itoa(e.DaysLeft)})
	}
	return table.WriteText(w)
}
