package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeajar/scruffy/pkg/cli"
	"github.com/jeajar/scruffy/pkg/loans"
	"github.com/jeajar/scruffy/pkg/loans/runner"
)

var schedulesCmd = &cobra.Command{
	Use:     "schedules",
	Aliases: []string{"schedule"},
	Short:   "Manage cron schedules",
	Long: `Manage the cron schedules that trigger the check and process jobs.

Cron expressions have five fields (minute hour day month weekday) and are
evaluated in the configured time zone. A running server picks up changes
made here within scheduler.reload_interval.

Examples:
  # Process every day at 09:00
  scruffy schedules add process "0 9 * * *"

  # Check every six hours, created disabled
  scruffy schedules add check "0 */6 * * *" --disabled

  # Move a schedule
  scruffy schedules update 2 --cron "30 8 * * 1-5"

  # Run the job of a schedule now
  scruffy schedules run 2`,
}

var scheduleListFlags struct {
	format string
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedules",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		return listSchedules(ctx, cmd, a, scheduleListFlags.format)
	}),
}

var scheduleAddFlags struct {
	disabled bool
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add JOB_TYPE CRON",
	Short: "Create a schedule",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		sched, err := a.store.CreateSchedule(ctx, loans.JobType(args[0]), args[1], !scheduleAddFlags.disabled)
		if err != nil {
			return cli.NewExitError(exitCodeFor(err), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Schedule %d created: %s at %q (%s)\n",
			sched.ID, sched.JobType, sched.CronExpression, enabledLabel(sched.Enabled))
		return nil
	}),
}

var scheduleUpdateFlags struct {
	jobType string
	cron    string
	enable  bool
	disable bool
}

var scheduleUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Change a schedule",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		id, err := parseScheduleID(args[0])
		if err != nil {
			return err
		}
		patch, err := schedulePatchFromFlags(cmd)
		if err != nil {
			return err
		}
		sched, err := a.store.UpdateSchedule(ctx, id, patch)
		if err != nil {
			return cli.NewExitError(exitCodeFor(err), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Schedule %d updated: %s at %q (%s)\n",
			sched.ID, sched.JobType, sched.CronExpression, enabledLabel(sched.Enabled))
		return nil
	}),
}

var scheduleDeleteCmd = &cobra.Command{
	Use:     "delete ID",
	Aliases: []string{"rm"},
	Short:   "Delete a schedule",
	Args:    cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		id, err := parseScheduleID(args[0])
		if err != nil {
			return err
		}
		if err := a.store.DeleteSchedule(ctx, id); err != nil {
			return cli.NewExitError(exitCodeFor(err), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Schedule %d deleted\n", id)
		return nil
	}),
}

var scheduleRunFlags struct {
	format string
}

var scheduleRunCmd = &cobra.Command{
	Use:   "run ID",
	Short: "Run the job of a schedule now",
	Long: `Run the job of a schedule once, in the foreground, regardless of its cron
expression or enabled flag. The run is recorded with the manual trigger.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		if err := summaryFormat(scheduleRunFlags.format); err != nil {
			return err
		}
		id, err := parseScheduleID(args[0])
		if err != nil {
			return err
		}
		sched, err := a.store.GetSchedule(ctx, id)
		if err != nil {
			return cli.NewExitError(exitCodeFor(err), err)
		}
		if err := a.requireServices(); err != nil {
			return err
		}
		run, err := a.newRunner().Run(ctx, sched.JobType, runner.TriggerManual)
		if err != nil {
			return cli.NewCommandError(string(sched.JobType), err)
		}
		if err := output(cmd, scheduleRunFlags.format, &runView{JobRun: run}); err != nil {
			return err
		}
		if !run.Success {
			return cli.NewExitError(1, nil)
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(schedulesCmd)
	schedulesCmd.AddCommand(scheduleListCmd, scheduleAddCmd, scheduleUpdateCmd, scheduleDeleteCmd, scheduleRunCmd)

	scheduleListCmd.Flags().StringVar(&scheduleListFlags.format, "format", "text", "output format: text, json, csv")

	scheduleAddCmd.Flags().BoolVar(&scheduleAddFlags.disabled, "disabled", false, "create the schedule disabled")

	scheduleUpdateCmd.Flags().StringVar(&scheduleUpdateFlags.jobType, "job-type", "", "new job type: check, process")
	scheduleUpdateCmd.Flags().StringVar(&scheduleUpdateFlags.cron, "cron", "", "new cron expression")
	scheduleUpdateCmd.Flags().BoolVar(&scheduleUpdateFlags.enable, "enable", false, "enable the schedule")
	scheduleUpdateCmd.Flags().BoolVar(&scheduleUpdateFlags.disable, "disable", false, "disable the schedule")
	scheduleUpdateCmd.MarkFlagsMutuallyExclusive("enable", "disable")

	scheduleRunCmd.Flags().StringVar(&scheduleRunFlags.format, "format", "text", "output format: text, json")
}

func listSchedules(ctx context.Context, cmd *cobra.Command, a *app, format string) error {
	scheds, err := a.store.ListSchedules(ctx)
	if err != nil {
		return err
	}
	if f, _ := cli.ParseFormat(format); f == cli.FormatJSON {
		return output(cmd, format, scheds)
	}

	loc := a.location()
	now := time.Now()
	table := &cli.Table{
		Headers: []string{"ID", "JOB", "CRON", "STATUS", "NEXT RUN"},
		Empty:   "No schedules. Create one with: scruffy schedules add process \"0 9 * * *\"",
	}
	for _, s := range scheds {
		next := "-"
		if s.Enabled {
			if spec, err := loans.ParseCron(s.CronExpression); err == nil {
				next = spec.Next(now.In(loc)).Format(time.DateTime + " MST")
			}
		}
		table.Rows = append(table.Rows, []string{
			strconv.FormatInt(s.ID, 10),
			string(s.JobType),
			s.CronExpression,
			enabledLabel(s.Enabled),
			next,
		})
	}
	return output(cmd, format, table)
}

// schedulePatchFromFlags builds the patch of the flags set on cmd.
func schedulePatchFromFlags(cmd *cobra.Command) (loans.SchedulePatch, error) {
	var patch loans.SchedulePatch
	flags := cmd.Flags()
	if flags.Changed("job-type") {
		jt := loans.JobType(scheduleUpdateFlags.jobType)
		patch.JobType = &jt
	}
	if flags.Changed("cron") {
		expr := scheduleUpdateFlags.cron
		patch.CronExpression = &expr
	}
	switch {
	case flags.Changed("enable"):
		enabled := scheduleUpdateFlags.enable
		patch.Enabled = &enabled
	case flags.Changed("disable"):
		enabled := !scheduleUpdateFlags.disable
		patch.Enabled = &enabled
	}
	if patch.Empty() {
		return patch, fmt.Errorf("nothing to update: set --job-type, --cron, --enable or --disable")
	}
	return patch, nil
}

func parseScheduleID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid schedule id %q", s)
	}
	return id, nil
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

// exitCodeFor maps domain errors to exit codes: invalid input is a
// configuration error, anything else a plain failure.
func exitCodeFor(err error) int {
	if loans.IsConfig(err) {
		return exitConfig
	}
	return 1
}
