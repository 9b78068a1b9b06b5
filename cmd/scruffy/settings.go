package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeajar/scruffy/pkg/cli"
	"github.com/jeajar/scruffy/pkg/loans/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the retention settings",
	Long: `Show or change the retention settings.

Each setting resolves from a value saved here, then the configuration file
or environment, then the built-in default (30 / 7 / 7 days). Saved values
take effect on the next run.`,
}

var settingsShowFlags struct {
	format string
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings and where each comes from",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		return showSettings(ctx, cmd, a, settingsShowFlags.format)
	}),
}

var settingsSetFlags struct {
	retentionDays int
	reminderDays  int
	extensionDays int
	baseURL       string
	timezone      string
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Save settings",
	Long: `Save one or more settings. The merged policy must keep the reminder
window shorter than the retention period; nothing is saved otherwise.

Examples:
  scruffy settings set --retention-days 45 --reminder-days 10
  scruffy settings set --base-url https://scruffy.example.com --timezone America/Toronto`,
	Args: cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		patch := settingsPatchFromFlags(cmd)
		if patch.Empty() {
			return fmt.Errorf("nothing to update: set at least one setting flag")
		}
		if _, err := a.resolver.Update(ctx, patch); err != nil {
			return cli.NewExitError(exitCodeFor(err), err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Settings saved")
		return showSettings(ctx, cmd, a, "text")
	}),
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)

	settingsShowCmd.Flags().StringVar(&settingsShowFlags.format, "format", "text", "output format: text, json, csv")

	f := settingsSetCmd.Flags()
	f.IntVar(&settingsSetFlags.retentionDays, "retention-days", 0, "days a loan lasts once available")
	f.IntVar(&settingsSetFlags.reminderDays, "reminder-days", 0, "days before the deadline a reminder is sent")
	f.IntVar(&settingsSetFlags.extensionDays, "extension-days", 0, "days added by an extension")
	f.StringVar(&settingsSetFlags.baseURL, "base-url", "", "public URL used in extension links (empty clears it)")
	f.StringVar(&settingsSetFlags.timezone, "timezone", "", "IANA time zone for day counting and cron")
}

func showSettings(ctx context.Context, cmd *cobra.Command, a *app, format string) error {
	fields, err := a.resolver.Current(ctx)
	if err != nil {
		return err
	}
	if f, _ := cli.ParseFormat(format); f == cli.FormatJSON {
		return output(cmd, format, fields)
	}
	table := &cli.Table{Headers: []string{"SETTING", "VALUE", "SOURCE"}}
	for _, field := range fields {
		table.Rows = append(table.Rows, []string{field.Key, field.Value, string(field.Source)})
	}
	return output(cmd, format, table)
}

func settingsPatchFromFlags(cmd *cobra.Command) settings.Patch {
	var patch settings.Patch
	flags := cmd.Flags()
	if flags.Changed("retention-days") {
		v := settingsSetFlags.retentionDays
		patch.RetentionDays = &v
	}
	if flags.Changed("reminder-days") {
		v := settingsSetFlags.reminderDays
		patch.ReminderDays = &v
	}
	if flags.Changed("extension-days") {
		v := settingsSetFlags.extensionDays
		patch.ExtensionDays = &v
	}
	if flags.Changed("base-url") {
		v := settingsSetFlags.baseURL
		patch.BaseURL = &v
	}
	if flags.Changed("timezone") {
		v := settingsSetFlags.timezone
		patch.Timezone = &v
	}
	return patch
}
