package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeajar/scruffy/pkg/cli"
)

var (
	// Global flags
	cfgFile       string
	verbose       bool
	storageDriver string
)

var rootCmd = &cobra.Command{
	Use:   "scruffy",
	Short: "Scruffy - media retention janitor for Overseerr, Radarr and Sonarr",
	Long: `Scruffy keeps a media server tidy by treating every request as a loan.

Once requested media is available, the requester keeps it for a retention
period. Scruffy reminds them by email before the deadline, lets them extend
the loan once, and deletes the files from Radarr or Sonarr when it expires.

The configuration file is optional: without one, defaults and SCRUFFY_*
environment variables are used.

Exit codes:
  0  success
  1  the command or job run failed
  2  invalid configuration`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !cli.Silent(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and environment only when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&storageDriver, "storage", "", "override storage driver: sqlite3, sqlite, memory")
}
