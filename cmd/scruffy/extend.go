package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeajar/scruffy/pkg/cli"
	"github.com/jeajar/scruffy/pkg/loans/retention"
)

var extendFlags struct {
	grantedBy string
	format    string
}

var extendCmd = &cobra.Command{
	Use:   "extend REQUEST_ID",
	Short: "Extend a loan",
	Long: `Grant the one-time extension of a loan, identified by its Overseerr
request id. The loan must be available and not extended yet.

Examples:
  scruffy extend 42
  scruffy extend 42 --granted-by admin@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil || id < 1 {
			return fmt.Errorf("invalid request id %q", args[0])
		}
		return extendLoan(ctx, cmd, a, id, extendFlags.grantedBy, extendFlags.format)
	}),
}

func init() {
	rootCmd.AddCommand(extendCmd)

	extendCmd.Flags().StringVar(&extendFlags.grantedBy, "granted-by", "cli", "who granted the extension")
	extendCmd.Flags().StringVar(&extendFlags.format, "format", "text", "output format: text, json")
}

// extension is the result of the extend command.
type extension struct {
	RequestID int             `json:"request_id"`
	Title     string          `json:"title"`
	Days      int             `json:"days"`
	State     retention.State `json:"state"`
}

func (e *extension) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "✓ %q (request %d) extended by %d days: %d days left, deleted on %s\n",
		e.Title, e.RequestID, e.Days, e.State.DaysLeft, e.State.DeleteOn.Format(time.DateOnly))
	return err
}

func extendLoan(ctx context.Context, cmd *cobra.Command, a *app, id int, grantedBy, format string) error {
	if err := summaryFormat(format); err != nil {
		return err
	}
	ledger := retention.NewLedger(a.store, a.resolver)
	req, state, err := ledger.Extend(ctx, id, grantedBy)
	if err != nil {
		return cli.NewExitError(exitCodeFor(err), err)
	}
	return output(cmd, format, &extension{
		RequestID: req.ExternalRequestID,
		Title:     req.Title,
		Days:      req.ExtensionDays(),
		State:     state,
	})
}
