// Package logging configures structured logging on top of log/slog.
//
// New returns a *slog.Logger whose handler appends the run_id, job_type and
// request_id carried by the context of each record, so a job run or an API
// request can be followed across components:
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	slog.SetDefault(logger)
//
//	ctx = logging.WithRunID(ctx, runID)
//	slog.Default().InfoContext(ctx, "reminder sent", "email", email)
//
// With RedactEmails enabled, requester addresses are masked in string
// attributes and messages (jane@example.com becomes j***@example.com), and
// attributes named like secrets keep only a four character prefix.
package logging
