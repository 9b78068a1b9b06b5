package notify

import (
	"context"
	"log/slog"

	"github.com/jeajar/scruffy/pkg/loans"
)

// LogNotifier implements loans.Notifier by logging each notice. It is used
// when email is disabled so that runs still record their reminders.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier writing to logger, or to the default
// logger when nil.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notify")}
}

// SendReminder implements loans.Notifier.
func (n *LogNotifier) SendReminder(ctx context.Context, r loans.Reminder) error {
	n.logger.InfoContext(ctx, "reminder (email disabled)",
		"title", title(r.Request, r.Media),
		"email", r.Request.RequestedBy,
		"days_left", r.DaysLeft,
		"delete_on", r.DeleteOn.Format("2006-01-02"),
		"extend_url", r.ExtendURL,
	)
	return nil
}

// SendDeletionNotice implements loans.Notifier.
func (n *LogNotifier) SendDeletionNotice(ctx context.Context, d loans.DeletionNotice) error {
	n.logger.InfoContext(ctx, "deletion notice (email disabled)",
		"title", title(d.Request, d.Media),
		"email", d.Request.RequestedBy,
	)
	return nil
}
