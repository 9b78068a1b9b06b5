package loans

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// CronFields is the number of fields of an accepted cron expression:
// minute hour day-of-month month day-of-week.
const CronFields = 5

// ParseCron validates a five-field crontab expression and returns its
// schedule. Descriptors such as "@daily" and six-field expressions are
// rejected.
func ParseCron(expr string) (cron.Schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != CronFields {
		return nil, NewConfigError("cron_expression",
			fmt.Sprintf("expected %d fields (minute hour day month weekday), got %d in %q", CronFields, len(fields), expr))
	}
	sched, err := cron.ParseStandard(strings.Join(fields, " "))
	if err != nil {
		return nil, NewConfigError("cron_expression", fmt.Sprintf("invalid expression %q: %v", expr, err))
	}
	return sched, nil
}

// NormalizeCron collapses the whitespace of expr to single spaces.
func NormalizeCron(expr string) string {
	return strings.Join(strings.Fields(expr), " ")
}
