package storage

import (
	"errors"
	"time"

	"github.com/jeajar/scruffy/pkg/loans"
)

// DefaultHistoryLimit is the number of job runs returned when no limit is
// given.
const DefaultHistoryLimit = 100

var errClosed = errors.New("storage is closed")

// newSchedule validates the fields of a new schedule.
func newSchedule(jobType loans.JobType, cronExpr string, enabled bool, now time.Time) (*loans.Schedule, error) {
	jt, err := loans.ParseJobType(string(jobType))
	if err != nil {
		return nil, err
	}
	if _, err := loans.ParseCron(cronExpr); err != nil {
		return nil, err
	}
	now = now.UTC()
	return &loans.Schedule{
		JobType:        jt,
		CronExpression: loans.NormalizeCron(cronExpr),
		Enabled:        enabled,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
