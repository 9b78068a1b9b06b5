package loans

import (
	"context"
	"time"
)

// ScheduleStore is the durable table of cron schedules.
type ScheduleStore interface {
	// CreateSchedule validates and persists a new schedule. Invalid job
	// types or cron expressions fail with ConfigError and nothing is written.
	CreateSchedule(ctx context.Context, jobType JobType, cronExpr string, enabled bool) (*Schedule, error)

	// GetSchedule returns the schedule or NotFoundError.
	GetSchedule(ctx context.Context, id int64) (*Schedule, error)

	// UpdateSchedule applies patch to the schedule or fails with NotFoundError.
	UpdateSchedule(ctx context.Context, id int64, patch SchedulePatch) (*Schedule, error)

	// DeleteSchedule removes the schedule or fails with NotFoundError.
	DeleteSchedule(ctx context.Context, id int64) error

	// ListSchedules returns every schedule ordered by id.
	ListSchedules(ctx context.Context) ([]*Schedule, error)
}

// JobRunLog is the append-only history of job executions.
type JobRunLog interface {
	// AppendJobRun inserts run as one record and sets run.ID.
	AppendJobRun(ctx context.Context, run *JobRun) error

	// ListJobRuns returns up to limit runs, newest finished first.
	ListJobRuns(ctx context.Context, limit int) ([]*JobRun, error)

	// PruneJobRuns deletes the runs finished before cutoff, then all but the
	// newest keep runs, and returns how many were deleted. A zero cutoff or
	// a keep below one skips that step.
	PruneJobRuns(ctx context.Context, cutoff time.Time, keep int) (int64, error)
}

// RequestStore persists observed loans.
type RequestStore interface {
	// UpsertRequest records an observation of a catalog request and returns
	// the stored request. AvailableSince is only ever set once: an
	// observation never clears or moves an existing value.
	UpsertRequest(ctx context.Context, observed *Request) (*Request, error)

	// GetRequest returns the stored request by external request id.
	GetRequest(ctx context.Context, externalRequestID int) (*Request, error)

	// ListRequests returns every stored request ordered by external id.
	ListRequests(ctx context.Context) ([]*Request, error)

	// GrantExtension stores ext only if the request has no extension yet.
	// It fails with ConflictError otherwise, NotFoundError if absent.
	GrantExtension(ctx context.Context, externalRequestID int, ext Extension) (*Request, error)

	// DeleteRequest removes the request and its reminder history.
	DeleteRequest(ctx context.Context, externalRequestID int) error

	// PruneRequests removes stored requests whose external id is not in keep
	// and returns how many were removed.
	PruneRequests(ctx context.Context, keep []int) (int, error)
}

// ReminderLog suppresses duplicate reminders per request and window.
type ReminderLog interface {
	// ReminderSent reports whether a reminder was recorded for the window.
	ReminderSent(ctx context.Context, externalRequestID int, window string) (bool, error)

	// RecordReminder marks the window as reminded. Recording twice is a no-op.
	RecordReminder(ctx context.Context, externalRequestID int, window string, sentAt time.Time) error
}

// SettingsStore holds administrator overrides as raw strings.
type SettingsStore interface {
	GetSettings(ctx context.Context) (map[string]string, error)
	PutSettings(ctx context.Context, values map[string]string) error
}

// Store aggregates every persistence concern of the service.
type Store interface {
	ScheduleStore
	JobRunLog
	RequestStore
	ReminderLog
	SettingsStore

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend.
	Close() error
}
