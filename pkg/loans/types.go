package loans

import (
	"fmt"
	"time"
)

// MediaType identifies the kind of media a request refers to.
type MediaType string

const (
	// MediaMovie is a movie managed by Radarr.
	MediaMovie MediaType = "movie"
	// MediaTV is a series managed by Sonarr.
	MediaTV MediaType = "tv"
)

// Valid reports whether t is a known media type.
func (t MediaType) Valid() bool {
	return t == MediaMovie || t == MediaTV
}

// JobType identifies a retention job.
type JobType string

const (
	// JobCheck evaluates loans and sends reminders but never deletes.
	JobCheck JobType = "check"
	// JobProcess sends reminders and deletes expired loans.
	JobProcess JobType = "process"
)

// JobTypes lists every job type in display order.
var JobTypes = []JobType{JobCheck, JobProcess}

// ParseJobType converts s into a JobType.
func ParseJobType(s string) (JobType, error) {
	switch JobType(s) {
	case JobCheck, JobProcess:
		return JobType(s), nil
	}
	return "", NewConfigError("job_type", fmt.Sprintf("unknown job type %q (want check or process)", s))
}

// Extension records the single extension granted to a request.
// A nil *Extension means the request was never extended.
type Extension struct {
	Days      int       `json:"days"`
	GrantedAt time.Time `json:"granted_at"`
	GrantedBy string    `json:"granted_by,omitempty"`
}

// Request is one loan: a catalog request observed by the service.
type Request struct {
	ID                int64     `json:"id"`
	ExternalRequestID int       `json:"external_request_id"`
	MediaType         MediaType `json:"media_type"`
	MediaID           int       `json:"media_id"`
	Title             string    `json:"title"`
	RequestedBy       string    `json:"requested_by"`
	RequestedAt       time.Time `json:"requested_at"`

	// AvailableSince is set once, when full availability is first observed.
	AvailableSince *time.Time `json:"available_since,omitempty"`

	Extension *Extension `json:"extension,omitempty"`
}

// Extended reports whether the request consumed its extension.
func (r *Request) Extended() bool {
	return r.Extension != nil
}

// ExtensionDays returns the days added by the extension, or zero.
func (r *Request) ExtensionDays() int {
	if r.Extension == nil {
		return 0
	}
	return r.Extension.Days
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	c := *r
	if r.AvailableSince != nil {
		t := *r.AvailableSince
		c.AvailableSince = &t
	}
	if r.Extension != nil {
		e := *r.Extension
		c.Extension = &e
	}
	return &c
}

// Schedule is a persisted cron trigger for a job type.
type Schedule struct {
	ID             int64     `json:"id"`
	JobType        JobType   `json:"job_type"`
	CronExpression string    `json:"cron_expression"`
	Enabled        bool      `json:"enabled"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SchedulePatch holds the optional fields of a schedule update.
type SchedulePatch struct {
	JobType        *JobType `json:"job_type,omitempty"`
	CronExpression *string  `json:"cron_expression,omitempty"`
	Enabled        *bool    `json:"enabled,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p SchedulePatch) Empty() bool {
	return p.JobType == nil && p.CronExpression == nil && p.Enabled == nil
}

// Apply validates the patch and applies it to s. On error s is unchanged.
func (p SchedulePatch) Apply(s *Schedule) error {
	next := *s
	if p.JobType != nil {
		jt, err := ParseJobType(string(*p.JobType))
		if err != nil {
			return err
		}
		next.JobType = jt
	}
	if p.CronExpression != nil {
		if _, err := ParseCron(*p.CronExpression); err != nil {
			return err
		}
		next.CronExpression = NormalizeCron(*p.CronExpression)
	}
	if p.Enabled != nil {
		next.Enabled = *p.Enabled
	}
	*s = next
	return nil
}

// JobRun is one recorded execution of a job. Exactly one of Check and
// Process is set on successful runs, matching JobType.
type JobRun struct {
	ID           int64           `json:"id"`
	RunID        string          `json:"run_id"`
	JobType      JobType         `json:"job_type"`
	Trigger      string          `json:"trigger"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
	Success      bool            `json:"success"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Check        *CheckSummary   `json:"check,omitempty"`
	Process      *ProcessSummary `json:"process,omitempty"`
}

// Outcome classifies the run for history views and metrics.
func (r *JobRun) Outcome() string {
	if !r.Success {
		return OutcomeFailed
	}
	if len(r.Failures()) > 0 {
		return OutcomePartial
	}
	return OutcomeSuccess
}

// Failures returns the per-item failures recorded in the summary.
func (r *JobRun) Failures() []ItemFailure {
	switch {
	case r.Check != nil:
		return r.Check.Failures
	case r.Process != nil:
		return r.Process.Failures
	}
	return nil
}

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

// CheckSummary is the summary of a check run.
type CheckSummary struct {
	ItemsChecked     int           `json:"items_checked"`
	NeedingAttention int           `json:"needing_attention"`
	Failures         []ItemFailure `json:"failures"`
}

// ProcessSummary is the summary of a process run.
type ProcessSummary struct {
	RemindersSent  []ReminderEntry `json:"reminders_sent"`
	NeedsAttention []ReminderEntry `json:"needs_attention"`
	Deletions      []DeletionEntry `json:"deletions"`
	Failures       []ItemFailure   `json:"failures"`
}

// ReminderEntry describes a loan in its reminder window.
type ReminderEntry struct {
	Title    string `json:"title"`
	Email    string `json:"email"`
	DaysLeft int    `json:"days_left"`
}

// DeletionEntry describes a deleted loan.
type DeletionEntry struct {
	Title string `json:"title"`
	Email string `json:"email"`
}

// Failure stages.
const (
	StageResolve = "resolve"
	StageObserve = "observe"
	StageRemind  = "remind"
	StageDelete  = "delete"
	StageNotify  = "notify"
)

// ItemFailure is a per-item failure recorded in a run summary.
type ItemFailure struct {
	RequestID int    `json:"request_id"`
	Title     string `json:"title,omitempty"`
	Email     string `json:"email,omitempty"`
	Stage     string `json:"stage"`
	Error     string `json:"error"`
}
