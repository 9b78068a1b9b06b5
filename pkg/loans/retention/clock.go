// Package retention implements the loan countdown: the retention clock that
// turns an availability date into days left, reminder and deletion flags, and
// the ledger that grants the one extension a loan may receive.
package retention

import (
	"fmt"
	"time"

	"github.com/jeajar/scruffy/pkg/loans"
)

// Default policy values.
const (
	DefaultRetentionDays = 30
	DefaultReminderDays  = 7
	DefaultExtensionDays = 7
)

// windowLayout formats the deadline date used as the reminder window key.
const windowLayout = "2006-01-02"

// Policy holds the retention parameters.
type Policy struct {
	// RetentionDays is the loan length counted from availability.
	RetentionDays int `json:"retention_days"`

	// ReminderDays is how many days before deletion reminders start.
	// Must be strictly less than RetentionDays.
	ReminderDays int `json:"reminder_days"`

	// ExtensionDays is added to the loan by its single extension.
	ExtensionDays int `json:"extension_days"`
}

// DefaultPolicy returns the built-in policy (30 / 7 / 7).
func DefaultPolicy() Policy {
	return Policy{
		RetentionDays: DefaultRetentionDays,
		ReminderDays:  DefaultReminderDays,
		ExtensionDays: DefaultExtensionDays,
	}
}

// Validate checks the policy invariants and returns a *loans.ConfigError
// describing the first violation.
func (p Policy) Validate() error {
	switch {
	case p.RetentionDays < 1:
		return loans.NewConfigError("retention_days", fmt.Sprintf("must be at least 1, got %d", p.RetentionDays))
	case p.ReminderDays < 1:
		return loans.NewConfigError("reminder_days", fmt.Sprintf("must be at least 1, got %d", p.ReminderDays))
	case p.ReminderDays >= p.RetentionDays:
		return loans.NewConfigError("reminder_days",
			fmt.Sprintf("must be less than retention_days (%d >= %d)", p.ReminderDays, p.RetentionDays))
	case p.ExtensionDays < 1:
		return loans.NewConfigError("extension_days", fmt.Sprintf("must be at least 1, got %d", p.ExtensionDays))
	}
	return nil
}

// State is the derived retention state of an available loan. It is
// recomputed on every evaluation and never stored.
type State struct {
	DaysElapsed            int       `json:"days_elapsed"`
	EffectiveRetentionDays int       `json:"effective_retention_days"`
	DaysLeft               int       `json:"days_left"`
	Remind                 bool      `json:"remind"`
	Delete                 bool      `json:"delete"`
	DeleteOn               time.Time `json:"delete_on"`
}

// Window returns the reminder window key of the state: the deadline date.
// Extending a loan moves the deadline and therefore opens a new window.
func (s State) Window() string {
	return s.DeleteOn.Format(windowLayout)
}

// Evaluate computes the retention state of a loan available since
// availableSince. Days are whole calendar-day differences in loc, so a loan
// made available at 23:59 has one elapsed day at 00:00 the next day.
// extensionDays is the extra length granted by an extension, zero if none.
func Evaluate(availableSince, now time.Time, p Policy, extensionDays int, loc *time.Location) State {
	if loc == nil {
		loc = time.UTC
	}

	start := civilDay(availableSince, loc)
	elapsed := civilDay(now, loc) - start
	effective := p.RetentionDays + extensionDays
	left := effective - elapsed

	return State{
		DaysElapsed:            elapsed,
		EffectiveRetentionDays: effective,
		DaysLeft:               left,
		Remind:                 left > 0 && left <= p.ReminderDays,
		Delete:                 left <= 0,
		DeleteOn:               time.Unix(int64(start+effective)*secondsPerDay, 0).UTC(),
	}
}

const secondsPerDay = 24 * 60 * 60

// civilDay returns the number of days since the Unix epoch of the calendar
// date of t in loc.
func civilDay(t time.Time, loc *time.Location) int {
	y, m, d := t.In(loc).Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay)
}

// Clock evaluates loans against a fixed policy and time zone.
type Clock struct {
	Policy   Policy
	Location *time.Location

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewClock creates a Clock. A nil location means UTC.
func NewClock(p Policy, loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{Policy: p, Location: loc, Now: time.Now}
}

// Evaluate returns the retention state of r. The second result is false
// when r has no availability date: the loan has not started and the request
// is excluded from reminders and deletion.
func (c *Clock) Evaluate(r *loans.Request) (State, bool) {
	if r == nil || r.AvailableSince == nil {
		return State{}, false
	}
	return Evaluate(*r.AvailableSince, c.now(), c.Policy, r.ExtensionDays(), c.Location), true
}

func (c *Clock) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
