package loans

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParseJobType(t *testing.T) {
	for _, s := range []string{"check", "process"} {
		jt, err := ParseJobType(s)
		if err != nil {
			t.Errorf("ParseJobType(%q) error = %v", s, err)
		}
		if string(jt) != s {
			t.Errorf("ParseJobType(%q) = %q", s, jt)
		}
	}

	if _, err := ParseJobType("prune"); !IsConfig(err) {
		t.Errorf("ParseJobType(prune) error = %v, want ConfigError", err)
	}
}

func TestSchedulePatch_Apply(t *testing.T) {
	base := Schedule{ID: 1, JobType: JobCheck, CronExpression: "0 19 * * *", Enabled: true}

	t.Run("all fields", func(t *testing.T) {
		s := base
		jt := JobProcess
		expr := "30  2 * * 0"
		enabled := false
		patch := SchedulePatch{JobType: &jt, CronExpression: &expr, Enabled: &enabled}

		if err := patch.Apply(&s); err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		if s.JobType != JobProcess || s.CronExpression != "30 2 * * 0" || s.Enabled {
			t.Errorf("unexpected schedule after patch: %+v", s)
		}
	})

	t.Run("invalid cron leaves schedule untouched", func(t *testing.T) {
		s := base
		expr := "0 19 * *"
		enabled := false
		patch := SchedulePatch{Enabled: &enabled, CronExpression: &expr}

		err := patch.Apply(&s)
		if !IsConfig(err) {
			t.Fatalf("Apply error = %v, want ConfigError", err)
		}
		if s.CronExpression != base.CronExpression {
			t.Errorf("cron expression changed to %q", s.CronExpression)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if !(SchedulePatch{}).Empty() {
			t.Error("zero patch should be empty")
		}
	})
}

func TestJobRun_Outcome(t *testing.T) {
	tests := []struct {
		name string
		run  JobRun
		want string
	}{
		{
			name: "clean check",
			run:  JobRun{Success: true, Check: &CheckSummary{ItemsChecked: 3}},
			want: OutcomeSuccess,
		},
		{
			name: "process with item failures",
			run: JobRun{Success: true, Process: &ProcessSummary{
				Failures: []ItemFailure{{RequestID: 4, Stage: StageDelete, Error: "boom"}},
			}},
			want: OutcomePartial,
		},
		{
			name: "failed outright",
			run:  JobRun{Success: false, ErrorMessage: "overseerr unavailable"},
			want: OutcomeFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.run.Outcome(); got != tt.want {
				t.Errorf("Outcome() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequest_Clone(t *testing.T) {
	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &Request{ExternalRequestID: 1, AvailableSince: &since, Extension: &Extension{Days: 7}}

	c := r.Clone()
	c.AvailableSince = nil
	c.Extension.Days = 99

	if r.AvailableSince == nil || r.Extension.Days != 7 {
		t.Error("Clone shares state with the original")
	}
	if r.ExtensionDays() != 7 || !r.Extended() {
		t.Errorf("ExtensionDays() = %d, Extended() = %v", r.ExtensionDays(), r.Extended())
	}
}

func TestErrorHelpers(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"config", fmt.Errorf("wrapped: %w", NewConfigError("reminder_days", "too large")), IsConfig},
		{"not found", NewNotFoundError("schedule", int64(9)), IsNotFound},
		{"conflict", NewConflictError("request", 3, "already extended"), IsConflict},
		{"unavailable", NewUnavailableError("overseerr", "list_requests", cause), IsUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.err) {
				t.Errorf("helper did not match %v", tt.err)
			}
			if tt.err.Error() == "" {
				t.Error("empty error message")
			}
		})
	}

	if !errors.Is(NewUnavailableError("radarr", "get_movie", cause), cause) {
		t.Error("UnavailableError does not unwrap to its cause")
	}
	if !errors.Is(NewItemError(1, StageDelete, cause), cause) {
		t.Error("ItemError does not unwrap to its cause")
	}
	if IsNotFound(cause) {
		t.Error("plain error matched IsNotFound")
	}
}
