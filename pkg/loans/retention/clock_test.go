package retention

import (
	"testing"
	"time"

	"github.com/jeajar/scruffy/pkg/loans"
)

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name      string
		policy    Policy
		wantField string
	}{
		{name: "default", policy: DefaultPolicy()},
		{name: "minimal", policy: Policy{RetentionDays: 2, ReminderDays: 1, ExtensionDays: 1}},
		{name: "zero retention", policy: Policy{RetentionDays: 0, ReminderDays: 1, ExtensionDays: 1}, wantField: "retention_days"},
		{name: "zero reminder", policy: Policy{RetentionDays: 30, ReminderDays: 0, ExtensionDays: 7}, wantField: "reminder_days"},
		{name: "reminder equals retention", policy: Policy{RetentionDays: 10, ReminderDays: 10, ExtensionDays: 7}, wantField: "reminder_days"},
		{name: "reminder exceeds retention", policy: Policy{RetentionDays: 10, ReminderDays: 12, ExtensionDays: 7}, wantField: "reminder_days"},
		{name: "zero extension", policy: Policy{RetentionDays: 30, ReminderDays: 7, ExtensionDays: 0}, wantField: "extension_days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			cfgErr, ok := err.(*loans.ConfigError)
			if !ok {
				t.Fatalf("Validate() error = %v (%T), want *loans.ConfigError", err, err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestEvaluate_Scenarios(t *testing.T) {
	policy := Policy{RetentionDays: 30, ReminderDays: 7, ExtensionDays: 7}
	now := time.Date(2025, 6, 25, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		daysAgo       int
		extension     int
		wantEffective int
		wantLeft      int
		wantRemind    bool
		wantDelete    bool
	}{
		{name: "fresh", daysAgo: 0, wantEffective: 30, wantLeft: 30},
		{name: "day 22 is safe", daysAgo: 22, wantEffective: 30, wantLeft: 8},
		{name: "day 23 reminds on the boundary", daysAgo: 23, wantEffective: 30, wantLeft: 7, wantRemind: true},
		{name: "day 24 reminds", daysAgo: 24, wantEffective: 30, wantLeft: 6, wantRemind: true},
		{name: "day 24 after extension", daysAgo: 24, extension: 7, wantEffective: 37, wantLeft: 13},
		{name: "last day", daysAgo: 29, wantEffective: 30, wantLeft: 1, wantRemind: true},
		{name: "deadline deletes", daysAgo: 30, wantEffective: 30, wantLeft: 0, wantDelete: true},
		{name: "overdue deletes", daysAgo: 45, wantEffective: 30, wantLeft: -15, wantDelete: true},
		{name: "extended overdue", daysAgo: 37, extension: 7, wantEffective: 37, wantLeft: 0, wantDelete: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			since := now.AddDate(0, 0, -tt.daysAgo)
			got := Evaluate(since, now, policy, tt.extension, time.UTC)

			if got.DaysElapsed != tt.daysAgo {
				t.Errorf("DaysElapsed = %d, want %d", got.DaysElapsed, tt.daysAgo)
			}
			if got.EffectiveRetentionDays != tt.wantEffective {
				t.Errorf("EffectiveRetentionDays = %d, want %d", got.EffectiveRetentionDays, tt.wantEffective)
			}
			if got.DaysLeft != tt.wantLeft {
				t.Errorf("DaysLeft = %d, want %d", got.DaysLeft, tt.wantLeft)
			}
			if got.Remind != tt.wantRemind {
				t.Errorf("Remind = %v, want %v", got.Remind, tt.wantRemind)
			}
			if got.Delete != tt.wantDelete {
				t.Errorf("Delete = %v, want %v", got.Delete, tt.wantDelete)
			}
			if got.Remind && got.Delete {
				t.Error("Remind and Delete both set")
			}
		})
	}
}

func TestEvaluate_SameDayGivesFullRetention(t *testing.T) {
	now := time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)

	for retention := 1; retention <= 40; retention++ {
		for reminder := 1; reminder <= 45; reminder++ {
			p := Policy{RetentionDays: retention, ReminderDays: reminder, ExtensionDays: 1}
			got := Evaluate(now, now, p, 0, time.UTC)

			if got.DaysLeft != retention {
				t.Fatalf("retention=%d: DaysLeft = %d", retention, got.DaysLeft)
			}
			if want := reminder >= retention; got.Remind != want {
				t.Fatalf("retention=%d reminder=%d: Remind = %v, want %v", retention, reminder, got.Remind, want)
			}
		}
	}
}

func TestEvaluate_CalendarDays(t *testing.T) {
	p := DefaultPolicy()

	t.Run("fractional days round down", func(t *testing.T) {
		since := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		now := time.Date(2025, 3, 2, 8, 59, 0, 0, time.UTC) // 23h59m later, next calendar day
		if got := Evaluate(since, now, p, 0, time.UTC); got.DaysElapsed != 1 {
			t.Errorf("DaysElapsed = %d, want 1", got.DaysElapsed)
		}

		now = time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)
		if got := Evaluate(since, now, p, 0, time.UTC); got.DaysElapsed != 0 {
			t.Errorf("DaysElapsed = %d, want 0", got.DaysElapsed)
		}
	})

	t.Run("time zone decides the calendar date", func(t *testing.T) {
		loc := time.FixedZone("UTC-5", -5*60*60)
		since := time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC) // Feb 28 in UTC-5
		now := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)  // Mar 1 in UTC-5

		if got := Evaluate(since, now, p, 0, time.UTC); got.DaysElapsed != 0 {
			t.Errorf("UTC DaysElapsed = %d, want 0", got.DaysElapsed)
		}
		if got := Evaluate(since, now, p, 0, loc); got.DaysElapsed != 1 {
			t.Errorf("UTC-5 DaysElapsed = %d, want 1", got.DaysElapsed)
		}
	})

	t.Run("daylight saving transitions count one day", func(t *testing.T) {
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			t.Skipf("time zone database unavailable: %v", err)
		}
		since := time.Date(2025, 3, 8, 12, 0, 0, 0, loc)
		now := time.Date(2025, 3, 9, 12, 0, 0, 0, loc) // 23 hours later
		if got := Evaluate(since, now, p, 0, loc); got.DaysElapsed != 1 {
			t.Errorf("DaysElapsed = %d, want 1", got.DaysElapsed)
		}
	})
}

func TestState_Window(t *testing.T) {
	since := time.Date(2025, 5, 1, 15, 0, 0, 0, time.UTC)
	now := since.AddDate(0, 0, 25)
	p := DefaultPolicy()

	plain := Evaluate(since, now, p, 0, time.UTC)
	if got := plain.Window(); got != "2025-05-31" {
		t.Errorf("Window() = %q, want %q", got, "2025-05-31")
	}

	extended := Evaluate(since, now, p, 7, time.UTC)
	if extended.Window() == plain.Window() {
		t.Error("extension should move the reminder window")
	}
}

func TestClock_Evaluate(t *testing.T) {
	now := time.Date(2025, 6, 25, 12, 0, 0, 0, time.UTC)
	clock := NewClock(DefaultPolicy(), nil)
	clock.Now = func() time.Time { return now }

	t.Run("unavailable", func(t *testing.T) {
		if _, ok := clock.Evaluate(&loans.Request{ExternalRequestID: 1}); ok {
			t.Error("request without availability date should be unavailable")
		}
		if _, ok := clock.Evaluate(nil); ok {
			t.Error("nil request should be unavailable")
		}
	})

	t.Run("extension folded in", func(t *testing.T) {
		since := now.AddDate(0, 0, -24)
		req := &loans.Request{
			ExternalRequestID: 1,
			AvailableSince:    &since,
			Extension:         &loans.Extension{Days: 7, GrantedAt: now},
		}
		state, ok := clock.Evaluate(req)
		if !ok {
			t.Fatal("expected available")
		}
		if state.EffectiveRetentionDays != 37 || state.DaysLeft != 13 || state.Remind {
			t.Errorf("unexpected state %+v", state)
		}
	})
}
