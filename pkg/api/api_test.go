package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jeajar/scruffy/pkg/loans"
	"github.com/jeajar/scruffy/pkg/loans/retention"
	"github.com/jeajar/scruffy/pkg/loans/scheduler"
	"github.com/jeajar/scruffy/pkg/loans/settings"
	"github.com/jeajar/scruffy/pkg/loans/storage"
)

type fakeScheduler struct {
	mu       sync.Mutex
	upserted []int64
	removed  []int64
	busy     map[loans.JobType]bool
	err      error
}

func (f *fakeScheduler) Upsert(s *loans.Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, s.ID)
	return nil
}

func (f *fakeScheduler) Remove(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
}

func (f *fakeScheduler) RunNow(jobType loans.JobType) (scheduler.Trigger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return scheduler.Trigger{}, f.err
	}
	if f.busy[jobType] {
		return scheduler.Trigger{JobType: jobType, Status: scheduler.StatusSkipped, Message: "busy"}, nil
	}
	return scheduler.Trigger{JobType: jobType, Status: scheduler.StatusStarted, RunID: "run-1", Message: "started"}, nil
}

func (f *fakeScheduler) RunSchedule(ctx context.Context, id int64) (scheduler.Trigger, error) {
	if id != 1 {
		return scheduler.Trigger{}, loans.NewNotFoundError("schedule", id)
	}
	return f.RunNow(loans.JobProcess)
}

func (f *fakeScheduler) Entries() []scheduler.Entry {
	return []scheduler.Entry{{ScheduleID: 1, JobType: loans.JobProcess, CronExpression: "0 19 * * *", State: scheduler.StateArmed}}
}

type fixture struct {
	store *storage.MemoryStorage
	sched *fakeScheduler
	srv   *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storage.NewMemoryStorage()
	resolver := settings.NewResolver(store, func() settings.Fallback {
		return settings.Fallback{Timezone: "UTC"}
	})
	sched := &fakeScheduler{busy: map[loans.JobType]bool{}}

	r := chi.NewRouter()
	r.Mount("/api/v1", New(store, sched, resolver, retention.NewLedger(store, resolver)).Routes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &fixture{store: store, sched: sched, srv: srv}
}

func (f *fixture) do(t *testing.T, method, path, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+"/api/v1"+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestSchedules_CRUD(t *testing.T) {
	f := newFixture(t)

	var created loans.Schedule
	if code := f.do(t, http.MethodPost, "/schedules", `{"job_type":"process","cron_expression":"0  19 * * *"}`, &created); code != http.StatusCreated {
		t.Fatalf("create status = %d", code)
	}
	if created.ID != 1 || !created.Enabled || created.CronExpression != "0 19 * * *" {
		t.Errorf("created = %+v", created)
	}

	var list []loans.Schedule
	if code := f.do(t, http.MethodGet, "/schedules", "", &list); code != http.StatusOK || len(list) != 1 {
		t.Fatalf("list = %d %+v", code, list)
	}

	var updated loans.Schedule
	if code := f.do(t, http.MethodPatch, "/schedules/1", `{"enabled":false}`, &updated); code != http.StatusOK {
		t.Fatalf("update status = %d", code)
	}
	if updated.Enabled || updated.CronExpression != "0 19 * * *" {
		t.Errorf("updated = %+v", updated)
	}

	if code := f.do(t, http.MethodDelete, "/schedules/1", "", nil); code != http.StatusNoContent {
		t.Fatalf("delete status = %d", code)
	}

	var errBody errorResponse
	if code := f.do(t, http.MethodGet, "/schedules/1", "", &errBody); code != http.StatusNotFound || errBody.Error == "" {
		t.Errorf("get deleted = %d %+v", code, errBody)
	}
	list = nil
	if f.do(t, http.MethodGet, "/schedules", "", &list); len(list) != 0 {
		t.Errorf("list after delete = %+v", list)
	}

	if len(f.sched.upserted) != 2 || len(f.sched.removed) != 1 || f.sched.removed[0] != 1 {
		t.Errorf("scheduler saw upserts %v removes %v", f.sched.upserted, f.sched.removed)
	}
}

func TestSchedules_Errors(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/schedules", `{"job_type":"check","cron_expression":"0 3 * * *"}`, nil)

	tests := []struct {
		name, method, path, body string
		want                     int
		contains                 string
	}{
		{"four field cron", http.MethodPost, "/schedules", `{"job_type":"check","cron_expression":"0 19 * *"}`, http.StatusBadRequest, "expected 5 fields"},
		{"bad cron field", http.MethodPost, "/schedules", `{"job_type":"check","cron_expression":"61 19 * * *"}`, http.StatusBadRequest, "cron_expression"},
		{"unknown job type", http.MethodPost, "/schedules", `{"job_type":"purge","cron_expression":"0 3 * * *"}`, http.StatusBadRequest, "job_type"},
		{"unknown field", http.MethodPost, "/schedules", `{"job":"check"}`, http.StatusBadRequest, "invalid request body"},
		{"empty body", http.MethodPost, "/schedules", "", http.StatusBadRequest, "required"},
		{"empty patch", http.MethodPatch, "/schedules/1", `{}`, http.StatusBadRequest, "no fields"},
		{"invalid patch cron", http.MethodPatch, "/schedules/1", `{"cron_expression":"@daily"}`, http.StatusBadRequest, "cron_expression"},
		{"unknown id", http.MethodPatch, "/schedules/42", `{"enabled":true}`, http.StatusNotFound, "42"},
		{"bad id", http.MethodGet, "/schedules/abc", "", http.StatusBadRequest, "invalid id"},
		{"delete unknown", http.MethodDelete, "/schedules/42", "", http.StatusNotFound, "schedule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorResponse
			code := f.do(t, tt.method, tt.path, tt.body, &body)
			if code != tt.want {
				t.Errorf("status = %d, want %d (%s)", code, tt.want, body.Error)
			}
			if !strings.Contains(body.Error, tt.contains) {
				t.Errorf("error %q does not contain %q", body.Error, tt.contains)
			}
		})
	}

	var list []loans.Schedule
	if f.do(t, http.MethodGet, "/schedules", "", &list); len(list) != 1 || list[0].CronExpression != "0 3 * * *" {
		t.Errorf("failed writes changed the store: %+v", list)
	}
}

func TestRunTriggers(t *testing.T) {
	f := newFixture(t)

	var trig scheduler.Trigger
	if code := f.do(t, http.MethodPost, "/jobs/process/run", "", &trig); code != http.StatusAccepted || trig.Status != scheduler.StatusStarted {
		t.Errorf("run = %d %+v", code, trig)
	}

	f.sched.mu.Lock()
	f.sched.busy[loans.JobProcess] = true
	f.sched.mu.Unlock()
	if code := f.do(t, http.MethodPost, "/jobs/process/run", "", &trig); code != http.StatusAccepted || trig.Status != scheduler.StatusSkipped {
		t.Errorf("busy run = %d %+v", code, trig)
	}
	if code := f.do(t, http.MethodPost, "/schedules/1/run", "", &trig); code != http.StatusAccepted || trig.Status != scheduler.StatusSkipped {
		t.Errorf("schedule run = %d %+v", code, trig)
	}
	if code := f.do(t, http.MethodPost, "/schedules/7/run", "", nil); code != http.StatusNotFound {
		t.Errorf("unknown schedule run = %d", code)
	}
	if code := f.do(t, http.MethodPost, "/jobs/purge/run", "", nil); code != http.StatusBadRequest {
		t.Errorf("unknown job type = %d", code)
	}

	f.sched.mu.Lock()
	f.sched.err = scheduler.ErrStopped
	f.sched.mu.Unlock()
	if code := f.do(t, http.MethodPost, "/jobs/check/run", "", nil); code != http.StatusServiceUnavailable {
		t.Errorf("stopped scheduler = %d", code)
	}

	var entries []scheduler.Entry
	if code := f.do(t, http.MethodGet, "/scheduler", "", &entries); code != http.StatusOK || len(entries) != 1 {
		t.Errorf("entries = %d %+v", code, entries)
	}
}

func TestListJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, jt := range []loans.JobType{loans.JobCheck, loans.JobProcess, loans.JobCheck} {
		run := &loans.JobRun{
			RunID:      "run",
			JobType:    jt,
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Minute),
			Success:    true,
			Check:      &loans.CheckSummary{Failures: []loans.ItemFailure{}},
		}
		if err := f.store.AppendJobRun(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	var runs []loans.JobRun
	if code := f.do(t, http.MethodGet, "/jobs?limit=2", "", &runs); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(runs) != 2 || runs[0].ID != 3 || runs[1].ID != 2 {
		t.Errorf("runs = %+v, want ids 3 and 2", runs)
	}

	for _, q := range []string{"0", "-1", "abc", "5000"} {
		if code := f.do(t, http.MethodGet, "/jobs?limit="+q, "", nil); code != http.StatusBadRequest {
			t.Errorf("limit=%s status = %d, want 400", q, code)
		}
	}
}

func TestSettings(t *testing.T) {
	f := newFixture(t)

	var fields []settings.Field
	if code := f.do(t, http.MethodGet, "/settings", "", &fields); code != http.StatusOK || len(fields) != len(settings.Keys) {
		t.Fatalf("settings = %d %+v", code, fields)
	}

	var errBody errorResponse
	if code := f.do(t, http.MethodPut, "/settings", `{"retention_days":10,"reminder_days":10}`, &errBody); code != http.StatusBadRequest {
		t.Errorf("invalid update = %d", code)
	}
	if !strings.Contains(errBody.Error, "reminder_days") {
		t.Errorf("error = %q", errBody.Error)
	}

	fields = nil
	if code := f.do(t, http.MethodPut, "/settings", `{"retention_days":45}`, &fields); code != http.StatusOK {
		t.Fatalf("update = %d", code)
	}
	for _, field := range fields {
		if field.Key != settings.KeyRetentionDays {
			continue
		}
		if field.Value != "45" || field.Source != settings.SourceDatabase {
			t.Errorf("retention_days = %+v", field)
		}
	}
}

func TestRequests_ListAndExtend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	available := time.Now().AddDate(0, 0, -24)
	_, _ = f.store.UpsertRequest(ctx, &loans.Request{ExternalRequestID: 1, MediaType: loans.MediaMovie, Title: "Heat", AvailableSince: &available})
	_, _ = f.store.UpsertRequest(ctx, &loans.Request{ExternalRequestID: 2, MediaType: loans.MediaTV, Title: "Severance"})

	var views []struct {
		ExternalRequestID int              `json:"external_request_id"`
		State             *retention.State `json:"state"`
	}
	if code := f.do(t, http.MethodGet, "/requests", "", &views); code != http.StatusOK || len(views) != 2 {
		t.Fatalf("requests = %d %+v", code, views)
	}
	if views[0].State == nil || views[0].State.DaysLeft != 6 || !views[0].State.Remind {
		t.Errorf("request 1 state = %+v, want 6 days left and remind", views[0].State)
	}
	if views[1].State != nil {
		t.Errorf("unavailable request has state %+v", views[1].State)
	}

	var extended struct {
		Extension *loans.Extension `json:"extension"`
		State     *retention.State `json:"state"`
	}
	if code := f.do(t, http.MethodPost, "/requests/1/extend", `{"granted_by":"admin"}`, &extended); code != http.StatusOK {
		t.Fatalf("extend = %d", code)
	}
	if extended.Extension == nil || extended.Extension.Days != 7 || extended.State.DaysLeft != 13 || extended.State.Remind {
		t.Errorf("extended = %+v state %+v", extended.Extension, extended.State)
	}

	tests := []struct {
		path string
		want int
	}{
		{"/requests/1/extend", http.StatusConflict},
		{"/requests/2/extend", http.StatusBadRequest},
		{"/requests/99/extend", http.StatusNotFound},
		{"/requests/x/extend", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if code := f.do(t, http.MethodPost, tt.path, "", nil); code != tt.want {
			t.Errorf("POST %s = %d, want %d", tt.path, code, tt.want)
		}
	}
}
