package runner

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jeajar/scruffy/pkg/config"
	"github.com/jeajar/scruffy/pkg/loans"
	"github.com/jeajar/scruffy/pkg/loans/settings"
	"github.com/jeajar/scruffy/pkg/loans/storage"
	"github.com/jeajar/scruffy/pkg/telemetry/metrics"
	"github.com/jeajar/scruffy/pkg/telemetry/tracing"
)

var baseNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeCatalog struct {
	mu         sync.Mutex
	requests   []loans.CatalogRequest
	media      map[int]*loans.Media
	resolveErr map[int]error
	listErr    error
}

func (c *fakeCatalog) ListRequests(context.Context) ([]loans.CatalogRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil {
		return nil, c.listErr
	}
	return append([]loans.CatalogRequest(nil), c.requests...), nil
}

func (c *fakeCatalog) ResolveMedia(_ context.Context, req loans.CatalogRequest) (*loans.Media, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.resolveErr[req.RequestID]; err != nil {
		return nil, err
	}
	m := *c.media[req.RequestID]
	return &m, nil
}

func (c *fakeCatalog) remove(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.requests {
		if r.RequestID == id {
			c.requests = append(c.requests[:i], c.requests[i+1:]...)
			return
		}
	}
}

// fakeDeleter deletes from the fake catalog, like the real services do.
type fakeDeleter struct {
	mu      sync.Mutex
	catalog *fakeCatalog
	calls   []int
	err     map[int]error
}

func (d *fakeDeleter) Delete(_ context.Context, req loans.CatalogRequest) error {
	d.mu.Lock()
	d.calls = append(d.calls, req.RequestID)
	err := d.err[req.RequestID]
	d.mu.Unlock()
	if err != nil {
		return err
	}
	d.catalog.remove(req.RequestID)
	return nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	reminders []loans.Reminder
	notices   []loans.DeletionNotice
	err       error
}

func (n *fakeNotifier) SendReminder(_ context.Context, r loans.Reminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.reminders = append(n.reminders, r)
	return nil
}

func (n *fakeNotifier) SendDeletionNotice(_ context.Context, d loans.DeletionNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.notices = append(n.notices, d)
	return nil
}

type fixture struct {
	store    *storage.MemoryStorage
	catalog  *fakeCatalog
	deleter  *fakeDeleter
	notifier *fakeNotifier
	now      time.Time
	runner   *Runner
}

func daysAgo(now time.Time, n int) *time.Time {
	t := now.AddDate(0, 0, -n)
	return &t
}

// newFixture lists five requests under the default 30/7/7 policy:
// 1 in its reminder window (6 days left), 2 expired, 3 fresh,
// 4 not yet available and 5 failing to resolve.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{store: storage.NewMemoryStorage(), now: baseNow}
	f.catalog = &fakeCatalog{
		media: map[int]*loans.Media{
			1: {Title: "Heat", Available: true, AvailableSince: daysAgo(baseNow, 24)},
			2: {Title: "Ronin", Available: true, AvailableSince: daysAgo(baseNow, 40)},
			3: {Title: "Alien", Available: true, AvailableSince: daysAgo(baseNow, 1)},
			4: {Title: "Dune", Available: false},
		},
		resolveErr: map[int]error{5: loans.NewUnavailableError("radarr", "get_movie", errors.New("connection refused"))},
	}
	for id := 1; id <= 5; id++ {
		f.catalog.requests = append(f.catalog.requests, loans.CatalogRequest{
			RequestID:   id,
			MediaType:   loans.MediaMovie,
			MediaID:     id * 10,
			ServiceID:   id * 100,
			RequestedBy: "user@example.com",
			RequestedAt: baseNow.AddDate(0, -3, 0),
		})
	}
	f.deleter = &fakeDeleter{catalog: f.catalog, err: map[int]error{}}
	f.notifier = &fakeNotifier{}

	resolver := settings.NewResolver(f.store, func() settings.Fallback {
		return settings.Fallback{BaseURL: "https://scruffy.test/", Timezone: "UTC"}
	})
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true}, nil)
	f.runner = New(f.store, f.catalog, f.deleter, f.notifier, resolver,
		WithConcurrency(2),
		WithMetrics(collector),
		WithNow(func() time.Time { return f.now }),
	)
	return f
}

func (f *fixture) run(t *testing.T, jobType loans.JobType) *loans.JobRun {
	t.Helper()
	run, err := f.runner.Run(context.Background(), jobType, TriggerManual)
	if err != nil {
		t.Fatalf("Run(%s) error = %v", jobType, err)
	}
	return run
}

func TestRunner_Check(t *testing.T) {
	f := newFixture(t)
	run := f.run(t, loans.JobCheck)

	if !run.Success || run.Outcome() != loans.OutcomePartial {
		t.Fatalf("run success=%v outcome=%s, want partial success", run.Success, run.Outcome())
	}
	if run.RunID == "" || run.Trigger != TriggerManual {
		t.Errorf("run id %q trigger %q", run.RunID, run.Trigger)
	}
	if run.Process != nil || run.Check == nil {
		t.Fatalf("check run carries the wrong summary: %+v", run)
	}
	if run.Check.ItemsChecked != 5 || run.Check.NeedingAttention != 2 {
		t.Errorf("summary = %+v, want 5 checked and 2 needing attention", run.Check)
	}
	if len(run.Check.Failures) != 1 || run.Check.Failures[0].RequestID != 5 || run.Check.Failures[0].Stage != loans.StageResolve {
		t.Errorf("failures = %+v, want request 5 at resolve", run.Check.Failures)
	}

	if len(f.deleter.calls) != 0 {
		t.Errorf("check deleted %v", f.deleter.calls)
	}
	if len(f.notifier.reminders) != 1 {
		t.Fatalf("reminders = %d, want 1", len(f.notifier.reminders))
	}
	reminder := f.notifier.reminders[0]
	if reminder.DaysLeft != 6 || reminder.ExtendURL != "https://scruffy.test/extend?request_id=1" {
		t.Errorf("reminder = days %d url %q", reminder.DaysLeft, reminder.ExtendURL)
	}
	if want := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC); !reminder.DeleteOn.Equal(want) {
		t.Errorf("DeleteOn = %v, want %v", reminder.DeleteOn, want)
	}

	runs, _ := f.store.ListJobRuns(context.Background(), 10)
	if len(runs) != 1 || runs[0].RunID != run.RunID {
		t.Errorf("run log = %+v", runs)
	}
}

func TestRunner_CheckIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.run(t, loans.JobCheck)
	before, _ := f.store.ListRequests(ctx)

	second := f.run(t, loans.JobCheck)
	after, _ := f.store.ListRequests(ctx)

	if !reflect.DeepEqual(first.Check, second.Check) {
		t.Errorf("summaries differ:\n%+v\n%+v", first.Check, second.Check)
	}
	if !reflect.DeepEqual(before, after) {
		t.Error("second check changed stored requests")
	}
	if len(f.notifier.reminders) != 1 {
		t.Errorf("reminders = %d, want 1 (no resend within a window)", len(f.notifier.reminders))
	}
	runs, _ := f.store.ListJobRuns(ctx, 10)
	if len(runs) != 2 {
		t.Errorf("run log has %d runs, want 2", len(runs))
	}
}

func TestRunner_Process(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	run := f.run(t, loans.JobProcess)
	if run.Process == nil {
		t.Fatal("process run has no process summary")
	}
	want := &loans.ProcessSummary{
		RemindersSent:  []loans.ReminderEntry{{Title: "Heat", Email: "user@example.com", DaysLeft: 6}},
		NeedsAttention: []loans.ReminderEntry{},
		Deletions:      []loans.DeletionEntry{{Title: "Ronin", Email: "user@example.com"}},
		Failures:       run.Process.Failures,
	}
	if !reflect.DeepEqual(run.Process, want) {
		t.Errorf("summary = %+v, want %+v", run.Process, want)
	}
	if len(run.Process.Failures) != 1 {
		t.Errorf("failures = %+v, want the resolve failure only", run.Process.Failures)
	}

	if !reflect.DeepEqual(f.deleter.calls, []int{2}) {
		t.Errorf("deleted = %v, want [2]", f.deleter.calls)
	}
	if len(f.notifier.notices) != 1 || f.notifier.notices[0].Request.ExternalRequestID != 2 {
		t.Errorf("notices = %+v", f.notifier.notices)
	}
	if _, err := f.store.GetRequest(ctx, 2); !loans.IsNotFound(err) {
		t.Errorf("deleted request still stored: %v", err)
	}

	second := f.run(t, loans.JobProcess)
	if len(second.Process.RemindersSent) != 0 || len(second.Process.Deletions) != 0 {
		t.Errorf("second run repeated work: %+v", second.Process)
	}
	if len(second.Process.NeedsAttention) != 1 || second.Process.NeedsAttention[0].Title != "Heat" {
		t.Errorf("needs attention = %+v, want Heat", second.Process.NeedsAttention)
	}
}

func TestRunner_ReminderOncePerWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.run(t, loans.JobCheck)
	f.run(t, loans.JobProcess)
	if got := len(f.notifier.reminders); got != 1 {
		t.Fatalf("reminders = %d, want 1 across check and process", got)
	}

	// An extension moves the deadline and therefore the window.
	if _, err := f.store.GrantExtension(ctx, 1, loans.Extension{Days: 7, GrantedAt: f.now}); err != nil {
		t.Fatalf("GrantExtension() error = %v", err)
	}
	run := f.run(t, loans.JobProcess)
	if len(run.Process.RemindersSent) != 0 || len(run.Process.NeedsAttention) != 0 {
		t.Errorf("extended loan (13 days left) still in window: %+v", run.Process)
	}

	f.now = f.now.AddDate(0, 0, 7)
	run = f.run(t, loans.JobProcess)
	if len(run.Process.RemindersSent) != 1 || run.Process.RemindersSent[0].DaysLeft != 6 {
		t.Errorf("reminders sent = %+v, want one with 6 days left", run.Process.RemindersSent)
	}
	if got := len(f.notifier.reminders); got != 2 {
		t.Errorf("reminders = %d, want 2", got)
	}
}

func TestRunner_DeletionFailureIsRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.deleter.err[2] = loans.NewUnavailableError("radarr", "delete_movie", errors.New("timeout"))

	run := f.run(t, loans.JobProcess)
	if !run.Success {
		t.Fatal("a deletion failure failed the whole run")
	}
	var stages []string
	for _, failure := range run.Process.Failures {
		stages = append(stages, failure.Stage)
	}
	if !reflect.DeepEqual(stages, []string{loans.StageDelete, loans.StageResolve}) {
		t.Errorf("failure stages = %v", stages)
	}
	if _, err := f.store.GetRequest(ctx, 2); err != nil {
		t.Errorf("request 2 was forgotten after a failed deletion: %v", err)
	}

	delete(f.deleter.err, 2)
	run = f.run(t, loans.JobProcess)
	if len(run.Process.Deletions) != 1 {
		t.Errorf("deletions on retry = %+v", run.Process.Deletions)
	}
	if !reflect.DeepEqual(f.deleter.calls, []int{2, 2}) {
		t.Errorf("deleter calls = %v", f.deleter.calls)
	}
}

func TestRunner_NotificationFailureIsBestEffort(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = loans.NewUnavailableError("smtp", "send", errors.New("refused"))

	run := f.run(t, loans.JobProcess)
	if !run.Success {
		t.Fatal("notification failures failed the run")
	}
	if len(run.Process.Deletions) != 1 {
		t.Errorf("deletion skipped after notice failure: %+v", run.Process)
	}

	stages := map[string]int{}
	for _, failure := range run.Process.Failures {
		stages[failure.Stage]++
	}
	if stages[loans.StageRemind] != 1 || stages[loans.StageNotify] != 1 {
		t.Errorf("failure stages = %v", stages)
	}

	// The reminder was never delivered, so the next run tries again.
	f.notifier.err = nil
	run = f.run(t, loans.JobProcess)
	if len(run.Process.RemindersSent) != 1 {
		t.Errorf("reminder not retried: %+v", run.Process)
	}
}

func TestRunner_ListFailure(t *testing.T) {
	f := newFixture(t)
	f.catalog.listErr = loans.NewUnavailableError("overseerr", "list_requests", errors.New("502"))

	run := f.run(t, loans.JobProcess)
	if run.Success || run.Outcome() != loans.OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", run.Outcome())
	}
	if !strings.Contains(run.ErrorMessage, "failed to list requests") {
		t.Errorf("ErrorMessage = %q", run.ErrorMessage)
	}
	if run.Process != nil {
		t.Errorf("failed run carries a summary: %+v", run.Process)
	}

	runs, _ := f.store.ListJobRuns(context.Background(), 10)
	if len(runs) != 1 || runs[0].Success {
		t.Errorf("failed run not recorded: %+v", runs)
	}
}

func TestRunner_InvalidSettingsFailRun(t *testing.T) {
	f := newFixture(t)
	_ = f.store.PutSettings(context.Background(), map[string]string{
		settings.KeyRetentionDays: "5",
		settings.KeyReminderDays:  "7",
	})

	run := f.run(t, loans.JobCheck)
	if run.Success || !strings.Contains(run.ErrorMessage, "reminder_days") {
		t.Errorf("run = success %v error %q, want a reminder_days config failure", run.Success, run.ErrorMessage)
	}
}

func TestRunner_CancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := f.runner.Run(ctx, loans.JobProcess, TriggerSchedule)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.Success || !strings.Contains(run.ErrorMessage, "aborted") {
		t.Errorf("run = success %v error %q, want aborted", run.Success, run.ErrorMessage)
	}
	if len(f.deleter.calls) != 0 {
		t.Errorf("cancelled run deleted %v", f.deleter.calls)
	}

	runs, _ := f.store.ListJobRuns(context.Background(), 10)
	if len(runs) != 1 {
		t.Errorf("cancelled run not recorded")
	}
}

func TestRunner_InvalidJobType(t *testing.T) {
	f := newFixture(t)
	if _, err := f.runner.Run(context.Background(), "purge", TriggerCLI); !loans.IsConfig(err) {
		t.Errorf("Run(purge) error = %v, want ConfigError", err)
	}
}

func TestRunner_Tracing(t *testing.T) {
	f := newFixture(t)
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := tracing.NewWithExporter(&config.TracingConfig{Enabled: true, Sampler: "always"}, "test", exporter)
	if err != nil {
		t.Fatalf("NewWithExporter() error = %v", err)
	}
	defer tracer.Shutdown(context.Background())

	resolver := settings.NewResolver(f.store, func() settings.Fallback {
		return settings.Fallback{Timezone: "UTC"}
	})
	r := New(f.store, f.catalog, f.deleter, f.notifier, resolver,
		WithTracer(tracer),
		WithNow(func() time.Time { return f.now }),
	)
	if _, err := r.Run(context.Background(), loans.JobProcess, TriggerSchedule); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 6 {
		t.Fatalf("got %d spans, want one per request plus the run", len(spans))
	}
	job := spans[len(spans)-1]
	if job.Name != "job.process" {
		t.Fatalf("last span = %q, want job.process", job.Name)
	}
	if !hasAttr(job.Attributes, attribute.String(tracing.AttrOutcome, loans.OutcomePartial)) {
		t.Errorf("job attributes = %v", job.Attributes)
	}

	outcomes := map[int64]string{}
	for _, span := range spans[:len(spans)-1] {
		if span.Name != "loan" {
			t.Errorf("span name = %q, want loan", span.Name)
		}
		if span.Parent.SpanID() != job.SpanContext.SpanID() {
			t.Errorf("loan span is not a child of the run")
		}
		var id int64
		for _, kv := range span.Attributes {
			switch kv.Key {
			case tracing.AttrRequestID:
				id = kv.Value.AsInt64()
			case tracing.AttrOutcome:
				outcomes[id] = kv.Value.AsString()
			}
		}
		if id == 5 && span.Status.Code != codes.Error {
			t.Errorf("unresolvable request span status = %v, want Error", span.Status.Code)
		}
	}
	want := map[int64]string{1: "reminded", 2: "deleted", 3: "ok", 4: "unavailable", 5: "failed"}
	if !reflect.DeepEqual(outcomes, want) {
		t.Errorf("loan outcomes = %v, want %v", outcomes, want)
	}
}

func hasAttr(attrs []attribute.KeyValue, want attribute.KeyValue) bool {
	for _, kv := range attrs {
		if kv.Key == want.Key && kv.Value == want.Value {
			return true
		}
	}
	return false
}
