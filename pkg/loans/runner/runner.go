package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/jeajar/scruffy/pkg/loans"
	"github.com/jeajar/scruffy/pkg/loans/retention"
	"github.com/jeajar/scruffy/pkg/loans/settings"
	"github.com/jeajar/scruffy/pkg/telemetry/logging"
	"github.com/jeajar/scruffy/pkg/telemetry/metrics"
	"github.com/jeajar/scruffy/pkg/telemetry/tracing"
)

// DefaultConcurrency bounds parallel media lookups.
const DefaultConcurrency = 8

// Trigger sources recorded on job runs.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerCLI      = "cli"
)

// Item results reported to metrics.
const (
	resultUnavailable     = "unavailable"
	resultOK              = "ok"
	resultReminded        = "reminded"
	resultAlreadyReminded = "already_reminded"
	resultExpired         = "expired"
	resultDeleted         = "deleted"
	resultFailed          = "failed"
)

// Store is the persistence used by a run.
type Store interface {
	loans.RequestStore
	loans.ReminderLog
	loans.JobRunLog
}

// SettingsSource resolves the settings of a run.
type SettingsSource interface {
	Resolve(ctx context.Context) (*settings.Settings, error)
}

// Runner executes check and process runs. It is safe for concurrent use;
// single-flight per job type is the caller's concern.
type Runner struct {
	store    Store
	catalog  loans.Catalog
	deleter  loans.Deleter
	notifier loans.Notifier
	settings SettingsSource

	concurrency int
	metrics     *metrics.Collector
	tracer      *tracing.Tracer
	now         func() time.Time
	logger      *slog.Logger

	// appendMu orders run log inserts by completion.
	appendMu sync.Mutex
}

// Option configures a Runner.
type Option func(*Runner)

// WithConcurrency bounds parallel media lookups.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithMetrics records run and item metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Runner) { r.metrics = c }
}

// WithTracer traces runs and the loans they handle.
func WithTracer(t *tracing.Tracer) Option {
	return func(r *Runner) { r.tracer = t }
}

// WithNow overrides the wall clock.
func WithNow(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates a runner.
func New(store Store, catalog loans.Catalog, deleter loans.Deleter, notifier loans.Notifier, source SettingsSource, opts ...Option) *Runner {
	r := &Runner{
		store:       store,
		catalog:     catalog,
		deleter:     deleter,
		notifier:    notifier,
		settings:    source,
		concurrency: DefaultConcurrency,
		now:         time.Now,
		logger:      slog.Default().With("component", "runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one run of jobType and appends it to the run log. The
// returned run carries the outcome; the error is non-nil only when the job
// type is invalid or the run could not be recorded.
func (r *Runner) Run(ctx context.Context, jobType loans.JobType, trigger string) (*loans.JobRun, error) {
	if _, err := loans.ParseJobType(string(jobType)); err != nil {
		return nil, err
	}

	runID := logging.GetRunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = logging.WithRunID(ctx, runID)
	}
	ctx = logging.WithJobType(ctx, string(jobType))

	ctx, span := r.tracer.Start(ctx, "job."+string(jobType))
	defer span.End()
	tracing.SetRunAttributes(span, string(jobType), runID, trigger)

	run := &loans.JobRun{
		RunID:     runID,
		JobType:   jobType,
		Trigger:   trigger,
		StartedAt: r.now().UTC(),
	}
	r.logger.InfoContext(ctx, "job run started", "trigger", trigger)

	if err := r.execute(ctx, run); err != nil {
		run.Success = false
		run.ErrorMessage = err.Error()
		r.logger.ErrorContext(ctx, "job run failed", "error", err)
	} else {
		run.Success = true
	}

	if err := r.record(ctx, run); err != nil {
		tracing.SetError(span, err)
		return run, err
	}
	tracing.SetRunOutcome(span, run.Outcome(), len(run.Failures()), run.Success)

	r.metrics.RecordJobRun(string(jobType), run.Outcome(), run.FinishedAt.Sub(run.StartedAt))
	r.logger.InfoContext(ctx, "job run finished",
		"outcome", run.Outcome(),
		"failures", len(run.Failures()),
		"duration", run.FinishedAt.Sub(run.StartedAt),
	)
	return run, nil
}

// record stamps the completion time and appends the run. Holding the lock
// across both keeps finished_at and insertion order aligned.
func (r *Runner) record(ctx context.Context, run *loans.JobRun) error {
	r.appendMu.Lock()
	defer r.appendMu.Unlock()

	run.FinishedAt = r.now().UTC()
	if run.FinishedAt.Before(run.StartedAt) {
		run.FinishedAt = run.StartedAt
	}
	if err := r.store.AppendJobRun(context.WithoutCancel(ctx), run); err != nil {
		r.logger.ErrorContext(ctx, "failed to record job run", "error", err)
		return fmt.Errorf("failed to record job run: %w", err)
	}
	return nil
}

// item is one listed request with its resolved media.
type item struct {
	req   loans.CatalogRequest
	media *loans.Media
	err   error
}

func (it item) title() string {
	if it.media != nil {
		return it.media.Title
	}
	return ""
}

// batch is the state of one run.
type batch struct {
	jobType  loans.JobType
	settings *settings.Settings
	clock    *retention.Clock

	attention int
	failures  []loans.ItemFailure
	reminded  []loans.ReminderEntry
	waiting   []loans.ReminderEntry
	deleted   []loans.DeletionEntry
}

func (r *Runner) execute(ctx context.Context, run *loans.JobRun) error {
	resolved, err := r.settings.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve settings: %w", err)
	}
	clock := retention.NewClock(resolved.Policy, resolved.Location)
	clock.Now = r.now

	listed, err := r.catalog.ListRequests(ctx)
	if err != nil {
		return fmt.Errorf("failed to list requests: %w", err)
	}

	b := &batch{
		jobType:  run.JobType,
		settings: resolved,
		clock:    clock,
		failures: []loans.ItemFailure{},
		reminded: []loans.ReminderEntry{},
		waiting:  []loans.ReminderEntry{},
		deleted:  []loans.DeletionEntry{},
	}

	items := r.resolveMedia(ctx, listed)
	var aborted error
	for i, it := range items {
		if err := ctx.Err(); err != nil {
			aborted = fmt.Errorf("run aborted after %d of %d requests: %w", i, len(items), err)
			break
		}
		r.handle(ctx, b, it)
	}

	if aborted == nil {
		r.prune(ctx, listed)
	}

	switch run.JobType {
	case loans.JobCheck:
		run.Check = &loans.CheckSummary{
			ItemsChecked:     len(items),
			NeedingAttention: b.attention,
			Failures:         b.failures,
		}
	case loans.JobProcess:
		run.Process = &loans.ProcessSummary{
			RemindersSent:  b.reminded,
			NeedsAttention: b.waiting,
			Deletions:      b.deleted,
			Failures:       b.failures,
		}
	}
	return aborted
}

// resolveMedia looks up every request's media, at most r.concurrency at a
// time. Results keep the listing order.
func (r *Runner) resolveMedia(ctx context.Context, listed []loans.CatalogRequest) []item {
	items := make([]item, len(listed))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, req := range listed {
		items[i].req = req
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				items[i].err = err
				return nil
			}
			media, err := r.catalog.ResolveMedia(ctx, req)
			if err == nil && media == nil {
				err = fmt.Errorf("no media returned for request %d", req.RequestID)
			}
			items[i].media, items[i].err = media, err
			return nil
		})
	}
	_ = g.Wait()
	return items
}

func (r *Runner) handle(ctx context.Context, b *batch, it item) {
	ctx, span := r.tracer.Start(ctx, "loan")
	defer span.End()
	tracing.SetItemAttributes(span, it.req.RequestID, string(it.req.MediaType), it.title())

	if it.err != nil {
		r.fail(ctx, b, it, nil, loans.StageResolve, it.err)
		return
	}

	stored, err := r.store.UpsertRequest(ctx, observe(it))
	if err != nil {
		r.fail(ctx, b, it, nil, loans.StageObserve, err)
		return
	}

	state, ok := b.clock.Evaluate(stored)
	if !ok {
		r.result(ctx, b, resultUnavailable)
		return
	}
	span.SetAttributes(attribute.Int(tracing.AttrDaysLeft, state.DaysLeft))
	if !state.Remind && !state.Delete {
		r.result(ctx, b, resultOK)
		return
	}

	switch b.jobType {
	case loans.JobCheck:
		b.attention++
		if state.Delete {
			r.logger.InfoContext(ctx, "loan expired", "request", stored.ExternalRequestID, "title", stored.Title, "days_left", state.DaysLeft)
			r.result(ctx, b, resultExpired)
			return
		}
		r.remind(ctx, b, it, stored, state)

	case loans.JobProcess:
		if state.Delete {
			r.delete(ctx, b, it, stored)
			return
		}
		r.remind(ctx, b, it, stored, state)
	}
}

// observe builds the request as reported by the catalog.
func observe(it item) *loans.Request {
	req := &loans.Request{
		ExternalRequestID: it.req.RequestID,
		MediaType:         it.req.MediaType,
		MediaID:           it.req.MediaID,
		Title:             it.media.Title,
		RequestedBy:       it.req.RequestedBy,
		RequestedAt:       it.req.RequestedAt,
	}
	if it.media.Available && it.media.AvailableSince != nil {
		t := it.media.AvailableSince.UTC()
		req.AvailableSince = &t
	}
	return req
}

func (r *Runner) remind(ctx context.Context, b *batch, it item, stored *loans.Request, state retention.State) {
	window := state.Window()
	entry := loans.ReminderEntry{Title: stored.Title, Email: stored.RequestedBy, DaysLeft: state.DaysLeft}

	sent, err := r.store.ReminderSent(ctx, stored.ExternalRequestID, window)
	if err != nil {
		r.fail(ctx, b, it, stored, loans.StageRemind, err)
		return
	}
	if sent {
		b.waiting = append(b.waiting, entry)
		r.result(ctx, b, resultAlreadyReminded)
		return
	}

	err = r.notifier.SendReminder(ctx, loans.Reminder{
		Request:   stored,
		Media:     it.media,
		DaysLeft:  state.DaysLeft,
		DeleteOn:  state.DeleteOn,
		ExtendURL: b.settings.ExtendURL(stored.ExternalRequestID),
	})
	if err != nil {
		r.fail(ctx, b, it, stored, loans.StageRemind, err)
		return
	}

	if err := r.store.RecordReminder(ctx, stored.ExternalRequestID, window, r.now().UTC()); err != nil {
		// The reminder went out; without the record it may be sent again.
		r.fail(ctx, b, it, stored, loans.StageRemind, err)
		return
	}

	b.reminded = append(b.reminded, entry)
	r.result(ctx, b, resultReminded)
	r.logger.InfoContext(ctx, "reminder sent",
		"request", stored.ExternalRequestID,
		"title", stored.Title,
		"email", stored.RequestedBy,
		"days_left", state.DaysLeft,
		"window", window,
	)
}

func (r *Runner) delete(ctx context.Context, b *batch, it item, stored *loans.Request) {
	if err := r.deleter.Delete(ctx, it.req); err != nil {
		r.fail(ctx, b, it, stored, loans.StageDelete, err)
		return
	}

	b.deleted = append(b.deleted, loans.DeletionEntry{Title: stored.Title, Email: stored.RequestedBy})
	r.result(ctx, b, resultDeleted)
	r.logger.InfoContext(ctx, "loan deleted",
		"request", stored.ExternalRequestID,
		"title", stored.Title,
		"email", stored.RequestedBy,
	)

	if err := r.store.DeleteRequest(ctx, stored.ExternalRequestID); err != nil && !loans.IsNotFound(err) {
		r.fail(ctx, b, it, stored, loans.StageDelete, err)
	}

	notice := loans.DeletionNotice{Request: stored, Media: it.media}
	if err := r.notifier.SendDeletionNotice(ctx, notice); err != nil {
		r.fail(ctx, b, it, stored, loans.StageNotify, err)
	}
}

// fail records a failure confined to one request.
func (r *Runner) fail(ctx context.Context, b *batch, it item, stored *loans.Request, stage string, cause error) {
	itemErr := loans.NewItemError(it.req.RequestID, stage, cause)

	failure := loans.ItemFailure{
		RequestID: it.req.RequestID,
		Email:     it.req.RequestedBy,
		Stage:     stage,
		Error:     cause.Error(),
	}
	switch {
	case stored != nil:
		failure.Title = stored.Title
	case it.media != nil:
		failure.Title = it.media.Title
	}
	b.failures = append(b.failures, failure)

	r.result(ctx, b, resultFailed)
	span := tracing.SpanFromContext(ctx)
	span.SetAttributes(attribute.String(tracing.AttrStage, stage))
	tracing.SetError(span, itemErr)
	r.logger.WarnContext(ctx, "request failed", "request", it.req.RequestID, "stage", stage, "error", itemErr)
}

// result counts the outcome of an item and records it on its span.
func (r *Runner) result(ctx context.Context, b *batch, result string) {
	r.metrics.RecordItem(string(b.jobType), result)
	tracing.SpanFromContext(ctx).SetAttributes(attribute.String(tracing.AttrOutcome, result))
}

// prune forgets stored requests the catalog no longer lists.
func (r *Runner) prune(ctx context.Context, listed []loans.CatalogRequest) {
	keep := make([]int, len(listed))
	for i, req := range listed {
		keep[i] = req.RequestID
	}

	removed, err := r.store.PruneRequests(ctx, keep)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to prune requests", "error", err)
		return
	}
	if removed > 0 {
		r.logger.InfoContext(ctx, "pruned requests no longer in the catalog", "count", removed)
	}
}
