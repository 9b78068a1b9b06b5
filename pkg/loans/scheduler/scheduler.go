package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/semaphore"

	"github.com/jeajar/scruffy/pkg/config"
	"github.com/jeajar/scruffy/pkg/loans"
	"github.com/jeajar/scruffy/pkg/loans/runner"
	"github.com/jeajar/scruffy/pkg/telemetry/logging"
	"github.com/jeajar/scruffy/pkg/telemetry/metrics"
)

// State is the lifecycle state of a schedule entry.
type State string

const (
	StateDisabled State = "disabled"
	StateArmed    State = "armed"
	StateFiring   State = "firing"
	StateRemoved  State = "removed"
)

// Trigger statuses.
const (
	StatusStarted = "started"
	StatusSkipped = "skipped"
)

// ErrStopped is returned by triggers after Stop.
var ErrStopped = errors.New("scheduler stopped")

// JobRunner executes one job run. *runner.Runner implements it.
type JobRunner interface {
	Run(ctx context.Context, jobType loans.JobType, trigger string) (*loans.JobRun, error)
}

// Trigger acknowledges a dispatch. RunID is empty when the trigger was
// skipped.
type Trigger struct {
	JobType loans.JobType `json:"job_type"`
	Status  string        `json:"status"`
	RunID   string        `json:"run_id,omitempty"`
	Message string        `json:"message"`
}

// Entry is a snapshot of one schedule entry.
type Entry struct {
	ScheduleID     int64         `json:"schedule_id"`
	JobType        loans.JobType `json:"job_type"`
	CronExpression string        `json:"cron_expression"`
	State          State         `json:"state"`
	NextFire       *time.Time    `json:"next_fire,omitempty"`
	LastFire       *time.Time    `json:"last_fire,omitempty"`
}

type entry struct {
	sched loans.Schedule
	spec  cron.Schedule
	state State
	next  time.Time
	last  time.Time
}

// Scheduler owns the tick loop and the per job type single-flight guards.
type Scheduler struct {
	store  loans.ScheduleStore
	runner JobRunner
	cfg    config.SchedulerConfig

	location func() *time.Location
	now      func() time.Time
	metrics  *metrics.Collector
	logger   *slog.Logger

	flights map[loans.JobType]*semaphore.Weighted

	mu      sync.Mutex
	entries map[int64]*entry
	running map[loans.JobType]bool
	baseCtx context.Context
	stopped bool

	// seq counts Upsert and Remove calls; touched holds the last one per
	// schedule id so Reload can skip rows changed after it listed them.
	seq     uint64
	touched map[int64]uint64

	runs     sync.WaitGroup
	stop     chan struct{}
	loopDone chan struct{}
	started  bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation sets the time zone cron expressions are evaluated in. fn is
// consulted whenever a next fire time is computed.
func WithLocation(fn func() *time.Location) Option {
	return func(s *Scheduler) { s.location = fn }
}

// WithNow overrides the wall clock.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithMetrics records skipped triggers.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Scheduler) { s.metrics = c }
}

// New creates a scheduler. Zero durations in cfg take the configuration
// defaults.
func New(store loans.ScheduleStore, r JobRunner, cfg config.SchedulerConfig, opts ...Option) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = config.DefaultSchedulerTickInterval
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = config.DefaultSchedulerRunTimeout
	}
	if cfg.ReloadInterval <= 0 {
		cfg.ReloadInterval = config.DefaultSchedulerReloadInterval
	}

	s := &Scheduler{
		store:    store,
		runner:   r,
		cfg:      cfg,
		location: func() *time.Location { return time.Local },
		now:      time.Now,
		logger:   slog.Default().With("component", "scheduler"),
		flights:  make(map[loans.JobType]*semaphore.Weighted, len(loans.JobTypes)),
		entries:  make(map[int64]*entry),
		running:  make(map[loans.JobType]bool, len(loans.JobTypes)),
		touched:  make(map[int64]uint64),
		baseCtx:  context.Background(),
		stop:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	for _, jt := range loans.JobTypes {
		s.flights[jt] = semaphore.NewWeighted(1)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the schedules and starts the tick loop. Runs inherit the
// values of ctx but not its cancellation; use Stop to shut down.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return errors.New("scheduler already started")
	}
	s.started = true
	s.baseCtx = context.WithoutCancel(ctx)
	s.mu.Unlock()

	if err := s.Reload(ctx); err != nil {
		close(s.loopDone)
		return fmt.Errorf("failed to load schedules: %w", err)
	}

	go s.loop(ctx)

	s.logger.Info("scheduler started",
		"tick_interval", s.cfg.TickInterval,
		"reload_interval", s.cfg.ReloadInterval,
		"run_timeout", s.cfg.RunTimeout,
	)
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.loopDone)

	tick := time.NewTicker(s.cfg.TickInterval)
	defer tick.Stop()
	reload := time.NewTicker(s.cfg.ReloadInterval)
	defer reload.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("scheduler loop stopped (context cancelled)")
			return
		case <-s.stop:
			s.logger.Debug("scheduler loop stopped")
			return
		case <-tick.C:
			s.tick(s.now())
		case <-reload.C:
			if err := s.Reload(ctx); err != nil {
				s.logger.Warn("failed to reload schedules", "error", err)
			}
		}
	}
}

// Stop stops the loop, rejects further triggers and waits for in-flight
// runs to complete. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	close(s.stop)
	s.mu.Unlock()

	if started {
		<-s.loopDone
	}
	s.runs.Wait()
	s.logger.Info("scheduler stopped")
}

// tick fires every armed entry whose next fire time is not after now.
func (s *Scheduler) tick(now time.Time) {
	loc := s.location()

	type fire struct {
		e       *entry
		id      int64
		jobType loans.JobType
	}

	s.mu.Lock()
	var due []fire
	for id, e := range s.entries {
		if e.state != StateArmed && e.state != StateFiring {
			continue
		}
		if e.next.IsZero() || e.next.After(now) {
			continue
		}
		e.last = e.next
		e.next = e.spec.Next(now.In(loc))
		due = append(due, fire{e: e, id: id, jobType: e.sched.JobType})
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].id < due[j].id })
	for _, f := range due {
		if _, err := s.dispatch(f.jobType, runner.TriggerSchedule, f.e); err != nil {
			s.logger.Warn("failed to dispatch schedule", "schedule_id", f.id, "error", err)
		}
	}
}

// dispatch starts a run of jobType unless one is already in flight. e is the
// firing entry, nil for run-now triggers.
func (s *Scheduler) dispatch(jobType loans.JobType, trigger string, e *entry) (Trigger, error) {
	flight, ok := s.flights[jobType]
	if !ok {
		return Trigger{}, loans.NewConfigError("job_type", fmt.Sprintf("unknown job type %q", jobType))
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return Trigger{}, ErrStopped
	}
	if e != nil && !s.armedLocked(e) {
		id := e.sched.ID
		s.mu.Unlock()
		s.logger.Debug("trigger dropped, schedule changed", "schedule_id", id, "job_type", jobType)
		return Trigger{
			JobType: jobType,
			Status:  StatusSkipped,
			Message: fmt.Sprintf("schedule %d is no longer armed", id),
		}, nil
	}
	if !flight.TryAcquire(1) {
		s.mu.Unlock()
		s.metrics.RecordTriggerSkipped(string(jobType))
		s.logger.Info("trigger skipped, job already running", "job_type", jobType, "trigger", trigger)
		return Trigger{
			JobType: jobType,
			Status:  StatusSkipped,
			Message: fmt.Sprintf("%s job is already running", jobType),
		}, nil
	}
	if e != nil && e.state == StateArmed {
		e.state = StateFiring
	}
	s.running[jobType] = true
	s.runs.Add(1)
	base := s.baseCtx
	s.mu.Unlock()

	runID := uuid.NewString()
	go func() {
		defer s.runs.Done()
		defer s.land(jobType, flight)
		defer s.finish(e)

		ctx := logging.WithRunID(base, runID)
		ctx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()

		if _, err := s.runner.Run(ctx, jobType, trigger); err != nil {
			s.logger.ErrorContext(ctx, "job run could not be recorded", "job_type", jobType, "error", err)
		}
	}()

	return Trigger{
		JobType: jobType,
		Status:  StatusStarted,
		RunID:   runID,
		Message: fmt.Sprintf("%s job started", jobType),
	}, nil
}

// armedLocked reports whether e is still the live entry of its schedule and
// may fire.
func (s *Scheduler) armedLocked(e *entry) bool {
	cur, ok := s.entries[e.sched.ID]
	if !ok || cur != e {
		return false
	}
	return e.state == StateArmed || e.state == StateFiring
}

// land ends the flight of jobType. The flag and the semaphore change under
// s.mu so Running never disagrees with dispatch.
func (s *Scheduler) land(jobType loans.JobType, flight *semaphore.Weighted) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[jobType] = false
	flight.Release(1)
}

func (s *Scheduler) finish(e *entry) {
	if e == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.state == StateFiring {
		e.state = StateArmed
	}
}

// RunNow starts a run of jobType outside any schedule.
func (s *Scheduler) RunNow(jobType loans.JobType) (Trigger, error) {
	if _, err := loans.ParseJobType(string(jobType)); err != nil {
		return Trigger{}, err
	}
	return s.dispatch(jobType, runner.TriggerManual, nil)
}

// RunSchedule starts a run of the schedule's job type regardless of its
// cron expression or enabled flag.
func (s *Scheduler) RunSchedule(ctx context.Context, id int64) (Trigger, error) {
	sched, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return Trigger{}, err
	}
	return s.dispatch(sched.JobType, runner.TriggerManual, nil)
}

// Upsert arms, re-arms or disables the entry of sched.
func (s *Scheduler) Upsert(sched *loans.Schedule) error {
	spec, err := loans.ParseCron(sched.CronExpression)
	if err != nil {
		return err
	}
	now := s.now().In(s.location())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked(sched.ID)
	s.applyLocked(sched, spec, now)
	return nil
}

func (s *Scheduler) touchLocked(id int64) {
	s.seq++
	s.touched[id] = s.seq
}

func (s *Scheduler) applyLocked(sched *loans.Schedule, spec cron.Schedule, now time.Time) {
	e, ok := s.entries[sched.ID]
	if !ok {
		e = &entry{state: StateDisabled}
		s.entries[sched.ID] = e
	}
	changed := !ok || e.sched.CronExpression != sched.CronExpression ||
		e.sched.JobType != sched.JobType || e.sched.Enabled != sched.Enabled
	e.sched = *sched
	e.spec = spec

	if !sched.Enabled {
		e.state = StateDisabled
		e.next = time.Time{}
		return
	}
	if changed || e.next.IsZero() {
		e.next = spec.Next(now)
	}
	if e.state != StateFiring {
		e.state = StateArmed
	}
}

// Remove drops the entry of schedule id. A run it already started
// completes.
func (s *Scheduler) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked(id)
	if e, ok := s.entries[id]; ok {
		e.state = StateRemoved
		delete(s.entries, id)
	}
}

// Reload rebuilds the entry set from storage. Entries whose schedule did
// not change keep their next fire time. Schedules upserted or removed while
// the list was read keep the state those calls gave them.
func (s *Scheduler) Reload(ctx context.Context) error {
	s.mu.Lock()
	since := s.seq
	s.mu.Unlock()

	scheds, err := s.store.ListSchedules(ctx)
	if err != nil {
		return err
	}
	now := s.now().In(s.location())

	type parsed struct {
		sched *loans.Schedule
		spec  cron.Schedule
	}
	valid := make([]parsed, 0, len(scheds))
	for _, sched := range scheds {
		spec, err := loans.ParseCron(sched.CronExpression)
		if err != nil {
			s.logger.Warn("ignoring schedule with invalid cron expression", "schedule_id", sched.ID, "error", err)
			continue
		}
		valid = append(valid, parsed{sched, spec})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stale := func(id int64) bool { return s.touched[id] > since }

	seen := make(map[int64]struct{}, len(valid))
	for _, p := range valid {
		seen[p.sched.ID] = struct{}{}
		if stale(p.sched.ID) {
			continue
		}
		s.applyLocked(p.sched, p.spec, now)
	}
	for id, e := range s.entries {
		if _, ok := seen[id]; !ok && !stale(id) {
			e.state = StateRemoved
			delete(s.entries, id)
		}
	}
	for id, n := range s.touched {
		if n <= since {
			delete(s.touched, id)
		}
	}
	return nil
}

// Entries returns a snapshot of every entry ordered by schedule id.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.entries))
	for id, e := range s.entries {
		snap := Entry{
			ScheduleID:     id,
			JobType:        e.sched.JobType,
			CronExpression: e.sched.CronExpression,
			State:          e.state,
		}
		if !e.next.IsZero() {
			next := e.next
			snap.NextFire = &next
		}
		if !e.last.IsZero() {
			last := e.last
			snap.LastFire = &last
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduleID < out[j].ScheduleID })
	return out
}

// Running reports whether a run of jobType is in flight.
func (s *Scheduler) Running(jobType loans.JobType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[jobType]
}
