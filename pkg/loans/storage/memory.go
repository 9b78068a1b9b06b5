package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jeajar/scruffy/pkg/loans"
)

// MemoryStorage implements loans.Store in memory. All returned values are
// copies; callers may mutate them freely.
type MemoryStorage struct {
	mu sync.RWMutex

	schedules   map[int64]*loans.Schedule
	nextSchedID int64

	runs      []*loans.JobRun
	nextRunID int64

	requests  map[int]*loans.Request
	nextReqID int64

	reminders map[reminderKey]time.Time
	settings  map[string]string

	closed bool
}

type reminderKey struct {
	requestID int
	window    string
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		schedules: make(map[int64]*loans.Schedule),
		requests:  make(map[int]*loans.Request),
		reminders: make(map[reminderKey]time.Time),
		settings:  make(map[string]string),
	}
}

// Ping always succeeds until the store is closed.
func (m *MemoryStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return loans.NewStorageError("memory", "ping", errClosed)
	}
	return nil
}

// Close marks the store closed.
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryStorage) CreateSchedule(ctx context.Context, jobType loans.JobType, cronExpr string, enabled bool) (*loans.Schedule, error) {
	sched, err := newSchedule(jobType, cronExpr, enabled, time.Now())
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSchedID++
	sched.ID = m.nextSchedID
	m.schedules[sched.ID] = sched

	c := *sched
	return &c, nil
}

func (m *MemoryStorage) GetSchedule(ctx context.Context, id int64) (*loans.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sched, ok := m.schedules[id]
	if !ok {
		return nil, loans.NewNotFoundError("schedule", id)
	}
	c := *sched
	return &c, nil
}

func (m *MemoryStorage) UpdateSchedule(ctx context.Context, id int64, patch loans.SchedulePatch) (*loans.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sched, ok := m.schedules[id]
	if !ok {
		return nil, loans.NewNotFoundError("schedule", id)
	}
	next := *sched
	if err := patch.Apply(&next); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now().UTC()
	m.schedules[id] = &next

	c := next
	return &c, nil
}

func (m *MemoryStorage) DeleteSchedule(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.schedules[id]; !ok {
		return loans.NewNotFoundError("schedule", id)
	}
	delete(m.schedules, id)
	return nil
}

func (m *MemoryStorage) ListSchedules(ctx context.Context) ([]*loans.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*loans.Schedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		c := *s
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStorage) AppendJobRun(ctx context.Context, run *loans.JobRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextRunID++
	run.ID = m.nextRunID
	m.runs = append(m.runs, cloneRun(run))
	return nil
}

func (m *MemoryStorage) ListJobRuns(ctx context.Context, limit int) ([]*loans.JobRun, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*loans.JobRun, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, cloneRun(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FinishedAt.Equal(out[j].FinishedAt) {
			return out[i].FinishedAt.After(out[j].FinishedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStorage) PruneJobRuns(ctx context.Context, cutoff time.Time, keep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := make([]*loans.JobRun, 0, len(m.runs))
	for _, r := range m.runs {
		if cutoff.IsZero() || !r.FinishedAt.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	if keep > 0 && len(kept) > keep {
		sort.SliceStable(kept, func(i, j int) bool {
			if !kept[i].FinishedAt.Equal(kept[j].FinishedAt) {
				return kept[i].FinishedAt.After(kept[j].FinishedAt)
			}
			return kept[i].ID > kept[j].ID
		})
		kept = kept[:keep]
		sort.Slice(kept, func(i, j int) bool { return kept[i].ID < kept[j].ID })
	}

	removed := int64(len(m.runs) - len(kept))
	m.runs = kept
	return removed, nil
}

func (m *MemoryStorage) UpsertRequest(ctx context.Context, observed *loans.Request) (*loans.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.requests[observed.ExternalRequestID]
	if !ok {
		m.nextReqID++
		cur = observed.Clone()
		cur.ID = m.nextReqID
		cur.Extension = nil
		m.requests[cur.ExternalRequestID] = cur
		return cur.Clone(), nil
	}

	cur.MediaType = observed.MediaType
	cur.MediaID = observed.MediaID
	if observed.Title != "" {
		cur.Title = observed.Title
	}
	if observed.RequestedBy != "" {
		cur.RequestedBy = observed.RequestedBy
	}
	if !observed.RequestedAt.IsZero() {
		cur.RequestedAt = observed.RequestedAt
	}
	if cur.AvailableSince == nil && observed.AvailableSince != nil {
		t := *observed.AvailableSince
		cur.AvailableSince = &t
	}
	return cur.Clone(), nil
}

func (m *MemoryStorage) GetRequest(ctx context.Context, externalRequestID int) (*loans.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.requests[externalRequestID]
	if !ok {
		return nil, loans.NewNotFoundError("request", externalRequestID)
	}
	return r.Clone(), nil
}

func (m *MemoryStorage) ListRequests(ctx context.Context) ([]*loans.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*loans.Request, 0, len(m.requests))
	for _, r := range m.requests {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalRequestID < out[j].ExternalRequestID })
	return out, nil
}

func (m *MemoryStorage) GrantExtension(ctx context.Context, externalRequestID int, ext loans.Extension) (*loans.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[externalRequestID]
	if !ok {
		return nil, loans.NewNotFoundError("request", externalRequestID)
	}
	if r.Extension != nil {
		return nil, loans.NewConflictError("request", externalRequestID, "already extended")
	}
	e := ext
	r.Extension = &e
	return r.Clone(), nil
}

func (m *MemoryStorage) DeleteRequest(ctx context.Context, externalRequestID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.requests[externalRequestID]; !ok {
		return loans.NewNotFoundError("request", externalRequestID)
	}
	m.dropRequestLocked(externalRequestID)
	return nil
}

func (m *MemoryStorage) PruneRequests(ctx context.Context, keep []int) (int, error) {
	keepSet := make(map[int]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id := range m.requests {
		if _, ok := keepSet[id]; !ok {
			m.dropRequestLocked(id)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStorage) dropRequestLocked(externalRequestID int) {
	delete(m.requests, externalRequestID)
	for k := range m.reminders {
		if k.requestID == externalRequestID {
			delete(m.reminders, k)
		}
	}
}

func (m *MemoryStorage) ReminderSent(ctx context.Context, externalRequestID int, window string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.reminders[reminderKey{externalRequestID, window}]
	return ok, nil
}

func (m *MemoryStorage) RecordReminder(ctx context.Context, externalRequestID int, window string, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := reminderKey{externalRequestID, window}
	if _, ok := m.reminders[k]; !ok {
		m.reminders[k] = sentAt.UTC()
	}
	return nil
}

func (m *MemoryStorage) GetSettings(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.settings))
	for k, v := range m.settings {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStorage) PutSettings(ctx context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range values {
		m.settings[k] = v
	}
	return nil
}

func cloneRun(r *loans.JobRun) *loans.JobRun {
	c := *r
	if r.Check != nil {
		cs := *r.Check
		cs.Failures = append([]loans.ItemFailure(nil), r.Check.Failures...)
		c.Check = &cs
	}
	if r.Process != nil {
		ps := *r.Process
		ps.RemindersSent = append([]loans.ReminderEntry(nil), r.Process.RemindersSent...)
		ps.NeedsAttention = append([]loans.ReminderEntry(nil), r.Process.NeedsAttention...)
		ps.Deletions = append([]loans.DeletionEntry(nil), r.Process.Deletions...)
		ps.Failures = append([]loans.ItemFailure(nil), r.Process.Failures...)
		c.Process = &ps
	}
	return &c
}
