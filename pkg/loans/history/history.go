// Package history bounds the job run log by age and by count.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jeajar/scruffy/pkg/config"
	"github.com/jeajar/scruffy/pkg/loans"
)

// Store is the run log being pruned.
type Store interface {
	PruneJobRuns(ctx context.Context, cutoff time.Time, keep int) (int64, error)
}

// Pruner deletes job runs beyond the configured history limits.
type Pruner struct {
	store  Store
	cfg    config.HistoryConfig
	now    func() time.Time
	logger *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewPruner creates a pruner for cfg.
func NewPruner(store Store, cfg config.HistoryConfig) *Pruner {
	return &Pruner{
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		logger: slog.Default().With("component", "history"),
	}
}

// Prune applies the age limit, then the count limit, and returns the number
// of runs deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.cfg.RetentionDays <= 0 && p.cfg.MaxRuns <= 0 {
		p.logger.DebugContext(ctx, "job history limits disabled")
		return 0, nil
	}

	var cutoff time.Time
	if p.cfg.RetentionDays > 0 {
		cutoff = p.now().UTC().AddDate(0, 0, -p.cfg.RetentionDays)
	}

	deleted, err := p.store.PruneJobRuns(ctx, cutoff, p.cfg.MaxRuns)
	if err != nil {
		return 0, fmt.Errorf("failed to prune job history: %w", err)
	}

	if deleted > 0 {
		p.logger.InfoContext(ctx, "job history pruned",
			"deleted_count", deleted,
			"retention_days", p.cfg.RetentionDays,
			"max_runs", p.cfg.MaxRuns,
		)
	}
	return deleted, nil
}

// Start prunes on the configured cron schedule, evaluated in loc, until ctx
// is done or Stop is called. An empty schedule does nothing.
func (p *Pruner) Start(ctx context.Context, loc *time.Location) error {
	if p.cfg.PruneSchedule == "" {
		p.logger.Info("prune schedule not configured, skipping")
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cron != nil {
		return nil
	}

	if loc == nil {
		loc = time.Local
	}
	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(loans.NormalizeCron(p.cfg.PruneSchedule), func() {
		if _, err := p.Prune(ctx); err != nil {
			p.logger.Error("scheduled pruning failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", p.cfg.PruneSchedule, err)
	}
	c.Start()
	p.cron = c

	p.logger.Info("job history pruning scheduled",
		"schedule", p.cfg.PruneSchedule,
		"retention_days", p.cfg.RetentionDays,
		"max_runs", p.cfg.MaxRuns,
	)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()
	return nil
}

// Stop halts scheduled pruning and waits for a running prune to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

// NextRun returns the next scheduled prune, or the zero time when none is
// scheduled.
func (p *Pruner) NextRun() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cron == nil {
		return time.Time{}
	}
	entries := p.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
