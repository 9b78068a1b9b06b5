package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jeajar/scruffy/pkg/loans"
)

// Grant records an extension of days on r. A request may be extended once
// in its lifetime: a second grant fails with *loans.ConflictError and leaves
// r unchanged. The availability date is not touched.
func Grant(r *loans.Request, days int, grantedBy string, at time.Time) error {
	if r.Extension != nil {
		return loans.NewConflictError("request", r.ExternalRequestID,
			fmt.Sprintf("already extended on %s", r.Extension.GrantedAt.Format(time.RFC3339)))
	}
	if days < 1 {
		return loans.NewConfigError("extension_days", fmt.Sprintf("must be at least 1, got %d", days))
	}
	r.Extension = &loans.Extension{
		Days:      days,
		GrantedAt: at.UTC(),
		GrantedBy: grantedBy,
	}
	return nil
}

// ClockSource yields the clock for the current settings.
type ClockSource interface {
	Clock(ctx context.Context) (*Clock, error)
}

// Ledger grants extensions against the request store.
type Ledger struct {
	store  loans.RequestStore
	clocks ClockSource
	logger *slog.Logger
}

// NewLedger creates a new extension ledger.
func NewLedger(store loans.RequestStore, clocks ClockSource) *Ledger {
	return &Ledger{
		store:  store,
		clocks: clocks,
		logger: slog.Default().With("component", "retention.ledger"),
	}
}

// Extend grants the extension of the request identified by its catalog
// request id and returns the updated request with its new state.
//
// It fails with NotFoundError for unknown requests, ConfigError when the
// loan has not started, and ConflictError when the request was already
// extended. The store write is conditional, so concurrent grants produce a
// single extension.
func (l *Ledger) Extend(ctx context.Context, externalRequestID int, grantedBy string) (*loans.Request, State, error) {
	clock, err := l.clocks.Clock(ctx)
	if err != nil {
		return nil, State{}, err
	}

	req, err := l.store.GetRequest(ctx, externalRequestID)
	if err != nil {
		return nil, State{}, err
	}
	if req.AvailableSince == nil {
		return nil, State{}, loans.NewConfigError("request_id",
			fmt.Sprintf("request %d is not available yet; its loan has not started", externalRequestID))
	}

	candidate := req.Clone()
	if err := Grant(candidate, clock.Policy.ExtensionDays, grantedBy, clock.now()); err != nil {
		return nil, State{}, err
	}

	stored, err := l.store.GrantExtension(ctx, externalRequestID, *candidate.Extension)
	if err != nil {
		return nil, State{}, err
	}

	state, _ := clock.Evaluate(stored)
	l.logger.InfoContext(ctx, "loan extended",
		"request_id", externalRequestID,
		"title", stored.Title,
		"extension_days", stored.Extension.Days,
		"days_left", state.DaysLeft,
		"granted_by", grantedBy,
	)

	return stored, state, nil
}
