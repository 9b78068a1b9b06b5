package retention

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jeajar/scruffy/pkg/loans"
	"github.com/jeajar/scruffy/pkg/loans/storage"
)

type fixedClocks struct {
	clock *Clock
}

func (f fixedClocks) Clock(context.Context) (*Clock, error) {
	return f.clock, nil
}

func TestGrant(t *testing.T) {
	at := time.Date(2025, 6, 25, 0, 0, 0, 0, time.UTC)
	req := &loans.Request{ExternalRequestID: 42}

	if err := Grant(req, 7, "alice@example.com", at); err != nil {
		t.Fatalf("first Grant failed: %v", err)
	}
	if req.Extension == nil || req.Extension.Days != 7 || req.Extension.GrantedBy != "alice@example.com" {
		t.Fatalf("unexpected extension %+v", req.Extension)
	}

	err := Grant(req, 14, "alice@example.com", at.Add(time.Hour))
	if !loans.IsConflict(err) {
		t.Fatalf("second Grant error = %v, want ConflictError", err)
	}
	if req.Extension.Days != 7 {
		t.Errorf("second grant changed days to %d", req.Extension.Days)
	}

	if err := Grant(&loans.Request{}, 0, "", at); !loans.IsConfig(err) {
		t.Errorf("Grant with zero days error = %v, want ConfigError", err)
	}
}

func newLedgerFixture(t *testing.T, now time.Time) (*Ledger, *storage.MemoryStorage) {
	t.Helper()

	store := storage.NewMemoryStorage()
	t.Cleanup(func() { store.Close() })

	clock := NewClock(DefaultPolicy(), time.UTC)
	clock.Now = func() time.Time { return now }

	return NewLedger(store, fixedClocks{clock: clock}), store
}

func TestLedger_Extend(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 25, 12, 0, 0, 0, time.UTC)
	ledger, store := newLedgerFixture(t, now)

	since := now.AddDate(0, 0, -24)
	if _, err := store.UpsertRequest(ctx, &loans.Request{
		ExternalRequestID: 7,
		MediaType:         loans.MediaMovie,
		Title:             "Alien",
		RequestedBy:       "ripley@example.com",
		AvailableSince:    &since,
	}); err != nil {
		t.Fatalf("UpsertRequest failed: %v", err)
	}

	req, state, err := ledger.Extend(ctx, 7, "ripley@example.com")
	if err != nil {
		t.Fatalf("Extend failed: %v", err)
	}
	if req.Extension == nil || req.Extension.Days != 7 {
		t.Fatalf("unexpected extension %+v", req.Extension)
	}
	if state.EffectiveRetentionDays != 37 || state.DaysLeft != 13 || state.Remind {
		t.Errorf("unexpected state after extension: %+v", state)
	}
	if !req.AvailableSince.Equal(since) {
		t.Errorf("AvailableSince moved to %v", req.AvailableSince)
	}

	_, _, err = ledger.Extend(ctx, 7, "ripley@example.com")
	if !loans.IsConflict(err) {
		t.Fatalf("second Extend error = %v, want ConflictError", err)
	}

	stored, err := store.GetRequest(ctx, 7)
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if stored.Extension.Days != 7 {
		t.Errorf("extension days = %d after rejected grant, want 7", stored.Extension.Days)
	}
}

func TestLedger_ExtendErrors(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 25, 12, 0, 0, 0, time.UTC)
	ledger, store := newLedgerFixture(t, now)

	if _, _, err := ledger.Extend(ctx, 99, "someone"); !loans.IsNotFound(err) {
		t.Errorf("unknown request error = %v, want NotFoundError", err)
	}

	if _, err := store.UpsertRequest(ctx, &loans.Request{ExternalRequestID: 8, MediaType: loans.MediaTV}); err != nil {
		t.Fatalf("UpsertRequest failed: %v", err)
	}
	if _, _, err := ledger.Extend(ctx, 8, "someone"); !loans.IsConfig(err) {
		t.Errorf("unavailable request error = %v, want ConfigError", err)
	}
}

func TestLedger_ConcurrentGrants(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 25, 12, 0, 0, 0, time.UTC)
	ledger, store := newLedgerFixture(t, now)

	since := now.AddDate(0, 0, -10)
	if _, err := store.UpsertRequest(ctx, &loans.Request{ExternalRequestID: 3, MediaType: loans.MediaMovie, AvailableSince: &since}); err != nil {
		t.Fatalf("UpsertRequest failed: %v", err)
	}

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := ledger.Extend(ctx, 3, "racer")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case loans.IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || conflicts != workers-1 {
		t.Errorf("successes = %d, conflicts = %d; want 1 and %d", successes, conflicts, workers-1)
	}
}
