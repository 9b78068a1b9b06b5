package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jeajar/scruffy/pkg/loans"
	"github.com/jeajar/scruffy/pkg/loans/retention"
	"github.com/jeajar/scruffy/pkg/loans/scheduler"
	"github.com/jeajar/scruffy/pkg/loans/settings"
)

// Scheduler is the part of *scheduler.Scheduler the API drives.
type Scheduler interface {
	Upsert(sched *loans.Schedule) error
	Remove(id int64)
	RunNow(jobType loans.JobType) (scheduler.Trigger, error)
	RunSchedule(ctx context.Context, id int64) (scheduler.Trigger, error)
	Entries() []scheduler.Entry
}

// Settings is the part of *settings.Resolver the API drives.
type Settings interface {
	Current(ctx context.Context) ([]settings.Field, error)
	Update(ctx context.Context, patch settings.Patch) (*settings.Settings, error)
	Clock(ctx context.Context) (*retention.Clock, error)
}

// Extender grants loan extensions. *retention.Ledger implements it.
type Extender interface {
	Extend(ctx context.Context, externalRequestID int, grantedBy string) (*loans.Request, retention.State, error)
}

// API serves the administrative endpoints.
type API struct {
	store     loans.Store
	scheduler Scheduler
	settings  Settings
	ledger    Extender
	logger    *slog.Logger
}

// New creates the API.
func New(store loans.Store, sched Scheduler, s Settings, ledger Extender) *API {
	return &API{
		store:     store,
		scheduler: sched,
		settings:  s,
		ledger:    ledger,
		logger:    slog.Default().With("component", "api"),
	}
}

// Routes returns the router to mount under /api/v1.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/schedules", func(r chi.Router) {
		r.Get("/", a.listSchedules)
		r.Post("/", a.createSchedule)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.getSchedule)
			r.Patch("/", a.updateSchedule)
			r.Delete("/", a.deleteSchedule)
			r.Post("/run", a.runSchedule)
		})
	})

	r.Get("/scheduler", a.schedulerEntries)

	r.Get("/jobs", a.listJobs)
	r.Post("/jobs/{jobType}/run", a.runJob)

	r.Get("/settings", a.getSettings)
	r.Put("/settings", a.updateSettings)

	r.Get("/requests", a.listRequests)
	r.Post("/requests/{id}/extend", a.extendRequest)

	return r
}

func int64Param(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return id, nil
}
