package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jeajar/scruffy/pkg/loans"
	"github.com/jeajar/scruffy/pkg/loans/storage"
)

// maxHistoryLimit caps the limit query parameter.
const maxHistoryLimit = 1000

func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	limit := storage.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeError(w, r, badRequest("limit must be between 1 and %d, got %q", maxHistoryLimit, raw))
			return
		}
		limit = n
	}

	runs, err := a.store.ListJobRuns(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (a *API) runJob(w http.ResponseWriter, r *http.Request) {
	jobType, err := loans.ParseJobType(chi.URLParam(r, "jobType"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	trig, err := a.scheduler.RunNow(jobType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, trig)
}
