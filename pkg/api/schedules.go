package api

import (
	"net/http"

	"github.com/jeajar/scruffy/pkg/loans"
)

type createScheduleRequest struct {
	JobType        string `json:"job_type"`
	CronExpression string `json:"cron_expression"`
	Enabled        *bool  `json:"enabled,omitempty"`
}

func (a *API) listSchedules(w http.ResponseWriter, r *http.Request) {
	scheds, err := a.store.ListSchedules(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scheds)
}

func (a *API) createSchedule(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	if err := decode(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	jobType, err := loans.ParseJobType(req.JobType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	sched, err := a.store.CreateSchedule(r.Context(), jobType, req.CronExpression, enabled)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.arm(r, sched)

	a.logger.InfoContext(r.Context(), "schedule created",
		"schedule_id", sched.ID, "job_type", sched.JobType, "cron", sched.CronExpression, "enabled", sched.Enabled)
	writeJSON(w, http.StatusCreated, sched)
}

func (a *API) getSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	sched, err := a.store.GetSchedule(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

func (a *API) updateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch loans.SchedulePatch
	if err := decode(w, r, &patch, false); err != nil {
		writeError(w, r, err)
		return
	}
	if patch.Empty() {
		writeError(w, r, badRequest("no fields to update"))
		return
	}

	sched, err := a.store.UpdateSchedule(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a.arm(r, sched)

	a.logger.InfoContext(r.Context(), "schedule updated",
		"schedule_id", sched.ID, "job_type", sched.JobType, "cron", sched.CronExpression, "enabled", sched.Enabled)
	writeJSON(w, http.StatusOK, sched)
}

func (a *API) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.store.DeleteSchedule(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	a.scheduler.Remove(id)

	a.logger.InfoContext(r.Context(), "schedule deleted", "schedule_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) runSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	trig, err := a.scheduler.RunSchedule(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, trig)
}

func (a *API) schedulerEntries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.scheduler.Entries())
}

// arm hands a persisted schedule to the scheduler. The store validated the
// expression, so a failure here is logged and left to the next reload.
func (a *API) arm(r *http.Request, sched *loans.Schedule) {
	if err := a.scheduler.Upsert(sched); err != nil {
		a.logger.WarnContext(r.Context(), "failed to arm schedule", "schedule_id", sched.ID, "error", err)
	}
}
