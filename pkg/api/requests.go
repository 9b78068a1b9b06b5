package api

import (
	"net/http"

	"github.com/jeajar/scruffy/pkg/loans"
	"github.com/jeajar/scruffy/pkg/loans/retention"
)

// loanView is a stored request with its retention state. State is absent
// while the media is not available.
type loanView struct {
	*loans.Request
	State *retention.State `json:"state,omitempty"`
}

type extendRequest struct {
	GrantedBy string `json:"granted_by,omitempty"`
}

func (a *API) listRequests(w http.ResponseWriter, r *http.Request) {
	clock, err := a.settings.Clock(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	reqs, err := a.store.ListRequests(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]loanView, 0, len(reqs))
	for _, req := range reqs {
		v := loanView{Request: req}
		if state, ok := clock.Evaluate(req); ok {
			v.State = &state
		}
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) extendRequest(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body extendRequest
	if err := decode(w, r, &body, true); err != nil {
		writeError(w, r, err)
		return
	}

	req, state, err := a.ledger.Extend(r.Context(), int(id), body.GrantedBy)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loanView{Request: req, State: &state})
}
