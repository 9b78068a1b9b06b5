package api

import (
	"net/http"

	"github.com/jeajar/scruffy/pkg/loans/settings"
)

func (a *API) getSettings(w http.ResponseWriter, r *http.Request) {
	fields, err := a.settings.Current(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fields)
}

func (a *API) updateSettings(w http.ResponseWriter, r *http.Request) {
	var patch settings.Patch
	if err := decode(w, r, &patch, false); err != nil {
		writeError(w, r, err)
		return
	}
	if patch.Empty() {
		writeError(w, r, badRequest("no fields to update"))
		return
	}
	if _, err := a.settings.Update(r.Context(), patch); err != nil {
		writeError(w, r, err)
		return
	}
	a.getSettings(w, r)
}
