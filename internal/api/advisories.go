package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// CurrentAdvisoryHandler handles GET /api/v1/advisories/current. No current
// advisory is a 204.
func (h *Handlers) CurrentAdvisoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		advisory, ok := h.deps.Services.Advisories.Current()
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		respondWithSuccess(w, r, http.StatusOK, &advisory)
	}
}

// DismissAdvisoryHandler handles DELETE /api/v1/advisories/{advisoryId}
func (h *Handlers) DismissAdvisoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.deps.Services.Advisories.Dismiss(chi.URLParam(r, "advisoryId")) {
			respondWithError(w, r, http.StatusNotFound, "Advisory is no longer current")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
