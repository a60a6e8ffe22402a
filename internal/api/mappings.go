package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"infinite-experiment/reconboard/internal/constants"
	"infinite-experiment/reconboard/internal/logging"
	"infinite-experiment/reconboard/internal/models/dtos"
	"infinite-experiment/reconboard/internal/models/entities"
)

// TaskFieldsHandler handles GET /api/v1/tasks/{taskId}/fields
func (h *Handlers) TaskFieldsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID := chi.URLParam(r, "taskId")

		fields, _, err := h.deps.Services.Fields.GetTaskFields(r.Context(), taskID)
		if err != nil {
			h.respondWithFailure(w, r, err, "")
			return
		}
		respondWithSuccess(w, r, http.StatusOK, &fields)
	}
}

// ListMappingsHandler handles GET /api/v1/playgrounds/{playgroundId}/mappings.
// When the backend fails the last good listing is still returned alongside
// the error message. A good listing also drops mappings that vanished from
// the backend out of the poll set.
func (h *Handlers) ListMappingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playgroundID := chi.URLParam(r, "playgroundId")

		known := h.deps.Services.Mappings.KnownMappingIDs()
		mappings, err := h.deps.Services.Mappings.ListByPlayground(r.Context(), playgroundID)
		if err != nil {
			status, msg := errorStatus(err, "")
			if len(mappings) == 0 {
				respondWithError(w, r, status, msg)
				return
			}
			logging.Warn("Serving cached mappings", "playground_id", playgroundID, "error", err)
			respondWithMessage(w, r, http.StatusOK, msg, &mappings)
			return
		}

		h.forgetVanished(known, h.deps.Services.Mappings.KnownMappingIDs())
		h.track(mappings...)
		respondWithSuccess(w, r, http.StatusOK, &mappings)
	}
}

// CreateMappingHandler handles POST /api/v1/playgrounds/{playgroundId}/mappings
func (h *Handlers) CreateMappingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playgroundID := chi.URLParam(r, "playgroundId")

		var req dtos.SaveMappingReq
		if !decodeBody(w, r, &req) {
			return
		}

		created, err := h.deps.Services.Mappings.Create(r.Context(), playgroundID, req.LeftTaskID, req.RightTaskID, req.FieldMap)
		if err != nil {
			h.failAndAdvise(w, r, err, "")
			return
		}

		h.track(*created)
		h.deps.Services.Advisories.Success(constants.MsgMappingCreated)
		respondWithMessage(w, r, http.StatusCreated, constants.MsgMappingCreated, created)
	}
}

// UpdateMappingHandler handles PUT /api/v1/mappings/{mappingId}
func (h *Handlers) UpdateMappingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mappingID := chi.URLParam(r, "mappingId")

		var req dtos.UpdateFieldMapReq
		if !decodeBody(w, r, &req) {
			return
		}

		updated, err := h.deps.Services.Mappings.Update(r.Context(), mappingID, req.FieldMap)
		if err != nil {
			h.failAndAdvise(w, r, err, "")
			return
		}

		h.deps.Services.Advisories.Success(constants.MsgMappingUpdated)
		respondWithMessage(w, r, http.StatusOK, constants.MsgMappingUpdated, updated)
	}
}

// DeleteMappingHandler handles DELETE /api/v1/mappings/{mappingId}
func (h *Handlers) DeleteMappingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mappingID := chi.URLParam(r, "mappingId")

		if err := h.deps.Services.Mappings.Delete(r.Context(), mappingID); err != nil {
			h.failAndAdvise(w, r, err, "")
			return
		}

		h.deps.Services.Runs.Forget(mappingID)
		h.deps.Services.Advisories.Success(constants.MsgMappingDeleted)
		respondWithMessage[any](w, r, http.StatusOK, constants.MsgMappingDeleted, nil)
	}
}

// track adds persisted mappings to the poll set and wakes the scheduler.
func (h *Handlers) track(mappings ...entities.ReconciliationMapping) {
	ids := make([]string, 0, len(mappings))
	for _, m := range mappings {
		if m.Persisted() {
			ids = append(ids, m.ID)
		}
	}
	h.trackIDs(ids...)
}

func (h *Handlers) trackIDs(ids ...string) {
	if len(ids) == 0 {
		return
	}
	h.deps.Services.Runs.Track(ids...)
	if h.deps.Polling != nil {
		h.deps.Polling.EnsurePolling()
	}
}

// forgetVanished untracks ids cached before a listing that the listing no
// longer returned.
func (h *Handlers) forgetVanished(before, after []string) {
	still := make(map[string]struct{}, len(after))
	for _, id := range after {
		still[id] = struct{}{}
	}
	var gone []string
	for _, id := range before {
		if _, ok := still[id]; !ok {
			gone = append(gone, id)
		}
	}
	if len(gone) == 0 {
		return
	}
	logging.Info("Untracking mappings missing from listing", "count", len(gone))
	h.deps.Services.Runs.Forget(gone...)
}
