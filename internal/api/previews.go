package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"infinite-experiment/reconboard/internal/constants"
	"infinite-experiment/reconboard/internal/decoder"
	"infinite-experiment/reconboard/internal/models/dtos"
	"infinite-experiment/reconboard/internal/models/entities"
	"infinite-experiment/reconboard/internal/services"
)

// previewWait bounds how long a preview request blocks on an in-flight fetch
// before answering with the loading state.
const previewWait = 10 * time.Second

func previewViewResponse(v *services.PreviewView) *dtos.PreviewViewResponse {
	return &dtos.PreviewViewResponse{
		ViewID:          v.ID,
		MappingID:       v.MappingID,
		ActiveCategory:  v.Active(),
		PreviewsEnabled: v.PreviewsEnabled(),
		Categories:      v.States(),
	}
}

// OpenViewHandler handles POST /api/v1/mappings/{mappingId}/views. The view
// is opened over the mapping's current result and starts loading the active
// category straight away.
func (h *Handlers) OpenViewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mappingID := chi.URLParam(r, "mappingId")

		snap, ok := h.deps.Services.Runs.Snapshot(mappingID)
		if !ok || snap.Result == nil {
			respondWithError(w, r, http.StatusNotFound, constants.MsgResultNotAvailable)
			return
		}

		view := h.deps.Services.Previews.OpenView(r.Context(), mappingID, *snap.Result, h.deps.Services.Mappings.FieldMapFor(mappingID))
		if _, err := view.EnsureLoaded(view.Active()); err != nil {
			h.respondWithFailure(w, r, err, "")
			return
		}
		respondWithSuccess(w, r, http.StatusCreated, previewViewResponse(view))
	}
}

// GetViewHandler handles GET /api/v1/views/{viewId}
func (h *Handlers) GetViewHandler() http.HandlerFunc {
	return h.withView(func(w http.ResponseWriter, r *http.Request, v *services.PreviewView) {
		respondWithSuccess(w, r, http.StatusOK, previewViewResponse(v))
	})
}

// PreviewHandler handles GET /api/v1/views/{viewId}/previews/{category}.
// The fetch is started if needed; ?wait=false answers immediately with the
// current state instead of waiting for it.
func (h *Handlers) PreviewHandler() http.HandlerFunc {
	return h.withView(func(w http.ResponseWriter, r *http.Request, v *services.PreviewView) {
		category, err := entities.ParsePreviewCategory(chi.URLParam(r, "category"))
		if err != nil {
			respondWithError(w, r, http.StatusBadRequest, err.Error())
			return
		}

		if r.URL.Query().Get("wait") == "false" {
			if _, err := v.EnsureLoaded(category); err != nil {
				h.respondWithFailure(w, r, err, "")
				return
			}
			state := v.State(category)
			respondWithSuccess(w, r, http.StatusOK, &state)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), previewWait)
		defer cancel()
		state, err := v.Load(ctx, category)
		if err != nil && ctx.Err() == nil {
			h.respondWithFailure(w, r, err, "")
			return
		}
		if err != nil {
			state = v.State(category)
		}
		respondWithSuccess(w, r, http.StatusOK, &state)
	})
}

// SetActiveHandler handles PUT /api/v1/views/{viewId}/active/{category}
func (h *Handlers) SetActiveHandler() http.HandlerFunc {
	return h.withView(func(w http.ResponseWriter, r *http.Request, v *services.PreviewView) {
		category, err := entities.ParsePreviewCategory(chi.URLParam(r, "category"))
		if err != nil {
			respondWithError(w, r, http.StatusBadRequest, err.Error())
			return
		}

		active, err := v.SetActive(category)
		if err != nil {
			h.respondWithFailure(w, r, err, "")
			return
		}
		if _, err := v.EnsureLoaded(active); err != nil {
			h.respondWithFailure(w, r, err, "")
			return
		}
		respondWithSuccess(w, r, http.StatusOK, previewViewResponse(v))
	})
}

// CloseViewHandler handles DELETE /api/v1/views/{viewId}
func (h *Handlers) CloseViewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.deps.Services.Previews.CloseView(chi.URLParam(r, "viewId")); err != nil {
			h.respondWithFailure(w, r, err, "")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DecodeSampleHandler handles POST /api/v1/samples/decode
func (h *Handlers) DecodeSampleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dtos.DecodeSampleReq
		if !decodeBody(w, r, &req) {
			return
		}

		var result decoder.Result
		if len(req.Lines) > 0 {
			result, _ = decoder.DecodeLines(req.Lines, req.FieldMap, h.deps.DecoderOpts)
		} else {
			result = decoder.DecodeWithOptions(req.Payload, req.FieldMap, h.deps.DecoderOpts)
		}

		respondWithSuccess(w, r, http.StatusOK, &dtos.DecodeSampleResponse{
			IsCompactEncoding: result.Compact,
			Table:             result.Table,
		})
	}
}

func (h *Handlers) withView(fn func(http.ResponseWriter, *http.Request, *services.PreviewView)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := h.deps.Services.Previews.View(chi.URLParam(r, "viewId"))
		if err != nil {
			h.respondWithFailure(w, r, err, "")
			return
		}
		fn(w, r, view)
	}
}
