package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"infinite-experiment/reconboard/internal/constants"
	"infinite-experiment/reconboard/internal/models/dtos"
	"infinite-experiment/reconboard/internal/models/entities"
	"infinite-experiment/reconboard/internal/services"
)

// TriggerRunHandler handles POST /api/v1/mappings/{mappingId}/runs
func (h *Handlers) TriggerRunHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mappingID := chi.URLParam(r, "mappingId")

		ack, err := h.deps.Services.Runs.Trigger(r.Context(), mappingID)
		if err != nil {
			h.failAndAdvise(w, r, err, "")
			return
		}
		h.trackIDs(mappingID)

		snap, _ := h.deps.Services.Runs.Snapshot(mappingID)
		h.deps.Services.Advisories.Success(constants.MsgRunTriggered)
		respondWithMessage(w, r, http.StatusAccepted, constants.MsgRunTriggered, &dtos.TriggerRunResponse{
			ReconciliationID: mappingID,
			Acknowledgement:  ack,
			Phase:            string(snap.Phase),
		})
	}
}

// PollRunHandler handles POST /api/v1/mappings/{mappingId}/poll. A failed
// status fetch still answers with whatever result is cached.
func (h *Handlers) PollRunHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mappingID := chi.URLParam(r, "mappingId")

		snap, err := h.deps.Services.Runs.PollOnce(r.Context(), mappingID)
		if err != nil && snap.Result == nil {
			h.respondWithFailure(w, r, err, "")
			return
		}

		view := runView(snap)
		if err != nil {
			_, msg := errorStatus(err, "")
			respondWithMessage(w, r, http.StatusOK, msg, &view)
			return
		}
		respondWithSuccess(w, r, http.StatusOK, &view)
	}
}

// RunResultHandler handles GET /api/v1/mappings/{mappingId}/result
func (h *Handlers) RunResultHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mappingID := chi.URLParam(r, "mappingId")

		snap, ok := h.deps.Services.Runs.Snapshot(mappingID)
		if !ok || snap.Result == nil {
			respondWithError(w, r, http.StatusNotFound, constants.MsgResultNotAvailable)
			return
		}

		view := runView(snap)
		respondWithSuccess(w, r, http.StatusOK, &view)
	}
}

type runHistory struct {
	Runs   []entities.RunLedgerEntry `json:"runs"`
	Counts map[string]int64          `json:"counts"`
}

// RunHistoryHandler handles GET /api/v1/mappings/{mappingId}/history
func (h *Handlers) RunHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.deps.History == nil {
			respondWithError(w, r, http.StatusNotFound, "Run history is not enabled")
			return
		}

		mappingID := chi.URLParam(r, "mappingId")
		limit := 20
		if qs := r.URL.Query().Get("limit"); qs != "" {
			l, err := strconv.Atoi(qs)
			if err != nil || l <= 0 {
				respondWithError(w, r, http.StatusBadRequest, "Invalid limit parameter")
				return
			}
			limit = l
		}

		runs, err := h.deps.History.RecentRuns(r.Context(), mappingID, limit)
		if err != nil {
			respondWithError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		counts, err := h.deps.History.StatusCounts(r.Context(), mappingID)
		if err != nil {
			respondWithError(w, r, http.StatusInternalServerError, err.Error())
			return
		}

		respondWithSuccess(w, r, http.StatusOK, &runHistory{Runs: runs, Counts: counts})
	}
}

// AutoRefreshHandler handles PUT /api/v1/polling/auto-refresh
func (h *Handlers) AutoRefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dtos.AutoRefreshReq
		if !decodeBody(w, r, &req) {
			return
		}
		if h.deps.Polling == nil {
			respondWithError(w, r, http.StatusServiceUnavailable, "Poll scheduler is not running")
			return
		}

		running := h.deps.Polling.SetAutoRefresh(req.Enabled)
		respondWithSuccess(w, r, http.StatusOK, &dtos.AutoRefreshResponse{
			Enabled: req.Enabled,
			Running: running,
		})
	}
}

func runView(snap services.RunSnapshot) dtos.RunView {
	res := *snap.Result
	view := dtos.RunView{
		Phase:           string(snap.Phase),
		Result:          res,
		PreviewsEnabled: res.PreviewsEnabled(),
		CountLabels: map[string]string{
			"leftFileRowCount":           entities.CountLabel(res.LeftFileRowCount),
			"rightFileRowCount":          entities.CountLabel(res.RightFileRowCount),
			"commonRowCount":             entities.CountLabel(res.CommonRowCount),
			"leftFileExclusiveRowCount":  entities.CountLabel(res.LeftFileExclusiveRowCount),
			"rightFileExclusiveRowCount": entities.CountLabel(res.RightFileExclusiveRowCount),
		},
	}
	if pct, ok := res.MatchPercentage(); ok {
		view.MatchPercentage = &pct
	}
	return view
}
