package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"infinite-experiment/reconboard/internal/constants"
	"infinite-experiment/reconboard/internal/models/dtos"
	"infinite-experiment/reconboard/internal/services"
)

func pairingView(s *services.PairingSession) *dtos.PairingView {
	snap := s.Snapshot()
	return &dtos.PairingView{
		SessionID:   snap.ID,
		MappingID:   snap.MappingID,
		LeftFields:  snap.LeftFields,
		RightFields: snap.RightFields,
		ArmedLeft:   snap.ArmedLeft,
		ArmedRight:  snap.ArmedRight,
		FieldMap:    snap.FieldMap,
		LastAction:  string(snap.LastAction),
	}
}

// StartPairingHandler handles POST /api/v1/pairings
func (h *Handlers) StartPairingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dtos.StartPairingReq
		if !decodeBody(w, r, &req) {
			return
		}

		session, err := h.deps.Services.Pairings.Start(r.Context(), req)
		if err != nil {
			h.respondWithFailure(w, r, err, "")
			return
		}
		respondWithSuccess(w, r, http.StatusCreated, pairingView(session))
	}
}

// GetPairingHandler handles GET /api/v1/pairings/{sessionId}
func (h *Handlers) GetPairingHandler() http.HandlerFunc {
	return h.withPairing(func(w http.ResponseWriter, r *http.Request, s *services.PairingSession) {
		respondWithSuccess(w, r, http.StatusOK, pairingView(s))
	})
}

// ClickLeftHandler handles POST /api/v1/pairings/{sessionId}/left/{field}
func (h *Handlers) ClickLeftHandler() http.HandlerFunc {
	return h.withPairing(func(w http.ResponseWriter, r *http.Request, s *services.PairingSession) {
		if _, err := s.ClickLeft(chi.URLParam(r, "field")); err != nil {
			h.respondWithFailure(w, r, err, "")
			return
		}
		respondWithSuccess(w, r, http.StatusOK, pairingView(s))
	})
}

// ClickRightHandler handles POST /api/v1/pairings/{sessionId}/right/{field}
func (h *Handlers) ClickRightHandler() http.HandlerFunc {
	return h.withPairing(func(w http.ResponseWriter, r *http.Request, s *services.PairingSession) {
		if _, err := s.ClickRight(chi.URLParam(r, "field")); err != nil {
			h.respondWithFailure(w, r, err, "")
			return
		}
		respondWithSuccess(w, r, http.StatusOK, pairingView(s))
	})
}

// ConfirmPairingHandler handles POST /api/v1/pairings/{sessionId}/confirm
func (h *Handlers) ConfirmPairingHandler() http.HandlerFunc {
	return h.withPairing(func(w http.ResponseWriter, r *http.Request, s *services.PairingSession) {
		if _, err := s.Confirm(); err != nil {
			h.failAndAdvise(w, r, err, "")
			return
		}
		respondWithSuccess(w, r, http.StatusOK, pairingView(s))
	})
}

// CancelPairingHandler handles POST /api/v1/pairings/{sessionId}/cancel
func (h *Handlers) CancelPairingHandler() http.HandlerFunc {
	return h.withPairing(func(w http.ResponseWriter, r *http.Request, s *services.PairingSession) {
		s.Cancel()
		respondWithSuccess(w, r, http.StatusOK, pairingView(s))
	})
}

// SavePairingHandler handles POST /api/v1/pairings/{sessionId}/save
func (h *Handlers) SavePairingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionId")

		wasPersisted := false
		if s, err := h.deps.Services.Pairings.Get(sessionID); err == nil {
			wasPersisted = s.Snapshot().MappingID != ""
		}

		mapping, err := h.deps.Services.Pairings.Save(r.Context(), sessionID)
		if err != nil {
			h.failAndAdvise(w, r, err, "")
			return
		}

		h.track(*mapping)
		msg := constants.MsgMappingCreated
		status := http.StatusCreated
		if wasPersisted {
			msg = constants.MsgMappingUpdated
			status = http.StatusOK
		}
		h.deps.Services.Advisories.Success(msg)
		respondWithMessage(w, r, status, msg, mapping)
	}
}

func (h *Handlers) withPairing(fn func(http.ResponseWriter, *http.Request, *services.PairingSession)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := h.deps.Services.Pairings.Get(chi.URLParam(r, "sessionId"))
		if err != nil {
			h.respondWithFailure(w, r, err, "")
			return
		}
		fn(w, r, session)
	}
}

// ClosePairingHandler handles DELETE /api/v1/pairings/{sessionId}
func (h *Handlers) ClosePairingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.deps.Services.Pairings.Close(chi.URLParam(r, "sessionId"))
		w.WriteHeader(http.StatusNoContent)
	}
}
