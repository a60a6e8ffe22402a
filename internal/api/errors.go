package api

import (
	"errors"
	"net/http"

	"infinite-experiment/reconboard/internal/constants"
	"infinite-experiment/reconboard/internal/providers"
	"infinite-experiment/reconboard/internal/services"
)

// errorStatus maps a failure to the HTTP status and message shown to the
// dashboard. notFoundMsg replaces the backend's text for 404s when set.
func errorStatus(err error, notFoundMsg string) (int, string) {
	var pe *providers.ProviderError
	asProvider := errors.As(err, &pe)

	switch {
	case providers.IsCredentialMissing(err), providers.IsAuthFailure(err):
		return http.StatusUnauthorized, pe.Message
	case providers.IsMalformed(err):
		return http.StatusBadRequest, pe.Message
	case providers.IsNotFound(err):
		if notFoundMsg != "" {
			return http.StatusNotFound, notFoundMsg
		}
		return http.StatusNotFound, pe.Message
	case errors.Is(err, services.ErrEmptyFieldMap),
		errors.Is(err, services.ErrNothingArmed),
		errors.Is(err, services.ErrUnknownField):
		return http.StatusBadRequest, rootMessage(err)
	case errors.Is(err, services.ErrUnknownView),
		errors.Is(err, services.ErrUnknownSession),
		errors.Is(err, services.ErrUnknownMapping):
		return http.StatusNotFound, rootMessage(err)
	case errors.Is(err, services.ErrViewClosed):
		return http.StatusGone, rootMessage(err)
	case asProvider && pe.Code == constants.ErrCodeInvalidDataFormat:
		return http.StatusBadRequest, pe.Message
	}
	return http.StatusBadGateway, err.Error()
}

// rootMessage strips the wrapping added on the way up so sentinel errors are
// shown verbatim.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		services.ErrEmptyFieldMap,
		services.ErrNothingArmed,
		services.ErrUnknownField,
		services.ErrUnknownView,
		services.ErrUnknownSession,
		services.ErrUnknownMapping,
		services.ErrViewClosed,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func (h *Handlers) respondWithFailure(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	status, msg := errorStatus(err, notFoundMsg)
	respondWithError(w, r, status, msg)
}

// failAndAdvise responds with err and also posts it as the current advisory.
func (h *Handlers) failAndAdvise(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	status, msg := errorStatus(err, notFoundMsg)
	h.deps.Services.Advisories.Error(msg)
	respondWithError(w, r, status, msg)
}
