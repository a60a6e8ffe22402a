package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"infinite-experiment/reconboard/internal/constants"
	"infinite-experiment/reconboard/internal/logging"
	"infinite-experiment/reconboard/internal/models/dtos/responses"
)

const contentTypeMsgpack = "application/msgpack"

// wantsMsgpack reports whether the client asked for msgpack instead of JSON.
func wantsMsgpack(r *http.Request) bool {
	if r == nil {
		return false
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, contentTypeMsgpack) || strings.Contains(accept, "application/x-msgpack")
}

func writeEnvelope[T any](w http.ResponseWriter, r *http.Request, statusCode int, resp responses.APIResponse[T]) {
	if wantsMsgpack(r) {
		body, err := msgpack.Marshal(resp)
		if err == nil {
			w.Header().Set("Content-Type", contentTypeMsgpack)
			w.WriteHeader(statusCode)
			_, _ = w.Write(body)
			return
		}
		logging.Warn("msgpack encoding failed, falling back to JSON", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

func respondWithSuccess[T any](w http.ResponseWriter, r *http.Request, statusCode int, data *T) {
	writeEnvelope(w, r, statusCode, responses.APIResponse[T]{
		Status:    string(constants.APIStatusSuccess),
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}

func respondWithMessage[T any](w http.ResponseWriter, r *http.Request, statusCode int, message string, data *T) {
	writeEnvelope(w, r, statusCode, responses.APIResponse[T]{
		Status:    string(constants.APIStatusSuccess),
		Timestamp: time.Now().UTC(),
		Message:   message,
		Data:      data,
	})
}

func respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	writeEnvelope(w, r, statusCode, responses.APIResponse[any]{
		Status:    string(constants.APIStatusError),
		Timestamp: time.Now().UTC(),
		Error:     message,
	})
}

// writeJSON writes v without the response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
