package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vidtube/vidtube/internal/common"
)

// envelope is the uniform response body: {"success": ..., "data": ...,
// "message": ...}. Data is omitted for errors and plain acknowledgements.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// the status line is already out; an encode failure here is unrecoverable
	_ = json.NewEncoder(w).Encode(body)
}

func respondData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data, Message: message})
}

func respondError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFromError(err), envelope{Success: false, Message: messageFromError(err)})
}

// statusFromError maps service-layer sentinel errors onto HTTP status
// codes. Anything unmatched is an internal error; its text is never
// exposed to the client.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict
	case errors.Is(err, common.ErrorUploadFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func messageFromError(err error) string {
	if statusFromError(err) == http.StatusInternalServerError {
		return common.ErrorInternal.Error()
	}
	return err.Error()
}
