package api

import (
	"encoding/json"
	"net/http"

	"github.com/rcliao/story-memory/internal/apperrors"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Code: code, Error: msg})
}

// writeServiceError maps an error code to an HTTP status.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), string(apperrors.CodeOf(err)), err.Error())
}

func statusFor(err error) int {
	switch {
	case apperrors.CodeOf(err) == apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.IsInput(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
