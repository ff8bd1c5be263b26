package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/renewalwatch/backend/internal/apperror"
)

// ErrorResponse represents a JSON error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// respondJSON writes a JSON response with the given status code.
// It sets the Content-Type header to application/json.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondError writes a JSON error response with the given status code and message.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondAppError writes a JSON error response from an error. AppErrors
// keep their status and field; anything else becomes a 500.
func respondAppError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		respondJSON(w, appErr.StatusCode, ErrorResponse{Error: appErr.Message, Field: appErr.Field})
		return
	}
	status := apperror.GetStatusCode(err)
	if status >= http.StatusInternalServerError {
		respondError(w, status, apperror.Internal(err).Message)
		return
	}
	respondJSON(w, status, ErrorResponse{Error: apperror.GetMessage(err)})
}

// parseLimit reads a positive limit query value, applying def when absent
// and clamping to max.
func parseLimit(raw string, def, max int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperror.ValidationError("limit", "limit must be a positive integer")
	}
	if n > max {
		n = max
	}
	return n, nil
}
