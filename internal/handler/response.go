package handler

// RESPONSE HELPERS:
// Every JSON endpoint goes through writeJSON / writeError so the API has one
// body shape for success and one for failure:
//
//	{"error": "not_found", "message": "ranked user not found with id 42"}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/social-analytics/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable, e.g. "not_found"
	Message string `json:"message"` // human-readable
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; logging is all that's left.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and sends it.
//
// ERROR MAPPING:
//
//	ErrValidation   → 400 validation_error
//	ErrNotFound     → 404 not_found
//	ErrEmptyResult  → 404 empty_result
//	ErrAuth         → 502 upstream_auth_error  (the evaluation API refused us)
//	ErrNetwork      → 502 upstream_error
//	anything else   → 500 internal_error, message hidden
//
// The upstream failures are 502 rather than 401/5xx-of-our-own because the
// caller of this API did nothing wrong; the service behind us did.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// Never expose raw error text; it can contain SQL or file paths.
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status := http.StatusInternalServerError
	errorType := "internal_error"

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
		errorType = "validation_error"
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
		errorType = "not_found"
	case errors.Is(err, apperror.ErrEmptyResult):
		status = http.StatusNotFound
		errorType = "empty_result"
	case errors.Is(err, apperror.ErrAuth):
		status = http.StatusBadGateway
		errorType = "upstream_auth_error"
	case errors.Is(err, apperror.ErrNetwork):
		status = http.StatusBadGateway
		errorType = "upstream_error"
	}

	writeJSON(w, status, ErrorResponse{
		Error:   errorType,
		Message: appErr.Message,
	})
}
