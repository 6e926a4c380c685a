// Package handlers exposes the HTTP API: dataset ingestion, SQL
// connections, unified querying, and report delivery.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/tessellate-ai/analyst-engine/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteServiceError maps a service-layer error onto an HTTP status. Internal
// errors are logged but never echoed to the client verbatim.
func WriteServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case apperrors.IsValidation(err):
		_ = ErrorResponse(w, http.StatusBadRequest, "validation_error", err.Error())
	case apperrors.IsSecurity(err):
		_ = ErrorResponse(w, http.StatusBadRequest, "security_error", err.Error())
	case errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrConnectionNotFound),
		errors.Is(err, apperrors.ErrDatasetNotProcessed):
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, apperrors.ErrNoDataSources):
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", err.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// decodeJSON parses a request body into dst, rejecting unknown garbage with
// a useful message.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid JSON body: %v", err)
	}
	return nil
}

// userIDOf pulls the user identifier from a query parameter, defaulting to
// the anonymous single-tenant user.
func userIDOf(r *http.Request) string {
	if id := r.URL.Query().Get("user_id"); id != "" {
		return id
	}
	return "default"
}

// orAnonymous normalizes a user id taken from a request body.
func orAnonymous(id string) string {
	if id == "" {
		return "default"
	}
	return id
}
