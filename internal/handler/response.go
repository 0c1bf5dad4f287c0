// Package handler implements the HTTP layer: request decoding, response
// encoding, and the mapping from application errors to wire errors.
//
// Error bodies are field-keyed arrays of messages, e.g.
//
//	{"username": ["A user with that username already exists."]}
//	{"non_field_errors": ["Invalid credentials"]}
//
// which is the shape the frontend already consumes.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/auth-backend/internal/apperror"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// errorBody keys the message by the offending field, or "non_field_errors"
// when the error is not tied to a single input.
func errorBody(field, message string) map[string][]string {
	if field == "" {
		field = "non_field_errors"
	}
	return map[string][]string{field: {message}}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("unhandled error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("", "Internal server error"))
		return
	}

	status := http.StatusBadRequest
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperror.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, apperror.ErrNetwork):
		// Provider unreachable is our failure to proxy, not the client's.
		logger.Error("provider unreachable", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("", "Authentication service unavailable"))
		return
	}

	writeJSON(w, status, errorBody(appErr.Field, appErr.Message))
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperror.ValidationFailed("", "Invalid JSON body")
	}
	return nil
}
