package api

import (
	"encoding/json"
	"net/http"

	"github.com/vytor/estimatic/internal/errors"
	"github.com/vytor/estimatic/internal/logger"
)

// handleError centralizes error handling for HTTP responses
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	// Check if it's already an AppError
	appErr, ok := err.(*errors.AppError)
	if !ok {
		// Wrap unknown errors as internal errors
		appErr = errors.NewInternalError(err)
	}

	// Log based on status code
	if appErr.Status >= 500 {
		log.Error("server error: %v", appErr)
	} else if appErr.Status >= 400 {
		log.Warn("client error: %v", appErr)
	} else {
		log.Debug("error: %v", appErr)
	}

	body := map[string]any{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	json.NewEncoder(w).Encode(map[string]any{"error": body})
}
