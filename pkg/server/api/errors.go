package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/vulntor/fpintake/pkg/storage"
)

// ErrorResponse represents a standard JSON error response.
//
// Example:
//
//	{
//	  "error": "Not Found",
//	  "message": "fingerprint not found: 0190..."
//	}
type ErrorResponse struct {
	Error   string   `json:"error"`             // Short error type or, for ingestion, the failure message
	Message string   `json:"message,omitempty"` // Detailed error message (optional)
	Fields  []string `json:"fields,omitempty"`  // Rejected "component.field" names (strict ingestion)
}

// WriteError writes a standard JSON error response to the client.
// It determines the HTTP status code based on error type:
//   - storage.NotFoundError → 404 Not Found
//   - All other errors → 500 Internal Server Error
//
// It also logs the error with structured logging for observability.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := http.StatusInternalServerError
	errorType := "Internal Server Error"
	if storage.IsNotFound(err) {
		statusCode = http.StatusNotFound
		errorType = "Not Found"
	}

	logEvent := log.Error().
		Str("component", "api").
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", statusCode).
		Err(err)

	if statusCode == http.StatusNotFound {
		logEvent.Msg("Resource not found")
	} else {
		logEvent.Msg("Request failed")
	}

	WriteJSON(w, statusCode, ErrorResponse{
		Error:   errorType,
		Message: err.Error(),
	})
}

// WriteJSONError writes a custom JSON error response with a specific status code.
//
// Example:
//
//	WriteJSONError(w, http.StatusBadRequest, "Bad Request", "format must be nested or flat")
func WriteJSONError(w http.ResponseWriter, statusCode int, errorType, message string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   errorType,
		Message: message,
	})
}

// WriteJSON writes a JSON response to the client.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().
			Str("component", "api").
			Err(err).
			Msg("Failed to encode JSON response")
	}
}
