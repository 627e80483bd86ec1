package v1

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vulntor/fpintake/pkg/ingest"
	"github.com/vulntor/fpintake/pkg/inspect"
	"github.com/vulntor/fpintake/pkg/server/api"
)

// CreateFingerprintHandler handles POST /api/v1/fingerprints.
//
// The body is a browser fingerprint document. The HTTP header component is
// derived from the request itself and replaces whatever the client sent.
//
// Response:
//
//	{"status": "ok", "fingerprint_id": "0190..."}
//
// Returns 405 for other methods, 400 for malformed documents, 413 for
// oversized bodies, 500 when persistence fails and 504 on timeout.
func CreateFingerprintHandler(ingestor api.Ingestor, config api.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With().
			Str("component", "api.fingerprints").
			Str("op", "create").
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		start := time.Now()
		var statusCode int
		defer func() {
			logger.Debug().
				Int("status", statusCode).
				Dur("duration_ms", time.Since(start)).
				Msg("request completed")
		}()

		if r.Method != http.MethodPost {
			statusCode = http.StatusMethodNotAllowed
			w.Header().Set("Allow", http.MethodPost)
			api.WriteJSON(w, statusCode, api.ErrorResponse{Error: "Invalid method"})
			return
		}

		// Apply handler-level timeout (only if request context doesn't have deadline)
		ctx := r.Context()
		if _, hasDeadline := ctx.Deadline(); !hasDeadline && config.HandlerTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, config.HandlerTimeout)
			defer cancel()
		}

		if config.MaxBodyBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, config.MaxBodyBytes)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				statusCode = http.StatusRequestEntityTooLarge
				api.WriteJSON(w, statusCode, api.ErrorResponse{Error: "Request body too large"})
				return
			}
			statusCode = http.StatusBadRequest
			logger.Warn().Err(err).Msg("failed to read request body")
			api.WriteJSON(w, statusCode, api.ErrorResponse{Error: "Invalid JSON"})
			return
		}

		id, err := ingestor.Ingest(ctx, body, inspect.FromHTTP(r))
		if err != nil {
			statusCode = writeIngestError(w, ctx, err, config)
			if statusCode >= http.StatusInternalServerError {
				logger.Error().Err(err).Int("status", statusCode).Msg("ingestion failed")
			}
			return
		}

		statusCode = http.StatusOK
		api.WriteJSON(w, statusCode, api.IngestResponse{Status: "ok", FingerprintID: id})
	}
}

func writeIngestError(w http.ResponseWriter, ctx context.Context, err error, config api.Config) int {
	var verr *ingest.ValidationError
	switch {
	case errors.Is(err, ingest.ErrInvalidJSON):
		api.WriteJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "Invalid JSON"})
		return http.StatusBadRequest

	case errors.As(err, &verr):
		fields := make([]string, len(verr.Fields))
		for i, f := range verr.Fields {
			fields[i] = f.Component + "." + f.Field
		}
		api.WriteJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: verr.Error(), Fields: fields})
		return http.StatusBadRequest

	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		api.WriteJSONError(w, http.StatusGatewayTimeout, "Gateway Timeout",
			"operation timed out after "+config.HandlerTimeout.String())
		return http.StatusGatewayTimeout

	default:
		api.WriteJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
		return http.StatusInternalServerError
	}
}

// GetFingerprintHandler handles GET /api/v1/fingerprints/{id}.
//
// Query parameters:
//   - format: "nested" (default) or "flat"
//
// Returns 400 for an unknown format and 404 when the id is unknown.
func GetFingerprintHandler(fingerprints api.Fingerprints, config api.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		query, err := ParseGetFingerprintQuery(r)
		if err != nil {
			api.WriteJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}

		ctx := r.Context()
		if _, hasDeadline := ctx.Deadline(); !hasDeadline && config.HandlerTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, config.HandlerTimeout)
			defer cancel()
		}

		load := fingerprints.Nested
		if query.Format == FormatFlat {
			load = fingerprints.Flat
		}

		out, err := load(ctx, id)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				api.WriteJSONError(w, http.StatusGatewayTimeout, "Gateway Timeout",
					"operation timed out after "+config.HandlerTimeout.String())
				return
			}
			api.WriteError(w, r, err)
			return
		}

		api.WriteJSON(w, http.StatusOK, out)
	}
}
