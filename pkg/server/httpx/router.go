package httpx

import (
	"net/http"

	"github.com/vulntor/fpintake/pkg/server/api"
	v1 "github.com/vulntor/fpintake/pkg/server/api/v1"
)

// NewRouter creates and configures the main HTTP router.
//
// The ingestion routes are registered without a method so the handler can
// answer other methods with its own JSON 405 body.
func NewRouter(deps *api.Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Health endpoints
	mux.HandleFunc("GET /healthz", HealthzHandler)
	mux.HandleFunc("GET /readyz", v1.ReadyzHandler(deps.Ready))

	create := v1.CreateFingerprintHandler(deps.Ingestor, deps.Config)
	mux.Handle("/api/v1/fingerprints", create)
	mux.Handle("/fingerprint/create/{$}", create)

	mux.Handle("GET /api/v1/fingerprints/{id}", v1.GetFingerprintHandler(deps.Fingerprints, deps.Config))

	return mux
}

// HealthzHandler responds with 200 OK if the server process is alive.
//
// It does not check storage; use /readyz for that.
func HealthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
