package api

import (
	"context"
	"sync/atomic"

	"github.com/vulntor/fpintake/pkg/inspect"
)

// Deps holds dependencies for API handlers.
// This pattern enables dependency injection and easier testing.
type Deps struct {
	// Ingestor stores submitted fingerprint documents.
	Ingestor Ingestor

	// Fingerprints renders stored fingerprints.
	Fingerprints Fingerprints

	// Ready flag for readiness check
	Ready *atomic.Bool

	// Config carries per-request limits.
	Config Config
}

// Ingestor is the subset of ingest.Ingestor the API needs.
type Ingestor interface {
	Ingest(ctx context.Context, body []byte, req inspect.Request) (string, error)
}

// Fingerprints is the subset of retrieval.Service the API needs.
type Fingerprints interface {
	Nested(ctx context.Context, id string) (map[string]any, error)
	Flat(ctx context.Context, id string) (map[string]any, error)
}

// IngestResponse is the body of a successful ingestion.
type IngestResponse struct {
	Status        string `json:"status"`
	FingerprintID string `json:"fingerprint_id"`
}
