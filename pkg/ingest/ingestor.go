package ingest

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vulntor/fpintake/pkg/component"
	"github.com/vulntor/fpintake/pkg/inspect"
)

// Store persists a normalized document as one fingerprint.
type Store interface {
	CreateFingerprint(ctx context.Context, doc component.Document) (string, error)
}

// Ingestor runs one submission through inspection, normalization and
// persistence.
type Ingestor struct {
	store      Store
	normalizer Normalizer
	logger     zerolog.Logger
}

// NewIngestor creates an Ingestor writing to store.
func NewIngestor(store Store, normalizer Normalizer, logger zerolog.Logger) *Ingestor {
	return &Ingestor{
		store:      store,
		normalizer: normalizer,
		logger:     logger.With().Str("component", "ingest").Logger(),
	}
}

// Ingest stores body as a new fingerprint and returns its id. Errors are
// ErrInvalidJSON, *ValidationError (strict mode only) or the persistence
// failure as reported by the store.
func (i *Ingestor) Ingest(ctx context.Context, body []byte, req inspect.Request) (string, error) {
	header := inspect.Inspect(req)

	doc, err := i.normalizer.Normalize(body, header)
	if err != nil {
		i.logger.Debug().Err(err).Msg("rejected submission")
		return "", err
	}

	id, err := i.store.CreateFingerprint(ctx, doc)
	if err != nil {
		i.logger.Error().Err(err).Msg("persist fingerprint failed")
		return "", err
	}

	i.logger.Debug().
		Str("fingerprint_id", id).
		Int("unusual_headers", len(header.UnusualHeaders)).
		Msg("fingerprint stored")
	return id, nil
}
