package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Factory creates a Backend for a validated configuration.
type Factory func(ctx context.Context, cfg *Config, logger zerolog.Logger) (Backend, error)

// DefaultFactory is the backend factory used by NewBackend. Tests replace it
// to inject a fake backend.
var DefaultFactory Factory = openDriver

// NewBackend validates cfg, opens the backend for its driver and creates
// the schema.
//
// Example:
//
//	cfg := storage.DefaultConfig()
//	backend, err := storage.NewBackend(ctx, &cfg, logger)
//	if err != nil {
//	    return err
//	}
//	defer backend.Close()
func NewBackend(ctx context.Context, cfg *Config, logger zerolog.Logger) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid storage configuration: %w", err)
	}

	if DefaultFactory == nil {
		return nil, fmt.Errorf("no storage backend factory registered")
	}

	backend, err := DefaultFactory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}

	if err := backend.Initialize(ctx); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to initialize storage backend: %w", err)
	}

	return backend, nil
}

func openDriver(ctx context.Context, cfg *Config, logger zerolog.Logger) (Backend, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return OpenSQLite(ctx, cfg, logger)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("driver %q: %w", cfg.Driver, ErrNotSupported)
	}
}
