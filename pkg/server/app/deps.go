package app

import (
	"github.com/rs/zerolog"

	"github.com/vulntor/fpintake/pkg/config"
	"github.com/vulntor/fpintake/pkg/storage"
)

// Deps holds dependencies for the server application.
// This pattern enables dependency injection and easier testing.
type Deps struct {
	// Storage backend for fingerprints. It must already be initialized
	// (storage.NewBackend does this). App closes it on shutdown.
	Storage storage.Backend

	// Config manager for runtime configuration. Optional; without it
	// SIGHUP reloads are ignored.
	Config *config.Manager

	// OnReload receives the configuration after a successful reload.
	OnReload func(config.Config)

	// Logger for structured logging (injected by caller)
	Logger zerolog.Logger
}
