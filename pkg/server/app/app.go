package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vulntor/fpintake/pkg/config"
	"github.com/vulntor/fpintake/pkg/ingest"
	"github.com/vulntor/fpintake/pkg/inspect"
	"github.com/vulntor/fpintake/pkg/logging"
	"github.com/vulntor/fpintake/pkg/retrieval"
	"github.com/vulntor/fpintake/pkg/server"
	"github.com/vulntor/fpintake/pkg/server/api"
	"github.com/vulntor/fpintake/pkg/server/httpx"
)

const shutdownTimeout = 30 * time.Second

// App orchestrates the server runtime components:
// - HTTP server (ingestion + retrieval API)
// - Recording listener (raw header order, TLS state)
// - Lifecycle management
type App struct {
	HTTP      *http.Server
	TLSConfig *tls.Config
	Ready     *atomic.Bool
	Config    config.Config
	Deps      *Deps
}

// New creates and configures a new server application.
func New(ctx context.Context, cfg config.Config, deps *Deps) (*App, error) {
	deps.Logger.Info().Msg("Initializing server application")

	if deps.Storage == nil {
		return nil, errors.New("storage backend is required")
	}
	if err := cfg.Server.Validate(); err != nil {
		return nil, err
	}

	apiCfg := api.Config{
		HandlerTimeout: cfg.Server.HandlerTimeout,
		MaxBodyBytes:   cfg.Ingest.MaxBodyBytes,
	}
	if err := apiCfg.Validate(); err != nil {
		return nil, err
	}

	ready := &atomic.Bool{}
	apiDeps := &api.Deps{
		Ingestor: ingest.NewIngestor(
			deps.Storage,
			ingest.Normalizer{Strict: cfg.Ingest.StrictTypes},
			deps.Logger,
		),
		Fingerprints: retrieval.NewService(deps.Storage, retrieval.WithCache(cfg.Retrieval.CacheTTL)),
		Ready:        ready,
		Config:       apiCfg,
	}

	var tlsConfig *tls.Config
	if cfg.Server.TLSEnabled() {
		cert, err := tls.LoadX509KeyPair(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		if err != nil {
			return nil, server.WrapTLSLoad(err)
		}
		tlsConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Addr, strconv.Itoa(cfg.Server.Port)),
		Handler:      httpx.Chain(httpx.NewRouter(apiDeps)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ConnContext:  inspect.ConnContext,
		ErrorLog:     logging.StdLogger(deps.Logger, zerolog.WarnLevel),
	}

	return &App{
		HTTP:      httpServer,
		TLSConfig: tlsConfig,
		Ready:     ready,
		Config:    cfg,
		Deps:      deps,
	}, nil
}

// Run listens on the configured address and serves until ctx is canceled.
// Storage is closed when Run returns.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.HTTP.Addr)
	if err != nil {
		_ = a.Deps.Storage.Close()
		return fmt.Errorf("listen %s: %w", a.HTTP.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled, then shuts down gracefully and
// closes storage. ln is wrapped so handlers see raw header order and, when
// TLS is configured, the negotiated TLS parameters.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	a.Deps.Logger.Info().
		Str("addr", ln.Addr().String()).
		Bool("tls", a.TLSConfig != nil).
		Bool("strict", a.Config.Ingest.StrictTypes).
		Msg("Starting fpintake server")

	serverErr := make(chan error, 1)
	go func() {
		if err := a.HTTP.Serve(inspect.NewListener(ln, a.TLSConfig)); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	sigCtx, stopSignals := context.WithCancel(ctx)
	defer stopSignals()
	a.listenSignals(sigCtx)

	a.Ready.Store(true)
	a.Deps.Logger.Info().Msg("Server is ready and accepting connections")

	select {
	case <-ctx.Done():
		a.Deps.Logger.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		a.Deps.Logger.Error().Err(err).Msg("Server error")
		a.Ready.Store(false)
		_ = a.Deps.Storage.Close()
		return err
	}

	return a.shutdown()
}

// reload re-reads the configuration and hands it to OnReload.
func (a *App) reload() {
	if a.Deps.Config == nil {
		return
	}
	cfg, err := a.Deps.Config.Reload()
	if err != nil {
		a.Deps.Logger.Error().Err(err).Msg("Config reload failed; keeping previous values")
		return
	}
	a.Deps.Logger.Info().Msg("Config reloaded")
	if a.Deps.OnReload != nil {
		a.Deps.OnReload(cfg)
	}
}

// shutdown performs graceful shutdown of all components.
func (a *App) shutdown() error {
	a.Deps.Logger.Info().Msg("Initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.Ready.Store(false)

	a.Deps.Logger.Info().Msg("Shutting down HTTP server...")
	httpErr := a.HTTP.Shutdown(shutdownCtx)
	if httpErr != nil {
		a.Deps.Logger.Error().Err(httpErr).Msg("HTTP server shutdown failed")
	} else {
		a.Deps.Logger.Info().Msg("HTTP server stopped")
	}

	// In-flight transactions have finished or been canceled by now.
	a.Deps.Logger.Info().Msg("Closing storage backend...")
	if err := a.Deps.Storage.Close(); err != nil {
		a.Deps.Logger.Error().Err(err).Msg("Storage close failed")
		return errors.Join(httpErr, err)
	}
	a.Deps.Logger.Info().Msg("Storage backend closed")

	if httpErr != nil {
		return httpErr
	}
	a.Deps.Logger.Info().Msg("Server shutdown complete")
	return nil
}
