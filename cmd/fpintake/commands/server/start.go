// Package server provides the Cobra command implementation for the fpintake
// server lifecycle. It wires CLI flags to the server runtime.
package server

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vulntor/fpintake/cmd/fpintake/internal/bind"
	"github.com/vulntor/fpintake/cmd/fpintake/internal/format"
	"github.com/vulntor/fpintake/pkg/appctx"
	"github.com/vulntor/fpintake/pkg/config"
	"github.com/vulntor/fpintake/pkg/logging"
	serversvc "github.com/vulntor/fpintake/pkg/server"
	"github.com/vulntor/fpintake/pkg/server/app"
	"github.com/vulntor/fpintake/pkg/storage"
)

const startOperation = "start server"

// newStartServerCommand creates and returns the 'fpintake server start' command.
//
// The server runs until interrupted (SIGINT/SIGTERM), then drains in-flight
// requests and closes storage. SIGHUP and edits to the config file reload
// the configuration; SIGUSR1 rotates the log file.
//
// Configuration is loaded from, in increasing precedence:
//   - Config file (--config)
//   - Environment variables (FPINTAKE_*)
//   - Flags (--addr, --port, --storage-path, ...)
//
// Example usage:
//
//	fpintake server start
//	fpintake server start --addr 0.0.0.0 --port 8080
//	fpintake server start --storage-driver postgres --storage-dsn postgres://...
func newStartServerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the fpintake server",
		Long: `Start the fpintake server process.

The server accepts fingerprint documents on POST /api/v1/fingerprints (and
the legacy /fingerprint/create/), stores every component atomically and
serves stored fingerprints on GET /api/v1/fingerprints/{id}.

The server runs until interrupted (Ctrl+C) or killed, performing graceful
shutdown to drain in-flight requests.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := format.FromCommand(cmd)

			if _, err := bind.BindServerOptions(cmd); err != nil {
				return format.Fail(formatter, startOperation, err, serversvc.ErrorCode(err))
			}

			cfgMgr, ok := appctx.Config(cmd.Context())
			if !ok {
				err := serversvc.ErrConfigUnavailable
				return format.Fail(formatter, startOperation, err, serversvc.ErrorCode(err))
			}
			cfg := cfgMgr.Get()

			if err := cfg.Server.Validate(); err != nil {
				wrapped := serversvc.WrapInvalidConfig(err)
				return format.Fail(formatter, startOperation, wrapped, serversvc.ErrorCode(wrapped))
			}

			logger := appctx.Logger(cmd.Context()).With().Str("component", "server").Logger()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			storageBackend, err := storage.NewBackend(ctx, &cfg.Storage, logger)
			if err != nil {
				wrapped := serversvc.WrapStorageInit(err)
				return format.Fail(formatter, startOperation, wrapped, serversvc.ErrorCode(wrapped))
			}

			onReload := func(c config.Config) {
				if err := logging.SetLevel(c.Log.Level); err != nil {
					logger.Warn().Err(err).Msg("Keeping previous log level")
				}
			}

			serverApp, err := app.New(ctx, cfg, &app.Deps{
				Storage:  storageBackend,
				Config:   cfgMgr,
				OnReload: onReload,
				Logger:   logger,
			})
			if err != nil {
				_ = storageBackend.Close()
				wrapped := serversvc.WrapAppInit(err)
				return format.Fail(formatter, startOperation, wrapped, serversvc.ErrorCode(wrapped))
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return serverApp.Run(gctx)
			})
			if cfgMgr.ConfigFile() != "" {
				g.Go(func() error {
					watchConfig(gctx, cfgMgr, onReload, logger)
					return nil
				})
			}

			if err := g.Wait(); err != nil {
				wrapped := serversvc.WrapRuntime(err)
				return format.Fail(formatter, startOperation, wrapped, serversvc.ErrorCode(wrapped))
			}
			return nil
		},
	}

	// Server-specific flags. Unset flags leave file and environment values alone.
	def := config.DefaultConfig()
	cmd.Flags().String("addr", def.Server.Addr, "Server listen address")
	cmd.Flags().Int("port", def.Server.Port, "Server listen port")
	cmd.Flags().String("tls-cert", "", "TLS certificate file (enables HTTPS with --tls-key)")
	cmd.Flags().String("tls-key", "", "TLS private key file")
	cmd.Flags().Duration("handler-timeout", def.Server.HandlerTimeout, "Per-request handler timeout")
	cmd.Flags().String("storage-driver", def.Storage.Driver, "Storage driver: sqlite | postgres")
	cmd.Flags().String("storage-path", def.Storage.Path, "SQLite database file")
	cmd.Flags().String("storage-dsn", "", "PostgreSQL connection string")
	cmd.Flags().Bool("strict", def.Ingest.StrictTypes, "Reject mistyped fields with 400")
	cmd.Flags().Int64("max-body-bytes", def.Ingest.MaxBodyBytes, "Maximum request body size in bytes")
	cmd.Flags().Duration("cache-ttl", def.Retrieval.CacheTTL, "Keep rendered fingerprints in memory this long (0 disables)")
	cmd.Flags().String("log-format", def.Log.Format, "Log format: text | json")
	cmd.Flags().String("log-file", "", "Write logs to a rotated file instead of stderr")

	return cmd
}

// watchConfig reloads the configuration whenever its file changes. Watch
// failures are logged; the server keeps running on the loaded values.
func watchConfig(ctx context.Context, mgr *config.Manager, onReload func(config.Config), logger zerolog.Logger) {
	w, err := config.NewWatcher(mgr, onReload, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Config watcher unavailable")
		return
	}
	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn().Err(err).Msg("Config watcher stopped")
	}
}
