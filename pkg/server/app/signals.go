//go:build !windows

package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vulntor/fpintake/pkg/logging"
)

// listenSignals reloads the configuration on SIGHUP and reopens the log
// file on SIGUSR1 until ctx is done. Signals are subscribed before it
// returns.
func (a *App) listenSignals(ctx context.Context) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGUSR1)
	go a.handleSignals(ctx, signals)
}

func (a *App) handleSignals(ctx context.Context, signals chan os.Signal) {
	defer signal.Stop(signals)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			switch sig {
			case syscall.SIGHUP:
				a.Deps.Logger.Info().Msg("Reloading configuration")
				a.reload()
			case syscall.SIGUSR1:
				a.Deps.Logger.Info().Msg("Closing and re-opening log file for rotation")
				if err := logging.Rotate(); err != nil {
					a.Deps.Logger.Error().Err(err).Msg("Log rotation failed")
				}
			}
		}
	}
}
