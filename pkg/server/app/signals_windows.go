//go:build windows

package app

import "context"

// listenSignals is a no-op; Windows has no SIGHUP.
func (a *App) listenSignals(ctx context.Context) {}
