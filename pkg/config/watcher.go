package config

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads the configuration when its file changes and hands the
// new configuration to a callback.
//
// Only settings read per request or applied by the callback (such as the
// log level) take effect without a restart.
type Watcher struct {
	manager  *Manager
	path     string
	onChange func(Config)

	watcher       *fsnotify.Watcher
	debounceDelay time.Duration
	logger        zerolog.Logger

	mu            sync.Mutex
	debounceTimer *time.Timer
}

// NewWatcher creates a watcher for the manager's config file.
func NewWatcher(manager *Manager, onChange func(Config), logger zerolog.Logger) (*Watcher, error) {
	path := manager.ConfigFile()
	if path == "" {
		return nil, errors.New("no config file to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		manager:       manager,
		path:          path,
		onChange:      onChange,
		watcher:       watcher,
		debounceDelay: 100 * time.Millisecond,
		logger:        logger.With().Str("component", "config.watcher").Logger(),
	}, nil
}

// Start watches the config file until ctx is canceled. Run it in its own
// goroutine. Rapid successive writes are coalesced into one reload.
func (w *Watcher) Start(ctx context.Context) error {
	// Editors replace files on save; watch the directory, not the file.
	dir := filepath.Dir(w.path)
	name := filepath.Base(w.path)

	if err := w.watcher.Add(dir); err != nil {
		w.logger.Error().Err(err).Str("dir", dir).Msg("Failed to watch config directory")
		return err
	}

	w.logger.Info().Str("file", w.path).Msg("Watching config file")

	defer func() {
		w.mu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.mu.Unlock()
		if err := w.watcher.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("Error closing watcher")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.logger.Debug().Str("op", event.Op.String()).Msg("Config file changed")
				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("File watcher error")
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		cfg, err := w.manager.Reload()
		if err != nil {
			w.logger.Error().Err(err).Msg("Failed to reload config; keeping previous values")
			return
		}
		w.logger.Info().Msg("Config reloaded")
		if w.onChange != nil {
			w.onChange(cfg)
		}
	})
}

// Close releases the watcher without waiting for Start to return.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
