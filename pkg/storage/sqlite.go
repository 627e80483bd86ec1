package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite"

// OpenSQLite opens the SQLite database at cfg.Path. File databases are
// guarded by an advisory lock next to the file; a second process gets
// ErrLocked.
func OpenSQLite(ctx context.Context, cfg *Config, logger zerolog.Logger) (*SQLStore, error) {
	if cfg.Path == MemoryPath {
		db, err := sql.Open("sqlite", MemoryPath+"?_pragma=foreign_keys(1)&_time_format=sqlite")
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		// A second connection would see a different in-memory database.
		db.SetMaxOpenConns(1)
		return NewSQLStore(db, &SQLiteDialect{}, logger), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	lock := flock.New(cfg.Path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", cfg.Path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", cfg.Path, ErrLocked)
	}

	db, err := sql.Open("sqlite", cfg.Path+"?"+sqlitePragmas)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Path, err)
	}

	store := NewSQLStore(db, &SQLiteDialect{}, logger)
	store.release = lock.Unlock
	store.logger.Info().Str("path", cfg.Path).Msg("Opened SQLite database")
	return store, nil
}
