package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"

	"github.com/vulntor/fpintake/pkg/component"
)

// Fingerprint is a stored fingerprint with all of its components.
type Fingerprint struct {
	ID         string
	CreatedAt  time.Time
	Components component.Document
}

// Backend persists and loads fingerprints.
type Backend interface {
	// Initialize creates the schema if it does not exist.
	Initialize(ctx context.Context) error

	// CreateFingerprint stores the 20 components of doc and a fingerprint
	// linking them in one transaction, returning the new fingerprint id.
	CreateFingerprint(ctx context.Context, doc component.Document) (string, error)

	// GetFingerprint loads a fingerprint by id.
	GetFingerprint(ctx context.Context, id string) (*Fingerprint, error)

	// Close releases the database and any file lock.
	Close() error
}

// SQLStore implements Backend over database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	logger  zerolog.Logger

	// release runs after the database is closed.
	release func() error

	mu     sync.RWMutex
	closed bool
}

var _ Backend = (*SQLStore)(nil)

// NewSQLStore wraps an open database. The store owns db and closes it.
func NewSQLStore(db *sql.DB, dialect Dialect, logger zerolog.Logger) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: dialect,
		logger:  logger.With().Str("component", "storage").Str("dialect", dialect.Name()).Logger(),
	}
}

// Dialect returns the store's SQL dialect.
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

func (s *SQLStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Initialize creates all tables inside one transaction.
func (s *SQLStore) Initialize(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range schemaStatements(s.dialect) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, recordVersionQuery(s.dialect), schemaVersion, time.Now().UTC()); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}

	s.logger.Debug().Int("version", schemaVersion).Msg("Schema initialized")
	return nil
}

// CreateFingerprint inserts every component in registry order, then the
// fingerprint row. Any failure rolls back the whole write set.
func (s *SQLStore) CreateFingerprint(ctx context.Context, doc component.Document) (string, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate fingerprint id: %w", err)
	}
	reg := component.Registry()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	links := make([]any, 0, len(reg)+2)
	links = append(links, id.String(), time.Now().UTC())

	for _, c := range reg {
		args, err := encodeRecord(c, doc[c.Key])
		if err != nil {
			return "", err
		}

		var rowID int64
		if err := tx.QueryRowContext(ctx, insertComponentQuery(s.dialect, c), args...).Scan(&rowID); err != nil {
			return "", fmt.Errorf("insert %s: %w", c.Key, err)
		}
		links = append(links, rowID)
	}

	if _, err := tx.ExecContext(ctx, insertFingerprintQuery(s.dialect, reg), links...); err != nil {
		return "", fmt.Errorf("insert fingerprint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit fingerprint: %w", err)
	}

	s.logger.Debug().Str("fingerprint_id", id.String()).Msg("Fingerprint stored")
	return id.String(), nil
}

// GetFingerprint reads the fingerprint row and each linked component.
// A missing link yields the component's empty record.
func (s *SQLStore) GetFingerprint(ctx context.Context, id string) (*Fingerprint, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	reg := component.Registry()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var createdAt time.Time
	links := make([]sql.NullInt64, len(reg))
	dest := make([]any, 0, len(reg)+1)
	dest = append(dest, &createdAt)
	for i := range links {
		dest = append(dest, &links[i])
	}

	err = tx.QueryRowContext(ctx, selectFingerprintQuery(s.dialect, reg), id).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewNotFoundError("fingerprint", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load fingerprint: %w", err)
	}

	fp := &Fingerprint{
		ID:         id,
		CreatedAt:  createdAt.UTC(),
		Components: component.NewDocument(),
	}
	for i, c := range reg {
		if !links[i].Valid {
			fp.Components[c.Key] = c.Empty()
			continue
		}
		values, err := s.loadComponent(ctx, tx, c, links[i].Int64)
		if err != nil {
			return nil, err
		}
		fp.Components[c.Key] = values
	}
	return fp, nil
}

func (s *SQLStore) loadComponent(ctx context.Context, tx *sql.Tx, c *component.Component, rowID int64) (component.Values, error) {
	raw := make([]any, len(c.Fields))
	dest := make([]any, len(c.Fields))
	for i := range raw {
		dest[i] = &raw[i]
	}

	if err := tx.QueryRowContext(ctx, selectComponentQuery(s.dialect, c), rowID).Scan(dest...); err != nil {
		return nil, fmt.Errorf("load %s %d: %w", c.Key, rowID, err)
	}

	values := make(component.Values, len(c.Fields))
	for i, f := range c.Fields {
		v, err := decodeValue(f, raw[i])
		if err != nil {
			return nil, fmt.Errorf("decode %s.%s: %w", c.Key, f.Name, err)
		}
		values[f.Name] = v
	}
	return values, nil
}

// Close closes the database. A second Close returns ErrClosed.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true

	err := s.db.Close()
	if s.release != nil {
		err = errors.Join(err, s.release())
	}
	return err
}

// encodeRecord coerces values into column arguments in field order.
func encodeRecord(c *component.Component, values component.Values) ([]any, error) {
	args := make([]any, len(c.Fields))
	for i, f := range c.Fields {
		v, err := f.Coerce(values[f.Name])
		if err != nil {
			var fe *component.FieldError
			if errors.As(err, &fe) {
				return nil, NewInvalidInputError(fe.Component+"."+fe.Field, fe.Reason)
			}
			return nil, err
		}
		if v != nil && f.Kind.IsJSON() {
			b, err := json.Marshal(v)
			if err != nil {
				return nil, NewInvalidInputError(c.Key+"."+f.Name, err.Error())
			}
			v = string(b)
		}
		args[i] = v
	}
	return args, nil
}

// decodeValue converts a scanned column into the field's Go value.
func decodeValue(f component.Field, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}

	switch f.Kind {
	case component.KindInt:
		return cast.ToInt64E(raw)
	case component.KindFloat:
		return cast.ToFloat64E(raw)
	case component.KindBool:
		return cast.ToBoolE(raw)
	case component.KindList, component.KindObject:
		s, err := cast.ToStringE(raw)
		if err != nil {
			return nil, err
		}
		var out any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return cast.ToStringE(raw)
	}
}
