package storage

import (
	"fmt"
	"strings"
)

// Dialect abstracts the SQL differences between SQLite and PostgreSQL.
type Dialect interface {
	// Name returns the dialect name ("sqlite", "postgres").
	Name() string

	// Placeholder returns the parameter placeholder for a 1-based index.
	Placeholder(index int) string

	// AutoIncrement returns the column definition of a generated primary key.
	AutoIncrement() string

	// TimestampType returns the column type for timestamps.
	TimestampType() string

	// BoolType returns the column type for boolean values.
	BoolType() string

	IntegerType() string
	FloatType() string

	// StringType returns a bounded string column type.
	StringType(maxLen int) string

	TextType() string

	// JSONType returns the column type for list and object values.
	JSONType() string

	// ReturningClause returns "RETURNING col, ..." for inserts.
	ReturningClause(columns ...string) string
}

// SQLiteDialect implements Dialect for SQLite.
type SQLiteDialect struct{}

var _ Dialect = (*SQLiteDialect)(nil)

func (d *SQLiteDialect) Name() string { return DriverSQLite }

func (d *SQLiteDialect) Placeholder(int) string { return "?" }

func (d *SQLiteDialect) AutoIncrement() string {
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (d *SQLiteDialect) TimestampType() string { return "DATETIME" }

func (d *SQLiteDialect) BoolType() string { return "INTEGER" }

func (d *SQLiteDialect) IntegerType() string { return "INTEGER" }

func (d *SQLiteDialect) FloatType() string { return "REAL" }

// StringType is TEXT: SQLite does not enforce VARCHAR lengths.
func (d *SQLiteDialect) StringType(int) string { return "TEXT" }

func (d *SQLiteDialect) TextType() string { return "TEXT" }

func (d *SQLiteDialect) JSONType() string { return "TEXT" }

func (d *SQLiteDialect) ReturningClause(columns ...string) string {
	return returning(columns)
}

// PostgresDialect implements Dialect for PostgreSQL.
type PostgresDialect struct{}

var _ Dialect = (*PostgresDialect)(nil)

func (d *PostgresDialect) Name() string { return DriverPostgres }

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (d *PostgresDialect) AutoIncrement() string { return "BIGSERIAL PRIMARY KEY" }

func (d *PostgresDialect) TimestampType() string { return "TIMESTAMPTZ" }

func (d *PostgresDialect) BoolType() string { return "BOOLEAN" }

func (d *PostgresDialect) IntegerType() string { return "BIGINT" }

func (d *PostgresDialect) FloatType() string { return "DOUBLE PRECISION" }

func (d *PostgresDialect) StringType(maxLen int) string {
	if maxLen <= 0 {
		return "TEXT"
	}
	return fmt.Sprintf("VARCHAR(%d)", maxLen)
}

func (d *PostgresDialect) TextType() string { return "TEXT" }

func (d *PostgresDialect) JSONType() string { return "JSONB" }

func (d *PostgresDialect) ReturningClause(columns ...string) string {
	return returning(columns)
}

// DialectFor returns the dialect of a driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case DriverSQLite:
		return &SQLiteDialect{}, nil
	case DriverPostgres:
		return &PostgresDialect{}, nil
	default:
		return nil, fmt.Errorf("dialect %q: %w", driver, ErrNotSupported)
	}
}

// PlaceholderSet returns count comma-separated placeholders starting at start.
func PlaceholderSet(d Dialect, count, start int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = d.Placeholder(start + i)
	}
	return strings.Join(parts, ", ")
}

func returning(columns []string) string {
	if len(columns) == 0 {
		return ""
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	return "RETURNING " + strings.Join(quoted, ", ")
}

// quoteIdent quotes an identifier. Both dialects accept double quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
