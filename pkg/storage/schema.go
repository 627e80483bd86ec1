package storage

import (
	"fmt"
	"strings"

	"github.com/vulntor/fpintake/pkg/component"
)

const (
	schemaVersion    = 1
	fingerprintTable = "fingerprints"
)

// linkColumn is the fingerprint column referencing a component row.
func linkColumn(c *component.Component) string {
	return c.Key + "_id"
}

func columnType(d Dialect, f component.Field) string {
	switch f.Kind {
	case component.KindInt:
		return d.IntegerType()
	case component.KindFloat:
		return d.FloatType()
	case component.KindString:
		return d.StringType(f.MaxLen)
	case component.KindBool:
		return d.BoolType()
	case component.KindList, component.KindObject:
		return d.JSONType()
	default:
		return d.TextType()
	}
}

// schemaStatements returns the DDL for the version table, every component
// table and the fingerprint table, in dependency order.
func schemaStatements(d Dialect) []string {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at %s NOT NULL
)`, d.TimestampType()),
	}

	reg := component.Registry()
	for _, c := range reg {
		cols := []string{"\t" + quoteIdent("id") + " " + d.AutoIncrement()}
		for _, f := range c.Fields {
			cols = append(cols, fmt.Sprintf("\t%s %s", quoteIdent(f.Name), columnType(d, f)))
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)",
			quoteIdent(c.Table), strings.Join(cols, ",\n")))
	}

	cols := []string{
		"\t" + quoteIdent("id") + " VARCHAR(36) PRIMARY KEY",
		fmt.Sprintf("\t%s %s NOT NULL", quoteIdent("created_at"), d.TimestampType()),
	}
	for _, c := range reg {
		cols = append(cols, fmt.Sprintf("\t%s %s UNIQUE REFERENCES %s(%s)",
			quoteIdent(linkColumn(c)), d.IntegerType(), quoteIdent(c.Table), quoteIdent("id")))
	}
	stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)",
		quoteIdent(fingerprintTable), strings.Join(cols, ",\n")))

	stmts = append(stmts, fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS idx_fingerprints_created_at ON %s (%s)",
		quoteIdent(fingerprintTable), quoteIdent("created_at")))

	return stmts
}

func insertComponentQuery(d Dialect, c *component.Component) string {
	cols := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		cols[i] = quoteIdent(f.Name)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) %s",
		quoteIdent(c.Table), strings.Join(cols, ", "),
		PlaceholderSet(d, len(cols), 1), d.ReturningClause("id"))
}

func insertFingerprintQuery(d Dialect, reg []*component.Component) string {
	cols := []string{quoteIdent("id"), quoteIdent("created_at")}
	for _, c := range reg {
		cols = append(cols, quoteIdent(linkColumn(c)))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(fingerprintTable), strings.Join(cols, ", "),
		PlaceholderSet(d, len(cols), 1))
}

func selectFingerprintQuery(d Dialect, reg []*component.Component) string {
	cols := []string{quoteIdent("created_at")}
	for _, c := range reg {
		cols = append(cols, quoteIdent(linkColumn(c)))
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		strings.Join(cols, ", "), quoteIdent(fingerprintTable), quoteIdent("id"), d.Placeholder(1))
}

func selectComponentQuery(d Dialect, c *component.Component) string {
	cols := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		cols[i] = quoteIdent(f.Name)
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		strings.Join(cols, ", "), quoteIdent(c.Table), quoteIdent("id"), d.Placeholder(1))
}

func recordVersionQuery(d Dialect) string {
	return fmt.Sprintf("INSERT INTO schema_version (version, applied_at) VALUES (%s) ON CONFLICT (version) DO NOTHING",
		PlaceholderSet(d, 2, 1))
}
