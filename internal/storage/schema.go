package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// driverName maps a dialect to its database/sql driver.
func (d Dialect) driverName() (string, error) {
	switch d {
	case DialectSQLite:
		return "sqlite3", nil
	case DialectPostgres:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported storage driver %q", d)
	}
}

// Timestamps are stored as RFC 3339 text so both dialects share one schema.
const createDiagramsTable = `
CREATE TABLE IF NOT EXISTS diagrams (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	dbml_text   TEXT NOT NULL DEFAULT '',
	ast         TEXT NOT NULL DEFAULT 'null',
	nodes       TEXT NOT NULL DEFAULT '[]',
	edges       TEXT NOT NULL DEFAULT '[]',
	errors      TEXT NOT NULL DEFAULT '[]',
	status      TEXT NOT NULL DEFAULT 'idle',
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
)`

const createDiagramsUpdatedIndex = `
CREATE INDEX IF NOT EXISTS idx_diagrams_updated_at ON diagrams (updated_at)`

// CreateSchema creates the diagrams table and its indexes. It is idempotent.
// Uses a transaction so schema creation succeeds or fails as a whole.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	statements := []struct {
		name string
		ddl  string
	}{
		{"diagrams table", createDiagramsTable},
		{"updated_at index", createDiagramsUpdatedIndex},
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt.ddl); err != nil {
			return fmt.Errorf("failed to create %s: %w", stmt.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}
