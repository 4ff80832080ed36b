package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "github.com/mattn/go-sqlite3"

	"github.com/mvp-joe/schema-sync/internal/graph"
	"github.com/mvp-joe/schema-sync/internal/schema"
)

const diagramsTable = "diagrams"

var diagramColumns = []string{
	"id", "name", "description", "dbml_text", "ast", "nodes", "edges",
	"errors", "status", "created_at", "updated_at",
}

// SQLStore keeps diagrams in a SQL database (SQLite or PostgreSQL).
// Structured fields are JSON text columns.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	builder sq.StatementBuilderType
	now     func() time.Time
}

// OpenSQLStore connects to dsn, verifies the connection and creates the
// schema if needed.
func OpenSQLStore(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	driver, err := dialect.driverName()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	switch dialect {
	case DialectSQLite:
		// One writer; also keeps ":memory:" databases on a single connection.
		db.SetMaxOpenConns(1)
	case DialectPostgres:
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s: %w", dialect, err)
	}

	store, err := NewSQLStore(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an open database and creates the schema if needed.
func NewSQLStore(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLStore, error) {
	if _, err := dialect.driverName(); err != nil {
		return nil, err
	}
	if err := CreateSchema(ctx, db); err != nil {
		return nil, err
	}

	var placeholder sq.PlaceholderFormat = sq.Question
	if dialect == DialectPostgres {
		placeholder = sq.Dollar
	}

	return &SQLStore{
		db:      db,
		dialect: dialect,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Create inserts a new diagram with a generated id.
func (s *SQLStore) Create(ctx context.Context, in NewDiagram) (*Diagram, error) {
	now := s.now()
	d := &Diagram{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		DBMLText:    in.DBMLText,
		Nodes:       []graph.Node{},
		Edges:       []graph.Edge{},
		Errors:      []schema.ParseError{},
		Status:      schema.StatusIdle,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	cols, err := encodeColumns(d)
	if err != nil {
		return nil, err
	}

	_, err = s.builder.Insert(diagramsTable).
		Columns(diagramColumns...).
		Values(
			d.ID, d.Name, d.Description, d.DBMLText,
			cols.ast, cols.nodes, cols.edges, cols.errors,
			string(d.Status), formatTime(d.CreatedAt), formatTime(d.UpdatedAt),
		).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("insert diagram: %w", err)
	}
	return d, nil
}

// Get returns the diagram with id or ErrNotFound.
func (s *SQLStore) Get(ctx context.Context, id string) (*Diagram, error) {
	row := s.builder.Select(diagramColumns...).
		From(diagramsTable).
		Where(sq.Eq{"id": id}).
		RunWith(s.db).
		QueryRowContext(ctx)
	return scanDiagram(row, id)
}

// List returns every diagram, most recently updated first.
func (s *SQLStore) List(ctx context.Context) ([]*Diagram, error) {
	rows, err := s.builder.Select(diagramColumns...).
		From(diagramsTable).
		OrderBy("updated_at DESC", "id").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list diagrams: %w", err)
	}
	defer rows.Close()

	diagrams := []*Diagram{}
	for rows.Next() {
		d, err := scanDiagram(rows, "")
		if err != nil {
			return nil, err
		}
		diagrams = append(diagrams, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list diagrams: %w", err)
	}
	return diagrams, nil
}

// Sync applies a partial update inside a transaction and returns the result.
func (s *SQLStore) Sync(ctx context.Context, id string, payload SyncPayload) (*Diagram, error) {
	if payload.Status != nil && !payload.Status.Valid() {
		return nil, fmt.Errorf("invalid status %q", *payload.Status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin sync: %w", err)
	}
	defer tx.Rollback()

	query := s.builder.Select(diagramColumns...).
		From(diagramsTable).
		Where(sq.Eq{"id": id})
	if s.dialect == DialectPostgres {
		query = query.Suffix("FOR UPDATE")
	}
	d, err := scanDiagram(query.RunWith(tx).QueryRowContext(ctx), id)
	if err != nil {
		return nil, err
	}

	payload.Apply(d)
	d.UpdatedAt = s.now()

	cols, err := encodeColumns(d)
	if err != nil {
		return nil, err
	}
	_, err = s.builder.Update(diagramsTable).
		SetMap(map[string]any{
			"name":        d.Name,
			"description": d.Description,
			"dbml_text":   d.DBMLText,
			"ast":         cols.ast,
			"nodes":       cols.nodes,
			"edges":       cols.edges,
			"errors":      cols.errors,
			"status":      string(d.Status),
			"updated_at":  formatTime(d.UpdatedAt),
		}).
		Where(sq.Eq{"id": id}).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("update diagram %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sync: %w", err)
	}
	return d, nil
}

// Delete removes a diagram.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.builder.Delete(diagramsTable).
		Where(sq.Eq{"id": id}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("delete diagram %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete diagram %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("diagram %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanDiagram(row sq.RowScanner, id string) (*Diagram, error) {
	var (
		d                    Diagram
		cols                 jsonColumns
		status               string
		createdAt, updatedAt string
	)
	err := row.Scan(
		&d.ID, &d.Name, &d.Description, &d.DBMLText,
		&cols.ast, &cols.nodes, &cols.edges, &cols.errors,
		&status, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("diagram %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan diagram: %w", err)
	}

	if err := cols.decodeInto(&d); err != nil {
		return nil, fmt.Errorf("diagram %s: %w", d.ID, err)
	}
	d.Status = schema.Status(status)
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("diagram %s created_at: %w", d.ID, err)
	}
	if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("diagram %s updated_at: %w", d.ID, err)
	}
	return &d, nil
}

// timeLayout is fixed width so text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
