package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/mvp-joe/schema-sync/internal/api"
	"github.com/mvp-joe/schema-sync/internal/config"
	"github.com/mvp-joe/schema-sync/internal/schema"
	"github.com/mvp-joe/schema-sync/internal/storage"
	"github.com/mvp-joe/schema-sync/internal/workspace"
)

// openBackend opens the store selected by backend.kind.
func openBackend(ctx context.Context, ws *workspace.Workspace, cfg *config.Config) (storage.Store, error) {
	switch cfg.Backend.Kind {
	case "file":
		return storage.NewFileStore(ws.DiagramsDir())
	case "sql":
		return openSQLStore(ctx, ws, cfg)
	case "http":
		return api.NewClient(cfg.Backend.Endpoint, cfg.BackendTimeout()), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidBackend, cfg.Backend.Kind)
	}
}

// openSQLStore opens the database configured under storage. An empty
// SQLite DSN means the workspace database.
func openSQLStore(ctx context.Context, ws *workspace.Workspace, cfg *config.Config) (*storage.SQLStore, error) {
	dsn := cfg.Storage.DSN
	if dsn == "" && cfg.Storage.Driver == string(storage.DialectSQLite) {
		if err := ws.Init(); err != nil {
			return nil, err
		}
		dsn = ws.DatabasePath()
	}
	return storage.OpenSQLStore(ctx, storage.Dialect(cfg.Storage.Driver), dsn)
}

// resolveDiagram returns the id of the diagram that mirrors a schema file,
// creating it when missing. File stores use the derived id directly; other
// stores are searched by name, which holds the workspace-relative path.
func resolveDiagram(ctx context.Context, store storage.Store, id, name string) (string, error) {
	if files, ok := store.(*storage.FileStore); ok {
		_, err := files.Get(ctx, id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return "", err
		}
		return id, files.Put(ctx, &storage.Diagram{ID: id, Name: name, Status: schema.StatusIdle})
	}

	diagrams, err := store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list diagrams: %w", err)
	}
	for _, d := range diagrams {
		if d.Name == name {
			return d.ID, nil
		}
	}

	created, err := store.Create(ctx, storage.NewDiagram{Name: name})
	if err != nil {
		return "", fmt.Errorf("failed to create diagram for %s: %w", name, err)
	}
	return created.ID, nil
}
