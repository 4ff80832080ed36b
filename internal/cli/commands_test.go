package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/schema-sync/internal/api"
	"github.com/mvp-joe/schema-sync/internal/config"
	"github.com/mvp-joe/schema-sync/internal/schema"
	"github.com/mvp-joe/schema-sync/internal/storage"
	"github.com/mvp-joe/schema-sync/internal/workspace"
)

// Test Plan for CLI commands:
// - printValidation lists each error with code and location, or a valid summary
// - printReport shows creation order, referencing tables, self references and cycles
// - initWorkspace writes a loadable default config and keeps an existing one
// - openBackend selects file, sql and http stores and rejects unknown kinds
// - resolveDiagram reuses a diagram by id (files) or name (others), else creates it
// - pickSchemaFile takes an explicit file or the single discovered one
// - printVersion prints text lines or structured output

func sampleAST(t *testing.T) *schema.SchemaAST {
	t.Helper()
	var ast schema.SchemaAST
	require.NoError(t, decodeDocument([]byte(astYAML), &ast))
	return &ast
}

func TestPrintValidation(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		ast := sampleAST(t)
		var out bytes.Buffer
		require.NoError(t, printValidation(&out, formatText, ast, schema.Validate(ast)))
		assert.Equal(t, "Schema is valid (2 tables, 1 relationships)\n", out.String())
	})

	t.Run("invalid", func(t *testing.T) {
		t.Parallel()

		ast := sampleAST(t)
		ast.Relationships[0].FromColumn = "author_id"
		result := schema.Validate(ast)
		require.False(t, result.Valid)

		var out bytes.Buffer
		require.NoError(t, printValidation(&out, formatText, ast, result))
		assert.Contains(t, out.String(), "Schema has 1 validation error(s):")
		assert.Contains(t, out.String(), "[INVALID_RELATIONSHIP_COLUMN] posts.author_id: Column author_id does not exist in table posts")
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		ast := sampleAST(t)
		var out bytes.Buffer
		require.NoError(t, printValidation(&out, formatJSON, ast, schema.Validate(ast)))
		assert.JSONEq(t, `{"valid": true, "errors": []}`, out.String())
	})
}

func TestPrintReport(t *testing.T) {
	t.Parallel()

	ast := sampleAST(t)
	ast.Tables = append(ast.Tables, schema.TableNode{ID: "table_3", Name: "categories", Columns: []schema.Column{
		{Name: "id", Type: "int"},
		{Name: "parent_id", Type: "int"},
	}})
	ast.Relationships = append(ast.Relationships, schema.RelationshipEdge{
		ID: "rel_2", FromTable: "categories", FromColumn: "parent_id", ToTable: "categories", ToColumn: "id", Type: schema.OneToMany,
	})

	report, err := schema.Inspect(ast)
	require.NoError(t, err)

	var out bytes.Buffer
	printReport(&out, report)
	text := out.String()

	assert.Contains(t, text, "Tables: 3  Relationships: 2")
	assert.Contains(t, text, "   1. users  <- posts")
	assert.Contains(t, text, "   2. posts\n")
	assert.Contains(t, text, "Self-referencing:\n  categories\n")
	assert.NotContains(t, text, "Reference cycles")
}

func TestInitWorkspace(t *testing.T) {
	t.Parallel()

	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)

	written, err := initWorkspace(ws, false)
	require.NoError(t, err)
	assert.True(t, written)
	assert.DirExists(t, ws.DiagramsDir())
	assert.DirExists(t, ws.LocksDir())

	cfg, err := config.LoadConfigFromDir(ws.Root())
	require.NoError(t, err)
	assert.Equal(t, config.Default().Server, cfg.Server)
	assert.Equal(t, config.Default().Watch, cfg.Watch)

	require.NoError(t, os.WriteFile(ws.ConfigPath(), []byte("server:\n  port: 9000\n"), 0644))
	written, err = initWorkspace(ws, false)
	require.NoError(t, err)
	assert.False(t, written)

	cfg, err = config.LoadConfigFromDir(ws.Root())
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)

	written, err = initWorkspace(ws, true)
	require.NoError(t, err)
	assert.True(t, written)
}

func TestOpenBackend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		kind  string
		check func(t *testing.T, store storage.Store)
	}{
		{kind: "file", check: func(t *testing.T, store storage.Store) {
			assert.IsType(t, &storage.FileStore{}, store)
		}},
		{kind: "sql", check: func(t *testing.T, store storage.Store) {
			assert.IsType(t, &storage.SQLStore{}, store)
		}},
		{kind: "http", check: func(t *testing.T, store storage.Store) {
			assert.IsType(t, &api.Client{}, store)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			t.Parallel()

			ws, err := workspace.New(t.TempDir())
			require.NoError(t, err)
			cfg := config.Default()
			cfg.Backend.Kind = tt.kind

			store, err := openBackend(ctx, ws, cfg)
			require.NoError(t, err)
			defer store.Close()
			tt.check(t, store)
		})
	}

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()

		ws, err := workspace.New(t.TempDir())
		require.NoError(t, err)
		cfg := config.Default()
		cfg.Backend.Kind = "ftp"

		_, err = openBackend(ctx, ws, cfg)
		assert.ErrorIs(t, err, config.ErrInvalidBackend)
	})
}

func TestOpenSQLStore_DefaultsToWorkspaceDatabase(t *testing.T) {
	t.Parallel()

	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)

	store, err := openSQLStore(context.Background(), ws, config.Default())
	require.NoError(t, err)
	defer store.Close()

	assert.FileExists(t, ws.DatabasePath())
}

func TestResolveDiagram(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("file store uses the derived id", func(t *testing.T) {
		t.Parallel()

		store, err := storage.NewFileStore(t.TempDir())
		require.NoError(t, err)

		id, err := resolveDiagram(ctx, store, "db__schema", "db/schema.dbml")
		require.NoError(t, err)
		assert.Equal(t, "db__schema", id)

		d, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "db/schema.dbml", d.Name)
		assert.Equal(t, schema.StatusIdle, d.Status)

		again, err := resolveDiagram(ctx, store, "db__schema", "db/schema.dbml")
		require.NoError(t, err)
		assert.Equal(t, id, again)
	})

	t.Run("other stores match by name", func(t *testing.T) {
		t.Parallel()

		store, err := storage.OpenSQLStore(ctx, storage.DialectSQLite, ":memory:")
		require.NoError(t, err)
		defer store.Close()

		id, err := resolveDiagram(ctx, store, "db__schema", "db/schema.dbml")
		require.NoError(t, err)
		assert.NotEqual(t, "db__schema", id)

		again, err := resolveDiagram(ctx, store, "db__schema", "db/schema.dbml")
		require.NoError(t, err)
		assert.Equal(t, id, again)

		list, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestPickSchemaFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit file", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		path := writeFile(t, root, "custom/schema.txt", "Table a {}")
		ws, err := workspace.New(root)
		require.NoError(t, err)

		got, err := pickSchemaFile(ws, config.Default(), path)
		require.NoError(t, err)
		assert.Equal(t, path, got)

		_, err = pickSchemaFile(ws, config.Default(), filepath.Join(root, "missing.dbml"))
		assert.Error(t, err)
	})

	t.Run("single discovered file", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		path := writeFile(t, root, "db/schema.dbml", "Table a {}")
		writeFile(t, root, "node_modules/pkg/other.dbml", "Table b {}")
		ws, err := workspace.New(root)
		require.NoError(t, err)

		got, err := pickSchemaFile(ws, config.Default(), "")
		require.NoError(t, err)
		assert.Equal(t, path, got)
	})

	t.Run("none or several", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		ws, err := workspace.New(root)
		require.NoError(t, err)

		_, err = pickSchemaFile(ws, config.Default(), "")
		assert.ErrorContains(t, err, "no schema files")

		writeFile(t, root, "a.dbml", "")
		writeFile(t, root, "b/b.dbml", "")
		_, err = pickSchemaFile(ws, config.Default(), "")
		assert.ErrorContains(t, err, "several schema files found")
	})
}

func TestPrintVersion(t *testing.T) {
	t.Parallel()

	info := buildInfo{Version: "1.2.3", GitCommit: "abc123", BuildDate: "2024-05-01", GoVersion: "go1.25.0"}

	var text bytes.Buffer
	require.NoError(t, printVersion(&text, formatText, info))
	assert.Equal(t, "schemasync 1.2.3\nGit commit: abc123\nBuild date: 2024-05-01\nGo: go1.25.0\n", text.String())

	var out bytes.Buffer
	require.NoError(t, printVersion(&out, formatJSON, info))
	assert.JSONEq(t, `{"version":"1.2.3","gitCommit":"abc123","buildDate":"2024-05-01","goVersion":"go1.25.0"}`, out.String())
}
