package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/schema-sync/internal/graph"
	"github.com/mvp-joe/schema-sync/internal/storage"
)

// Test Plan for diagram tools:
// - diagram_list summarizes every stored diagram
// - diagram_get returns the diagram, with nodes/edges only on request
// - diagram_get reports unknown ids and a missing id as tool errors
// - store failures surface as system errors

func seededStore(t *testing.T) (*storage.FileStore, *storage.Diagram) {
	t.Helper()

	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	created, err := store.Create(ctx, storage.NewDiagram{Name: "blog", DBMLText: "Table users {}"})
	require.NoError(t, err)

	ast := blogAST()
	nodes, edges, err := graph.Project(ast, nil)
	require.NoError(t, err)
	synced, err := store.Sync(ctx, created.ID, storage.SyncPayload{AST: ast, Nodes: nodes, Edges: edges})
	require.NoError(t, err)
	return store, synced
}

type failingStore struct {
	storage.Store
}

func (failingStore) List(context.Context) ([]*storage.Diagram, error) {
	return nil, errors.New("disk on fire")
}

func TestDiagramListHandler(t *testing.T) {
	t.Parallel()

	store, d := seededStore(t)

	var got DiagramListResponse
	decodeResult(t, callTool(t, createDiagramListHandler(store), map[string]interface{}{}), &got)

	assert.Equal(t, 1, got.Total)
	require.Len(t, got.Diagrams, 1)
	assert.Equal(t, d.ID, got.Diagrams[0].ID)
	assert.Equal(t, "blog", got.Diagrams[0].Name)
	assert.Equal(t, 2, got.Diagrams[0].Tables)
	assert.Zero(t, got.Diagrams[0].Errors)
}

func TestDiagramListHandler_StoreError(t *testing.T) {
	t.Parallel()

	_, err := createDiagramListHandler(failingStore{})(context.Background(), mcpRequest(nil))
	assert.Error(t, err)
}

func TestDiagramGetHandler(t *testing.T) {
	t.Parallel()

	store, d := seededStore(t)

	t.Run("without graph", func(t *testing.T) {
		t.Parallel()

		var got storage.Diagram
		decodeResult(t, callTool(t, createDiagramGetHandler(store), map[string]interface{}{"id": d.ID}), &got)
		assert.Equal(t, "Table users {}", got.DBMLText)
		require.NotNil(t, got.AST)
		assert.Len(t, got.AST.Tables, 2)
		assert.Empty(t, got.Nodes)
		assert.Empty(t, got.Edges)
	})

	t.Run("with graph", func(t *testing.T) {
		t.Parallel()

		var got storage.Diagram
		decodeResult(t, callTool(t, createDiagramGetHandler(store), map[string]interface{}{
			"id":            d.ID,
			"include_graph": "true",
		}), &got)
		assert.Len(t, got.Nodes, 2)
		assert.Len(t, got.Edges, 1)
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()

		result := callTool(t, createDiagramGetHandler(store), map[string]interface{}{"id": "missing"})
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "diagram not found: missing")
	})

	t.Run("missing id", func(t *testing.T) {
		t.Parallel()

		result := callTool(t, createDiagramGetHandler(store), map[string]interface{}{})
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "id parameter is required")
	})
}
