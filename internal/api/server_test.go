package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/schema-sync/internal/graph"
	"github.com/mvp-joe/schema-sync/internal/schema"
	"github.com/mvp-joe/schema-sync/internal/storage"
)

// Test Plan for Server:
// - POST creates a diagram (201), a blank name is rejected (400)
// - GET /:id returns the diagram, unknown ids return 404 with code in the envelope
// - PUT applies a partial sync, an invalid status is rejected (400)
// - GET lists diagrams, DELETE removes them
// - GET /default returns the starter document, which validates
// - POST /validate validates an AST, or reduces and validates a diagram
// - CORS headers are sent for allowed origins

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, opts Options) (*Server, storage.Store) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return NewServer(store, opts), store
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

// decodeData re-decodes the envelope data into out.
func decodeData(t *testing.T, resp Response, out any) {
	t.Helper()
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func TestServer_CreateGetSyncDelete(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, Options{})
	h := srv.Handler()

	rec, resp := doJSON(t, h, http.MethodPost, "/api/core/diagrams", storage.NewDiagram{Name: "blog", DBMLText: DefaultDBML})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, resp.Status)

	var created storage.Diagram
	decodeData(t, resp, &created)
	require.NotEmpty(t, created.ID)

	rec, resp = doJSON(t, h, http.MethodGet, "/api/core/diagrams/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got storage.Diagram
	decodeData(t, resp, &got)
	assert.Equal(t, "blog", got.Name)
	assert.Equal(t, DefaultDBML, got.DBMLText)

	nodes, edges, err := graph.Project(DefaultAST(), nil)
	require.NoError(t, err)
	rec, resp = doJSON(t, h, http.MethodPut, "/api/core/diagrams/"+created.ID, map[string]any{
		"name":  "renamed",
		"ast":   DefaultAST(),
		"nodes": nodes,
		"edges": edges,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, resp, &got)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, DefaultDBML, got.DBMLText)
	assert.Len(t, got.Nodes, 2)
	assert.Len(t, got.Edges, 1)

	rec, resp = doJSON(t, h, http.MethodGet, "/api/core/diagrams", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []storage.Diagram
	decodeData(t, resp, &list)
	assert.Len(t, list, 1)

	rec, _ = doJSON(t, h, http.MethodDelete, "/api/core/diagrams/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = doJSON(t, h, http.MethodGet, "/api/core/diagrams/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Status)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.NotEmpty(t, resp.Error)
}

func TestServer_BadRequests(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t, Options{})
	h := srv.Handler()

	created, err := store.Create(t.Context(), storage.NewDiagram{Name: "blog"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"blank name", http.MethodPost, "/api/core/diagrams", storage.NewDiagram{Name: "  "}, http.StatusBadRequest},
		{"invalid status", http.MethodPut, "/api/core/diagrams/" + created.ID, map[string]any{"status": "sleeping"}, http.StatusBadRequest},
		{"sync unknown", http.MethodPut, "/api/core/diagrams/missing", map[string]any{}, http.StatusNotFound},
		{"delete unknown", http.MethodDelete, "/api/core/diagrams/missing", nil, http.StatusNotFound},
		{"validate empty", http.MethodPost, "/api/core/validate", map[string]any{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := doJSON(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code)
			assert.False(t, resp.Status)
			assert.Equal(t, tt.want, resp.Code)
		})
	}
}

func TestServer_Default(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, Options{})
	rec, resp := doJSON(t, srv.Handler(), http.MethodGet, "/api/core/diagrams/default", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var d DefaultDiagram
	decodeData(t, resp, &d)
	assert.Equal(t, DefaultDBML, d.DBMLText)
	assert.True(t, schema.Validate(d.AST).Valid)
}

func TestServer_Validate(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, Options{})
	h := srv.Handler()

	t.Run("valid ast", func(t *testing.T) {
		rec, resp := doJSON(t, h, http.MethodPost, "/api/core/validate", ValidateRequest{AST: DefaultAST()})
		require.Equal(t, http.StatusOK, rec.Code)
		var result schema.ValidationResult
		decodeData(t, resp, &result)
		assert.True(t, result.Valid)
	})

	t.Run("duplicate table", func(t *testing.T) {
		ast := DefaultAST()
		ast.Tables[1].Name = "users"
		ast.Relationships = nil
		ast.Tables[1].Columns[1].ForeignKey = nil

		_, resp := doJSON(t, h, http.MethodPost, "/api/core/validate", ValidateRequest{AST: ast})
		var result schema.ValidationResult
		decodeData(t, resp, &result)
		assert.False(t, result.Valid)
		assert.Contains(t, result.Codes(), schema.CodeDuplicateTable)
	})

	t.Run("diagram edit", func(t *testing.T) {
		nodes, edges, err := graph.Project(DefaultAST(), nil)
		require.NoError(t, err)
		nodes[0].Data.Schema = nil

		_, resp := doJSON(t, h, http.MethodPost, "/api/core/validate", ValidateRequest{Nodes: nodes, Edges: edges[:0]})
		var result schema.ValidationResult
		decodeData(t, resp, &result)
		assert.False(t, result.Valid)
		assert.Contains(t, result.Codes(), schema.CodeEmptyTable)
	})

	t.Run("dangling edge", func(t *testing.T) {
		nodes, edges, err := graph.Project(DefaultAST(), nil)
		require.NoError(t, err)
		edges[0].Source = "table_99"

		rec, resp := doJSON(t, h, http.MethodPost, "/api/core/validate", ValidateRequest{Nodes: nodes, Edges: edges})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.False(t, resp.Status)
	})
}

func TestServer_CORS(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, Options{CORSOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodGet, "/api/core/diagrams", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/core/diagrams", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
