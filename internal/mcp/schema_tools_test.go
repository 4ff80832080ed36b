package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/schema-sync/internal/graph"
	"github.com/mvp-joe/schema-sync/internal/schema"
)

// Test Plan for schema tools:
// - schema_validate accepts an AST object, an AST JSON string, or nodes/edges
// - schema_validate reports validation errors in the result, not as tool errors
// - schema_validate without input and with a dangling edge is a tool error
// - schema_project keeps supplied positions and falls back to the grid
// - schema_reduce rebuilds relationships from edges
// - schema_inspect returns the full report, or one table, or an unknown table error

func blogAST() *schema.SchemaAST {
	return &schema.SchemaAST{
		Tables: []schema.TableNode{
			{ID: "table_1", Name: "users", Columns: []schema.Column{
				{Name: "id", Type: "int", PrimaryKey: true},
			}},
			{ID: "table_2", Name: "posts", Columns: []schema.Column{
				{Name: "id", Type: "int", PrimaryKey: true},
				{Name: "user_id", Type: "int", ForeignKey: &schema.ForeignKeyReference{Table: "users", Column: "id"}},
			}},
		},
		Relationships: []schema.RelationshipEdge{
			{ID: "rel_1", FromTable: "posts", FromColumn: "user_id", ToTable: "users", ToColumn: "id", Type: schema.OneToMany},
		},
	}
}

// asArgument round-trips v through JSON the way an MCP client sends it.
func asArgument(t *testing.T, v interface{}) interface{} {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var out interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func callTool(t *testing.T, handler ToolHandler, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	result, err := handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	})
	require.NoError(t, err, "should not return system error")
	require.NotNil(t, result, "should return result")
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	textContent, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "should be text content")
	return textContent.Text
}

func decodeResult(t *testing.T, result *mcp.CallToolResult, target interface{}) {
	t.Helper()
	assert.False(t, result.IsError, "should not be error result: %s", resultText(t, result))
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), target))
}

func TestSchemaValidateHandler(t *testing.T) {
	t.Parallel()

	ast := blogAST()
	nodes, edges, err := graph.Project(ast, nil)
	require.NoError(t, err)

	astJSON, err := json.Marshal(ast)
	require.NoError(t, err)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{name: "ast object", args: map[string]interface{}{"ast": asArgument(t, ast)}},
		{name: "ast string", args: map[string]interface{}{"ast": string(astJSON)}},
		{name: "nodes and edges", args: map[string]interface{}{
			"nodes": asArgument(t, nodes),
			"edges": asArgument(t, edges),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got schema.ValidationResult
			decodeResult(t, callTool(t, createSchemaValidateHandler(), tt.args), &got)
			assert.True(t, got.Valid)
			assert.Empty(t, got.Errors)
		})
	}
}

func TestSchemaValidateHandler_ReportsErrors(t *testing.T) {
	t.Parallel()

	ast := blogAST()
	ast.Relationships[0].ToTable = "accounts"

	var got schema.ValidationResult
	decodeResult(t, callTool(t, createSchemaValidateHandler(), map[string]interface{}{
		"ast": asArgument(t, ast),
	}), &got)

	assert.False(t, got.Valid)
	require.NotEmpty(t, got.Errors)
	assert.Equal(t, schema.CodeInvalidRelationshipTable, got.Errors[0].Code)
}

func TestSchemaValidateHandler_ToolErrors(t *testing.T) {
	t.Parallel()

	ast := blogAST()
	nodes, edges, err := graph.Project(ast, nil)
	require.NoError(t, err)
	edges[0].Target = "table_9"

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{name: "no input", args: map[string]interface{}{}, want: "ast or nodes parameter is required"},
		{name: "bad ast string", args: map[string]interface{}{"ast": "{tables"}, want: "Invalid arguments"},
		{name: "dangling edge", args: map[string]interface{}{
			"nodes": asArgument(t, nodes),
			"edges": asArgument(t, edges),
		}, want: "failed to convert diagram"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := callTool(t, createSchemaValidateHandler(), tt.args)
			assert.True(t, result.IsError, "should be error result")
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

func TestSchemaValidateHandler_InvalidArgumentsFormat(t *testing.T) {
	t.Parallel()

	result, err := createSchemaValidateHandler()(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: "not a map"},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "invalid arguments format")
}

func TestSchemaProjectHandler(t *testing.T) {
	t.Parallel()

	var got SchemaProjectResponse
	decodeResult(t, callTool(t, createSchemaProjectHandler(), map[string]interface{}{
		"ast":       asArgument(t, blogAST()),
		"positions": map[string]interface{}{"table_2": map[string]interface{}{"x": 10, "y": 20}},
	}), &got)

	require.Len(t, got.Nodes, 2)
	assert.Equal(t, graph.GridPosition(0), got.Nodes[0].Position)
	assert.Equal(t, schema.Position{X: 10, Y: 20}, got.Nodes[1].Position)
	assert.Equal(t, "posts", got.Nodes[1].Data.Label)

	require.Len(t, got.Edges, 1)
	assert.Equal(t, "table_2", got.Edges[0].Source)
	assert.Equal(t, "table_1", got.Edges[0].Target)
	assert.Equal(t, graph.SourceHandle("user_id"), got.Edges[0].SourceHandle)
}

func TestSchemaProjectHandler_Errors(t *testing.T) {
	t.Parallel()

	broken := blogAST()
	broken.Relationships[0].FromTable = "comments"

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{name: "missing ast", args: map[string]interface{}{}, want: "ast parameter is required"},
		{name: "unknown table", args: map[string]interface{}{"ast": asArgument(t, broken)}, want: "unknown table"},
		{name: "bad positions", args: map[string]interface{}{
			"ast":       asArgument(t, blogAST()),
			"positions": `["not", "a", "map"]`,
		}, want: "invalid positions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := callTool(t, createSchemaProjectHandler(), tt.args)
			assert.True(t, result.IsError, "should be error result")
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

func TestSchemaReduceHandler(t *testing.T) {
	t.Parallel()

	nodes, edges, err := graph.Project(blogAST(), nil)
	require.NoError(t, err)
	nodes[0].Data.Label = "accounts"

	var got SchemaReduceResponse
	decodeResult(t, callTool(t, createSchemaReduceHandler(), map[string]interface{}{
		"nodes": asArgument(t, nodes),
		"edges": asArgument(t, edges),
	}), &got)

	require.NotNil(t, got.AST)
	require.Len(t, got.AST.Tables, 2)
	assert.Equal(t, "accounts", got.AST.Tables[0].Name)
	require.Len(t, got.AST.Relationships, 1)
	assert.Equal(t, "accounts", got.AST.Relationships[0].ToTable)
	assert.Equal(t, "user_id", got.AST.Relationships[0].FromColumn)
	assert.True(t, got.Validation.Valid)
}

func TestSchemaReduceHandler_MissingNodes(t *testing.T) {
	t.Parallel()

	result := callTool(t, createSchemaReduceHandler(), map[string]interface{}{"edges": []interface{}{}})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "nodes parameter is required")
}

func TestSchemaInspectHandler(t *testing.T) {
	t.Parallel()

	t.Run("full report", func(t *testing.T) {
		t.Parallel()

		var got schema.Report
		decodeResult(t, callTool(t, createSchemaInspectHandler(), map[string]interface{}{
			"ast": asArgument(t, blogAST()),
		}), &got)

		assert.Equal(t, 2, got.Tables)
		assert.Equal(t, []string{"users", "posts"}, got.Order)
		assert.Equal(t, []string{"posts"}, got.ReferencedBy["users"])
	})

	t.Run("one table", func(t *testing.T) {
		t.Parallel()

		var got TableReport
		decodeResult(t, callTool(t, createSchemaInspectHandler(), map[string]interface{}{
			"ast":   asArgument(t, blogAST()),
			"table": "posts",
		}), &got)

		assert.Equal(t, "posts", got.Table)
		assert.Equal(t, 1, got.Position)
		assert.Empty(t, got.ReferencedBy)
		assert.False(t, got.SelfReferencing)
	})

	t.Run("unknown table", func(t *testing.T) {
		t.Parallel()

		result := callTool(t, createSchemaInspectHandler(), map[string]interface{}{
			"ast":   asArgument(t, blogAST()),
			"table": "comments",
		})
		assert.True(t, result.IsError)
		assert.Contains(t, resultText(t, result), "unknown table: comments")
	})
}
