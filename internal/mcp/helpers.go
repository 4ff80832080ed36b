package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mvp-joe/schema-sync/internal/graph"
	mcputils "github.com/mvp-joe/schema-sync/internal/mcp-utils"
	"github.com/mvp-joe/schema-sync/internal/schema"
)

// ToolHandler is the signature mcp-go expects for tool handlers.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// bindArguments checks the argument format and binds it onto target. A
// non-nil result is the error to return to the client.
func bindArguments[T any](request mcp.CallToolRequest, target *T) *mcp.CallToolResult {
	if _, ok := request.GetRawArguments().(map[string]interface{}); !ok {
		return mcp.NewToolResultError("invalid arguments format")
	}
	if err := mcputils.CoerceBindArguments(request, target); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err))
	}
	return nil
}

// present reports whether a JSON argument was supplied.
func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func decodeAST(raw json.RawMessage) (*schema.SchemaAST, error) {
	var ast schema.SchemaAST
	if err := json.Unmarshal(raw, &ast); err != nil {
		return nil, fmt.Errorf("invalid ast: %w", err)
	}
	return &ast, nil
}

func decodeGraph(rawNodes, rawEdges json.RawMessage) ([]graph.Node, []graph.Edge, error) {
	var nodes []graph.Node
	if err := json.Unmarshal(rawNodes, &nodes); err != nil {
		return nil, nil, fmt.Errorf("invalid nodes: %w", err)
	}
	var edges []graph.Edge
	if present(rawEdges) {
		if err := json.Unmarshal(rawEdges, &edges); err != nil {
			return nil, nil, fmt.Errorf("invalid edges: %w", err)
		}
	}
	return nodes, edges, nil
}

// marshalToolResponse marshals a response object to JSON and returns it as an MCP tool result.
func marshalToolResponse(response interface{}) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
