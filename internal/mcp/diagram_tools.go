package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/schema-sync/internal/schema"
	"github.com/mvp-joe/schema-sync/internal/storage"
)

// DiagramSummary is one entry of the diagram_list response.
type DiagramSummary struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      schema.Status `json:"status"`
	Tables      int           `json:"tables"`
	Errors      int           `json:"errors"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// DiagramListResponse is the diagram_list response.
type DiagramListResponse struct {
	Diagrams []DiagramSummary `json:"diagrams"`
	Total    int              `json:"total"`
}

// DiagramGetRequest is the argument set of diagram_get.
type DiagramGetRequest struct {
	ID           string `json:"id"`
	IncludeGraph bool   `json:"include_graph"`
}

// AddDiagramListTool registers the diagram_list tool.
func AddDiagramListTool(s *server.MCPServer, store storage.Store) {
	tool := mcp.NewTool(
		"diagram_list",
		mcp.WithDescription("List saved schema diagrams, most recently updated first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createDiagramListHandler(store))
}

func createDiagramListHandler(store storage.Store) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		diagrams, err := store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list diagrams: %w", err)
		}

		resp := DiagramListResponse{
			Diagrams: make([]DiagramSummary, 0, len(diagrams)),
			Total:    len(diagrams),
		}
		for _, d := range diagrams {
			summary := DiagramSummary{
				ID:          d.ID,
				Name:        d.Name,
				Description: d.Description,
				Status:      d.Status,
				Tables:      len(d.Nodes),
				Errors:      len(d.Errors),
				UpdatedAt:   d.UpdatedAt,
			}
			if d.AST != nil {
				summary.Tables = len(d.AST.Tables)
			}
			resp.Diagrams = append(resp.Diagrams, summary)
		}
		return marshalToolResponse(resp)
	}
}

// AddDiagramGetTool registers the diagram_get tool.
func AddDiagramGetTool(s *server.MCPServer, store storage.Store) {
	tool := mcp.NewTool(
		"diagram_get",
		mcp.WithDescription("Fetch a saved diagram: its DBML text, parsed AST, parse errors and status. Set include_graph to also return the diagram nodes and edges."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Diagram id (from diagram_list)")),
		mcp.WithBoolean("include_graph",
			mcp.Description("Include diagram nodes and edges (default: false)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createDiagramGetHandler(store))
}

func createDiagramGetHandler(store storage.Store) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req DiagramGetRequest
		if res := bindArguments(request, &req); res != nil {
			return res, nil
		}
		if req.ID == "" {
			return mcp.NewToolResultError("id parameter is required"), nil
		}

		d, err := store.Get(ctx, req.ID)
		if errors.Is(err, storage.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("diagram not found: %s", req.ID)), nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get diagram %s: %w", req.ID, err)
		}

		if !req.IncludeGraph {
			d.Nodes = nil
			d.Edges = nil
		}
		return marshalToolResponse(d)
	}
}
