package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/schema-sync/internal/graph"
	"github.com/mvp-joe/schema-sync/internal/schema"
)

// SchemaValidateRequest is the argument set of schema_validate. Nodes take
// precedence over AST when both are given.
type SchemaValidateRequest struct {
	AST   json.RawMessage `json:"ast"`
	Nodes json.RawMessage `json:"nodes"`
	Edges json.RawMessage `json:"edges"`
}

// SchemaProjectRequest is the argument set of schema_project.
type SchemaProjectRequest struct {
	AST       json.RawMessage `json:"ast"`
	Positions json.RawMessage `json:"positions"`
}

// SchemaProjectResponse holds the diagram projected from an AST.
type SchemaProjectResponse struct {
	Nodes []graph.Node `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
}

// SchemaReduceRequest is the argument set of schema_reduce.
type SchemaReduceRequest struct {
	Nodes json.RawMessage `json:"nodes"`
	Edges json.RawMessage `json:"edges"`
}

// SchemaReduceResponse holds the AST rebuilt from a diagram and its validation.
type SchemaReduceResponse struct {
	AST        *schema.SchemaAST       `json:"ast"`
	Validation schema.ValidationResult `json:"validation"`
}

// SchemaInspectRequest is the argument set of schema_inspect.
type SchemaInspectRequest struct {
	AST   json.RawMessage `json:"ast"`
	Table string          `json:"table"`
}

// TableReport narrows an inspection to one table.
type TableReport struct {
	Table           string   `json:"table"`
	ReferencedBy    []string `json:"referencedBy"`
	SelfReferencing bool     `json:"selfReferencing"`
	Position        int      `json:"position"`
}

// AddSchemaValidateTool registers the schema_validate tool.
func AddSchemaValidateTool(s *server.MCPServer) {
	tool := mcp.NewTool(
		"schema_validate",
		mcp.WithDescription("Check a database schema for structural problems: missing or duplicate table and column names, and relationships pointing at unknown tables or columns. Accepts a schema AST or diagram nodes and edges."),
		mcp.WithObject("ast",
			mcp.Description("Schema AST: {tables: [...], relationships: [...]}")),
		mcp.WithArray("nodes",
			mcp.Description("Diagram nodes; validated after converting to an AST")),
		mcp.WithArray("edges",
			mcp.Description("Diagram edges (used with nodes)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createSchemaValidateHandler())
}

func createSchemaValidateHandler() ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req SchemaValidateRequest
		if res := bindArguments(request, &req); res != nil {
			return res, nil
		}

		var ast *schema.SchemaAST
		switch {
		case present(req.Nodes):
			nodes, edges, err := decodeGraph(req.Nodes, req.Edges)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if ast, err = graph.Reduce(nodes, edges); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("failed to convert diagram: %v", err)), nil
			}
		case present(req.AST):
			var err error
			if ast, err = decodeAST(req.AST); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		default:
			return mcp.NewToolResultError("ast or nodes parameter is required"), nil
		}

		return marshalToolResponse(schema.Validate(ast))
	}
}

// AddSchemaProjectTool registers the schema_project tool.
func AddSchemaProjectTool(s *server.MCPServer) {
	tool := mcp.NewTool(
		"schema_project",
		mcp.WithDescription("Convert a schema AST into diagram nodes and edges. Tables keep the given positions; the rest fall back to their own position or a grid layout."),
		mcp.WithObject("ast",
			mcp.Required(),
			mcp.Description("Schema AST: {tables: [...], relationships: [...]}")),
		mcp.WithObject("positions",
			mcp.Description("Known positions keyed by table id, e.g. {\"table_1\": {\"x\": 0, \"y\": 0}}")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createSchemaProjectHandler())
}

func createSchemaProjectHandler() ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req SchemaProjectRequest
		if res := bindArguments(request, &req); res != nil {
			return res, nil
		}
		if !present(req.AST) {
			return mcp.NewToolResultError("ast parameter is required"), nil
		}

		ast, err := decodeAST(req.AST)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var positions graph.Positions
		if present(req.Positions) {
			if err := json.Unmarshal(req.Positions, &positions); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid positions: %v", err)), nil
			}
		}

		nodes, edges, err := graph.Project(ast, positions)
		if err != nil {
			if errors.Is(err, graph.ErrUnresolvedTable) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return nil, err
		}

		return marshalToolResponse(SchemaProjectResponse{Nodes: nodes, Edges: edges})
	}
}

// AddSchemaReduceTool registers the schema_reduce tool.
func AddSchemaReduceTool(s *server.MCPServer) {
	tool := mcp.NewTool(
		"schema_reduce",
		mcp.WithDescription("Convert diagram nodes and edges back into a schema AST and validate it."),
		mcp.WithArray("nodes",
			mcp.Required(),
			mcp.Description("Diagram nodes")),
		mcp.WithArray("edges",
			mcp.Description("Diagram edges")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createSchemaReduceHandler())
}

func createSchemaReduceHandler() ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req SchemaReduceRequest
		if res := bindArguments(request, &req); res != nil {
			return res, nil
		}
		if !present(req.Nodes) {
			return mcp.NewToolResultError("nodes parameter is required"), nil
		}

		nodes, edges, err := decodeGraph(req.Nodes, req.Edges)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ast, err := graph.Reduce(nodes, edges)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to convert diagram: %v", err)), nil
		}

		return marshalToolResponse(SchemaReduceResponse{AST: ast, Validation: schema.Validate(ast)})
	}
}

// AddSchemaInspectTool registers the schema_inspect tool.
func AddSchemaInspectTool(s *server.MCPServer) {
	tool := mcp.NewTool(
		"schema_inspect",
		mcp.WithDescription("Report the dependency structure of a schema: a creation order with referenced tables first, reference cycles, self-referencing tables and which tables reference each table. Pass table to narrow the report."),
		mcp.WithObject("ast",
			mcp.Required(),
			mcp.Description("Schema AST: {tables: [...], relationships: [...]}")),
		mcp.WithString("table",
			mcp.Description("Only report on this table")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createSchemaInspectHandler())
}

func createSchemaInspectHandler() ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req SchemaInspectRequest
		if res := bindArguments(request, &req); res != nil {
			return res, nil
		}
		if !present(req.AST) {
			return mcp.NewToolResultError("ast parameter is required"), nil
		}

		ast, err := decodeAST(req.AST)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		report, err := schema.Inspect(ast)
		if err != nil {
			return nil, fmt.Errorf("schema inspection failed: %w", err)
		}

		if req.Table == "" {
			return marshalToolResponse(report)
		}

		refs, ok := report.ReferencedBy[req.Table]
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown table: %s", req.Table)), nil
		}
		position := 0
		for i, name := range report.Order {
			if name == req.Table {
				position = i
				break
			}
		}
		return marshalToolResponse(TableReport{
			Table:           req.Table,
			ReferencedBy:    refs,
			SelfReferencing: contains(report.SelfReferencing, req.Table),
			Position:        position,
		})
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
