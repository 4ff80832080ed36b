package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/schema-sync/internal/storage"
)

// ServerName and ServerVersion identify the server to MCP clients.
const (
	ServerName    = "schemasync"
	ServerVersion = "1.0.0"
)

// MCPServer exposes the schema converters and, when a store is given, the
// saved diagrams as MCP tools over stdio.
type MCPServer struct {
	store storage.Store
	mcp   *server.MCPServer
}

// NewMCPServer registers the schema tools, plus the diagram tools when
// store is not nil. The caller owns store.
func NewMCPServer(store storage.Store) *MCPServer {
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
	)

	AddSchemaValidateTool(mcpServer)
	AddSchemaProjectTool(mcpServer)
	AddSchemaReduceTool(mcpServer)
	AddSchemaInspectTool(mcpServer)

	if store != nil {
		AddDiagramListTool(mcpServer, store)
		AddDiagramGetTool(mcpServer, store)
	}

	return &MCPServer{store: store, mcp: mcpServer}
}

// Serve runs the server on stdio until a shutdown signal, a transport error
// or ctx cancellation.
func (s *MCPServer) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
