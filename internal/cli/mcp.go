package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/schema-sync/internal/mcp"
)

var mcpNoStore bool

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for schema tools",
	Long: `Start a Model Context Protocol (MCP) server on stdio so coding
assistants can validate, convert and inspect schemas, and read the diagrams
stored by the configured backend.

Tools:
  schema_validate  schema_project  schema_reduce  schema_inspect
  diagram_list     diagram_get     (unless --no-store)

Example:
  schemasync mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVar(&mcpNoStore, "no-store", false, "only register the schema tools")
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var server *mcp.MCPServer
	if mcpNoStore {
		server = mcp.NewMCPServer(nil)
	} else {
		ws, cfg, err := openWorkspace()
		if err != nil {
			return err
		}
		store, err := openBackend(ctx, ws, cfg)
		if err != nil {
			return fmt.Errorf("failed to open backend: %w", err)
		}
		defer store.Close()

		// stdout carries the protocol.
		log.Printf("schemasync MCP server (backend: %s, workspace: %s)", cfg.Backend.Kind, ws.Root())
		server = mcp.NewMCPServer(store)
	}

	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
