package main

import (
	"github.com/charmbracelet/log"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/apigovern/gatekeeper/internal/version"
	"github.com/apigovern/gatekeeper/mcp"
)

const mcpServerName = "gatekeeper"

// ServeMCPCommand exposes the similarity engine over MCP stdio.
type ServeMCPCommand struct{}

// NewServeMCPCommand creates a new serve-mcp command.
func NewServeMCPCommand() *ServeMCPCommand {
	return &ServeMCPCommand{}
}

// CreateCobraCommand creates the cobra command for the MCP server.
func (c *ServeMCPCommand) CreateCobraCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve gatekeeper tools over MCP stdio",
		Long: `Start an MCP server on stdio exposing the duplicate-detection tools:
check_duplicates, index_api, remove_api, and index_stats.

Logging goes to stderr; stdout carries the MCP JSON-RPC stream.`,
		Args: cobra.NoArgs,
		RunE: c.runServeMCP,
	}
}

func (c *ServeMCPCommand) runServeMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadGatekeeperConfig(cmd)
	if err != nil {
		return err
	}

	deps, err := mcp.BuildDependencies(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = deps.Close() }()

	server := mcpserver.NewMCPServer(
		mcpServerName,
		version.Short(),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
	)
	mcp.RegisterTools(server, mcp.NewHandlerSet(deps))

	log.Info("mcp server ready", "tools",
		[]string{"check_duplicates", "index_api", "remove_api", "index_stats"})
	return mcpserver.ServeStdio(server)
}

// NewServeMCPCmd creates and returns the serve-mcp cobra command.
func NewServeMCPCmd() *cobra.Command {
	return NewServeMCPCommand().CreateCobraCommand()
}
