package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers all gatekeeper MCP tools with the server.
func RegisterTools(s *server.MCPServer, handlers *HandlerSet) {
	// Tool 1: check_duplicates - Similarity check against the index
	s.AddTool(mcp.NewTool("check_duplicates",
		mcp.WithDescription("Check an OpenAPI definition for duplicates among the indexed APIs of an organization using MinHash/LSH similarity"),
		mcp.WithString("definition",
			mcp.Required(),
			mcp.Description("OpenAPI definition content (JSON or YAML)")),
		mcp.WithString("api_id",
			mcp.Description("UUID of the API being checked, excluded from its own matches")),
		mcp.WithString("organization",
			mcp.Required(),
			mcp.Description("Tenant whose indexed APIs are searched")),
		mcp.WithNumber("threshold",
			mcp.Description("Similarity threshold 0.5-1.0 (default: 0.95)")),
	), handlers.HandleCheckDuplicates)

	// Tool 2: index_api - Admit an API into the index
	s.AddTool(mcp.NewTool("index_api",
		mcp.WithDescription("Generate a signature for an OpenAPI definition and add it to the similarity index"),
		mcp.WithString("definition",
			mcp.Required(),
			mcp.Description("OpenAPI definition content (JSON or YAML)")),
		mcp.WithString("api_id",
			mcp.Required(),
			mcp.Description("UUID of the API")),
		mcp.WithString("organization",
			mcp.Required(),
			mcp.Description("Tenant the API belongs to")),
	), handlers.HandleIndexAPI)

	// Tool 3: remove_api - Drop an API from the index
	s.AddTool(mcp.NewTool("remove_api",
		mcp.WithDescription("Remove an API from the similarity index and the signature store"),
		mcp.WithString("api_id",
			mcp.Required(),
			mcp.Description("UUID of the API")),
		mcp.WithString("organization",
			mcp.Required(),
			mcp.Description("Tenant the API belongs to")),
	), handlers.HandleRemoveAPI)

	// Tool 4: index_stats - Index shape snapshot
	s.AddTool(mcp.NewTool("index_stats",
		mcp.WithDescription("Report the current size and shape of the similarity index"),
	), handlers.HandleIndexStats)
}
