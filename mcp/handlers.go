package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/apigovern/gatekeeper/domain"
)

// HandlerSet exposes MCP tool handlers with shared dependencies.
type HandlerSet struct {
	deps *Dependencies
}

// NewHandlerSet constructs a handler set.
func NewHandlerSet(deps *Dependencies) *HandlerSet {
	return &HandlerSet{deps: deps}
}

// HandleCheckDuplicates handles the check_duplicates tool.
func (h *HandlerSet) HandleCheckDuplicates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	definition, ok := args["definition"].(string)
	if !ok || definition == "" {
		return mcp.NewToolResultError("definition parameter is required and must be a string"), nil
	}
	organization, ok := args["organization"].(string)
	if !ok || organization == "" {
		return mcp.NewToolResultError("organization parameter is required and must be a string"), nil
	}

	apiID, _ := args["api_id"].(string)
	threshold := domain.DefaultSimilarityThreshold
	if t, ok := args["threshold"].(float64); ok {
		threshold = t
	}

	result, err := h.deps.UseCase().CheckDefinition(ctx, definition, apiID, organization, threshold)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("duplicate check failed: %v", err)), nil
	}
	return jsonResult(result)
}

// HandleIndexAPI handles the index_api tool.
func (h *HandlerSet) HandleIndexAPI(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	definition, ok := args["definition"].(string)
	if !ok || definition == "" {
		return mcp.NewToolResultError("definition parameter is required and must be a string"), nil
	}
	apiID, ok := args["api_id"].(string)
	if !ok || apiID == "" {
		return mcp.NewToolResultError("api_id parameter is required and must be a string"), nil
	}
	organization, ok := args["organization"].(string)
	if !ok || organization == "" {
		return mcp.NewToolResultError("organization parameter is required and must be a string"), nil
	}

	if err := h.deps.UseCase().IndexDefinition(ctx, definition, apiID, organization); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("indexing failed: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{
		"indexed":      true,
		"apiUuid":      apiID,
		"organization": organization,
	})
}

// HandleRemoveAPI handles the remove_api tool.
func (h *HandlerSet) HandleRemoveAPI(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	apiID, ok := args["api_id"].(string)
	if !ok || apiID == "" {
		return mcp.NewToolResultError("api_id parameter is required and must be a string"), nil
	}
	organization, ok := args["organization"].(string)
	if !ok || organization == "" {
		return mcp.NewToolResultError("organization parameter is required and must be a string"), nil
	}

	if err := h.deps.UseCase().Remove(ctx, apiID, organization); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("removal failed: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{
		"removed":      true,
		"apiUuid":      apiID,
		"organization": organization,
	})
}

// HandleIndexStats handles the index_stats tool.
func (h *HandlerSet) HandleIndexStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := h.deps.UseCase().Stats()
	return jsonResult(map[string]interface{}{
		"numApis":          stats.NumAPIs,
		"numOrganizations": stats.NumOrganizations,
		"numBands":         stats.NumBands,
		"rowsPerBand":      stats.RowsPerBand,
		"signatureLength":  stats.SignatureLength,
	})
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
