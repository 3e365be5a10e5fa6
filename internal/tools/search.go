// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// NewSearchTool creates the engram_search tool definition
func NewSearchTool() mcp.Tool {
	return mcp.NewTool("engram_search",
		mcp.WithDescription("Search memories by meaning using vector similarity. Requires embeddings to be enabled; use engram_recall_context for context-driven recall."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language search query"),
		),
		mcp.WithString("project",
			mcp.Description("Restrict results to this project"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default 10)"),
		),
	)
}

// SearchHandler handles the engram_search tool
func SearchHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !ctx.HasEmbeddings() {
			return mcp.NewToolResultError("semantic search is not enabled; start the server with embeddings configured"), nil
		}

		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		project := request.GetString("project", "")
		limit := int(request.GetFloat("limit", 10))

		results, err := ctx.EmbeddingService.Search(query, project, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		if len(results) == 0 {
			return mcp.NewToolResultText("No matching memories found."), nil
		}

		payload, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}

		return mcp.NewToolResultText(string(payload)), nil
	}
}
