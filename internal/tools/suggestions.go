// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// NewSuggestionsTool creates the engram_suggestions tool definition
func NewSuggestionsTool() mcp.Tool {
	return mcp.NewTool("engram_suggestions",
		mcp.WithDescription("Proactively surface forgotten important memories, unresolved TODOs, repeated errors, and relevant past decisions. Returns merged suggestions ranked by priority plus the raw category lists."),
		mcp.WithString("project",
			mcp.Description("Narrow suggestions to this project"),
		),
		mcp.WithString("context_type",
			mcp.Description("Current working context (e.g. debugging) to bias suggestions"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of merged suggestions (default 5)"),
		),
	)
}

// SuggestionsHandler handles the engram_suggestions tool
func SuggestionsHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		project := request.GetString("project", "")
		contextType := request.GetString("context_type", "")
		limit := int(request.GetFloat("limit", 0))

		result := ctx.Suggester.Suggest(time.Now(), project, contextType, limit)

		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}

		return mcp.NewToolResultText(string(payload)), nil
	}
}
