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

// NewRecallContextTool creates the engram_recall_context tool definition
func NewRecallContextTool() mcp.Tool {
	return mcp.NewTool("engram_recall_context",
		mcp.WithDescription("Analyze recent activity and recall the memories most relevant to the current working context. Returns the detected context plus relevance-ranked memories with recall reasons."),
		mcp.WithNumber("window_minutes",
			mcp.Description("How far back to look for recent activity (default 30)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of memories to recall (default 10)"),
		),
		mcp.WithString("project",
			mcp.Description("Narrow context detection to this project"),
		),
		mcp.WithString("file_path",
			mcp.Description("Narrow context detection to memories touching this file path"),
		),
	)
}

// RecallContextHandler handles the engram_recall_context tool
func RecallContextHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		windowMinutes := int(request.GetFloat("window_minutes", 0))
		limit := int(request.GetFloat("limit", 0))
		project := request.GetString("project", "")
		filePath := request.GetString("file_path", "")

		result, err := ctx.Recall.Recall(time.Now(), windowMinutes, limit, project, filePath)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("recall failed: %v", err)), nil
		}

		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}

		return mcp.NewToolResultText(string(payload)), nil
	}
}
