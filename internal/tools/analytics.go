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

// NewAnalyticsTool creates the engram_analytics tool definition
func NewAnalyticsTool() mcp.Tool {
	return mcp.NewTool("engram_analytics",
		mcp.WithDescription("Query statistics over the memory corpus. Query types: overview, timeline, projects, usage, entity, health."),
		mcp.WithString("query_type",
			mcp.Required(),
			mcp.Description("One of: overview, timeline, projects, usage, entity, health"),
		),
		mcp.WithString("project",
			mcp.Description("Narrow the query to this project (overview and timeline only)"),
		),
		mcp.WithString("entity",
			mcp.Description("Entity name, required for the entity query type"),
		),
		mcp.WithNumber("days",
			mcp.Description("Time range in days for the timeline query (default 30)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum rows for list-shaped queries (default 10)"),
		),
	)
}

// AnalyticsHandler handles the engram_analytics tool
func AnalyticsHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		queryType, err := request.RequireString("query_type")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		project := request.GetString("project", "")
		entity := request.GetString("entity", "")
		days := int(request.GetFloat("days", 0))
		limit := int(request.GetFloat("limit", 0))

		result, err := ctx.Analytics.Run(queryType, project, entity, days, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("analytics query failed: %v", err)), nil
		}

		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}

		return mcp.NewToolResultText(string(payload)), nil
	}
}
