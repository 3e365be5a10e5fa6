// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/engramhq/engram-mcp/internal/database"
	"github.com/engramhq/engram-mcp/internal/extract"
)

// NewRememberTool creates the engram_remember tool definition
func NewRememberTool() mcp.Tool {
	return mcp.NewTool("engram_remember",
		mcp.WithDescription("Store a memory of what you are working on: code, commands, conversations, notes, events, decisions, or insights. Entities are extracted automatically when not provided."),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Memory type: code, command, conversation, note, event, decision, or insight"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The content to remember"),
		),
		mcp.WithString("project",
			mcp.Description("Project this memory belongs to"),
		),
		mcp.WithString("file_path",
			mcp.Description("File path the memory relates to"),
		),
		mcp.WithString("language",
			mcp.Description("Programming language, for code memories"),
		),
		mcp.WithArray("tags",
			mcp.Description("Labels for organization"),
		),
		mcp.WithArray("entities",
			mcp.Description("Named entities mentioned in the content. Extracted automatically when omitted."),
		),
		mcp.WithNumber("importance",
			mcp.Description("Importance score between 0.0 and 1.0 (default 0.5)"),
		),
	)
}

// RememberHandler handles the engram_remember tool
func RememberHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		memType, err := request.RequireString("type")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !database.IsValidMemoryType(memType) {
			return mcp.NewToolResultError(fmt.Sprintf("invalid memory type '%s'; valid types: %s",
				memType, strings.Join(database.ValidMemoryTypes(), ", "))), nil
		}

		content, err := request.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if strings.TrimSpace(content) == "" {
			return mcp.NewToolResultError("content cannot be empty"), nil
		}

		project := request.GetString("project", "")
		filePath := request.GetString("file_path", "")
		language := request.GetString("language", "")
		tags := request.GetStringSlice("tags", []string{})
		entities := request.GetStringSlice("entities", []string{})
		importance := request.GetFloat("importance", 0.5)

		if importance < 0 || importance > 1 {
			return mcp.NewToolResultError("importance must be between 0.0 and 1.0"), nil
		}

		// Auto-extract entities when the caller did not provide any
		if len(entities) == 0 {
			entities = extract.Entities(content)
		}

		now := time.Now()
		mem := &database.Memory{
			ID:              database.NewID(now),
			Type:            memType,
			Content:         content,
			Project:         project,
			FilePath:        filePath,
			Language:        language,
			Timestamp:       now.UnixMilli(),
			ImportanceScore: importance,
			ContentHash:     database.HashContent(content),
		}
		mem.SetTags(tags)
		mem.SetEntities(entities)

		if err := ctx.Store.Insert(mem); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to store memory: %v", err)), nil
		}

		// Index for semantic search, best effort
		if ctx.HasEmbeddings() {
			if err := ctx.EmbeddingService.IndexMemory(mem); err != nil {
				log.Printf("Warning: failed to index memory %s: %v", mem.ID, err)
			}
		}

		result := fmt.Sprintf("Memory stored: %s\nType: %s", mem.ID, mem.Type)
		if project != "" {
			result += fmt.Sprintf("\nProject: %s", project)
		}
		if len(entities) > 0 {
			result += fmt.Sprintf("\nEntities: %s", strings.Join(entities, ", "))
		}
		return mcp.NewToolResultText(result), nil
	}
}
