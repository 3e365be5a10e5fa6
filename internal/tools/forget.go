// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package tools

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"gorm.io/gorm"
)

// NewForgetTool creates the engram_forget tool definition
func NewForgetTool() mcp.Tool {
	return mcp.NewTool("engram_forget",
		mcp.WithDescription("Archive a memory so it no longer appears in recall, suggestions, or search. Archived memories are kept and can be restored."),
		mcp.WithString("memory_id",
			mcp.Required(),
			mcp.Description("ID of the memory to archive or restore"),
		),
		mcp.WithBoolean("restore",
			mcp.Description("Restore a previously archived memory instead of archiving"),
		),
	)
}

// ForgetHandler handles the engram_forget tool
func ForgetHandler(ctx *ToolContext) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(c context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		memoryID, err := request.RequireString("memory_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		restore := request.GetBool("restore", false)

		if restore {
			if err := ctx.Store.Unarchive(memoryID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return mcp.NewToolResultError(fmt.Sprintf("memory not found: %s", memoryID)), nil
				}
				return mcp.NewToolResultError(fmt.Sprintf("failed to restore memory: %v", err)), nil
			}

			// Put it back into the vector index, best effort
			if ctx.HasEmbeddings() {
				if mem, err := ctx.Store.GetByID(memoryID); err == nil {
					if err := ctx.EmbeddingService.IndexMemory(mem); err != nil {
						log.Printf("Warning: failed to re-index memory %s: %v", memoryID, err)
					}
				}
			}

			return mcp.NewToolResultText(fmt.Sprintf("Memory restored: %s", memoryID)), nil
		}

		if err := ctx.Store.Archive(memoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("memory not found: %s", memoryID)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("failed to archive memory: %v", err)), nil
		}

		if ctx.HasEmbeddings() {
			if err := ctx.EmbeddingService.RemoveMemory(memoryID); err != nil {
				log.Printf("Warning: failed to remove memory %s from index: %v", memoryID, err)
			}
		}

		return mcp.NewToolResultText(fmt.Sprintf("Memory archived: %s (restore with engram_forget restore=true)", memoryID)), nil
	}
}
