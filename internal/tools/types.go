// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package tools defines the MCP tool surface. Each tool is a definition
// plus a handler closure over a shared ToolContext.
package tools

import (
	"github.com/engramhq/engram-mcp/internal/analytics"
	"github.com/engramhq/engram-mcp/internal/cognitive"
	"github.com/engramhq/engram-mcp/internal/database"
	"github.com/engramhq/engram-mcp/internal/embeddings"
)

// ToolContext holds shared dependencies for all tools
type ToolContext struct {
	Store            *database.Store
	Recall           *cognitive.Engine
	Suggester        *cognitive.Suggester
	Analytics        *analytics.Service
	EmbeddingService *embeddings.Service
}

// NewToolContext creates a tool context without semantic search
func NewToolContext(store *database.Store, recall *cognitive.Engine, suggester *cognitive.Suggester, analyticsService *analytics.Service) *ToolContext {
	return &ToolContext{
		Store:     store,
		Recall:    recall,
		Suggester: suggester,
		Analytics: analyticsService,
	}
}

// SetEmbeddingService sets the embedding service for the tool context
func (tc *ToolContext) SetEmbeddingService(svc *embeddings.Service) {
	tc.EmbeddingService = svc
}

// HasEmbeddings returns true if the embedding service is available and enabled
func (tc *ToolContext) HasEmbeddings() bool {
	return tc.EmbeddingService != nil && tc.EmbeddingService.IsEnabled()
}
