// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/engramhq/engram-mcp/internal/analytics"
	"github.com/engramhq/engram-mcp/internal/cognitive"
	"github.com/engramhq/engram-mcp/internal/config"
	"github.com/engramhq/engram-mcp/internal/database"
	"github.com/engramhq/engram-mcp/internal/embeddings"
	"github.com/engramhq/engram-mcp/internal/tools"
)

// MCPServer wraps the mcp-go server with our tool surface
type MCPServer struct {
	mcpServer *server.MCPServer
	config    *config.Config
	toolCtx   *tools.ToolContext
}

// NewMCPServer creates an MCP server wired to the given store and engines
func NewMCPServer(cfg *config.Config, store *database.Store, opts cognitive.Options) *MCPServer {
	mcpServer := server.NewMCPServer(
		"Engram",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	analyzer := cognitive.NewAnalyzer(store, opts)
	scorer := cognitive.NewScorer()
	recall := cognitive.NewEngine(store, analyzer, scorer, opts)
	suggester := cognitive.NewSuggester(store, opts)
	analyticsService := analytics.NewService(store.DB())

	toolCtx := tools.NewToolContext(store, recall, suggester, analyticsService)

	return &MCPServer{
		mcpServer: mcpServer,
		config:    cfg,
		toolCtx:   toolCtx,
	}
}

// SetEmbeddingService enables semantic search on the tool surface
func (s *MCPServer) SetEmbeddingService(svc *embeddings.Service) {
	s.toolCtx.SetEmbeddingService(svc)
}

// HasEmbeddings returns true if semantic search is available
func (s *MCPServer) HasEmbeddings() bool {
	return s.toolCtx.HasEmbeddings()
}

// RegisterTools registers the full tool surface
func (s *MCPServer) RegisterTools() {
	// engram_remember: store what you are working on
	s.mcpServer.AddTool(tools.NewRememberTool(), tools.RememberHandler(s.toolCtx))

	// engram_recall_context: context-aware recall
	s.mcpServer.AddTool(tools.NewRecallContextTool(), tools.RecallContextHandler(s.toolCtx))

	// engram_suggestions: proactive surfacing
	s.mcpServer.AddTool(tools.NewSuggestionsTool(), tools.SuggestionsHandler(s.toolCtx))

	// engram_analytics: corpus statistics
	s.mcpServer.AddTool(tools.NewAnalyticsTool(), tools.AnalyticsHandler(s.toolCtx))

	// engram_search: semantic search (errors cleanly when embeddings are off)
	s.mcpServer.AddTool(tools.NewSearchTool(), tools.SearchHandler(s.toolCtx))

	// engram_forget: archive and restore
	s.mcpServer.AddTool(tools.NewForgetTool(), tools.ForgetHandler(s.toolCtx))
}

// GetMCPServer returns the underlying MCP server
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

// GetToolContext returns the shared tool context
func (s *MCPServer) GetToolContext() *tools.ToolContext {
	return s.toolCtx
}
