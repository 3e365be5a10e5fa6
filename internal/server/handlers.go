// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package server

import (
	"encoding/json"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

// HTTPServer exposes the MCP server over HTTP alongside a health endpoint.
// The store is personal and local; there is no authentication layer.
type HTTPServer struct {
	mcpServer  *MCPServer
	mcpHandler *mcpserver.StreamableHTTPServer
}

// NewHTTPServer creates an HTTP front for the MCP server
func NewHTTPServer(mcpServer *MCPServer) *HTTPServer {
	return &HTTPServer{
		mcpServer:  mcpServer,
		mcpHandler: mcpserver.NewStreamableHTTPServer(mcpServer.GetMCPServer()),
	}
}

// RegisterRoutes registers all HTTP routes
func (h *HTTPServer) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/mcp", h.mcpHandler)
	mux.HandleFunc("/healthz", h.HandleHealth)
}

// HandleHealth reports server liveness and basic corpus state
func (h *HTTPServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := h.mcpServer.GetToolContext().Store.CountActive()
	if err != nil {
		http.Error(w, "database unavailable: "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":          "ok",
		"active_memories": count,
		"embeddings":      h.mcpServer.HasEmbeddings(),
	})
}
