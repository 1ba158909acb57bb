// Package mcp exposes the knowledge base and session confidence state as
// MCP tools, so report-drafting agents can ground their work without going
// through the HTTP API.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/clearscope-ai/clearscope/internal/knowledge"
	"github.com/clearscope-ai/clearscope/internal/session"
)

// Version is set via ldflags at build time.
var Version = "dev"

// ConfidenceReader provides the confidence summary for a session. The
// interview Service satisfies it.
type ConfidenceReader interface {
	Summary(ctx context.Context, sessionID string) (*session.State, session.Summary, error)
}

// Server wraps an MCP server that exposes knowledge and confidence tools.
type Server struct {
	index      *knowledge.Index
	store      *knowledge.Store
	confidence ConfidenceReader
	mcp        *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(index *knowledge.Index, store *knowledge.Store, confidence ConfidenceReader) *Server {
	s := &Server{
		index:      index,
		store:      store,
		confidence: confidence,
	}

	s.mcp = server.NewMCPServer(
		"clearscope",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchKnowledgeTool, s.handleSearchKnowledge)
	s.mcp.AddTool(getConfidenceSummaryTool, s.handleGetConfidenceSummary)
	s.mcp.AddTool(listStaleKnowledgeTool, s.handleListStaleKnowledge)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
