package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/pdfqa/internal/pipeline"
	"github.com/ziadkadry99/pdfqa/internal/registry"
	"github.com/ziadkadry99/pdfqa/internal/vectordb"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Backend is the document pipeline the tools operate on.
type Backend interface {
	Upload(ctx context.Context, key string, data []byte) (*pipeline.UploadResult, error)
	Answer(ctx context.Context, key, question string) (string, error)
	Search(ctx context.Context, key, query string, limit int) ([]vectordb.SearchResult, error)
	Documents() []registry.Entry
}

// Server wraps an MCP server that exposes document upload and question tools.
type Server struct {
	backend Backend
	mcp     *server.MCPServer
}

// NewServer creates a new MCP server with the given backend.
func NewServer(backend Backend) *Server {
	s := &Server{backend: backend}

	s.mcp = server.NewMCPServer(
		"pdfqa",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(uploadDocumentTool, s.handleUploadDocument)
	s.mcp.AddTool(askDocumentTool, s.handleAskDocument)
	s.mcp.AddTool(searchDocumentTool, s.handleSearchDocument)
	s.mcp.AddTool(listDocumentsTool, s.handleListDocuments)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
