package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/pdfqa/internal/registry"
	"github.com/ziadkadry99/pdfqa/internal/vectordb"
)

const notUploaded = "Document %q has not been uploaded. Call upload_document first."

// handleUploadDocument reads a file from disk and indexes it.
func (s *Server) handleUploadDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: path"), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read %s: %v", path, err)), nil
	}

	key := filepath.ToSlash(filepath.Clean(path))
	res, err := s.backend.Upload(ctx, key, data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("upload failed: %v", err)), nil
	}

	status := "Indexed"
	if res.Reused {
		status = "Already indexed"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s %s as collection %s (%d chunks).\nDocument key: %s",
		status, path, res.CollectionID, res.Chunks, res.Key)), nil
}

// handleAskDocument answers a question about an uploaded document.
func (s *Server) handleAskDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	document, err := request.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: document"), nil
	}
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	answer, err := s.backend.Answer(ctx, document, question)
	if errors.Is(err, registry.ErrNotRegistered) {
		return mcp.NewToolResultError(fmt.Sprintf(notUploaded, document)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}

	return mcp.NewToolResultText(answer), nil
}

// handleSearchDocument returns the passages most similar to a query.
func (s *Server) handleSearchDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	document, err := request.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: document"), nil
	}
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	limit := request.GetInt("limit", 0)

	results, err := s.backend.Search(ctx, document, query, limit)
	if errors.Is(err, registry.ErrNotRegistered) {
		return mcp.NewToolResultError(fmt.Sprintf(notUploaded, document)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	return mcp.NewToolResultText(vectordb.FormatResults(results)), nil
}

// handleListDocuments lists the registered documents.
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries := s.backend.Documents()
	if len(entries) == 0 {
		return mcp.NewToolResultText("No documents uploaded yet. Use upload_document to add one."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d document(s):\n", len(entries)))
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("- %s (collection %s, %d chunks)\n", e.Key, e.CollectionID, e.Chunks))
	}
	return mcp.NewToolResultText(sb.String()), nil
}
