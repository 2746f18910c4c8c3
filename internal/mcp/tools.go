package mcp

import "github.com/mark3labs/mcp-go/mcp"

// uploadDocumentTool defines the upload_document MCP tool.
var uploadDocumentTool = mcp.NewTool("upload_document",
	mcp.WithDescription("Index a local document (PDF, Markdown or text) so questions can be asked about it. Returns the document key to use with ask_document."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Path to the document on the server's filesystem"),
	),
)

// askDocumentTool defines the ask_document MCP tool.
var askDocumentTool = mcp.NewTool("ask_document",
	mcp.WithDescription("Answer a question using passages retrieved from a previously uploaded document."),
	mcp.WithString("document",
		mcp.Required(),
		mcp.Description("Document key returned by upload_document"),
	),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("Question to answer from the document"),
	),
)

// searchDocumentTool defines the search_document MCP tool.
var searchDocumentTool = mcp.NewTool("search_document",
	mcp.WithDescription("Return the passages of an uploaded document most similar to a query, without generating an answer."),
	mcp.WithString("document",
		mcp.Required(),
		mcp.Description("Document key returned by upload_document"),
	),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of passages to return (default: configured top_k)"),
	),
)

// listDocumentsTool defines the list_documents MCP tool.
var listDocumentsTool = mcp.NewTool("list_documents",
	mcp.WithDescription("List documents uploaded since the server started."),
)
