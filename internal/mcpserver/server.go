// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes mdbridge documents as tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/mdbridge/internal/apperr"
	"github.com/starford/mdbridge/internal/docservice"
	"github.com/starford/mdbridge/internal/transcode"
)

// FormatURI is the resource URI of the document format contract.
const FormatURI = "mdbridge://document-format"

// Server wraps the MCP server with the document tools.
type Server struct {
	mcp       *server.MCPServer
	svc       *docservice.Service
	clip      *transcode.ClipboardConverter
	importDir string
}

// New creates a new MCP server with all tools registered. Imported assets
// are staged in importDir until a save copies them into a document.
func New(svc *docservice.Service, importDir string) *Server {
	s := &Server{
		svc:       svc,
		clip:      transcode.NewClipboardConverter(),
		importDir: importDir,
	}

	s.mcp = server.NewMCPServer(
		"mdbridge",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through document titles and Markdown content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List documents as GUID and title, sorted by title."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of documents (default 50)")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read a document as Markdown. The result starts with a checksum line "+
			"that save_document accepts for optimistic concurrency."),
		mcp.WithString("guid", mcp.Required(), mcp.Description("Document GUID")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a new document from Markdown. Read the format contract first "+
			"via get_format_contract or the "+FormatURI+" resource."),
		mcp.WithString("title", mcp.Description("Title; defaults to the first H1 heading")),
		mcp.WithString("markdown", mcp.Required(), mcp.Description("Document body in Markdown")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("save_document",
		mcp.WithDescription("Replace the Markdown body of an existing document."),
		mcp.WithString("guid", mcp.Required(), mcp.Description("Document GUID")),
		mcp.WithString("markdown", mcp.Required(), mcp.Description("New document body in Markdown")),
		mcp.WithString("checksum", mcp.Description("Checksum from read_document; the save fails if the document changed since")),
	), s.saveDocument)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all documents that link to the specified document."),
		mcp.WithString("guid", mcp.Required(), mcp.Description("GUID of the linked document")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_outline",
		mcp.WithDescription("Headings and counters (words, characters, images, links) of a document."),
		mcp.WithString("guid", mcp.Required(), mcp.Description("Document GUID")),
	), s.getOutline)

	s.mcp.AddTool(mcp.NewTool("convert_html",
		mcp.WithDescription("Convert an HTML fragment to Markdown the way the editor converts pasted HTML."),
		mcp.WithString("html", mcp.Required(), mcp.Description("HTML fragment")),
	), s.convertHTML)

	s.mcp.AddTool(mcp.NewTool("import_asset",
		mcp.WithDescription("Download an image (http/https URL or base64 data URI) for use in a document. "+
			"Returns a markdownImage to paste into the Markdown; the image is copied into the "+
			"document when it is saved."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:<mime>;base64,<data> URI")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the URL otherwise")),
	), s.importAsset)

	s.mcp.AddTool(mcp.NewTool("get_format_contract",
		mcp.WithDescription("Returns the Markdown format contract for mdbridge documents. "+
			"Call this before creating or saving documents."),
	), s.getFormatContract)

	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Document Format Contract",
			mcp.WithResourceDescription("Markdown conventions understood by the mdbridge editor pipeline."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("document not found")
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError("document changed since it was read; read it again")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(results), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, _, err := s.svc.ListDocuments(ctx, req.GetInt("limit", 50), 0, "title")
	if err != nil {
		return toolError(err), nil
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = it.GUID + "\t" + it.Title
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	guid, err := req.RequireString("guid")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetDocument(ctx, guid)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("checksum: %s\ntitle: %s\n\n%s", d.Checksum, d.Title, d.Markdown)), nil
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markdown, err := req.RequireString("markdown")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.CreateDocument(ctx, req.GetString("title", ""), markdown)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", d.GUID, d.Title)), nil
}

func (s *Server) saveDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	guid, err := req.RequireString("guid")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	markdown, err := req.RequireString("markdown")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.SaveMarkdown(ctx, guid, markdown, req.GetString("checksum", ""))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("saved: " + d.GUID + "\nchecksum: " + d.Checksum), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	guid, err := req.RequireString("guid")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, guid)
	if err != nil {
		return toolError(err), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) getOutline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	guid, err := req.RequireString("guid")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Outline(ctx, guid)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res), nil
}

func (s *Server) convertHTML(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fragment, err := req.RequireString("html")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	md, err := s.clip.Convert(fragment)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(md), nil
}

func (s *Server) getFormatContract(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FormatContract), nil
}

func (s *Server) readFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     FormatContract,
		},
	}, nil
}
