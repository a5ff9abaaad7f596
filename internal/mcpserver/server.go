// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes glanxiv corpus queries for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/glanxiv/internal/apperr"
	"github.com/starford/glanxiv/internal/query"
	"github.com/starford/glanxiv/internal/taxonomy"
)

const querySyntaxURI = "glanxiv://query-syntax"

// Server wraps the MCP server with glanxiv tools.
type Server struct {
	mcp          *server.MCPServer
	engine       *query.Engine
	defaultLimit int
}

// New creates a new MCP server with all glanxiv tools registered.
// defaultLimit is the page size used when search_papers omits limit.
func New(engine *query.Engine, defaultLimit int) *Server {
	if defaultLimit < 1 {
		defaultLimit = 12
	}
	s := &Server{engine: engine, defaultLimit: defaultLimit}

	s.mcp = server.NewMCPServer(
		"glanxiv",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_papers",
		mcp.WithDescription("Search cached arXiv papers by free text and category tokens. "+
			"Returns one page of papers, newest first. Read get_query_syntax or the "+
			querySyntaxURI+" resource for the category token rules."),
		mcp.WithString("q", mcp.Description("Case-insensitive substring of title, abstract or an author")),
		mcp.WithString("category", mcp.Description("Comma-separated category tokens, e.g. cs,physics or cs.AI")),
		mcp.WithNumber("page", mcp.Description("1-based page number (default 1)")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 12)")),
	), s.searchPapers)

	s.mcp.AddTool(mcp.NewTool("get_paper",
		mcp.WithDescription("Fetch a single cached paper by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Paper id, e.g. 2401.01234")),
	), s.getPaper)

	s.mcp.AddTool(mcp.NewTool("get_taxonomy",
		mcp.WithDescription("Return the category tree, or the flattened category option list when flat is true."),
		mcp.WithBoolean("flat", mcp.Description("Return the flattened option list")),
	), s.getTaxonomy)

	s.mcp.AddTool(mcp.NewTool("category_counts",
		mcp.WithDescription("Number of cached papers per category code."),
	), s.categoryCounts)

	s.mcp.AddTool(mcp.NewTool("corpus_status",
		mcp.WithDescription("When the corpus was last loaded, how many papers it holds and which partitions were skipped."),
	), s.corpusStatus)

	s.mcp.AddTool(mcp.NewTool("get_query_syntax",
		mcp.WithDescription("Returns the search term and category token syntax understood by search_papers."),
	), s.getQuerySyntax)

	s.mcp.AddResource(
		mcp.NewResource(querySyntaxURI, "Query Syntax",
			mcp.WithResourceDescription("Search term, category token and paging rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readQuerySyntaxResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchPapers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.engine.Query(ctx, query.Request{
		SearchTerm:      req.GetString("q", ""),
		CategoryFilters: taxonomy.ParseExpression(req.GetString("category", "")),
		Page:            req.GetInt("page", 1),
		Limit:           req.GetInt("limit", s.defaultLimit),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) getPaper(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.engine.Paper(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(p)
}

func (s *Server) getTaxonomy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req.GetBool("flat", false) {
		return jsonResult(s.engine.Options())
	}
	return jsonResult(s.engine.Taxonomy())
}

func (s *Server) categoryCounts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.engine.CategoryCounts(ctx))
}

func (s *Server) corpusStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.engine.Status(ctx))
}

func (s *Server) getQuerySyntax(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(QuerySyntax), nil
}

func (s *Server) readQuerySyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      querySyntaxURI,
			MIMEType: "text/markdown",
			Text:     QuerySyntax,
		},
	}, nil
}
