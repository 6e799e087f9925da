// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the librarian pipeline via stdio transport, so an agent
// can inspect the vault and drive the review queue.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/librarian/internal/api"
	"github.com/starford/librarian/internal/storage"
)

// Server wraps the MCP server with librarian tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *api.Service
	store storage.Provider
}

// New creates a new MCP server with all librarian tools registered.
func New(store storage.Provider, svc *api.Service) *Server {
	s := &Server{store: store, svc: svc}

	s.mcp = server.NewMCPServer(
		"Librarian",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through vault notes content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_proposals",
		mcp.WithDescription("List the review-queue proposals with their state, type and target. "+
			"Proposals in state 'review' wait for approval; 'file' proposals are executed on the next pipeline run."),
	), s.listProposals)

	s.mcp.AddTool(mcp.NewTool("approve_proposal",
		mcp.WithDescription("Approve a review-queue proposal so the next pipeline run executes it. "+
			"Read the proposal first via read_note, and consult the librarian://contract "+
			"resource for the format semantics."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Proposal path (review-queue relative or full vault path)")),
	), s.approveProposal)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("audit_vault",
		mcp.WithDescription("Score the vault against the hygiene rules without changing anything. "+
			"Returns candidates sorted by score descending."),
	), s.auditVault)

	s.mcp.AddTool(mcp.NewTool("get_proposal_contract",
		mcp.WithDescription("Returns the canonical proposal format contract. "+
			"Call this before reasoning about review-queue entries."),
	), s.getProposalContract)

	s.mcp.AddTool(mcp.NewTool("run_pipeline",
		mcp.WithDescription("Run one full librarian pass: execute approved proposals, then "+
			"process capture notes into new proposals."),
	), s.runPipeline)

	// Resource: proposal format contract.
	s.mcp.AddResource(
		mcp.NewResource("librarian://contract", "Proposal Format Contract",
			mcp.WithResourceDescription("Canonical format of review-queue proposals and their lifecycle."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readProposalFormatResource,
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

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listProposals(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	proposals, err := s.svc.Proposals()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(proposals) == 0 {
		return mcp.NewToolResultText("review queue is empty"), nil
	}
	out, _ := json.MarshalIndent(proposals, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) approveProposal(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	prop, err := s.svc.Approve(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("approved: %s", prop.Path)), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) auditVault(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	candidates, err := s.svc.Audit()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(candidates) == 0 {
		return mcp.NewToolResultText("vault is clean"), nil
	}
	var b strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&b, "%d\t%s\t%s\n", c.Score, c.Path, strings.Join(c.Reasons, ", "))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) runPipeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.RunPipeline(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"filed %d proposal(s) (%d file(s) written, %d failed), ingested %d capture(s) (%d failed)",
		res.Filed.Filed, res.Filed.Written, res.Filed.Failed,
		res.Ingested.Ingested, res.Ingested.Failed)), nil
}

func (s *Server) getProposalContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ProposalFormatContract), nil
}

func (s *Server) readProposalFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "librarian://contract",
			MIMEType: "text/markdown",
			Text:     ProposalFormatContract,
		},
	}, nil
}
