package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/librarian/internal/api"
	"github.com/starford/librarian/internal/filer"
	"github.com/starford/librarian/internal/index"
	"github.com/starford/librarian/internal/ledger"
	"github.com/starford/librarian/internal/librarian"
	"github.com/starford/librarian/internal/llm"
	"github.com/starford/librarian/internal/maintenance"
	"github.com/starford/librarian/internal/models"
	"github.com/starford/librarian/internal/parser"
	"github.com/starford/librarian/internal/prompt"
	"github.com/starford/librarian/internal/storage"
	"github.com/starford/librarian/internal/testutil"
)

const reviewDir = "00. Inbox/1. Review Queue"

func testServer(t *testing.T, model llm.Model) (*Server, storage.Provider, *index.DB) {
	t.Helper()

	_, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	logger := testutil.Logger(t)

	ing := librarian.New(store, db, model, librarian.Config{
		CaptureDir: "00. Inbox/0. Capture",
		ReviewDir:  reviewDir,
		ScanDirs:   []string{"20. Projects", "30. Areas"},
		Sources:    prompt.Sources{},
	}, logger)
	fl := filer.New(store, reviewDir, logger)
	led := ledger.Load(store, "99. System/maintenance_history.json", logger)
	runner := maintenance.New(store, model, led, ing, maintenance.Config{
		ScanDirs:  []string{"20. Projects", "30. Areas"},
		Excluded:  []string{"99. System", "00. Inbox", ".git", ".obsidian", ".trash"},
		ReviewDir: reviewDir,
	}, logger)

	svc := api.NewService(api.Deps{
		Store:       store,
		Index:       db,
		Pipeline:    &librarian.Pipeline{Filer: fl, Ingestor: ing, Logger: logger},
		Maintenance: runner,
		Ledger:      led,
		ReviewDir:   reviewDir,
	})
	return New(store, svc), store, db
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we
	// call the handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "list_proposals":
		result, err = srv.listProposals(ctx, req)
	case "approve_proposal":
		result, err = srv.approveProposal(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	case "audit_vault":
		result, err = srv.auditVault(ctx, req)
	case "get_proposal_contract":
		result, err = srv.getProposalContract(ctx, req)
	case "run_pipeline":
		result, err = srv.runPipeline(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func writeProposal(t *testing.T, store storage.Provider, name string, meta models.ProposalMeta, body string) string {
	t.Helper()
	data, err := parser.Compose(meta, body)
	if err != nil {
		t.Fatal(err)
	}
	p := reviewDir + "/" + name
	testutil.WriteNote(t, store, p, string(data))
	return p
}

func TestReadNote(t *testing.T) {
	srv, store, _ := testServer(t, llm.NewFake())
	testutil.WriteNote(t, store, "20. Projects/plan.md", "# Plan\nShip it")

	r := callTool(t, srv, "read_note", map[string]interface{}{"path": "20. Projects/plan.md"})
	if text := resultText(r); text != "# Plan\nShip it" {
		t.Errorf("read result = %q", text)
	}
}

func TestReadNoteMissing(t *testing.T) {
	srv, _, _ := testServer(t, llm.NewFake())
	r := callTool(t, srv, "read_note", map[string]interface{}{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestGetBacklinks(t *testing.T) {
	srv, store, db := testServer(t, llm.NewFake())
	testutil.WriteNote(t, store, "20. Projects/a.md", "links to [[b]]")
	if err := index.Sync(db, store, nil, testutil.Logger(t)); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "get_backlinks", map[string]interface{}{"path": "b"})
	if text := resultText(r); text != "20. Projects/a.md" {
		t.Errorf("backlinks = %q, want 20. Projects/a.md", text)
	}

	r = callTool(t, srv, "get_backlinks", map[string]interface{}{"path": "orphan"})
	if text := resultText(r); text != "no backlinks found" {
		t.Errorf("backlinks = %q, want no backlinks found", text)
	}
}

func TestListProposals(t *testing.T) {
	srv, store, _ := testServer(t, llm.NewFake())

	r := callTool(t, srv, "list_proposals", map[string]interface{}{})
	if text := resultText(r); text != "review queue is empty" {
		t.Errorf("empty queue result = %q", text)
	}

	writeProposal(t, store, "idea.md", models.ProposalMeta{
		Librarian: models.StateReview,
		Type:      models.TypeIngestion,
	}, "body")

	r = callTool(t, srv, "list_proposals", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "idea.md") {
		t.Errorf("listing missing proposal: %q", text)
	}
	if !strings.Contains(text, models.StateReview) {
		t.Errorf("listing missing state: %q", text)
	}
}

func TestApproveProposal(t *testing.T) {
	srv, store, _ := testServer(t, llm.NewFake())
	p := writeProposal(t, store, "pending.md", models.ProposalMeta{Librarian: models.StateReview}, "body")

	r := callTool(t, srv, "approve_proposal", map[string]interface{}{"path": "pending.md"})
	if r.IsError {
		t.Fatalf("approve failed: %s", resultText(r))
	}

	raw, err := store.Read(p)
	if err != nil {
		t.Fatal(err)
	}
	res, _ := parser.Parse(raw)
	meta := models.ProposalMetaFromMap(res.Frontmatter)
	if !meta.Approved() {
		t.Errorf("librarian = %q, want %q", meta.Librarian, models.StateFile)
	}
}

func TestApproveProposalMissing(t *testing.T) {
	srv, _, _ := testServer(t, llm.NewFake())
	r := callTool(t, srv, "approve_proposal", map[string]interface{}{"path": "ghost.md"})
	if !r.IsError {
		t.Error("expected error for missing proposal")
	}
}

func TestAuditVault(t *testing.T) {
	srv, store, _ := testServer(t, llm.NewFake())

	r := callTool(t, srv, "audit_vault", map[string]interface{}{})
	if text := resultText(r); text != "vault is clean" {
		t.Errorf("clean vault result = %q", text)
	}

	testutil.WriteNote(t, store, "20. Projects/untitled.md", "bare")
	r = callTool(t, srv, "audit_vault", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "untitled.md") {
		t.Errorf("audit missing candidate: %q", text)
	}
	if !strings.Contains(text, "Generic Filename") {
		t.Errorf("audit missing reason: %q", text)
	}
}

func TestRunPipeline(t *testing.T) {
	fake := llm.NewFake("%%EXPLANATION%%\nok\n%%FILE: 20. Projects/New.md%%\ncontent\n")
	srv, store, _ := testServer(t, fake)
	testutil.WriteNote(t, store, "00. Inbox/0. Capture/thought.md", "raw thought")

	r := callTool(t, srv, "run_pipeline", map[string]interface{}{})
	if r.IsError {
		t.Fatalf("run failed: %s", resultText(r))
	}
	if text := resultText(r); !strings.Contains(text, "ingested 1 capture(s)") {
		t.Errorf("run result = %q", text)
	}
}

func TestGetProposalContract(t *testing.T) {
	srv, _, _ := testServer(t, llm.NewFake())
	r := callTool(t, srv, "get_proposal_contract", map[string]interface{}{})
	if text := resultText(r); !strings.Contains(text, "librarian: review") {
		t.Errorf("contract missing lifecycle gate: %q", text)
	}
}
