package filer

import (
	"context"
	"testing"

	"github.com/starford/librarian/internal/storage"
	"github.com/starford/librarian/internal/testutil"
)

const reviewDir = "00. Inbox/1. Review Queue"

func newFiler(t *testing.T) (*Filer, storage.Provider) {
	t.Helper()
	_, store := testutil.TestVault(t)
	return New(store, reviewDir, testutil.Logger(t)), store
}

func proposal(frontmatter, body string) string {
	return "---\n" + frontmatter + "\n---\n" + body
}

func mustRead(t *testing.T, store storage.Provider, path string) string {
	t.Helper()
	data, err := store.Read(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func exists(t *testing.T, store storage.Provider, path string) bool {
	t.Helper()
	ok, err := store.Exists(path)
	if err != nil {
		t.Fatal(err)
	}
	return ok
}

func TestRun_ReviewProposalUntouched(t *testing.T) {
	f, store := newFiler(t)
	prop := reviewDir + "/pending.md"
	testutil.WriteNote(t, store, prop,
		proposal("librarian: review", "%%FILE: a.md%%\nhello"))

	res, err := f.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Filed != 0 || res.Written != 0 || res.Failed != 0 {
		t.Errorf("result = %+v, want all zero", res)
	}
	if !exists(t, store, prop) {
		t.Error("review proposal must stay in the queue")
	}
	if exists(t, store, "a.md") {
		t.Error("review proposal must produce no writes")
	}
}

func TestRun_NewFilesFanOut(t *testing.T) {
	f, store := newFiler(t)
	testutil.WriteNote(t, store, reviewDir+"/p.md",
		proposal("librarian: file",
			"%%EXPLANATION%%\nsplit into two\n"+
				"%%FILE: 20. Projects/X/a.md%%\nalpha\n"+
				"%%FILE: 20. Projects/X/b.md%%\nbeta"))

	res, err := f.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Filed != 1 || res.Written != 2 || res.Failed != 0 {
		t.Errorf("result = %+v, want 1 filed / 2 written", res)
	}
	if got := mustRead(t, store, "20. Projects/X/a.md"); got != "alpha" {
		t.Errorf("a.md = %q", got)
	}
	if got := mustRead(t, store, "20. Projects/X/b.md"); got != "beta" {
		t.Errorf("b.md = %q", got)
	}
	if exists(t, store, reviewDir+"/p.md") {
		t.Error("consumed proposal must be deleted")
	}
}

func TestRun_CollisionAvoidanceNeverOverwrites(t *testing.T) {
	f, store := newFiler(t)
	testutil.WriteNote(t, store, "notes/a.md", "original")
	testutil.WriteNote(t, store, "notes/a-1.md", "first clone")
	testutil.WriteNote(t, store, reviewDir+"/p.md",
		proposal("librarian: file", "%%FILE: notes/a.md%%\nnew content"))

	if _, err := f.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := mustRead(t, store, "notes/a.md"); got != "original" {
		t.Errorf("pre-existing file modified: %q", got)
	}
	if got := mustRead(t, store, "notes/a-2.md"); got != "new content" {
		t.Errorf("a-2.md = %q, smallest unused suffix expected", got)
	}
}

func TestRun_FixInPlaceOverwrites(t *testing.T) {
	f, store := newFiler(t)
	testutil.WriteNote(t, store, "30. Areas/Foo/note.md", "old body")
	testutil.WriteNote(t, store, reviewDir+"/fix.md",
		proposal("librarian: file\ntarget-file: 30. Areas/Foo/note.md",
			"%%FILE: 30. Areas/Foo/note.md%%\nfixed body"))

	res, err := f.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Filed != 1 || res.Written != 1 {
		t.Errorf("result = %+v", res)
	}
	if got := mustRead(t, store, "30. Areas/Foo/note.md"); got != "fixed body" {
		t.Errorf("note = %q, want in-place overwrite", got)
	}
	if exists(t, store, "30. Areas/Foo/note-1.md") {
		t.Error("in-place update must not create a suffixed copy")
	}
}

func TestRun_FixRenameDeletesOriginalAndProtectsUnrelated(t *testing.T) {
	f, store := newFiler(t)
	testutil.WriteNote(t, store, "30. Areas/Foo/untitled.md", "old")
	testutil.WriteNote(t, store, "30. Areas/Foo/FOO - Plan.md", "unrelated occupant")
	testutil.WriteNote(t, store, reviewDir+"/fix.md",
		proposal("librarian: file\ntarget-file: 30. Areas/Foo/untitled.md",
			"%%FILE: 30. Areas/Foo/FOO - Plan.md%%\nrenamed content"))

	if _, err := f.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if exists(t, store, "30. Areas/Foo/untitled.md") {
		t.Error("original must be deleted on rename")
	}
	if got := mustRead(t, store, "30. Areas/Foo/FOO - Plan.md"); got != "unrelated occupant" {
		t.Errorf("unrelated file overwritten: %q", got)
	}
	if got := mustRead(t, store, "30. Areas/Foo/FOO - Plan-1.md"); got != "renamed content" {
		t.Errorf("renamed note = %q", got)
	}
}

func TestRun_FixExtraBlocksAreNewFiles(t *testing.T) {
	f, store := newFiler(t)
	testutil.WriteNote(t, store, "a.md", "old")
	testutil.WriteNote(t, store, reviewDir+"/fix.md",
		proposal("librarian: file\ntarget-file: a.md",
			"%%FILE: index.md%%\nindex update\n%%FILE: a.md%%\nfixed"))

	res, err := f.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Written != 2 {
		t.Errorf("written = %d, want 2", res.Written)
	}
	if got := mustRead(t, store, "a.md"); got != "fixed" {
		t.Errorf("a.md = %q, primary block should update in place", got)
	}
	if got := mustRead(t, store, "index.md"); got != "index update" {
		t.Errorf("index.md = %q", got)
	}
}

func TestRun_TraversalPathRejectsWholeProposal(t *testing.T) {
	f, store := newFiler(t)
	prop := reviewDir + "/evil.md"
	testutil.WriteNote(t, store, prop,
		proposal("librarian: file",
			"%%FILE: ok.md%%\nfine\n%%FILE: ../escape.md%%\nbad"))

	res, err := f.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 1 || res.Filed != 0 {
		t.Errorf("result = %+v, want one failure", res)
	}
	if exists(t, store, "ok.md") {
		t.Error("no block may be written when any path is invalid")
	}
	if !exists(t, store, prop) {
		t.Error("rejected proposal must stay in the queue")
	}
}

func TestRun_NoFileBlocksRetainedAndReported(t *testing.T) {
	f, store := newFiler(t)
	prop := reviewDir + "/empty.md"
	testutil.WriteNote(t, store, prop,
		proposal("librarian: file", "the model rambled with no markers"))

	res, err := f.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 1 {
		t.Errorf("result = %+v, want one failure", res)
	}
	if !exists(t, store, prop) {
		t.Error("zero-block proposal must be retained")
	}
}

func TestRun_FailureDoesNotAbortBatch(t *testing.T) {
	f, store := newFiler(t)
	testutil.WriteNote(t, store, reviewDir+"/1-bad.md",
		proposal("librarian: file", "%%FILE: /abs.md%%\nbad"))
	testutil.WriteNote(t, store, reviewDir+"/2-good.md",
		proposal("librarian: file", "%%FILE: good.md%%\nfine"))

	res, err := f.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 1 || res.Filed != 1 {
		t.Errorf("result = %+v, want 1 failed and 1 filed", res)
	}
	if !exists(t, store, "good.md") {
		t.Error("later proposals must still be processed")
	}
}

func TestRun_EmitsFiledEvents(t *testing.T) {
	f, store := newFiler(t)
	var events []string
	f.OnEvent(func(event, path string) { events = append(events, event+":"+path) })
	testutil.WriteNote(t, store, reviewDir+"/p.md",
		proposal("librarian: file", "%%FILE: a.md%%\nx"))

	if _, err := f.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0] != "note.filed:a.md" {
		t.Errorf("events = %v", events)
	}
}
