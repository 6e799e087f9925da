package gitops

import (
	"os"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"

	"github.com/starford/librarian/internal/testutil"
)

func initRepo(t *testing.T) (string, *Repo) {
	t.Helper()
	dir := t.TempDir()
	if _, err := git.PlainInit(dir, false); err != nil {
		t.Fatal(err)
	}
	r, err := Open(dir, "", "", testutil.Logger(t))
	if err != nil {
		t.Fatal(err)
	}
	return dir, r
}

func TestCommitAll_CleanTreeCommitsNothing(t *testing.T) {
	_, r := initRepo(t)
	committed, err := r.CommitAll("noop")
	if err != nil {
		t.Fatal(err)
	}
	if committed {
		t.Error("clean tree must not commit")
	}
}

func TestCommitAll_StagesUntrackedAndDeletions(t *testing.T) {
	dir, r := initRepo(t)
	if err := os.WriteFile(filepath.Join(dir, "note.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	committed, err := r.CommitAll(CommitMessage(1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if !committed {
		t.Fatal("expected a commit")
	}

	repo, err := git.PlainOpen(dir)
	if err != nil {
		t.Fatal(err)
	}
	head, err := repo.Head()
	if err != nil {
		t.Fatal(err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		t.Fatal(err)
	}
	if commit.Message != "Librarian: filed 1, ingested 0 [skip ci]" {
		t.Errorf("message = %q", commit.Message)
	}
	if commit.Author.Name != DefaultAuthorName || commit.Author.Email != DefaultAuthorEmail {
		t.Errorf("author = %s <%s>", commit.Author.Name, commit.Author.Email)
	}

	// Deleting the file dirties the tree again.
	if err := os.Remove(filepath.Join(dir, "note.md")); err != nil {
		t.Fatal(err)
	}
	committed, err = r.CommitAll("remove note")
	if err != nil {
		t.Fatal(err)
	}
	if !committed {
		t.Error("deletion should be staged and committed")
	}
}
