// Package gitops commits and pushes vault changes after a pipeline
// run. It uses go-git directly; nothing shells out.
package gitops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Default commit author for automated commits.
const (
	DefaultAuthorName  = "Obsidian Librarian"
	DefaultAuthorEmail = "librarian@automation.local"
)

// Repo wraps the vault's git repository.
type Repo struct {
	repo   *git.Repository
	name   string
	email  string
	logger *slog.Logger
}

// Open opens the repository at path. Author fields fall back to the
// librarian defaults when empty.
func Open(path, authorName, authorEmail string, logger *slog.Logger) (*Repo, error) {
	r, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("gitops: open %s: %w", path, err)
	}
	if authorName == "" {
		authorName = DefaultAuthorName
	}
	if authorEmail == "" {
		authorEmail = DefaultAuthorEmail
	}
	return &Repo{
		repo:   r,
		name:   authorName,
		email:  authorEmail,
		logger: logger.With(slog.String("component", "gitops")),
	}, nil
}

// CommitAll stages everything (including deletions and untracked
// files) and commits with the configured author. A clean tree commits
// nothing and returns false.
func (r *Repo) CommitAll(message string) (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("gitops: worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("gitops: status: %w", err)
	}
	if status.IsClean() {
		r.logger.Debug("nothing to commit")
		return false, nil
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return false, fmt.Errorf("gitops: stage: %w", err)
	}
	sig := &object.Signature{Name: r.name, Email: r.email, When: time.Now()}
	hash, err := wt.Commit(message, &git.CommitOptions{Author: sig, Committer: sig})
	if err != nil {
		return false, fmt.Errorf("gitops: commit: %w", err)
	}
	r.logger.Info("committed",
		slog.String("hash", hash.String()[:8]),
		slog.String("message", message))
	return true, nil
}

// Push pushes to the named remote ("origin" when empty). Already
// up-to-date is not an error.
func (r *Repo) Push(ctx context.Context, remote string) error {
	if remote == "" {
		remote = "origin"
	}
	err := r.repo.PushContext(ctx, &git.PushOptions{RemoteName: remote})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("gitops: push %s: %w", remote, err)
	}
	r.logger.Info("pushed", slog.String("remote", remote))
	return nil
}

// CommitMessage renders the standard librarian commit message. The
// [skip ci] suffix keeps the vault's own CI from reacting to
// automation commits.
func CommitMessage(filed, ingested int) string {
	return fmt.Sprintf("Librarian: filed %d, ingested %d [skip ci]", filed, ingested)
}
