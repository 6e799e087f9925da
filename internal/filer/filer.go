// Package filer executes approved proposals from the Review Queue.
//
// A proposal is acted on only when a human has set `librarian: file`
// in its frontmatter. Proposals without a target-file create new notes
// with unconditional collision avoidance; proposals carrying a
// target-file fix an existing note, either in place or by rename.
// The proposal file is deleted only after every write succeeded, so a
// failed proposal stays in the queue for retry.
package filer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/librarian/internal/apperr"
	"github.com/starford/librarian/internal/models"
	"github.com/starford/librarian/internal/parser"
	"github.com/starford/librarian/internal/storage"
	"github.com/starford/librarian/internal/vaultpath"
)

// Result counts the outcome of one filer pass.
type Result struct {
	Filed   int // proposals executed and deleted
	Written int // files created or updated
	Failed  int // proposals left in the queue after an error
}

// Notifier receives a "note.filed" style event per written file.
// Optional.
type Notifier func(event string, path string)

// Filer scans the Review Queue and executes approved proposals.
type Filer struct {
	store     storage.Provider
	reviewDir string
	logger    *slog.Logger
	notify    Notifier
}

// New creates a Filer over the given review directory (vault-relative).
func New(store storage.Provider, reviewDir string, logger *slog.Logger) *Filer {
	return &Filer{
		store:     store,
		reviewDir: reviewDir,
		logger:    logger.With(slog.String("component", "filer")),
	}
}

// OnEvent installs a notifier for filed-note events.
func (f *Filer) OnEvent(n Notifier) { f.notify = n }

// Run processes every proposal in the Review Queue. A failing proposal
// is counted and skipped; it never aborts the batch.
func (f *Filer) Run(ctx context.Context) (Result, error) {
	proposals, err := f.store.ListDir(f.reviewDir)
	if err != nil {
		return Result{}, fmt.Errorf("filer: list review queue: %w", err)
	}

	var res Result
	for _, prop := range proposals {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		written, err := f.execute(prop)
		switch {
		case err == nil && written == 0:
			// Not approved; inert, not a failure.
		case err == nil:
			res.Filed++
			res.Written += written
		default:
			res.Failed++
			f.logger.Error("proposal failed, retained",
				slog.String("proposal", prop),
				slog.String("error", err.Error()))
		}
	}
	return res, nil
}

// execute runs the state machine for one proposal. It returns the
// number of files written; (0, nil) means the proposal was not
// approved and was left untouched.
func (f *Filer) execute(prop string) (int, error) {
	raw, err := f.store.Read(prop)
	if err != nil {
		return 0, err
	}
	res, err := parser.Parse(raw)
	if err != nil {
		return 0, err
	}
	meta := models.ProposalMetaFromMap(res.Frontmatter)
	if !meta.Approved() {
		return 0, nil
	}

	f.logger.Info("executing proposal", slog.String("proposal", prop))

	parsed := parser.ParseResponse(res.Body)
	for _, line := range parsed.Skipped {
		f.logger.Warn("skipped malformed file marker",
			slog.String("proposal", prop), slog.String("marker", line))
	}
	if len(parsed.Files) == 0 {
		return 0, fmt.Errorf("%w: %s", apperr.ErrNoFileBlocks, prop)
	}

	// Validate every path up front; one bad path rejects the whole
	// proposal before anything touches disk.
	for _, blk := range parsed.Files {
		if err := vaultpath.Validate(blk.Path); err != nil {
			return 0, err
		}
	}

	var written int
	if meta.IsFix() {
		written, err = f.applyFix(meta.TargetFile, parsed.Files)
	} else {
		written, err = f.writeNew(parsed.Files)
	}
	if err != nil {
		return 0, err
	}

	if err := f.store.Delete(prop); err != nil {
		return 0, fmt.Errorf("filer: delete consumed proposal: %w", err)
	}
	f.logger.Info("proposal filed",
		slog.String("proposal", prop), slog.Int("files", written))
	return written, nil
}

// writeNew files every block as a brand-new note with collision
// avoidance.
func (f *Filer) writeNew(blocks []models.FileBlock) (int, error) {
	var written int
	for _, blk := range blocks {
		target, err := f.availablePath(blk.Path)
		if err != nil {
			return written, err
		}
		if err := f.store.Write(target, []byte(blk.Content)); err != nil {
			return written, err
		}
		written++
		f.emit("note.filed", target)
	}
	return written, nil
}

// applyFix handles proposals that target an existing file. The primary
// block is the one whose path equals the target (in-place update, no
// suffix) or, when none matches, the first block (rename: the original
// is deleted and the new path gets collision protection). Any further
// blocks are ordinary new files.
func (f *Filer) applyFix(target string, blocks []models.FileBlock) (int, error) {
	primary := 0
	inPlace := false
	for i, blk := range blocks {
		if blk.Path == target {
			primary = i
			inPlace = true
			break
		}
	}

	var written int
	blk := blocks[primary]
	dest := blk.Path
	if inPlace {
		// Same logical file; overwriting is the reviewed intent.
		if err := f.store.Write(dest, []byte(blk.Content)); err != nil {
			return 0, err
		}
	} else {
		if exists, err := f.store.Exists(target); err != nil {
			return 0, err
		} else if exists {
			if err := f.store.Delete(target); err != nil {
				return 0, err
			}
			f.logger.Info("deleted original", slog.String("path", target))
		}
		var err error
		dest, err = f.availablePath(blk.Path)
		if err != nil {
			return 0, err
		}
		if err := f.store.Write(dest, []byte(blk.Content)); err != nil {
			return 0, err
		}
	}
	written++
	f.emit("note.filed", dest)

	rest := make([]models.FileBlock, 0, len(blocks)-1)
	rest = append(rest, blocks[:primary]...)
	rest = append(rest, blocks[primary+1:]...)
	n, err := f.writeNew(rest)
	return written + n, err
}

// availablePath returns rel unchanged when free, otherwise the first
// "-N" suffixed sibling that is unused. Never overwrites.
func (f *Filer) availablePath(rel string) (string, error) {
	exists, err := f.store.Exists(rel)
	if err != nil {
		return "", err
	}
	if !exists {
		return rel, nil
	}
	for n := 1; ; n++ {
		cand := vaultpath.WithSuffix(rel, n)
		exists, err := f.store.Exists(cand)
		if err != nil {
			return "", err
		}
		if !exists {
			f.logger.Info("collision avoided",
				slog.String("wanted", rel), slog.String("using", cand))
			return cand, nil
		}
	}
}

func (f *Filer) emit(event, path string) {
	if f.notify != nil {
		f.notify(event, path)
	}
}
