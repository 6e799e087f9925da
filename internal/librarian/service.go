// Package librarian implements the ingest pipeline: capture notes are
// sent to the model with vault context and come back as review-queue
// proposals. It also maintains the code-registry note derived from the
// index.
package librarian

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/librarian/internal/index"
	"github.com/starford/librarian/internal/llm"
	"github.com/starford/librarian/internal/models"
	"github.com/starford/librarian/internal/parser"
	"github.com/starford/librarian/internal/prompt"
	"github.com/starford/librarian/internal/storage"
	"github.com/starford/librarian/internal/vaultpath"
)

// Config holds the vault layout the service works against.
type Config struct {
	CaptureDir   string
	ReviewDir    string
	ScanDirs     []string
	Sources      prompt.Sources
	RegistryNote string
}

// Notifier receives pipeline events ("note.ingested",
// "proposal.created"). Optional.
type Notifier func(event string, path string)

// Service coordinates storage, index and model for the ingest side.
type Service struct {
	store  storage.Provider
	db     index.NoteIndex
	model  llm.Model
	cfg    Config
	logger *slog.Logger
	notify Notifier
}

// New creates the service.
func New(store storage.Provider, db index.NoteIndex, model llm.Model, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		db:     db,
		model:  model,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "librarian")),
	}
}

// OnEvent installs a notifier for ingest events.
func (s *Service) OnEvent(n Notifier) { s.notify = n }

// IngestResult counts one ingest pass.
type IngestResult struct {
	Ingested int
	Failed   int
}

// Ingest processes every Markdown file in the Capture folder: each is
// sent to the model together with the vault context and skeleton, and
// the raw response is written to the Review Queue as a proposal with
// `librarian: review`. The capture note is deleted only after its
// proposal landed; a model or write failure leaves it in place for the
// next run.
func (s *Service) Ingest(ctx context.Context) (IngestResult, error) {
	captures, err := s.store.ListDir(s.cfg.CaptureDir)
	if err != nil {
		return IngestResult{}, fmt.Errorf("librarian: list capture: %w", err)
	}
	if len(captures) == 0 {
		return IngestResult{}, nil
	}

	vaultCtx := prompt.Context(s.store, s.cfg.Sources, s.logger)
	skeleton, err := s.Skeleton()
	if err != nil {
		s.logger.Warn("skeleton unavailable", slog.String("error", err.Error()))
		skeleton = ""
	}

	var res IngestResult
	for _, capture := range captures {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := s.ingestOne(ctx, capture, vaultCtx, skeleton); err != nil {
			res.Failed++
			s.logger.Error("ingest failed, capture retained",
				slog.String("capture", capture),
				slog.String("error", err.Error()))
			continue
		}
		res.Ingested++
	}
	return res, nil
}

func (s *Service) ingestOne(ctx context.Context, capture, vaultCtx, skeleton string) error {
	raw, err := s.store.Read(capture)
	if err != nil {
		return err
	}
	parsed, err := parser.Parse(raw)
	if err != nil {
		return err
	}

	s.logger.Info("processing capture", slog.String("capture", capture))

	// Any frontmatter the user scribbled on the capture is dropped;
	// the model proposes fresh metadata.
	response, err := s.model.GenerateProposal(ctx, llm.ProposalRequest{
		Instructions: prompt.IngestInstructions,
		Body:         parsed.Body,
		Context:      vaultCtx,
		Skeleton:     skeleton,
	})
	if err != nil {
		return err
	}

	target, err := s.proposalPath(capture, response)
	if err != nil {
		return err
	}

	meta := models.ProposalMeta{
		Librarian: models.StateReview,
		Type:      models.TypeIngestion,
		Source:    vaultpath.Stem(capture) + ".md",
	}
	note, err := parser.Compose(meta, response)
	if err != nil {
		return err
	}
	if err := s.store.Write(target, note); err != nil {
		return err
	}
	s.emit("proposal.created", target)

	if err := s.store.Delete(capture); err != nil {
		return fmt.Errorf("librarian: delete capture after proposal: %w", err)
	}
	s.emit("note.ingested", capture)
	s.logger.Info("proposal written",
		slog.String("capture", capture), slog.String("proposal", target))
	return nil
}

// proposalPath names the proposal after the first file block the model
// suggested, sanitized and collision-avoided; when the response has no
// blocks the capture filename is reused.
func (s *Service) proposalPath(capture, response string) (string, error) {
	stem := vaultpath.Stem(capture)
	if parsed := parser.ParseResponse(response); len(parsed.Files) > 0 {
		stem = vaultpath.Stem(parsed.Files[0].Path)
	}
	rel := s.cfg.ReviewDir + "/" + vaultpath.SanitizeName(stem) + ".md"

	exists, err := s.store.Exists(rel)
	if err != nil {
		return "", err
	}
	if !exists {
		return rel, nil
	}
	for n := 1; ; n++ {
		cand := vaultpath.WithSuffix(rel, n)
		exists, err := s.store.Exists(cand)
		if err != nil {
			return "", err
		}
		if !exists {
			return cand, nil
		}
	}
}

// Skeleton renders the current link targets from the index.
func (s *Service) Skeleton() (string, error) {
	rows, err := s.db.AllNotes()
	if err != nil {
		return "", err
	}
	return prompt.Skeleton(rows, s.cfg.ScanDirs), nil
}

// Context returns the aggregated vault context blob.
func (s *Service) Context() string {
	return prompt.Context(s.store, s.cfg.Sources, s.logger)
}

// RegistryMap returns folder to expected project code, derived from
// notes that declare a `code` in their frontmatter. The first note per
// folder wins.
func (s *Service) RegistryMap() (map[string]string, error) {
	entries, err := s.db.Registry()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		if _, ok := out[e.Folder]; !ok {
			out[e.Folder] = e.Code
		}
	}
	return out, nil
}

// RegistryTable renders the code registry as a Markdown table sorted
// by folder.
func (s *Service) RegistryTable() (string, error) {
	entries, err := s.db.Registry()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("| Code | Name | Type | Folder |\n")
	b.WriteString("| :--- | :--- | :--- | :--- |\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", e.Code, e.Name, e.Type, e.Folder)
	}
	return b.String(), nil
}

// WriteRegistryNote rebuilds the registry note in the vault and
// returns its path.
func (s *Service) WriteRegistryNote() (string, error) {
	table, err := s.RegistryTable()
	if err != nil {
		return "", err
	}
	content := "# Code Registry\n\n" + table
	if err := s.store.Write(s.cfg.RegistryNote, []byte(content)); err != nil {
		return "", err
	}
	s.logger.Info("registry note rebuilt", slog.String("path", s.cfg.RegistryNote))
	return s.cfg.RegistryNote, nil
}

func (s *Service) emit(event, path string) {
	if s.notify != nil {
		s.notify(event, path)
	}
}
