package api

import (
	"context"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/starford/librarian/internal/apperr"
	"github.com/starford/librarian/internal/filer"
	"github.com/starford/librarian/internal/index"
	"github.com/starford/librarian/internal/ledger"
	"github.com/starford/librarian/internal/librarian"
	"github.com/starford/librarian/internal/maintenance"
	"github.com/starford/librarian/internal/models"
	"github.com/starford/librarian/internal/parser"
	"github.com/starford/librarian/internal/storage"
)

// Service exposes the pipeline to the HTTP and MCP surfaces. Mutating
// runs are serialized through a mutex so an HTTP trigger, the watcher
// and the cron schedule never write the vault concurrently.
type Service struct {
	store     storage.Provider
	db        index.NoteIndex
	pipeline  *librarian.Pipeline
	runner    *maintenance.Runner
	led       *ledger.Ledger
	reviewDir string

	runMu sync.Mutex
}

// Deps wires the service.
type Deps struct {
	Store       storage.Provider
	Index       index.NoteIndex
	Pipeline    *librarian.Pipeline
	Maintenance *maintenance.Runner
	Ledger      *ledger.Ledger
	ReviewDir   string
}

// NewService creates a new pipeline service.
func NewService(d Deps) *Service {
	return &Service{
		store:     d.Store,
		db:        d.Index,
		pipeline:  d.Pipeline,
		runner:    d.Maintenance,
		led:       d.Ledger,
		reviewDir: d.ReviewDir,
	}
}

// Status is a snapshot of the vault and pipeline state.
type Status struct {
	Notes           int       `json:"notes"`
	PendingReview   int       `json:"pending_review"`
	Approved        int       `json:"approved"`
	LastMaintenance time.Time `json:"last_maintenance,omitempty"`
}

// Status reports indexed note count, review-queue composition and the
// last maintenance run.
func (s *Service) Status() (*Status, error) {
	count, err := s.db.Count()
	if err != nil {
		return nil, err
	}
	proposals, err := s.Proposals()
	if err != nil {
		return nil, err
	}
	st := &Status{Notes: count}
	for _, p := range proposals {
		switch p.State {
		case models.StateFile:
			st.Approved++
		default:
			st.PendingReview++
		}
	}
	if s.led != nil {
		st.LastMaintenance = s.led.LastRun()
	}
	return st, nil
}

// Proposal is one review-queue entry.
type Proposal struct {
	Path       string `json:"path"`
	State      string `json:"state"`
	Type       string `json:"type,omitempty"`
	TargetFile string `json:"target_file,omitempty"`
	Source     string `json:"source,omitempty"`
	Score      int    `json:"score,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Proposals lists the review queue, sorted by path. Notes without a
// librarian key are skipped: the queue folder can hold scratch files.
func (s *Service) Proposals() ([]Proposal, error) {
	paths, err := s.store.ListDir(s.reviewDir)
	if err != nil {
		return nil, fmt.Errorf("api: list review queue: %w", err)
	}
	out := make([]Proposal, 0, len(paths))
	for _, p := range paths {
		raw, err := s.store.Read(p)
		if err != nil {
			continue
		}
		res, err := parser.Parse(raw)
		if err != nil {
			continue
		}
		meta := models.ProposalMetaFromMap(res.Frontmatter)
		if meta.Librarian == "" {
			continue
		}
		out = append(out, Proposal{
			Path:       p,
			State:      meta.Librarian,
			Type:       meta.Type,
			TargetFile: meta.TargetFile,
			Source:     meta.Source,
			Score:      meta.Score,
			Reason:     meta.Reason,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Approve flips a proposal from review to file. The path may be given
// relative to the review queue or as a full vault path.
func (s *Service) Approve(rel string) (*Proposal, error) {
	full := rel
	if path.Dir(rel) == "." {
		full = path.Join(s.reviewDir, rel)
	}
	raw, err := s.store.Read(full)
	if err != nil {
		return nil, fmt.Errorf("api: read proposal: %w", err)
	}
	res, err := parser.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("api: parse proposal: %w", err)
	}
	meta := models.ProposalMetaFromMap(res.Frontmatter)
	if meta.Librarian == "" {
		return nil, fmt.Errorf("api: %s: %w", full, apperr.ErrNotFound)
	}
	if !meta.Approved() {
		meta.Librarian = models.StateFile
		data, err := parser.Compose(meta, res.Body)
		if err != nil {
			return nil, fmt.Errorf("api: compose proposal: %w", err)
		}
		if err := s.store.Write(full, data); err != nil {
			return nil, fmt.Errorf("api: write proposal: %w", err)
		}
	}
	return &Proposal{
		Path:       full,
		State:      models.StateFile,
		Type:       meta.Type,
		TargetFile: meta.TargetFile,
		Source:     meta.Source,
		Score:      meta.Score,
		Reason:     meta.Reason,
	}, nil
}

// RunPipeline executes one full pass: file approved proposals, ingest
// captures, commit.
func (s *Service) RunPipeline(ctx context.Context) (librarian.PipelineResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.pipeline.Run(ctx)
}

// RunIngest runs only the ingest phase.
func (s *Service) RunIngest(ctx context.Context) (librarian.IngestResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.pipeline.Ingestor.Ingest(ctx)
}

// RunFiler runs only the filing phase.
func (s *Service) RunFiler(ctx context.Context) (filer.Result, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.pipeline.Filer.Run(ctx)
}

// RunMaintenance executes one maintenance pass.
func (s *Service) RunMaintenance(ctx context.Context) (maintenance.Result, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.runner.Run(ctx)
}

// Audit returns the scored candidates a maintenance run would work on,
// without side effects.
func (s *Service) Audit() ([]models.ScanCandidate, error) {
	return s.runner.Audit()
}

// Search delegates to the note index.
func (s *Service) Search(query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Backlinks returns the paths of every note that links to target.
func (s *Service) Backlinks(target string) ([]string, error) {
	return s.db.Backlinks(target)
}
