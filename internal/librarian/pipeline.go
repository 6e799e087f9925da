package librarian

import (
	"context"
	"log/slog"

	"github.com/starford/librarian/internal/filer"
	"github.com/starford/librarian/internal/gitops"
)

// Pipeline is one full librarian pass: file approved proposals, ingest
// new captures, then commit the resulting vault changes.
type Pipeline struct {
	Filer    *filer.Filer
	Ingestor *Service
	Git      *gitops.Repo // nil disables git integration
	Push     bool
	Remote   string
	Logger   *slog.Logger
}

// PipelineResult aggregates both phases.
type PipelineResult struct {
	Filed     filer.Result
	Ingested  IngestResult
	Committed bool
}

// Run executes the pass. Git failures are logged, not fatal: the vault
// changes are already on disk and the next run will pick them up.
func (p *Pipeline) Run(ctx context.Context) (PipelineResult, error) {
	var res PipelineResult

	filed, err := p.Filer.Run(ctx)
	if err != nil {
		return res, err
	}
	res.Filed = filed

	ingested, err := p.Ingestor.Ingest(ctx)
	if err != nil {
		return res, err
	}
	res.Ingested = ingested

	if p.Git == nil || res.Filed.Filed+res.Ingested.Ingested == 0 {
		return res, nil
	}

	msg := gitops.CommitMessage(res.Filed.Filed, res.Ingested.Ingested)
	committed, err := p.Git.CommitAll(msg)
	if err != nil {
		p.Logger.Error("commit failed", slog.String("error", err.Error()))
		return res, nil
	}
	res.Committed = committed
	if committed && p.Push {
		if err := p.Git.Push(ctx, p.Remote); err != nil {
			p.Logger.Error("push failed", slog.String("error", err.Error()))
		}
	}
	return res, nil
}
