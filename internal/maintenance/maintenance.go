// Package maintenance runs the night-watchman pass: score the vault,
// drop cooled-down candidates, ask the model for fix proposals for the
// worst offenders, and record everything in the history ledger.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/starford/librarian/internal/ledger"
	"github.com/starford/librarian/internal/librarian"
	"github.com/starford/librarian/internal/llm"
	"github.com/starford/librarian/internal/models"
	"github.com/starford/librarian/internal/parser"
	"github.com/starford/librarian/internal/prompt"
	"github.com/starford/librarian/internal/scanner"
	"github.com/starford/librarian/internal/storage"
	"github.com/starford/librarian/internal/vaultpath"
)

// DefaultTopN caps how many fix proposals one pass generates.
const DefaultTopN = 20

// Config tunes one maintenance pass.
type Config struct {
	ScanDirs     []string
	Excluded     []string
	ReviewDir    string
	CooldownDays int // 0 means ledger.DefaultCooldownDays
	TopN         int // 0 means DefaultTopN
}

// Notifier receives maintenance events. Optional.
type Notifier func(event string, path string)

// Runner wires scanner, ledger, model and filer-side conventions into
// the maintenance pipeline.
type Runner struct {
	store   storage.Provider
	model   llm.Model
	ledger  *ledger.Ledger
	service *librarian.Service
	cfg     Config
	logger  *slog.Logger
	notify  Notifier
}

// New creates a Runner. The librarian service supplies the registry,
// context and skeleton.
func New(store storage.Provider, model llm.Model, led *ledger.Ledger, svc *librarian.Service, cfg Config, logger *slog.Logger) *Runner {
	if cfg.CooldownDays <= 0 {
		cfg.CooldownDays = ledger.DefaultCooldownDays
	}
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	return &Runner{
		store:   store,
		model:   model,
		ledger:  led,
		service: svc,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "maintenance")),
	}
}

// OnEvent installs a notifier.
func (r *Runner) OnEvent(n Notifier) { r.notify = n }

// Audit scans and scores without touching the ledger or the model:
// the read-only view of what a full run would work on, sorted by score
// descending.
func (r *Runner) Audit() ([]models.ScanCandidate, error) {
	registry, err := r.service.RegistryMap()
	if err != nil {
		return nil, err
	}
	candidates, err := scanner.Scan(r.store, scanner.Config{
		ScanDirs: r.cfg.ScanDirs,
		Excluded: r.cfg.Excluded,
		Registry: registry,
	}, r.logger)
	if err != nil {
		return nil, err
	}
	sortByScore(candidates)
	return candidates, nil
}

// Result counts one maintenance pass.
type Result struct {
	Scanned  int // candidates with a positive score
	Cooled   int // dropped by the cooldown filter
	Proposed int // fix proposals written
	Failed   int // candidates whose proposal failed
}

// Run executes the full pass. Every attempted candidate is recorded in
// the ledger (success or not) so the cooldown keeps noisy files quiet,
// and the ledger is saved once at the end.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	candidates, err := r.Audit()
	if err != nil {
		return Result{}, err
	}

	var res Result
	res.Scanned = len(candidates)

	survivors := r.ledger.FilterCandidates(candidates, r.cfg.CooldownDays)
	res.Cooled = len(candidates) - len(survivors)
	if len(survivors) > r.cfg.TopN {
		survivors = survivors[:r.cfg.TopN]
	}
	if len(survivors) == 0 {
		r.logger.Info("vault is clean, nothing to propose")
		if err := r.ledger.Save(); err != nil {
			return res, fmt.Errorf("maintenance: save ledger: %w", err)
		}
		return res, nil
	}

	vaultCtx := r.service.Context()
	skeleton, err := r.service.Skeleton()
	if err != nil {
		r.logger.Warn("skeleton unavailable", slog.String("error", err.Error()))
	}

	for _, cand := range survivors {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := r.fixOne(ctx, cand, vaultCtx, skeleton); err != nil {
			res.Failed++
			r.logger.Error("fix proposal failed",
				slog.String("path", cand.Path),
				slog.String("error", err.Error()))
		} else {
			res.Proposed++
		}
		r.ledger.RecordScan(cand.Path, cand.Score)
	}

	if err := r.ledger.Save(); err != nil {
		return res, fmt.Errorf("maintenance: save ledger: %w", err)
	}
	r.emit("maintenance.completed", "")
	r.logger.Info("maintenance pass done",
		slog.Int("scanned", res.Scanned),
		slog.Int("cooled", res.Cooled),
		slog.Int("proposed", res.Proposed),
		slog.Int("failed", res.Failed))
	return res, nil
}

// fixOne asks the model for a fix and writes the proposal note.
func (r *Runner) fixOne(ctx context.Context, cand models.ScanCandidate, vaultCtx, skeleton string) error {
	raw, err := r.store.Read(cand.Path)
	if err != nil {
		return err
	}

	r.logger.Info("generating fix",
		slog.String("path", cand.Path),
		slog.Int("score", cand.Score),
		slog.String("reasons", strings.Join(cand.Reasons, ", ")))

	response, err := r.model.GenerateProposal(ctx, llm.ProposalRequest{
		Instructions: prompt.Maintenance(cand.Reasons, cand.ExpectedCode),
		Body:         string(raw),
		Context:      vaultCtx,
		Skeleton:     skeleton,
	})
	if err != nil {
		return err
	}

	meta := models.ProposalMeta{
		Librarian:  models.StateReview,
		TargetFile: cand.Path,
		Type:       models.TypeFileChange,
		Score:      cand.Score,
		Reason:     strings.Join(cand.Reasons, ", "),
	}
	note, err := parser.Compose(meta, response)
	if err != nil {
		return err
	}

	target, err := r.proposalPath(cand.Path)
	if err != nil {
		return err
	}
	if err := r.store.Write(target, note); err != nil {
		return err
	}
	r.emit("proposal.created", target)
	return nil
}

// proposalPath builds "Refactor - <stem>.md" in the Review Queue with
// collision avoidance (same stem can exist in different folders).
func (r *Runner) proposalPath(candidate string) (string, error) {
	name := "Refactor - " + vaultpath.SanitizeName(vaultpath.Stem(candidate))
	rel := r.cfg.ReviewDir + "/" + name + ".md"

	exists, err := r.store.Exists(rel)
	if err != nil {
		return "", err
	}
	if !exists {
		return rel, nil
	}
	for n := 1; ; n++ {
		cand := vaultpath.WithSuffix(rel, n)
		exists, err := r.store.Exists(cand)
		if err != nil {
			return "", err
		}
		if !exists {
			return cand, nil
		}
	}
}

func sortByScore(cs []models.ScanCandidate) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].Score > cs[j].Score })
}

func (r *Runner) emit(event, path string) {
	if r.notify != nil {
		r.notify(event, path)
	}
}
