// Package scanner assigns quality-deficit scores to vault files. The
// rule table is fixed and deterministic: every triggered rule adds its
// points and a human-readable reason, and only files with a positive
// score come back as candidates.
package scanner

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/librarian/internal/models"
	"github.com/starford/librarian/internal/parser"
	"github.com/starford/librarian/internal/storage"
	"github.com/starford/librarian/internal/vaultpath"
)

// Rule points.
const (
	PointsMissingMeta = 10
	PointsMissingCode = 50
	PointsGenericName = 20
)

// Reason strings carried on candidates and into proposal frontmatter.
const (
	ReasonMissingMeta = "Missing aliases/tags"
	ReasonMissingCode = "Missing Project Code"
	ReasonGenericName = "Generic Filename"
)

// genericStems are filename stems that say nothing about the note.
var genericStems = map[string]struct{}{
	"untitled": {},
	"meeting":  {},
	"note":     {},
	"call":     {},
}

// Config describes one scan pass.
type Config struct {
	// ScanDirs are the vault-relative subtrees to score.
	ScanDirs []string
	// Excluded directory names are skipped at any depth.
	Excluded []string
	// Registry maps vault-relative folder paths to their expected
	// project code. The nearest registered ancestor of a file wins.
	Registry map[string]string
}

// Scan walks the configured subtrees and scores every Markdown file.
// Files that fail to read or parse are skipped, not fatal.
func Scan(store storage.Provider, cfg Config, logger *slog.Logger) ([]models.ScanCandidate, error) {
	var out []models.ScanCandidate
	for _, dir := range cfg.ScanDirs {
		ok, err := store.Exists(dir)
		if err != nil {
			return nil, fmt.Errorf("scanner: stat %s: %w", dir, err)
		}
		if !ok {
			logger.Debug("scanner: skipping missing scan dir", slog.String("dir", dir))
			continue
		}
		metas, err := store.List(dir)
		if err != nil {
			return nil, fmt.Errorf("scanner: list %s: %w", dir, err)
		}
		for _, m := range metas {
			if vaultpath.Excluded(m.Path, cfg.Excluded) {
				continue
			}
			c, err := ScoreFile(store, m.Path, cfg.Registry)
			if err != nil {
				logger.Debug("scanner: skipping unreadable file",
					slog.String("path", m.Path), slog.String("error", err.Error()))
				continue
			}
			if c.Score > 0 {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

// ScoreFile applies the rule table to a single file.
func ScoreFile(store storage.Provider, rel string, registry map[string]string) (models.ScanCandidate, error) {
	data, err := store.Read(rel)
	if err != nil {
		return models.ScanCandidate{}, err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return models.ScanCandidate{}, err
	}

	c := models.ScanCandidate{Path: rel}
	stem := vaultpath.Stem(rel)

	if len(res.Aliases) == 0 && len(res.Tags) == 0 {
		c.Score += PointsMissingMeta
		c.Reasons = append(c.Reasons, ReasonMissingMeta)
	}

	if code := expectedCode(rel, registry); code != "" {
		c.ExpectedCode = code
		if !strings.HasPrefix(stem, code) {
			c.Score += PointsMissingCode
			c.Reasons = append(c.Reasons, ReasonMissingCode)
		}
	}

	if _, ok := genericStems[strings.ToLower(stem)]; ok {
		c.Score += PointsGenericName
		c.Reasons = append(c.Reasons, ReasonGenericName)
	}

	return c, nil
}

// expectedCode walks from the file's parent folder upward toward the
// vault root; the first ancestor present in the registry wins, so the
// most specific folder decides.
func expectedCode(rel string, registry map[string]string) string {
	folder := path.Dir(filepath.ToSlash(rel))
	for folder != "." && folder != "/" && folder != "" {
		if code, ok := registry[folder]; ok {
			return code
		}
		folder = path.Dir(folder)
	}
	return ""
}
