// Package ledger persists the maintenance history: when each vault
// file was last scanned and last proposed for a fix, plus the time of
// the last maintenance run. The ledger backs the cooldown filter that
// keeps the fixer from re-proposing the same file every night.
package ledger

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/starford/librarian/internal/models"
	"github.com/starford/librarian/internal/storage"
)

// DefaultCooldownDays is the window during which a previously proposed
// file is excluded from re-proposal.
const DefaultCooldownDays = 7

// Entry is the per-file history record.
type Entry struct {
	LastScanned  string `json:"last_scanned,omitempty"`
	LastProposed string `json:"last_proposed,omitempty"`
	LastScore    int    `json:"last_score"`
}

type file struct {
	LastRun *string           `json:"last_run"`
	Files   map[string]*Entry `json:"files"`
}

// Ledger is an explicit handle over the on-disk history file. It is
// loaded once, mutated in memory, and written back wholesale by Save.
// Single-writer: concurrent processes sharing the file are not
// supported.
type Ledger struct {
	store  storage.Provider
	path   string
	logger *slog.Logger
	data   file

	now func() time.Time // swapped in tests
}

// Load reads the ledger at path (vault-relative) through store. A
// missing, unreadable or corrupt file resets to an empty ledger; that
// is logged, never fatal.
func Load(store storage.Provider, path string, logger *slog.Logger) *Ledger {
	l := &Ledger{
		store:  store,
		path:   path,
		logger: logger,
		data:   file{Files: map[string]*Entry{}},
		now:    time.Now,
	}

	raw, err := store.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("ledger: read failed, starting empty",
				slog.String("path", path), slog.String("error", err.Error()))
		}
		return l
	}
	var parsed file
	if err := json.Unmarshal(raw, &parsed); err != nil {
		logger.Warn("ledger: corrupt history, starting empty",
			slog.String("path", path), slog.String("error", err.Error()))
		return l
	}
	if parsed.Files == nil {
		parsed.Files = map[string]*Entry{}
	}
	l.data = parsed
	return l
}

// Save stamps last_run and writes the whole ledger back.
func (l *Ledger) Save() error {
	ts := l.now().Format(time.RFC3339)
	l.data.LastRun = &ts
	raw, err := json.MarshalIndent(l.data, "", "  ")
	if err != nil {
		return err
	}
	return l.store.Write(l.path, raw)
}

// LastRun returns the timestamp of the previous maintenance run, or
// the zero time when the ledger is fresh.
func (l *Ledger) LastRun() time.Time {
	if l.data.LastRun == nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, *l.data.LastRun)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CooldownActive reports whether path was proposed within the last
// days. Paths absent from the ledger are never in cooldown.
func (l *Ledger) CooldownActive(path string, days int) bool {
	e, ok := l.data.Files[path]
	if !ok || e.LastProposed == "" {
		return false
	}
	proposed, err := time.Parse(time.RFC3339, e.LastProposed)
	if err != nil {
		return false
	}
	return l.now().Sub(proposed) < time.Duration(days)*24*time.Hour
}

// FilterCandidates drops candidates currently in cooldown, preserving
// order.
func (l *Ledger) FilterCandidates(candidates []models.ScanCandidate, days int) []models.ScanCandidate {
	out := candidates[:0:0]
	for _, c := range candidates {
		if l.CooldownActive(c.Path, days) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// RecordScan upserts the entry for path with the current time and
// score. Stamping last_proposed here is what arms the cooldown.
func (l *Ledger) RecordScan(path string, score int) {
	e, ok := l.data.Files[path]
	if !ok {
		e = &Entry{}
		l.data.Files[path] = e
	}
	ts := l.now().Format(time.RFC3339)
	e.LastScanned = ts
	e.LastProposed = ts
	e.LastScore = score
}

// Entry returns the recorded history for path, if any.
func (l *Ledger) Entry(path string) (Entry, bool) {
	e, ok := l.data.Files[path]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}
