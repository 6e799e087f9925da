package index

import (
	"log/slog"
	"path"
	"path/filepath"

	"github.com/starford/librarian/internal/checksum"
	"github.com/starford/librarian/internal/parser"
	"github.com/starford/librarian/internal/storage"
	"github.com/starford/librarian/internal/vaultpath"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk (or newly excluded) are deleted from the index
//
// Paths under excluded directories (system, inbox, dotfolders) are never
// indexed.
func Sync(db *DB, store storage.Provider, excluded []string, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		if vaultpath.Excluded(m.Path, excluded) {
			continue
		}
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteNote(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexFile parses data and upserts it into the DB.
func indexFile(db *DB, rel string, data []byte) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	cs := checksum.Sum(data)

	folder := path.Dir(filepath.ToSlash(rel))
	if folder == "." {
		folder = ""
	}

	row := NoteRow{
		Path:     rel,
		Title:    res.Title,
		Checksum: cs,
		Tags:     res.Tags,
		Aliases:  res.Aliases,
		Code:     res.Code,
		Kind:     kindOf(res.Frontmatter),
		Folder:   folder,
	}
	return db.UpsertNote(row, res.Body, res.Links)
}

// kindOf reads the frontmatter "type" field used by registry notes
// (project, area, resource).
func kindOf(fm map[string]interface{}) string {
	if fm == nil {
		return ""
	}
	if s, ok := fm["type"].(string); ok {
		return s
	}
	return ""
}
