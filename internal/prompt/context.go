package prompt

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/librarian/internal/index"
	"github.com/starford/librarian/internal/storage"
	"github.com/starford/librarian/internal/vaultpath"
)

// Sources names the vault notes that feed the model context.
type Sources struct {
	Instructions string // system instructions note
	Glossary     string // tag glossary note
	Registry     string // code registry note
}

// Context aggregates the context notes into one labelled blob. A
// missing note degrades to a logged placeholder, never an error: the
// pipeline still runs on a half-configured vault.
func Context(store storage.Provider, src Sources, logger *slog.Logger) string {
	section := func(rel string) string {
		if rel == "" {
			return "[not configured]"
		}
		data, err := store.Read(rel)
		if err != nil {
			logger.Warn("prompt: context note unavailable",
				slog.String("path", rel), slog.String("error", err.Error()))
			return fmt.Sprintf("[missing: %s]", rel)
		}
		return string(data)
	}

	var b strings.Builder
	b.WriteString("=== SYSTEM INSTRUCTIONS ===\n")
	b.WriteString(section(src.Instructions))
	b.WriteString("\n\n=== TAG GLOSSARY ===\n")
	b.WriteString(section(src.Glossary))
	b.WriteString("\n\n=== CODE REGISTRY ===\n")
	b.WriteString(section(src.Registry))
	b.WriteString("\n")
	return b.String()
}

// Skeleton renders the indexed notes as a list of valid link targets,
// one line per note, limited to the scan roots:
//
//   - [[Title]] (relative/path.md) [Aliases: a, b]
//
// Notes without a title fall back to their filename stem.
func Skeleton(rows []index.NoteRow, scanDirs []string) string {
	var b strings.Builder
	for _, dir := range scanDirs {
		prefix := strings.TrimSuffix(dir, "/") + "/"
		for _, n := range rows {
			if !strings.HasPrefix(n.Path, prefix) {
				continue
			}
			title := n.Title
			if title == "" {
				title = vaultpath.Stem(n.Path)
			}
			fmt.Fprintf(&b, "- [[%s]] (%s)", title, n.Path)
			if len(n.Aliases) > 0 {
				fmt.Fprintf(&b, " [Aliases: %s]", strings.Join(n.Aliases, ", "))
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}
