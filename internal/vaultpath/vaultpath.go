// Package vaultpath provides pure helpers for vault-relative paths:
// traversal validation, exclusion matching, collision suffixes and
// filename sanitization. Nothing here touches the file system.
package vaultpath

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/starford/librarian/internal/apperr"
)

var (
	invalidCharRe = regexp.MustCompile(`[^a-zA-Z0-9 .\-_()]`)
	dashRunRe     = regexp.MustCompile(`[-_\s]+`)
)

// MaxNameLen caps sanitized filename stems.
const MaxNameLen = 200

// Validate rejects paths that could escape the vault: absolute paths
// and paths containing a ".." segment.
func Validate(rel string) error {
	if rel == "" {
		return fmt.Errorf("%w: empty path", apperr.ErrInvalidPath)
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, `\`) {
		return fmt.Errorf("%w: absolute path %q", apperr.ErrInvalidPath, rel)
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if seg == ".." {
			return fmt.Errorf("%w: traversal segment in %q", apperr.ErrInvalidPath, rel)
		}
	}
	return nil
}

// Excluded reports whether any segment of rel exactly equals one of
// the excluded directory names. Matching is by whole segment at any
// depth, never by substring.
func Excluded(rel string, names []string) bool {
	if len(names) == 0 {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, n := range names {
			if seg == n {
				return true
			}
		}
	}
	return false
}

// WithSuffix returns rel with "-n" inserted before the extension:
// ("notes/a.md", 2) -> "notes/a-2.md".
func WithSuffix(rel string, n int) string {
	ext := path.Ext(rel)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(rel, ext), n, ext)
}

// Stem returns the final path element without its extension.
func Stem(rel string) string {
	base := path.Base(filepath.ToSlash(rel))
	return strings.TrimSuffix(base, path.Ext(base))
}

// SanitizeName turns an arbitrary string into a safe filename stem:
// replaces everything outside alphanumerics and " .-_()" with a dash,
// collapses runs of spaces, underscores and dashes into a single dash,
// trims edge dashes, and caps the length. Empty results become
// "untitled".
func SanitizeName(name string) string {
	s := invalidCharRe.ReplaceAllString(name, "-")
	s = dashRunRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-.")
	if len(s) > MaxNameLen {
		s = s[:MaxNameLen]
		s = strings.Trim(s, "-.")
	}
	if s == "" {
		return "untitled"
	}
	return s
}
