// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/librarian/internal/models"

// Provider is the interface for vault file operations.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to vault root).
	List(dir string) ([]models.NoteMetadata, error)
	// ListDir returns the relative paths of the .md files directly inside
	// dir, sorted by name. It does not recurse.
	ListDir(dir string) ([]string, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to vault root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to vault root).
	Delete(path string) error
	// Exists reports whether a file or directory exists at path.
	Exists(path string) (bool, error)
}
