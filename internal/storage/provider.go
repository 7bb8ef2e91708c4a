// Package storage defines the vault file-system abstraction.
package storage

import "time"

// NoteInfo is stat metadata for one vault file, used for change detection
// without reading content.
type NoteInfo struct {
	ID      string
	Path    string // file name relative to the vault root
	Size    int64
	ModTime time.Time
}

// Provider is the interface for vault file operations. Paths are file
// names relative to the vault root; the vault is a flat directory of
// <id>.md files.
type Provider interface {
	// List returns stat metadata for every .md file in the vault root.
	List() ([]NoteInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (temp file + fsync + rename).
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Exists reports whether the file at path exists.
	Exists(path string) (bool, error)
	// Stat returns metadata for the single file at path.
	Stat(path string) (NoteInfo, error)
	// Root returns the absolute vault root directory.
	Root() string
}
