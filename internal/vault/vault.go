// Package vault is the note-level facade over raw storage: it loads,
// parses, and writes notes by id.
package vault

import (
	"errors"
	"fmt"
	"os"

	"github.com/starford/hypo/internal/apperr"
	"github.com/starford/hypo/internal/note"
	"github.com/starford/hypo/internal/parser"
	"github.com/starford/hypo/internal/storage"
)

// Vault reads and writes parsed notes in a flat directory of <id>.md files.
type Vault struct {
	store storage.Provider
}

// New creates a Vault over the given storage provider.
func New(store storage.Provider) *Vault {
	return &Vault{store: store}
}

// Store exposes the underlying provider.
func (v *Vault) Store() storage.Provider { return v.store }

// Root returns the absolute vault directory.
func (v *Vault) Root() string { return v.store.Root() }

// FileName returns the vault file name for a note id.
func FileName(id string) string { return id + ".md" }

// Get loads and parses a note by id. Returns apperr.ErrNotFound when no
// file exists for the id.
func (v *Vault) Get(id string) (*note.Note, error) {
	data, err := v.Raw(id)
	if err != nil {
		return nil, err
	}
	n, err := parser.Parse(id, data)
	if err != nil {
		return nil, fmt.Errorf("vault: parse %s: %w", id, err)
	}
	return n, nil
}

// Raw returns the unparsed bytes of a note.
func (v *Vault) Raw(id string) ([]byte, error) {
	data, err := v.store.Read(FileName(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("vault: note %s: %w", id, apperr.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

// Exists reports whether a note file exists for id.
func (v *Vault) Exists(id string) (bool, error) {
	return v.store.Exists(FileName(id))
}

// Put serializes meta and body canonically and writes the note atomically.
func (v *Vault) Put(id string, meta map[string]any, body string) error {
	data, err := parser.EncodeFile(meta, body)
	if err != nil {
		return fmt.Errorf("vault: encode %s: %w", id, err)
	}
	return v.store.Write(FileName(id), data)
}

// PutRaw writes already-serialized note text atomically.
func (v *Vault) PutRaw(id string, data []byte) error {
	return v.store.Write(FileName(id), data)
}

// Delete removes the note file.
func (v *Vault) Delete(id string) error {
	if err := v.store.Delete(FileName(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("vault: note %s: %w", id, apperr.ErrNotFound)
		}
		return err
	}
	return nil
}

// IDs returns all note ids, sorted.
func (v *Vault) IDs() ([]string, error) {
	infos, err := v.store.List()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		ids = append(ids, info.ID)
	}
	return ids, nil
}

// LoadAll parses every vault note. Parse failures do not abort the scan;
// they come back as a map of id → error alongside the parsed notes.
func (v *Vault) LoadAll() (map[string]*note.Note, map[string]error, error) {
	infos, err := v.store.List()
	if err != nil {
		return nil, nil, err
	}
	notes := make(map[string]*note.Note, len(infos))
	fails := make(map[string]error)
	for _, info := range infos {
		data, err := v.store.Read(info.Path)
		if err != nil {
			fails[info.ID] = err
			continue
		}
		n, err := parser.Parse(info.ID, data)
		if err != nil {
			fails[info.ID] = err
			continue
		}
		notes[info.ID] = n
	}
	return notes, fails, nil
}
