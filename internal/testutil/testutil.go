// Package testutil provides shared test helpers for setting up vaults and
// index databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/hypo/internal/index"
	"github.com/starford/hypo/internal/storage"
	"github.com/starford/hypo/internal/vault"
)

// TestDB opens a temporary index database that is automatically closed
// and removed with the test.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a vault over a temporary directory and returns it
// together with the directory path.
func TestVault(t *testing.T) (*vault.Vault, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return vault.New(store), dir
}

// WriteNote drops a raw note file into a vault directory.
func WriteNote(t *testing.T, dir, id, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, id+".md"), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", id, err)
	}
}
