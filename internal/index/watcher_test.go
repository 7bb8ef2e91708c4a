package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/hypo/internal/apperr"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatch_NewFileIndexed(t *testing.T) {
	dir, store, db := syncTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, WatchOptions{Debounce: 30 * time.Millisecond}, testLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	writeNote(t, dir, "fresh1", "# Fresh\n")

	eventually(t, 5*time.Second, 25*time.Millisecond, func() bool {
		row, err := db.Note("fresh1")
		return err == nil && row.Title == "Fresh"
	}, "new file not indexed by watcher")
}

func TestWatch_DeleteRemovesFromIndex(t *testing.T) {
	dir, store, db := syncTestEnv(t)
	writeNote(t, dir, "gone01", "# Delete Me\n")
	if _, err := Sync(db, store, SyncOptions{}, testLogger()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, WatchOptions{Debounce: 30 * time.Millisecond}, testLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	if err := os.Remove(filepath.Join(dir, "gone01.md")); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 25*time.Millisecond, func() bool {
		_, err := db.Note("gone01")
		return errors.Is(err, apperr.ErrNotFound)
	}, "deleted file still in index")
}

func TestWatch_RenameReconciles(t *testing.T) {
	dir, store, db := syncTestEnv(t)
	writeNote(t, dir, "oldid1", "# Rename\n")
	if _, err := Sync(db, store, SyncOptions{}, testLogger()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, WatchOptions{Debounce: 30 * time.Millisecond}, testLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	if err := os.Rename(filepath.Join(dir, "oldid1.md"), filepath.Join(dir, "newid1.md")); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 25*time.Millisecond, func() bool {
		_, oldErr := db.Note("oldid1")
		_, newErr := db.Note("newid1")
		return errors.Is(oldErr, apperr.ErrNotFound) && newErr == nil
	}, "rename not reconciled: old id should be gone and new id indexed")
}

func TestWatch_BatchesBursts(t *testing.T) {
	dir, store, db := syncTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var batches []BatchResult
	onBatch := func(b BatchResult) {
		mu.Lock()
		batches = append(batches, b)
		mu.Unlock()
	}

	go Watch(ctx, db, store, WatchOptions{Debounce: 80 * time.Millisecond}, testLogger(), onBatch)
	time.Sleep(100 * time.Millisecond)

	writeNote(t, dir, "bulk01", "# One\n")
	writeNote(t, dir, "bulk02", "# Two\n")
	writeNote(t, dir, "bulk03", "# Three\n")

	eventually(t, 5*time.Second, 25*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		total := 0
		for _, b := range batches {
			total += b.Inserted
		}
		return total == 3
	}, "burst of writes not fully indexed")

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 {
		t.Logf("burst flushed in %d batches", len(batches))
	}
}

func TestWatch_IgnoresTempFiles(t *testing.T) {
	dir, store, db := syncTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, WatchOptions{Debounce: 30 * time.Millisecond}, testLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	for _, name := range []string{".hidden.md", "swap.md~", "plain.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	writeNote(t, dir, "real01", "# Real\n")

	eventually(t, 5*time.Second, 25*time.Millisecond, func() bool {
		_, err := db.Note("real01")
		return err == nil
	}, "real file not indexed")

	ids, err := db.AllIDs()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Errorf("ids = %v, want only real01", ids)
	}
}

func TestWatch_StopsOnCancel(t *testing.T) {
	_, store, db := syncTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, db, store, WatchOptions{}, testLogger(), nil) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Watch did not stop after cancel")
	}
}
