package index

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/hypo/internal/storage"
)

// DefaultDebounce is the quiet period a burst of file events must end
// with before the watcher flushes a batch.
const DefaultDebounce = 150 * time.Millisecond

// WatchOptions configures the vault watcher.
type WatchOptions struct {
	Debounce time.Duration
}

// BatchResult summarizes one debounced flush.
type BatchResult struct {
	Inserted int
	Updated  int
	Removed  int
	Took     time.Duration
}

// Watch follows file events under the vault root and applies debounced
// batch updates to the index until ctx is cancelled. Editor save storms
// collapse into a single flush per note. onBatch, when non-nil, runs
// after every flush that touched the index.
func Watch(ctx context.Context, db *DB, store storage.Provider, opts WatchOptions, logger *slog.Logger, onBatch func(BatchResult)) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("index: create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(store.Root()); err != nil {
		return fmt.Errorf("index: watch %s: %w", store.Root(), err)
	}
	logger.Info("watch: started", slog.String("root", store.Root()))

	// The timer starts stopped; the first event arms it.
	timer := time.NewTimer(opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			id, ok := eventNoteID(ev.Name)
			if !ok {
				continue
			}
			pending[id] = struct{}{}
			timer.Reset(opts.Debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: fsnotify error", slog.String("error", err.Error()))

		case <-timer.C:
			res := flushPending(db, store, pending, logger)
			if onBatch != nil && res.Inserted+res.Updated+res.Removed > 0 {
				onBatch(res)
			}
		}
	}
}

// flushPending reindexes every pending id against the current state of
// the vault: files present on disk are upserted, gone files are removed.
// A rename therefore resolves itself, since the old name flushes as a
// removal and the new name as an insert.
func flushPending(db *DB, store storage.Provider, pending map[string]struct{}, logger *slog.Logger) BatchResult {
	start := time.Now()
	var res BatchResult

	known, err := db.AllIDs()
	if err != nil {
		logger.Error("watch: read index ids", slog.String("error", err.Error()))
		return res
	}

	for id := range pending {
		delete(pending, id)
		_, wasKnown := known[id]

		exists, err := store.Exists(fileName(id))
		if err != nil {
			logger.Warn("watch: stat failed", slog.String("id", id), slog.String("error", err.Error()))
			continue
		}
		if !exists {
			if !wasKnown {
				continue
			}
			if err := db.Delete(id); err != nil {
				logger.Warn("watch: delete failed", slog.String("id", id), slog.String("error", err.Error()))
				continue
			}
			res.Removed++
			continue
		}

		if err := IndexNote(db, store, id); err != nil {
			logger.Warn("watch: index failed", slog.String("id", id), slog.String("error", err.Error()))
			continue
		}
		if wasKnown {
			res.Updated++
		} else {
			res.Inserted++
		}
	}

	res.Took = time.Since(start)
	return res
}

// eventNoteID maps an fsnotify path to a note id. Hidden files, editor
// temp files, and non-markdown paths are ignored.
func eventNoteID(path string) (string, bool) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~") || strings.HasSuffix(base, "~") {
		return "", false
	}
	if !strings.HasSuffix(base, ".md") {
		return "", false
	}
	return strings.TrimSuffix(base, ".md"), true
}
