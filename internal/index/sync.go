package index

import (
	"fmt"
	"log/slog"

	"github.com/starford/hypo/internal/checksum"
	"github.com/starford/hypo/internal/note"
	"github.com/starford/hypo/internal/parser"
	"github.com/starford/hypo/internal/storage"
)

// SyncOptions configures a vault scan.
type SyncOptions struct {
	// Full drops every row and rebuilds the index in one transaction.
	Full bool
	// Hash verifies content by SHA-256 instead of trusting mtime and size.
	Hash bool
}

// SyncResult counts what a scan did. Dirty is the number of files that
// needed (re)indexing; Failed counts files skipped over read or parse
// errors, whose previous rows are left in place.
type SyncResult struct {
	Scanned  int `json:"scanned"`
	Dirty    int `json:"dirty"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Removed  int `json:"removed"`
	Failed   int `json:"failed"`
}

// BuildRecord assembles the index record for a parsed note and its stat.
func BuildRecord(n *note.Note, mtimeNs, size int64, hash string) NoteRecord {
	return NoteRecord{
		ID:      n.ID,
		MtimeNs: mtimeNs,
		Size:    size,
		Hash:    hash,
		Title:   n.Title,
		Body:    n.Body,
		HasMath: n.HasMath,
		Aliases: n.Aliases(),
		Blocks:  n.Blocks,
		Refs:    n.Refs,
	}
}

// fileName maps a note id to its vault file name.
func fileName(id string) string { return id + ".md" }

// IndexNote re-reads a single vault file and upserts its record. Mutating
// commands call this to keep the index fresh without a full scan.
func IndexNote(db *DB, store storage.Provider, id string) error {
	info, err := store.Stat(fileName(id))
	if err != nil {
		return fmt.Errorf("index: stat %s: %w", id, err)
	}
	data, err := store.Read(info.Path)
	if err != nil {
		return fmt.Errorf("index: read %s: %w", id, err)
	}
	n, err := parser.Parse(id, data)
	if err != nil {
		return fmt.Errorf("index: parse %s: %w", id, err)
	}
	return db.Upsert(BuildRecord(n, info.ModTime.UnixNano(), info.Size, checksum.Sum(data)))
}

// Sync reconciles the index with the vault. Incremental scans trust the
// stored mtime and size unless opts.Hash asks for content verification; a
// full scan wipes and rebuilds everything in one transaction. Files that
// fail to read or parse are counted, logged, and skipped.
func Sync(db *DB, store storage.Provider, opts SyncOptions, logger *slog.Logger) (SyncResult, error) {
	infos, err := store.List()
	if err != nil {
		return SyncResult{}, fmt.Errorf("index: list vault: %w", err)
	}

	known, err := db.allStats()
	if err != nil {
		return SyncResult{}, err
	}

	if opts.Full {
		return fullSync(db, store, infos, known, opts, logger)
	}

	res := SyncResult{Scanned: len(infos)}

	onDisk := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		onDisk[info.ID] = struct{}{}
	}
	for id := range known {
		if _, ok := onDisk[id]; ok {
			continue
		}
		if err := db.Delete(id); err != nil {
			return res, err
		}
		res.Removed++
	}

	for _, info := range infos {
		prev, exists := known[info.ID]
		if exists && !opts.Hash &&
			prev.MtimeNs == info.ModTime.UnixNano() && prev.Size == info.Size {
			continue
		}

		data, err := store.Read(info.Path)
		if err != nil {
			res.Failed++
			logger.Warn("sync: read failed", slog.String("id", info.ID), slog.String("error", err.Error()))
			continue
		}

		hash := ""
		if opts.Hash {
			hash = checksum.Sum(data)
			if exists && hash == prev.Hash {
				if prev.MtimeNs != info.ModTime.UnixNano() || prev.Size != info.Size {
					if err := db.updateStat(info.ID, info.ModTime.UnixNano(), info.Size, hash); err != nil {
						return res, err
					}
				}
				continue
			}
		}

		n, err := parser.Parse(info.ID, data)
		if err != nil {
			res.Failed++
			logger.Warn("sync: parse failed", slog.String("id", info.ID), slog.String("error", err.Error()))
			continue
		}

		res.Dirty++
		if err := db.Upsert(BuildRecord(n, info.ModTime.UnixNano(), info.Size, hash)); err != nil {
			return res, err
		}
		if exists {
			res.Updated++
		} else {
			res.Inserted++
		}
	}

	return res, nil
}

// fullSync parses every vault file and replaces the whole index in one
// transaction, so readers never observe a half-built index.
func fullSync(db *DB, store storage.Provider, infos []storage.NoteInfo, known map[string]rowStat, opts SyncOptions, logger *slog.Logger) (SyncResult, error) {
	res := SyncResult{Scanned: len(infos)}

	recs := make([]NoteRecord, 0, len(infos))
	for _, info := range infos {
		data, err := store.Read(info.Path)
		if err != nil {
			res.Failed++
			logger.Warn("sync: read failed", slog.String("id", info.ID), slog.String("error", err.Error()))
			continue
		}
		n, err := parser.Parse(info.ID, data)
		if err != nil {
			res.Failed++
			logger.Warn("sync: parse failed", slog.String("id", info.ID), slog.String("error", err.Error()))
			continue
		}
		hash := ""
		if opts.Hash {
			hash = checksum.Sum(data)
		}
		recs = append(recs, BuildRecord(n, info.ModTime.UnixNano(), info.Size, hash))
	}

	if err := db.ReplaceAll(recs); err != nil {
		return res, err
	}

	res.Dirty = len(recs)
	for _, rec := range recs {
		if _, ok := known[rec.ID]; ok {
			res.Updated++
		} else {
			res.Inserted++
		}
	}
	onDisk := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		onDisk[info.ID] = struct{}{}
	}
	for id := range known {
		if _, ok := onDisk[id]; !ok {
			res.Removed++
		}
	}
	return res, nil
}
