package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/hypo/internal/apperr"
)

// BlockRow is one stored block boundary. Offsets are body-relative bytes.
type BlockRow struct {
	NoteID string `json:"note_id"`
	Kind   string `json:"kind"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Level  int    `json:"level,omitempty"`
	Slug   string `json:"slug,omitempty"`
	Label  string `json:"label,omitempty"`
}

// Upsert inserts or replaces a note record, its blocks, links, aliases, and
// FTS entry within a single transaction.
func (db *DB) Upsert(rec NoteRecord) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := upsertTx(tx, rec); err != nil {
		return err
	}
	return tx.Commit()
}

// upsertTx performs the note upsert inside an existing transaction. The
// derived rows are fully replaced: delete everything for the note, then
// insert the fresh parse.
func upsertTx(tx *sql.Tx, rec NoteRecord) error {
	_, err := tx.Exec(`
		INSERT INTO notes (id, mtime_ns, size_bytes, hash, title, body, has_math)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mtime_ns   = excluded.mtime_ns,
			size_bytes = excluded.size_bytes,
			hash       = excluded.hash,
			title      = excluded.title,
			body       = excluded.body,
			has_math   = excluded.has_math
	`, rec.ID, rec.MtimeNs, rec.Size, rec.Hash, rec.Title, rec.Body, boolToInt(rec.HasMath))
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	for _, q := range []string{
		`DELETE FROM blocks WHERE note_id = ?`,
		`DELETE FROM links WHERE src = ?`,
		`DELETE FROM kv WHERE note_id = ?`,
	} {
		if _, err := tx.Exec(q, rec.ID); err != nil {
			return fmt.Errorf("index: clear derived rows: %w", err)
		}
	}

	if len(rec.Blocks) > 0 {
		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO blocks (note_id, kind, start, end, level, slug, label)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("index: prepare block insert: %w", err)
		}
		defer stmt.Close()
		for _, b := range rec.Blocks {
			_, err := stmt.Exec(rec.ID, string(b.Kind), b.Range.Start, b.Range.End,
				b.HeadingLevel, b.HeadingSlug, b.Label)
			if err != nil {
				return fmt.Errorf("index: insert block: %w", err)
			}
		}
	}

	if len(rec.Refs) > 0 {
		stmt, err := tx.Prepare(`
			INSERT OR REPLACE INTO links (src, dst, start, end, rel, embed, anchor_kind, anchor_value)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, r := range rec.Refs {
			var kind, value string
			if r.Anchor != nil {
				kind, value = string(r.Anchor.Kind), r.Anchor.Value
			}
			_, err := stmt.Exec(rec.ID, r.Target, r.Range.Start, r.Range.End,
				r.Rel, boolToInt(r.Embed), kind, value)
			if err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	if len(rec.Aliases) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO kv (note_id, key, value) VALUES (?, 'core/alias', ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare alias insert: %w", err)
		}
		defer stmt.Close()
		for _, a := range rec.Aliases {
			if _, err := stmt.Exec(rec.ID, a); err != nil {
				return fmt.Errorf("index: insert alias: %w", err)
			}
		}
	}

	return ftsUpsert(tx, rec.ID, rec.Title, rec.Body)
}

// Delete removes a note and its FTS entry. Blocks, links, and kv rows go
// with it via ON DELETE CASCADE.
func (db *DB) Delete(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	if _, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}
	return tx.Commit()
}

// ReplaceAll wipes the index and inserts the given records in a single
// transaction, so concurrent readers never observe a half-built index.
func (db *DB) ReplaceAll(recs []NoteRecord) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := wipeTx(tx); err != nil {
		return err
	}
	for _, rec := range recs {
		if err := upsertTx(tx, rec); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// wipeTx clears every table ahead of a full rebuild.
func wipeTx(tx *sql.Tx) error {
	for _, q := range []string{
		`DELETE FROM kv`,
		`DELETE FROM links`,
		`DELETE FROM blocks`,
		`DELETE FROM notes`,
	} {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("index: wipe: %w", err)
		}
	}
	return ftsWipe(tx)
}

// Note returns the stored metadata row for an exact id.
func (db *DB) Note(id string) (*NoteRow, error) {
	var (
		row   NoteRow
		hash  sql.NullString
		title sql.NullString
		math  int
	)
	err := db.conn.QueryRow(`
		SELECT id, mtime_ns, size_bytes, hash, title, has_math FROM notes WHERE id = ?
	`, id).Scan(&row.ID, &row.MtimeNs, &row.Size, &hash, &title, &math)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("index: note %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	row.Hash = hash.String
	row.Title = title.String
	row.HasMath = math != 0
	return &row, nil
}

// AllIDs returns every indexed note id.
func (db *DB) AllIDs() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT id FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all ids: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// Titles returns the id-to-title map for every indexed note.
func (db *DB) Titles() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, COALESCE(title, '') FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: titles: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, err
		}
		out[id] = title
	}
	return out, rows.Err()
}

// AliasesOf returns the stored aliases for a note, in insertion order.
func (db *DB) AliasesOf(id string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT value FROM kv WHERE note_id = ? AND key = 'core/alias' ORDER BY rowid
	`, id)
	if err != nil {
		return nil, fmt.Errorf("index: aliases: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// AliasMatches returns ids of notes with an alias containing the literal
// substring, case-insensitively, ordered by id.
func (db *DB) AliasMatches(substr string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT note_id FROM kv
		WHERE key = 'core/alias' AND value LIKE ? ESCAPE '\'
		ORDER BY note_id
	`, "%"+escapeLike(substr)+"%")
	if err != nil {
		return nil, fmt.Errorf("index: alias matches: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Blocks returns the stored block boundaries for a note, in document order.
func (db *DB) Blocks(id string) ([]BlockRow, error) {
	rows, err := db.conn.Query(`
		SELECT note_id, kind, start, end, COALESCE(level, 0), COALESCE(slug, ''), COALESCE(label, '')
		FROM blocks WHERE note_id = ? ORDER BY start
	`, id)
	if err != nil {
		return nil, fmt.Errorf("index: blocks: %w", err)
	}
	defer rows.Close()
	var out []BlockRow
	for rows.Next() {
		var b BlockRow
		if err := rows.Scan(&b.NoteID, &b.Kind, &b.Start, &b.End, &b.Level, &b.Slug, &b.Label); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// updateStat refreshes the stat columns without reparsing, used when a
// hash check proves the content unchanged after a touch.
func (db *DB) updateStat(id string, mtimeNs, size int64, hash string) error {
	_, err := db.conn.Exec(
		`UPDATE notes SET mtime_ns = ?, size_bytes = ?, hash = ? WHERE id = ?`,
		mtimeNs, size, hash, id,
	)
	if err != nil {
		return fmt.Errorf("index: update stat: %w", err)
	}
	return nil
}

// rowStat is the stat triple used by the dirty check during sync.
type rowStat struct {
	MtimeNs int64
	Size    int64
	Hash    string
}

// allStats returns the stat columns for every indexed note.
func (db *DB) allStats() (map[string]rowStat, error) {
	rows, err := db.conn.Query(`SELECT id, mtime_ns, size_bytes, COALESCE(hash, '') FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all stats: %w", err)
	}
	defer rows.Close()
	out := make(map[string]rowStat)
	for rows.Next() {
		var (
			id string
			st rowStat
		)
		if err := rows.Scan(&id, &st.MtimeNs, &st.Size, &st.Hash); err != nil {
			return nil, err
		}
		out[id] = st
	}
	return out, rows.Err()
}

// Grep returns ids of notes whose body contains the literal substring,
// case-insensitively. This is a plain LIKE scan, independent of FTS.
func (db *DB) Grep(substr string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT id FROM notes WHERE body LIKE ? ESCAPE '\' ORDER BY id
	`, "%"+escapeLike(substr)+"%")
	if err != nil {
		return nil, fmt.Errorf("index: grep: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// escapeLike escapes LIKE wildcards so substr matches literally.
func escapeLike(s string) string {
	var out []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', '%', '_':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
