//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

// ftsSchemaSQL is the FTS5 companion table. The id column rides along
// unindexed so hits can be mapped back to notes without a join.
const ftsSchemaSQL = `
CREATE VIRTUAL TABLE IF NOT EXISTS fts USING fts5(
	id UNINDEXED,
	title,
	body,
	tokenize = 'unicode61 remove_diacritics 2'
);
`

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(ftsSchemaSQL)
	return err
}

// ftsUpsert replaces the FTS entry for a note.
func ftsUpsert(tx *sql.Tx, id, title, body string) error {
	if _, err := tx.Exec(`DELETE FROM fts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: fts delete: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO fts (id, title, body) VALUES (?, ?, ?)`, id, title, body); err != nil {
		return fmt.Errorf("index: fts insert: %w", err)
	}
	return nil
}

// ftsDelete removes the FTS entry for a note. Best effort: the notes row
// is authoritative and a stale FTS entry only affects ranking.
func ftsDelete(tx *sql.Tx, id string) {
	_, _ = tx.Exec(`DELETE FROM fts WHERE id = ?`, id)
}

// ftsWipe clears the FTS table ahead of a full rebuild.
func ftsWipe(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM fts`); err != nil {
		return fmt.Errorf("index: fts wipe: %w", err)
	}
	return nil
}

// Search runs an FTS5 MATCH query ranked by bm25, best hit first. The
// query string uses FTS5 syntax, so quoted phrases and AND/OR work as
// SQLite documents them. Snippets wrap hits in <b> tags.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, title, snippet(fts, 2, '<b>', '</b>', '...', 12)
		FROM fts
		WHERE fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search %q: %w", query, err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
