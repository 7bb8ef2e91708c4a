//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Without the sqlite_fts5 build tag there is no FTS table; search falls
// back to a LIKE scan over the notes table, which already stores the body.

func initFTS(_ *sql.DB) error { return nil }

func ftsUpsert(_ *sql.Tx, _, _, _ string) error { return nil }

func ftsDelete(_ *sql.Tx, _ string) {}

func ftsWipe(_ *sql.Tx) error { return nil }

// Search scans titles and bodies for the query as a literal substring,
// case-insensitively. Title hits sort first. Snippets are cut from the
// line of the first body match.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + escapeLike(query) + "%"
	rows, err := db.conn.Query(`
		SELECT id, COALESCE(title, ''), body
		FROM notes
		WHERE title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\'
		ORDER BY (title LIKE ? ESCAPE '\') DESC, id
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search %q: %w", query, err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var (
			r    SearchResult
			body string
		)
		if err := rows.Scan(&r.ID, &r.Title, &body); err != nil {
			return nil, err
		}
		r.Snippet = extractSnippet(body, query)
		out = append(out, r)
	}
	return out, rows.Err()
}

// extractSnippet returns the line containing the first case-insensitive
// match, truncated to keep output one-line friendly. Empty when the match
// was in the title only.
func extractSnippet(body, query string) string {
	const maxLen = 120
	off := strings.Index(strings.ToLower(body), strings.ToLower(query))
	if off < 0 {
		return ""
	}
	start := strings.LastIndexByte(body[:off], '\n') + 1
	end := strings.IndexByte(body[off:], '\n')
	if end < 0 {
		end = len(body)
	} else {
		end += off
	}
	line := strings.TrimSpace(body[start:end])
	if len(line) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		line = line[:cut] + "..."
	}
	return line
}
