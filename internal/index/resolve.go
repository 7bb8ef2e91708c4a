package index

import (
	"database/sql"
	"fmt"
)

// Resolution statuses.
const (
	StatusResolved  = "resolved"
	StatusAmbiguous = "ambiguous"
	StatusNotFound  = "not_found"
)

// Candidate is one possible match for a resolve query. Alias is set when
// the match came through an alias rather than the title.
type Candidate struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Alias string `json:"alias,omitempty"`
}

// Resolution is the outcome of resolving free text to a note id.
type Resolution struct {
	Status     string      `json:"status"`
	ID         string      `json:"id,omitempty"`
	Via        string      `json:"via,omitempty"` // "alias" or "title" on ambiguous hits
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Resolve maps free text to a note id without guessing. Exact alias
// matches win over exact title matches; within a tier a single hit
// resolves and multiple hits are ambiguous. When no tier hits, the
// result carries substring candidates over titles and aliases.
func (db *DB) Resolve(text string) (Resolution, error) {
	byAlias, err := db.exactAliases(text)
	if err != nil {
		return Resolution{}, err
	}
	switch len(byAlias) {
	case 0:
	case 1:
		return Resolution{Status: StatusResolved, ID: byAlias[0].ID}, nil
	default:
		return Resolution{Status: StatusAmbiguous, Via: "alias", Candidates: byAlias}, nil
	}

	byTitle, err := db.exactTitles(text)
	if err != nil {
		return Resolution{}, err
	}
	switch len(byTitle) {
	case 0:
	case 1:
		return Resolution{Status: StatusResolved, ID: byTitle[0].ID}, nil
	default:
		return Resolution{Status: StatusAmbiguous, Via: "title", Candidates: byTitle}, nil
	}

	cands, err := db.likeCandidates(text)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Status: StatusNotFound, Candidates: cands}, nil
}

func (db *DB) exactAliases(text string) ([]Candidate, error) {
	rows, err := db.conn.Query(`
		SELECT kv.note_id, COALESCE(notes.title, ''), kv.value
		FROM kv JOIN notes ON notes.id = kv.note_id
		WHERE kv.key = 'core/alias' AND kv.value = ?
		ORDER BY kv.note_id
	`, text)
	if err != nil {
		return nil, fmt.Errorf("index: resolve alias: %w", err)
	}
	defer rows.Close()
	return scanCandidates(rows)
}

func (db *DB) exactTitles(text string) ([]Candidate, error) {
	rows, err := db.conn.Query(`
		SELECT id, COALESCE(title, ''), '' FROM notes WHERE title = ? ORDER BY id
	`, text)
	if err != nil {
		return nil, fmt.Errorf("index: resolve title: %w", err)
	}
	defer rows.Close()
	return scanCandidates(rows)
}

// likeCandidates suggests near misses: substring hits over titles first,
// then aliases, de-duplicated by id, capped at ten total.
func (db *DB) likeCandidates(text string) ([]Candidate, error) {
	const maxCandidates = 10
	like := "%" + escapeLike(text) + "%"

	rows, err := db.conn.Query(`
		SELECT id, COALESCE(title, ''), '' FROM notes
		WHERE title LIKE ? ESCAPE '\' ORDER BY id LIMIT ?
	`, like, maxCandidates)
	if err != nil {
		return nil, fmt.Errorf("index: resolve candidates: %w", err)
	}
	defer rows.Close()
	byTitle, err := scanCandidates(rows)
	if err != nil {
		return nil, err
	}

	rows, err = db.conn.Query(`
		SELECT kv.note_id, COALESCE(notes.title, ''), kv.value
		FROM kv JOIN notes ON notes.id = kv.note_id
		WHERE kv.key = 'core/alias' AND kv.value LIKE ? ESCAPE '\'
		ORDER BY kv.note_id LIMIT ?
	`, like, maxCandidates)
	if err != nil {
		return nil, fmt.Errorf("index: resolve candidates: %w", err)
	}
	defer rows.Close()
	byAlias, err := scanCandidates(rows)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(byTitle))
	out := make([]Candidate, 0, len(byTitle)+len(byAlias))
	for _, c := range append(byTitle, byAlias...) {
		if seen[c.ID] || len(out) == maxCandidates {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out, nil
}

func scanCandidates(rows *sql.Rows) ([]Candidate, error) {
	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ID, &c.Title, &c.Alias); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
