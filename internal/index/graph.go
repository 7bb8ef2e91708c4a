package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/hypo/internal/apperr"
)

// Body returns the stored body text of a note.
func (db *DB) Body(id string) (string, error) {
	var body string
	err := db.conn.QueryRow(`SELECT body FROM notes WHERE id = ?`, id).Scan(&body)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("index: note %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("index: body: %w", err)
	}
	return body, nil
}

// LinksOut returns the outgoing edges of a note in body order.
func (db *DB) LinksOut(id string) ([]LinkRow, error) {
	return db.queryLinks(`WHERE src = ? ORDER BY start`, id)
}

// LinksIn returns the incoming edges of a note, grouped by source.
func (db *DB) LinksIn(id string) ([]LinkRow, error) {
	return db.queryLinks(`WHERE dst = ? ORDER BY src, start`, id)
}

func (db *DB) queryLinks(clause string, arg string) ([]LinkRow, error) {
	rows, err := db.conn.Query(`
		SELECT src, dst, start, end, COALESCE(rel, ''), embed,
		       COALESCE(anchor_kind, ''), COALESCE(anchor_value, '')
		FROM links `+clause, arg)
	if err != nil {
		return nil, fmt.Errorf("index: links: %w", err)
	}
	defer rows.Close()

	var out []LinkRow
	for rows.Next() {
		var (
			l     LinkRow
			embed int
		)
		err := rows.Scan(&l.Src, &l.Dst, &l.Start, &l.End, &l.Rel, &embed,
			&l.AnchorKind, &l.AnchorValue)
		if err != nil {
			return nil, err
		}
		l.Embed = embed != 0
		out = append(out, l)
	}
	return out, rows.Err()
}

// Orphans returns notes that no other note links to and that have no
// outgoing edge landing on an existing note. Edges to missing targets do
// not count: a note whose only links dangle is still an orphan.
func (db *DB) Orphans() ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT id FROM notes
		WHERE id NOT IN (SELECT dst FROM links)
		  AND id NOT IN (SELECT src FROM links WHERE dst IN (SELECT id FROM notes))
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("index: orphans: %w", err)
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

// Graph returns the whole link graph. Nodes cover every note plus every
// referenced id, so dangling targets show up with an empty title. Edges
// are distinct source→target pairs.
func (db *DB) Graph() (GraphData, error) {
	var g GraphData

	rows, err := db.conn.Query(`SELECT id, COALESCE(title, '') FROM notes ORDER BY id`)
	if err != nil {
		return g, fmt.Errorf("index: graph nodes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var n GraphNode
		if err := rows.Scan(&n.ID, &n.Title); err != nil {
			return g, err
		}
		g.Nodes = append(g.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return g, err
	}

	rows, err = db.conn.Query(`
		SELECT DISTINCT dst FROM links
		WHERE dst NOT IN (SELECT id FROM notes) ORDER BY dst
	`)
	if err != nil {
		return g, fmt.Errorf("index: graph dangling: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return g, err
		}
		g.Nodes = append(g.Nodes, GraphNode{ID: id})
	}
	if err := rows.Err(); err != nil {
		return g, err
	}

	rows, err = db.conn.Query(`SELECT DISTINCT src, dst FROM links ORDER BY src, dst`)
	if err != nil {
		return g, fmt.Errorf("index: graph edges: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e GraphEdge
		if err := rows.Scan(&e.Source, &e.Target); err != nil {
			return g, err
		}
		g.Edges = append(g.Edges, e)
	}
	return g, rows.Err()
}

// Stats summarizes the index for diagnostics.
func (db *DB) Stats() (StatCounts, error) {
	var s StatCounts
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&s.Notes); err != nil {
		return s, fmt.Errorf("index: count notes: %w", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM links`).Scan(&s.Links); err != nil {
		return s, fmt.Errorf("index: count links: %w", err)
	}
	orphans, err := db.Orphans()
	if err != nil {
		return s, err
	}
	s.Orphans = len(orphans)
	return s, nil
}
