// Package index provides SQLite-backed note indexing with optional FTS5 full-text search.
package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

// schemaVersion is bumped whenever the table layout changes in a way that
// requires a rebuild. Version 2 added the kv table and per-note stat columns.
const schemaVersion = 2

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS notes (
	id         TEXT PRIMARY KEY,
	mtime_ns   INTEGER NOT NULL,
	size_bytes INTEGER NOT NULL,
	hash       TEXT,
	title      TEXT,
	body       TEXT NOT NULL DEFAULT '',
	has_math   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS blocks (
	note_id TEXT NOT NULL,
	kind    TEXT NOT NULL,
	start   INTEGER NOT NULL,
	end     INTEGER NOT NULL,
	level   INTEGER,
	slug    TEXT,
	label   TEXT,
	PRIMARY KEY (note_id, start),
	FOREIGN KEY (note_id) REFERENCES notes(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS links (
	src          TEXT NOT NULL,
	dst          TEXT NOT NULL,
	start        INTEGER NOT NULL,
	end          INTEGER NOT NULL,
	rel          TEXT,
	embed        INTEGER NOT NULL DEFAULT 0,
	anchor_kind  TEXT,
	anchor_value TEXT,
	PRIMARY KEY (src, start),
	FOREIGN KEY (src) REFERENCES notes(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS kv (
	note_id TEXT NOT NULL,
	key     TEXT NOT NULL,
	value   TEXT NOT NULL,
	FOREIGN KEY (note_id) REFERENCES notes(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS links_dst_idx ON links(dst);
CREATE INDEX IF NOT EXISTS links_src_idx ON links(src);
CREATE INDEX IF NOT EXISTS blocks_label_idx ON blocks(note_id, label);
CREATE INDEX IF NOT EXISTS blocks_slug_idx ON blocks(note_id, slug);
CREATE INDEX IF NOT EXISTS kv_note_key_idx ON kv(note_id, key);
CREATE INDEX IF NOT EXISTS kv_key_value_idx ON kv(key, value);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the schema.
// The parent directory is created if it does not exist.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("index: create db dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// migrate applies the core schema and records the schema version. Databases
// written by a newer version are refused rather than silently rewritten.
func migrate(conn *sql.DB) error {
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		return fmt.Errorf("index: apply core schema: %w", err)
	}
	var raw string
	err := conn.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		// fresh database
	case err != nil:
		return fmt.Errorf("index: read schema version: %w", err)
	default:
		v, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return fmt.Errorf("index: bad schema version %q", raw)
		}
		if v > schemaVersion {
			return fmt.Errorf("index: database schema version %d is newer than supported version %d", v, schemaVersion)
		}
	}
	_, err = conn.Exec(
		`INSERT INTO meta(key, value) VALUES('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strconv.Itoa(schemaVersion),
	)
	if err != nil {
		return fmt.Errorf("index: write schema version: %w", err)
	}
	return nil
}

// SchemaVersion reports the schema version recorded in the database.
func (db *DB) SchemaVersion() (int, error) {
	var raw string
	if err := db.conn.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&raw); err != nil {
		return 0, fmt.Errorf("index: read schema version: %w", err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("index: bad schema version %q", raw)
	}
	return v, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
