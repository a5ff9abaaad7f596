// Package index keeps snapshot partitions in sync with a SQLite store and
// serves the stored papers as a corpus source.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS partitions (
	path        TEXT PRIMARY KEY,
	checksum    TEXT NOT NULL DEFAULT '',
	paper_count INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	synced_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS papers (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	arxiv_id         TEXT,
	partition_path   TEXT NOT NULL REFERENCES partitions(path) ON DELETE CASCADE,
	title            TEXT NOT NULL DEFAULT '',
	abstract         TEXT NOT NULL DEFAULT '',
	pdf_url          TEXT NOT NULL DEFAULT '',
	published        TEXT NOT NULL DEFAULT '',
	primary_category TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_papers_partition ON papers(partition_path);
CREATE INDEX IF NOT EXISTS idx_papers_arxiv_id ON papers(arxiv_id);

CREATE TABLE IF NOT EXISTS authors (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS paper_authors (
	paper_id     INTEGER NOT NULL REFERENCES papers(id) ON DELETE CASCADE,
	author_id    INTEGER NOT NULL REFERENCES authors(id),
	author_order INTEGER NOT NULL,
	PRIMARY KEY (paper_id, author_order)
);

CREATE TABLE IF NOT EXISTS categories (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	code TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS paper_categories (
	paper_id    INTEGER NOT NULL REFERENCES papers(id) ON DELETE CASCADE,
	category_id INTEGER NOT NULL REFERENCES categories(id),
	position    INTEGER NOT NULL,
	PRIMARY KEY (paper_id, position)
);

CREATE INDEX IF NOT EXISTS idx_paper_authors_author ON paper_authors(author_id);
CREATE INDEX IF NOT EXISTS idx_paper_categories_category ON paper_categories(category_id);
`

// DB wraps a sql.DB with partition and paper operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
