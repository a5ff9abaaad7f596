package index

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/starford/glanxiv/internal/checksum"
	"github.com/starford/glanxiv/internal/models"
	"github.com/starford/glanxiv/internal/parser"
)

// PartitionRow represents a row in the partitions table.
type PartitionRow struct {
	Path       string
	Checksum   string
	PaperCount int
	Error      string
	SyncedAt   time.Time
}

// ImportPartition replaces every paper of the partition at path with records
// within a transaction. Authors and categories keep their source order.
func (db *DB) ImportPartition(path, sum string, records []models.Record) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := upsertPartition(tx, path, sum, len(records), ""); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM papers WHERE partition_path = ?`, path); err != nil {
		return fmt.Errorf("index: clear partition: %w", err)
	}

	ins, err := newInserter(tx)
	if err != nil {
		return err
	}
	defer ins.close()

	for _, r := range records {
		if err := ins.paper(path, r); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// MarkPartitionFailed records that the partition at path could not be
// parsed. Its previously imported papers are dropped.
func (db *DB) MarkPartitionFailed(path, sum string, cause error) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := upsertPartition(tx, path, sum, 0, cause.Error()); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM papers WHERE partition_path = ?`, path); err != nil {
		return fmt.Errorf("index: clear partition: %w", err)
	}
	return tx.Commit()
}

// DeletePartition removes a partition, its papers and any authors or
// categories no longer referenced.
func (db *DB) DeletePartition(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM partitions WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete partition: %w", err)
	}
	_, _ = tx.Exec(`DELETE FROM authors WHERE id NOT IN (SELECT author_id FROM paper_authors)`)
	_, _ = tx.Exec(`DELETE FROM categories WHERE id NOT IN (SELECT category_id FROM paper_categories)`)
	return tx.Commit()
}

// ApplyPartition parses data and imports it. A partition that fails to parse
// is recorded as failed and the parse error is returned.
func (db *DB) ApplyPartition(path string, data []byte) error {
	sum := checksum.Sum(data)
	records, err := parser.ParsePartition(data)
	if err != nil {
		if markErr := db.MarkPartitionFailed(path, sum, err); markErr != nil {
			return markErr
		}
		return fmt.Errorf("index: parse %s: %w", path, err)
	}
	return db.ImportPartition(path, sum, records)
}

// RemovePartition implements Sink.
func (db *DB) RemovePartition(path string) error {
	return db.DeletePartition(path)
}

// GetChecksum returns the stored checksum for a partition, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM partitions WHERE path = ?`, path).Scan(&cs)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every known partition.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM partitions`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Partitions lists every known partition ordered by path.
func (db *DB) Partitions() ([]PartitionRow, error) {
	rows, err := db.conn.Query(`SELECT path, checksum, paper_count, error, synced_at FROM partitions ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("index: partitions: %w", err)
	}
	defer rows.Close()
	var out []PartitionRow
	for rows.Next() {
		var r PartitionRow
		if err := rows.Scan(&r.Path, &r.Checksum, &r.PaperCount, &r.Error, &r.SyncedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PaperCount returns the number of stored papers.
func (db *DB) PaperCount() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM papers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count papers: %w", err)
	}
	return n, nil
}

func upsertPartition(tx *sql.Tx, path, sum string, count int, errText string) error {
	_, err := tx.Exec(`
		INSERT INTO partitions (path, checksum, paper_count, error, synced_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum    = excluded.checksum,
			paper_count = excluded.paper_count,
			error       = excluded.error,
			synced_at   = excluded.synced_at
	`, path, sum, count, errText, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("index: upsert partition: %w", err)
	}
	return nil
}

// inserter holds the prepared statements used while importing one partition.
type inserter struct {
	paperStmt    *sql.Stmt
	authorStmt   *sql.Stmt
	authorID     *sql.Stmt
	paperAuthor  *sql.Stmt
	categoryStmt *sql.Stmt
	categoryID   *sql.Stmt
	paperCat     *sql.Stmt

	authors    map[string]int64
	categories map[string]int64
}

func newInserter(tx *sql.Tx) (*inserter, error) {
	ins := &inserter{
		authors:    make(map[string]int64),
		categories: make(map[string]int64),
	}
	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&ins.paperStmt, `INSERT INTO papers (arxiv_id, partition_path, title, abstract, pdf_url, published, primary_category) VALUES (?, ?, ?, ?, ?, ?, ?)`},
		{&ins.authorStmt, `INSERT OR IGNORE INTO authors (name) VALUES (?)`},
		{&ins.authorID, `SELECT id FROM authors WHERE name = ?`},
		{&ins.paperAuthor, `INSERT INTO paper_authors (paper_id, author_id, author_order) VALUES (?, ?, ?)`},
		{&ins.categoryStmt, `INSERT OR IGNORE INTO categories (code) VALUES (?)`},
		{&ins.categoryID, `SELECT id FROM categories WHERE code = ?`},
		{&ins.paperCat, `INSERT INTO paper_categories (paper_id, category_id, position) VALUES (?, ?, ?)`},
	}
	for _, s := range stmts {
		stmt, err := tx.Prepare(s.query)
		if err != nil {
			ins.close()
			return nil, fmt.Errorf("index: prepare: %w", err)
		}
		*s.dst = stmt
	}
	return ins, nil
}

func (ins *inserter) close() {
	for _, s := range []*sql.Stmt{ins.paperStmt, ins.authorStmt, ins.authorID, ins.paperAuthor, ins.categoryStmt, ins.categoryID, ins.paperCat} {
		if s != nil {
			s.Close()
		}
	}
}

func (ins *inserter) paper(partition string, r models.Record) error {
	var arxivID any
	if r.ID != "" {
		arxivID = r.ID
	}
	res, err := ins.paperStmt.Exec(arxivID, partition, r.Title, r.Abstract, r.PDFURL, r.Published, r.PrimaryCategory)
	if err != nil {
		return fmt.Errorf("index: insert paper: %w", err)
	}
	paperID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("index: paper id: %w", err)
	}

	for i, name := range r.Authors {
		id, err := lookupOrInsert(ins.authors, ins.authorStmt, ins.authorID, name)
		if err != nil {
			return fmt.Errorf("index: author %q: %w", name, err)
		}
		if _, err := ins.paperAuthor.Exec(paperID, id, i); err != nil {
			return fmt.Errorf("index: link author: %w", err)
		}
	}
	for i, code := range r.Categories {
		id, err := lookupOrInsert(ins.categories, ins.categoryStmt, ins.categoryID, code)
		if err != nil {
			return fmt.Errorf("index: category %q: %w", code, err)
		}
		if _, err := ins.paperCat.Exec(paperID, id, i); err != nil {
			return fmt.Errorf("index: link category: %w", err)
		}
	}
	return nil
}

func lookupOrInsert(cache map[string]int64, insert, lookup *sql.Stmt, key string) (int64, error) {
	if id, ok := cache[key]; ok {
		return id, nil
	}
	if _, err := insert.Exec(key); err != nil {
		return 0, err
	}
	var id int64
	if err := lookup.QueryRow(key).Scan(&id); err != nil {
		return 0, err
	}
	cache[key] = id
	return id, nil
}
