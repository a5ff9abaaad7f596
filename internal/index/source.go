package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/glanxiv/internal/models"
)

// FetchAll returns every stored paper as a raw record, grouped by partition
// in path order and in import order within a partition. Partitions recorded
// as failed are reported in PartitionErrors. It satisfies corpus.Source.
func (db *DB) FetchAll(ctx context.Context) (models.Batch, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return models.Batch{}, fmt.Errorf("index: begin read: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // read-only

	var batch models.Batch
	pos := make(map[int64]int)

	rows, err := tx.QueryContext(ctx, `
		SELECT id, COALESCE(arxiv_id, ''), title, abstract, pdf_url, published, primary_category
		FROM papers ORDER BY partition_path, id`)
	if err != nil {
		return models.Batch{}, fmt.Errorf("index: fetch papers: %w", err)
	}
	for rows.Next() {
		var (
			rowID int64
			r     models.Record
		)
		if err := rows.Scan(&rowID, &r.ID, &r.Title, &r.Abstract, &r.PDFURL, &r.Published, &r.PrimaryCategory); err != nil {
			rows.Close()
			return models.Batch{}, fmt.Errorf("index: scan paper: %w", err)
		}
		pos[rowID] = len(batch.Records)
		batch.Records = append(batch.Records, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return models.Batch{}, fmt.Errorf("index: fetch papers: %w", err)
	}

	err = eachPair(ctx, tx, `
		SELECT pa.paper_id, a.name FROM paper_authors pa
		JOIN authors a ON a.id = pa.author_id
		ORDER BY pa.paper_id, pa.author_order`,
		func(paperID int64, name string) {
			if i, ok := pos[paperID]; ok {
				batch.Records[i].Authors = append(batch.Records[i].Authors, name)
			}
		})
	if err != nil {
		return models.Batch{}, fmt.Errorf("index: fetch authors: %w", err)
	}

	err = eachPair(ctx, tx, `
		SELECT pc.paper_id, c.code FROM paper_categories pc
		JOIN categories c ON c.id = pc.category_id
		ORDER BY pc.paper_id, pc.position`,
		func(paperID int64, code string) {
			if i, ok := pos[paperID]; ok {
				batch.Records[i].Categories = append(batch.Records[i].Categories, code)
			}
		})
	if err != nil {
		return models.Batch{}, fmt.Errorf("index: fetch categories: %w", err)
	}

	failed, err := tx.QueryContext(ctx, `SELECT path, error FROM partitions WHERE error != '' ORDER BY path`)
	if err != nil {
		return models.Batch{}, fmt.Errorf("index: fetch partition errors: %w", err)
	}
	defer failed.Close()
	for failed.Next() {
		var path, msg string
		if err := failed.Scan(&path, &msg); err != nil {
			return models.Batch{}, fmt.Errorf("index: scan partition error: %w", err)
		}
		batch.PartitionErrors = append(batch.PartitionErrors, models.PartitionError{
			Partition: path,
			Err:       errors.New(msg),
		})
	}
	return batch, failed.Err()
}

// eachPair runs query, which must select (paper id, text), and calls fn for
// every row.
func eachPair(ctx context.Context, tx *sql.Tx, query string, fn func(int64, string)) error {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id  int64
			val string
		)
		if err := rows.Scan(&id, &val); err != nil {
			return err
		}
		fn(id, val)
	}
	return rows.Err()
}
