package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/starford/glanxiv/internal/models"
	"github.com/starford/glanxiv/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "glanxiv-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"partitions", "papers", "authors", "paper_authors", "categories", "paper_categories"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestImportAndFetchPreservesOrder(t *testing.T) {
	db := testDB(t)
	recs := []models.Record{
		{ID: "2401.0001", Title: "First", Authors: []string{"Zed", "Amy", "Bob"}, Categories: []string{"cs.LG", "cs.AI"}, PrimaryCategory: "cs.LG", Published: "2024-01-01T00:00:00Z", PDFURL: "https://arxiv.org/pdf/2401.0001"},
		{Title: "No ID", Authors: []string{"Amy"}, Published: "2024-01-02"},
	}
	if err := db.ImportPartition("2024-01-01.json", "sum1", recs); err != nil {
		t.Fatalf("ImportPartition: %v", err)
	}
	if err := db.ImportPartition("2023-12-31.json", "sum0", []models.Record{{ID: "old"}}); err != nil {
		t.Fatalf("ImportPartition: %v", err)
	}

	batch, err := db.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(batch.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(batch.Records))
	}
	if batch.Records[0].ID != "old" {
		t.Errorf("partitions should come in path order, first = %q", batch.Records[0].ID)
	}
	got := batch.Records[1]
	if !reflect.DeepEqual(got, recs[0]) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, recs[0])
	}
	if batch.Records[2].ID != "" {
		t.Errorf("missing id should stay empty, got %q", batch.Records[2].ID)
	}
	if len(batch.PartitionErrors) != 0 {
		t.Errorf("unexpected partition errors: %v", batch.PartitionErrors)
	}
}

func TestImportReplacesPartition(t *testing.T) {
	db := testDB(t)
	_ = db.ImportPartition("a.json", "1", []models.Record{{ID: "x"}, {ID: "y"}})
	_ = db.ImportPartition("a.json", "2", []models.Record{{ID: "z"}})

	n, err := db.PaperCount()
	if err != nil {
		t.Fatalf("PaperCount: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 paper after reimport, got %d", n)
	}
	cs, _ := db.GetChecksum("a.json")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
}

func TestDeletePartitionCascades(t *testing.T) {
	db := testDB(t)
	_ = db.ImportPartition("del.json", "x", []models.Record{{ID: "p", Authors: []string{"Solo"}, Categories: []string{"math.CO"}}})

	if err := db.DeletePartition("del.json"); err != nil {
		t.Fatalf("DeletePartition: %v", err)
	}
	cs, _ := db.GetChecksum("del.json")
	if cs != "" {
		t.Errorf("deleted partition still has checksum %q", cs)
	}
	for _, table := range []string{"papers", "paper_authors", "authors", "paper_categories", "categories"} {
		var count int
		_ = db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count)
		if count != 0 {
			t.Errorf("%s: expected 0 rows after delete, got %d", table, count)
		}
	}
}

func TestApplyPartitionRecordsParseFailure(t *testing.T) {
	db := testDB(t)
	_ = db.ApplyPartition("2024-01-01.json", []byte(`[{"id":"ok","title":"Fine"}]`))
	if err := db.ApplyPartition("2024-01-02.json", []byte(`{not json`)); err == nil {
		t.Fatal("expected parse error")
	}

	batch, err := db.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(batch.Records) != 1 || batch.Records[0].ID != "ok" {
		t.Errorf("unexpected records: %+v", batch.Records)
	}
	if len(batch.PartitionErrors) != 1 || batch.PartitionErrors[0].Partition != "2024-01-02.json" {
		t.Errorf("unexpected partition errors: %+v", batch.PartitionErrors)
	}

	// Fixing the file clears the recorded failure.
	_ = db.ApplyPartition("2024-01-02.json", []byte(`[{"id":"fixed"}]`))
	batch, _ = db.FetchAll(context.Background())
	if len(batch.PartitionErrors) != 0 || len(batch.Records) != 2 {
		t.Errorf("after fix: %d records, %d errors", len(batch.Records), len(batch.PartitionErrors))
	}
}

func TestPartitions(t *testing.T) {
	db := testDB(t)
	_ = db.ImportPartition("b.json", "2", []models.Record{{ID: "1"}, {ID: "2"}})
	_ = db.ImportPartition("a.json", "1", nil)

	rows, err := db.Partitions()
	if err != nil {
		t.Fatalf("Partitions: %v", err)
	}
	if len(rows) != 2 || rows[0].Path != "a.json" || rows[1].PaperCount != 2 {
		t.Errorf("unexpected partitions: %+v", rows)
	}
	if rows[0].SyncedAt.IsZero() {
		t.Error("synced_at not set")
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSync(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	db := testDB(t)
	logger := quietLogger()

	writeFile(t, dir, "2024-01-01.json", `[{"id":"a"}]`)
	writeFile(t, dir, "2024-01-02.json", `[{"id":"b"},{"id":"c"}]`)

	res, err := Sync(db, store, logger)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Applied != 2 || !res.Changed() {
		t.Errorf("first sync: %+v", res)
	}

	res, _ = Sync(db, store, logger)
	if res.Changed() || res.Unchanged != 2 {
		t.Errorf("second sync should be a no-op: %+v", res)
	}

	_ = os.Remove(filepath.Join(dir, "2024-01-01.json"))
	res, _ = Sync(db, store, logger)
	if res.Removed != 1 {
		t.Errorf("expected 1 removal: %+v", res)
	}
	n, _ := db.PaperCount()
	if n != 2 {
		t.Errorf("expected 2 papers, got %d", n)
	}
}

func TestTrackerSync(t *testing.T) {
	dir := t.TempDir()
	store, _ := storage.NewFS(dir)
	writeFile(t, dir, "x.json", `[]`)
	writeFile(t, dir, ".swap.json", `[]`)

	tr := NewTracker()
	res, err := Sync(tr, store, quietLogger())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Applied != 1 {
		t.Errorf("expected 1 applied, got %+v", res)
	}
	sums, _ := tr.AllChecksums()
	if _, ok := sums["x.json"]; !ok || len(sums) != 1 {
		t.Errorf("unexpected checksums: %v", sums)
	}
}
