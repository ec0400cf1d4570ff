package table

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/nmanojkumar030/sparklite-core/internal/parquet"
)

func openParquetTable(t *testing.T) *Table {
	t.Helper()
	dir := t.TempDir()
	schema := []parquet.SchemaColumn{
		{Name: "id", Type: parquet.TypeString},
		{Name: "name", Type: parquet.TypeString},
		{Name: "age", Type: parquet.TypeInt32},
	}
	storage, err := NewParquetStorage(filepath.Join(dir, "customers.pqt"), schema, "id", 10)
	if err != nil {
		t.Fatalf("new parquet storage: %v", err)
	}
	tbl, err := New(customersSchema(), storage)
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	t.Cleanup(func() { tbl.Close() })
	return tbl
}

func TestParquetStorage_InsertThenFindByPrimaryKey(t *testing.T) {
	tbl := openParquetTable(t)

	for i := 1; i <= 25; i++ {
		if err := tbl.Insert(customerRecord(i)); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	got, found, err := tbl.FindByPrimaryKey("CUST0010")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !found {
		t.Fatal("expected to find CUST0010")
	}
	if got["name"] != customerRecord(10)["name"] {
		t.Fatalf("name = %v, want %v", got["name"], customerRecord(10)["name"])
	}
}

func TestParquetStorage_WriteAfterQueryFails(t *testing.T) {
	tbl := openParquetTable(t)
	if err := tbl.Insert(customerRecord(1)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, _, err := tbl.FindByPrimaryKey("CUST0001"); err != nil {
		t.Fatalf("find: %v", err)
	}
	if err := tbl.Insert(customerRecord(2)); err == nil {
		t.Fatal("expected an error writing after the storage switched to its read path")
	}
}

func TestParquetStorage_ScanOrdersByKeyAndProjects(t *testing.T) {
	tbl := openParquetTable(t)
	var batch []map[string]any
	for i := 1; i <= 15; i++ {
		batch = append(batch, customerRecord(i))
	}
	if err := tbl.InsertBatch(batch); err != nil {
		t.Fatalf("insert batch: %v", err)
	}

	rows, err := tbl.Scan("CUST0003", "CUST0008", []string{"name"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("rows = %d, want 5", len(rows))
	}
	for i, row := range rows {
		wantKey := fmt.Sprintf("CUST%04d", 3+i)
		if string(row.Key) != wantKey {
			t.Fatalf("row %d key = %q, want %q", i, row.Key, wantKey)
		}
		if _, ok := row.Value["email"]; ok {
			t.Fatal("projected scan leaked an unrequested column")
		}
	}
}

func TestParquetStorage_DeleteUnsupported(t *testing.T) {
	tbl := openParquetTable(t)
	if err := tbl.Insert(customerRecord(1)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	storage := tbl.storage.(*ParquetStorage)
	if err := storage.Delete([]byte("CUST0001")); err == nil {
		t.Fatal("expected delete to be unsupported for parquet storage")
	}
}
