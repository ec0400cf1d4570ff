package table

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/nmanojkumar030/sparklite-core/internal/btree"
	"github.com/nmanojkumar030/sparklite-core/internal/pager"
)

func customersSchema() Schema {
	return Schema{
		PrimaryKey: "id",
		Columns: []Column{
			{Name: "id", Type: TypeString},
			{Name: "name", Type: TypeString},
			{Name: "email", Type: TypeString},
			{Name: "age", Type: TypeInt32},
			{Name: "city", Type: TypeString},
		},
	}
}

func openTable(t *testing.T, pageSize int) *Table {
	t.Helper()
	dir := t.TempDir()
	bt, err := btree.Open(filepath.Join(dir, "customers.db"), pageSize, pager.PageManagerConfig{})
	if err != nil {
		t.Fatalf("open btree: %v", err)
	}
	tbl, err := New(customersSchema(), NewBTreeStorage(bt))
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	t.Cleanup(func() { tbl.Close() })
	return tbl
}

func customerRecord(i int) map[string]any {
	return map[string]any{
		"id":    fmt.Sprintf("CUST%04d", i),
		"name":  fmt.Sprintf("Customer %d", i),
		"email": fmt.Sprintf("customer%d@example.com", i),
		"age":   int32(20 + i%50),
		"city":  "Springfield",
	}
}

func TestTable_SchemaRejectsMissingPrimaryKey(t *testing.T) {
	_, err := New(Schema{Columns: []Column{{Name: "id", Type: TypeString}}, PrimaryKey: "nope"}, nil)
	if err == nil {
		t.Fatal("expected an error for a primary key naming an absent column")
	}
}

func TestTable_InsertAndFindByPrimaryKey(t *testing.T) {
	tbl := openTable(t, pager.DefaultPageSize)

	rec := customerRecord(1)
	if err := tbl.Insert(rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, found, err := tbl.FindByPrimaryKey("CUST0001")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !found {
		t.Fatal("expected to find the inserted record")
	}
	if got["name"] != rec["name"] {
		t.Fatalf("name = %v, want %v", got["name"], rec["name"])
	}
}

func TestTable_FindMissingIsNotAnError(t *testing.T) {
	tbl := openTable(t, pager.DefaultPageSize)
	_, found, err := tbl.FindByPrimaryKey("CUST9999")
	if err != nil {
		t.Fatalf("expected no error for an absent key, got %v", err)
	}
	if found {
		t.Fatal("expected found=false for an absent key")
	}
}

func TestTable_InsertBatchAndScanWithProjection(t *testing.T) {
	tbl := openTable(t, 512)

	var batch []map[string]any
	for i := 1; i <= 20; i++ {
		batch = append(batch, customerRecord(i))
	}
	if err := tbl.InsertBatch(batch); err != nil {
		t.Fatalf("insert batch: %v", err)
	}

	rows, err := tbl.Scan("CUST0005", "CUST0010", []string{"name"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("scan returned %d rows, want 5", len(rows))
	}
	for i, row := range rows {
		wantID := fmt.Sprintf("CUST%04d", 5+i)
		if string(row.Key) != wantID {
			t.Fatalf("row %d key = %q, want %q", i, row.Key, wantID)
		}
		if _, ok := row.Value["email"]; ok {
			t.Fatal("projected scan leaked an unrequested column")
		}
		if row.Value["name"] == nil {
			t.Fatal("projected scan dropped a requested column")
		}
	}
}

func TestTable_InsertMissingPrimaryKeyField(t *testing.T) {
	tbl := openTable(t, pager.DefaultPageSize)
	err := tbl.Insert(map[string]any{"name": "no id here"})
	if err == nil {
		t.Fatal("expected an error inserting a record with no primary key field")
	}
}

func TestTable_Close(t *testing.T) {
	tbl := openTable(t, pager.DefaultPageSize)
	if err := tbl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
