package table

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/nmanojkumar030/sparklite-core/internal/parquet"
)

// ParquetStorage adapts the columnar read path (internal/parquet) to the
// Storage contract as a buffered batch writer plus read path. Writes
// buffer records into row groups through a parquet.Writer; the first Read
// or Scan call finalizes the file (closing the writer side) and switches
// to the read path. There is no key index, so Read and Scan work by
// reading every row group and filtering by the configured primary-key
// column — a columnar file has no sorted key structure to binary-search
// the way the B+Tree does.
type ParquetStorage struct {
	path     string
	pkColumn string

	f      *os.File
	writer *parquet.Writer
	reader *parquet.Reader
	closed bool
}

// NewParquetStorage creates path and opens it for buffered writes. pk
// names the schema column whose rendered text form plays the role of the
// Storage key (mirroring Table.primaryKeyBytes's UTF-8 rendering).
func NewParquetStorage(path string, schema []parquet.SchemaColumn, pk string, rowGroupSize int) (*ParquetStorage, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("table: create parquet file %s: %w", path, err)
	}
	return &ParquetStorage{
		path:     path,
		pkColumn: pk,
		f:        f,
		writer:   parquet.NewWriter(f, schema, rowGroupSize),
	}, nil
}

func (s *ParquetStorage) Write(_ []byte, value map[string]any) error {
	if s.writer == nil {
		return fmt.Errorf("table: parquet storage is read-only once queried or closed")
	}
	return s.writer.WriteRecord(value)
}

// WriteBatch collapses to one WriteRecord per entry; the writer already
// buffers per row group, so there is no separate bulk path.
func (s *ParquetStorage) WriteBatch(entries []Entry) error {
	for _, e := range entries {
		if err := s.Write(e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// switchToReadPath finalizes the writer (flushing the footer) the first
// time a Read or Scan is issued, then opens the same file for the
// columnar read path. Further writes after this point fail.
func (s *ParquetStorage) switchToReadPath() error {
	if s.reader != nil {
		return nil
	}
	if s.writer != nil {
		if err := s.writer.Close(); err != nil {
			return fmt.Errorf("table: flush parquet writer: %w", err)
		}
		s.writer = nil
		if err := s.f.Close(); err != nil {
			return fmt.Errorf("table: close parquet file after write: %w", err)
		}
		f, err := os.Open(s.path)
		if err != nil {
			return fmt.Errorf("table: reopen parquet file for reads: %w", err)
		}
		s.f = f
	}
	info, err := s.f.Stat()
	if err != nil {
		return fmt.Errorf("table: stat parquet file: %w", err)
	}
	reader, err := parquet.OpenReader(s.f, info.Size())
	if err != nil {
		return fmt.Errorf("table: open parquet reader: %w", err)
	}
	s.reader = reader
	return nil
}

func (s *ParquetStorage) allRowGroupIndices() []int {
	indices := make([]int, len(s.reader.Meta.RowGroups))
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// Read performs a linear scan over every row group, matching the
// configured primary-key column's rendered text form against key.
func (s *ParquetStorage) Read(key []byte) (map[string]any, bool, error) {
	if err := s.switchToReadPath(); err != nil {
		return nil, false, err
	}
	records, err := s.reader.ReadRowGroups(s.allRowGroupIndices(), nil)
	if err != nil {
		return nil, false, err
	}
	want := string(key)
	for _, rec := range records {
		if pkText(rec[s.pkColumn]) == want {
			return rec, true, nil
		}
	}
	return nil, false, nil
}

// Scan reads every row group, filters by the primary-key column's
// rendered form falling in [start, end), projects to columns, and
// returns rows in ascending key order, the same ordering contract
// Table.Scan promises regardless of which Storage backs it. The
// primary-key column is always read so the filter has a key to compare,
// then stripped again if the caller's projection didn't ask for it.
func (s *ParquetStorage) Scan(start, end []byte, columns []string) ([]Entry, error) {
	if err := s.switchToReadPath(); err != nil {
		return nil, err
	}

	readCols := columns
	pkRequested := columns == nil
	if columns != nil {
		for _, c := range columns {
			if c == s.pkColumn {
				pkRequested = true
				break
			}
		}
		if !pkRequested {
			readCols = append(append([]string(nil), columns...), s.pkColumn)
		}
	}

	records, err := s.reader.ReadRowGroups(s.allRowGroupIndices(), readCols)
	if err != nil {
		return nil, err
	}

	var out []Entry
	for _, rec := range records {
		keyBytes := []byte(pkText(rec[s.pkColumn]))
		if start != nil && bytes.Compare(keyBytes, start) < 0 {
			continue
		}
		if end != nil && bytes.Compare(keyBytes, end) >= 0 {
			continue
		}
		if !pkRequested {
			delete(rec, s.pkColumn)
		}
		out = append(out, Entry{Key: keyBytes, Value: rec})
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Key, out[j].Key) < 0 })
	return out, nil
}

// Delete is unsupported: the columnar files are never deleted or
// compacted once written.
func (s *ParquetStorage) Delete(key []byte) error {
	return fmt.Errorf("table: parquet delete %q: %w", key, ErrUnsupported)
}

// Close finalizes the writer if still open, or releases the read-path
// file handle.
func (s *ParquetStorage) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.writer != nil {
		if err := s.writer.Close(); err != nil {
			return err
		}
	}
	return s.f.Close()
}

func pkText(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
