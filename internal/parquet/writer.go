package parquet

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/nmanojkumar030/sparklite-core/internal/pager"
)

// Writer buffers records into row groups and appends each one, gzip-
// compressed, to an underlying io.Writer, closing with a footer that
// records per-row-group, per-column statistics. The read path treats the
// producer as a black box: OpenReader only requires an io.ReaderAt plus a
// size, not this writer, so callers with files from another conformant
// producer can skip it entirely.
type Writer struct {
	w           io.Writer
	schema      []SchemaColumn
	offset      uint64
	rowGroups   []RowGroup
	pendingRows []map[string]any
	rowGroupMax int
	closed      bool
}

// NewWriter returns a Writer over schema. rowGroupMax bounds how many
// buffered records WriteRecord accumulates before auto-flushing a row
// group; 0 means "only flush explicitly via FlushRowGroup/Close".
func NewWriter(w io.Writer, schema []SchemaColumn, rowGroupMax int) *Writer {
	return &Writer{w: w, schema: schema, rowGroupMax: rowGroupMax}
}

// WriteRecord buffers one record, auto-flushing a row group once
// rowGroupMax is reached.
func (pw *Writer) WriteRecord(record map[string]any) error {
	pw.pendingRows = append(pw.pendingRows, record)
	if pw.rowGroupMax > 0 && len(pw.pendingRows) >= pw.rowGroupMax {
		return pw.FlushRowGroup()
	}
	return nil
}

// WriteRowGroup flushes any pending records first, then writes records as
// a single new row group regardless of rowGroupMax.
func (pw *Writer) WriteRowGroup(records []map[string]any) error {
	if len(pw.pendingRows) > 0 {
		if err := pw.FlushRowGroup(); err != nil {
			return err
		}
	}
	pw.pendingRows = records
	return pw.FlushRowGroup()
}

// FlushRowGroup writes the currently buffered records as one row group. A
// no-op if nothing is pending.
func (pw *Writer) FlushRowGroup() error {
	if len(pw.pendingRows) == 0 {
		return nil
	}
	records := pw.pendingRows
	pw.pendingRows = nil

	var body bytes.Buffer
	body.Write(appendU32(nil, uint32(len(records))))
	for i, rec := range records {
		enc, err := pager.EncodeValue(rec)
		if err != nil {
			return fmt.Errorf("row group %d record %d: %w", len(pw.rowGroups), i, err)
		}
		body.Write(appendU32(nil, uint32(len(enc))))
		body.Write(enc)
	}

	var compressed bytes.Buffer
	gw := gzip.NewWriter(&compressed)
	if _, err := gw.Write(body.Bytes()); err != nil {
		return fmt.Errorf("row group %d compress: %w", len(pw.rowGroups), err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("row group %d compress close: %w", len(pw.rowGroups), err)
	}

	n, err := pw.w.Write(compressed.Bytes())
	if err != nil {
		return fmt.Errorf("row group %d write: %w", len(pw.rowGroups), err)
	}

	pw.rowGroups = append(pw.rowGroups, RowGroup{
		RowCount:    uint64(len(records)),
		ByteOffset:  pw.offset,
		ByteLength:  uint64(n),
		ColumnStats: computeStatistics(pw.schema, records),
	})
	pw.offset += uint64(n)
	return nil
}

// Close flushes any pending row group and writes the footer + trailer.
// Safe to call once; subsequent calls are a no-op.
func (pw *Writer) Close() error {
	if pw.closed {
		return nil
	}
	pw.closed = true
	if err := pw.FlushRowGroup(); err != nil {
		return err
	}

	meta := FileMetadata{Schema: pw.schema, RowGroups: pw.rowGroups}
	footer, err := encodeFooter(meta)
	if err != nil {
		return fmt.Errorf("encode footer: %w", err)
	}
	if _, err := pw.w.Write(footer); err != nil {
		return fmt.Errorf("write footer: %w", err)
	}

	trailer := appendU32(nil, uint32(len(footer)))
	trailer = append(trailer, magic...)
	if _, err := pw.w.Write(trailer); err != nil {
		return fmt.Errorf("write trailer: %w", err)
	}
	return nil
}

// computeStatistics derives per-column min/max/null_count/value_count for
// one row group's buffered records. Every non-null value takes part in
// Min/Max, ordered by compareScalar (numerics, strings and booleans); a
// column with no non-null values across the row group is reported Present
// but with nil Min/Max (distinguished from "chunk absent").
func computeStatistics(schema []SchemaColumn, records []map[string]any) map[string]ColumnStatistics {
	stats := make(map[string]ColumnStatistics, len(schema))
	for _, col := range schema {
		s := ColumnStatistics{Present: true}
		for _, rec := range records {
			v, ok := rec[col.Name]
			if !ok || v == nil {
				s.NullCount++
				continue
			}
			s.ValueCount++
			if s.Min == nil || compareScalar(v, s.Min) < 0 {
				s.Min = v
			}
			if s.Max == nil || compareScalar(v, s.Max) > 0 {
				s.Max = v
			}
		}
		stats[col.Name] = s
	}
	return stats
}
