package parquet

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/nmanojkumar030/sparklite-core/internal/pager"
)

// Reader is the columnar read path: it owns only the parsed footer
// and a handle to the underlying storage, and reads row-group bytes
// on demand rather than loading the whole file.
type Reader struct {
	ra   io.ReaderAt
	size int64
	Meta FileMetadata
}

// OpenReader parses the footer of a file of the given size accessible
// through ra (a local *os.File or an object-store range-read adapter both
// satisfy io.ReaderAt): read a bounded tail first, and only re-read a
// larger tail if the trailer's footer length says more is needed.
func OpenReader(ra io.ReaderAt, size int64) (*Reader, error) {
	if size < int64(trailerSize) {
		return nil, fmt.Errorf("file too small (%d bytes): %w", size, ErrFormat)
	}

	suffix := int64(initialFooterSuffix)
	if suffix > size {
		suffix = size
	}
	tail, err := readTail(ra, size, suffix)
	if err != nil {
		return nil, err
	}

	trailer := tail[len(tail)-trailerSize:]
	footerLen := int64(beUint32(trailer[:4]))
	if string(trailer[4:]) != magic {
		return nil, fmt.Errorf("bad trailer magic: %w", ErrFormat)
	}

	need := footerLen + int64(trailerSize)
	if need > suffix {
		// The first speculative read didn't cover the whole footer;
		// retry with exactly the bytes the trailer says we need.
		tail, err = readTail(ra, size, need)
		if err != nil {
			return nil, err
		}
	}

	footerStart := int64(len(tail)) - int64(trailerSize) - footerLen
	if footerStart < 0 {
		return nil, fmt.Errorf("footer length %d exceeds file: %w", footerLen, ErrFormat)
	}
	meta, err := decodeFooter(tail[footerStart : int64(len(tail))-int64(trailerSize)])
	if err != nil {
		return nil, fmt.Errorf("decode footer: %w", err)
	}

	return &Reader{ra: ra, size: size, Meta: meta}, nil
}

func readTail(ra io.ReaderAt, size, n int64) ([]byte, error) {
	if n > size {
		n = size
	}
	buf := make([]byte, n)
	if _, err := ra.ReadAt(buf, size-n); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read tail: %w", err)
	}
	return buf, nil
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// SelectRowGroups implements predicate pushdown: a row group is excluded
// only when column's statistics are present AND its max is defined AND
// max < minValue. Absent chunks or absent statistics always force a
// conservative include.
func SelectRowGroups(meta FileMetadata, column string, minValue any) []int {
	var selected []int
	for i, rg := range meta.RowGroups {
		stats, present := rg.ColumnStats[column]
		if !present || !stats.Present || stats.Max == nil {
			selected = append(selected, i)
			continue
		}
		cmp, ok := compareScalarOK(stats.Max, minValue)
		if !ok || cmp >= 0 {
			selected = append(selected, i)
		}
	}
	return selected
}

// ReadRowGroups reads only the named row groups and, if columns is
// non-nil, projects each decoded record down to those column names;
// absent columns are silently omitted, the same projection rule the
// B+Tree scan applies.
func (r *Reader) ReadRowGroups(indices []int, columns []string) ([]map[string]any, error) {
	var out []map[string]any
	for _, idx := range indices {
		if idx < 0 || idx >= len(r.Meta.RowGroups) {
			return nil, fmt.Errorf("index %d: %w", idx, ErrRowGroupOutOfRange)
		}
		rg := r.Meta.RowGroups[idx]
		records, err := r.readRowGroupBody(rg)
		if err != nil {
			return nil, fmt.Errorf("row group %d: %w", idx, err)
		}
		for _, rec := range records {
			out = append(out, projectColumns(rec, columns))
		}
	}
	return out, nil
}

func (r *Reader) readRowGroupBody(rg RowGroup) ([]map[string]any, error) {
	compressed := make([]byte, rg.ByteLength)
	if _, err := r.ra.ReadAt(compressed, int64(rg.ByteOffset)); err != nil {
		return nil, fmt.Errorf("read compressed bytes: %w", err)
	}
	gr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("gzip open: %w", err)
	}
	defer gr.Close()
	body, err := io.ReadAll(gr)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}

	if len(body) < 4 {
		return nil, fmt.Errorf("row group body: %w", ErrFormat)
	}
	count := beUint32(body[:4])
	off := 4
	records := make([]map[string]any, 0, count)
	for i := uint32(0); i < count; i++ {
		if off+4 > len(body) {
			return nil, fmt.Errorf("record %d length: %w", i, ErrFormat)
		}
		l := int(beUint32(body[off:]))
		off += 4
		if off+l > len(body) {
			return nil, fmt.Errorf("record %d body: %w", i, ErrFormat)
		}
		rec, err := pager.DecodeValue(body[off : off+l])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
		off += l
	}
	return records, nil
}

func projectColumns(rec map[string]any, columns []string) map[string]any {
	if columns == nil {
		return rec
	}
	out := make(map[string]any, len(columns))
	for _, c := range columns {
		if v, ok := rec[c]; ok {
			out[c] = v
		}
	}
	return out
}

// compareScalar orders two scalars of the same dynamic type: numerics
// numerically, strings lexicographically, booleans false<true. Mismatched
// or unsupported types compare equal (callers needing strictness should
// use compareScalarOK).
func compareScalar(a, b any) int {
	c, _ := compareScalarOK(a, b)
	return c
}

func compareScalarOK(a, b any) (int, bool) {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	as, asOK := a.(string)
	bs, bsOK := b.(string)
	if asOK && bsOK {
		switch {
		case as < bs:
			return -1, true
		case as > bs:
			return 1, true
		default:
			return 0, true
		}
	}
	ab, abOK := a.(bool)
	bb, bbOK := b.(bool)
	if abOK && bbOK {
		if ab == bb {
			return 0, true
		}
		if !ab {
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
