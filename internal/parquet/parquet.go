// Package parquet implements a columnar read path: footer parsing,
// row-group statistics exposure, predicate-pushdown row-group selection, and
// partitioned reads for distributed consumption by the object store.
//
// The package speaks a self-contained columnar file format modeled on the
// Apache Parquet layout: a trailing footer (schema + per-row-group,
// per-column statistics) in the same big-endian, length-prefixed style as
// the B+Tree value serializer, with row data reusing
// pager.EncodeValue/DecodeValue directly so a decoded record is a map from
// column names to the same typed scalars the rest of the storage layer
// uses. Row-group payloads are gzip-compressed
// (github.com/klauspost/compress/gzip), matching the kind of page
// compression real column chunks carry.
package parquet

import "errors"

var (
	// ErrFormat mirrors the B+Tree's FormatError: the footer or trailer
	// does not conform to this package's layout.
	ErrFormat = errors.New("parquet: format error")

	// ErrUnsupportedType is returned encoding or decoding a statistics
	// scalar outside {string, int32, int64, double, bool}.
	ErrUnsupportedType = errors.New("parquet: unsupported scalar type")

	// ErrRowGroupOutOfRange is returned when a caller names a row-group
	// index outside [0, len(RowGroups)).
	ErrRowGroupOutOfRange = errors.New("parquet: row group out of range")
)

// PrimitiveType names one column's declared storage type.
type PrimitiveType uint8

const (
	TypeString PrimitiveType = 1
	TypeInt32  PrimitiveType = 2
	TypeInt64  PrimitiveType = 3
	TypeDouble PrimitiveType = 4
	TypeBool   PrimitiveType = 5
)

// SchemaColumn is one entry in a file's ordered schema.
type SchemaColumn struct {
	Name string
	Type PrimitiveType
}

// ColumnStatistics carries one column chunk's min/max/null_count/
// value_count, plus an optional distinct_count threaded through when the
// footer provides one.
type ColumnStatistics struct {
	Present       bool
	Min           any
	Max           any
	NullCount     uint64
	ValueCount    uint64
	DistinctCount *uint64
}

// RowGroup describes one contiguous, independently-readable unit of rows.
type RowGroup struct {
	RowCount    uint64
	ByteOffset  uint64
	ByteLength  uint64
	ColumnStats map[string]ColumnStatistics // absent key = column chunk absent for this row group
}

// FileMetadata is the fully parsed footer.
type FileMetadata struct {
	Schema    []SchemaColumn
	RowGroups []RowGroup
}

// ColumnByName returns the statistics for col in row group rg, reporting
// false if the column chunk is absent for that row group entirely (as
// opposed to present-but-with-no-stats, which ColumnStatistics.Present
// distinguishes).
func (rg RowGroup) ColumnByName(col string) (ColumnStatistics, bool) {
	stats, ok := rg.ColumnStats[col]
	return stats, ok
}

const (
	// magic identifies this package's columnar file format; see the
	// package doc.
	magic = "PQT1"

	// trailerSize is the fixed suffix every file ends with: a uint32
	// footer length followed by the 4-byte magic.
	trailerSize = 4 + len(magic)

	// initialFooterSuffix bounds the first speculative tail read; if the
	// trailer's footer length says more bytes are needed, OpenReader
	// retries with exactly that many.
	initialFooterSuffix = 64 * 1024
)
