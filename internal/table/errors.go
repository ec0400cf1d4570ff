package table

import "errors"

// ErrUnsupported is returned by Storage operations an adapter cannot
// perform, e.g. ParquetStorage.Delete: the columnar files are
// append-then-read-only, with no deletion or compaction.
var ErrUnsupported = errors.New("table: operation not supported")
