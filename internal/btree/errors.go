package btree

import "errors"

var (
	// ErrValueTooLarge is returned when a value could never fit on a single
	// page, even an otherwise empty one. Overflow chains are not
	// implemented, so such values are rejected before any page is touched.
	ErrValueTooLarge = errors.New("btree: value too large for a single page")

	// ErrUnsupported is returned by Delete.
	ErrUnsupported = errors.New("btree: operation not supported")

	// ErrPageTooSmall is a configuration error: the configured page size
	// cannot hold two elements after a split.
	ErrPageTooSmall = errors.New("btree: page size too small to split")
)
