package objectstore

import (
	"fmt"
	"io"
	"time"
)

// RangeReader adapts one stored object to io.ReaderAt by issuing RANGE
// RPCs through a Client, ticking the bus until each resolves. It exists
// so the columnar read path can parse a file's footer and fetch row
// groups straight out of the object store: parquet.OpenReader only needs
// an io.ReaderAt plus the object's size, both of which this provides.
type RangeReader struct {
	client  *Client
	key     string
	size    int64
	timeout time.Duration
}

// NewRangeReader resolves key's size up front (one SIZE RPC) and returns
// a reader over its bytes. ErrNotFound if key is absent.
func NewRangeReader(client *Client, key string, timeout time.Duration) (*RangeReader, error) {
	size, err := client.SizeSync(key, timeout)
	if err != nil {
		return nil, err
	}
	return &RangeReader{client: client, key: key, size: int64(size), timeout: timeout}, nil
}

// Size returns the object's byte length as observed at construction.
func (r *RangeReader) Size() int64 { return r.size }

// ReadAt fills p from the object's bytes starting at off, issuing one
// RANGE RPC per call. Reads that run past the object's end return the
// bytes that exist plus io.EOF, per the io.ReaderAt contract.
func (r *RangeReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("objectstore: negative offset %d", off)
	}
	if off >= r.size {
		return 0, io.EOF
	}
	end := off + int64(len(p)) - 1
	if end >= r.size {
		end = r.size - 1
	}
	data, err := r.client.RangeSync(r.key, off, end, r.timeout)
	if err != nil {
		return 0, err
	}
	n := copy(p, data)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
