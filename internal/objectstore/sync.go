package objectstore

import (
	"fmt"
	"time"

	"github.com/nmanojkumar030/sparklite-core/internal/tickrunner"
)

// Synchronous wrappers over the Future-returning RPC methods: each issues
// the request, then drives the bus via tickrunner until the Future
// resolves or timeout elapses. Callers that interleave many in-flight
// requests should use the Future API directly and tick once for all of
// them instead.

func (c *Client) await(f *Future, timeout time.Duration) (*Response, error) {
	if err := tickrunner.RunUntil(c.bus, f.Done, timeout); err != nil {
		return nil, err
	}
	resp, err := f.Response()
	if err != nil {
		return nil, err
	}
	if resp.Status == StatusError {
		return nil, fmt.Errorf("objectstore: %s failed: %s", resp.Op, resp.Err)
	}
	return resp, nil
}

// PutSync stores value under key, ticking until the server acknowledges.
func (c *Client) PutSync(key string, value []byte, timeout time.Duration) error {
	_, err := c.await(c.Put(key, value), timeout)
	return err
}

// GetSync retrieves the value at key, or ErrNotFound.
func (c *Client) GetSync(key string, timeout time.Duration) ([]byte, error) {
	resp, err := c.await(c.Get(key), timeout)
	if err != nil {
		return nil, err
	}
	if resp.Status == StatusNotFound {
		return nil, fmt.Errorf("get %q: %w", key, ErrNotFound)
	}
	return resp.Payload, nil
}

// DeleteSync removes key, or returns ErrNotFound if it was never stored.
func (c *Client) DeleteSync(key string, timeout time.Duration) error {
	resp, err := c.await(c.Delete(key), timeout)
	if err != nil {
		return err
	}
	if resp.Status == StatusNotFound {
		return fmt.Errorf("delete %q: %w", key, ErrNotFound)
	}
	return nil
}

// ListSync returns the keys under prefix on the server the ring assigns
// to prefix.
func (c *Client) ListSync(prefix string, timeout time.Duration) ([]string, error) {
	resp, err := c.await(c.List(prefix), timeout)
	if err != nil {
		return nil, err
	}
	return resp.Keys, nil
}

// SizeSync returns the byte length stored at key, or ErrNotFound.
func (c *Client) SizeSync(key string, timeout time.Duration) (uint64, error) {
	resp, err := c.await(c.Size(key), timeout)
	if err != nil {
		return 0, err
	}
	if resp.Status == StatusNotFound {
		return 0, fmt.Errorf("size %q: %w", key, ErrNotFound)
	}
	return resp.Size, nil
}

// RangeSync returns bytes [start, end] (inclusive) stored at key, or
// ErrNotFound.
func (c *Client) RangeSync(key string, start, end int64, timeout time.Duration) ([]byte, error) {
	resp, err := c.await(c.Range(key, start, end), timeout)
	if err != nil {
		return nil, err
	}
	if resp.Status == StatusNotFound {
		return nil, fmt.Errorf("range %q: %w", key, ErrNotFound)
	}
	return resp.Payload, nil
}
