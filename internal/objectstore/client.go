package objectstore

import (
	"errors"
	"fmt"

	"github.com/nmanojkumar030/sparklite-core/internal/netsim"
)

// ErrNotFound is returned by the synchronous helpers (Client.*Sync) for a
// resolved Future whose Response.Status is StatusNotFound.
var ErrNotFound = errors.New("objectstore: not found")

// Future is a one-shot completion token standing in for a language-level
// async runtime: a caller gets one back immediately from
// Client.Put/Get/..., then drives Bus.Tick (directly or via
// internal/tickrunner) until Done() is true.
type Future struct {
	resp *Response
	err  error
}

// Done reports whether the Future has been resolved.
func (f *Future) Done() bool { return f.resp != nil || f.err != nil }

// Response returns the resolved response and any transport-level error
// (e.g. routing failure before a request was even sent). Callers should
// check Done() first; calling Response before resolution returns
// (nil, nil).
func (f *Future) Response() (*Response, error) { return f.resp, f.err }

func (f *Future) resolve(resp Response) { f.resp = &resp }
func (f *Future) fail(err error)        { f.err = err }

// Client issues RPCs over a Bus, routed by a HashRing, from its own
// network endpoint. Each in-flight request is tracked by RequestID so the
// client's response handler can resolve the right Future regardless of
// delivery order.
type Client struct {
	endpoint netsim.Endpoint
	bus      *netsim.Bus
	ring     *HashRing
	nextID   uint64
	pending  map[uint64]*Future
}

// NewClient registers a response handler for endpoint on bus and returns
// a Client routed by ring.
func NewClient(bus *netsim.Bus, endpoint netsim.Endpoint, ring *HashRing) *Client {
	c := &Client{
		endpoint: endpoint,
		bus:      bus,
		ring:     ring,
		pending:  make(map[uint64]*Future),
	}
	bus.RegisterHandler(endpoint, c.handle)
	return c
}

func (c *Client) handle(env netsim.Envelope) {
	resp, ok := env.Payload.(*Response)
	if !ok {
		return
	}
	future, ok := c.pending[resp.RequestID]
	if !ok {
		return
	}
	delete(c.pending, resp.RequestID)
	future.resolve(*resp)
}

func (c *Client) dispatch(req *Request) *Future {
	future := &Future{}
	c.nextID++
	req.RequestID = c.nextID

	target, ok := c.ring.GetServerForKey(req.Key)
	if !ok {
		future.fail(fmt.Errorf("objectstore: no server available for key %q", req.Key))
		return future
	}

	c.pending[req.RequestID] = future
	if !c.bus.Send(req, c.endpoint, target) {
		delete(c.pending, req.RequestID)
		future.fail(fmt.Errorf("objectstore: send to %s dropped", target))
	}
	return future
}

// Put stores value under key, routed to the server the ring currently
// assigns to key.
func (c *Client) Put(key string, value []byte) *Future {
	return c.dispatch(&Request{Op: OpPut, Key: key, Payload: value})
}

// Get retrieves the value stored at key, or StatusNotFound if absent —
// including when the key's server was removed after the value was stored,
// since removal does not migrate data.
func (c *Client) Get(key string) *Future {
	return c.dispatch(&Request{Op: OpGet, Key: key})
}

// Delete removes key.
func (c *Client) Delete(key string) *Future {
	return c.dispatch(&Request{Op: OpDelete, Key: key})
}

// List returns keys with the given prefix from whichever server the ring
// currently assigns to the prefix itself. A LIST is not fanned out across
// all servers; a prefix routes to exactly one server the way any other
// key does, so it only sees keys stored there.
func (c *Client) List(prefix string) *Future {
	return c.dispatch(&Request{Op: OpList, Key: prefix, Prefix: prefix})
}

// Size returns the byte length stored at key.
func (c *Client) Size(key string) *Future {
	return c.dispatch(&Request{Op: OpSize, Key: key})
}

// Range returns bytes [start, end] (inclusive) stored at key.
func (c *Client) Range(key string, start, end int64) *Future {
	return c.dispatch(&Request{Op: OpRange, Key: key, RangeStart: start, RangeEnd: end})
}
