// Package netsim implements a deterministic, tick-driven network
// simulator: a single-threaded, cooperative discrete-event queue with
// latency sampling, drops, partitions, and per-seed reproducibility. It
// drives every test in this module instead of wall-clock time; the
// object store (internal/objectstore) and its hash-ring routing are built
// entirely on top of it.
//
// Same-tick delivery: a handler invoked during Tick may call Send; if the
// sampled latency is 0, the new envelope's delivery tick equals the tick
// currently being processed, and Tick's delivery loop re-checks the queue
// head after every delivery, so a zero-latency envelope sent mid-tick is
// delivered within that SAME Tick call, not the next one. Non-zero
// latency always lands in a later tick.
package netsim

import (
	"container/heap"
	"math/rand"

	"github.com/google/uuid"
)

// Endpoint names one participant on the simulated network (an object
// store server, a client, etc).
type Endpoint string

// Envelope wraps one in-flight message: an identity, a payload,
// source/destination endpoints, and the bus's own scheduling metadata.
type Envelope struct {
	ID           uint64
	TraceID      string
	Payload      any
	Source       Endpoint
	Destination  Endpoint
	DeliveryTick uint64
	Sequence     uint64
}

// Handler processes one delivered envelope synchronously. It may call
// Bus.Send; any envelopes it sends join the queue per the same-tick /
// next-tick rule documented above.
type Handler func(Envelope)

// Config seeds a Bus's tunable behavior. Zero value means zero latency,
// zero drop rate, no initial partitions.
type Config struct {
	Seed       uint64
	MinLatency uint64
	MaxLatency uint64
	DropRate   float64 // in [0,1); sampled independently of latency
}

// Bus is the deterministic network simulator. All state is owned by one
// goroutine; there is no internal locking. The scheduling model is
// single-threaded and cooperative throughout.
type Bus struct {
	seed    uint64
	cfg     Config
	rng     *rand.Rand
	current uint64
	nextID  uint64
	nextSeq uint64

	queue      envelopeQueue
	partitions map[pairKey]bool
	handlers   map[Endpoint]Handler

	delivered uint64
	dropped   uint64
}

type pairKey struct{ a, b Endpoint }

func makePairKey(a, b Endpoint) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// NewBus constructs a Bus seeded for reproducibility. Two Buses built with
// the same Config and driven through the same Send/Tick/Disconnect call
// sequence produce an identical handler-invocation trace.
func NewBus(cfg Config) *Bus {
	b := &Bus{
		cfg:        cfg,
		seed:       cfg.Seed,
		partitions: make(map[pairKey]bool),
		handlers:   make(map[Endpoint]Handler),
	}
	b.rng = rand.New(rand.NewSource(int64(cfg.Seed)))
	return b
}

// RegisterHandler binds a Handler to receive envelopes addressed to ep.
// Registration must happen between ticks, never from inside a Handler.
func (b *Bus) RegisterHandler(ep Endpoint, h Handler) {
	b.handlers[ep] = h
}

// CurrentTick returns the logical clock value.
func (b *Bus) CurrentTick() uint64 { return b.current }

// DeliveredCount and DroppedCount are observability counters for tests;
// they do not affect scheduling.
func (b *Bus) DeliveredCount() uint64 { return b.delivered }
func (b *Bus) DroppedCount() uint64   { return b.dropped }

// Send enqueues payload for delivery from src to dst. It returns false
// without enqueueing anything if the pair is partitioned or drop-rate
// sampling elects to drop the message; drops are silent.
func (b *Bus) Send(payload any, src, dst Endpoint) bool {
	if b.partitions[makePairKey(src, dst)] {
		b.dropped++
		return false
	}
	if b.cfg.DropRate > 0 && b.rng.Float64() < b.cfg.DropRate {
		b.dropped++
		return false
	}

	latency := b.sampleLatency()
	id := b.nextID
	b.nextID++
	seq := b.nextSeq
	b.nextSeq++

	// Trace IDs draw from the seeded PRNG, not uuid's global source, so
	// they reproduce across runs like every other envelope field.
	tid, _ := uuid.NewRandomFromReader(b.rng)

	env := &Envelope{
		ID:           id,
		TraceID:      tid.String(),
		Payload:      payload,
		Source:       src,
		Destination:  dst,
		DeliveryTick: b.current + latency,
		Sequence:     seq,
	}
	heap.Push(&b.queue, env)
	return true
}

func (b *Bus) sampleLatency() uint64 {
	if b.cfg.MaxLatency <= b.cfg.MinLatency {
		return b.cfg.MinLatency
	}
	span := b.cfg.MaxLatency - b.cfg.MinLatency + 1
	return b.cfg.MinLatency + uint64(b.rng.Int63n(int64(span)))
}

// Tick advances the logical clock by one and delivers every envelope
// whose DeliveryTick is now due, in (delivery_tick, sequence) order. A
// handler invoked here may enqueue new envelopes via Send; the delivery
// loop re-examines the queue head after each delivery, so zero-latency
// sends made during this Tick are delivered before Tick returns (see
// package doc).
func (b *Bus) Tick() {
	b.current++
	for b.queue.Len() > 0 && b.queue[0].DeliveryTick <= b.current {
		env := heap.Pop(&b.queue).(*Envelope)
		b.delivered++
		if h, ok := b.handlers[env.Destination]; ok {
			h(*env)
		}
	}
}

// Disconnect partitions a and b bidirectionally: sends in either
// direction are dropped silently until ReconnectAll.
func (b *Bus) Disconnect(a, b2 Endpoint) {
	b.partitions[makePairKey(a, b2)] = true
}

// ReconnectAll clears every partition.
func (b *Bus) ReconnectAll() {
	b.partitions = make(map[pairKey]bool)
}

// Reset clears the queue, all counters and partitions, and re-seeds the
// PRNG from the original seed, so a reset Bus reproduces the same future
// behavior as a freshly constructed one.
func (b *Bus) Reset() {
	b.queue = nil
	b.partitions = make(map[pairKey]bool)
	b.current = 0
	b.nextID = 0
	b.nextSeq = 0
	b.delivered = 0
	b.dropped = 0
	b.rng = rand.New(rand.NewSource(int64(b.seed)))
}
