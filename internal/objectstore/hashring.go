package objectstore

import (
	"hash/fnv"
	"sort"
	"strconv"

	"github.com/nmanojkumar030/sparklite-core/internal/netsim"
)

// defaultVirtualNodes is how many ring points each server owns. Spread
// across the ring, this avoids the hot-spotting a naive one-point-per-
// server ring exhibits under a small server count.
const defaultVirtualNodes = 64

// HashRing maps keys to server endpoints by consistent hashing. Adding or
// removing a server only touches the ring's own points; it never migrates
// or rebalances objects already stored on a server.
type HashRing struct {
	virtualNodes int
	points       []uint64             // sorted ring positions
	owner        map[uint64]netsim.Endpoint
	servers      map[netsim.Endpoint]bool
}

// NewHashRing constructs an empty ring. vnodes <= 0 uses
// defaultVirtualNodes.
func NewHashRing(vnodes int) *HashRing {
	if vnodes <= 0 {
		vnodes = defaultVirtualNodes
	}
	return &HashRing{
		virtualNodes: vnodes,
		owner:        make(map[uint64]netsim.Endpoint),
		servers:      make(map[netsim.Endpoint]bool),
	}
}

// AddServer adds ep's virtual points to the ring. A no-op if ep is
// already present.
func (r *HashRing) AddServer(ep netsim.Endpoint) {
	if r.servers[ep] {
		return
	}
	r.servers[ep] = true
	for i := 0; i < r.virtualNodes; i++ {
		h := hashRingPoint(ep, i)
		r.owner[h] = ep
		r.points = append(r.points, h)
	}
	sort.Slice(r.points, func(i, j int) bool { return r.points[i] < r.points[j] })
}

// RemoveServer drops ep's virtual points. Keys that previously mapped to
// ep now resolve to whichever server is next clockwise; anything stored
// on ep is not migrated and becomes unreachable through the ring.
func (r *HashRing) RemoveServer(ep netsim.Endpoint) {
	if !r.servers[ep] {
		return
	}
	delete(r.servers, ep)
	kept := r.points[:0]
	for _, h := range r.points {
		if r.owner[h] == ep {
			delete(r.owner, h)
			continue
		}
		kept = append(kept, h)
	}
	r.points = kept
}

// GetServerForKey returns the first server clockwise of hash(key). false
// if the ring has no servers.
func (r *HashRing) GetServerForKey(key string) (netsim.Endpoint, bool) {
	if len(r.points) == 0 {
		return "", false
	}
	h := hashString(key)
	i := sort.Search(len(r.points), func(i int) bool { return r.points[i] >= h })
	if i == len(r.points) {
		i = 0
	}
	return r.owner[r.points[i]], true
}

// Servers returns the set of currently registered server endpoints, order
// unspecified.
func (r *HashRing) Servers() []netsim.Endpoint {
	out := make([]netsim.Endpoint, 0, len(r.servers))
	for ep := range r.servers {
		out = append(out, ep)
	}
	return out
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

func hashRingPoint(ep netsim.Endpoint, vnode int) uint64 {
	return hashString(string(ep) + "#" + strconv.Itoa(vnode))
}
