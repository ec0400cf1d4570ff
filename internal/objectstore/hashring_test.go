package objectstore

import (
	"testing"

	"github.com/nmanojkumar030/sparklite-core/internal/netsim"
)

func TestHashRing_EmptyRingHasNoOwner(t *testing.T) {
	r := NewHashRing(0)
	if _, ok := r.GetServerForKey("anything"); ok {
		t.Fatal("empty ring must not return an owner")
	}
}

func TestHashRing_AlwaysReturnsARegisteredServer(t *testing.T) {
	r := NewHashRing(16)
	servers := []netsim.Endpoint{"s1", "s2", "s3"}
	for _, s := range servers {
		r.AddServer(s)
	}
	isKnown := func(ep netsim.Endpoint) bool {
		for _, s := range servers {
			if s == ep {
				return true
			}
		}
		return false
	}
	for i := 0; i < 200; i++ {
		ep, ok := r.GetServerForKey(string(rune('a' + i%26)))
		if !ok || !isKnown(ep) {
			t.Fatalf("key resolved to unregistered endpoint %q", ep)
		}
	}
}

// TestHashRing_AddThenNoOtherChangeIsStable: after AddServer(e) with no
// other topology change, GetServerForKey(k) keeps returning whatever it
// returned before, or e itself. It never returns an unregistered endpoint
// and never moves a key between two previously-registered servers.
func TestHashRing_AddThenNoOtherChangeIsStable(t *testing.T) {
	r := NewHashRing(16)
	r.AddServer("s1")
	r.AddServer("s2")

	before := make(map[string]netsim.Endpoint)
	keys := []string{"k1", "k2", "k3", "k4", "k5", "test-key"}
	for _, k := range keys {
		ep, _ := r.GetServerForKey(k)
		before[k] = ep
	}

	r.AddServer("s3")
	for _, k := range keys {
		after, _ := r.GetServerForKey(k)
		if after != before[k] && after != "s3" {
			t.Fatalf("key %q moved from %q to unexpected %q after adding a server", k, before[k], after)
		}
	}
}

func TestHashRing_RemoveServerRedistributesOwnedKeys(t *testing.T) {
	r := NewHashRing(32)
	r.AddServer("s1")
	r.AddServer("s2")
	r.AddServer("s3")

	target, _ := r.GetServerForKey("test-key")
	r.RemoveServer(target)

	after, ok := r.GetServerForKey("test-key")
	if !ok {
		t.Fatal("removing one of three servers must still leave an owner")
	}
	if after == target {
		t.Fatalf("key still resolves to the removed server %q", target)
	}
}
