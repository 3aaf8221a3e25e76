// Package policytest provides a map-backed policy.Shard for strategy tests
// and a consistency check between a shard and its strategy.
package policytest

import (
	"testing"

	"github.com/IvanBrykalov/nwaycache/policy"
)

// Shard is a minimal policy.Shard backed by a map.
type Shard[K comparable] struct {
	M        map[K]policy.Ref
	Size     int
	Capacity int
}

var _ policy.Shard[string] = (*Shard[string])(nil)

// NewShard returns an empty shard with the given capacity.
func NewShard[K comparable](capacity int) *Shard[K] {
	return &Shard[K]{M: make(map[K]policy.Ref, capacity), Capacity: capacity}
}

func (s *Shard[K]) Lookup(k K) (policy.Ref, bool) {
	r, ok := s.M[k]
	return r, ok
}

func (s *Shard[K]) Insert(k K, r policy.Ref) {
	s.M[k] = r
	s.Size++
}

func (s *Shard[K]) Delete(k K) (policy.Ref, bool) {
	r, ok := s.M[k]
	if ok {
		delete(s.M, k)
		s.Size--
	}
	return r, ok
}

func (s *Shard[K]) Len() int { return s.Size }
func (s *Shard[K]) Cap() int { return s.Capacity }

// Keys returns the keys of st in structural order.
func Keys[K comparable, V any](st policy.Strategy[K, V]) []K {
	var out []K
	for e := range st.All() {
		out = append(out, e.Key)
	}
	return out
}

// CheckConsistency fails t unless the lookup map, the size counter and the
// strategy's structure describe the same set of keys, and size <= capacity.
func CheckConsistency[K comparable, V any](t testing.TB, s *Shard[K], st policy.Strategy[K, V]) {
	t.Helper()
	if s.Size != len(s.M) {
		t.Fatalf("size %d != lookup entries %d", s.Size, len(s.M))
	}
	if s.Size > s.Capacity {
		t.Fatalf("size %d exceeds capacity %d", s.Size, s.Capacity)
	}
	if st.Len() != s.Size {
		t.Fatalf("structure holds %d entries, shard size is %d", st.Len(), s.Size)
	}
	seen := make(map[K]struct{}, s.Size)
	for e := range st.All() {
		if _, dup := seen[e.Key]; dup {
			t.Fatalf("key %v reachable twice from the structure", e.Key)
		}
		seen[e.Key] = struct{}{}
		if _, ok := s.M[e.Key]; !ok {
			t.Fatalf("key %v in structure but not in lookup", e.Key)
		}
	}
}

