// Package sf implements the smallest-key-first eviction strategy.
package sf

import (
	"iter"

	"github.com/IvanBrykalov/nwaycache/internal/pheap"
	"github.com/IvanBrykalov/nwaycache/policy"
)

// Strategy evicts the entry with the smallest key when a full shard admits a
// new key. It has no notion of recency: Get never touches the heap, and
// re-putting a resident key only replaces its value.
//
// Keys comparing equal under less have no guaranteed relative order.
type Strategy[K comparable, V any] struct {
	h *pheap.Heap[K, V]
}

var _ policy.Strategy[string, int] = (*Strategy[string, int])(nil)

// New returns a shard-local smallest-first strategy ordered by less.
func New[K comparable, V any](capacity int, less func(a, b K) bool) *Strategy[K, V] {
	return &Strategy[K, V]{h: pheap.New[K, V](less, capacity)}
}

// Put updates a resident key in place; otherwise it pops the minimum-key
// entry when the shard is full and pushes the new entry.
func (p *Strategy[K, V]) Put(s policy.Shard[K], k K, v V) (ev policy.Entry[K, V], evicted bool) {
	if r, ok := s.Lookup(k); ok {
		// Ordering depends on the key only, so no reheapify is needed.
		p.h.ReplaceValue(r, v)
		return ev, false
	}

	if s.Len() == s.Cap() {
		ev, evicted = p.h.Pop(), true
		s.Delete(ev.Key)
	}

	r := p.h.Push(policy.Entry[K, V]{Key: k, Value: v})
	s.Insert(k, r)
	return ev, evicted
}

// Get is a pure lookup.
func (p *Strategy[K, V]) Get(s policy.Shard[K], k K) (policy.Entry[K, V], bool) {
	r, ok := s.Lookup(k)
	if !ok {
		return policy.Entry[K, V]{}, false
	}
	return p.h.Entry(r), true
}

// Len returns the number of entries in the heap.
func (p *Strategy[K, V]) Len() int { return p.h.Len() }

// All yields entries in heap backing order.
func (p *Strategy[K, V]) All() iter.Seq[policy.Entry[K, V]] { return p.h.All() }
