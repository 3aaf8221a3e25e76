// Package lru implements the LRU eviction strategy.
package lru

import (
	"iter"

	"github.com/IvanBrykalov/nwaycache/internal/dlist"
	"github.com/IvanBrykalov/nwaycache/policy"
)

// Strategy is a classic "move-to-front" Least-Recently-Used strategy.
// The node after the list head is the most recently touched entry, the node
// before the tail the least recently touched one.
type Strategy[K comparable, V any] struct {
	l *dlist.List[K, V]
}

// Compile-time check that Strategy implements policy.Strategy.
var _ policy.Strategy[string, int] = (*Strategy[string, int])(nil)

// New returns a shard-local LRU strategy sized for capacity entries.
func New[K comparable, V any](capacity int) *Strategy[K, V] {
	// One extra slot: the new entry is linked before the overflow is evicted.
	return &Strategy[K, V]{l: dlist.New[K, V](capacity + 1)}
}

// Put replaces any previous entry for k, links the new one right after the
// head, and evicts the entry before the tail if the shard overflowed.
func (p *Strategy[K, V]) Put(s policy.Shard[K], k K, v V) (policy.Entry[K, V], bool) {
	if old, ok := s.Delete(k); ok {
		p.l.Unlink(old)
		p.l.Free(old)
	}

	r := p.l.Alloc(policy.Entry[K, V]{Key: k, Value: v})
	s.Insert(k, r)
	p.l.InsertAfter(r, p.l.Head())

	if s.Len() <= s.Cap() {
		return policy.Entry[K, V]{}, false
	}
	victim := p.l.Prev(p.l.Tail())
	ev := *p.l.Entry(victim)
	s.Delete(ev.Key)
	p.l.Unlink(victim)
	p.l.Free(victim)
	return ev, true
}

// Get promotes a hit to the position right after the head.
func (p *Strategy[K, V]) Get(s policy.Shard[K], k K) (policy.Entry[K, V], bool) {
	r, ok := s.Lookup(k)
	if !ok {
		return policy.Entry[K, V]{}, false
	}
	p.l.Unlink(r)
	p.l.InsertAfter(r, p.l.Head())
	return *p.l.Entry(r), true
}

// Len returns the number of linked entries.
func (p *Strategy[K, V]) Len() int { return p.l.Len() }

// All yields entries from most to least recently touched.
func (p *Strategy[K, V]) All() iter.Seq[policy.Entry[K, V]] { return p.l.All() }
