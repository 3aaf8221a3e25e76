// Package mru implements the MRU eviction strategy.
package mru

import (
	"iter"

	"github.com/IvanBrykalov/nwaycache/internal/dlist"
	"github.com/IvanBrykalov/nwaycache/policy"
)

// Strategy keeps entries in touch order with the most recently touched entry
// right before the tail. When a full shard admits a new key, that single
// most-recent slot is sacrificed and the new entry takes its place.
type Strategy[K comparable, V any] struct {
	l *dlist.List[K, V]
}

var _ policy.Strategy[string, int] = (*Strategy[string, int])(nil)

// New returns a shard-local MRU strategy sized for capacity entries.
func New[K comparable, V any](capacity int) *Strategy[K, V] {
	return &Strategy[K, V]{l: dlist.New[K, V](capacity)}
}

// Put replaces any previous entry for k. If the shard is still full, the
// entry before the tail is evicted first. The new entry is linked before the tail.
func (p *Strategy[K, V]) Put(s policy.Shard[K], k K, v V) (ev policy.Entry[K, V], evicted bool) {
	if old, ok := s.Delete(k); ok {
		p.l.Unlink(old)
		p.l.Free(old)
	}

	if s.Len() == s.Cap() {
		victim := p.l.Prev(p.l.Tail())
		ev, evicted = *p.l.Entry(victim), true
		s.Delete(ev.Key)
		p.l.Unlink(victim)
		p.l.Free(victim)
	}

	r := p.l.Alloc(policy.Entry[K, V]{Key: k, Value: v})
	p.l.InsertAfter(r, p.l.Prev(p.l.Tail()))
	s.Insert(k, r)
	return ev, evicted
}

// Get moves a hit to the position right before the tail.
func (p *Strategy[K, V]) Get(s policy.Shard[K], k K) (policy.Entry[K, V], bool) {
	r, ok := s.Lookup(k)
	if !ok {
		return policy.Entry[K, V]{}, false
	}
	p.l.Unlink(r)
	p.l.InsertAfter(r, p.l.Prev(p.l.Tail()))
	return *p.l.Entry(r), true
}

// Len returns the number of linked entries.
func (p *Strategy[K, V]) Len() int { return p.l.Len() }

// All yields entries from least to most recently touched.
func (p *Strategy[K, V]) All() iter.Seq[policy.Entry[K, V]] { return p.l.All() }
