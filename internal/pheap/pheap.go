// Package pheap implements the priority heap used by the smallest-first
// strategy: a binary min-heap of entries ordered by key only.
package pheap

import (
	"container/heap"
	"iter"

	"github.com/IvanBrykalov/nwaycache/internal/invariant"
	"github.com/IvanBrykalov/nwaycache/policy"
)

// Heap keeps entries in an arena addressed by stable refs, and a backing
// sequence of refs that satisfies the min-heap property under less.
// Values never take part in ordering.
//
// Heap is not safe for concurrent use.
type Heap[K comparable, V any] struct {
	slots []policy.Entry[K, V]
	free  []policy.Ref
	order refs[K, V]
}

// refs adapts the backing sequence to container/heap.
type refs[K comparable, V any] struct {
	h    *Heap[K, V]
	less func(a, b K) bool
	seq  []policy.Ref
}

func (q *refs[K, V]) Len() int { return len(q.seq) }
func (q *refs[K, V]) Less(i, j int) bool {
	return q.less(q.h.slots[q.seq[i]].Key, q.h.slots[q.seq[j]].Key)
}
func (q *refs[K, V]) Swap(i, j int) { q.seq[i], q.seq[j] = q.seq[j], q.seq[i] }
func (q *refs[K, V]) Push(x any)    { q.seq = append(q.seq, x.(policy.Ref)) }
func (q *refs[K, V]) Pop() any {
	n := len(q.seq) - 1
	r := q.seq[n]
	q.seq = q.seq[:n]
	return r
}

// New returns an empty heap ordered by less.
func New[K comparable, V any](less func(a, b K) bool, sizeHint int) *Heap[K, V] {
	if sizeHint < 0 {
		sizeHint = 0
	}
	h := &Heap[K, V]{slots: make([]policy.Entry[K, V], 0, sizeHint)}
	h.order = refs[K, V]{h: h, less: less, seq: make([]policy.Ref, 0, sizeHint)}
	return h
}

// Len returns the number of entries in the heap.
func (h *Heap[K, V]) Len() int { return len(h.order.seq) }

// Push inserts e in O(log n) and returns its ref.
func (h *Heap[K, V]) Push(e policy.Entry[K, V]) policy.Ref {
	var r policy.Ref
	if n := len(h.free); n > 0 {
		r = h.free[n-1]
		h.free = h.free[:n-1]
		h.slots[r] = e
	} else {
		h.slots = append(h.slots, e)
		r = policy.Ref(len(h.slots) - 1)
	}
	heap.Push(&h.order, r)
	return r
}

// Pop removes and returns the minimum-key entry in O(log n).
// Popping an empty heap is an invariant violation.
func (h *Heap[K, V]) Pop() policy.Entry[K, V] {
	if h.Len() == 0 {
		invariant.Panicf("pheap.Pop", "heap is empty")
	}
	r := heap.Pop(&h.order).(policy.Ref)
	e := h.slots[r]
	h.slots[r] = policy.Entry[K, V]{}
	h.free = append(h.free, r)
	return e
}

// Peek returns the minimum-key entry without removing it.
// Peeking an empty heap is an invariant violation.
func (h *Heap[K, V]) Peek() policy.Entry[K, V] {
	if h.Len() == 0 {
		invariant.Panicf("pheap.Peek", "heap is empty")
	}
	return h.slots[h.order.seq[0]]
}

// Entry returns a copy of the entry stored at r.
func (h *Heap[K, V]) Entry(r policy.Ref) policy.Entry[K, V] {
	h.checkRef("pheap.Entry", r)
	return h.slots[r]
}

// ReplaceValue swaps the value stored at r. The key, and therefore the heap
// position, is left untouched.
func (h *Heap[K, V]) ReplaceValue(r policy.Ref, v V) {
	h.checkRef("pheap.ReplaceValue", r)
	h.slots[r].Value = v
}

// All yields the entries in backing-sequence order.
func (h *Heap[K, V]) All() iter.Seq[policy.Entry[K, V]] {
	return func(yield func(policy.Entry[K, V]) bool) {
		for _, r := range h.order.seq {
			if !yield(h.slots[r]) {
				return
			}
		}
	}
}

func (h *Heap[K, V]) checkRef(op string, r policy.Ref) {
	if r < 0 || int(r) >= len(h.slots) {
		invariant.Panicf(op, "ref %d out of range", r)
	}
}
