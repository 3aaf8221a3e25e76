// Package dlist implements the recency list used by the LRU and MRU
// strategies: an intrusive doubly linked list with permanent head/tail
// sentinels, stored in an arena and linked by stable indices.
package dlist

import (
	"iter"

	"github.com/IvanBrykalov/nwaycache/internal/invariant"
	"github.com/IvanBrykalov/nwaycache/policy"
)

// Nil is the link value of a detached node.
const Nil policy.Ref = -1

const (
	head policy.Ref = 0
	tail policy.Ref = 1
)

type node[K comparable, V any] struct {
	e    policy.Entry[K, V]
	prev policy.Ref
	next policy.Ref
}

// List is an arena-backed doubly linked list. Slots 0 and 1 are the head and
// tail sentinels and are never freed. When the list is empty
// head.next == tail and tail.prev == head.
//
// The list does not enforce key uniqueness; the owning shard's lookup map does.
// List is not safe for concurrent use.
type List[K comparable, V any] struct {
	nodes []node[K, V]
	free  []policy.Ref
	n     int // linked non-sentinel nodes
}

// New returns an empty list with room for sizeHint entries.
func New[K comparable, V any](sizeHint int) *List[K, V] {
	if sizeHint < 0 {
		sizeHint = 0
	}
	l := &List[K, V]{nodes: make([]node[K, V], 2, sizeHint+2)}
	l.nodes[head] = node[K, V]{prev: Nil, next: tail}
	l.nodes[tail] = node[K, V]{prev: head, next: Nil}
	return l
}

// Head returns the head sentinel.
func (l *List[K, V]) Head() policy.Ref { return head }

// Tail returns the tail sentinel.
func (l *List[K, V]) Tail() policy.Ref { return tail }

// Len returns the number of linked entries (sentinels excluded).
func (l *List[K, V]) Len() int { return l.n }

// Alloc stores e in a detached node and returns its ref.
func (l *List[K, V]) Alloc(e policy.Entry[K, V]) policy.Ref {
	nd := node[K, V]{e: e, prev: Nil, next: Nil}
	if k := len(l.free); k > 0 {
		r := l.free[k-1]
		l.free = l.free[:k-1]
		l.nodes[r] = nd
		return r
	}
	l.nodes = append(l.nodes, nd)
	return policy.Ref(len(l.nodes) - 1)
}

// Free releases a detached node. The ref must not be used afterwards.
func (l *List[K, V]) Free(r policy.Ref) {
	l.checkEntry("dlist.Free", r)
	if l.Linked(r) {
		invariant.Panicf("dlist.Free", "node %d is still linked", r)
	}
	l.nodes[r] = node[K, V]{prev: Nil, next: Nil}
	l.free = append(l.free, r)
}

// Entry returns the entry stored at r.
func (l *List[K, V]) Entry(r policy.Ref) *policy.Entry[K, V] {
	l.checkEntry("dlist.Entry", r)
	return &l.nodes[r].e
}

// Linked reports whether r is currently spliced into the list.
func (l *List[K, V]) Linked(r policy.Ref) bool {
	l.checkRef("dlist.Linked", r)
	nd := &l.nodes[r]
	return nd.prev != Nil && nd.next != Nil
}

// Next returns the node after r (tail for the last entry).
func (l *List[K, V]) Next(r policy.Ref) policy.Ref {
	l.checkRef("dlist.Next", r)
	return l.nodes[r].next
}

// Prev returns the node before r (head for the first entry).
func (l *List[K, V]) Prev(r policy.Ref) policy.Ref {
	l.checkRef("dlist.Prev", r)
	return l.nodes[r].prev
}

// InsertAfter splices the detached node r immediately after pred in O(1).
// pred may be the head sentinel but not the tail.
func (l *List[K, V]) InsertAfter(r, pred policy.Ref) {
	l.checkEntry("dlist.InsertAfter", r)
	if l.Linked(r) {
		invariant.Panicf("dlist.InsertAfter", "node %d is already linked", r)
	}
	if pred < 0 || int(pred) >= len(l.nodes) || pred == tail || (pred != head && !l.Linked(pred)) {
		invariant.Panicf("dlist.InsertAfter", "predecessor %d is not a linked position", pred)
	}
	succ := l.nodes[pred].next
	l.nodes[r].prev = pred
	l.nodes[r].next = succ
	l.nodes[succ].prev = r
	l.nodes[pred].next = r
	l.n++
}

// Unlink removes r from the list by joining its neighbours in O(1).
// Unlinking a detached node is an invariant violation.
func (l *List[K, V]) Unlink(r policy.Ref) {
	l.checkEntry("dlist.Unlink", r)
	nd := &l.nodes[r]
	if nd.prev == Nil || nd.next == Nil {
		invariant.Panicf("dlist.Unlink", "node %d is not linked", r)
	}
	l.nodes[nd.prev].next = nd.next
	l.nodes[nd.next].prev = nd.prev
	nd.prev, nd.next = Nil, Nil
	l.n--
}

// All yields the entries from head.next up to (not including) tail.
// The sequence is restartable and reflects the list at iteration time.
func (l *List[K, V]) All() iter.Seq[policy.Entry[K, V]] {
	return func(yield func(policy.Entry[K, V]) bool) {
		for r := l.nodes[head].next; r != tail; r = l.nodes[r].next {
			if !yield(l.nodes[r].e) {
				return
			}
		}
	}
}

// checkEntry rejects sentinels and out-of-arena refs.
// checkRef accepts any allocated slot, sentinels included.
func (l *List[K, V]) checkRef(op string, r policy.Ref) {
	if r < 0 || int(r) >= len(l.nodes) {
		invariant.Panicf(op, "ref %d out of range", r)
	}
}

func (l *List[K, V]) checkEntry(op string, r policy.Ref) {
	if r == head || r == tail || r < 0 || int(r) >= len(l.nodes) {
		invariant.Panicf(op, "ref %d is not an entry node", r)
	}
}
