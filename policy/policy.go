package policy

import "iter"

// Entry is a stored key/value pair. Strategies keep entries in their own
// structure; ordering and linkage never live on the Entry itself.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Ref is a stable handle to an entry inside a strategy's structure.
// The shard lookup map stores one Ref per resident key.
type Ref int32

// Shard is the per-shard state a strategy visits during one Put/Get call.
// Implementations are provided by the cache shard.
//
// Concurrency: a strategy holds exclusive access to the shard for the whole
// call (the shard lock is held). Insert/Delete keep the size counter in step
// with the lookup map.
type Shard[K comparable] interface {
	// Lookup returns the ref stored for k.
	Lookup(k K) (Ref, bool)
	// Insert adds k→r to the lookup map and increments the size.
	Insert(k K, r Ref)
	// Delete removes k from the lookup map and decrements the size.
	Delete(k K) (Ref, bool)
	// Len returns the current size.
	Len() int
	// Cap returns the fixed shard capacity.
	Cap() int
}

// Strategy is a per-shard eviction strategy instance. It owns exactly one
// auxiliary structure (a recency list or a priority heap) shared by all keys
// of its shard, and mutates the shard's lookup map and size through Shard.
//
// Semantics:
//   - Put admits k→v and restores size <= capacity before returning. If an
//     entry was evicted to make room it is returned with ok == true. At most
//     one entry is evicted per Put.
//   - Get returns the entry for k and applies the strategy's promotion as a
//     side effect of a hit. A miss returns ok == false and mutates nothing.
type Strategy[K comparable, V any] interface {
	Put(s Shard[K], k K, v V) (evicted Entry[K, V], ok bool)
	Get(s Shard[K], k K) (Entry[K, V], bool)
	// Len returns the number of entries held by the auxiliary structure.
	Len() int
	// All yields the resident entries in structural order.
	All() iter.Seq[Entry[K, V]]
}
