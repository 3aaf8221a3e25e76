// Package cache provides an N-way set-associative in-memory cache: a fixed
// number of independent, bounded shards, each with its own eviction strategy
// instance (LRU by default, MRU or smallest-key-first on request).
//
// Design
//
//   - Sharding: every key maps to exactly one shard, by Options.ShardFunc if
//     set or by hashing the key (FNV-1a unless Options.Hasher says otherwise).
//     The shard count is fixed at construction; Shards == 0 picks a heuristic
//     power of two (≈ 2*GOMAXPROCS).
//
//   - Storage: each shard keeps a map from key to a stable arena handle
//     (policy.Ref) and lets the strategy own the entries. LRU and MRU keep an
//     intrusive doubly linked list with head/tail sentinels; smallest-first
//     keeps a binary min-heap ordered by key only.
//
//   - Capacity is per shard. A Put evicts at most one entry, from the same
//     shard only, and only when the shard is full.
//
//   - Types: the key and value types are declared up front (Options.KeyType,
//     Options.ValueType, defaulting to K and V). Key types must be immutable:
//     numbers, bools, strings, and arrays/structs built from those. A Put whose
//     dynamic types differ from the declared ones fails with ErrTypeMismatch
//     and leaves the cache untouched. Keys holding a float NaN are rejected
//     with ErrNaNKey, since they are never equal to themselves.
//
//   - Concurrency: each shard is guarded by its own mutex; shards never share
//     state, and there are no background goroutines.
//
//   - GetOrLoad: coalesces concurrent loads for the same key using singleflight.
//     If Loader is nil, GetOrLoad returns ErrNoLoader.
//
//   - Observability: Options.Metrics receives Hit/Miss/Evict/Reject/Size
//     signals (NoopMetrics by default; see metrics/prom and metrics/zaplog),
//     Options.Logger receives debug logs, and Options.OnEvict is called for
//     every eviction under the shard lock.
//
// Basic usage
//
//	c, err := cache.New(cache.Options[string, []byte]{
//	    Strategy: policy.LRU,
//	    Shards:   16,
//	    Capacity: 1_000, // per shard
//	})
//	if err != nil {
//	    return err
//	}
//	_ = c.Put("a", []byte("1"))
//	v, err := c.Get("a") // errors.Is(err, cache.ErrKeyNotFound) on miss
//
// Dynamically typed keys
//
//	c, _ := cache.New(cache.Options[any, any]{
//	    Capacity:  64,
//	    KeyType:   reflect.TypeFor[int](),
//	    ValueType: reflect.TypeFor[string](),
//	})
//	err := c.Put("1", "x") // errors.Is(err, cache.ErrTypeMismatch)
//
// With GetOrLoad (singleflight)
//
//	c, _ := cache.New(cache.Options[string, string]{
//	    Capacity: 1024,
//	    Loader: func(ctx context.Context, k string) (string, error) {
//	        // e.g. fetch from DB
//	        return "v:" + k, nil
//	    },
//	})
//	v, err := c.GetOrLoad(context.Background(), "key")
package cache
