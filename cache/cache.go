package cache

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/IvanBrykalov/nwaycache/internal/singleflight"
	"github.com/IvanBrykalov/nwaycache/internal/util"
	"github.com/IvanBrykalov/nwaycache/policy"
)

// Entry is a stored key/value pair as reported by Snapshot.
type Entry[K comparable, V any] = policy.Entry[K, V]

// Cache is a sharded in-memory KV store. Every key maps to exactly one shard,
// and each shard is an independent bounded cache with its own eviction
// strategy instance. All methods are safe for concurrent use by multiple goroutines.
type Cache[K comparable, V any] struct {
	shards []*shard[K, V]
	kind   policy.Kind
	cap    int

	keyType   reflect.Type
	valueType reflect.Type
	// checkKey is set when K is an interface type, so the dynamic key type
	// must be compared against keyType on every call.
	checkKey bool
	// checkValue is set when the declared value type differs from V.
	checkValue bool

	shardFunc func(k K, shards int) int
	hash      func(K) uint64

	opt     Options[K, V]
	rejects util.Counter
	// strays counts misses for keys that no shard could hold.
	strays util.Counter

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group[K, V]
}

// Stats is a point-in-time aggregate of the per-shard counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Rejects   uint64
	Entries   int
}

// New constructs a cache with the provided Options. It returns an error
// wrapping ErrConfiguration when the options cannot describe a working cache.
func New[K comparable, V any](opt Options[K, V]) (*Cache[K, V], error) {
	kind, err := policy.ParseKind(string(opt.Strategy))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if opt.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be > 0, got %d", ErrConfiguration, opt.Capacity)
	}
	n := opt.Shards
	switch {
	case n < 0:
		return nil, fmt.Errorf("%w: shards must be >= 0, got %d", ErrConfiguration, n)
	case n == 0:
		n = util.ReasonableShardCount()
	}

	c := &Cache[K, V]{
		kind:      kind,
		cap:       opt.Capacity,
		shardFunc: opt.ShardFunc,
		hash:      opt.Hasher,
	}
	if err := c.declareTypes(opt.KeyType, opt.ValueType); err != nil {
		return nil, err
	}

	less := opt.Less
	if less == nil && kind == policy.SmallestFirst {
		if !util.Orderable(c.keyType) {
			return nil, fmt.Errorf("%w: key type %s has no natural order; set Less", ErrConfiguration, c.keyType)
		}
		less = util.NaturalLess[K]
	}

	if c.hash == nil {
		c.hash = util.Fnv64a[K] // fast non-crypto hash for sharding
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}

	c.shards = make([]*shard[K, V], n)
	for i := range c.shards {
		st, err := newStrategy[K, V](kind, opt.Capacity, less)
		if err != nil {
			return nil, err
		}
		c.shards[i] = newShard(i, opt.Capacity, st, &opt)
	}
	c.opt = opt

	opt.Logger.Debug("cache created",
		zap.Stringer("strategy", kind),
		zap.Int("shards", n),
		zap.Int("capacity", opt.Capacity),
		zap.Stringer("key_type", c.keyType),
		zap.Stringer("value_type", c.valueType),
	)
	return c, nil
}

// declareTypes validates and records the declared key and value types.
func (c *Cache[K, V]) declareTypes(kt, vt reflect.Type) error {
	staticK, staticV := reflect.TypeFor[K](), reflect.TypeFor[V]()
	if kt == nil {
		kt = staticK
	}
	if vt == nil {
		vt = staticV
	}

	if err := util.CheckKeyType(kt); err != nil {
		return fmt.Errorf("%w: key type: %w", ErrConfiguration, err)
	}
	if !kt.AssignableTo(staticK) || (staticK.Kind() != reflect.Interface && kt != staticK) {
		return fmt.Errorf("%w: key type %s cannot be stored as %s", ErrConfiguration, kt, staticK)
	}
	if !vt.AssignableTo(staticV) || (staticV.Kind() != reflect.Interface && vt != staticV) {
		return fmt.Errorf("%w: value type %s cannot be stored as %s", ErrConfiguration, vt, staticV)
	}

	c.keyType, c.valueType = kt, vt
	c.checkKey = staticK.Kind() == reflect.Interface
	c.checkValue = vt != staticV
	return nil
}

// ShardIndex returns the shard that owns k. A custom ShardFunc result is used
// unmodified; a result outside [0, NumShards()) is a caller bug and panics.
func (c *Cache[K, V]) ShardIndex(k K) int {
	n := len(c.shards)
	if c.shardFunc == nil {
		return util.ShardIndex(c.hash(k), n)
	}
	idx := c.shardFunc(k, n)
	if idx < 0 || idx >= n {
		panic(fmt.Sprintf("cache: ShardFunc returned %d for %d shards", idx, n))
	}
	return idx
}

// Put stores k→v in the owning shard, evicting at most one entry of that
// shard. A nil interface key yields ErrNilKey, a key holding a NaN yields
// ErrNaNKey, a key or value whose dynamic type differs from the declared one
// yields ErrTypeMismatch; on error the cache is unchanged.
func (c *Cache[K, V]) Put(k K, v V) error {
	if err := c.admit(k, v); err != nil {
		c.rejects.Inc()
		c.opt.Metrics.Reject()
		c.opt.Logger.Debug("put rejected", zap.Error(err))
		return err
	}
	c.shards[c.ShardIndex(k)].Put(k, v)
	return nil
}

// keyErr checks the dynamic type of an interface-typed key, then rejects
// keys that are not equal to themselves.
func (c *Cache[K, V]) keyErr(k K) error {
	if c.checkKey {
		dk := reflect.TypeOf(any(k))
		if dk == nil {
			return ErrNilKey
		}
		if dk != c.keyType {
			return fmt.Errorf("%w: key of type %s, want %s", ErrTypeMismatch, dk, c.keyType)
		}
	}
	// the dynamic type is now known to be comparable, so this cannot panic
	if k != k {
		return ErrNaNKey
	}
	return nil
}

func (c *Cache[K, V]) admit(k K, v V) error {
	if err := c.keyErr(k); err != nil {
		return err
	}
	if c.checkValue {
		dv := reflect.TypeOf(any(v))
		if c.valueType.Kind() == reflect.Interface {
			if dv != nil && !dv.Implements(c.valueType) {
				return fmt.Errorf("%w: value of type %s does not implement %s", ErrTypeMismatch, dv, c.valueType)
			}
			return nil
		}
		if dv != c.valueType {
			return fmt.Errorf("%w: value of type %v, want %s", ErrTypeMismatch, dv, c.valueType)
		}
	}
	return nil
}

// lookup is the shared miss/hit path. A key that could never have been
// stored (nil or of a foreign dynamic type) is a plain miss.
func (c *Cache[K, V]) lookup(k K) (V, bool) {
	if c.checkKey && reflect.TypeOf(any(k)) != c.keyType {
		c.strays.Inc()
		c.opt.Metrics.Miss()
		var zero V
		return zero, false
	}
	return c.shards[c.ShardIndex(k)].Get(k)
}

// Get returns the value for k, or ErrKeyNotFound. A hit may reorder the
// owning shard according to its strategy; a miss changes nothing.
func (c *Cache[K, V]) Get(k K) (V, error) {
	v, ok := c.lookup(k)
	if !ok {
		return v, fmt.Errorf("%w: %v", ErrKeyNotFound, k)
	}
	return v, nil
}

// GetOr returns the value for k, or fallback on a miss.
func (c *Cache[K, V]) GetOr(k K, fallback V) V {
	if v, ok := c.lookup(k); ok {
		return v
	}
	return fallback
}

// GetOrLoad returns the value for k; on miss it loads via Options.Loader,
// coalescing concurrent loads for the same key (singleflight), and stores
// the result. If no Loader is configured, returns ErrNoLoader.
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	// fast path
	if v, ok := c.lookup(k); ok {
		return v, nil
	}
	if c.opt.Loader == nil {
		var zero V
		return zero, ErrNoLoader
	}
	if err := c.keyErr(k); err != nil {
		var zero V
		return zero, err
	}

	// singleflight: exactly one real load for the key
	v, shared, err := c.sf.DoShared(ctx, k, func() (V, error) {
		// double-check after flight join
		if v, ok := c.lookup(k); ok {
			return v, nil
		}
		v, err := c.opt.Loader(ctx, k)
		if err != nil {
			return v, err
		}
		if err := c.Put(k, v); err != nil {
			var zero V
			return zero, err
		}
		return v, nil
	})
	if shared {
		c.opt.Logger.Debug("load coalesced", zap.Any("key", k), zap.Error(err))
	}
	return v, err
}

// Len returns the total number of resident entries across all shards.
func (c *Cache[K, V]) Len() int {
	total := 0
	for _, s := range c.shards {
		total += s.Len()
	}
	return total
}

// NumShards returns the fixed number of shards.
func (c *Cache[K, V]) NumShards() int { return len(c.shards) }

// Capacity returns the per-shard entry limit.
func (c *Cache[K, V]) Capacity() int { return c.cap }

// Strategy returns the eviction strategy shared by all shards.
func (c *Cache[K, V]) Strategy() policy.Kind { return c.kind }

// KeyType returns the declared key type.
func (c *Cache[K, V]) KeyType() reflect.Type { return c.keyType }

// ValueType returns the declared value type.
func (c *Cache[K, V]) ValueType() reflect.Type { return c.valueType }

// Snapshot copies every shard's entries in the shard's structural order:
// recency order for LRU and MRU, heap order for smallest-first.
// Shards are locked one at a time, so the result is not a global cut.
func (c *Cache[K, V]) Snapshot() [][]Entry[K, V] {
	out := make([][]Entry[K, V], len(c.shards))
	for i, s := range c.shards {
		out[i] = s.Entries()
	}
	return out
}

// Stats sums the per-shard counters.
func (c *Cache[K, V]) Stats() Stats {
	st := Stats{Rejects: c.rejects.Load(), Misses: c.strays.Load()}
	for _, s := range c.shards {
		st.Hits += s.hits.Load()
		st.Misses += s.misses.Load()
		st.Evictions += s.evicts.Load()
		st.Entries += s.Len()
	}
	return st
}
