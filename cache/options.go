package cache

import (
	"context"
	"reflect"

	"go.uber.org/zap"

	"github.com/IvanBrykalov/nwaycache/policy"
)

// Options configures a Cache. Zero values are safe where noted;
// defaults are applied in New():
//   - empty Strategy => LRU
//   - Shards == 0    => auto (≈ 2*GOMAXPROCS, power of two)
//   - nil KeyType    => K, nil ValueType => V
//   - nil Hasher     => FNV-1a
//   - nil Metrics    => NoopMetrics
//   - nil Logger     => zap.NewNop()
type Options[K comparable, V any] struct {
	// Strategy selects the eviction strategy of every shard.
	Strategy policy.Kind

	// Shards is the number of shards. It is fixed for the cache's lifetime.
	Shards int

	// Capacity is the per-shard entry limit. Required, > 0.
	Capacity int

	// KeyType and ValueType declare the exact dynamic types accepted by Put.
	// They matter when K or V is an interface type (e.g. Cache[any, any]);
	// the key type must be structurally immutable.
	KeyType   reflect.Type
	ValueType reflect.Type

	// ShardFunc, if set, picks the shard for a key. Its result is used
	// unmodified and must lie in [0, shards).
	ShardFunc func(k K, shards int) int

	// Hasher is the default key hash used when ShardFunc is nil.
	Hasher func(k K) uint64

	// Less orders keys for the smallest-first strategy. Nil selects the
	// natural order of the key type.
	Less func(a, b K) bool

	// Loader fetches a value on cache miss. Used by GetOrLoad.
	Loader func(ctx context.Context, k K) (V, error)

	// OnEvict is called for every eviction under the shard lock; keep callbacks lightweight.
	OnEvict func(k K, v V)

	Metrics Metrics
	Logger  *zap.Logger
}
