package cache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/nwaycache/policy"
)

func modShard(k, n int) int { return k % n }

func newIntCache(t *testing.T, kind policy.Kind, shards, capacity int) *Cache[int, int] {
	t.Helper()
	c, err := New(Options[int, int]{
		Strategy:  kind,
		Shards:    shards,
		Capacity:  capacity,
		ShardFunc: modShard,
	})
	require.NoError(t, err)
	return c
}

func mustPut[K comparable, V any](t *testing.T, c *Cache[K, V], kvs ...[2]any) {
	t.Helper()
	for _, kv := range kvs {
		require.NoError(t, c.Put(kv[0].(K), kv[1].(V)))
	}
}

func putSame(t *testing.T, c *Cache[int, int], keys ...int) {
	t.Helper()
	for _, k := range keys {
		require.NoError(t, c.Put(k, k))
	}
}

func shardKeys[K comparable, V any](c *Cache[K, V]) [][]K {
	snap := c.Snapshot()
	out := make([][]K, len(snap))
	for i, es := range snap {
		out[i] = make([]K, 0, len(es))
		for _, e := range es {
			out[i] = append(out[i], e.Key)
		}
	}
	return out
}

func requireMiss[K comparable, V any](t *testing.T, c *Cache[K, V], k K) {
	t.Helper()
	_, err := c.Get(k)
	require.ErrorIs(t, err, ErrKeyNotFound)
}

// Two LRU shards of three, odd keys in shard 1: 7 arrives when 1 is the
// least recently used entry there.
func TestCache_TwoShardLRU(t *testing.T) {
	t.Parallel()

	c := newIntCache(t, policy.LRU, 2, 3)
	putSame(t, c, 1, 2, 3, 4)
	v, err := c.Get(2)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	putSame(t, c, 5)
	require.NoError(t, c.Put(4, 41))
	putSame(t, c, 6, 7)

	requireMiss(t, c, 1)
	v, err = c.Get(3)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	require.NoError(t, c.Put(3, 31))
	assert.Equal(t, 31, c.GetOr(3, -1))

	assert.Equal(t, [][]int{{6, 4, 2}, {3, 7, 5}}, shardKeys(c))
}

func TestCache_TwoShardLRU_SmallShards(t *testing.T) {
	t.Parallel()

	c := newIntCache(t, policy.LRU, 2, 2)
	putSame(t, c, 2, 3, 1)
	assert.Equal(t, 3, c.GetOr(3, -1))
	putSame(t, c, 4, 5)

	requireMiss(t, c, 1)
	assert.Equal(t, 5, c.GetOr(5, -1))
	assert.Equal(t, 4, c.Len())
}

func TestCache_TwoShardSF(t *testing.T) {
	t.Parallel()

	c := newIntCache(t, policy.SmallestFirst, 2, 2)
	putSame(t, c, 1, 2, 5, 4)
	assert.Equal(t, 1, c.GetOr(1, -1))
	assert.Equal(t, 5, c.GetOr(5, -1))
	putSame(t, c, 7)
	assert.Equal(t, 7, c.GetOr(7, -1))
	requireMiss(t, c, 1)
}

// Single-shard traces: put 1,2,3,4; get 2; put 5,4,6 with capacity 3.
func TestCache_SingleShardTraces(t *testing.T) {
	t.Parallel()

	want := map[policy.Kind][]int{
		policy.LRU: {6, 4, 5},
		policy.MRU: {1, 5, 6},
	}
	for kind, keys := range want {
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()

			c := newIntCache(t, kind, 1, 3)
			putSame(t, c, 1, 2, 3, 4)
			_, err := c.Get(2)
			require.NoError(t, err)
			putSame(t, c, 5, 4, 6)
			assert.Equal(t, [][]int{keys}, shardKeys(c))
		})
	}

	t.Run("SF", func(t *testing.T) {
		t.Parallel()

		c := newIntCache(t, policy.SmallestFirst, 1, 3)
		putSame(t, c, 1, 2, 3, 4)
		_, err := c.Get(2)
		require.NoError(t, err)
		putSame(t, c, 5, 4, 6)
		assert.ElementsMatch(t, []int{4, 5, 6}, shardKeys(c)[0])
	})
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	c, err := New(Options[string, int]{Capacity: 4})
	require.NoError(t, err)
	assert.Equal(t, policy.LRU, c.Strategy())
	assert.Equal(t, 4, c.Capacity())
	assert.GreaterOrEqual(t, c.NumShards(), 1)
	assert.Equal(t, reflect.TypeFor[string](), c.KeyType())
	assert.Equal(t, reflect.TypeFor[int](), c.ValueType())
	assert.Zero(t, c.Len())

	c2, err := New(Options[string, int]{Capacity: 4, Strategy: "mru", Shards: 3})
	require.NoError(t, err)
	assert.Equal(t, policy.MRU, c2.Strategy())
	assert.Equal(t, 3, c2.NumShards())
}

func TestNew_ConfigurationErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]func() error{
		"zero capacity": func() error {
			_, err := New(Options[int, int]{Capacity: 0})
			return err
		},
		"negative shards": func() error {
			_, err := New(Options[int, int]{Capacity: 1, Shards: -1})
			return err
		},
		"unknown strategy": func() error {
			_, err := New(Options[int, int]{Capacity: 1, Strategy: "LFU"})
			return err
		},
		"mutable key type": func() error {
			_, err := New(Options[any, int]{Capacity: 1, KeyType: reflect.TypeFor[[]int]()})
			return err
		},
		"set-like key type": func() error {
			_, err := New(Options[any, int]{Capacity: 1, KeyType: reflect.TypeFor[map[int]struct{}]()})
			return err
		},
		"interface key without declared type": func() error {
			_, err := New(Options[any, int]{Capacity: 1})
			return err
		},
		"pointer key": func() error {
			_, err := New(Options[*int, int]{Capacity: 1})
			return err
		},
		"value type not storable": func() error {
			_, err := New(Options[any, int]{Capacity: 1, KeyType: reflect.TypeFor[int](), ValueType: reflect.TypeFor[string]()})
			return err
		},
		"unordered SF keys": func() error {
			_, err := New(Options[complex128, int]{Capacity: 1, Strategy: policy.SmallestFirst})
			return err
		},
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			require.ErrorIs(t, fn(), ErrConfiguration)
		})
	}
}

func TestNew_SFWithCustomLess(t *testing.T) {
	t.Parallel()

	byModulus := func(a, b complex128) bool { return real(a)*real(a)+imag(a)*imag(a) < real(b)*real(b)+imag(b)*imag(b) }
	c, err := New(Options[complex128, int]{
		Capacity: 2,
		Shards:   1,
		Strategy: policy.SmallestFirst,
		Less:     byModulus,
	})
	require.NoError(t, err)

	require.NoError(t, c.Put(3+4i, 5))
	require.NoError(t, c.Put(1i, 1))
	require.NoError(t, c.Put(2, 2))
	requireMiss(t, c, 1i)
}

func TestPut_TypeMismatchLeavesCacheUnchanged(t *testing.T) {
	t.Parallel()

	c, err := New(Options[any, any]{
		Strategy:  policy.MRU,
		Shards:    1,
		Capacity:  3,
		KeyType:   reflect.TypeFor[int](),
		ValueType: reflect.TypeFor[int](),
	})
	require.NoError(t, err)

	require.NoError(t, c.Put(1, 1))
	before := c.Snapshot()

	require.ErrorIs(t, c.Put("2", 2), ErrTypeMismatch)
	require.ErrorIs(t, c.Put(3, "3"), ErrTypeMismatch)
	require.ErrorIs(t, c.Put(int64(4), 4), ErrTypeMismatch)
	require.ErrorIs(t, c.Put(5, nil), ErrTypeMismatch)

	err = c.Put(nil, 1)
	require.ErrorIs(t, err, ErrNilKey)
	require.ErrorIs(t, err, ErrConfiguration)

	assert.Equal(t, before, c.Snapshot())
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, uint64(5), c.Stats().Rejects)
}

func TestGet_ForeignKeysAreMisses(t *testing.T) {
	t.Parallel()

	c, err := New(Options[any, string]{Capacity: 2, KeyType: reflect.TypeFor[string]()})
	require.NoError(t, err)
	require.NoError(t, c.Put("a", "x"))

	requireMiss[any, string](t, c, 1)
	requireMiss[any, string](t, c, nil)
	// Non-comparable dynamic keys never reach a map.
	requireMiss[any, string](t, c, []int{1})
	assert.Equal(t, "fb", c.GetOr([]int{1}, "fb"))

	v, err := c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "x", v)
	assert.Equal(t, uint64(4), c.Stats().Misses)
}

func TestPut_InterfaceValueType(t *testing.T) {
	t.Parallel()

	c, err := New(Options[int, any]{Capacity: 2, ValueType: reflect.TypeFor[fmt.Stringer]()})
	require.NoError(t, err)

	require.NoError(t, c.Put(1, time.Second))
	require.NoError(t, c.Put(2, nil))
	require.ErrorIs(t, c.Put(3, 3), ErrTypeMismatch)
}

type pointKey struct {
	X, Y float64
}

func TestPut_FloatKeys(t *testing.T) {
	t.Parallel()

	nan := math.NaN()
	for _, kind := range policy.Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()

			c, err := New(Options[float64, int]{Strategy: kind, Shards: 1, Capacity: 2})
			require.NoError(t, err)
			require.NoError(t, c.Put(1.5, 1))
			before := c.Snapshot()

			for i := range 4 {
				err := c.Put(nan, i)
				require.ErrorIs(t, err, ErrNaNKey)
				require.ErrorIs(t, err, ErrConfiguration)
			}
			assert.Equal(t, 1, c.Len())
			assert.Equal(t, before, c.Snapshot())
			assert.Equal(t, uint64(4), c.Stats().Rejects)
			requireMiss(t, c, nan)

			// -0.0 and 0.0 are one key
			require.NoError(t, c.Put(math.Copysign(0, -1), 7))
			v, err := c.Get(0.0)
			require.NoError(t, err)
			assert.Equal(t, 7, v)
			require.NoError(t, c.Put(0.0, 8))
			assert.Equal(t, 2, c.Len())
			v, err = c.Get(math.Copysign(0, -1))
			require.NoError(t, err)
			assert.Equal(t, 8, v)

			arr, err := New(Options[[2]float64, int]{Strategy: kind, Shards: 2, Capacity: 1})
			require.NoError(t, err)
			require.ErrorIs(t, arr.Put([2]float64{1, nan}, 1), ErrNaNKey)
			require.NoError(t, arr.Put([2]float64{1, 2}, 1))
			assert.Equal(t, 1, arr.Len())

			st, err := New(Options[pointKey, int]{Strategy: kind, Shards: 2, Capacity: 1})
			require.NoError(t, err)
			require.ErrorIs(t, st.Put(pointKey{X: nan}, 1), ErrNaNKey)
			assert.Equal(t, 0, st.Len())

			dyn, err := New(Options[any, int]{Strategy: kind, Capacity: 1, KeyType: reflect.TypeFor[float32]()})
			require.NoError(t, err)
			require.ErrorIs(t, dyn.Put(float32(nan), 1), ErrNaNKey)
			require.ErrorIs(t, dyn.Put(nan, 1), ErrTypeMismatch)
			assert.Equal(t, 0, dyn.Len())
		})
	}
}

func TestGetOrLoad_NaNKey(t *testing.T) {
	t.Parallel()

	var loads atomic.Int32
	c, err := New(Options[float64, string]{
		Capacity: 2,
		Loader: func(context.Context, float64) (string, error) {
			loads.Add(1)
			return "x", nil
		},
	})
	require.NoError(t, err)

	_, err = c.GetOrLoad(context.Background(), math.NaN())
	require.ErrorIs(t, err, ErrNaNKey)
	assert.Zero(t, loads.Load())
	assert.Equal(t, 0, c.Len())
}

func TestGet_MissDoesNotMutate(t *testing.T) {
	t.Parallel()

	for _, kind := range policy.Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()

			c := newIntCache(t, kind, 2, 2)
			putSame(t, c, 1, 2, 3, 4)
			before := c.Snapshot()

			requireMiss(t, c, 9)
			assert.Equal(t, 42, c.GetOr(10, 42))
			assert.Equal(t, before, c.Snapshot())
		})
	}
}

// Every shard stays within capacity whatever the strategy and key stream.
func TestCache_CapacityBound(t *testing.T) {
	t.Parallel()

	for _, kind := range policy.Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()

			c, err := New(Options[int, int]{Strategy: kind, Shards: 5, Capacity: 7})
			require.NoError(t, err)

			r := rand.New(rand.NewSource(int64(len(kind))))
			for i := 0; i < 5_000; i++ {
				k := r.Intn(200)
				if r.Intn(3) == 0 {
					_, _ = c.Get(k)
					continue
				}
				require.NoError(t, c.Put(k, i))
				v, err := c.Get(k)
				require.NoError(t, err, "a key is resident right after its put")
				require.Equal(t, i, v)
			}
			for i, es := range c.Snapshot() {
				require.LessOrEqual(t, len(es), 7, "shard %d", i)
				for _, e := range es {
					require.Equal(t, i, c.ShardIndex(e.Key))
				}
			}
			require.LessOrEqual(t, c.Len(), 5*7)
		})
	}
}

func TestShardIndex(t *testing.T) {
	t.Parallel()

	a, err := New(Options[string, int]{Capacity: 1, Shards: 7})
	require.NoError(t, err)
	b, err := New(Options[string, int]{Capacity: 1, Shards: 7})
	require.NoError(t, err)
	for i := 0; i < 500; i++ {
		k := fmt.Sprintf("key-%d", i)
		idx := a.ShardIndex(k)
		require.Equal(t, idx, b.ShardIndex(k))
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, 7)
	}

	bad, err := New(Options[int, int]{Capacity: 1, Shards: 2, ShardFunc: func(k, _ int) int { return k }})
	require.NoError(t, err)
	assert.Equal(t, 1, bad.ShardIndex(1))
	assert.Panics(t, func() { bad.ShardIndex(2) })
	assert.Panics(t, func() { _ = bad.Put(-1, 0) })
}

type countingMetrics struct {
	hits, misses, evicts, rejects atomic.Int64
	last                          atomic.Int64
}

func (m *countingMetrics) Hit()    { m.hits.Add(1) }
func (m *countingMetrics) Miss()   { m.misses.Add(1) }
func (m *countingMetrics) Evict()  { m.evicts.Add(1) }
func (m *countingMetrics) Reject() { m.rejects.Add(1) }
func (m *countingMetrics) Size(shard, entries int) {
	m.last.Store(int64(shard*100 + entries))
}

func TestCache_EvictionReporting(t *testing.T) {
	t.Parallel()

	var evicted [][2]int
	m := &countingMetrics{}
	core, logs := observer.New(zapcore.DebugLevel)

	c, err := New(Options[int, int]{
		Shards:    2,
		Capacity:  2,
		ShardFunc: modShard,
		Metrics:   m,
		Logger:    zap.New(core),
		OnEvict:   func(k, v int) { evicted = append(evicted, [2]int{k, v}) },
	})
	require.NoError(t, err)

	mustPut(t, c, [2]any{1, 10}, [2]any{3, 30}, [2]any{5, 50})
	_, _ = c.Get(5)
	_, _ = c.Get(1)

	assert.Equal(t, [][2]int{{1, 10}}, evicted)
	assert.Equal(t, int64(1), m.evicts.Load())
	assert.Equal(t, int64(1), m.hits.Load())
	assert.Equal(t, int64(1), m.misses.Load())
	assert.Equal(t, int64(102), m.last.Load())

	st := c.Stats()
	assert.Equal(t, Stats{Hits: 1, Misses: 1, Evictions: 1, Entries: 2}, st)

	assert.Equal(t, 1, logs.FilterMessage("cache created").Len())
	ev := logs.FilterMessage("evicted").All()
	require.Len(t, ev, 1)
	assert.Equal(t, int64(1), ev[0].ContextMap()["shard"])
}

func TestGetOrLoad(t *testing.T) {
	t.Parallel()

	t.Run("no loader", func(t *testing.T) {
		t.Parallel()
		c := newIntCache(t, policy.LRU, 1, 1)
		_, err := c.GetOrLoad(context.Background(), 1)
		require.ErrorIs(t, err, ErrNoLoader)
	})

	t.Run("loader error is not cached", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		c, err := New(Options[int, int]{
			Capacity: 2,
			Loader:   func(context.Context, int) (int, error) { return 0, boom },
		})
		require.NoError(t, err)
		_, err = c.GetOrLoad(context.Background(), 1)
		require.ErrorIs(t, err, boom)
		assert.Zero(t, c.Len())
	})

	t.Run("loaded value is stored", func(t *testing.T) {
		t.Parallel()
		c, err := New(Options[int, int]{
			Capacity: 2,
			Loader:   func(_ context.Context, k int) (int, error) { return k * 10, nil },
		})
		require.NoError(t, err)
		v, err := c.GetOrLoad(context.Background(), 4)
		require.NoError(t, err)
		assert.Equal(t, 40, v)
		assert.Equal(t, 40, c.GetOr(4, 0))
	})

	t.Run("foreign key type", func(t *testing.T) {
		t.Parallel()
		c, err := New(Options[any, int]{
			Capacity: 2,
			KeyType:  reflect.TypeFor[int](),
			Loader:   func(context.Context, any) (int, error) { return 1, nil },
		})
		require.NoError(t, err)
		_, err = c.GetOrLoad(context.Background(), "x")
		require.ErrorIs(t, err, ErrTypeMismatch)
	})
}

// Concurrent GetOrLoad calls for the same key share a single load.
func TestGetOrLoad_Coalesces(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	release := make(chan struct{})
	c, err := New(Options[string, string]{
		Capacity: 16,
		Loader: func(_ context.Context, k string) (string, error) {
			calls.Add(1)
			<-release
			return "v:" + k, nil
		},
	})
	require.NoError(t, err)

	const goroutines = 32
	var started sync.WaitGroup
	started.Add(goroutines)
	var g errgroup.Group
	for i := 0; i < goroutines; i++ {
		g.Go(func() error {
			started.Done()
			v, err := c.GetOrLoad(context.Background(), "same")
			if err != nil {
				return err
			}
			if v != "v:same" {
				return fmt.Errorf("unexpected value %q", v)
			}
			return nil
		})
	}
	started.Wait()
	time.Sleep(10 * time.Millisecond)
	close(release)

	require.NoError(t, g.Wait())
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, "v:same", c.GetOr("same", ""))
}
