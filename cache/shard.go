package cache

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/IvanBrykalov/nwaycache/internal/invariant"
	"github.com/IvanBrykalov/nwaycache/internal/util"
	"github.com/IvanBrykalov/nwaycache/policy"
)

// table is the lookup map handed to a strategy on every call.
// Its size is the map length, so size and lookup can never disagree.
type table[K comparable] struct {
	m   map[K]policy.Ref
	cap int
}

func (t *table[K]) Lookup(k K) (policy.Ref, bool) {
	r, ok := t.m[k]
	return r, ok
}

func (t *table[K]) Insert(k K, r policy.Ref) { t.m[k] = r }

func (t *table[K]) Delete(k K) (policy.Ref, bool) {
	r, ok := t.m[k]
	if ok {
		delete(t.m, k)
	}
	return r, ok
}

func (t *table[K]) Len() int { return len(t.m) }
func (t *table[K]) Cap() int { return t.cap }

// shard is an independent bounded partition of the cache with its own lock,
// lookup table and eviction strategy. Shards never share state.
type shard[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu  sync.Mutex
	tab table[K]
	st  policy.Strategy[K, V]

	idx     int
	metrics Metrics
	onEvict func(k K, v V)
	log     *zap.Logger

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_      util.CacheLinePad
	hits   util.Counter
	misses util.Counter
	evicts util.Counter
}

func newShard[K comparable, V any](idx, capacity int, st policy.Strategy[K, V], opt *Options[K, V]) *shard[K, V] {
	return &shard[K, V]{
		tab:     table[K]{m: make(map[K]policy.Ref, capacity), cap: capacity},
		st:      st,
		idx:     idx,
		metrics: opt.Metrics,
		onEvict: opt.OnEvict,
		log:     opt.Logger.With(zap.Int("shard", idx)),
	}
}

// Put stores k→v through the strategy, reporting at most one eviction.
func (s *shard[K, V]) Put(k K, v V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, evicted := s.st.Put(&s.tab, k, v)
	n := s.tab.Len()
	if n > s.tab.cap || n != s.st.Len() {
		invariant.Panicf("shard.Put", "size %d, capacity %d, strategy holds %d", n, s.tab.cap, s.st.Len())
	}

	if evicted {
		s.evicts.Inc()
		s.metrics.Evict()
		s.log.Debug("evicted", zap.Any("key", ev.Key))
		if cb := s.onEvict; cb != nil {
			cb(ev.Key, ev.Value)
		}
	}
	s.metrics.Size(s.idx, n)
}

// Get returns the value for k; a miss leaves the shard untouched.
func (s *shard[K, V]) Get(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.st.Get(&s.tab, k)
	if !ok {
		s.misses.Inc()
		s.metrics.Miss()
		var zero V
		return zero, false
	}
	s.hits.Inc()
	s.metrics.Hit()
	return e.Value, true
}

// Len returns the number of resident entries in this shard.
func (s *shard[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab.Len()
}

// Entries copies the shard contents in the strategy's structural order.
func (s *shard[K, V]) Entries() []policy.Entry[K, V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Collect(s.st.All())
}
