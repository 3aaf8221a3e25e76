package cache

import (
	"fmt"

	"github.com/IvanBrykalov/nwaycache/policy"
	"github.com/IvanBrykalov/nwaycache/policy/lru"
	"github.com/IvanBrykalov/nwaycache/policy/mru"
	"github.com/IvanBrykalov/nwaycache/policy/sf"
)

// newStrategy builds one shard-local strategy instance of the given kind.
// less is only consulted by the smallest-first strategy.
func newStrategy[K comparable, V any](kind policy.Kind, capacity int, less func(a, b K) bool) (policy.Strategy[K, V], error) {
	switch kind {
	case policy.LRU:
		return lru.New[K, V](capacity), nil
	case policy.MRU:
		return mru.New[K, V](capacity), nil
	case policy.SmallestFirst:
		if less == nil {
			return nil, fmt.Errorf("%w: strategy %s needs a key ordering", ErrConfiguration, kind)
		}
		return sf.New[K, V](capacity, less), nil
	}
	return nil, fmt.Errorf("%w: %w: %q", ErrConfiguration, policy.ErrUnknownKind, string(kind))
}
