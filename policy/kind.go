// Package policy defines the eviction strategy contract shared by the cache
// shard and the strategy implementations (lru, mru, sf).
package policy

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names one of the supported eviction strategies. The set is closed:
// adding a strategy means adding a Kind and a case in the cache registry.
type Kind string

const (
	// LRU evicts the least recently touched entry.
	LRU Kind = "LRU"
	// MRU sacrifices the most recently touched slot when a full shard admits a new key.
	MRU Kind = "MRU"
	// SmallestFirst evicts the entry with the smallest key.
	SmallestFirst Kind = "SF"
)

// ErrUnknownKind is returned by ParseKind for unsupported strategy names.
var ErrUnknownKind = errors.New("unknown eviction strategy")

// Kinds returns all supported strategies.
func Kinds() []Kind { return []Kind{LRU, MRU, SmallestFirst} }

// ParseKind resolves a strategy name. Matching is case-insensitive and
// "smallest" is accepted as an alias for SF. An empty name selects LRU.
func ParseKind(name string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "LRU":
		return LRU, nil
	case "MRU":
		return MRU, nil
	case "SF", "SMALLEST":
		return SmallestFirst, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

func (k Kind) String() string { return string(k) }
