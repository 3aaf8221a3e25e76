package cache

import (
	"errors"
	"fmt"
)

// Caller-facing errors. They are returned wrapped with context; match them
// with errors.Is. None of them is transient, so retrying is pointless.
var (
	// ErrConfiguration reports an invalid Options value: unknown strategy,
	// mutable or unordered key type, non-positive capacity, and so on.
	ErrConfiguration = errors.New("cache: invalid configuration")

	// ErrNilKey is returned by Put for a nil interface key. It wraps ErrConfiguration.
	ErrNilKey = fmt.Errorf("%w: nil key", ErrConfiguration)

	// ErrNaNKey is returned by Put and GetOrLoad for a key that is not equal
	// to itself, i.e. a float NaN or an array/struct holding one. Such a key
	// could never be found again. It wraps ErrConfiguration.
	ErrNaNKey = fmt.Errorf("%w: key contains NaN", ErrConfiguration)

	// ErrTypeMismatch is returned by Put when the key or value does not have
	// exactly the declared type. The cache is left unchanged.
	ErrTypeMismatch = errors.New("cache: type mismatch")

	// ErrKeyNotFound is returned by Get when the key is absent.
	ErrKeyNotFound = errors.New("cache: key not found")

	// ErrNoLoader is returned by GetOrLoad when no Loader was configured in Options.
	ErrNoLoader = errors.New("cache: no Loader provided")
)
