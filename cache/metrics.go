package cache

// Metrics exposes cache-level observability hooks.
// Implementations must be safe for concurrent use: shards report
// independently, each under its own lock.
type Metrics interface {
	Hit()
	Miss()
	// Evict is reported once per entry removed by the eviction strategy.
	Evict()
	// Reject is reported for every Put refused with an error.
	Reject()
	// Size reports the entry count of one shard after a Put.
	Size(shard, entries int)
}

// NoopMetrics is a drop-in Metrics implementation that does nothing.
// It is the default when no observability backend is configured.
type NoopMetrics struct{}

func (NoopMetrics) Hit()          {}
func (NoopMetrics) Miss()         {}
func (NoopMetrics) Evict()        {}
func (NoopMetrics) Reject()       {}
func (NoopMetrics) Size(int, int) {}

// Ensure NoopMetrics implements the Metrics interface at compile time.
var _ Metrics = NoopMetrics{}
