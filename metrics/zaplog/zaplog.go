// Package zaplog provides a zap-based cache.Metrics that logs every signal.
package zaplog

import (
	"go.uber.org/zap"

	"github.com/IvanBrykalov/nwaycache/cache"
)

// Metrics implements cache.Metrics by logging each signal via zap at debug level.
type Metrics struct {
	logger *zap.Logger
}

// Compile-time check that Metrics implements cache.Metrics.
var _ cache.Metrics = (*Metrics)(nil)

// New creates a new logger-based metrics sink.
// If logger is nil, a no-op logger is used.
func New(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Metrics{logger: logger}
}

func (m *Metrics) Hit()    { m.counter("hits") }
func (m *Metrics) Miss()   { m.counter("misses") }
func (m *Metrics) Evict()  { m.counter("evictions") }
func (m *Metrics) Reject() { m.counter("rejected_puts") }

// Size logs a shard's entry count.
func (m *Metrics) Size(shard, entries int) {
	m.logger.Debug("gauge",
		zap.String("metric", "shard_entries"),
		zap.Int("shard", shard),
		zap.Int("value", entries),
	)
}

func (m *Metrics) counter(name string) {
	m.logger.Debug("counter",
		zap.String("metric", name),
		zap.Int64("delta", 1),
	)
}
