package authgate

import (
	"time"

	"github.com/MrEthical07/authgate/internal/audit"
	"github.com/rs/zerolog"
)

// Engine runs the login and 2FA handshake. Every method is safe for
// concurrent use. Build one with New().Build().
type Engine struct {
	config     Config
	classifier Classifier
	delay      DelayStrategy
	clock      Clock
	codes      CodeGenerator
	issuer     TokenIssuer
	sender     CodeSender
	store      challengeStore
	closers    []func()
	audit      *audit.Dispatcher
	metrics    *Metrics
	logger     zerolog.Logger
}

// Close flushes pending audit events and releases the in-memory store.
// It does not close a Redis client passed to the builder.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	for _, closeFn := range e.closers {
		closeFn()
	}
	e.closers = nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// AuditDropped returns the number of audit events lost to backpressure or
// to a failing sink.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) observeSince(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}
