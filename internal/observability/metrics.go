package observability

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spec-kit/support-pilot/internal/domain"
)

// Metrics aggregates resolution and latency counters across all
// completed traces. All updates are atomic; safe under concurrent
// turn completions.
type Metrics struct {
	totalRequests       atomic.Int64
	l1Count             atomic.Int64
	l2Count             atomic.Int64
	statusQueryCount    atomic.Int64
	errorCount          atomic.Int64
	negativeSignalCount atomic.Int64
	latencySum          atomic.Int64
	latencyCount        atomic.Int64
}

// NewMetrics initializes the aggregate.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordOutcome registers one completed turn.
func (m *Metrics) RecordOutcome(outcome domain.TraceOutcome, latency time.Duration, negativeSignal bool) {
	if m == nil {
		return
	}
	m.totalRequests.Add(1)
	switch outcome {
	case domain.OutcomeL1Resolved:
		m.l1Count.Add(1)
	case domain.OutcomeL2Escalated:
		m.l2Count.Add(1)
	case domain.OutcomeStatusQuery:
		m.statusQueryCount.Add(1)
	case domain.OutcomeError:
		m.errorCount.Add(1)
	}
	if negativeSignal {
		m.negativeSignalCount.Add(1)
	}
	m.latencySum.Add(int64(latency))
	m.latencyCount.Add(1)
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() domain.MetricsSnapshot {
	return domain.MetricsSnapshot{
		TotalRequests:       m.totalRequests.Load(),
		L1Count:             m.l1Count.Load(),
		L2Count:             m.l2Count.Load(),
		StatusQueryCount:    m.statusQueryCount.Load(),
		ErrorCount:          m.errorCount.Load(),
		NegativeSignalCount: m.negativeSignalCount.Load(),
		LatencySum:          time.Duration(m.latencySum.Load()),
		LatencyCount:        m.latencyCount.Load(),
	}
}

// Reset zeroes all counters. Operator command only.
func (m *Metrics) Reset() {
	m.totalRequests.Store(0)
	m.l1Count.Store(0)
	m.l2Count.Store(0)
	m.statusQueryCount.Store(0)
	m.errorCount.Store(0)
	m.negativeSignalCount.Store(0)
	m.latencySum.Store(0)
	m.latencyCount.Store(0)
}

// Report renders a human-readable summary for operators.
func (m *Metrics) Report() string {
	s := m.Snapshot()
	return fmt.Sprintf(
		"total=%d l1=%d (%.1f%%) l2=%d (%.1f%%) status_queries=%d errors=%d negative_signals=%d avg_latency=%s",
		s.TotalRequests,
		s.L1Count, s.L1Rate()*100,
		s.L2Count, s.L2Rate()*100,
		s.StatusQueryCount,
		s.ErrorCount,
		s.NegativeSignalCount,
		s.AvgLatency(),
	)
}
