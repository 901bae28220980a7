package domain

import "time"

// TraceOutcome enumerates terminal results of a turn.
type TraceOutcome string

const (
	OutcomeL1Resolved  TraceOutcome = "L1_RESOLVED"
	OutcomeL2Escalated TraceOutcome = "L2_ESCALATED"
	OutcomeStatusQuery TraceOutcome = "STATUS_QUERY"
	OutcomeError       TraceOutcome = "ERROR"
)

// ValidOutcome reports whether o is a known outcome. Anything else is
// a programming error, not user input.
func ValidOutcome(o TraceOutcome) bool {
	switch o {
	case OutcomeL1Resolved, OutcomeL2Escalated, OutcomeStatusQuery, OutcomeError:
		return true
	}
	return false
}

// Decision is one recorded step inside a trace.
type Decision struct {
	Component string    `json:"component"`
	Action    string    `json:"action"`
	At        time.Time `json:"at"`
}

// Trace correlates every decision and tool call of a single turn.
// Immutable after completion.
type Trace struct {
	TraceID     string        `json:"trace_id"`
	TurnID      string        `json:"turn_id"`
	Decisions   []Decision    `json:"decisions"`
	Outcome     TraceOutcome  `json:"outcome,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at,omitempty"`
	Latency     time.Duration `json:"latency_ns,omitempty"`
}

// MetricsSnapshot is a point-in-time copy of the process-wide counters.
type MetricsSnapshot struct {
	TotalRequests       int64         `json:"total_requests"`
	L1Count             int64         `json:"l1_count"`
	L2Count             int64         `json:"l2_count"`
	StatusQueryCount    int64         `json:"status_query_count"`
	ErrorCount          int64         `json:"error_count"`
	NegativeSignalCount int64         `json:"negative_signal_count"`
	LatencySum          time.Duration `json:"latency_sum_ns"`
	LatencyCount        int64         `json:"latency_count"`
}

// L1Rate is the share of requests resolved by the knowledge base.
func (m MetricsSnapshot) L1Rate() float64 {
	if m.TotalRequests == 0 {
		return 0
	}
	return float64(m.L1Count) / float64(m.TotalRequests)
}

// L2Rate is the share of requests escalated to a ticket.
func (m MetricsSnapshot) L2Rate() float64 {
	if m.TotalRequests == 0 {
		return 0
	}
	return float64(m.L2Count) / float64(m.TotalRequests)
}

// AvgLatency is the mean turn latency.
func (m MetricsSnapshot) AvgLatency() time.Duration {
	if m.LatencyCount == 0 {
		return 0
	}
	return m.LatencySum / time.Duration(m.LatencyCount)
}
