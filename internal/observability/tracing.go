package observability

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-pilot/internal/domain"
	"github.com/spec-kit/support-pilot/pkg/util"
)

// TraceSink persists completed traces for later analysis. Optional;
// a nil sink keeps traces in memory only.
type TraceSink interface {
	SaveTrace(ctx context.Context, trace *domain.Trace) error
}

type activeTrace struct {
	trace          domain.Trace
	negativeSignal bool
	completed      bool
}

// Tracer assigns a correlation id to every inbound turn and records
// every decision and tool call against it. Completion is the only
// mutator of the metrics aggregate and is applied exactly once per
// trace id.
type Tracer struct {
	mu      sync.Mutex
	traces  map[string]*activeTrace
	metrics *Metrics
	sink    TraceSink
	logger  *zap.Logger
}

// NewTracer builds a tracer feeding the given metrics aggregate.
func NewTracer(metrics *Metrics, sink TraceSink, logger *zap.Logger) *Tracer {
	return &Tracer{
		traces:  make(map[string]*activeTrace),
		metrics: metrics,
		sink:    sink,
		logger:  logger,
	}
}

// StartTrace opens a trace for a turn and returns its id.
func (t *Tracer) StartTrace(turnID string) string {
	traceID := uuid.NewString()
	t.mu.Lock()
	t.traces[traceID] = &activeTrace{trace: domain.Trace{
		TraceID:   traceID,
		TurnID:    turnID,
		StartedAt: time.Now(),
	}}
	t.mu.Unlock()
	t.logger.Info("trace started", zap.String("trace_id", traceID), zap.String("turn_id", turnID))
	return traceID
}

// Record appends a decision to the trace.
func (t *Tracer) Record(traceID, component, action string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	active, ok := t.traces[traceID]
	if !ok || active.completed {
		return
	}
	active.trace.Decisions = append(active.trace.Decisions, domain.Decision{
		Component: component,
		Action:    action,
		At:        time.Now(),
	})
	t.logger.Debug("trace decision",
		zap.String("trace_id", traceID),
		zap.String("component", component),
		zap.String("action", action))
}

// RecordNegativeSignal tags the trace as carrying user dissatisfaction.
func (t *Tracer) RecordNegativeSignal(traceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if active, ok := t.traces[traceID]; ok && !active.completed {
		active.negativeSignal = true
	}
}

// Complete finalizes the trace and updates the metrics aggregate.
// A duplicate completion is a no-op, logged as a warning. An outcome
// outside the enum is a programming error.
func (t *Tracer) Complete(ctx context.Context, traceID string, outcome domain.TraceOutcome, latency time.Duration) error {
	if !domain.ValidOutcome(outcome) {
		t.logger.Error("invalid trace outcome",
			zap.String("trace_id", traceID),
			zap.String("outcome", string(outcome)))
		return util.NewInvariantViolation("invalid trace outcome: " + string(outcome))
	}

	t.mu.Lock()
	active, ok := t.traces[traceID]
	if !ok {
		t.mu.Unlock()
		t.logger.Warn("complete called for unknown trace", zap.String("trace_id", traceID))
		return nil
	}
	if active.completed {
		t.mu.Unlock()
		t.logger.Warn("duplicate trace completion", zap.String("trace_id", traceID))
		return nil
	}
	active.completed = true
	active.trace.Outcome = outcome
	active.trace.CompletedAt = time.Now()
	active.trace.Latency = latency
	snapshot := active.trace
	negative := active.negativeSignal
	t.mu.Unlock()

	t.metrics.RecordOutcome(outcome, latency, negative)

	if t.sink != nil {
		if err := t.sink.SaveTrace(ctx, &snapshot); err != nil {
			t.logger.Warn("trace persistence failed",
				zap.String("trace_id", traceID), zap.Error(err))
		}
	}

	t.logger.Info("trace completed",
		zap.String("trace_id", traceID),
		zap.String("outcome", string(outcome)),
		zap.Duration("latency", latency),
		zap.Int("decisions", len(snapshot.Decisions)))
	return nil
}

// Get returns a copy of the trace if known.
func (t *Tracer) Get(traceID string) (domain.Trace, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	active, ok := t.traces[traceID]
	if !ok {
		return domain.Trace{}, false
	}
	return active.trace, true
}
