package observability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-pilot/internal/domain"
	"github.com/spec-kit/support-pilot/pkg/util"
)

type recordingSink struct {
	mu     sync.Mutex
	traces []domain.Trace
	err    error
}

func (s *recordingSink) SaveTrace(_ context.Context, trace *domain.Trace) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.traces = append(s.traces, *trace)
	return nil
}

func TestTraceLifecycle(t *testing.T) {
	metrics := NewMetrics()
	sink := &recordingSink{}
	tracer := NewTracer(metrics, sink, zap.NewNop())
	ctx := context.Background()

	traceID := tracer.StartTrace("turn-1")
	require.NotEmpty(t, traceID)

	tracer.Record(traceID, "engine", "turn started")
	tracer.Record(traceID, "knowledge", "lookup vpn")

	err := tracer.Complete(ctx, traceID, domain.OutcomeL1Resolved, 40*time.Millisecond)
	require.NoError(t, err)

	trace, ok := tracer.Get(traceID)
	require.True(t, ok)
	assert.Equal(t, "turn-1", trace.TurnID)
	assert.Equal(t, domain.OutcomeL1Resolved, trace.Outcome)
	assert.Len(t, trace.Decisions, 2)
	assert.Equal(t, "knowledge", trace.Decisions[1].Component)

	require.Len(t, sink.traces, 1)
	assert.Equal(t, traceID, sink.traces[0].TraceID)

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.L1Count)
	assert.Equal(t, 40*time.Millisecond, snap.AvgLatency())
}

func TestDuplicateCompletionCountsOnce(t *testing.T) {
	metrics := NewMetrics()
	tracer := NewTracer(metrics, nil, zap.NewNop())
	ctx := context.Background()

	traceID := tracer.StartTrace("turn-1")
	require.NoError(t, tracer.Complete(ctx, traceID, domain.OutcomeL2Escalated, time.Millisecond))
	require.NoError(t, tracer.Complete(ctx, traceID, domain.OutcomeL2Escalated, time.Millisecond))

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.L2Count)
}

func TestCompleteRejectsUnknownOutcome(t *testing.T) {
	metrics := NewMetrics()
	tracer := NewTracer(metrics, nil, zap.NewNop())

	traceID := tracer.StartTrace("turn-1")
	err := tracer.Complete(context.Background(), traceID, "PARTIALLY_RESOLVED", time.Millisecond)
	require.Error(t, err)
	assert.True(t, util.IsCode(err, util.CodeInvariant))
	assert.Equal(t, int64(0), metrics.Snapshot().TotalRequests)
}

func TestCompleteUnknownTraceIsNoOp(t *testing.T) {
	metrics := NewMetrics()
	tracer := NewTracer(metrics, nil, zap.NewNop())

	err := tracer.Complete(context.Background(), "no-such-trace", domain.OutcomeError, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(0), metrics.Snapshot().TotalRequests)
}

func TestRecordAfterCompletionIsIgnored(t *testing.T) {
	tracer := NewTracer(NewMetrics(), nil, zap.NewNop())
	ctx := context.Background()

	traceID := tracer.StartTrace("turn-1")
	tracer.Record(traceID, "engine", "turn started")
	require.NoError(t, tracer.Complete(ctx, traceID, domain.OutcomeStatusQuery, time.Millisecond))
	tracer.Record(traceID, "engine", "late decision")

	trace, ok := tracer.Get(traceID)
	require.True(t, ok)
	assert.Len(t, trace.Decisions, 1)
}

func TestNegativeSignalFlowsIntoMetrics(t *testing.T) {
	metrics := NewMetrics()
	tracer := NewTracer(metrics, nil, zap.NewNop())
	ctx := context.Background()

	traceID := tracer.StartTrace("turn-1")
	tracer.RecordNegativeSignal(traceID)
	require.NoError(t, tracer.Complete(ctx, traceID, domain.OutcomeL2Escalated, time.Millisecond))

	assert.Equal(t, int64(1), metrics.Snapshot().NegativeSignalCount)
}

func TestSinkFailureDoesNotFailCompletion(t *testing.T) {
	metrics := NewMetrics()
	sink := &recordingSink{err: errors.New("connection refused")}
	tracer := NewTracer(metrics, sink, zap.NewNop())

	traceID := tracer.StartTrace("turn-1")
	err := tracer.Complete(context.Background(), traceID, domain.OutcomeL1Resolved, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int64(1), metrics.Snapshot().TotalRequests)
}

func TestMetricsRatesAndReset(t *testing.T) {
	metrics := NewMetrics()
	metrics.RecordOutcome(domain.OutcomeL1Resolved, 10*time.Millisecond, false)
	metrics.RecordOutcome(domain.OutcomeL1Resolved, 20*time.Millisecond, false)
	metrics.RecordOutcome(domain.OutcomeL2Escalated, 30*time.Millisecond, true)
	metrics.RecordOutcome(domain.OutcomeError, 40*time.Millisecond, false)

	snap := metrics.Snapshot()
	assert.Equal(t, int64(4), snap.TotalRequests)
	assert.InDelta(t, 0.5, snap.L1Rate(), 1e-9)
	assert.InDelta(t, 0.25, snap.L2Rate(), 1e-9)
	assert.Equal(t, 25*time.Millisecond, snap.AvgLatency())

	metrics.Reset()
	snap = metrics.Snapshot()
	assert.Equal(t, int64(0), snap.TotalRequests)
	assert.Equal(t, time.Duration(0), snap.AvgLatency())
	assert.Equal(t, float64(0), snap.L1Rate())
}
