package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-pilot/internal/domain"
)

// TraceRepository retains completed traces for offline analysis.
type TraceRepository interface {
	SaveTrace(ctx context.Context, trace *domain.Trace) error
	GetTrace(ctx context.Context, traceID string) (*domain.Trace, error)
}

type traceRepository struct {
	pool *pgxpool.Pool
}

// NewTraceRepository instantiates repository.
func NewTraceRepository(pool *pgxpool.Pool) TraceRepository {
	return &traceRepository{pool: pool}
}

func (r *traceRepository) SaveTrace(ctx context.Context, trace *domain.Trace) error {
	decisions, err := json.Marshal(trace.Decisions)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO traces (trace_id, turn_id, outcome, decisions, started_at, completed_at, latency_ns)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (trace_id) DO NOTHING`
	_, err = r.pool.Exec(ctx, query,
		trace.TraceID,
		trace.TurnID,
		trace.Outcome,
		decisions,
		trace.StartedAt,
		trace.CompletedAt,
		int64(trace.Latency),
	)
	return err
}

func (r *traceRepository) GetTrace(ctx context.Context, traceID string) (*domain.Trace, error) {
	const query = `
        SELECT trace_id, turn_id, outcome, decisions, started_at, completed_at, latency_ns
        FROM traces WHERE trace_id=$1`
	var trace domain.Trace
	var decisions []byte
	var latency int64
	if err := r.pool.QueryRow(ctx, query, traceID).Scan(
		&trace.TraceID,
		&trace.TurnID,
		&trace.Outcome,
		&decisions,
		&trace.StartedAt,
		&trace.CompletedAt,
		&latency,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(decisions, &trace.Decisions); err != nil {
		return nil, err
	}
	trace.Latency = time.Duration(latency)
	return &trace, nil
}
