package knowledge

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-pilot/pkg/util"
)

// Result is the tagged outcome of a knowledge base lookup.
type Result struct {
	Found    bool
	Solution string
	TopicKey string
}

// NotFound is the sentinel result when no article matches.
var NotFound = Result{}

// Lookup resolves a query against the knowledge base. Implementations
// are swappable; the routing engine only depends on this contract.
type Lookup interface {
	Lookup(ctx context.Context, query string) (Result, error)
}

// retryingLookup retries a transient failure once with backoff, then
// degrades the result to not-found so the turn escalates instead of
// surfacing an internal error.
type retryingLookup struct {
	inner   Lookup
	backoff time.Duration
	logger  *zap.Logger
}

// WithRetry wraps a lookup with the degradation policy.
func WithRetry(inner Lookup, backoff time.Duration, logger *zap.Logger) Lookup {
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return &retryingLookup{inner: inner, backoff: backoff, logger: logger}
}

func (r *retryingLookup) Lookup(ctx context.Context, query string) (Result, error) {
	result, err := r.inner.Lookup(ctx, query)
	if err == nil {
		return result, nil
	}
	if !util.IsCode(err, util.CodeTransientLookup) {
		return NotFound, err
	}

	r.logger.Warn("knowledge lookup failed, retrying", zap.Error(err))
	select {
	case <-ctx.Done():
		return NotFound, ctx.Err()
	case <-time.After(r.backoff):
	}

	result, err = r.inner.Lookup(ctx, query)
	if err == nil {
		return result, nil
	}
	if util.IsCode(err, util.CodeTransientLookup) {
		r.logger.Warn("knowledge lookup failed twice, degrading to not-found", zap.Error(err))
		return NotFound, nil
	}
	return NotFound, err
}
