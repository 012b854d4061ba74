package arbiter

import (
	"context"
	"errors"
	"time"

	"github.com/mikey/mail-gatekeeper/internal/core"
	"go.uber.org/zap"
)

// Retrying wraps an Arbiter with a per-call timeout and a small bounded
// retry with exponential backoff. Only transient failures (connection, 5xx,
// timeout) are retried; a response that arrived but did not match the label
// protocol is returned as-is.
type Retrying struct {
	inner      core.Arbiter
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// WithRetry creates a retrying wrapper around the given arbiter
func WithRetry(inner core.Arbiter, timeout time.Duration, maxRetries int, backoff time.Duration, logger *zap.Logger) *Retrying {
	return &Retrying{
		inner:      inner,
		timeout:    timeout,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
	}
}

// Close releases the inner arbiter's resources, if it holds any
func (r *Retrying) Close() error {
	if closer, ok := r.inner.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// Judge asks the inner arbiter, retrying transient failures
func (r *Retrying) Judge(ctx context.Context, subject, bodySnippet string) (*core.ArbiterResult, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			wait := r.backoff << (attempt - 1)
			r.logger.Debug("Retrying classification call",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", wait),
				zap.Error(lastErr))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, &core.ClassificationServiceError{Provider: "retry", Transient: true, Err: ctx.Err()}
			}
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if r.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		}
		result, err := r.inner.Judge(callCtx, subject, bodySnippet)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return result, nil
		}
		lastErr = err

		var svcErr *core.ClassificationServiceError
		if !errors.As(err, &svcErr) || !svcErr.Transient {
			return nil, err
		}
		// The whole batch may be out of time; don't keep hammering.
		if ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}
