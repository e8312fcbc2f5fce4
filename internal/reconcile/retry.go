package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const defaultRetryBackoff = 100 * time.Millisecond

// readWithRetry calls read until it succeeds, MaxRetries extra attempts are
// spent, or ctx ends. The wait doubles after every failure.
func (r *Reconciler) readWithRetry(ctx context.Context, what string, read func(context.Context) error) error {
	attempts := r.cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	backoff := r.cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	var err error
	for attempt := 1; ; attempt++ {
		if err = read(ctx); err == nil {
			return nil
		}
		if attempt >= attempts {
			r.logger.Warn(what+" failed, giving up", zap.Int("attempts", attempt), zap.Error(err))
			return err
		}
		r.logger.Warn(what+" failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.after(backoff):
		}
		backoff *= 2
	}
}
