package store

import (
	"context"

	"github.com/sells-group/intake-cli/internal/resilience"
)

// RetryingDocuments retries transient lookup failures and stops calling a
// backend that keeps failing.
type RetryingDocuments struct {
	next    DocumentStore
	cfg     resilience.RetryConfig
	breaker *resilience.Breaker
}

// NewRetrying wraps ds. A nil breaker disables the circuit.
func NewRetrying(ds DocumentStore, cfg resilience.RetryConfig, breaker *resilience.Breaker) *RetryingDocuments {
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.LogRetry("store", "latest_submission")
	}
	return &RetryingDocuments{next: ds, cfg: cfg, breaker: breaker}
}

func (r *RetryingDocuments) LatestSubmission(ctx context.Context, txID string) (map[string]any, error) {
	return resilience.Guard(ctx, r.breaker, func(ctx context.Context) (map[string]any, error) {
		return resilience.DoVal(ctx, r.cfg, func(ctx context.Context) (map[string]any, error) {
			return r.next.LatestSubmission(ctx, txID)
		})
	})
}
