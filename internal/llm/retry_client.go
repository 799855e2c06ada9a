package llm

import (
	"context"

	"github.com/antigravity-dev/oedr/internal/errs"
	"github.com/antigravity-dev/oedr/internal/logging"
)

// retryClient wraps a Client with the shared errs.RetryWithResult backoff
// helper, grounded on the teacher's internal/infra/llm/retry_client.go
// (minus its circuit breaker and health registry: a single research run has
// no long-lived fleet of calls to protect against cascading failure).
type retryClient struct {
	underlying Client
	cfg        errs.RetryConfig
	logger     logging.Logger
}

// WithRetry decorates client so transient failures (rate limits, 5xx,
// network errors) are retried with exponential backoff before surfacing to
// the caller.
func WithRetry(client Client, cfg errs.RetryConfig, logger logging.Logger) Client {
	return &retryClient{underlying: client, cfg: cfg, logger: logging.OrNop(logger)}
}

func (c *retryClient) Model() string { return c.underlying.Model() }

func (c *retryClient) Complete(ctx context.Context, req Request) (Response, error) {
	return errs.RetryWithResult(ctx, c.cfg, c.logger, func(ctx context.Context) (Response, error) {
		return c.underlying.Complete(ctx, req)
	})
}
