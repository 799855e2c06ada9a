// Package errs implements the error taxonomy of spec.md §7: transient
// external errors are retried, protocol errors are returned to the agent as
// a correction opportunity, budget errors force a clean termination, data
// integrity errors are discarded-and-logged, and fatal errors abort the run.
//
// Grounded on the teacher's internal/infra/llm/retry_client.go retry +
// circuit-breaker shape, generalized to a small reusable helper instead of a
// full circuit breaker (the engine is single-run, not a long-lived service).
package errs

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/antigravity-dev/oedr/internal/logging"
)

// Sentinel classes. Use errors.Is against these, or wrap with %w.
var (
	ErrTransient      = errors.New("transient external error")
	ErrProtocol       = errors.New("protocol error")
	ErrBudgetExceeded = errors.New("budget exceeded")
	ErrDataIntegrity  = errors.New("data integrity error")
	ErrFatal          = errors.New("fatal error")
)

// ProtocolError carries the structured detail returned to the agent as its
// next-turn observation (spec §4.2, §7).
type ProtocolError struct {
	Reason string
	Detail string
}

func (e *ProtocolError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("protocol error: %s", e.Reason)
	}
	return fmt.Sprintf("protocol error: %s: %s", e.Reason, e.Detail)
}

func (e *ProtocolError) Unwrap() error { return ErrProtocol }

// NewProtocolError builds a *ProtocolError that also satisfies errors.Is(err, ErrProtocol).
func NewProtocolError(reason, detail string) *ProtocolError {
	return &ProtocolError{Reason: reason, Detail: detail}
}

// UnresolvedCitation is the specific protocol error for outline citations
// that do not resolve in the Evidence Bank (spec §4.2).
func UnresolvedCitation(ids []string) *ProtocolError {
	return NewProtocolError("UnresolvedCitation", fmt.Sprintf("unknown evidence ids: %v", ids))
}

// RetryConfig controls exponential backoff for transient external calls.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig mirrors the teacher's default backoff envelope.
func DefaultRetryConfig(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts: maxAttempts,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// RetryWithResult retries fn on transient errors (errors.Is(err, ErrTransient)
// or context.DeadlineExceeded) with exponential backoff and jitter. Any other
// error returns immediately. Exhausting attempts returns the last error
// unchanged, so callers can still inspect it with errors.Is.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, logger logging.Logger, fn func(context.Context) (T, error)) (T, error) {
	logger = logging.OrNop(logger)
	var zero T
	var lastErr error
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == attempts {
			return zero, err
		}
		delay := backoffDelay(cfg, attempt)
		logger.Warn("retrying after transient error (attempt %d/%d, delay %s): %v", attempt, attempts, delay, err)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, lastErr
}

// IsRetryable reports whether err should be retried per the spec's "Transient
// external" classification.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded)
}

// IsProtocolError reports whether err is (or wraps) a ProtocolError, the
// classification that sends the failure back to the agent as its next-turn
// observation rather than aborting the run (spec §7).
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrProtocol)
}

func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	base := cfg.BaseDelay
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	max := cfg.MaxDelay
	if max <= 0 {
		max = 5 * time.Second
	}
	delay := base * time.Duration(1<<uint(attempt-1))
	if delay > max {
		delay = max
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return delay/2 + jitter
}
