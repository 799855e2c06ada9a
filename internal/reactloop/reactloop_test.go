package reactloop

import (
	"context"
	"errors"
	"testing"

	"github.com/antigravity-dev/oedr/internal/errs"
	"github.com/antigravity-dev/oedr/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStopsOnTerminated(t *testing.T) {
	calls := 0
	_, err := Run(context.Background(), Config{MaxIterations: 5}, nil, func(_ context.Context, history []llm.Message, iteration int) ([]llm.Message, Outcome, error) {
		calls++
		if iteration == 2 {
			return append(history, llm.Message{Role: "assistant", Content: "done"}), Terminated, nil
		}
		return append(history, llm.Message{Role: "assistant", Content: "continuing"}), Continue, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRunExceedsIterationCeiling(t *testing.T) {
	_, err := Run(context.Background(), Config{MaxIterations: 3}, nil, func(_ context.Context, history []llm.Message, iteration int) ([]llm.Message, Outcome, error) {
		return history, Continue, nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrBudgetExceeded))
}

func TestRunRetriesProtocolErrorsWithinBudget(t *testing.T) {
	calls := 0
	_, err := Run(context.Background(), Config{MaxIterations: 5, MaxProtocolRetries: 2}, nil, func(_ context.Context, history []llm.Message, iteration int) ([]llm.Message, Outcome, error) {
		calls++
		if calls <= 2 {
			return history, Continue, errs.NewProtocolError("NoActionTag", "retry me")
		}
		return history, Terminated, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRunExhaustsProtocolRetryBudget(t *testing.T) {
	_, err := Run(context.Background(), Config{MaxIterations: 10, MaxProtocolRetries: 1}, nil, func(_ context.Context, history []llm.Message, iteration int) ([]llm.Message, Outcome, error) {
		return history, Continue, errs.NewProtocolError("NoActionTag", "always fails")
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrProtocol))
}

func TestRunStopsImmediatelyOnFatalError(t *testing.T) {
	calls := 0
	_, err := Run(context.Background(), Config{MaxIterations: 5}, nil, func(_ context.Context, history []llm.Message, iteration int) ([]llm.Message, Outcome, error) {
		calls++
		return history, Continue, errs.ErrFatal
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRunRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Config{MaxIterations: 5}, nil, func(_ context.Context, history []llm.Message, iteration int) ([]llm.Message, Outcome, error) {
		t.Fatal("step should not be called with a cancelled context")
		return history, Continue, nil
	})
	require.Error(t, err)
}
