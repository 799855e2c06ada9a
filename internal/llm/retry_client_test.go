package llm

import (
	"context"
	"fmt"
	"testing"

	"github.com/antigravity-dev/oedr/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetryRetriesTransientErrors(t *testing.T) {
	mock := &MockClient{
		ModelName: "test-model",
		Errors:    []error{fmt.Errorf("%w: rate limited", errs.ErrTransient), nil},
		Responses: []Response{{}, {Content: "ok"}},
	}
	client := WithRetry(mock, errs.DefaultRetryConfig(3), nil)

	resp, err := client.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 2, len(mock.Requests))
}

func TestWithRetryDoesNotRetryFatalErrors(t *testing.T) {
	mock := &MockClient{
		ModelName: "test-model",
		Errors:    []error{fmt.Errorf("%w: bad request", errs.ErrFatal)},
	}
	client := WithRetry(mock, errs.DefaultRetryConfig(3), nil)

	_, err := client.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 1, len(mock.Requests))
}

func TestMockClientReturnsRequestsInOrder(t *testing.T) {
	mock := &MockClient{
		ModelName: "test-model",
		Responses: []Response{{Content: "first"}, {Content: "second"}},
	}
	resp1, err := mock.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "a"}}})
	require.NoError(t, err)
	resp2, err := mock.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "b"}}})
	require.NoError(t, err)

	assert.Equal(t, "first", resp1.Content)
	assert.Equal(t, "second", resp2.Content)
	assert.Equal(t, "a", mock.Requests[0].Messages[0].Content)
}
