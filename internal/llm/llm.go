// Package llm defines the LLM Client external collaborator (spec.md C1) and
// ships an OpenAI-compatible HTTP implementation plus a scriptable mock for
// tests.
//
// Interface and message shapes are grounded on the teacher's
// internal/agent/ports/llm.go (LLMClient / CompletionRequest /
// CompletionResponse / Message), narrowed to this system's needs: OEDR
// agents emit actions as tagged text (internal/protocol), not native
// tool-calling, so the Tools/ToolCalls fields of the teacher's shape have
// no counterpart here.
package llm

import "context"

// Client is the boundary every agent talks to. Retry lives in a wrapping
// decorator (see WithRetry), not in implementations; implementations
// classify their failures (errs.ErrTransient vs errs.ErrFatal) so the
// decorator knows which ones to retry.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Model() string
}

// Message is one turn of conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request carries everything needed for one completion call.
type Request struct {
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// TokenUsage mirrors the provider's accounting, surfaced for logging only;
// the spec does not budget on tokens directly.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the model's completion.
type Response struct {
	Content    string     `json:"content"`
	StopReason string     `json:"stop_reason"`
	Usage      TokenUsage `json:"usage"`
}
