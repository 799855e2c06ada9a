package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/antigravity-dev/oedr/internal/errs"
)

// HTTPClient speaks the OpenAI chat-completions wire format, which is also
// what most self-hosted and third-party-compatible endpoints implement
// (LLM_BASE_URL is expected to point at such an endpoint).
type HTTPClient struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// NewHTTPClient builds a client against baseURL using apiKey as a bearer
// token and model as the completion model identifier.
func NewHTTPClient(baseURL, apiKey, model string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

func (c *HTTPClient) Model() string { return c.model }

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type wireChoice struct {
	Message      wireMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type wireResponse struct {
	Choices []wireChoice `json:"choices"`
	Usage   wireUsage    `json:"usage"`
}

// Complete issues one non-streaming chat-completion request.
func (c *HTTPClient) Complete(ctx context.Context, req Request) (Response, error) {
	messages := make([]wireMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = wireMessage{Role: m.Role, Content: m.Content}
	}
	body, err := json.Marshal(wireRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return Response{}, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", errs.ErrTransient, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("%w: read response: %v", errs.ErrTransient, err)
	}

	if resp.StatusCode != http.StatusOK {
		return Response{}, classifyStatus(resp.StatusCode, string(respBody))
	}

	var wire wireResponse
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return Response{}, fmt.Errorf("%w: decode response: %v", errs.ErrFatal, err)
	}
	if len(wire.Choices) == 0 {
		return Response{}, fmt.Errorf("%w: response had no choices", errs.ErrFatal)
	}

	choice := wire.Choices[0]
	return Response{
		Content:    choice.Message.Content,
		StopReason: choice.FinishReason,
		Usage: TokenUsage{
			PromptTokens:     wire.Usage.PromptTokens,
			CompletionTokens: wire.Usage.CompletionTokens,
			TotalTokens:      wire.Usage.TotalTokens,
		},
	}, nil
}

// classifyStatus maps HTTP status codes to the error taxonomy (spec §7):
// rate limits and server errors are transient and worth retrying, anything
// else (bad request, auth failure, not found) is fatal to this call.
func classifyStatus(code int, body string) error {
	switch {
	case code == http.StatusTooManyRequests, code >= 500:
		return fmt.Errorf("%w: llm http %d: %s", errs.ErrTransient, code, truncate(body, 200))
	default:
		return fmt.Errorf("%w: llm http %d: %s", errs.ErrFatal, code, truncate(body, 200))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
