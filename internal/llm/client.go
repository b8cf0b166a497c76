// Package llm is the Runner's chat-completions client: a direct,
// OpenAI-compatible HTTP client against OpenRouter, plus (digest.go) a
// secondary, cheap summarization call built on the genai provider stack.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/autofram-dev/autofram/internal/convo"
	"github.com/autofram-dev/autofram/internal/dispatcher"
)

// DefaultBaseURL is the OpenRouter chat-completions base URL.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// requestTimeout bounds one chat-completion call. A single completion
// may legitimately take minutes; the ceiling is generous without being
// unbounded.
const requestTimeout = 5 * time.Minute

// Client sends chat-completion requests to an OpenAI-compatible endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient returns a Client targeting baseURL (DefaultBaseURL if empty)
// with apiKey sent as a bearer token and model as the default model ID.
func NewClient(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

type wireToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireToolCall struct {
	ID       string               `json:"id"`
	Type     string               `json:"type"`
	Function wireToolCallFunction `json:"function"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

func toWire(m convo.Message) wireMessage {
	w := wireMessage{Role: m.Role, Content: m.Content, ToolCallID: m.ToolCallID}
	for _, tc := range m.ToolCalls {
		w.ToolCalls = append(w.ToolCalls, wireToolCall{
			ID:   tc.ID,
			Type: tc.Type,
			Function: wireToolCallFunction{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return w
}

func fromWire(w wireMessage) convo.Message {
	m := convo.Message{Role: w.Role, Content: w.Content, ToolCallID: w.ToolCallID}
	for _, tc := range w.ToolCalls {
		m.ToolCalls = append(m.ToolCalls, convo.ToolCall{
			ID:   tc.ID,
			Type: tc.Type,
			Function: convo.ToolCallFunction{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return m
}

type chatRequest struct {
	Model      string              `json:"model"`
	Messages   []wireMessage       `json:"messages"`
	Tools      []dispatcher.Schema `json:"tools,omitempty"`
	ToolChoice string              `json:"tool_choice,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      wireMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ChatCompletion sends messages and tools to the configured model with
// tool_choice=auto and returns the assistant's reply message.
func (c *Client) ChatCompletion(ctx context.Context, messages []convo.Message, tools []dispatcher.Schema) (convo.Message, error) {
	if c.apiKey == "" {
		return convo.Message{}, fmt.Errorf("OPENROUTER_API_KEY not configured")
	}

	wireMessages := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		wireMessages = append(wireMessages, toWire(m))
	}
	reqBody := chatRequest{
		Model:      c.model,
		Messages:   wireMessages,
		Tools:      tools,
		ToolChoice: "auto",
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return convo.Message{}, fmt.Errorf("marshal chat request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return convo.Message{}, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return convo.Message{}, fmt.Errorf("chat completion request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return convo.Message{}, fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return convo.Message{}, fmt.Errorf("chat completion returned %d: %s", resp.StatusCode, truncate(string(respBody), 500))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return convo.Message{}, fmt.Errorf("parse chat response: %w", err)
	}
	if chatResp.Error != nil {
		return convo.Message{}, fmt.Errorf("chat completion error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return convo.Message{}, fmt.Errorf("chat completion returned no choices")
	}
	return fromWire(chatResp.Choices[0].Message), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
