// Package providers implements the chat-completion contract the agent loop
// speaks to an LLM backend.
package providers

import "context"

// Message is a single entry in the conversation sent to the model.
// Role is one of "system", "user", "assistant", "tool".
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // set when Role == "tool"
}

// ToolCall is a single tool invocation requested by the model. Arguments is
// the raw JSON string the model produced; it is parsed at execution time so a
// malformed payload becomes a recoverable tool failure, not a transport error.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition describes an available tool in the request, following the
// function-calling format OpenAI-compatible endpoints expect.
type ToolDefinition struct {
	Type     string             `json:"type"` // always "function"
	Function ToolFunctionSchema `json:"function"`
}

// ToolFunctionSchema is the name/description/parameters triple for one tool.
type ToolFunctionSchema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ChatRequest is one model round-trip's input.
type ChatRequest struct {
	Messages  []Message
	Tools     []ToolDefinition
	Model     string // empty = provider default
	MaxTokens int    // 0 = provider default
}

// ChatResponse is the assistant's reply: text, zero or more tool call
// requests, and usage accounting.
type ChatResponse struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        Usage
}

// Usage tracks token consumption for a single call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Provider is a chat-completion backend.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
