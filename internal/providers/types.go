// Package providers contains LLM provider clients. Each provider is a
// hand-rolled HTTP client returning a normalized ChatResponse.
package providers

import "context"

// Message is one turn in the conversation sent to the provider.
// Content is either a plain string or a []ContentBlock.
type Message struct {
	Role    string      `json:"role"` // "user" or "assistant"
	Content interface{} `json:"content"`
}

// ContentBlock is one block of a structured message.
type ContentBlock struct {
	Type string `json:"type"` // "text", "tool_use", "tool_result"

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string                 `json:"id,omitempty"`
	Name  string                 `json:"name,omitempty"`
	Input map[string]interface{} `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// ToolDefinition describes a tool in the shape the provider API expects.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]interface{}
}

// ChatRequest is a single call into the provider.
type ChatRequest struct {
	System    string
	Messages  []Message
	Tools     []ToolDefinition
	MaxTokens int
}

// ChatResponse is the normalized provider reply.
type ChatResponse struct {
	Content    string     // concatenated text blocks
	ToolCalls  []ToolCall // tool invocations, in order
	StopReason string     // e.g. "end_turn", "tool_use", "max_tokens"
}

// Provider is the LLM backend contract.
type Provider interface {
	Name() string
	Model() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
