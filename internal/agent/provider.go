package agent

import (
	"context"
	"encoding/json"

	"github.com/collabcanvas/canvasd/pkg/models"
)

// LLMProvider is the interface for model backends.
//
// Implementations handle the specifics of each LLM API (OpenAI, Anthropic)
// while presenting a unified streaming interface to the agent loop.
// Implementations must be safe for concurrent use.
type LLMProvider interface {
	// Complete sends a prompt and returns a streaming response.
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)

	// Name returns the provider name.
	Name() string

	// SupportsTools returns whether the provider supports tool use.
	SupportsTools() bool
}

// CompletionRequest contains all parameters for an LLM completion request.
type CompletionRequest struct {
	// Model specifies which model to use. Empty selects the provider default.
	Model string `json:"model"`

	// System sets the assistant's behavior; handled separately from messages
	// by most LLM APIs.
	System string `json:"system,omitempty"`

	// Messages is the conversation history in chronological order.
	Messages []CompletionMessage `json:"messages"`

	// Tools the model may request to execute. Empty disables tool calling.
	Tools []Tool `json:"tools,omitempty"`

	// MaxTokens limits the generated response length. 0 uses the provider
	// default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature adjusts sampling. 0 uses the provider default.
	Temperature float64 `json:"temperature,omitempty"`
}

// CompletionMessage is a single message in a conversation.
// Role values: "user", "assistant", "tool".
type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`

	// ToolCalls contains tool execution requests from the assistant.
	ToolCalls []models.ToolCall `json:"tool_calls,omitempty"`

	// ToolResults contains responses from executed tools.
	ToolResults []models.ToolResult `json:"tool_results,omitempty"`
}

// CompletionChunk is one element of a streaming LLM response. A chunk carries
// partial text, a complete tool call, or the Done signal with token counts.
type CompletionChunk struct {
	Text     string           `json:"text,omitempty"`
	ToolCall *models.ToolCall `json:"tool_call,omitempty"`
	Done     bool             `json:"done,omitempty"`
	Error    error            `json:"-"`

	// Token counts, populated on the final chunk.
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
}

// Tool is an executable agent capability exposed to the model.
type Tool interface {
	// Name returns the tool name for LLM function calling.
	Name() string

	// Description tells the model what the tool does.
	Description() string

	// Schema returns the JSON Schema for the tool's parameters.
	Schema() json.RawMessage

	// Execute runs the tool with schema-conforming JSON parameters.
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ToolResult is the output of a tool execution. Failures are communicated
// with IsError=true so the model can recover; Execute returning a non-nil
// error is reserved for infrastructure faults.
type ToolResult struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}
