package models

import "encoding/json"

// CommandRequest is a natural-language canvas command from a client.
type CommandRequest struct {
	Command   string    `json:"command"`
	CanvasID  string    `json:"canvas_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Viewport  *Viewport `json:"viewport,omitempty"`
}

// CommandResult is the uniform outcome of a canvas command. Error is set only
// when Success is false; Shapes lists the canvas elements the command produced,
// in tool-invocation order.
type CommandResult struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Shapes  []*Shape `json:"shapes"`
	// Directives carries client-side command instructions emitted by tools,
	// passed through verbatim.
	Directives []json.RawMessage `json:"directives,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// ToolCall is an LLM's request to execute a named tool.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResult is the outcome of one tool execution, fed back to the model.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}
