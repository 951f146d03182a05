// Package tools implements the canvas manipulation surface exposed to the
// model: read, create, update, delete, batch, bulk-random, and arrange
// operations over a shape store. Every tool returns a uniform JSON envelope
// with a success flag and a human-readable message; failures come back as
// error results so the model can recover, never as Go errors.
package tools

import (
	"encoding/json"

	"github.com/collabcanvas/canvasd/internal/agent"
	"github.com/collabcanvas/canvasd/internal/observability"
	"github.com/collabcanvas/canvasd/internal/store"
)

// DefaultCanvasID is used when a tool call does not name a canvas.
const DefaultCanvasID = "main-canvas"

// agentSessionID tags store writes issued by tools.
const agentSessionID = "ai-agent"

// deps is the shared dependency set for every canvas tool.
type deps struct {
	store  store.Store
	logger *observability.Logger
}

func (d deps) meta() store.WriteMeta {
	return store.WriteMeta{SessionID: agentSessionID}
}

func canvasOr(id string) string {
	if id == "" {
		return DefaultCanvasID
	}
	return id
}

func marshalSchema(schema map[string]interface{}) json.RawMessage {
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

// canvasIDProperty is the schema fragment shared by every tool.
func canvasIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Canvas identifier (default: \"main-canvas\").",
	}
}

func toolError(message string) *agent.ToolResult {
	payload, _ := json.Marshal(map[string]interface{}{
		"success": false,
		"message": message,
	})
	return &agent.ToolResult{Content: string(payload), IsError: true}
}

func toolOK(payload map[string]interface{}) *agent.ToolResult {
	payload["success"] = true
	encoded, err := json.Marshal(payload)
	if err != nil {
		return toolError("encode result: " + err.Error())
	}
	return &agent.ToolResult{Content: string(encoded)}
}
