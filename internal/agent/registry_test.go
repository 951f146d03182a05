package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestRegistryRejectsBrokenSchema(t *testing.T) {
	registry := NewToolRegistry()
	tool := &fakeTool{
		name:   "broken",
		schema: json.RawMessage(`{"type": 42}`),
	}
	if err := registry.Register(tool); err == nil {
		t.Fatal("expected schema compile error")
	}
	if registry.Len() != 0 {
		t.Errorf("Len = %d, want 0", registry.Len())
	}
}

func TestRegistryRejectsEmptyName(t *testing.T) {
	registry := NewToolRegistry()
	if err := registry.Register(&fakeTool{name: "", schema: openSchema()}); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestRegistryUnknownToolIsErrorResult(t *testing.T) {
	registry := NewToolRegistry()
	result, err := registry.Execute(context.Background(), "missing", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(result.Content, "tool not found: missing") {
		t.Errorf("Content = %q", result.Content)
	}
}

func TestRegistryValidatesParams(t *testing.T) {
	registry := NewToolRegistry()
	called := false
	tool := &fakeTool{
		name: "create_shape",
		schema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"x": {"type": "number"},
				"y": {"type": "number"}
			},
			"required": ["x", "y"]
		}`),
		execute: func(context.Context, json.RawMessage) (*ToolResult, error) {
			called = true
			return &ToolResult{Content: "ok"}, nil
		},
	}
	if err := registry.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	result, err := registry.Execute(context.Background(), "create_shape", json.RawMessage(`{"x": 10}`))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected validation failure result")
	}
	if !strings.Contains(result.Content, "create_shape") {
		t.Errorf("Content = %q, want tool name in message", result.Content)
	}
	if called {
		t.Error("tool ran despite invalid params")
	}

	result, err = registry.Execute(context.Background(), "create_shape", json.RawMessage(`{"x": 10, "y": 20}`))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.IsError || !called {
		t.Errorf("valid params rejected: %+v called=%v", result, called)
	}
}

func TestRegistryEmptyParamsTreatedAsObject(t *testing.T) {
	registry := NewToolRegistry()
	tool := &fakeTool{
		name:   "list",
		schema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}
	if err := registry.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	result, err := registry.Execute(context.Background(), "list", nil)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.IsError {
		t.Errorf("empty params rejected: %q", result.Content)
	}
}

func TestRegistryOversizedInputs(t *testing.T) {
	registry := NewToolRegistry()

	longName := strings.Repeat("a", MaxToolNameLength+1)
	result, err := registry.Execute(context.Background(), longName, nil)
	if err != nil || !result.IsError {
		t.Fatalf("oversized name: result=%+v err=%v", result, err)
	}

	tool := &fakeTool{name: "big", schema: openSchema()}
	if err := registry.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	huge := json.RawMessage(strings.Repeat(" ", MaxToolParamsSize+1))
	result, err = registry.Execute(context.Background(), "big", huge)
	if err != nil || !result.IsError {
		t.Fatalf("oversized params: result=%+v err=%v", result, err)
	}
}

func TestRegistryUnregister(t *testing.T) {
	registry := NewToolRegistry()
	if err := registry.Register(&fakeTool{name: "temp", schema: openSchema()}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	registry.Unregister("temp")
	if _, ok := registry.Get("temp"); ok {
		t.Error("tool still present after Unregister")
	}
	if registry.Len() != 0 {
		t.Errorf("Len = %d, want 0", registry.Len())
	}
}
