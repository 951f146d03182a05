package agent

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/collabcanvas/canvasd/pkg/models"
)

// scriptedProvider replays a fixed sequence of completion turns. Each call to
// Complete consumes the next turn; running past the script repeats the last
// turn, which lets tests model a model that loops forever.
type scriptedProvider struct {
	mu       sync.Mutex
	turns    [][]*CompletionChunk
	requests []*CompletionRequest
	delay    time.Duration
}

func (p *scriptedProvider) Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error) {
	p.mu.Lock()
	copied := *req
	copied.Messages = append([]CompletionMessage(nil), req.Messages...)
	p.requests = append(p.requests, &copied)
	var turn []*CompletionChunk
	if len(p.turns) > 0 {
		turn = p.turns[0]
		if len(p.turns) > 1 {
			p.turns = p.turns[1:]
		}
	}
	delay := p.delay
	p.mu.Unlock()

	chunks := make(chan *CompletionChunk)
	go func() {
		defer close(chunks)
		if delay > 0 {
			time.Sleep(delay)
		}
		for _, chunk := range turn {
			chunks <- chunk
		}
	}()
	return chunks, nil
}

func (p *scriptedProvider) Name() string        { return "scripted" }
func (p *scriptedProvider) SupportsTools() bool { return true }

func (p *scriptedProvider) capturedRequests() []*CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*CompletionRequest(nil), p.requests...)
}

func textTurn(text string) []*CompletionChunk {
	return []*CompletionChunk{
		{Text: text},
		{Done: true},
	}
}

func toolTurn(calls ...*models.ToolCall) []*CompletionChunk {
	chunks := make([]*CompletionChunk, 0, len(calls)+1)
	for _, call := range calls {
		chunks = append(chunks, &CompletionChunk{ToolCall: call})
	}
	return append(chunks, &CompletionChunk{Done: true})
}

// fakeTool is a registry entry with a pluggable execute function.
type fakeTool struct {
	name        string
	description string
	schema      json.RawMessage
	execute     func(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

func (t *fakeTool) Name() string            { return t.name }
func (t *fakeTool) Description() string     { return t.description }
func (t *fakeTool) Schema() json.RawMessage { return t.schema }

func (t *fakeTool) Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
	if t.execute != nil {
		return t.execute(ctx, params)
	}
	return &ToolResult{Content: `{"success":true}`}, nil
}

func openSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{},"additionalProperties":true}`)
}

func newTestRegistry(t *testing.T, tools ...Tool) *ToolRegistry {
	t.Helper()
	registry := NewToolRegistry()
	for _, tool := range tools {
		if err := registry.Register(tool); err != nil {
			t.Fatalf("Register(%s) failed: %v", tool.Name(), err)
		}
	}
	return registry
}

func TestLoopPlainTextAnswer(t *testing.T) {
	provider := &scriptedProvider{turns: [][]*CompletionChunk{
		{
			{Text: "I created "},
			{Text: "a circle."},
			{Done: true, InputTokens: 10, OutputTokens: 5},
		},
	}}
	loop := NewLoop(provider, newTestRegistry(t), "system", LoopConfig{}, nil, nil)

	result, err := loop.Run(context.Background(), []CompletionMessage{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.FinalText != "I created a circle." {
		t.Errorf("FinalText = %q", result.FinalText)
	}
	if result.Iterations != 1 {
		t.Errorf("Iterations = %d, want 1", result.Iterations)
	}
	if len(result.Steps) != 0 {
		t.Errorf("Steps = %d, want 0", len(result.Steps))
	}
	if result.InputTokens != 10 || result.OutputTokens != 5 {
		t.Errorf("tokens = %d/%d, want 10/5", result.InputTokens, result.OutputTokens)
	}
}

func TestLoopExecutesToolsInOrder(t *testing.T) {
	var executed []string
	tool := &fakeTool{
		name:   "record",
		schema: openSchema(),
		execute: func(_ context.Context, params json.RawMessage) (*ToolResult, error) {
			executed = append(executed, string(params))
			return &ToolResult{Content: `{"success":true}`}, nil
		},
	}
	provider := &scriptedProvider{turns: [][]*CompletionChunk{
		toolTurn(
			&models.ToolCall{ID: "c1", Name: "record", Input: json.RawMessage(`{"n":1}`)},
			&models.ToolCall{ID: "c2", Name: "record", Input: json.RawMessage(`{"n":2}`)},
		),
		textTurn("done"),
	}}
	loop := NewLoop(provider, newTestRegistry(t, tool), "system", LoopConfig{}, nil, nil)

	result, err := loop.Run(context.Background(), []CompletionMessage{{Role: "user", Content: "go"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.FinalText != "done" {
		t.Errorf("FinalText = %q", result.FinalText)
	}
	if len(result.Steps) != 2 {
		t.Fatalf("Steps = %d, want 2", len(result.Steps))
	}
	if executed[0] != `{"n":1}` || executed[1] != `{"n":2}` {
		t.Errorf("execution order = %v", executed)
	}

	// The second request must carry the assistant tool calls and their results.
	requests := provider.capturedRequests()
	if len(requests) != 2 {
		t.Fatalf("provider calls = %d, want 2", len(requests))
	}
	convo := requests[1].Messages
	last := convo[len(convo)-1]
	if last.Role != "tool" || len(last.ToolResults) != 2 {
		t.Errorf("last message role=%s results=%d", last.Role, len(last.ToolResults))
	}
	if last.ToolResults[0].ToolCallID != "c1" || last.ToolResults[1].ToolCallID != "c2" {
		t.Errorf("tool result ids = %+v", last.ToolResults)
	}
	assistant := convo[len(convo)-2]
	if assistant.Role != "assistant" || len(assistant.ToolCalls) != 2 {
		t.Errorf("assistant message role=%s calls=%d", assistant.Role, len(assistant.ToolCalls))
	}
}

func TestLoopIterationCap(t *testing.T) {
	tool := &fakeTool{name: "noop", schema: openSchema()}
	// The script never produces a plain text answer.
	provider := &scriptedProvider{turns: [][]*CompletionChunk{
		toolTurn(&models.ToolCall{ID: "c1", Name: "noop", Input: json.RawMessage(`{}`)}),
	}}
	loop := NewLoop(provider, newTestRegistry(t, tool), "system", LoopConfig{MaxIterations: 3}, nil, nil)

	result, err := loop.Run(context.Background(), []CompletionMessage{{Role: "user", Content: "go"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.FinalText != stoppedMessage {
		t.Errorf("FinalText = %q, want %q", result.FinalText, stoppedMessage)
	}
	if len(result.Steps) != 3 {
		t.Errorf("Steps = %d, want 3", len(result.Steps))
	}
}

func TestLoopToolFailureFedBack(t *testing.T) {
	tool := &fakeTool{
		name:   "flaky",
		schema: openSchema(),
		execute: func(context.Context, json.RawMessage) (*ToolResult, error) {
			return &ToolResult{Content: "shape not found: s1", IsError: true}, nil
		},
	}
	provider := &scriptedProvider{turns: [][]*CompletionChunk{
		toolTurn(&models.ToolCall{ID: "c1", Name: "flaky", Input: json.RawMessage(`{}`)}),
		textTurn("could not find that shape"),
	}}
	loop := NewLoop(provider, newTestRegistry(t, tool), "system", LoopConfig{}, nil, nil)

	result, err := loop.Run(context.Background(), []CompletionMessage{{Role: "user", Content: "go"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Steps) != 1 || !result.Steps[0].IsError {
		t.Fatalf("Steps = %+v, want one error step", result.Steps)
	}
	requests := provider.capturedRequests()
	last := requests[1].Messages[len(requests[1].Messages)-1]
	if len(last.ToolResults) != 1 || !last.ToolResults[0].IsError {
		t.Errorf("error result not fed back: %+v", last.ToolResults)
	}
}

func TestLoopTokensAccumulateAcrossIterations(t *testing.T) {
	tool := &fakeTool{name: "noop", schema: openSchema()}
	provider := &scriptedProvider{turns: [][]*CompletionChunk{
		{
			{ToolCall: &models.ToolCall{ID: "c1", Name: "noop", Input: json.RawMessage(`{}`)}},
			{Done: true, InputTokens: 100, OutputTokens: 20},
		},
		{
			{Text: "done"},
			{Done: true, InputTokens: 150, OutputTokens: 10},
		},
	}}
	loop := NewLoop(provider, newTestRegistry(t, tool), "system", LoopConfig{}, nil, nil)

	result, err := loop.Run(context.Background(), []CompletionMessage{{Role: "user", Content: "go"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.InputTokens != 250 || result.OutputTokens != 30 {
		t.Errorf("tokens = %d/%d, want 250/30", result.InputTokens, result.OutputTokens)
	}
}

func TestLoopStreamErrorAborts(t *testing.T) {
	provider := &scriptedProvider{turns: [][]*CompletionChunk{
		{
			{Text: "partial"},
			{Error: context.DeadlineExceeded, Done: true},
		},
	}}
	loop := NewLoop(provider, newTestRegistry(t), "system", LoopConfig{}, nil, nil)

	_, err := loop.Run(context.Background(), []CompletionMessage{{Role: "user", Content: "go"}})
	if err == nil {
		t.Fatal("expected error from broken stream")
	}
	if !strings.Contains(err.Error(), "llm stream") {
		t.Errorf("error = %v", err)
	}
}
