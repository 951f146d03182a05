package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/collabcanvas/canvasd/internal/agent"
	"github.com/collabcanvas/canvasd/internal/sessions"
)

// echoProvider answers every completion with fixed text.
type echoProvider struct {
	text string
}

func (p *echoProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	chunks := make(chan *agent.CompletionChunk, 2)
	chunks <- &agent.CompletionChunk{Text: p.text}
	chunks <- &agent.CompletionChunk{Done: true}
	close(chunks)
	return chunks, nil
}

func (p *echoProvider) Name() string        { return "echo" }
func (p *echoProvider) SupportsTools() bool { return true }

type noopTool struct{}

func (noopTool) Name() string        { return "noop" }
func (noopTool) Description() string { return "does nothing" }
func (noopTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}

func (noopTool) Execute(context.Context, json.RawMessage) (*agent.ToolResult, error) {
	return &agent.ToolResult{Content: `{"success":true}`}, nil
}

func newTestServer(t *testing.T, opts func(*Options)) (*Server, *sessions.Store) {
	t.Helper()
	manager := agent.NewManager(func() (*agent.Instance, error) {
		provider := &echoProvider{text: "done"}
		registry := agent.NewToolRegistry()
		if err := registry.Register(noopTool{}); err != nil {
			t.Fatalf("register: %v", err)
		}
		return &agent.Instance{
			Provider: provider,
			Registry: registry,
			Loop:     agent.NewLoop(provider, registry, "system", agent.LoopConfig{}, nil, nil),
		}, nil
	}, nil, nil, nil)
	sessionStore := sessions.NewStore()
	executor := agent.NewCommandExecutor(manager, sessionStore, 0, nil, nil)

	options := Options{
		Config:   Config{CORSOrigins: []string{"http://localhost:3000"}},
		Executor: executor,
		Manager:  manager,
		Sessions: sessionStore,
	}
	if opts != nil {
		opts(&options)
	}
	return NewServer(options), sessionStore
}

func TestCommandEndpoint(t *testing.T) {
	server, _ := newTestServer(t, nil)
	handler := server.Handler()

	body := strings.NewReader(`{"command": "create a circle", "canvas_id": "c1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/ai/command", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Success || result.Message != "done" {
		t.Errorf("result = %+v", result)
	}
}

func TestCommandEndpointEmptyCommand(t *testing.T) {
	server, _ := newTestServer(t, nil)
	handler := server.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/ai/command", strings.NewReader(`{"command": "  "}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	var result struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Message != "Failed to execute command" {
		t.Errorf("message = %q", result.Message)
	}
}

func TestCommandEndpointBadJSON(t *testing.T) {
	server, _ := newTestServer(t, nil)
	handler := server.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/ai/command", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCommandEndpointUnconfigured(t *testing.T) {
	server, _ := newTestServer(t, func(o *Options) {
		o.Configured = func() bool { return false }
	})
	handler := server.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/ai/command", strings.NewReader(`{"command": "draw"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestReloadEndpoint(t *testing.T) {
	server, _ := newTestServer(t, nil)
	handler := server.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/ai/reload", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var result struct {
		Success bool `json:"success"`
		Agent   struct {
			CreationCount int    `json:"creation_count"`
			LastReason    string `json:"last_reason"`
		} `json:"agent"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Success || result.Agent.CreationCount != 1 {
		t.Errorf("result = %+v", result)
	}
	if result.Agent.LastReason != "admin_reload" {
		t.Errorf("LastReason = %q", result.Agent.LastReason)
	}
}

func TestStatsEndpoint(t *testing.T) {
	server, sessionStore := newTestServer(t, nil)
	sessionStore.GetOrCreate("s1")
	handler := server.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/ai/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var result struct {
		ActiveSessions int `json:"active_sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.ActiveSessions != 1 {
		t.Errorf("active_sessions = %d, want 1", result.ActiveSessions)
	}
}

func TestSessionDeleteEndpoint(t *testing.T) {
	server, sessionStore := newTestServer(t, nil)
	sessionStore.GetOrCreate("s1")
	handler := server.Handler()

	req := httptest.NewRequest(http.MethodDelete, "/api/ai/sessions/s1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/ai/sessions/s1", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for missing session", rec.Code)
	}
}

func TestHealthzEndpoint(t *testing.T) {
	server, _ := newTestServer(t, nil)
	handler := server.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var result struct {
		Status             string `json:"status"`
		ProviderConfigured bool   `json:"provider_configured"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Status != "ok" || !result.ProviderConfigured {
		t.Errorf("result = %+v", result)
	}
}

func TestRootEndpoint(t *testing.T) {
	server, _ := newTestServer(t, nil)
	handler := server.Handler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "canvasd") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	server, _ := newTestServer(t, nil)
	handler := server.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/ai/command", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow-origin = %q", got)
	}

	// Unlisted origins get no allow header.
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow-origin = %q, want empty", got)
	}
}
