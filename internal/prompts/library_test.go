package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSystemPromptFallsBackToDefault(t *testing.T) {
	l := NewLibrary("", "")
	prompt, err := l.SystemPrompt()
	if err != nil {
		t.Fatalf("SystemPrompt: %v", err)
	}
	if !strings.Contains(prompt, "top-left corner") {
		t.Fatal("embedded default prompt missing positioning rule")
	}

	l = NewLibrary(filepath.Join(t.TempDir(), "missing.md"), "")
	prompt, err = l.SystemPrompt()
	if err != nil {
		t.Fatalf("SystemPrompt with missing file: %v", err)
	}
	if prompt == "" {
		t.Fatal("missing file did not fall back to default")
	}
}

func TestSystemPromptPrefersFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompt.md")
	if err := os.WriteFile(path, []byte("custom prompt"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	l := NewLibrary(path, "")
	prompt, err := l.SystemPrompt()
	if err != nil {
		t.Fatalf("SystemPrompt: %v", err)
	}
	if prompt != "custom prompt" {
		t.Fatalf("prompt = %q, want file contents", prompt)
	}
}

func TestToolOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tools.yaml")
	content := `
tools:
  create_shape:
    description: Draw a rectangle or circle.
  create_form:
    disabled: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	l := NewLibrary("", path)
	overrides, err := l.ToolOverrides()
	if err != nil {
		t.Fatalf("ToolOverrides: %v", err)
	}
	if overrides["create_shape"].Description != "Draw a rectangle or circle." {
		t.Fatalf("description override lost: %+v", overrides)
	}
	if !overrides["create_form"].Disabled {
		t.Fatal("disabled flag lost")
	}
}

func TestSnapshotDetectsChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompt.md")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	l := NewLibrary(path, "")
	before := l.Snapshot()

	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	after := l.Snapshot()

	changed, names := before.Changed(after)
	if !changed {
		t.Fatal("snapshot did not detect mtime change")
	}
	if len(names) != 1 || names[0] != "system_prompt" {
		t.Fatalf("changed sources = %v, want [system_prompt]", names)
	}

	if changed, _ := after.Changed(l.Snapshot()); changed {
		t.Fatal("unchanged file reported as changed")
	}
}
