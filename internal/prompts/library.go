// Package prompts owns the agent's behavioral sources: the system prompt and
// the tool description overlay. Both live on disk so operators can tune agent
// behavior without a rebuild; embedded defaults cover missing files. Source
// modification times are exposed so the lifecycle manager can detect changes.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_prompt.md
var defaultSystemPrompt string

// ToolOverride adjusts one registered tool from the overlay file.
type ToolOverride struct {
	// Description replaces the tool's built-in description when non-empty.
	Description string `yaml:"description"`
	// Disabled removes the tool from the registry.
	Disabled bool `yaml:"disabled"`
}

type overlayFile struct {
	Tools map[string]ToolOverride `yaml:"tools"`
}

// SourceSnapshot records the observed state of the on-disk sources. The zero
// time means the file was absent.
type SourceSnapshot struct {
	PromptModTime int64
	ToolsModTime  int64
}

// Changed reports whether other differs, naming the changed sources.
func (s SourceSnapshot) Changed(other SourceSnapshot) (bool, []string) {
	var names []string
	if s.PromptModTime != other.PromptModTime {
		names = append(names, "system_prompt")
	}
	if s.ToolsModTime != other.ToolsModTime {
		names = append(names, "tools_config")
	}
	return len(names) > 0, names
}

// Library resolves prompt sources from configured paths. Either path may be
// empty or point at a missing file; defaults apply in both cases.
type Library struct {
	promptPath string
	toolsPath  string
}

// NewLibrary creates a prompt library over the given source paths.
func NewLibrary(promptPath, toolsPath string) *Library {
	return &Library{promptPath: promptPath, toolsPath: toolsPath}
}

// SystemPrompt returns the system prompt text: the configured file when it
// exists, the embedded default otherwise.
func (l *Library) SystemPrompt() (string, error) {
	if l.promptPath == "" {
		return defaultSystemPrompt, nil
	}
	data, err := os.ReadFile(l.promptPath)
	if os.IsNotExist(err) {
		return defaultSystemPrompt, nil
	}
	if err != nil {
		return "", fmt.Errorf("read system prompt: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return defaultSystemPrompt, nil
	}
	return string(data), nil
}

// ToolOverrides returns the tool overlay, or an empty map when no overlay
// file is configured or present.
func (l *Library) ToolOverrides() (map[string]ToolOverride, error) {
	if l.toolsPath == "" {
		return map[string]ToolOverride{}, nil
	}
	data, err := os.ReadFile(l.toolsPath)
	if os.IsNotExist(err) {
		return map[string]ToolOverride{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tools config: %w", err)
	}
	var overlay overlayFile
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse tools config: %w", err)
	}
	if overlay.Tools == nil {
		overlay.Tools = map[string]ToolOverride{}
	}
	return overlay.Tools, nil
}

// Snapshot captures the current modification times of both sources.
func (l *Library) Snapshot() SourceSnapshot {
	return SourceSnapshot{
		PromptModTime: modTime(l.promptPath),
		ToolsModTime:  modTime(l.toolsPath),
	}
}

func modTime(path string) int64 {
	if path == "" {
		return 0
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.ModTime().UnixNano()
}
