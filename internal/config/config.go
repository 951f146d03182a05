// Package config loads the canvasd YAML configuration with environment
// variable expansion and strict field checking.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration for the daemon.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Store   StoreConfig   `yaml:"store"`
	Agent   AgentConfig   `yaml:"agent"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// LLMConfig selects and configures the model provider.
type LLMConfig struct {
	// Provider is "openai" or "anthropic".
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`

	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// StoreConfig selects the shape persistence backend.
type StoreConfig struct {
	// Driver is "memory", "sqlite", or "postgres".
	Driver string `yaml:"driver"`
	// Path is the sqlite database file.
	Path string `yaml:"path"`
	// DSN is the postgres connection string.
	DSN string `yaml:"dsn"`
}

// AgentConfig configures the agent lifecycle and execution budgets.
type AgentConfig struct {
	// PromptPath points at the system prompt source file. Optional; an
	// embedded default is used when the file is absent.
	PromptPath string `yaml:"prompt_path"`
	// ToolsConfigPath points at the tool description overlay. Optional.
	ToolsConfigPath string `yaml:"tools_config_path"`

	// HealthInterval is the periodic health probe schedule.
	HealthInterval time.Duration `yaml:"health_interval"`
	// CommandTimeout is the hard wall-clock budget for one command.
	CommandTimeout time.Duration `yaml:"command_timeout"`
	// MaxIterations caps reasoning iterations inside one command.
	MaxIterations int `yaml:"max_iterations"`
	// MaxWallTime is the loop's internal time budget.
	MaxWallTime time.Duration `yaml:"max_wall_time"`
}

// SessionConfig configures conversational memory.
type SessionConfig struct {
	// WindowSize is the number of retained (command, response) turns.
	WindowSize int `yaml:"window_size"`
	// IdleTimeout evicts sessions untouched for this long.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads, expands, and validates the configuration file at path.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, err
	}
	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with all defaults applied and no provider
// credentials. Useful for tests and for running without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = defaultCORSOrigins()
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		switch c.LLM.Provider {
		case "anthropic":
			c.LLM.Model = "claude-sonnet-4-20250514"
		default:
			c.LLM.Model = "gpt-4o-mini"
		}
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 4096
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.Path == "" {
		c.Store.Path = "canvasd.db"
	}
	if c.Agent.HealthInterval == 0 {
		c.Agent.HealthInterval = 10 * time.Minute
	}
	if c.Agent.CommandTimeout == 0 {
		c.Agent.CommandTimeout = 20 * time.Second
	}
	if c.Agent.MaxIterations == 0 {
		c.Agent.MaxIterations = 30
	}
	if c.Agent.MaxWallTime == 0 {
		c.Agent.MaxWallTime = 90 * time.Second
	}
	if c.Session.WindowSize == 0 {
		c.Session.WindowSize = 6
	}
	if c.Session.IdleTimeout == 0 {
		c.Session.IdleTimeout = 30 * time.Minute
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate checks for unusable settings. A missing API key is not an error
// here; the lifecycle manager reports it when agent creation is attempted.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	switch c.Store.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && strings.TrimSpace(c.Store.DSN) == "" {
		return fmt.Errorf("store driver postgres requires dsn")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	return nil
}

// defaultCORSOrigins covers local frontend dev servers.
func defaultCORSOrigins() []string {
	origins := []string{
		"http://localhost:3000",
		"http://localhost:8080",
	}
	for port := 5170; port < 5190; port++ {
		origins = append(origins, fmt.Sprintf("http://localhost:%d", port))
	}
	return origins
}
