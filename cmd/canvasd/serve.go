package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/collabcanvas/canvasd/internal/agent"
	"github.com/collabcanvas/canvasd/internal/agent/providers"
	"github.com/collabcanvas/canvasd/internal/config"
	"github.com/collabcanvas/canvasd/internal/gateway"
	"github.com/collabcanvas/canvasd/internal/observability"
	"github.com/collabcanvas/canvasd/internal/prompts"
	"github.com/collabcanvas/canvasd/internal/sessions"
	"github.com/collabcanvas/canvasd/internal/store"
	"github.com/collabcanvas/canvasd/internal/tools"
)

func newServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the canvas agent HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	return cmd
}

func runServe(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shapeStore, err := openStore(cfg, metrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := shapeStore.Close(); err != nil {
			logger.Warn(ctx, "store close failed", "error", err)
		}
	}()

	library := prompts.NewLibrary(cfg.Agent.PromptPath, cfg.Agent.ToolsConfigPath)
	factory := buildAgentFactory(cfg, library, shapeStore, logger, metrics)

	manager := agent.NewManager(factory, library, logger, metrics)
	if err := manager.Initialize(ctx); err != nil {
		// A missing API key is reported but does not stop the server; the
		// health and stats endpoints stay useful and the health probe retries.
		logger.Error(ctx, "agent initialization failed", "error", err)
	}
	stopProbe := manager.StartHealthProbe(cfg.Agent.HealthInterval)
	defer stopProbe()

	sessionStore := sessions.NewStore(
		sessions.WithWindowSize(cfg.Session.WindowSize),
		sessions.WithIdleTimeout(cfg.Session.IdleTimeout),
		sessions.WithCountObserver(func(count int) {
			metrics.ActiveSessions.Set(float64(count))
		}),
	)

	executor := agent.NewCommandExecutor(manager, sessionStore, cfg.Agent.CommandTimeout, logger, metrics)

	server := gateway.NewServer(gateway.Options{
		Config: gateway.Config{
			Host:        cfg.Server.Host,
			Port:        cfg.Server.Port,
			CORSOrigins: cfg.Server.CORSOrigins,
		},
		Executor:   executor,
		Manager:    manager,
		Sessions:   sessionStore,
		Configured: func() bool { return cfg.LLM.APIKey != "" },
		Logger:     logger,
		Metrics:    metrics,
	})

	logger.Info(ctx, "canvasd starting",
		"version", version,
		"provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"store", cfg.Store.Driver,
	)
	return server.Start(ctx)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		applyEnvCredentials(cfg)
		return cfg, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyEnvCredentials(cfg)
	return cfg, nil
}

// applyEnvCredentials fills the API key from the conventional environment
// variable when the config file leaves it empty.
func applyEnvCredentials(cfg *config.Config) {
	if cfg.LLM.APIKey != "" {
		return
	}
	switch cfg.LLM.Provider {
	case "anthropic":
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	default:
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

func openStore(cfg *config.Config, metrics *observability.Metrics) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "memory":
		st = store.NewMemoryStore()
	case "sqlite":
		st, err = store.NewSQLiteStore(cfg.Store.Path)
	case "postgres":
		st, err = store.NewPostgresStore(cfg.Store.DSN, nil)
	default:
		err = fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store.NewInstrumentedStore(st, metrics), nil
}

// buildAgentFactory returns the instance factory the lifecycle manager calls
// on startup, source changes, health repairs, and admin reloads. Each call
// re-reads the prompt sources so edits take effect without a restart.
func buildAgentFactory(cfg *config.Config, library *prompts.Library, st store.Store, logger *observability.Logger, metrics *observability.Metrics) agent.InstanceFactory {
	return func() (*agent.Instance, error) {
		provider, err := buildProvider(cfg)
		if err != nil {
			return nil, err
		}

		systemPrompt, err := library.SystemPrompt()
		if err != nil {
			return nil, err
		}
		overrides, err := library.ToolOverrides()
		if err != nil {
			return nil, err
		}

		registry := agent.NewToolRegistry()
		if err := tools.Register(registry, tools.All(st, logger, nil), overrides); err != nil {
			return nil, err
		}

		loop := agent.NewLoop(provider, registry, systemPrompt, agent.LoopConfig{
			MaxIterations: cfg.Agent.MaxIterations,
			MaxWallTime:   cfg.Agent.MaxWallTime,
			MaxTokens:     cfg.LLM.MaxTokens,
			Temperature:   cfg.LLM.Temperature,
			Model:         cfg.LLM.Model,
		}, logger, metrics)

		return &agent.Instance{
			Provider:     provider,
			Registry:     registry,
			Loop:         loop,
			SystemPrompt: systemPrompt,
		}, nil
	}
}

func buildProvider(cfg *config.Config) (agent.LLMProvider, error) {
	switch cfg.LLM.Provider {
	case "anthropic":
		provider, err := providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey:       cfg.LLM.APIKey,
			BaseURL:      cfg.LLM.BaseURL,
			DefaultModel: cfg.LLM.Model,
		})
		if err != nil {
			return nil, agent.NewConfigurationError("anthropic", err.Error())
		}
		return provider, nil
	default:
		provider := providers.NewOpenAIProvider(cfg.LLM.APIKey, cfg.LLM.BaseURL)
		if !provider.Configured() {
			return nil, agent.NewConfigurationError("openai", "API key not configured")
		}
		return provider, nil
	}
}
