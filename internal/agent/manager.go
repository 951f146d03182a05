package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/collabcanvas/canvasd/internal/observability"
	"github.com/collabcanvas/canvasd/internal/prompts"
)

// Recreation reasons, recorded on every agent construction and carried as a
// metric label.
const (
	ReasonStartup               = "startup"
	ReasonMissing               = "missing"
	ReasonFileChange            = "file_change"
	ReasonFileChangeHealthCheck = "file_change_health_check"
	ReasonHealthCheckMissing    = "health_check_missing"
	ReasonHealthCheckInvalid    = "health_check_invalid"
	ReasonHealthCheckError      = "health_check_error"
	ReasonAdminReload           = "admin_reload"
)

// Instance is one live agent: a provider binding, its tool registry, the
// reasoning loop, and the system prompt they were built from.
type Instance struct {
	Provider     LLMProvider
	Registry     *ToolRegistry
	Loop         *Loop
	SystemPrompt string
	CreatedAt    time.Time
}

// valid reports whether the instance is structurally usable.
func (i *Instance) valid() bool {
	return i != nil && i.Provider != nil && i.Registry != nil && i.Loop != nil && i.Registry.Len() > 0
}

// InstanceFactory builds a fresh agent instance from current sources.
type InstanceFactory func() (*Instance, error)

// ManagerStats is a point-in-time snapshot of lifecycle state.
type ManagerStats struct {
	Alive           bool      `json:"alive"`
	CreationCount   int       `json:"creation_count"`
	LastReason      string    `json:"last_reason"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
	LastHealthCheck time.Time `json:"last_health_check,omitempty"`
	ToolCount       int       `json:"tool_count"`
	Provider        string    `json:"provider,omitempty"`
}

// Manager owns the singleton agent instance. It recreates the instance when
// its behavioral sources change on disk, when a health probe finds it missing
// or invalid, or on explicit administrative request. The mutex guards only
// pointer swaps and bookkeeping; it is never held across an LLM call.
type Manager struct {
	mu              sync.Mutex
	instance        *Instance
	creationCount   int
	lastReason      string
	lastHealthCheck time.Time
	snapshot        prompts.SourceSnapshot

	factory InstanceFactory
	library *prompts.Library
	logger  *observability.Logger
	metrics *observability.Metrics
	nowFunc func() time.Time
}

// NewManager creates a lifecycle manager. logger and metrics may be nil;
// library may be nil when no on-disk sources are configured.
func NewManager(factory InstanceFactory, library *prompts.Library, logger *observability.Logger, metrics *observability.Metrics) *Manager {
	if logger != nil {
		logger = logger.WithFields("component", "agent_health")
	}
	return &Manager{
		factory: factory,
		library: library,
		logger:  logger,
		metrics: metrics,
		nowFunc: time.Now,
	}
}

// Initialize builds the first instance. A ConfigurationError from the factory
// is returned to the caller; the manager stays alive either way.
func (m *Manager) Initialize(ctx context.Context) error {
	return m.recreate(ctx, ReasonStartup)
}

// Get returns the live instance without any freshness checks.
func (m *Manager) Get() (*Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.instance == nil {
		return nil, ErrAgentMissing
	}
	return m.instance, nil
}

// EnsureFresh returns a live instance, first recreating it if a behavioral
// source changed on disk or no instance exists. Called before every command.
func (m *Manager) EnsureFresh(ctx context.Context) (*Instance, error) {
	m.mu.Lock()
	instance := m.instance
	snapshot := m.snapshot
	m.mu.Unlock()

	if instance == nil {
		if err := m.recreate(ctx, ReasonMissing); err != nil {
			return nil, err
		}
		return m.Get()
	}

	if m.library != nil {
		current := m.library.Snapshot()
		if changed, names := snapshot.Changed(current); changed {
			if m.logger != nil {
				m.logger.Info(ctx, "agent sources changed, recreating", "sources", fmt.Sprint(names))
			}
			if err := m.recreate(ctx, ReasonFileChange); err != nil {
				return nil, err
			}
		}
	}
	return m.Get()
}

// ForceRecreate discards the current instance and builds a new one.
func (m *Manager) ForceRecreate(ctx context.Context, reason string) error {
	if reason == "" {
		reason = ReasonAdminReload
	}
	return m.recreate(ctx, reason)
}

// CheckHealth probes the current instance and repairs it as needed. It never
// returns an error; failures are logged and retried at the next probe.
func (m *Manager) CheckHealth(ctx context.Context) {
	m.mu.Lock()
	m.lastHealthCheck = m.nowFunc()
	instance := m.instance
	snapshot := m.snapshot
	m.mu.Unlock()

	reason := ""
	switch {
	case instance == nil:
		reason = ReasonHealthCheckMissing
	case !instance.valid():
		reason = ReasonHealthCheckInvalid
	default:
		if m.library != nil {
			if changed, names := snapshot.Changed(m.library.Snapshot()); changed {
				if m.logger != nil {
					m.logger.Info(ctx, "agent sources changed at health probe", "sources", fmt.Sprint(names))
				}
				reason = ReasonFileChangeHealthCheck
			}
		}
	}

	if reason == "" {
		if m.logger != nil {
			m.logger.Debug(ctx, "agent healthy")
		}
		return
	}

	if err := m.recreate(ctx, reason); err != nil {
		if m.logger != nil {
			m.logger.Error(ctx, "agent recreation failed at health probe", "reason", reason, "error", err)
		}
		if m.metrics != nil {
			m.metrics.AgentRecreations.WithLabelValues(ReasonHealthCheckError).Inc()
		}
	}
}

// StartHealthProbe schedules CheckHealth on the given interval and returns a
// stop function.
func (m *Manager) StartHealthProbe(interval time.Duration) func() {
	c := cron.New()
	_, _ = c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		m.CheckHealth(context.Background())
	})
	c.Start()
	return func() { <-c.Stop().Done() }
}

// Stats returns a snapshot of lifecycle state.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := ManagerStats{
		Alive:           m.instance != nil,
		CreationCount:   m.creationCount,
		LastReason:      m.lastReason,
		LastHealthCheck: m.lastHealthCheck,
	}
	if m.instance != nil {
		stats.CreatedAt = m.instance.CreatedAt
		stats.ToolCount = m.instance.Registry.Len()
		stats.Provider = m.instance.Provider.Name()
	}
	return stats
}

// recreate builds a new instance and swaps it in. Construction happens
// outside the lock; on failure the previous instance (if any) is discarded
// so a broken configuration cannot keep serving.
func (m *Manager) recreate(ctx context.Context, reason string) error {
	var snapshot prompts.SourceSnapshot
	if m.library != nil {
		snapshot = m.library.Snapshot()
	}

	instance, err := m.factory()

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.instance = nil
		m.lastReason = reason
		return err
	}
	if instance.CreatedAt.IsZero() {
		instance.CreatedAt = m.nowFunc()
	}
	m.instance = instance
	m.snapshot = snapshot
	m.creationCount++
	m.lastReason = reason

	if m.metrics != nil {
		m.metrics.AgentRecreations.WithLabelValues(reason).Inc()
	}
	if m.logger != nil {
		m.logger.Info(ctx, "agent created",
			"reason", reason,
			"creation_count", m.creationCount,
			"tool_count", instance.Registry.Len(),
			"provider", instance.Provider.Name(),
		)
	}
	return nil
}
