package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting application metrics.
//
// Built on Prometheus, it tracks:
//   - Canvas command throughput and latency
//   - LLM request performance and token usage
//   - Tool execution patterns and latencies
//   - Agent lifecycle events (recreations by reason)
//   - Active session counts for capacity planning
type Metrics struct {
	// CommandCounter counts canvas commands by outcome.
	// Labels: status (success|error|timeout)
	CommandCounter *prometheus.CounterVec

	// CommandDuration measures end-to-end command latency in seconds.
	// Buckets: 0.1s .. 30s
	CommandDuration prometheus.Histogram

	// LLMRequestDuration measures LLM API call latency in seconds.
	// Labels: provider (openai|anthropic), model
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts LLM requests by provider, model, and status.
	LLMRequestCounter *prometheus.CounterVec

	// LLMTokensUsed tracks token consumption.
	// Labels: provider, model, type (prompt|completion)
	LLMTokensUsed *prometheus.CounterVec

	// ToolExecutionCounter counts tool invocations.
	// Labels: tool_name, status (success|error)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool_name
	ToolExecutionDuration *prometheus.HistogramVec

	// AgentRecreations counts agent instance recreations.
	// Labels: reason
	AgentRecreations *prometheus.CounterVec

	// ActiveSessions gauges current live conversation memories.
	ActiveSessions prometheus.Gauge

	// ShapesWritten counts shapes written to the store.
	// Labels: operation (create|update|delete)
	ShapesWritten *prometheus.CounterVec

	// HTTPRequestDuration measures HTTP API request latency.
	// Labels: method, path, status_code
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestCounter counts HTTP requests.
	// Labels: method, path, status_code
	HTTPRequestCounter *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics against the default
// registry. Call once at startup; the /metrics endpoint serves the registry.
func NewMetrics() *Metrics {
	return &Metrics{
		CommandCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvasd_commands_total",
				Help: "Total number of canvas commands by status",
			},
			[]string{"status"},
		),

		CommandDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "canvasd_command_duration_seconds",
				Help:    "End-to-end canvas command latency in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
			},
		),

		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "canvasd_llm_request_duration_seconds",
				Help:    "Duration of LLM API requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),

		LLMRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvasd_llm_requests_total",
				Help: "Total number of LLM requests by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),

		LLMTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvasd_llm_tokens_total",
				Help: "Total number of tokens used by provider, model, and type",
			},
			[]string{"provider", "model", "type"},
		),

		ToolExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvasd_tool_executions_total",
				Help: "Total number of tool executions by tool and status",
			},
			[]string{"tool_name", "status"},
		),

		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "canvasd_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"tool_name"},
		),

		AgentRecreations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvasd_agent_recreations_total",
				Help: "Total number of agent instance recreations by reason",
			},
			[]string{"reason"},
		),

		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "canvasd_active_sessions",
				Help: "Number of live conversation session memories",
			},
		),

		ShapesWritten: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvasd_shapes_written_total",
				Help: "Total number of shape store writes by operation",
			},
			[]string{"operation"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "canvasd_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"method", "path", "status_code"},
		),

		HTTPRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "canvasd_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
	}
}
