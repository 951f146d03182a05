package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/collabcanvas/canvasd/internal/observability"
	"github.com/collabcanvas/canvasd/pkg/models"
)

// stoppedMessage is returned as the final text when the loop hits its
// internal iteration or time cap.
const stoppedMessage = "Agent stopped due to iteration or time limit."

// LoopConfig bounds one reasoning run.
type LoopConfig struct {
	// MaxIterations caps provider round-trips. Default: 30.
	MaxIterations int

	// MaxWallTime caps total run time. Default: 90s. The command executor
	// applies its own, shorter deadline on top via context.
	MaxWallTime time.Duration

	// MaxTokens per completion. 0 uses the provider default.
	MaxTokens int

	// Temperature for sampling. 0 uses the provider default.
	Temperature float64

	// Model overrides the provider default model.
	Model string
}

// DefaultLoopConfig returns the default loop bounds.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		MaxIterations: 30,
		MaxWallTime:   90 * time.Second,
	}
}

// Step records one executed tool call, in invocation order.
type Step struct {
	ToolName string
	Input    json.RawMessage
	Output   string
	IsError  bool
}

// RunResult is the aggregate outcome of one reasoning run.
type RunResult struct {
	// FinalText is the model's last text response.
	FinalText string

	// Steps lists every tool execution in the order the model chose.
	Steps []Step

	Iterations   int
	InputTokens  int
	OutputTokens int
}

// Loop drives the tool-calling conversation with the provider: complete,
// execute requested tools, feed results back, repeat until the model answers
// in plain text or a bound is hit.
type Loop struct {
	provider LLMProvider
	registry *ToolRegistry
	system   string
	config   LoopConfig
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewLoop creates a reasoning loop. logger and metrics may be nil.
func NewLoop(provider LLMProvider, registry *ToolRegistry, system string, config LoopConfig, logger *observability.Logger, metrics *observability.Metrics) *Loop {
	if config.MaxIterations <= 0 {
		config.MaxIterations = DefaultLoopConfig().MaxIterations
	}
	if config.MaxWallTime <= 0 {
		config.MaxWallTime = DefaultLoopConfig().MaxWallTime
	}
	return &Loop{
		provider: provider,
		registry: registry,
		system:   system,
		config:   config,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run executes the loop over the given conversation. Tool failures are fed
// back to the model as error results; only provider and context failures
// return an error.
func (l *Loop) Run(ctx context.Context, messages []CompletionMessage) (*RunResult, error) {
	deadline := time.Now().Add(l.config.MaxWallTime)
	result := &RunResult{}

	convo := make([]CompletionMessage, len(messages))
	copy(convo, messages)

	for iteration := 0; ; iteration++ {
		if iteration >= l.config.MaxIterations || time.Now().After(deadline) {
			result.FinalText = stoppedMessage
			result.Iterations = iteration
			return result, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Iterations = iteration + 1

		text, toolCalls, usageIn, usageOut, err := l.complete(ctx, convo)
		if err != nil {
			return nil, err
		}
		result.InputTokens += usageIn
		result.OutputTokens += usageOut

		if len(toolCalls) == 0 {
			result.FinalText = text
			return result, nil
		}

		toolResults := make([]models.ToolResult, 0, len(toolCalls))
		for _, call := range toolCalls {
			output, isError := l.executeTool(ctx, call)
			result.Steps = append(result.Steps, Step{
				ToolName: call.Name,
				Input:    call.Input,
				Output:   output,
				IsError:  isError,
			})
			toolResults = append(toolResults, models.ToolResult{
				ToolCallID: call.ID,
				Content:    output,
				IsError:    isError,
			})
		}

		convo = append(convo, CompletionMessage{
			Role:      "assistant",
			Content:   text,
			ToolCalls: toolCalls,
		})
		convo = append(convo, CompletionMessage{
			Role:        "tool",
			ToolResults: toolResults,
		})
	}
}

// complete performs one provider round-trip, draining the stream into
// accumulated text and tool calls.
func (l *Loop) complete(ctx context.Context, convo []CompletionMessage) (string, []models.ToolCall, int, int, error) {
	req := &CompletionRequest{
		Model:       l.config.Model,
		System:      l.system,
		Messages:    convo,
		Tools:       l.registry.AsLLMTools(),
		MaxTokens:   l.config.MaxTokens,
		Temperature: l.config.Temperature,
	}

	start := time.Now()
	chunks, err := l.provider.Complete(ctx, req)
	if err != nil {
		l.observeLLM(req.Model, "error", start, 0, 0)
		return "", nil, 0, 0, fmt.Errorf("llm request: %w", err)
	}

	var text string
	var toolCalls []models.ToolCall
	var inputTokens, outputTokens int
	for chunk := range chunks {
		switch {
		case chunk.Error != nil:
			l.observeLLM(req.Model, "error", start, 0, 0)
			return "", nil, 0, 0, fmt.Errorf("llm stream: %w", chunk.Error)
		case chunk.ToolCall != nil:
			toolCalls = append(toolCalls, *chunk.ToolCall)
		case chunk.Text != "":
			text += chunk.Text
		}
		if chunk.Done {
			inputTokens = chunk.InputTokens
			outputTokens = chunk.OutputTokens
		}
	}
	if err := ctx.Err(); err != nil {
		return "", nil, 0, 0, err
	}

	l.observeLLM(req.Model, "success", start, inputTokens, outputTokens)
	return text, toolCalls, inputTokens, outputTokens, nil
}

func (l *Loop) executeTool(ctx context.Context, call models.ToolCall) (string, bool) {
	start := time.Now()
	res, err := l.registry.Execute(ctx, call.Name, call.Input)

	status := "success"
	var output string
	var isError bool
	switch {
	case err != nil:
		output = err.Error()
		isError = true
		status = "error"
	case res != nil:
		output = res.Content
		isError = res.IsError
		if isError {
			status = "error"
		}
	}

	if l.metrics != nil {
		l.metrics.ToolExecutionCounter.WithLabelValues(call.Name, status).Inc()
		l.metrics.ToolExecutionDuration.WithLabelValues(call.Name).Observe(time.Since(start).Seconds())
	}
	if l.logger != nil && isError {
		l.logger.Warn(ctx, "tool execution failed", "tool", call.Name, "output", output)
	}
	return output, isError
}

func (l *Loop) observeLLM(model, status string, start time.Time, inputTokens, outputTokens int) {
	if l.metrics == nil {
		return
	}
	provider := l.provider.Name()
	l.metrics.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	l.metrics.LLMRequestDuration.WithLabelValues(provider, model).Observe(time.Since(start).Seconds())
	if inputTokens > 0 {
		l.metrics.LLMTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		l.metrics.LLMTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(outputTokens))
	}
}
