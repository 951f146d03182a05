package agent

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/collabcanvas/canvasd/internal/observability"
	"github.com/collabcanvas/canvasd/internal/sessions"
	"github.com/collabcanvas/canvasd/pkg/models"
)

// DefaultCommandTimeout is the hard wall-clock budget for one command.
const DefaultCommandTimeout = 20 * time.Second

// DefaultCreatedBy tags shapes when the request carries no user.
const DefaultCreatedBy = "ai-agent"

// CommandExecutor turns a natural-language command into a CommandResult.
// It is the never-raise boundary of the service: every failure mode comes
// back as a structured result, never as an error or panic.
type CommandExecutor struct {
	manager  *Manager
	sessions *sessions.Store
	timeout  time.Duration
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewCommandExecutor creates an executor. A non-positive timeout selects
// DefaultCommandTimeout.
func NewCommandExecutor(manager *Manager, sessionStore *sessions.Store, timeout time.Duration, logger *observability.Logger, metrics *observability.Metrics) *CommandExecutor {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &CommandExecutor{
		manager:  manager,
		sessions: sessionStore,
		timeout:  timeout,
		logger:   logger,
		metrics:  metrics,
	}
}

// Execute runs one command end to end: hot-reload check, memory fetch,
// viewport prefixing, the reasoning loop under the wall-clock budget, output
// normalization, and shape tagging.
func (e *CommandExecutor) Execute(ctx context.Context, req *models.CommandRequest) *models.CommandResult {
	start := time.Now()
	result := e.execute(ctx, req)

	if e.metrics != nil {
		status := "success"
		if !result.Success {
			status = "error"
			if strings.HasPrefix(result.Error, "Timeout after") {
				status = "timeout"
			}
		}
		e.metrics.CommandCounter.WithLabelValues(status).Inc()
		e.metrics.CommandDuration.Observe(time.Since(start).Seconds())
	}
	return result
}

func (e *CommandExecutor) execute(ctx context.Context, req *models.CommandRequest) (result *models.CommandResult) {
	defer func() {
		if r := recover(); r != nil {
			if e.logger != nil {
				e.logger.Error(ctx, "panic during command execution",
					"panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			}
			result = failure(fmt.Sprintf("internal error: %v", r))
		}
	}()

	if strings.TrimSpace(req.Command) == "" {
		return failure("command must not be empty")
	}

	instance, err := e.manager.EnsureFresh(ctx)
	if err != nil {
		if e.logger != nil {
			e.logger.Error(ctx, "agent unavailable", "error", err)
		}
		return failure(err.Error())
	}

	sessionID := resolveSessionID(req)
	memory := e.sessions.GetOrCreate(sessionID)

	messages := buildMessages(memory.History(), req)

	run, err := e.runWithTimeout(ctx, instance, messages)
	if err != nil {
		return failure(err.Error())
	}

	shapes, directives := Normalize(run.Steps, run.FinalText)
	tagShapes(shapes, req, sessionID)

	memory.AddTurn(req.Command, run.FinalText)

	message := strings.TrimSpace(run.FinalText)
	if message == "" {
		message = fmt.Sprintf("Done. %d shape(s) affected.", len(shapes))
	}
	return &models.CommandResult{
		Success:    true,
		Message:    message,
		Shapes:     shapes,
		Directives: directives,
	}
}

// runWithTimeout runs the loop under the hard wall-clock budget. On timeout
// the run is abandoned, not cancelled: an in-flight store write may still
// land, but its output is discarded.
func (e *CommandExecutor) runWithTimeout(ctx context.Context, instance *Instance, messages []CompletionMessage) (*RunResult, error) {
	type outcome struct {
		run *RunResult
		err error
	}
	resultCh := make(chan outcome, 1)

	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- outcome{err: fmt.Errorf("internal error: %v", r)}
			}
		}()
		run, err := instance.Loop.Run(runCtx, messages)
		resultCh <- outcome{run: run, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, res.err
		}
		return res.run, nil
	case <-time.After(e.timeout):
		if e.logger != nil {
			e.logger.Warn(ctx, "command timed out", "timeout", e.timeout.String())
		}
		return nil, &TimeoutError{Seconds: int(e.timeout.Seconds())}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// buildMessages converts retained turns into conversation history and
// appends the current command, prefixed with the viewport when present.
func buildMessages(history []sessions.Turn, req *models.CommandRequest) []CompletionMessage {
	messages := make([]CompletionMessage, 0, len(history)*2+1)
	for _, turn := range history {
		messages = append(messages,
			CompletionMessage{Role: "user", Content: turn.Command},
			CompletionMessage{Role: "assistant", Content: turn.Response},
		)
	}
	messages = append(messages, CompletionMessage{Role: "user", Content: prefixViewport(req)})
	return messages
}

func prefixViewport(req *models.CommandRequest) string {
	if !req.Viewport.Valid() {
		return req.Command
	}
	v := req.Viewport
	return fmt.Sprintf(
		"The user's visible canvas area is from (%g, %g) to (%g, %g). Create shapes within this visible area when possible.\n\nUser command: %s",
		v.XMin, v.YMin, v.XMax, v.YMax, req.Command,
	)
}

// tagShapes stamps provenance on every normalized shape, backfilling ids.
func tagShapes(shapes []*models.Shape, req *models.CommandRequest, sessionID string) {
	createdBy := req.UserID
	if createdBy == "" {
		createdBy = DefaultCreatedBy
	}
	for _, shape := range shapes {
		if shape.ID == "" {
			shape.ID = uuid.NewString()
		}
		shape.IsAIGenerated = true
		shape.CanvasID = req.CanvasID
		shape.CreatedBy = createdBy
		shape.SessionID = sessionID
	}
}

func resolveSessionID(req *models.CommandRequest) string {
	if req.SessionID != "" {
		return req.SessionID
	}
	if req.CanvasID != "" {
		return req.CanvasID
	}
	return "default"
}

func failure(message string) *models.CommandResult {
	return &models.CommandResult{
		Success: false,
		Message: "Failed to execute command",
		Shapes:  []*models.Shape{},
		Error:   message,
	}
}
