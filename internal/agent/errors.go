package agent

import (
	"errors"
	"fmt"
)

// ErrAgentMissing indicates no live agent instance is available.
var ErrAgentMissing = errors.New("agent: no live instance")

// ConfigurationError indicates the agent cannot be constructed, typically a
// missing provider credential. It is fatal to initialization but never
// crashes a running process.
type ConfigurationError struct {
	Provider string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("agent configuration: %s provider %s", e.Provider, e.Reason)
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(provider, reason string) *ConfigurationError {
	return &ConfigurationError{Provider: provider, Reason: reason}
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// TimeoutError indicates a command exceeded its wall-clock budget. The
// message format is part of the API surface.
type TimeoutError struct {
	Seconds int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Timeout after %d seconds", e.Seconds)
}

// IsTimeoutError reports whether err is a TimeoutError.
func IsTimeoutError(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// ToolValidationError indicates tool parameters failed structural validation
// before execution. Index is set for batch payloads, -1 otherwise.
type ToolValidationError struct {
	Tool   string
	Index  int
	Reason string
}

func (e *ToolValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: element at index %d invalid: %s", e.Tool, e.Index, e.Reason)
	}
	return fmt.Sprintf("%s: invalid parameters: %s", e.Tool, e.Reason)
}

// NewToolValidationError creates a validation error for a whole payload.
func NewToolValidationError(tool, reason string) *ToolValidationError {
	return &ToolValidationError{Tool: tool, Index: -1, Reason: reason}
}

// NewBatchValidationError creates a validation error for one batch element.
func NewBatchValidationError(tool string, index int, reason string) *ToolValidationError {
	return &ToolValidationError{Tool: tool, Index: index, Reason: reason}
}
