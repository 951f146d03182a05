package tools

import (
	"fmt"
	"math/rand"

	"github.com/collabcanvas/canvasd/internal/agent"
	"github.com/collabcanvas/canvasd/internal/observability"
	"github.com/collabcanvas/canvasd/internal/prompts"
	"github.com/collabcanvas/canvasd/internal/store"
)

// All returns the full canvas tool set backed by the given store. rng seeds
// the bulk-random tools and may be nil.
func All(st store.Store, logger *observability.Logger, rng *rand.Rand) []agent.Tool {
	return []agent.Tool{
		NewGetCanvasShapes(st, logger),

		NewCreateShape(st, logger),
		NewCreateText(st, logger),
		NewCreateRandomShapes(st, logger, rng),
		NewCreateGrid(st, logger),
		NewCreateForm(st, logger),

		NewMoveShape(st, logger),
		NewResizeShape(st, logger),
		NewRotateShape(st, logger),
		NewChangeShapeColor(st, logger),
		NewDeleteShape(st, logger),

		NewCreateShapesBatch(st, logger),
		NewUpdateShapesBatch(st, logger),
		NewDeleteShapesBatch(st, logger),

		NewMoveRandomShapes(st, logger, rng),
		NewArrangeHorizontal(st, logger),
		NewArrangeVertical(st, logger),
	}
}

// Register adds every tool to the registry, applying overrides from the tools
// config file: disabled tools are skipped, description overrides are wrapped
// around the original tool.
func Register(registry *agent.ToolRegistry, toolset []agent.Tool, overrides map[string]prompts.ToolOverride) error {
	for _, tool := range toolset {
		override, ok := overrides[tool.Name()]
		if ok && override.Disabled {
			continue
		}
		if ok && override.Description != "" {
			tool = &describedTool{Tool: tool, description: override.Description}
		}
		if err := registry.Register(tool); err != nil {
			return fmt.Errorf("register tool %s: %w", tool.Name(), err)
		}
	}
	return nil
}

// describedTool overrides only the description of a wrapped tool.
type describedTool struct {
	agent.Tool
	description string
}

func (t *describedTool) Description() string { return t.description }
