package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/collabcanvas/canvasd/internal/agent"
	"github.com/collabcanvas/canvasd/internal/observability"
	"github.com/collabcanvas/canvasd/internal/store"
	"github.com/collabcanvas/canvasd/pkg/models"
)

// randomPalette is the fill palette for generated shapes.
var randomPalette = []string{
	"#FF0000", "#00FF00", "#0000FF", "#FFFF00", "#FF00FF", "#00FFFF",
	"#FFA500", "#800080", "#FFC0CB", "#A52A2A", "#808080", "#000080",
}

// CreateRandomShapesTool generates N shapes with random position, size, and
// color inside the tool, so large quantities never require the model to
// enumerate a giant JSON payload. One batch write regardless of N.
type CreateRandomShapesTool struct {
	deps
	rng *rand.Rand
}

// NewCreateRandomShapes creates the bulk-random create tool. rng may be nil,
// selecting the global source.
func NewCreateRandomShapes(st store.Store, logger *observability.Logger, rng *rand.Rand) *CreateRandomShapesTool {
	return &CreateRandomShapesTool{deps: deps{store: st, logger: logger}, rng: rng}
}

func (t *CreateRandomShapesTool) Name() string { return "create_random_shapes" }

func (t *CreateRandomShapesTool) Description() string {
	return "Create many shapes with random positions and colors in one fast call. Use this instead of create_shapes_batch when the user asks for 50+ shapes."
}

func (t *CreateRandomShapesTool) Schema() json.RawMessage {
	return marshalSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"count": map[string]interface{}{
				"type":        "integer",
				"description": "Number of shapes to create (can be 100, 500, 1000+).",
			},
			"shape_type": map[string]interface{}{
				"type":        "string",
				"description": "\"rectangle\", \"circle\", or \"mixed\" (default: \"rectangle\").",
			},
			"canvas_id": canvasIDProperty(),
		},
		"required": []string{"count"},
	})
}

func (t *CreateRandomShapesTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Count     int    `json:"count"`
		ShapeType string `json:"shape_type"`
		CanvasID  string `json:"canvas_id"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError("Invalid parameters: " + err.Error()), nil
	}
	if input.Count <= 0 {
		return toolError("count must be positive"), nil
	}

	shapeType := strings.ToLower(strings.TrimSpace(input.ShapeType))
	if shapeType != "rectangle" && shapeType != "circle" && shapeType != "mixed" {
		shapeType = "rectangle"
	}

	shapes := make([]*models.Shape, 0, input.Count)
	for i := 0; i < input.Count; i++ {
		current := shapeType
		if shapeType == "mixed" {
			if t.intn(2) == 0 {
				current = "rectangle"
			} else {
				current = "circle"
			}
		}
		// Spread across the canvas, avoiding the edges.
		width := float64(30 + t.intn(121))
		height := width
		if current == "rectangle" {
			height = float64(30 + t.intn(121))
		}
		shapes = append(shapes, &models.Shape{
			ID:     uuid.NewString(),
			Type:   models.ShapeType(current),
			X:      float64(50 + t.intn(2901)),
			Y:      float64(50 + t.intn(2901)),
			Width:  width,
			Height: height,
			Fill:   randomPalette[t.intn(len(randomPalette))],
			Stroke: "#000000",
		})
	}

	if err := t.store.AddShapesBatch(ctx, canvasOr(input.CanvasID), shapes, t.meta()); err != nil {
		return toolError(fmt.Sprintf("Error creating shapes: %v", err)), nil
	}
	return toolOK(map[string]interface{}{
		"message":     fmt.Sprintf("Created %d random %s shapes", input.Count, shapeType),
		"shape_count": input.Count,
	}), nil
}

func (t *CreateRandomShapesTool) intn(n int) int {
	if t.rng != nil {
		return t.rng.Intn(n)
	}
	return rand.Intn(n)
}

// MoveRandomShapesTool picks N existing shapes at random and offsets each by a
// random amount within the given bound, in one batch update. Selection happens
// inside the tool for the same reason as CreateRandomShapesTool.
type MoveRandomShapesTool struct {
	deps
	rng *rand.Rand
}

// NewMoveRandomShapes creates the bulk-random move tool. rng may be nil,
// selecting the global source.
func NewMoveRandomShapes(st store.Store, logger *observability.Logger, rng *rand.Rand) *MoveRandomShapesTool {
	return &MoveRandomShapesTool{deps: deps{store: st, logger: logger}, rng: rng}
}

func (t *MoveRandomShapesTool) Name() string { return "move_random_shapes" }

func (t *MoveRandomShapesTool) Description() string {
	return "Move a number of randomly selected existing shapes by random offsets in one fast call. Use for requests like \"scatter 100 shapes around\"."
}

func (t *MoveRandomShapesTool) Schema() json.RawMessage {
	return marshalSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"count": map[string]interface{}{
				"type":        "integer",
				"description": "Number of shapes to move. Capped at the number of shapes on the canvas.",
			},
			"max_offset": map[string]interface{}{
				"type":        "number",
				"description": "Maximum offset in pixels on each axis (default: 200).",
			},
			"canvas_id": canvasIDProperty(),
		},
		"required": []string{"count"},
	})
}

func (t *MoveRandomShapesTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Count     int      `json:"count"`
		MaxOffset *float64 `json:"max_offset"`
		CanvasID  string   `json:"canvas_id"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError("Invalid parameters: " + err.Error()), nil
	}
	if input.Count <= 0 {
		return toolError("count must be positive"), nil
	}
	maxOffset := 200.0
	if input.MaxOffset != nil && *input.MaxOffset > 0 {
		maxOffset = *input.MaxOffset
	}

	canvasID := canvasOr(input.CanvasID)
	shapes, err := t.store.GetShapes(ctx, canvasID)
	if err != nil {
		return toolError(fmt.Sprintf("Error fetching shapes: %v", err)), nil
	}
	if len(shapes) == 0 {
		return toolError("No shapes on the canvas to move"), nil
	}

	count := input.Count
	if count > len(shapes) {
		count = len(shapes)
	}
	picked := t.perm(len(shapes))[:count]

	updates := make([]store.ShapeUpdate, 0, count)
	for _, idx := range picked {
		shape := shapes[idx]
		dx := t.float64()*2*maxOffset - maxOffset
		dy := t.float64()*2*maxOffset - maxOffset
		updates = append(updates, store.ShapeUpdate{
			ID: shape.ID,
			Fields: map[string]any{
				"x": shape.X + dx,
				"y": shape.Y + dy,
			},
		})
	}

	if err := t.store.UpdateShapesBatch(ctx, canvasID, updates, t.meta()); err != nil {
		return toolError(fmt.Sprintf("Error moving shapes: %v", err)), nil
	}
	return toolOK(map[string]interface{}{
		"message":     fmt.Sprintf("Moved %d randomly selected shapes", count),
		"shape_count": count,
	}), nil
}

func (t *MoveRandomShapesTool) perm(n int) []int {
	if t.rng != nil {
		return t.rng.Perm(n)
	}
	return rand.Perm(n)
}

func (t *MoveRandomShapesTool) float64() float64 {
	if t.rng != nil {
		return t.rng.Float64()
	}
	return rand.Float64()
}
