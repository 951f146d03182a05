package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/collabcanvas/canvasd/internal/agent"
	"github.com/collabcanvas/canvasd/internal/observability"
	"github.com/collabcanvas/canvasd/internal/store"
	"github.com/collabcanvas/canvasd/pkg/models"
)

// updateAndFetch applies a partial update and returns the resulting shape so
// the envelope can carry the post-update state.
func (d deps) updateAndFetch(ctx context.Context, canvasID, shapeID string, fields map[string]any) (*agent.ToolResult, map[string]interface{}) {
	if strings.TrimSpace(shapeID) == "" {
		return toolError("shape_id is required"), nil
	}
	if err := d.store.UpdateShape(ctx, canvasID, shapeID, fields, d.meta()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return toolError(fmt.Sprintf("Failed to update shape %s. It may not exist on the canvas.", shapeID)), nil
		}
		return toolError(fmt.Sprintf("Error updating shape: %v", err)), nil
	}
	payload := map[string]interface{}{"shape_id": shapeID}
	if shape, err := d.store.GetShape(ctx, canvasID, shapeID); err == nil {
		payload["shape"] = shape
	}
	return nil, payload
}

// MoveShapeTool moves one shape to a new position.
type MoveShapeTool struct {
	deps
}

// NewMoveShape creates the move tool.
func NewMoveShape(st store.Store, logger *observability.Logger) *MoveShapeTool {
	return &MoveShapeTool{deps{store: st, logger: logger}}
}

func (t *MoveShapeTool) Name() string { return "move_shape" }

func (t *MoveShapeTool) Description() string {
	return "Move a shape to a new position. Call get_canvas_shapes first to find the shape ID."
}

func (t *MoveShapeTool) Schema() json.RawMessage {
	return marshalSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"shape_id": map[string]interface{}{
				"type":        "string",
				"description": "Unique ID of the shape (from get_canvas_shapes).",
			},
			"new_x": map[string]interface{}{
				"type":        "number",
				"description": "New X position of the top-left corner.",
			},
			"new_y": map[string]interface{}{
				"type":        "number",
				"description": "New Y position of the top-left corner.",
			},
			"canvas_id": canvasIDProperty(),
		},
		"required": []string{"shape_id", "new_x", "new_y"},
	})
}

func (t *MoveShapeTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		ShapeID  string  `json:"shape_id"`
		NewX     float64 `json:"new_x"`
		NewY     float64 `json:"new_y"`
		CanvasID string  `json:"canvas_id"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError("Invalid parameters: " + err.Error()), nil
	}

	errResult, payload := t.updateAndFetch(ctx, canvasOr(input.CanvasID), input.ShapeID, map[string]any{
		"x": input.NewX,
		"y": input.NewY,
	})
	if errResult != nil {
		return errResult, nil
	}
	payload["message"] = fmt.Sprintf("Moved shape %s to position (%g, %g)", input.ShapeID, input.NewX, input.NewY)
	return toolOK(payload), nil
}

// ResizeShapeTool resizes one shape. Height defaults to the new width.
type ResizeShapeTool struct {
	deps
}

// NewResizeShape creates the resize tool.
func NewResizeShape(st store.Store, logger *observability.Logger) *ResizeShapeTool {
	return &ResizeShapeTool{deps{store: st, logger: logger}}
}

func (t *ResizeShapeTool) Name() string { return "resize_shape" }

func (t *ResizeShapeTool) Description() string {
	return "Resize a shape. Call get_canvas_shapes first to find the shape ID."
}

func (t *ResizeShapeTool) Schema() json.RawMessage {
	return marshalSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"shape_id": map[string]interface{}{
				"type":        "string",
				"description": "Unique ID of the shape (from get_canvas_shapes).",
			},
			"new_width": map[string]interface{}{
				"type":        "number",
				"description": "New width in pixels.",
			},
			"new_height": map[string]interface{}{
				"type":        "number",
				"description": "New height in pixels (optional, defaults to new_width).",
			},
			"canvas_id": canvasIDProperty(),
		},
		"required": []string{"shape_id", "new_width"},
	})
}

func (t *ResizeShapeTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		ShapeID   string   `json:"shape_id"`
		NewWidth  float64  `json:"new_width"`
		NewHeight *float64 `json:"new_height"`
		CanvasID  string   `json:"canvas_id"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError("Invalid parameters: " + err.Error()), nil
	}
	if input.NewWidth <= 0 {
		return toolError("new_width must be positive"), nil
	}
	height := input.NewWidth
	if input.NewHeight != nil {
		height = *input.NewHeight
	}

	errResult, payload := t.updateAndFetch(ctx, canvasOr(input.CanvasID), input.ShapeID, map[string]any{
		"width":  input.NewWidth,
		"height": height,
	})
	if errResult != nil {
		return errResult, nil
	}
	payload["message"] = fmt.Sprintf("Resized shape %s to %gx%g", input.ShapeID, input.NewWidth, height)
	return toolOK(payload), nil
}

// RotateShapeTool rotates one shape; the angle is normalized to [0, 360).
type RotateShapeTool struct {
	deps
}

// NewRotateShape creates the rotate tool.
func NewRotateShape(st store.Store, logger *observability.Logger) *RotateShapeTool {
	return &RotateShapeTool{deps{store: st, logger: logger}}
}

func (t *RotateShapeTool) Name() string { return "rotate_shape" }

func (t *RotateShapeTool) Description() string {
	return "Rotate a shape. Call get_canvas_shapes first to find the shape ID."
}

func (t *RotateShapeTool) Schema() json.RawMessage {
	return marshalSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"shape_id": map[string]interface{}{
				"type":        "string",
				"description": "Unique ID of the shape (from get_canvas_shapes).",
			},
			"angle": map[string]interface{}{
				"type":        "number",
				"description": "Rotation angle in degrees (positive = clockwise).",
			},
			"canvas_id": canvasIDProperty(),
		},
		"required": []string{"shape_id", "angle"},
	})
}

func (t *RotateShapeTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		ShapeID  string  `json:"shape_id"`
		Angle    float64 `json:"angle"`
		CanvasID string  `json:"canvas_id"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError("Invalid parameters: " + err.Error()), nil
	}
	angle := models.NormalizeRotation(input.Angle)

	errResult, payload := t.updateAndFetch(ctx, canvasOr(input.CanvasID), input.ShapeID, map[string]any{
		"rotation": angle,
	})
	if errResult != nil {
		return errResult, nil
	}
	payload["message"] = fmt.Sprintf("Rotated shape %s to %g degrees", input.ShapeID, angle)
	payload["angle"] = angle
	return toolOK(payload), nil
}

// ChangeShapeColorTool changes one shape's fill.
type ChangeShapeColorTool struct {
	deps
}

// NewChangeShapeColor creates the recolor tool.
func NewChangeShapeColor(st store.Store, logger *observability.Logger) *ChangeShapeColorTool {
	return &ChangeShapeColorTool{deps{store: st, logger: logger}}
}

func (t *ChangeShapeColorTool) Name() string { return "change_shape_color" }

func (t *ChangeShapeColorTool) Description() string {
	return "Change the color of a shape. Call get_canvas_shapes first to find the shape ID."
}

func (t *ChangeShapeColorTool) Schema() json.RawMessage {
	return marshalSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"shape_id": map[string]interface{}{
				"type":        "string",
				"description": "Unique ID of the shape (from get_canvas_shapes).",
			},
			"new_color": map[string]interface{}{
				"type":        "string",
				"description": "Color name or hex code.",
			},
			"canvas_id": canvasIDProperty(),
		},
		"required": []string{"shape_id", "new_color"},
	})
}

func (t *ChangeShapeColorTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		ShapeID  string `json:"shape_id"`
		NewColor string `json:"new_color"`
		CanvasID string `json:"canvas_id"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError("Invalid parameters: " + err.Error()), nil
	}
	fill := NormalizeColor(input.NewColor)

	errResult, payload := t.updateAndFetch(ctx, canvasOr(input.CanvasID), input.ShapeID, map[string]any{
		"fill": fill,
	})
	if errResult != nil {
		return errResult, nil
	}
	payload["message"] = fmt.Sprintf("Changed color of shape %s to %s", input.ShapeID, fill)
	payload["fill"] = fill
	return toolOK(payload), nil
}

// DeleteShapeTool deletes one shape by id.
type DeleteShapeTool struct {
	deps
}

// NewDeleteShape creates the delete tool.
func NewDeleteShape(st store.Store, logger *observability.Logger) *DeleteShapeTool {
	return &DeleteShapeTool{deps{store: st, logger: logger}}
}

func (t *DeleteShapeTool) Name() string { return "delete_shape_by_id" }

func (t *DeleteShapeTool) Description() string {
	return "Delete a shape from the canvas. Call get_canvas_shapes first to find the shape ID."
}

func (t *DeleteShapeTool) Schema() json.RawMessage {
	return marshalSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"shape_id": map[string]interface{}{
				"type":        "string",
				"description": "Unique ID of the shape to delete.",
			},
			"canvas_id": canvasIDProperty(),
		},
		"required": []string{"shape_id"},
	})
}

func (t *DeleteShapeTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		ShapeID  string `json:"shape_id"`
		CanvasID string `json:"canvas_id"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError("Invalid parameters: " + err.Error()), nil
	}
	if strings.TrimSpace(input.ShapeID) == "" {
		return toolError("shape_id is required"), nil
	}

	if err := t.store.DeleteShape(ctx, canvasOr(input.CanvasID), input.ShapeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return toolError(fmt.Sprintf("Failed to delete shape %s. It may not exist on the canvas.", input.ShapeID)), nil
		}
		return toolError(fmt.Sprintf("Error deleting shape: %v", err)), nil
	}
	return toolOK(map[string]interface{}{
		"message":  fmt.Sprintf("Deleted shape %s from the canvas", input.ShapeID),
		"shape_id": input.ShapeID,
	}), nil
}
