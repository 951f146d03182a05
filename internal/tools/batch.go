package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/collabcanvas/canvasd/internal/agent"
	"github.com/collabcanvas/canvasd/internal/observability"
	"github.com/collabcanvas/canvasd/internal/store"
	"github.com/collabcanvas/canvasd/pkg/models"
)

// CreateShapesBatchTool creates N shapes in one store round-trip. Validation
// is all-or-nothing: one bad record fails the whole call before any write.
type CreateShapesBatchTool struct {
	deps
}

// NewCreateShapesBatch creates the batch create tool.
func NewCreateShapesBatch(st store.Store, logger *observability.Logger) *CreateShapesBatchTool {
	return &CreateShapesBatchTool{deps{store: st, logger: logger}}
}

func (t *CreateShapesBatchTool) Name() string { return "create_shapes_batch" }

func (t *CreateShapesBatchTool) Description() string {
	return "Create multiple shapes at once. Use for 3+ shapes. Handles any quantity in one call."
}

func (t *CreateShapesBatchTool) Schema() json.RawMessage {
	return marshalSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"shapes": map[string]interface{}{
				"type":        "array",
				"description": "List of shape objects, each with: type, x, y, width, height, fill, rotation. Text shapes additionally need text and fontSize.",
				"items":       map[string]interface{}{"type": "object"},
			},
			"canvas_id": canvasIDProperty(),
		},
		"required": []string{"shapes"},
	})
}

func (t *CreateShapesBatchTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Shapes   []map[string]any `json:"shapes"`
		CanvasID string           `json:"canvas_id"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError("Invalid parameters: " + err.Error()), nil
	}
	if len(input.Shapes) == 0 {
		return toolError("shapes must not be empty"), nil
	}

	shapes := make([]*models.Shape, 0, len(input.Shapes))
	for i, record := range input.Shapes {
		if _, ok := record["type"]; !ok {
			return toolError(fmt.Sprintf("Shape at index %d is missing required field 'type'", i)), nil
		}
		if _, ok := record["id"]; !ok {
			record["id"] = uuid.NewString()
		}
		if fill, ok := record["fill"].(string); ok {
			record["fill"] = NormalizeColor(fill)
		}
		shape, err := decodeShapeRecord(record)
		if err != nil {
			return toolError(fmt.Sprintf("Shape at index %d is invalid: %v", i, err)), nil
		}
		shapes = append(shapes, shape)
	}

	if err := t.store.AddShapesBatch(ctx, canvasOr(input.CanvasID), shapes, t.meta()); err != nil {
		return toolError(fmt.Sprintf("Error creating shapes batch: %v", err)), nil
	}
	return toolOK(map[string]interface{}{
		"message":     fmt.Sprintf("Created %d shapes in batch", len(shapes)),
		"shape_count": len(shapes),
		"shapes":      shapes,
	}), nil
}

// UpdateShapesBatchTool applies N partial updates in one store round-trip.
type UpdateShapesBatchTool struct {
	deps
}

// NewUpdateShapesBatch creates the batch update tool.
func NewUpdateShapesBatch(st store.Store, logger *observability.Logger) *UpdateShapesBatchTool {
	return &UpdateShapesBatchTool{deps{store: st, logger: logger}}
}

func (t *UpdateShapesBatchTool) Name() string { return "update_shapes_batch" }

func (t *UpdateShapesBatchTool) Description() string {
	return "Update multiple shapes at once. Use for 3+ shapes. Each update must include shape_id and the fields to change."
}

func (t *UpdateShapesBatchTool) Schema() json.RawMessage {
	return marshalSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"updates": map[string]interface{}{
				"type":        "array",
				"description": "List of update objects with shape_id and fields to update (x, y, width, height, fill, rotation).",
				"items":       map[string]interface{}{"type": "object"},
			},
			"canvas_id": canvasIDProperty(),
		},
		"required": []string{"updates"},
	})
}

func (t *UpdateShapesBatchTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Updates  []map[string]any `json:"updates"`
		CanvasID string           `json:"canvas_id"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError("Invalid parameters: " + err.Error()), nil
	}
	if len(input.Updates) == 0 {
		return toolError("updates must not be empty"), nil
	}

	updates := make([]store.ShapeUpdate, 0, len(input.Updates))
	for i, record := range input.Updates {
		id, ok := record["shape_id"].(string)
		if !ok || id == "" {
			return toolError(fmt.Sprintf("Update at index %d is missing required field 'shape_id'", i)), nil
		}
		fields := make(map[string]any, len(record))
		for k, v := range record {
			if k == "shape_id" {
				continue
			}
			if k == "fill" {
				if fill, isString := v.(string); isString {
					v = NormalizeColor(fill)
				}
			}
			fields[k] = v
		}
		updates = append(updates, store.ShapeUpdate{ID: id, Fields: fields})
	}

	if err := t.store.UpdateShapesBatch(ctx, canvasOr(input.CanvasID), updates, t.meta()); err != nil {
		return toolError(fmt.Sprintf("Error updating shapes batch: %v", err)), nil
	}
	return toolOK(map[string]interface{}{
		"message":     fmt.Sprintf("Updated %d shapes in batch", len(updates)),
		"shape_count": len(updates),
	}), nil
}

// DeleteShapesBatchTool deletes N shapes in one store round-trip.
type DeleteShapesBatchTool struct {
	deps
}

// NewDeleteShapesBatch creates the batch delete tool.
func NewDeleteShapesBatch(st store.Store, logger *observability.Logger) *DeleteShapesBatchTool {
	return &DeleteShapesBatchTool{deps{store: st, logger: logger}}
}

func (t *DeleteShapesBatchTool) Name() string { return "delete_shapes_batch" }

func (t *DeleteShapesBatchTool) Description() string {
	return "Delete multiple shapes at once. Use for 3+ shapes."
}

func (t *DeleteShapesBatchTool) Schema() json.RawMessage {
	return marshalSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"shape_ids": map[string]interface{}{
				"type":        "array",
				"description": "List of shape IDs to delete.",
				"items":       map[string]interface{}{"type": "string"},
			},
			"canvas_id": canvasIDProperty(),
		},
		"required": []string{"shape_ids"},
	})
}

func (t *DeleteShapesBatchTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		ShapeIDs []string `json:"shape_ids"`
		CanvasID string   `json:"canvas_id"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError("Invalid parameters: " + err.Error()), nil
	}
	if len(input.ShapeIDs) == 0 {
		return toolError("No shape IDs provided"), nil
	}

	if err := t.store.DeleteShapesBatch(ctx, canvasOr(input.CanvasID), input.ShapeIDs); err != nil {
		return toolError(fmt.Sprintf("Error deleting shapes batch: %v", err)), nil
	}
	return toolOK(map[string]interface{}{
		"message":     fmt.Sprintf("Deleted %d shapes in batch", len(input.ShapeIDs)),
		"shape_count": len(input.ShapeIDs),
	}), nil
}

// decodeShapeRecord converts a loose JSON object into a validated shape.
func decodeShapeRecord(record map[string]any) (*models.Shape, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	var shape models.Shape
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, err
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return &shape, nil
}
