package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/collabcanvas/canvasd/internal/store"
	"github.com/collabcanvas/canvasd/pkg/models"
)

func TestCreateShapesBatchTool(t *testing.T) {
	st := store.NewMemoryStore()
	tool := NewCreateShapesBatch(st, nil)

	result, _ := tool.Execute(context.Background(), json.RawMessage(`{
		"shapes": [
			{"type": "rectangle", "x": 0, "y": 0, "width": 10, "height": 10, "fill": "red"},
			{"type": "circle", "x": 20, "y": 20, "width": 10, "height": 10}
		]
	}`))
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.Content)
	}

	envelope := decodeEnvelope(t, result)
	if envelope["shape_count"] != float64(2) {
		t.Errorf("shape_count = %v", envelope["shape_count"])
	}
	created, ok := envelope["shapes"].([]any)
	if !ok || len(created) != 2 {
		t.Fatalf("shapes in envelope = %v", envelope["shapes"])
	}

	stored, _ := st.GetShapes(context.Background(), DefaultCanvasID)
	if len(stored) != 2 {
		t.Fatalf("stored = %d", len(stored))
	}
	if stored[0].Fill != "#FF0000" {
		t.Errorf("fill not normalized: %q", stored[0].Fill)
	}
	if stored[0].ID == "" || stored[1].ID == "" {
		t.Error("ids not backfilled")
	}
}

func TestCreateShapesBatchToolAllOrNothing(t *testing.T) {
	st := store.NewMemoryStore()
	tool := NewCreateShapesBatch(st, nil)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{
		"shapes": [
			{"type": "rectangle", "x": 0, "y": 0, "width": 10, "height": 10},
			{"x": 20, "y": 20, "width": 10, "height": 10},
			{"type": "circle", "x": 40, "y": 40, "width": 10, "height": 10}
		]
	}`))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected validation failure")
	}
	if !strings.Contains(result.Content, "index 1") {
		t.Errorf("failure does not reference index 1: %s", result.Content)
	}
	if n := st.CountShapes(DefaultCanvasID); n != 0 {
		t.Errorf("store writes happened: %d shapes", n)
	}
}

func TestCreateShapesBatchToolEmpty(t *testing.T) {
	tool := NewCreateShapesBatch(store.NewMemoryStore(), nil)
	result, _ := tool.Execute(context.Background(), json.RawMessage(`{"shapes": []}`))
	if !result.IsError {
		t.Error("expected error for empty batch")
	}
}

func TestUpdateShapesBatchTool(t *testing.T) {
	st := store.NewMemoryStore()
	seedShape(t, st, DefaultCanvasID, &models.Shape{ID: "a", Type: models.ShapeRectangle, X: 0, Y: 0, Width: 10, Height: 10})
	seedShape(t, st, DefaultCanvasID, &models.Shape{ID: "b", Type: models.ShapeRectangle, X: 0, Y: 0, Width: 10, Height: 10})
	tool := NewUpdateShapesBatch(st, nil)

	result, _ := tool.Execute(context.Background(), json.RawMessage(`{
		"updates": [
			{"shape_id": "a", "x": 100, "fill": "green"},
			{"shape_id": "b", "y": 200}
		]
	}`))
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.Content)
	}

	a, _ := st.GetShape(context.Background(), DefaultCanvasID, "a")
	if a.X != 100 || a.Fill != "#00FF00" {
		t.Errorf("a = %+v", a)
	}
	b, _ := st.GetShape(context.Background(), DefaultCanvasID, "b")
	if b.Y != 200 {
		t.Errorf("b = %+v", b)
	}
}

func TestUpdateShapesBatchToolRequiresShapeID(t *testing.T) {
	tool := NewUpdateShapesBatch(store.NewMemoryStore(), nil)
	result, _ := tool.Execute(context.Background(), json.RawMessage(`{
		"updates": [{"x": 100}]
	}`))
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(result.Content, "shape_id") {
		t.Errorf("Content = %s", result.Content)
	}
}

func TestDeleteShapesBatchTool(t *testing.T) {
	st := store.NewMemoryStore()
	seedShape(t, st, DefaultCanvasID, &models.Shape{ID: "a", Type: models.ShapeRectangle, X: 0, Y: 0, Width: 10, Height: 10})
	seedShape(t, st, DefaultCanvasID, &models.Shape{ID: "b", Type: models.ShapeRectangle, X: 0, Y: 0, Width: 10, Height: 10})
	tool := NewDeleteShapesBatch(st, nil)

	result, _ := tool.Execute(context.Background(), json.RawMessage(`{"shape_ids": ["a", "b"]}`))
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.Content)
	}
	if n := st.CountShapes(DefaultCanvasID); n != 0 {
		t.Errorf("remaining shapes = %d", n)
	}

	result, _ = tool.Execute(context.Background(), json.RawMessage(`{"shape_ids": []}`))
	if !result.IsError {
		t.Error("expected error for empty id list")
	}
}
