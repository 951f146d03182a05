package store

import (
	"context"
	"testing"
	"time"

	"github.com/collabcanvas/canvasd/pkg/models"
)

func rect(id string, x, y float64) *models.Shape {
	return &models.Shape{
		ID:    id,
		Type:  models.ShapeRectangle,
		X:     x,
		Y:     y,
		Width: 100, Height: 50,
		Fill: "#FF0000",
	}
}

func TestMemoryStoreAddAndList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.AddShape(ctx, "c1", rect("a", 0, 0), WriteMeta{SessionID: "sess", UserID: "u1"}); err != nil {
		t.Fatalf("AddShape: %v", err)
	}
	if err := s.AddShape(ctx, "c1", rect("b", 10, 10), WriteMeta{}); err != nil {
		t.Fatalf("AddShape: %v", err)
	}

	shapes, err := s.GetShapes(ctx, "c1")
	if err != nil {
		t.Fatalf("GetShapes: %v", err)
	}
	if len(shapes) != 2 {
		t.Fatalf("got %d shapes, want 2", len(shapes))
	}
	if shapes[0].ID != "a" || shapes[1].ID != "b" {
		t.Fatalf("insertion order not preserved: %s, %s", shapes[0].ID, shapes[1].ID)
	}
	if shapes[0].SessionID != "sess" || shapes[0].CreatedBy != "u1" {
		t.Fatalf("provenance not stamped: %+v", shapes[0])
	}
	if shapes[0].CreatedAt.IsZero() || shapes[0].UpdatedAt.IsZero() {
		t.Fatal("timestamps not stamped")
	}
}

func TestMemoryStoreGeneratesIDs(t *testing.T) {
	s := NewMemoryStore()
	shape := rect("", 0, 0)
	if err := s.AddShape(context.Background(), "c1", shape, WriteMeta{}); err != nil {
		t.Fatalf("AddShape: %v", err)
	}
	shapes, _ := s.GetShapes(context.Background(), "c1")
	if shapes[0].ID == "" {
		t.Fatal("store did not backfill shape id")
	}
	// The caller's copy must not be mutated by the store.
	if shape.CreatedAt != (time.Time{}) {
		t.Fatal("store mutated caller's shape")
	}
}

func TestMemoryStorePartialUpdate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.AddShape(ctx, "c1", rect("a", 5, 6), WriteMeta{}); err != nil {
		t.Fatalf("AddShape: %v", err)
	}

	err := s.UpdateShape(ctx, "c1", "a", map[string]any{"fill": "#0000FF", "x": 42.0}, WriteMeta{})
	if err != nil {
		t.Fatalf("UpdateShape: %v", err)
	}

	got, err := s.GetShape(ctx, "c1", "a")
	if err != nil {
		t.Fatalf("GetShape: %v", err)
	}
	if got.Fill != "#0000FF" {
		t.Errorf("fill = %q, want #0000FF", got.Fill)
	}
	if got.X != 42 {
		t.Errorf("x = %v, want 42", got.X)
	}
	if got.Y != 6 || got.Width != 100 {
		t.Errorf("untouched fields changed: y=%v width=%v", got.Y, got.Width)
	}
}

func TestMemoryStoreBatchUpdateAtomic(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.AddShape(ctx, "c1", rect("a", 0, 0), WriteMeta{}); err != nil {
		t.Fatalf("AddShape: %v", err)
	}

	updates := []ShapeUpdate{
		{ID: "a", Fields: map[string]any{"x": 99.0}},
		{ID: "missing", Fields: map[string]any{"x": 1.0}},
	}
	if err := s.UpdateShapesBatch(ctx, "c1", updates, WriteMeta{}); err != ErrNotFound {
		t.Fatalf("batch with missing id: err = %v, want ErrNotFound", err)
	}

	got, _ := s.GetShape(ctx, "c1", "a")
	if got.X != 0 {
		t.Fatalf("batch partially applied: x = %v", got.X)
	}
}

func TestMemoryStoreDeleteBatchAtomic(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.AddShape(ctx, "c1", rect("a", 0, 0), WriteMeta{})
	_ = s.AddShape(ctx, "c1", rect("b", 0, 0), WriteMeta{})

	if err := s.DeleteShapesBatch(ctx, "c1", []string{"a", "nope"}); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if s.CountShapes("c1") != 2 {
		t.Fatal("delete batch partially applied")
	}

	if err := s.DeleteShapesBatch(ctx, "c1", []string{"a", "b"}); err != nil {
		t.Fatalf("DeleteShapesBatch: %v", err)
	}
	if s.CountShapes("c1") != 0 {
		t.Fatal("shapes remain after delete")
	}
}

func TestMemoryStoreCanvasIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.AddShape(ctx, "c1", rect("a", 0, 0), WriteMeta{})
	_ = s.AddShape(ctx, "c2", rect("a", 0, 0), WriteMeta{})

	if err := s.DeleteShape(ctx, "c1", "a"); err != nil {
		t.Fatalf("DeleteShape: %v", err)
	}
	if _, err := s.GetShape(ctx, "c2", "a"); err != nil {
		t.Fatalf("delete leaked across canvases: %v", err)
	}
}
