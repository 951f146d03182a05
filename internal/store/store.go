// Package store persists canvas shapes. Implementations stamp provenance
// metadata (session, user, timestamps) on every write; callers never have to
// read it back for correctness.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/collabcanvas/canvasd/pkg/models"
)

var (
	ErrNotFound      = errors.New("store: shape not found")
	ErrAlreadyExists = errors.New("store: shape already exists")
)

// WriteMeta carries provenance for a write. Either field may be empty.
type WriteMeta struct {
	SessionID string
	UserID    string
}

// ShapeUpdate is a partial update for one shape. Fields holds JSON field names
// mapped to new values; omitted fields keep their stored values.
type ShapeUpdate struct {
	ID     string
	Fields map[string]any
}

// Store is the shape persistence contract. Batch operations are atomic: either
// every element is applied or none are.
type Store interface {
	GetShapes(ctx context.Context, canvasID string) ([]*models.Shape, error)
	GetShape(ctx context.Context, canvasID, shapeID string) (*models.Shape, error)
	AddShape(ctx context.Context, canvasID string, shape *models.Shape, meta WriteMeta) error
	AddShapesBatch(ctx context.Context, canvasID string, shapes []*models.Shape, meta WriteMeta) error
	UpdateShape(ctx context.Context, canvasID, shapeID string, fields map[string]any, meta WriteMeta) error
	UpdateShapesBatch(ctx context.Context, canvasID string, updates []ShapeUpdate, meta WriteMeta) error
	DeleteShape(ctx context.Context, canvasID, shapeID string) error
	DeleteShapesBatch(ctx context.Context, canvasID string, shapeIDs []string) error
	Close() error
}

// applyFields merges a partial field map onto a shape through its JSON
// representation so patch keys follow the wire field names.
func applyFields(shape *models.Shape, fields map[string]any) (*models.Shape, error) {
	base, err := json.Marshal(shape)
	if err != nil {
		return nil, fmt.Errorf("encode shape: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(base, &doc); err != nil {
		return nil, fmt.Errorf("decode shape: %w", err)
	}
	for k, v := range fields {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode merged shape: %w", err)
	}
	var out models.Shape
	if err := json.Unmarshal(merged, &out); err != nil {
		return nil, fmt.Errorf("apply shape update: %w", err)
	}
	return &out, nil
}

func cloneShape(shape *models.Shape) *models.Shape {
	if shape == nil {
		return nil
	}
	clone := *shape
	return &clone
}
