package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/collabcanvas/canvasd/pkg/models"
)

// MemoryStore is an in-memory shape store for testing and single-node usage.
type MemoryStore struct {
	mu       sync.RWMutex
	canvases map[string]map[string]*models.Shape
	order    map[string][]string

	nowFunc func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		canvases: map[string]map[string]*models.Shape{},
		order:    map[string][]string{},
		nowFunc:  time.Now,
	}
}

func (s *MemoryStore) GetShapes(_ context.Context, canvasID string) ([]*models.Shape, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.order[canvasID]
	shapes := make([]*models.Shape, 0, len(ids))
	for _, id := range ids {
		if shape, ok := s.canvases[canvasID][id]; ok {
			shapes = append(shapes, cloneShape(shape))
		}
	}
	return shapes, nil
}

func (s *MemoryStore) GetShape(_ context.Context, canvasID, shapeID string) (*models.Shape, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shape, ok := s.canvases[canvasID][shapeID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneShape(shape), nil
}

func (s *MemoryStore) AddShape(ctx context.Context, canvasID string, shape *models.Shape, meta WriteMeta) error {
	return s.AddShapesBatch(ctx, canvasID, []*models.Shape{shape}, meta)
}

func (s *MemoryStore) AddShapesBatch(_ context.Context, canvasID string, shapes []*models.Shape, meta WriteMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	prepared := make([]*models.Shape, 0, len(shapes))
	for _, shape := range shapes {
		if shape == nil {
			return ErrNotFound
		}
		clone := cloneShape(shape)
		if clone.ID == "" {
			clone.ID = uuid.NewString()
		}
		if _, exists := s.canvases[canvasID][clone.ID]; exists {
			return ErrAlreadyExists
		}
		stamp(clone, meta, now, true)
		prepared = append(prepared, clone)
	}

	if s.canvases[canvasID] == nil {
		s.canvases[canvasID] = map[string]*models.Shape{}
	}
	for _, shape := range prepared {
		s.canvases[canvasID][shape.ID] = shape
		s.order[canvasID] = append(s.order[canvasID], shape.ID)
	}
	return nil
}

func (s *MemoryStore) UpdateShape(ctx context.Context, canvasID, shapeID string, fields map[string]any, meta WriteMeta) error {
	return s.UpdateShapesBatch(ctx, canvasID, []ShapeUpdate{{ID: shapeID, Fields: fields}}, meta)
}

func (s *MemoryStore) UpdateShapesBatch(_ context.Context, canvasID string, updates []ShapeUpdate, meta WriteMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	merged := make([]*models.Shape, 0, len(updates))
	for _, update := range updates {
		stored, ok := s.canvases[canvasID][update.ID]
		if !ok {
			return ErrNotFound
		}
		next, err := applyFields(stored, update.Fields)
		if err != nil {
			return err
		}
		next.ID = stored.ID
		stamp(next, meta, now, false)
		merged = append(merged, next)
	}
	for _, shape := range merged {
		s.canvases[canvasID][shape.ID] = shape
	}
	return nil
}

func (s *MemoryStore) DeleteShape(ctx context.Context, canvasID, shapeID string) error {
	return s.DeleteShapesBatch(ctx, canvasID, []string{shapeID})
}

func (s *MemoryStore) DeleteShapesBatch(_ context.Context, canvasID string, shapeIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range shapeIDs {
		if _, ok := s.canvases[canvasID][id]; !ok {
			return ErrNotFound
		}
	}
	doomed := map[string]bool{}
	for _, id := range shapeIDs {
		delete(s.canvases[canvasID], id)
		doomed[id] = true
	}
	kept := s.order[canvasID][:0]
	for _, id := range s.order[canvasID] {
		if !doomed[id] {
			kept = append(kept, id)
		}
	}
	s.order[canvasID] = kept
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// CountShapes returns the number of shapes on a canvas.
func (s *MemoryStore) CountShapes(canvasID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.canvases[canvasID])
}

// CanvasIDs lists known canvases in sorted order.
func (s *MemoryStore) CanvasIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.canvases))
	for id := range s.canvases {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func stamp(shape *models.Shape, meta WriteMeta, now time.Time, created bool) {
	if created {
		shape.CreatedAt = now
		if meta.SessionID != "" {
			shape.SessionID = meta.SessionID
		}
		if meta.UserID != "" {
			shape.CreatedBy = meta.UserID
		}
	}
	shape.UpdatedAt = now
}
