package store

import (
	"context"

	"github.com/collabcanvas/canvasd/internal/observability"
	"github.com/collabcanvas/canvasd/pkg/models"
)

// instrumentedStore counts successful shape writes per operation. Reads pass
// through untouched.
type instrumentedStore struct {
	inner   Store
	metrics *observability.Metrics
}

// NewInstrumentedStore wraps a store with write metrics. A nil metrics set
// returns the inner store unchanged.
func NewInstrumentedStore(inner Store, metrics *observability.Metrics) Store {
	if metrics == nil {
		return inner
	}
	return &instrumentedStore{inner: inner, metrics: metrics}
}

func (s *instrumentedStore) GetShapes(ctx context.Context, canvasID string) ([]*models.Shape, error) {
	return s.inner.GetShapes(ctx, canvasID)
}

func (s *instrumentedStore) GetShape(ctx context.Context, canvasID, shapeID string) (*models.Shape, error) {
	return s.inner.GetShape(ctx, canvasID, shapeID)
}

func (s *instrumentedStore) AddShape(ctx context.Context, canvasID string, shape *models.Shape, meta WriteMeta) error {
	err := s.inner.AddShape(ctx, canvasID, shape, meta)
	if err == nil {
		s.metrics.ShapesWritten.WithLabelValues("create").Inc()
	}
	return err
}

func (s *instrumentedStore) AddShapesBatch(ctx context.Context, canvasID string, shapes []*models.Shape, meta WriteMeta) error {
	err := s.inner.AddShapesBatch(ctx, canvasID, shapes, meta)
	if err == nil {
		s.metrics.ShapesWritten.WithLabelValues("create").Add(float64(len(shapes)))
	}
	return err
}

func (s *instrumentedStore) UpdateShape(ctx context.Context, canvasID, shapeID string, fields map[string]any, meta WriteMeta) error {
	err := s.inner.UpdateShape(ctx, canvasID, shapeID, fields, meta)
	if err == nil {
		s.metrics.ShapesWritten.WithLabelValues("update").Inc()
	}
	return err
}

func (s *instrumentedStore) UpdateShapesBatch(ctx context.Context, canvasID string, updates []ShapeUpdate, meta WriteMeta) error {
	err := s.inner.UpdateShapesBatch(ctx, canvasID, updates, meta)
	if err == nil {
		s.metrics.ShapesWritten.WithLabelValues("update").Add(float64(len(updates)))
	}
	return err
}

func (s *instrumentedStore) DeleteShape(ctx context.Context, canvasID, shapeID string) error {
	err := s.inner.DeleteShape(ctx, canvasID, shapeID)
	if err == nil {
		s.metrics.ShapesWritten.WithLabelValues("delete").Inc()
	}
	return err
}

func (s *instrumentedStore) DeleteShapesBatch(ctx context.Context, canvasID string, shapeIDs []string) error {
	err := s.inner.DeleteShapesBatch(ctx, canvasID, shapeIDs)
	if err == nil {
		s.metrics.ShapesWritten.WithLabelValues("delete").Add(float64(len(shapeIDs)))
	}
	return err
}

func (s *instrumentedStore) Close() error {
	return s.inner.Close()
}
