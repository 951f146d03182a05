package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/collabcanvas/canvasd/pkg/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS shapes (
	canvas_id  TEXT NOT NULL,
	id         TEXT NOT NULL,
	doc        TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (canvas_id, id)
);
CREATE INDEX IF NOT EXISTS idx_shapes_canvas_seq ON shapes (canvas_id, seq);
`

// SQLiteStore persists shapes in an embedded SQLite database. Shapes are
// stored as JSON documents keyed by (canvas_id, id); seq preserves insertion
// order for listing.
type SQLiteStore struct {
	db      *sql.DB
	nowFunc func() time.Time
}

// NewSQLiteStore opens (creating if needed) a SQLite store at path.
// Use ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent commands.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db, nowFunc: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) GetShapes(ctx context.Context, canvasID string) ([]*models.Shape, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM shapes WHERE canvas_id = ? ORDER BY seq`, canvasID)
	if err != nil {
		return nil, fmt.Errorf("list shapes: %w", err)
	}
	defer rows.Close()

	var shapes []*models.Shape
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan shape: %w", err)
		}
		var shape models.Shape
		if err := json.Unmarshal(doc, &shape); err != nil {
			return nil, fmt.Errorf("decode shape: %w", err)
		}
		shapes = append(shapes, &shape)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list shapes: %w", err)
	}
	if shapes == nil {
		shapes = []*models.Shape{}
	}
	return shapes, nil
}

func (s *SQLiteStore) GetShape(ctx context.Context, canvasID, shapeID string) (*models.Shape, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM shapes WHERE canvas_id = ? AND id = ?`, canvasID, shapeID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shape: %w", err)
	}
	var shape models.Shape
	if err := json.Unmarshal(doc, &shape); err != nil {
		return nil, fmt.Errorf("decode shape: %w", err)
	}
	return &shape, nil
}

func (s *SQLiteStore) AddShape(ctx context.Context, canvasID string, shape *models.Shape, meta WriteMeta) error {
	return s.AddShapesBatch(ctx, canvasID, []*models.Shape{shape}, meta)
}

func (s *SQLiteStore) AddShapesBatch(ctx context.Context, canvasID string, shapes []*models.Shape, meta WriteMeta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM shapes WHERE canvas_id = ?`, canvasID).Scan(&seq); err != nil {
		return fmt.Errorf("next seq: %w", err)
	}

	now := s.nowFunc()
	for _, shape := range shapes {
		if shape == nil {
			return ErrNotFound
		}
		clone := cloneShape(shape)
		if clone.ID == "" {
			clone.ID = uuid.NewString()
		}
		stamp(clone, meta, now, true)
		doc, err := json.Marshal(clone)
		if err != nil {
			return fmt.Errorf("encode shape: %w", err)
		}
		seq++
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO shapes (canvas_id, id, doc, seq, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			canvasID, clone.ID, string(doc), seq, now, now); err != nil {
			return fmt.Errorf("insert shape %s: %w", clone.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) UpdateShape(ctx context.Context, canvasID, shapeID string, fields map[string]any, meta WriteMeta) error {
	return s.UpdateShapesBatch(ctx, canvasID, []ShapeUpdate{{ID: shapeID, Fields: fields}}, meta)
}

func (s *SQLiteStore) UpdateShapesBatch(ctx context.Context, canvasID string, updates []ShapeUpdate, meta WriteMeta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := s.nowFunc()
	for _, update := range updates {
		var doc []byte
		err := tx.QueryRowContext(ctx,
			`SELECT doc FROM shapes WHERE canvas_id = ? AND id = ?`, canvasID, update.ID).Scan(&doc)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get shape %s: %w", update.ID, err)
		}
		var stored models.Shape
		if err := json.Unmarshal(doc, &stored); err != nil {
			return fmt.Errorf("decode shape %s: %w", update.ID, err)
		}
		next, err := applyFields(&stored, update.Fields)
		if err != nil {
			return err
		}
		next.ID = stored.ID
		stamp(next, meta, now, false)
		merged, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode shape %s: %w", update.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE shapes SET doc = ?, updated_at = ? WHERE canvas_id = ? AND id = ?`,
			string(merged), now, canvasID, update.ID); err != nil {
			return fmt.Errorf("update shape %s: %w", update.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteShape(ctx context.Context, canvasID, shapeID string) error {
	return s.DeleteShapesBatch(ctx, canvasID, []string{shapeID})
}

func (s *SQLiteStore) DeleteShapesBatch(ctx context.Context, canvasID string, shapeIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, id := range shapeIDs {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM shapes WHERE canvas_id = ? AND id = ?`, canvasID, id)
		if err != nil {
			return fmt.Errorf("delete shape %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete shape %s: %w", id, err)
		}
		if affected == 0 {
			return ErrNotFound
		}
	}
	return tx.Commit()
}
