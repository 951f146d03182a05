package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/collabcanvas/canvasd/pkg/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS shapes (
	canvas_id  TEXT NOT NULL,
	id         TEXT NOT NULL,
	doc        JSONB NOT NULL,
	seq        BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (canvas_id, id)
);
CREATE INDEX IF NOT EXISTS idx_shapes_canvas_seq ON shapes (canvas_id, seq);
`

// PostgresConfig tunes the connection pool.
type PostgresConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultPostgresConfig returns conservative pool defaults.
func DefaultPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnectTimeout:  5 * time.Second,
	}
}

// PostgresStore persists shapes in Postgres for multi-writer deployments.
// Same document model as the SQLite store.
type PostgresStore struct {
	db      *sql.DB
	nowFunc func() time.Time
}

// NewPostgresStore connects to Postgres using a DSN and ensures the schema.
func NewPostgresStore(dsn string, config *PostgresConfig) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if config == nil {
		config = DefaultPostgresConfig()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &PostgresStore{db: db, nowFunc: time.Now}, nil
}

// NewPostgresStoreWithDB wraps an existing connection without pinging or
// creating the schema. Used by tests.
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, nowFunc: time.Now}
}

func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) GetShapes(ctx context.Context, canvasID string) ([]*models.Shape, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM shapes WHERE canvas_id = $1 ORDER BY seq`, canvasID)
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

func (s *PostgresStore) GetShape(ctx context.Context, canvasID, shapeID string) (*models.Shape, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM shapes WHERE canvas_id = $1 AND id = $2`, canvasID, shapeID).Scan(&doc)
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

func (s *PostgresStore) AddShape(ctx context.Context, canvasID string, shape *models.Shape, meta WriteMeta) error {
	return s.AddShapesBatch(ctx, canvasID, []*models.Shape{shape}, meta)
}

func (s *PostgresStore) AddShapesBatch(ctx context.Context, canvasID string, shapes []*models.Shape, meta WriteMeta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM shapes WHERE canvas_id = $1`, canvasID).Scan(&seq); err != nil {
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
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			canvasID, clone.ID, doc, seq, now, now); err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyExists
			}
			return fmt.Errorf("insert shape %s: %w", clone.ID, err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) UpdateShape(ctx context.Context, canvasID, shapeID string, fields map[string]any, meta WriteMeta) error {
	return s.UpdateShapesBatch(ctx, canvasID, []ShapeUpdate{{ID: shapeID, Fields: fields}}, meta)
}

func (s *PostgresStore) UpdateShapesBatch(ctx context.Context, canvasID string, updates []ShapeUpdate, meta WriteMeta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := s.nowFunc()
	for _, update := range updates {
		var doc []byte
		err := tx.QueryRowContext(ctx,
			`SELECT doc FROM shapes WHERE canvas_id = $1 AND id = $2 FOR UPDATE`,
			canvasID, update.ID).Scan(&doc)
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
			`UPDATE shapes SET doc = $1, updated_at = $2 WHERE canvas_id = $3 AND id = $4`,
			merged, now, canvasID, update.ID); err != nil {
			return fmt.Errorf("update shape %s: %w", update.ID, err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) DeleteShape(ctx context.Context, canvasID, shapeID string) error {
	return s.DeleteShapesBatch(ctx, canvasID, []string{shapeID})
}

func (s *PostgresStore) DeleteShapesBatch(ctx context.Context, canvasID string, shapeIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, id := range shapeIDs {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM shapes WHERE canvas_id = $1 AND id = $2`, canvasID, id)
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

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
