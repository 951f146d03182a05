package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/collabcanvas/canvasd/pkg/models"
)

func TestPostgresGetShapes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	s := NewPostgresStoreWithDB(db)

	docA, _ := json.Marshal(&models.Shape{ID: "a", Type: models.ShapeCircle, X: 1, Y: 2, Width: 30, Height: 30})
	docB, _ := json.Marshal(&models.Shape{ID: "b", Type: models.ShapeRectangle, X: 3, Y: 4, Width: 10, Height: 10})

	mock.ExpectQuery(`SELECT doc FROM shapes WHERE canvas_id = \$1 ORDER BY seq`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow(docA).AddRow(docB))

	shapes, err := s.GetShapes(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetShapes: %v", err)
	}
	if len(shapes) != 2 || shapes[0].ID != "a" || shapes[1].ID != "b" {
		t.Fatalf("unexpected shapes: %+v", shapes)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresGetShapeNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	s := NewPostgresStoreWithDB(db)

	mock.ExpectQuery(`SELECT doc FROM shapes WHERE canvas_id = \$1 AND id = \$2`).
		WithArgs("c1", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}))

	if _, err := s.GetShape(context.Background(), "c1", "missing"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPostgresDeleteBatchRollsBackOnMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	s := NewPostgresStoreWithDB(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM shapes WHERE canvas_id = \$1 AND id = \$2`).
		WithArgs("c1", "a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM shapes WHERE canvas_id = \$1 AND id = \$2`).
		WithArgs("c1", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = s.DeleteShapesBatch(context.Background(), "c1", []string{"a", "missing"})
	if err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresAddShapesBatchCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	s := NewPostgresStoreWithDB(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(seq\), 0\) FROM shapes WHERE canvas_id = \$1`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(4))
	mock.ExpectExec(`INSERT INTO shapes`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	shape := &models.Shape{ID: "a", Type: models.ShapeRectangle, X: 0, Y: 0, Width: 10, Height: 10}
	if err := s.AddShapesBatch(context.Background(), "c1", []*models.Shape{shape}, WriteMeta{SessionID: "s1"}); err != nil {
		t.Fatalf("AddShapesBatch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
