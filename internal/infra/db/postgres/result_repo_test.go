package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	domain "github.com/bryanwahyu/platecheck/internal/domain/results"
)

func TestStatsPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := NewResultRepository(db)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tr := domain.TimeRange{Start: start, End: start.Add(time.Hour)}
	mock.ExpectQuery(`(?s)CASE WHEN is_correct THEN 1 ELSE 0 END.*WHERE analyzed_at BETWEEN \$1 AND \$2\s+AND is_correct IS NOT NULL`).
		WithArgs(tr.Start, tr.End).
		WillReturnRows(sqlmock.NewRows([]string{"checked", "correct"}).AddRow(4, 1))

	acc, err := repo.Stats(context.Background(), tr, domain.ReviewedByJudgement)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if acc.Percentage() != 25 {
		t.Fatalf("expected 25%%, got %v", acc.Percentage())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestSearchAndUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := NewResultRepository(db)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tr := domain.TimeRange{Start: start, End: start.Add(time.Hour)}
	cols := []string{
		"id", "name", "lot", "vehicle_path", "plate_path",
		"plate_place", "plate_class", "plate_hiragana", "plate_number",
		"top_score", "bottom_score",
		"correct_plate_place", "correct_plate_class", "correct_plate_hiragana", "correct_plate_number",
		"is_correct", "analyzed_at", "updated_at",
	}
	mock.ExpectQuery(`LIMIT \$3`).
		WithArgs(tr.Start, tr.End, domain.MaxResults).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			int64(1), "cam", "C-1", "v", "p",
			"横浜", "330", "ね", "55-55",
			nil, 0.5,
			nil, nil, nil, nil,
			false, start, nil,
		))
	mock.ExpectExec(`WHERE id = \$7`).
		WithArgs("横浜", "330", "ね", "55-56", false, sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE analysis_results`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	out, err := repo.Search(context.Background(), domain.Filter{Range: tr}, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(out) != 1 || out[0].TopScore != nil || out[0].BottomScore == nil {
		t.Fatalf("unexpected rows %+v", out)
	}
	if out[0].IsCorrect == nil || *out[0].IsCorrect {
		t.Fatalf("is_correct=false should scan as non-nil false")
	}

	c := domain.Correction{Place: "横浜", Class: "330", Hiragana: "ね", Number: "55-56"}
	if err := repo.UpdateCorrection(context.Background(), 1, c, false, time.Now()); err != nil {
		t.Fatalf("UpdateCorrection: %v", err)
	}
	if err := repo.UpdateCorrection(context.Background(), 2, c, false, time.Now()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
