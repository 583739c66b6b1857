package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/platecheck/internal/domain/results"
)

const resultColumns = `id, name, lot, vehicle_path, plate_path,
       plate_place, plate_class, plate_hiragana, plate_number,
       top_score, bottom_score,
       correct_plate_place, correct_plate_class, correct_plate_hiragana, correct_plate_number,
       is_correct, analyzed_at, updated_at`

var reviewedClause = map[domain.ReviewedBy]string{
	domain.ReviewedByCorrection: "correct_plate_number IS NOT NULL",
	domain.ReviewedByJudgement:  "is_correct IS NOT NULL",
}

// ResultRepository is the analysis_results store for PostgreSQL deployments.
type ResultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

func (r *ResultRepository) Stats(ctx context.Context, tr domain.TimeRange, by domain.ReviewedBy) (domain.Accuracy, error) {
	clause, ok := reviewedClause[by]
	if !ok {
		return domain.Accuracy{}, fmt.Errorf("unknown reviewed definition %q", by)
	}
	q := `
SELECT COUNT(*) AS checked,
       COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END), 0) AS correct
FROM analysis_results
WHERE analyzed_at BETWEEN $1 AND $2
  AND ` + clause + `;`

	var acc domain.Accuracy
	if err := r.db.QueryRowContext(ctx, q, tr.Start, tr.End).Scan(&acc.Checked, &acc.Correct); err != nil {
		return domain.Accuracy{}, fmt.Errorf("querying stats: %w", err)
	}
	return acc, nil
}

func (r *ResultRepository) Search(ctx context.Context, f domain.Filter, limit int) ([]*domain.AnalysisResult, error) {
	if limit <= 0 || limit > domain.MaxResults {
		limit = domain.MaxResults
	}
	q := `
SELECT ` + resultColumns + `
FROM analysis_results
WHERE analyzed_at BETWEEN $1 AND $2`
	if f.UncheckedOnly {
		q += "\n  AND is_correct IS NULL AND correct_plate_number IS NULL"
	}
	q += "\nORDER BY analyzed_at DESC, id DESC\nLIMIT $3;"

	rows, err := r.db.QueryContext(ctx, q, f.Range.Start, f.Range.End, limit)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var out []*domain.AnalysisResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

func (r *ResultRepository) Get(ctx context.Context, id domain.ID) (*domain.AnalysisResult, error) {
	q := `
SELECT ` + resultColumns + `
FROM analysis_results
WHERE id = $1 LIMIT 1;`
	res, err := scanResult(r.db.QueryRowContext(ctx, q, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result %d: %w", id, err)
	}
	return res, nil
}

func (r *ResultRepository) UpdateCorrection(ctx context.Context, id domain.ID, c domain.Correction, isCorrect bool, at time.Time) error {
	const q = `
UPDATE analysis_results
SET correct_plate_place = $1,
    correct_plate_class = $2,
    correct_plate_hiragana = $3,
    correct_plate_number = $4,
    is_correct = $5,
    updated_at = $6
WHERE id = $7;`
	res, err := r.db.ExecContext(ctx, q,
		c.Place, c.Class, c.Hiragana, c.Number,
		isCorrect, at,
		int64(id),
	)
	if err != nil {
		return fmt.Errorf("update result %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update result %d: %w", id, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(s rowScanner) (*domain.AnalysisResult, error) {
	var (
		res                            domain.AnalysisResult
		id                             int64
		name, lot, vehicle, plate      sql.NullString
		place, class, hira, number     sql.NullString
		top, bottom                    sql.NullFloat64
		cPlace, cClass, cHira, cNumber sql.NullString
		isCorrect                      sql.NullBool
		updated                        sql.NullTime
	)
	if err := s.Scan(
		&id, &name, &lot, &vehicle, &plate,
		&place, &class, &hira, &number,
		&top, &bottom,
		&cPlace, &cClass, &cHira, &cNumber,
		&isCorrect, &res.AnalyzedAt, &updated,
	); err != nil {
		return nil, err
	}
	res.ID = domain.ID(id)
	res.Name = name.String
	res.Lot = lot.String
	res.VehiclePath = vehicle.String
	res.PlatePath = plate.String
	res.Place = nullable(place)
	res.Class = nullable(class)
	res.Hiragana = nullable(hira)
	res.Number = nullable(number)
	if top.Valid {
		res.TopScore = &top.Float64
	}
	if bottom.Valid {
		res.BottomScore = &bottom.Float64
	}
	res.CorrectPlace = nullable(cPlace)
	res.CorrectClass = nullable(cClass)
	res.CorrectHiragana = nullable(cHira)
	res.CorrectNumber = nullable(cNumber)
	if isCorrect.Valid {
		res.IsCorrect = &isCorrect.Bool
	}
	if updated.Valid {
		res.UpdatedAt = &updated.Time
	}
	return &res, nil
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}
