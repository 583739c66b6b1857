package mysql

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

// reviewedClause maps each definition to a fixed predicate; nothing user supplied
// is ever concatenated into SQL.
var reviewedClause = map[domain.ReviewedBy]string{
	domain.ReviewedByCorrection: "correct_plate_number IS NOT NULL",
	domain.ReviewedByJudgement:  "is_correct IS NOT NULL",
}

type ResultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Stats counts reviewed rows in range and how many of them were judged correct
func (r *ResultRepository) Stats(ctx context.Context, tr domain.TimeRange, by domain.ReviewedBy) (domain.Accuracy, error) {
	clause, ok := reviewedClause[by]
	if !ok {
		return domain.Accuracy{}, fmt.Errorf("unknown reviewed definition %q", by)
	}
	q := `
SELECT COUNT(*) AS checked,
       COALESCE(SUM(CASE WHEN is_correct = 1 THEN 1 ELSE 0 END), 0) AS correct
FROM analysis_results
WHERE analyzed_at BETWEEN ? AND ?
  AND ` + clause + `;`

	var acc domain.Accuracy
	if err := r.db.QueryRowContext(ctx, q, tr.Start, tr.End).Scan(&acc.Checked, &acc.Correct); err != nil {
		return domain.Accuracy{}, fmt.Errorf("querying stats: %w", err)
	}
	return acc, nil
}

// Search returns the newest rows in range, optionally only the unreviewed ones
func (r *ResultRepository) Search(ctx context.Context, f domain.Filter, limit int) ([]*domain.AnalysisResult, error) {
	if limit <= 0 || limit > domain.MaxResults {
		limit = domain.MaxResults
	}
	q := `
SELECT ` + resultColumns + `
FROM analysis_results
WHERE analyzed_at BETWEEN ? AND ?`
	if f.UncheckedOnly {
		q += "\n  AND is_correct IS NULL AND correct_plate_number IS NULL"
	}
	q += "\nORDER BY analyzed_at DESC, id DESC\nLIMIT ?;"

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

// Get by ID
func (r *ResultRepository) Get(ctx context.Context, id domain.ID) (*domain.AnalysisResult, error) {
	q := `
SELECT ` + resultColumns + `
FROM analysis_results
WHERE id = ? LIMIT 1;`
	res, err := scanResult(r.db.QueryRowContext(ctx, q, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result %d: %w", id, err)
	}
	return res, nil
}

// UpdateCorrection writes the reviewer's fields in one statement
func (r *ResultRepository) UpdateCorrection(ctx context.Context, id domain.ID, c domain.Correction, isCorrect bool, at time.Time) error {
	const q = `
UPDATE analysis_results
SET correct_plate_place = ?,
    correct_plate_class = ?,
    correct_plate_hiragana = ?,
    correct_plate_number = ?,
    is_correct = ?,
    updated_at = ?
WHERE id = ?;`
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
	res.Place = stringPtr(place)
	res.Class = stringPtr(class)
	res.Hiragana = stringPtr(hira)
	res.Number = stringPtr(number)
	res.TopScore = floatPtr(top)
	res.BottomScore = floatPtr(bottom)
	res.CorrectPlace = stringPtr(cPlace)
	res.CorrectClass = stringPtr(cClass)
	res.CorrectHiragana = stringPtr(cHira)
	res.CorrectNumber = stringPtr(cNumber)
	res.IsCorrect = boolPtr(isCorrect)
	res.UpdatedAt = timePtr(updated)
	return &res, nil
}
