package results

import (
	"strconv"
	"time"
)

// MaxResults caps how many rows a single search returns.
const MaxResults = 100

// ID of a recognition row
type ID int64

func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// Correction holds the human-entered plate fields
type Correction struct {
	Place    string `json:"place"`
	Class    string `json:"class"`
	Hiragana string `json:"hiragana"`
	Number   string `json:"number"`
}

// AnalysisResult is one recognition event as written by the recognition pipeline,
// plus whatever a reviewer has corrected since.
type AnalysisResult struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Lot         string `json:"lot"`
	VehiclePath string `json:"vehicle_path"`
	PlatePath   string `json:"plate_path"`

	Place       *string  `json:"plate_place"`
	Class       *string  `json:"plate_class"`
	Hiragana    *string  `json:"plate_hiragana"`
	Number      *string  `json:"plate_number"`
	TopScore    *float64 `json:"top_score"`
	BottomScore *float64 `json:"bottom_score"`

	CorrectPlace    *string `json:"correct_plate_place"`
	CorrectClass    *string `json:"correct_plate_class"`
	CorrectHiragana *string `json:"correct_plate_hiragana"`
	CorrectNumber   *string `json:"correct_plate_number"`
	IsCorrect       *bool   `json:"is_correct"`

	AnalyzedAt time.Time  `json:"analyzed_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

// Reviewed reports whether a reviewer has touched the row.
func (r *AnalysisResult) Reviewed() bool {
	return r.CorrectPlace != nil || r.CorrectClass != nil ||
		r.CorrectHiragana != nil || r.CorrectNumber != nil ||
		r.IsCorrect != nil
}

// Draft returns the values a correction form starts from: the stored
// correction where present, otherwise the recognized value.
func (r *AnalysisResult) Draft() Correction {
	return Correction{
		Place:    firstNonEmpty(r.CorrectPlace, r.Place),
		Class:    firstNonEmpty(r.CorrectClass, r.Class),
		Hiragana: firstNonEmpty(r.CorrectHiragana, r.Hiragana),
		Number:   firstNonEmpty(r.CorrectNumber, r.Number),
	}
}

// Correct is is_correct with null read as false.
func (r *AnalysisResult) Correct() bool {
	return r.IsCorrect != nil && *r.IsCorrect
}

// TimeRange is inclusive on both ends.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Filter drives a record search.
type Filter struct {
	Range         TimeRange
	UncheckedOnly bool
}

// Accuracy is the recognition rate over reviewed rows.
type Accuracy struct {
	Checked int64 `json:"checked"`
	Correct int64 `json:"correct"`
}

// Percentage returns Correct/Checked*100, or 0 when nothing was checked.
func (a Accuracy) Percentage() float64 {
	if a.Checked <= 0 {
		return 0
	}
	return float64(a.Correct) / float64(a.Checked) * 100
}

// ReviewedBy selects which column marks a row as reviewed for Accuracy.
type ReviewedBy string

const (
	// ReviewedByCorrection counts rows with a corrected plate number.
	ReviewedByCorrection ReviewedBy = "correction"
	// ReviewedByJudgement counts rows with a non-null is_correct.
	ReviewedByJudgement ReviewedBy = "judgement"
)

// Valid reports whether b is a known definition.
func (b ReviewedBy) Valid() bool {
	return b == ReviewedByCorrection || b == ReviewedByJudgement
}

func nonEmpty(s *string) bool { return s != nil && *s != "" }

func firstNonEmpty(vals ...*string) string {
	for _, v := range vals {
		if nonEmpty(v) {
			return *v
		}
	}
	return ""
}
