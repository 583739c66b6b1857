package results

import "testing"

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

func TestAccuracyPercentage(t *testing.T) {
	cases := []struct {
		name string
		acc  Accuracy
		want float64
	}{
		{"nothing checked", Accuracy{}, 0},
		{"correct without checked", Accuracy{Checked: 0, Correct: 3}, 0},
		{"seventy percent", Accuracy{Checked: 10, Correct: 7}, 70.0},
		{"all correct", Accuracy{Checked: 4, Correct: 4}, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.acc.Percentage(); got != tc.want {
				t.Fatalf("Percentage() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestReviewed(t *testing.T) {
	r := &AnalysisResult{Place: strp("品川")}
	if r.Reviewed() {
		t.Fatalf("fresh row should not be reviewed")
	}
	r.IsCorrect = boolp(false)
	if !r.Reviewed() {
		t.Fatalf("explicit is_correct=false counts as reviewed")
	}
	r = &AnalysisResult{CorrectNumber: strp("12-34")}
	if !r.Reviewed() {
		t.Fatalf("corrected number counts as reviewed")
	}
}

func TestDraftPrefersCorrection(t *testing.T) {
	r := &AnalysisResult{
		Place:         strp("品川"),
		Class:         strp("300"),
		Hiragana:      strp("あ"),
		Number:        strp("12-34"),
		CorrectPlace:  strp("練馬"),
		CorrectNumber: strp(""),
	}
	got := r.Draft()
	want := Correction{Place: "練馬", Class: "300", Hiragana: "あ", Number: "12-34"}
	if got != want {
		t.Fatalf("Draft() = %+v, want %+v", got, want)
	}
}

func TestReviewedByValid(t *testing.T) {
	if !ReviewedByCorrection.Valid() || !ReviewedByJudgement.Valid() {
		t.Fatalf("known definitions must be valid")
	}
	if ReviewedBy("either").Valid() {
		t.Fatalf("unknown definition accepted")
	}
}
