package middleware

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bryanwahyu/platecheck/internal/domain/results"
)

// Input validation and sanitization utilities

// MaxFieldLength bounds a correction field with no entry in FieldLimits, in runes.
const MaxFieldLength = 32

// FieldLimits are the correct_plate_* column widths, in characters.
var FieldLimits = map[string]int{
	"place":    32,
	"class":    16,
	"hiragana": 8,
	"number":   16,
}

// ValidationError marks bad client input; handlers answer 400.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

// ParseResultID validates an analysis_results identifier from a URL.
func ParseResultID(raw string) (results.ID, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, &ValidationError{Field: "id", Msg: "must be a positive integer"}
	}
	return results.ID(id), nil
}

// ValidateRange rejects a range whose end precedes its start.
func ValidateRange(tr results.TimeRange) error {
	if tr.End.Before(tr.Start) {
		return &ValidationError{Field: "range", Msg: "end is before start"}
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// SanitizeField cleans one correction field and checks it fits its column.
func SanitizeField(name, input string) (string, error) {
	s := SanitizeString(input)
	limit, ok := FieldLimits[name]
	if !ok {
		limit = MaxFieldLength
	}
	if utf8.RuneCountInString(s) > limit {
		return "", &ValidationError{Field: name, Msg: fmt.Sprintf("longer than %d characters", limit)}
	}
	return s, nil
}
