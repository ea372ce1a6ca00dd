package coerce

// convert.go turns raw CSV cells into typed values.
//
// These functions handle the messy reality of exported sales data:
//   - Multiple date formats (US, EU, ISO, timestamps)
//   - Currency symbols and thousand separators in numbers
//   - Accounting negatives "(12.50)"
//   - Excel formula prefixes (="value")

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

var (
	errNotNumber  = errors.New("not a number")
	errNotInteger = errors.New("not a whole number")
	errOverflow   = errors.New("out of integer range")
	errNotDate    = errors.New("no accepted date format matches")
)

// DefaultDateLayouts is the accepted datetime format list, tried in order.
// Timestamps come first, then 4-digit year layouts (unambiguous), then the
// 2-digit year layouts that go through the pivot.
var DefaultDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
	"2006-01-02", "2006/01/02", "2006.01.02",
	"Jan 2, 2006", "2 Jan 2006", "January 2, 2006", "02-Jan-2006",
	"20060102",
	"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// cleanNumeric strips currency symbols, thousands separators and the
// accounting parentheses from s. The result is not validated.
func cleanNumeric(s string) string {
	s = CleanCell(s)

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}
	return s
}

// ParseNumber converts a cell to float64.
// Handles currency symbols, thousands separators, and accounting format
// (parentheses for negative).
func ParseNumber(s string) (float64, error) {
	s = cleanNumeric(s)
	if !numericRegex.MatchString(s) {
		return 0, errNotNumber
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, errNotNumber
	}
	return f, nil
}

// ParseInteger converts a cell to int64. Integral decimals such as "10.0"
// are accepted; fractional values are not.
func ParseInteger(s string) (int64, error) {
	s = cleanNumeric(s)
	if !numericRegex.MatchString(s) {
		return 0, errNotNumber
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, errNotNumber
	}
	if f != math.Trunc(f) {
		return 0, errNotInteger
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, errOverflow
	}
	return int64(f), nil
}

// DateParser parses datetimes against an ordered layout list.
type DateParser struct {
	layouts []string
	now     func() time.Time
}

// NewDateParser builds a parser. An empty layout list selects
// DefaultDateLayouts; a nil clock selects time.Now.
func NewDateParser(layouts []string, now func() time.Time) *DateParser {
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	if now == nil {
		now = time.Now
	}
	out := make([]string, len(layouts))
	copy(out, layouts)
	return &DateParser{layouts: out, now: now}
}

// Layouts returns the accepted layouts in trial order.
func (p *DateParser) Layouts() []string {
	out := make([]string, len(p.layouts))
	copy(out, p.layouts)
	return out
}

// Parse returns the first layout match. Two-digit years more than
// TwoDigitYearPivot years in the future are moved back a century.
func (p *DateParser) Parse(s string) (time.Time, error) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, errNotDate
	}

	pivotYear := p.now().Year() + TwoDigitYearPivot
	for _, layout := range p.layouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if twoDigitYear(layout) && t.Year() > pivotYear {
			t = t.AddDate(-100, 0, 0)
		}
		return t, nil
	}
	return time.Time{}, errNotDate
}

func twoDigitYear(layout string) bool {
	return strings.Contains(layout, "06") && !strings.Contains(layout, "2006")
}

// ValidateLayouts rejects layouts that cannot round-trip a reference time.
func ValidateLayouts(layouts []string) error {
	ref := time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)
	for _, l := range layouts {
		if strings.TrimSpace(l) == "" {
			return errors.New("empty date layout")
		}
		if _, err := time.Parse(l, ref.Format(l)); err != nil {
			return fmt.Errorf("date layout %q: %w", l, err)
		}
	}
	return nil
}
