package promotion

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// DATE - Calendar date (day granularity, UTC)
// =============================================================================

// Date is a calendar day. The zero value is "no date".
type Date struct {
	Time time.Time
}

// DateLayout is the textual day-month-year form exchanged at the boundary.
const DateLayout = "02-01-2006"

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func Today() Date {
	now := time.Now()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// ParseDate parses a DD-MM-YYYY date. Single-digit day and month are
// accepted ("5-3-1970"). Out-of-range components are rejected rather than
// normalized, so 31-02-1970 is an error.
func ParseDate(s string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("%w: %q: want DD-MM-YYYY", ErrInvalidDate, s)
	}

	var nums [3]int
	for i, p := range parts {
		if !isDigits(p) {
			return Date{}, fmt.Errorf("%w: %q: bad component %q", ErrInvalidDate, s, p)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return Date{}, fmt.Errorf("%w: %q: bad component %q", ErrInvalidDate, s, p)
		}
		nums[i] = n
	}
	day, month, year := nums[0], nums[1], nums[2]
	if len(parts[2]) != 4 {
		return Date{}, fmt.Errorf("%w: %q: year must have four digits", ErrInvalidDate, s)
	}
	if month > 12 {
		return Date{}, fmt.Errorf("%w: %q: month %d out of range", ErrInvalidDate, s, month)
	}
	if day > EndOfMonth(year, time.Month(month)).Day() {
		return Date{}, fmt.Errorf("%w: %q: day %d out of range", ErrInvalidDate, s, day)
	}
	return NewDate(year, time.Month(month), day), nil
}

// isDigits reports whether p is non-empty and only ASCII digits.
func isDigits(p string) bool {
	if p == "" {
		return false
	}
	for i := 0; i < len(p); i++ {
		if p[i] < '0' || p[i] > '9' {
			return false
		}
	}
	return true
}

// MustParseDate is ParseDate for literals in tests and presets.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) IsZero() bool                  { return d.Time.IsZero() }

// Compare returns -1, 0 or +1.
func (d Date) Compare(other Date) int { return d.Time.Compare(other.Time) }

// Properties
func (d Date) Year() int          { return d.Time.Year() }
func (d Date) Month() time.Month  { return d.Time.Month() }
func (d Date) Day() int           { return d.Time.Day() }
func (d Date) AddDays(n int) Date { return Date{Time: d.Time.AddDate(0, 0, n)} }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time.Format(DateLayout)
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func EndOfMonth(year int, month time.Month) Date {
	return Date{Time: time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)}
}
