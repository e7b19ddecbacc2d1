package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DURATION - Whole days charged for a date range
// =============================================================================

const dayMillis = int64(24 * time.Hour / time.Millisecond)

var millisPerDay = decimal.NewFromInt(dayMillis)

// Duration returns the number of days charged for a range:
// max(1, round(|end - start| / 1 day)).
//
// The difference is taken in milliseconds and rounded half away from zero.
// Argument order does not matter. Equal instants charge one day.
func Duration(start, end time.Time) int {
	diff := end.UnixMilli() - start.UnixMilli()
	if diff < 0 {
		diff = -diff
	}

	days := decimal.NewFromInt(diff).Div(millisPerDay).Round(0).IntPart()
	if days < 1 {
		return 1
	}
	return int(days)
}

// =============================================================================
// DATE RANGE - Inclusive [Start, End]
// =============================================================================

type DateRange struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether Start is strictly before End.
func (r DateRange) Valid() bool {
	return r.Start.Before(r.End)
}

// Days returns the charged duration of the range.
func (r DateRange) Days() int {
	return Duration(r.Start, r.End)
}

// Overlaps reports whether two ranges share at least one instant.
// Boundaries are inclusive: ranges that only touch at an end point overlap.
func (r DateRange) Overlaps(other DateRange) bool {
	return !(r.End.Before(other.Start) || r.Start.After(other.End))
}

// WithinYear reports whether both ends fall in the given UTC calendar year.
func (r DateRange) WithinYear(year int) bool {
	return r.Start.UTC().Year() == year && r.End.UTC().Year() == year
}

func (r DateRange) String() string {
	return "[" + r.Start.UTC().Format(time.RFC3339) + ", " + r.End.UTC().Format(time.RFC3339) + "]"
}

// =============================================================================
// DATE PARSING
// =============================================================================

const dateLayout = "2006-01-02"

// ParseDate accepts a calendar date (YYYY-MM-DD, midnight UTC) or an RFC 3339 instant.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func (p LeavePayload) dateRange() (DateRange, error) {
	start, err := ParseDate(p.StartDate)
	if err != nil {
		return DateRange{}, err
	}
	end, err := ParseDate(p.EndDate)
	if err != nil {
		return DateRange{}, err
	}
	return DateRange{Start: start, End: end}, nil
}
