package leave

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// DURATION
// =============================================================================

func TestDuration(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"five days", day(10), day(15), 5},
		{"one day", day(10), day(11), 1},
		{"equal instants floor to one", day(10), day(10), 1},
		{"a few hours floor to one", day(10), day(10).Add(3 * time.Hour), 1},
		{"exactly half rounds up", day(10), day(11).Add(12 * time.Hour), 2},
		{"just under half rounds down", day(10), day(11).Add(11*time.Hour + 59*time.Minute), 1},
		{"across a month", day(25), time.Date(2026, time.April, 4, 0, 0, 0, 0, time.UTC), 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Duration(tt.start, tt.end))
		})
	}
}

func TestDuration_Symmetric(t *testing.T) {
	assert.Equal(t, Duration(day(3), day(17)), Duration(day(17), day(3)))
	assert.Equal(t, 14, Duration(day(17), day(3)))
}

// =============================================================================
// DATE RANGE
// =============================================================================

func TestDateRange_Overlaps(t *testing.T) {
	base := DateRange{Start: day(10), End: day(15)}

	tests := []struct {
		name  string
		other DateRange
		want  bool
	}{
		{"identical", base, true},
		{"contained", DateRange{Start: day(11), End: day(12)}, true},
		{"containing", DateRange{Start: day(1), End: day(20)}, true},
		{"shares end boundary", DateRange{Start: day(15), End: day(20)}, true},
		{"shares start boundary", DateRange{Start: day(5), End: day(10)}, true},
		{"entirely after", DateRange{Start: day(16), End: day(20)}, false},
		{"entirely before", DateRange{Start: day(1), End: day(9)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base), "overlap must be symmetric")
		})
	}
}

func TestDateRange_ValidAndWithinYear(t *testing.T) {
	assert.True(t, DateRange{Start: day(1), End: day(2)}.Valid())
	assert.False(t, DateRange{Start: day(2), End: day(2)}.Valid())
	assert.False(t, DateRange{Start: day(3), End: day(2)}.Valid())

	assert.True(t, DateRange{Start: day(1), End: day(2)}.WithinYear(2026))
	spanning := DateRange{
		Start: time.Date(2026, time.December, 30, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2027, time.January, 2, 0, 0, 0, 0, time.UTC),
	}
	assert.False(t, spanning.WithinYear(2026))
	assert.False(t, spanning.WithinYear(2027))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, day(10), d)

	ts, err := ParseDate("2026-03-10T12:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, day(10).Add(10*time.Hour), ts)
	assert.Equal(t, time.UTC, ts.Location())

	_, err = ParseDate("10/03/2026")
	assert.Error(t, err)
}

// =============================================================================
// STATUS
// =============================================================================

func TestStatus_Transitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusApproved))
	assert.True(t, StatusPending.CanTransitionTo(StatusRejected))

	assert.False(t, StatusPending.CanTransitionTo(StatusPending))
	assert.False(t, StatusApproved.CanTransitionTo(StatusApproved))
	assert.False(t, StatusApproved.CanTransitionTo(StatusRejected))
	assert.False(t, StatusRejected.CanTransitionTo(StatusApproved))
	assert.False(t, StatusRejected.CanTransitionTo(StatusPending))
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" approved ")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, st)

	_, err = ParseStatus("CANCELLED")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestSettlement(t *testing.T) {
	dir, ok := settlement(StatusRejected)
	assert.True(t, ok)
	assert.Equal(t, Credit, dir)

	_, ok = settlement(StatusApproved)
	assert.False(t, ok, "approval keeps the creation charge")
}
