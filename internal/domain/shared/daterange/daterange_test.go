package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opalestay/internal/domain/shared/failure"
)

func day(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := Parse(raw)
	require.NoError(t, err)
	return d
}

func closed(t *testing.T, start, end string) Closed {
	t.Helper()
	c, err := ParseClosed(start, end)
	require.NoError(t, err)
	return c
}

func TestDayAnchorsToUTC(t *testing.T) {
	paris := time.FixedZone("CEST", 2*60*60)
	// 00:30 in Paris is still the previous UTC day.
	local := time.Date(2025, 9, 21, 0, 30, 0, 0, paris)
	assert.Equal(t, "2025-09-20", Format(Day(local)))
	assert.Equal(t, time.UTC, Day(local).Location())
}

func TestParse(t *testing.T) {
	d, err := Parse(" 2025-01-03 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), d)

	_, err = Parse("03/01/2025")
	assert.ErrorIs(t, err, ErrInvalidDate)
	assert.ErrorIs(t, err, failure.ErrValidation)

	_, err = Parse("")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestClosedOverlapIsSymmetric(t *testing.T) {
	cases := []struct {
		name string
		a, b Closed
		want bool
	}{
		{"disjoint", closed(t, "2025-01-01", "2025-01-02"), closed(t, "2025-01-04", "2025-01-05"), false},
		{"touching endpoint", closed(t, "2025-01-01", "2025-01-03"), closed(t, "2025-01-03", "2025-01-05"), true},
		{"adjacent days", closed(t, "2025-01-01", "2025-01-03"), closed(t, "2025-01-04", "2025-01-05"), false},
		{"contained", closed(t, "2025-01-01", "2025-01-10"), closed(t, "2025-01-03", "2025-01-05"), true},
		{"single days equal", closed(t, "2025-01-07", "2025-01-07"), closed(t, "2025-01-07", "2025-01-07"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Overlaps(tc.b))
			assert.Equal(t, tc.a.Overlaps(tc.b), tc.b.Overlaps(tc.a))
		})
	}
}

func TestClosedValidation(t *testing.T) {
	_, err := ParseClosed("2025-01-05", "2025-01-03")
	assert.ErrorIs(t, err, ErrInvalidRange)

	c := closed(t, "2025-01-05", "2025-01-05")
	assert.True(t, c.SingleDay())
	assert.Equal(t, 1, c.Days())
	assert.Equal(t, "2025-01-05..2025-01-05", c.String())
}

func TestStayOverlapExcludesDepartureDay(t *testing.T) {
	existing, err := ParseStay("2025-09-21", "2025-09-26")
	require.NoError(t, err)
	sameDayTurnover, err := ParseStay("2025-09-26", "2025-09-28")
	require.NoError(t, err)
	overlapping, err := ParseStay("2025-09-25", "2025-09-27")
	require.NoError(t, err)

	assert.False(t, existing.Overlaps(sameDayTurnover))
	assert.False(t, sameDayTurnover.Overlaps(existing))
	assert.True(t, existing.Overlaps(overlapping))
	assert.Equal(t, 5, existing.Nights())
}

func TestStayRejectsZeroLength(t *testing.T) {
	_, err := ParseStay("2025-09-21", "2025-09-21")
	assert.ErrorIs(t, err, ErrInvalidStay)
	_, err = ParseStay("2025-09-22", "2025-09-21")
	assert.ErrorIs(t, err, ErrInvalidStay)
}

func TestEachNightAndOccupied(t *testing.T) {
	stay, err := ParseStay("2025-03-29", "2025-04-02")
	require.NoError(t, err)

	var nights []string
	stay.EachNight(func(d time.Time) { nights = append(nights, Format(d)) })
	assert.Equal(t, []string{"2025-03-29", "2025-03-30", "2025-03-31", "2025-04-01"}, nights)

	occ, ok := stay.Occupied()
	require.True(t, ok)
	assert.Equal(t, closed(t, "2025-03-29", "2025-04-01"), occ)
	assert.True(t, stay.ContainsDate(day(t, "2025-04-01")))
	assert.False(t, stay.ContainsDate(day(t, "2025-04-02")))
}
