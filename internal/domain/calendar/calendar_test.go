package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opalestay/internal/domain/property"
	"opalestay/internal/domain/shared/daterange"
	"opalestay/internal/domain/shared/failure"
)

func mustClosed(t *testing.T, start, end string) daterange.Closed {
	t.Helper()
	c, err := daterange.ParseClosed(start, end)
	require.NoError(t, err)
	return c
}

func mustStay(t *testing.T, in, out string) daterange.DateRange {
	t.Helper()
	dr, err := daterange.ParseStay(in, out)
	require.NoError(t, err)
	return dr
}

func period(t *testing.T, id, start, end string) *BlockedPeriod {
	t.Helper()
	p, err := NewBlockedPeriod(NewPeriodParams{
		ID:       PeriodID(id),
		Property: property.ValerySourcesBaie,
		Range:    mustClosed(t, start, end),
		Reason:   "travaux",
		Now:      time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return p
}

func TestNewBlockedPeriod(t *testing.T) {
	t.Run("defaults reason and records event", func(t *testing.T) {
		p, err := NewBlockedPeriod(NewPeriodParams{
			ID:       "p1",
			Property: property.TouquetPinede,
			Range:    mustClosed(t, "2025-02-01", "2025-02-03"),
			Now:      time.Now(),
		})
		require.NoError(t, err)
		assert.Equal(t, DefaultReason, p.Reason)
		evs := p.Drain()
		require.Len(t, evs, 1)
		assert.Equal(t, "calendar.blocked", evs[0].EventName())
		assert.Empty(t, p.PendingEvents())
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		_, err := NewBlockedPeriod(NewPeriodParams{
			ID:       "p1",
			Property: property.TouquetPinede,
			Range:    daterange.Closed{Start: time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
		})
		assert.ErrorIs(t, err, failure.ErrValidation)
	})

	t.Run("rejects unknown property", func(t *testing.T) {
		_, err := NewBlockedPeriod(NewPeriodParams{ID: "p1", Property: "le-crotoy", Range: mustClosed(t, "2025-02-01", "2025-02-01")})
		assert.ErrorIs(t, err, property.ErrUnknownProperty)
	})
}

func TestEnsureNoOverlap(t *testing.T) {
	existing := []*BlockedPeriod{period(t, "p1", "2025-01-01", "2025-01-10")}
	err := EnsureNoOverlap(existing, mustClosed(t, "2025-01-10", "2025-01-12"))
	assert.ErrorIs(t, err, ErrOverlappingPeriod)
	assert.ErrorIs(t, err, failure.ErrConflict)
	assert.NoError(t, EnsureNoOverlap(existing, mustClosed(t, "2025-01-11", "2025-01-12")))
}

func TestResiduals(t *testing.T) {
	blocked := mustClosed(t, "2025-01-01", "2025-01-10")

	t.Run("release strictly inside leaves two residuals", func(t *testing.T) {
		got := Residuals(blocked, mustClosed(t, "2025-01-03", "2025-01-05"))
		assert.Equal(t, []daterange.Closed{
			mustClosed(t, "2025-01-01", "2025-01-02"),
			mustClosed(t, "2025-01-06", "2025-01-10"),
		}, got)
	})

	t.Run("release covering the period leaves nothing", func(t *testing.T) {
		inner := mustClosed(t, "2025-01-03", "2025-01-05")
		assert.Empty(t, Residuals(inner, blocked))
	})

	t.Run("release clipping the head", func(t *testing.T) {
		got := Residuals(blocked, mustClosed(t, "2024-12-28", "2025-01-04"))
		assert.Equal(t, []daterange.Closed{mustClosed(t, "2025-01-05", "2025-01-10")}, got)
	})

	t.Run("release clipping the tail on the last day", func(t *testing.T) {
		got := Residuals(blocked, mustClosed(t, "2025-01-10", "2025-01-20"))
		assert.Equal(t, []daterange.Closed{mustClosed(t, "2025-01-01", "2025-01-09")}, got)
	})

	t.Run("disjoint release keeps the period", func(t *testing.T) {
		assert.Equal(t, []daterange.Closed{blocked}, Residuals(blocked, mustClosed(t, "2025-02-01", "2025-02-02")))
	})
}

func TestResidualsPreserveDatesOutsideRelease(t *testing.T) {
	blocked := mustClosed(t, "2025-03-01", "2025-03-31")
	releases := []daterange.Closed{
		mustClosed(t, "2025-03-01", "2025-03-01"),
		mustClosed(t, "2025-03-15", "2025-03-20"),
		mustClosed(t, "2025-02-20", "2025-03-05"),
		mustClosed(t, "2025-03-31", "2025-04-05"),
	}
	for _, release := range releases {
		t.Run(release.String(), func(t *testing.T) {
			residuals := Residuals(blocked, release)
			blocked.EachDay(func(d time.Time) {
				covered := false
				for _, r := range residuals {
					assert.False(t, r.Overlaps(release))
					if r.Contains(d) {
						covered = true
					}
				}
				assert.Equal(t, !release.Contains(d), covered, daterange.Format(d))
			})
		})
	}
}

func TestSplitError(t *testing.T) {
	cause := errors.New("write conflict")
	err := error(&SplitError{Failures: []ResidualFailure{{ParentID: "p1", Range: mustClosed(t, "2025-01-06", "2025-01-10"), Reason: "travaux", Err: cause}}})
	assert.ErrorIs(t, err, ErrPartialSplit)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "2025-01-06..2025-01-10")
}

func TestExpand(t *testing.T) {
	t.Run("departure day of a booking stays free", func(t *testing.T) {
		exp := Expand(nil, []Occupancy{{Ref: "b1", Stay: mustStay(t, "2025-09-21", "2025-09-26")}})
		assert.Equal(t, []string{"2025-09-21", "2025-09-22", "2025-09-23", "2025-09-24", "2025-09-25"}, FormatDays(exp.Disabled))
		assert.Equal(t, []string{"2025-09-26"}, FormatDays(exp.DepartureDays))
	})

	t.Run("single day block is fully disabled", func(t *testing.T) {
		exp := Expand([]*BlockedPeriod{period(t, "p1", "2025-05-08", "2025-05-08")}, nil)
		assert.Equal(t, []string{"2025-05-08"}, FormatDays(exp.Disabled))
		assert.Empty(t, exp.DepartureDays)
	})

	t.Run("multi day block frees its end date", func(t *testing.T) {
		exp := Expand([]*BlockedPeriod{period(t, "p1", "2025-05-08", "2025-05-11")}, nil)
		assert.Equal(t, []string{"2025-05-08", "2025-05-09", "2025-05-10"}, FormatDays(exp.Disabled))
		assert.Equal(t, []string{"2025-05-11"}, FormatDays(exp.DepartureDays))
	})

	t.Run("results are sorted and deduplicated", func(t *testing.T) {
		exp := Expand(
			[]*BlockedPeriod{period(t, "p2", "2025-06-10", "2025-06-12"), period(t, "p1", "2025-06-01", "2025-06-03")},
			[]Occupancy{
				{Ref: "b1", Stay: mustStay(t, "2025-06-02", "2025-06-05")},
				{Ref: "b2", Stay: mustStay(t, "2025-06-05", "2025-06-06")},
			},
		)
		assert.Equal(t, []string{"2025-06-01", "2025-06-02", "2025-06-03", "2025-06-04", "2025-06-05", "2025-06-10", "2025-06-11"}, FormatDays(exp.Disabled))
		assert.Equal(t, []string{"2025-06-03", "2025-06-05", "2025-06-06", "2025-06-12"}, FormatDays(exp.DepartureDays))
	})

	t.Run("inconsistent records are skipped with a warning", func(t *testing.T) {
		broken := &BlockedPeriod{ID: "bad", Property: property.ValerySourcesBaie, Range: daterange.Closed{
			Start: time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		}}
		badStay := daterange.DateRange{CheckIn: time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC), CheckOut: time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC)}
		exp := Expand(
			[]*BlockedPeriod{broken, period(t, "ok", "2025-07-20", "2025-07-20")},
			[]Occupancy{{Ref: "b-bad", Stay: badStay}},
		)
		assert.Equal(t, []string{"2025-07-20"}, FormatDays(exp.Disabled))
		require.Len(t, exp.IntegrityWarning, 2)
		assert.Equal(t, "bad", exp.IntegrityWarning[0].Ref)
		assert.Equal(t, "b-bad", exp.IntegrityWarning[1].Ref)
	})
}

func TestFilterMatches(t *testing.T) {
	p := period(t, "p1", "2025-01-03", "2025-01-05")
	within := mustClosed(t, "2025-01-01", "2025-01-31")
	assert.True(t, Filter{}.Matches(p))
	assert.True(t, Filter{Property: property.ValerySourcesBaie, IDs: []PeriodID{"p0", "p1"}, Within: &within}.Matches(p))
	assert.False(t, Filter{Property: property.TouquetPinede}.Matches(p))
	assert.False(t, Filter{IDs: []PeriodID{"p2"}}.Matches(p))
	narrow := mustClosed(t, "2025-01-04", "2025-01-31")
	assert.False(t, Filter{Within: &narrow}.Matches(p))
}
