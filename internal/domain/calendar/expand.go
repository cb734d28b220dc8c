package calendar

import (
	"sort"
	"time"

	"opalestay/internal/domain/shared/daterange"
)

// Occupancy is a stay that keeps nights off the calendar; the departure day is free.
type Occupancy struct {
	Ref  string
	Stay daterange.DateRange
}

// IntegrityWarning describes a stored record skipped during expansion.
type IntegrityWarning struct {
	Kind   string `json:"kind"`
	Ref    string `json:"ref"`
	Reason string `json:"reason"`
}

type Expansion struct {
	Disabled         []time.Time
	DepartureDays    []time.Time
	IntegrityWarning []IntegrityWarning
}

// Expand turns periods and stays into the literal set of disabled dates and the set of
// dates that stay open for arrival because something ends there. A single-day period
// blocks its day; a longer period frees its end date the same way a departure does.
func Expand(periods []*BlockedPeriod, stays []Occupancy) Expansion {
	disabled := map[time.Time]struct{}{}
	departures := map[time.Time]struct{}{}
	var warnings []IntegrityWarning

	for _, p := range periods {
		if p == nil {
			continue
		}
		if err := p.Validate(); err != nil {
			warnings = append(warnings, IntegrityWarning{Kind: "blocked_period", Ref: string(p.ID), Reason: err.Error()})
			continue
		}
		p.BlockedDays().EachDay(func(d time.Time) {
			disabled[d] = struct{}{}
		})
		if !p.Range.SingleDay() {
			departures[daterange.Day(p.Range.End)] = struct{}{}
		}
	}

	for _, o := range stays {
		if o.Stay.CheckIn.IsZero() || o.Stay.CheckOut.IsZero() || !o.Stay.CheckOut.After(o.Stay.CheckIn) {
			warnings = append(warnings, IntegrityWarning{Kind: "booking", Ref: o.Ref, Reason: "booking departure is not after arrival"})
			continue
		}
		o.Stay.EachNight(func(d time.Time) {
			disabled[d] = struct{}{}
		})
		departures[daterange.Day(o.Stay.CheckOut)] = struct{}{}
	}

	return Expansion{
		Disabled:         sortedDays(disabled),
		DepartureDays:    sortedDays(departures),
		IntegrityWarning: warnings,
	}
}

func sortedDays(set map[time.Time]struct{}) []time.Time {
	out := make([]time.Time, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// FormatDays renders days as ISO strings.
func FormatDays(days []time.Time) []string {
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, daterange.Format(d))
	}
	return out
}
