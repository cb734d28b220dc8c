package daterange

import (
	"fmt"
	"strings"
	"time"

	"opalestay/internal/domain/shared/failure"
)

// ISOLayout is the calendar-date format used whenever a date crosses the core boundary.
const ISOLayout = "2006-01-02"

var (
	ErrInvalidRange = fmt.Errorf("%w: daterange: end must not precede start", failure.ErrValidation)
	ErrInvalidStay  = fmt.Errorf("%w: daterange: checkout must be after checkin", failure.ErrValidation)
	ErrInvalidDate  = fmt.Errorf("%w: daterange: invalid calendar date", failure.ErrValidation)
)

// Day anchors t to UTC midnight of its UTC calendar date.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Parse reads a YYYY-MM-DD string into a UTC midnight instant.
func Parse(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	t, err := time.ParseInLocation(ISOLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return t, nil
}

// Format renders the UTC calendar date of t.
func Format(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// AddDays shifts a day by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

// DateRange represents a half-open interval [checkIn, checkOut): the checkout day is
// not an occupied night.
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// ParseStay builds a half-open range from two ISO dates.
func ParseStay(checkIn, checkOut string) (DateRange, error) {
	in, err := Parse(checkIn)
	if err != nil {
		return DateRange{}, err
	}
	out, err := Parse(checkOut)
	if err != nil {
		return DateRange{}, err
	}
	return New(in, out)
}

func (dr DateRange) Validate() error {
	if dr.CheckOut.IsZero() || dr.CheckIn.IsZero() {
		return ErrInvalidStay
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidStay
	}
	return nil
}

func (dr DateRange) Nights() int {
	return int(Day(dr.CheckOut).Sub(Day(dr.CheckIn)).Hours() / 24)
}

// Overlaps is the strict overlap used between stays: an arrival on another stay's
// departure day is not an overlap.
func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

func (dr DateRange) ContainsDate(t time.Time) bool {
	t = t.UTC()
	return (t.Equal(dr.CheckIn) || t.After(dr.CheckIn)) && t.Before(dr.CheckOut)
}

// EachNight calls fn for every occupied night, checkIn inclusive, checkOut exclusive.
func (dr DateRange) EachNight(fn func(day time.Time)) {
	for d := Day(dr.CheckIn); d.Before(Day(dr.CheckOut)); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}

// Occupied returns the nights of the stay as a closed range. ok is false when the stay
// has no nights.
func (dr DateRange) Occupied() (Closed, bool) {
	if !dr.CheckOut.After(dr.CheckIn) {
		return Closed{}, false
	}
	return Closed{Start: Day(dr.CheckIn), End: AddDays(dr.CheckOut, -1)}, true
}

// Closed is an interval of calendar dates including both endpoints.
type Closed struct {
	Start time.Time
	End   time.Time
}

func NewClosed(start, end time.Time) (Closed, error) {
	c := Closed{Start: Day(start), End: Day(end)}
	if err := c.Validate(); err != nil {
		return Closed{}, err
	}
	return c, nil
}

// ParseClosed builds a closed range from two ISO dates.
func ParseClosed(start, end string) (Closed, error) {
	s, err := Parse(start)
	if err != nil {
		return Closed{}, err
	}
	e, err := Parse(end)
	if err != nil {
		return Closed{}, err
	}
	return NewClosed(s, e)
}

func (c Closed) Validate() error {
	if c.Start.IsZero() || c.End.IsZero() {
		return ErrInvalidRange
	}
	if c.End.Before(c.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Overlaps reports closed-interval intersection; it is symmetric.
func (c Closed) Overlaps(other Closed) bool {
	return !c.Start.After(other.End) && !c.End.Before(other.Start)
}

func (c Closed) Contains(day time.Time) bool {
	day = Day(day)
	return !day.Before(c.Start) && !day.After(c.End)
}

// SingleDay reports whether the range covers exactly one calendar date.
func (c Closed) SingleDay() bool {
	return Day(c.Start).Equal(Day(c.End))
}

func (c Closed) Days() int {
	return int(Day(c.End).Sub(Day(c.Start)).Hours()/24) + 1
}

func (c Closed) EachDay(fn func(day time.Time)) {
	for d := Day(c.Start); !d.After(Day(c.End)); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}

func (c Closed) String() string {
	return Format(c.Start) + ".." + Format(c.End)
}
