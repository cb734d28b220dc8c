// Package calendar owns admin blocked periods: closed ranges of calendar dates during
// which an apartment cannot be booked.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"opalestay/internal/domain/property"
	"opalestay/internal/domain/shared/daterange"
	"opalestay/internal/domain/shared/events"
	"opalestay/internal/domain/shared/failure"
)

var (
	ErrOverlappingPeriod = fmt.Errorf("%w: calendar: range overlaps an existing blocked period", failure.ErrConflict)
	ErrPeriodNotFound    = fmt.Errorf("%w: calendar: blocked period not found", failure.ErrNotFound)
	ErrPartialSplit      = errors.New("calendar: unblock rolled back, a residual period could not be stored")
)

// DefaultReason is stored when the admin blocks dates without giving a reason.
const DefaultReason = "blocked"

type PeriodID string

type BlockedPeriod struct {
	ID        PeriodID
	Property  property.Key
	Range     daterange.Closed
	Reason    string
	CreatedAt time.Time
	events.EventRecorder
}

// Filter selects periods for bulk deletion. Empty fields match everything.
type Filter struct {
	Property property.Key
	IDs      []PeriodID
	Within   *daterange.Closed
}

func (f Filter) Matches(p *BlockedPeriod) bool {
	if f.Property != "" && p.Property != f.Property {
		return false
	}
	if len(f.IDs) > 0 {
		found := false
		for _, id := range f.IDs {
			if id == p.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Within != nil && !(f.Within.Contains(p.Range.Start) && f.Within.Contains(p.Range.End)) {
		return false
	}
	return true
}

type Repository interface {
	ByID(ctx context.Context, id PeriodID) (*BlockedPeriod, error)
	// FindOverlapping returns periods intersecting r under closed-interval semantics.
	FindOverlapping(ctx context.Context, key property.Key, r daterange.Closed) ([]*BlockedPeriod, error)
	// ListFrom returns periods whose end date is on or after day.
	ListFrom(ctx context.Context, key property.Key, day time.Time) ([]*BlockedPeriod, error)
	Insert(ctx context.Context, p *BlockedPeriod) error
	DeleteByID(ctx context.Context, id PeriodID) error
	DeleteMany(ctx context.Context, filter Filter) (int, error)
}

type NewPeriodParams struct {
	ID       PeriodID
	Property property.Key
	Range    daterange.Closed
	Reason   string
	Now      time.Time
}

// NewBlockedPeriod validates the range and records a CalendarBlocked event.
func NewBlockedPeriod(params NewPeriodParams) (*BlockedPeriod, error) {
	if !params.Property.Valid() {
		return nil, fmt.Errorf("%w: %q", property.ErrUnknownProperty, string(params.Property))
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if params.ID == "" {
		return nil, failure.Validation("calendar: period id required")
	}
	reason := strings.TrimSpace(params.Reason)
	if reason == "" {
		reason = DefaultReason
	}
	now := params.Now.UTC()
	p := &BlockedPeriod{
		ID:        params.ID,
		Property:  params.Property,
		Range:     daterange.Closed{Start: daterange.Day(params.Range.Start), End: daterange.Day(params.Range.End)},
		Reason:    reason,
		CreatedAt: now,
	}
	p.Record(CalendarBlocked{Property: string(p.Property), PeriodID: string(p.ID), Start: daterange.Format(p.Range.Start), End: daterange.Format(p.Range.End), Reason: reason, At: now})
	return p, nil
}

// EnsureNoOverlap rejects r when any existing period intersects it.
func EnsureNoOverlap(existing []*BlockedPeriod, r daterange.Closed) error {
	for _, p := range existing {
		if p.Range.Overlaps(r) {
			return fmt.Errorf("%w: %s (%s)", ErrOverlappingPeriod, p.Range, p.ID)
		}
	}
	return nil
}

// BlockedDays is the part of the period closed to overnight stays. A single-day period
// blocks its day; a longer one leaves its end date open for arrival.
func (p *BlockedPeriod) BlockedDays() daterange.Closed {
	if p.Range.SingleDay() {
		return p.Range
	}
	return daterange.Closed{Start: p.Range.Start, End: daterange.AddDays(p.Range.End, -1)}
}

// BlocksStay reports whether one of the stay's nights falls on a blocked day.
func (p *BlockedPeriod) BlocksStay(stay daterange.DateRange) bool {
	nights, ok := stay.Occupied()
	return ok && nights.Overlaps(p.BlockedDays())
}

// Validate reports data-integrity problems of a stored period.
func (p *BlockedPeriod) Validate() error {
	if p.Range.Start.IsZero() || p.Range.End.IsZero() {
		return fmt.Errorf("%w: period %s has missing dates", failure.ErrDataIntegrity, p.ID)
	}
	if p.Range.End.Before(p.Range.Start) {
		return fmt.Errorf("%w: period %s ends %s before it starts %s", failure.ErrDataIntegrity, p.ID, daterange.Format(p.Range.End), daterange.Format(p.Range.Start))
	}
	return nil
}
