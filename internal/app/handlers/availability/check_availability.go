package availability

import (
	"context"
	"time"

	"opalestay/internal/app/dto"
	"opalestay/internal/app/queries"
	"opalestay/internal/app/uow"
	domainbooking "opalestay/internal/domain/booking"
	domaincalendar "opalestay/internal/domain/calendar"
	"opalestay/internal/domain/property"
	"opalestay/internal/domain/shared/daterange"
)

const checkAvailabilityKey = "availability.check"

type CheckAvailabilityQuery struct {
	Property string `validate:"required"`
	Start    string `validate:"required,isodate"`
	End      string `validate:"required,isodate"`
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

func (q CheckAvailabilityQuery) SnapshotRead() bool { return true }

// Check rejects a window whose end does not follow its start.
func (q CheckAvailabilityQuery) Check() error {
	_, err := q.window()
	return err
}

func (q CheckAvailabilityQuery) window() (daterange.DateRange, error) {
	start, err := daterange.Parse(q.Start)
	if err != nil {
		return daterange.DateRange{}, err
	}
	end, err := daterange.Parse(q.End)
	if err != nil {
		return daterange.DateRange{}, err
	}
	if !end.After(start) {
		return daterange.DateRange{}, daterange.ErrInvalidRange
	}
	return daterange.DateRange{CheckIn: start, CheckOut: end}, nil
}

type CheckAvailabilityHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.Availability, error) {
	key, err := property.Parse(q.Property)
	if err != nil {
		return dto.Availability{}, err
	}
	stay, err := q.window()
	if err != nil {
		return dto.Availability{}, err
	}

	unit, execCtx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.ReadSnapshot())
	if err != nil {
		return dto.Availability{}, err
	}
	conflicts, err := FindConflicts(execCtx, unit, key, stay, "")
	if err = finish(err); err != nil {
		return dto.Availability{}, err
	}

	return dto.Availability{
		Property:         string(key),
		Start:            daterange.Format(stay.CheckIn),
		End:              daterange.Format(stay.CheckOut),
		Available:        conflicts.Empty(),
		BlockedConflicts: dto.MapBlockedPeriods(conflicts.Blocked),
		BookingConflicts: dto.MapBookingSummaries(conflicts.Bookings),
	}, nil
}

// Conflicts lists what prevents a stay from being booked.
type Conflicts struct {
	Blocked  []*domaincalendar.BlockedPeriod
	Bookings []*domainbooking.Booking
}

func (c Conflicts) Empty() bool {
	return len(c.Blocked) == 0 && len(c.Bookings) == 0
}

// FindConflicts checks the nights of stay against the blocked days of each period and
// against active bookings, departure days excluded on both sides. This is the rule the
// disabled-date expansion applies. A booking whose id is exclude is ignored.
func FindConflicts(ctx context.Context, unit uow.UnitOfWork, key property.Key, stay daterange.DateRange, exclude domainbooking.BookingID) (Conflicts, error) {
	nights, ok := stay.Occupied()
	if !ok {
		return Conflicts{}, daterange.ErrInvalidStay
	}
	candidates, err := unit.BlockedPeriods().FindOverlapping(ctx, key, nights)
	if err != nil {
		return Conflicts{}, err
	}
	bookings, err := unit.Bookings().FindOverlapping(ctx, key, stay, domainbooking.ActiveStatuses)
	if err != nil {
		return Conflicts{}, err
	}
	var out Conflicts
	for _, p := range candidates {
		if p.BlocksStay(stay) {
			out.Blocked = append(out.Blocked, p)
		}
	}
	for _, b := range bookings {
		if exclude != "" && b.ID == exclude {
			continue
		}
		out.Bookings = append(out.Bookings, b)
	}
	return out, nil
}

var _ queries.Handler[CheckAvailabilityQuery, dto.Availability] = (*CheckAvailabilityHandler)(nil)

func today(now func() time.Time) time.Time {
	if now == nil {
		return daterange.Day(time.Now())
	}
	return daterange.Day(now())
}
