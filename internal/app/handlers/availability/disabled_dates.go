package availability

import (
	"context"
	"log/slog"
	"time"

	"opalestay/internal/app/dto"
	"opalestay/internal/app/queries"
	"opalestay/internal/app/uow"
	domaincalendar "opalestay/internal/domain/calendar"
	"opalestay/internal/domain/property"
)

const disabledDatesKey = "availability.disabled_dates"

type DisabledDatesQuery struct {
	Property string `validate:"required"`
}

func (q DisabledDatesQuery) Key() string { return disabledDatesKey }

func (q DisabledDatesQuery) SnapshotRead() bool { return true }

// DisabledDatesHandler builds the set of dates a date picker must grey out, from today on.
type DisabledDatesHandler struct {
	UoWFactory uow.UoWFactory
	Now        func() time.Time
	Logger     *slog.Logger
}

func (h *DisabledDatesHandler) Handle(ctx context.Context, q DisabledDatesQuery) (dto.DisabledDates, error) {
	key, err := property.Parse(q.Property)
	if err != nil {
		return dto.DisabledDates{}, err
	}
	from := today(h.Now)

	unit, execCtx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.ReadSnapshot())
	if err != nil {
		return dto.DisabledDates{}, err
	}
	periods, bookings, err := loadOccupancy(execCtx, unit, key, from)
	if err = finish(err); err != nil {
		return dto.DisabledDates{}, err
	}

	exp := domaincalendar.Expand(periods, bookings)
	for _, w := range exp.IntegrityWarning {
		if h.Logger != nil {
			h.Logger.WarnContext(ctx, "DataIntegrityWarning", "property", key, "kind", w.Kind, "ref", w.Ref, "reason", w.Reason)
		}
	}
	return dto.DisabledDates{
		Property:                string(key),
		DisabledDates:           domaincalendar.FormatDays(exp.Disabled),
		AvailableDepartureDates: domaincalendar.FormatDays(exp.DepartureDays),
		Skipped:                 exp.IntegrityWarning,
	}, nil
}

func loadOccupancy(ctx context.Context, unit uow.UnitOfWork, key property.Key, from time.Time) ([]*domaincalendar.BlockedPeriod, []domaincalendar.Occupancy, error) {
	periods, err := unit.BlockedPeriods().ListFrom(ctx, key, from)
	if err != nil {
		return nil, nil, err
	}
	bookings, err := unit.Bookings().ListActiveFrom(ctx, key, from)
	if err != nil {
		return nil, nil, err
	}
	stays := make([]domaincalendar.Occupancy, 0, len(bookings))
	for _, b := range bookings {
		stays = append(stays, domaincalendar.Occupancy{Ref: string(b.ID), Stay: b.Range})
	}
	return periods, stays, nil
}

var _ queries.Handler[DisabledDatesQuery, dto.DisabledDates] = (*DisabledDatesHandler)(nil)
