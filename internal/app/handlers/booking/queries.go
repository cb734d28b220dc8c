package booking

import (
	"context"

	"opalestay/internal/app/dto"
	"opalestay/internal/app/uow"
	domainbooking "opalestay/internal/domain/booking"
	"opalestay/internal/domain/property"
)

const (
	getBookingKey   = "booking.get"
	listBookingsKey = "booking.list"
)

type GetBookingQuery struct {
	ID string `validate:"required"`
}

func (q GetBookingQuery) Key() string { return getBookingKey }

// ListBookingsQuery lists a property's bookings, optionally of one status.
type ListBookingsQuery struct {
	Property string `validate:"required"`
	Status   string
}

func (q ListBookingsQuery) Key() string { return listBookingsKey }

type QueriesHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *QueriesHandler) Get(ctx context.Context, q GetBookingQuery) (dto.Booking, error) {
	unit, execCtx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.Booking{}, err
	}
	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(q.ID))
	if err = finish(err); err != nil {
		return dto.Booking{}, err
	}
	return dto.MapBooking(b), nil
}

func (h *QueriesHandler) List(ctx context.Context, q ListBookingsQuery) (dto.BookingCollection, error) {
	key, err := property.Parse(q.Property)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	var status domainbooking.Status
	if q.Status != "" {
		if status, err = domainbooking.ParseStatus(q.Status); err != nil {
			return dto.BookingCollection{}, err
		}
	}
	unit, execCtx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.BookingCollection{}, err
	}
	items, err := unit.Bookings().ListByProperty(execCtx, key, status)
	if err = finish(err); err != nil {
		return dto.BookingCollection{}, err
	}
	return dto.BookingCollection{Property: string(key), Items: dto.MapBookings(items)}, nil
}
