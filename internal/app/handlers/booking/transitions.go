package booking

import (
	"context"
	"log/slog"
	"time"

	"opalestay/internal/app/dto"
	"opalestay/internal/app/handlers/availability"
	"opalestay/internal/app/outbox"
	"opalestay/internal/app/uow"
	domainbooking "opalestay/internal/domain/booking"
)

const (
	acceptBookingKey  = "booking.accept"
	refuseBookingKey  = "booking.refuse"
	confirmBookingKey = "booking.confirm"
	cancelBookingKey  = "booking.cancel"
)

type AcceptBookingCommand struct {
	ID string `validate:"required"`
}

func (c AcceptBookingCommand) Key() string { return acceptBookingKey }

type RefuseBookingCommand struct {
	ID     string `validate:"required"`
	Reason string `validate:"max=500"`
}

func (c RefuseBookingCommand) Key() string { return refuseBookingKey }

// ConfirmBookingCommand records that the payment of an accepted booking was captured.
type ConfirmBookingCommand struct {
	ID         string `validate:"required"`
	PaymentRef string `validate:"required,max=200"`
}

func (c ConfirmBookingCommand) Key() string { return confirmBookingKey }

type CancelBookingCommand struct {
	ID     string `validate:"required"`
	Reason string `validate:"max=500"`
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

// TransitionsHandler moves bookings through their workflow.
type TransitionsHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
	Logger     *slog.Logger
}

// Accept re-checks the calendar: the dates may have been blocked or booked since the
// request was made.
func (h *TransitionsHandler) Accept(ctx context.Context, cmd AcceptBookingCommand) (dto.Booking, error) {
	return h.transition(ctx, cmd.ID, "accepted", func(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) error {
		if b.Status == domainbooking.StatusPending {
			conflicts, err := availability.FindConflicts(ctx, unit, b.Property, b.Range, b.ID)
			if err != nil {
				return err
			}
			if !conflicts.Empty() {
				return unavailable(b.Property, b.Range)
			}
		}
		return b.Accept(h.now())
	})
}

func (h *TransitionsHandler) Refuse(ctx context.Context, cmd RefuseBookingCommand) (dto.Booking, error) {
	return h.transition(ctx, cmd.ID, "refused", func(_ context.Context, _ uow.UnitOfWork, b *domainbooking.Booking) error {
		return b.Refuse(cmd.Reason, h.now())
	})
}

func (h *TransitionsHandler) Confirm(ctx context.Context, cmd ConfirmBookingCommand) (dto.Booking, error) {
	return h.transition(ctx, cmd.ID, "confirmed", func(_ context.Context, _ uow.UnitOfWork, b *domainbooking.Booking) error {
		return b.Confirm(cmd.PaymentRef, h.now())
	})
}

func (h *TransitionsHandler) Cancel(ctx context.Context, cmd CancelBookingCommand) (dto.Booking, error) {
	return h.transition(ctx, cmd.ID, "cancelled", func(_ context.Context, _ uow.UnitOfWork, b *domainbooking.Booking) error {
		return b.Cancel(cmd.Reason, h.now())
	})
}

type transitionFunc func(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) error

func (h *TransitionsHandler) transition(ctx context.Context, id, verb string, apply transitionFunc) (dto.Booking, error) {
	unit, execCtx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.Booking{}, err
	}
	b, err := h.apply(execCtx, unit, domainbooking.BookingID(id), apply)
	if err = finish(err); err != nil {
		return dto.Booking{}, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "booking "+verb, "booking_id", b.ID, "property", b.Property, "status", b.Status)
	}
	return dto.MapBooking(b), nil
}

func (h *TransitionsHandler) apply(ctx context.Context, unit uow.UnitOfWork, id domainbooking.BookingID, apply transitionFunc) (*domainbooking.Booking, error) {
	b, err := unit.Bookings().ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(ctx, unit, b); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, b.Drain()); err != nil {
		return nil, err
	}
	return b, nil
}

func (h *TransitionsHandler) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now().UTC()
}
