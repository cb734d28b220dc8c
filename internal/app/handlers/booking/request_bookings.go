package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"opalestay/internal/app/commands"
	"opalestay/internal/app/dto"
	"opalestay/internal/app/handlers/availability"
	"opalestay/internal/app/middleware"
	"opalestay/internal/app/outbox"
	"opalestay/internal/app/uow"
	domainbooking "opalestay/internal/domain/booking"
	domainpricing "opalestay/internal/domain/pricing"
	"opalestay/internal/domain/property"
	"opalestay/internal/domain/shared/daterange"
	"opalestay/internal/domain/shared/failure"
	"opalestay/internal/domain/shared/money"
)

const requestBookingsKey = "booking.request"

type GuestInput struct {
	Name  string `validate:"required,max=120"`
	Email string `validate:"required,email"`
	Phone string `validate:"omitempty,max=40"`
}

// StayRequest is one cart line; CheckOut is the departure day.
type StayRequest struct {
	Property string `validate:"required"`
	CheckIn  string `validate:"required,isodate"`
	CheckOut string `validate:"required,isodate"`
}

// RequestBookingsCommand checks out a cart of stays for one guest. Either every stay is
// booked or none is.
type RequestBookingsCommand struct {
	Guest           GuestInput
	Stays           []StayRequest `validate:"required,min=1,max=10,dive"`
	IdempotencyKeyV string
}

func (c RequestBookingsCommand) Key() string { return requestBookingsKey }

func (c RequestBookingsCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestBookingsCommand) ResultPrototype() any { return &dto.Checkout{} }

// StayQuoter prices every night of a stay.
type StayQuoter interface {
	QuoteStay(ctx context.Context, key property.Key, stay daterange.DateRange) ([]domainpricing.Quote, money.Money, error)
}

type RequestBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Prices     StayQuoter
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
	NewID      func() string
	Logger     *slog.Logger
}

type cartLine struct {
	key  property.Key
	stay daterange.DateRange
}

func (h *RequestBookingsHandler) Handle(ctx context.Context, cmd RequestBookingsCommand) (*dto.Checkout, error) {
	now := h.now()
	guest := domainbooking.Guest{Name: cmd.Guest.Name, Email: cmd.Guest.Email, Phone: cmd.Guest.Phone}
	if err := guest.Validate(); err != nil {
		return nil, err
	}
	lines, err := parseCart(cmd.Stays, now)
	if err != nil {
		return nil, err
	}

	unit, execCtx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	booked, err := h.book(execCtx, unit, guest, lines, now)
	if err = finish(err); err != nil {
		return nil, err
	}

	totals := make([]money.Money, 0, len(booked))
	for _, b := range booked {
		totals = append(totals, b.Total)
		if h.Logger != nil {
			h.Logger.InfoContext(ctx, "booking requested", "booking_id", b.ID, "property", b.Property,
				"check_in", daterange.Format(b.Range.CheckIn), "check_out", daterange.Format(b.Range.CheckOut), "total", b.Total.Amount)
		}
	}
	total, err := money.Sum("", totals...)
	if err != nil {
		return nil, err
	}
	return &dto.Checkout{Bookings: dto.MapBookings(booked), Total: dto.MapMoney(total)}, nil
}

func (h *RequestBookingsHandler) book(ctx context.Context, unit uow.UnitOfWork, guest domainbooking.Guest, lines []cartLine, now time.Time) ([]*domainbooking.Booking, error) {
	booked := make([]*domainbooking.Booking, 0, len(lines))
	for _, line := range lines {
		conflicts, err := availability.FindConflicts(ctx, unit, line.key, line.stay, "")
		if err != nil {
			return nil, err
		}
		if !conflicts.Empty() {
			return nil, unavailable(line.key, line.stay)
		}
		quotes, _, err := h.Prices.QuoteStay(ctx, line.key, line.stay)
		if err != nil {
			return nil, err
		}
		nightly := make([]domainbooking.NightlyPrice, 0, len(quotes))
		for _, q := range quotes {
			nightly = append(nightly, domainbooking.NightlyPrice{Date: q.Date, Price: q.Price})
		}
		b, err := domainbooking.NewBooking(domainbooking.CreateParams{
			ID:        domainbooking.BookingID(h.newID()),
			Property:  line.key,
			Guest:     guest,
			Range:     line.stay,
			Nightly:   nightly,
			CreatedAt: now,
		})
		if err != nil {
			return nil, err
		}
		if err := unit.Bookings().Save(ctx, b); err != nil {
			return nil, err
		}
		if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, b.Drain()); err != nil {
			return nil, err
		}
		booked = append(booked, b)
	}
	return booked, nil
}

// parseCart validates every line before anything is read, including overlaps between
// lines of the same cart.
func parseCart(stays []StayRequest, now time.Time) ([]cartLine, error) {
	if len(stays) == 0 {
		return nil, failure.Validation("booking: cart is empty")
	}
	lines := make([]cartLine, 0, len(stays))
	for i, s := range stays {
		key, err := property.Parse(s.Property)
		if err != nil {
			return nil, fmt.Errorf("stay %d: %w", i+1, err)
		}
		stay, err := daterange.ParseStay(s.CheckIn, s.CheckOut)
		if err != nil {
			return nil, fmt.Errorf("stay %d: %w", i+1, err)
		}
		if err := domainbooking.ValidateDateRange(stay, now); err != nil {
			return nil, fmt.Errorf("stay %d: %w", i+1, err)
		}
		for _, prev := range lines {
			if prev.key == key && prev.stay.Overlaps(stay) {
				return nil, fmt.Errorf("stay %d: %w", i+1, unavailable(key, stay))
			}
		}
		lines = append(lines, cartLine{key: key, stay: stay})
	}
	return lines, nil
}

func unavailable(key property.Key, stay daterange.DateRange) error {
	return fmt.Errorf("%w: %s from %s to %s", domainbooking.ErrStayUnavailable, key,
		daterange.Format(stay.CheckIn), daterange.Format(stay.CheckOut))
}

func (h *RequestBookingsHandler) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now().UTC()
}

func (h *RequestBookingsHandler) newID() string {
	if h.NewID == nil {
		return uuid.NewString()
	}
	return h.NewID()
}

var _ commands.Handler[RequestBookingsCommand, *dto.Checkout] = (*RequestBookingsHandler)(nil)
var _ middleware.IdempotentCommand = RequestBookingsCommand{}
