package booking

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"opalestay/internal/domain/property"
	"opalestay/internal/domain/shared/daterange"
	"opalestay/internal/domain/shared/events"
	"opalestay/internal/domain/shared/failure"
	"opalestay/internal/domain/shared/money"
)

var (
	ErrInvalidState    = fmt.Errorf("%w: booking: invalid state transition", failure.ErrConflict)
	ErrBookingNotFound = fmt.Errorf("%w: booking: not found", failure.ErrNotFound)
	ErrStayUnavailable = fmt.Errorf("%w: booking: dates are not available", failure.ErrConflict)
	ErrGuestRequired   = fmt.Errorf("%w: booking: guest name and email required", failure.ErrValidation)
	ErrPaymentRef      = fmt.Errorf("%w: booking: payment reference required", failure.ErrValidation)
	ErrPriceMissing    = fmt.Errorf("%w: booking: nightly prices must cover every night", failure.ErrValidation)
)

type BookingID string

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusRefused   Status = "REFUSED"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// ActiveStatuses occupy the calendar.
var ActiveStatuses = []Status{StatusPending, StatusAccepted, StatusConfirmed}

func (s Status) Active() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// ParseStatus accepts any casing; an empty string is not a status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case StatusPending, StatusAccepted, StatusRefused, StatusConfirmed, StatusCancelled:
		return s, nil
	}
	return "", failure.Validation("booking: unknown status %q", raw)
}

type Guest struct {
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
	Phone string `json:"phone,omitempty" bson:"phone,omitempty"`
}

func (g Guest) Validate() error {
	if strings.TrimSpace(g.Name) == "" || strings.TrimSpace(g.Email) == "" {
		return ErrGuestRequired
	}
	if _, err := mail.ParseAddress(g.Email); err != nil {
		return failure.Validation("booking: invalid guest email %q", g.Email)
	}
	return nil
}

// NightlyPrice is the price of one occupied night.
type NightlyPrice struct {
	Date  time.Time
	Price money.Money
}

type Booking struct {
	ID         BookingID
	Property   property.Key
	Guest      Guest
	Range      daterange.DateRange
	Status     Status
	Nightly    []NightlyPrice
	Price      money.Money // average nightly price, rounded down
	Total      money.Money
	PaymentRef string
	Reason     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	// FindOverlapping returns bookings in one of statuses whose stay strictly overlaps r.
	FindOverlapping(ctx context.Context, key property.Key, r daterange.DateRange, statuses []Status) ([]*Booking, error)
	// ListActiveFrom returns active bookings departing on or after day.
	ListActiveFrom(ctx context.Context, key property.Key, day time.Time) ([]*Booking, error)
	ListByProperty(ctx context.Context, key property.Key, status Status) ([]*Booking, error)
}

type CreateParams struct {
	ID        BookingID
	Property  property.Key
	Guest     Guest
	Range     daterange.DateRange
	Nightly   []NightlyPrice
	CreatedAt time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if !params.Property.Valid() {
		return nil, fmt.Errorf("%w: %q", property.ErrUnknownProperty, string(params.Property))
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if err := params.Guest.Validate(); err != nil {
		return nil, err
	}
	if len(params.Nightly) != params.Range.Nights() {
		return nil, ErrPriceMissing
	}
	prices := make([]money.Money, 0, len(params.Nightly))
	for _, n := range params.Nightly {
		if !params.Range.ContainsDate(n.Date) {
			return nil, ErrPriceMissing
		}
		prices = append(prices, n.Price)
	}
	total, err := money.Sum("", prices...)
	if err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:        params.ID,
		Property:  params.Property,
		Guest:     params.Guest,
		Range:     params.Range,
		Status:    StatusPending,
		Nightly:   append([]NightlyPrice(nil), params.Nightly...),
		Price:     money.Money{Amount: total.Amount / int64(len(prices)), Currency: total.Currency},
		Total:     total,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.Record(BookingRequested{
		BookingID:  b.ID,
		Property:   string(b.Property),
		GuestName:  b.Guest.Name,
		GuestEmail: b.Guest.Email,
		CheckIn:    daterange.Format(b.Range.CheckIn),
		CheckOut:   daterange.Format(b.Range.CheckOut),
		Nights:     nightlyPayload(b.Nightly),
		Total:      b.Total,
		At:         now,
	})
	return b, nil
}

func (b *Booking) Accept(now time.Time) error {
	if b.Status != StatusPending {
		return fmt.Errorf("%w: cannot accept %s booking", ErrInvalidState, b.Status)
	}
	b.Status = StatusAccepted
	b.UpdatedAt = now.UTC()
	b.Record(BookingAccepted{BookingID: b.ID, Property: string(b.Property), At: b.UpdatedAt})
	return nil
}

func (b *Booking) Refuse(reason string, now time.Time) error {
	if b.Status != StatusPending {
		return fmt.Errorf("%w: cannot refuse %s booking", ErrInvalidState, b.Status)
	}
	b.Status = StatusRefused
	b.Reason = reason
	b.UpdatedAt = now.UTC()
	b.Record(BookingRefused{BookingID: b.ID, Property: string(b.Property), Reason: reason, At: b.UpdatedAt})
	return nil
}

// Confirm records the captured payment of an accepted booking.
func (b *Booking) Confirm(paymentRef string, now time.Time) error {
	if b.Status != StatusAccepted {
		return fmt.Errorf("%w: cannot confirm %s booking", ErrInvalidState, b.Status)
	}
	if strings.TrimSpace(paymentRef) == "" {
		return ErrPaymentRef
	}
	b.PaymentRef = paymentRef
	b.Status = StatusConfirmed
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{BookingID: b.ID, Property: string(b.Property), Total: b.Total, PaymentRef: paymentRef, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Cancel(reason string, now time.Time) error {
	if !b.Status.Active() {
		return fmt.Errorf("%w: cannot cancel %s booking", ErrInvalidState, b.Status)
	}
	b.Status = StatusCancelled
	b.Reason = reason
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, Property: string(b.Property), Reason: reason, At: b.UpdatedAt})
	return nil
}

func nightlyPayload(nights []NightlyPrice) map[string]int64 {
	out := make(map[string]int64, len(nights))
	for _, n := range nights {
		out[daterange.Format(n.Date)] = n.Price.Amount
	}
	return out
}
