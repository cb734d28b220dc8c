package booking

import (
	"time"

	"opalestay/internal/domain/shared/money"
)

// BookingRequested carries everything the notification side needs to describe the
// request without reading the store.
type BookingRequested struct {
	BookingID  BookingID        `json:"booking_id"`
	Property   string           `json:"property"`
	GuestName  string           `json:"guest_name"`
	GuestEmail string           `json:"guest_email"`
	CheckIn    string           `json:"check_in"`
	CheckOut   string           `json:"check_out"`
	Nights     map[string]int64 `json:"nights"`
	Total      money.Money      `json:"total"`
	At         time.Time        `json:"at"`
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }
func (e BookingRequested) PropertyKey() string   { return e.Property }

type BookingAccepted struct {
	BookingID BookingID `json:"booking_id"`
	Property  string    `json:"property"`
	At        time.Time `json:"at"`
}

func (e BookingAccepted) EventName() string     { return "booking.accepted" }
func (e BookingAccepted) AggregateID() string   { return string(e.BookingID) }
func (e BookingAccepted) OccurredAt() time.Time { return e.At }
func (e BookingAccepted) PropertyKey() string   { return e.Property }

type BookingRefused struct {
	BookingID BookingID `json:"booking_id"`
	Property  string    `json:"property"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

func (e BookingRefused) EventName() string     { return "booking.refused" }
func (e BookingRefused) AggregateID() string   { return string(e.BookingID) }
func (e BookingRefused) OccurredAt() time.Time { return e.At }
func (e BookingRefused) PropertyKey() string   { return e.Property }

type BookingConfirmed struct {
	BookingID  BookingID   `json:"booking_id"`
	Property   string      `json:"property"`
	Total      money.Money `json:"total"`
	PaymentRef string      `json:"payment_ref"`
	At         time.Time   `json:"at"`
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }
func (e BookingConfirmed) PropertyKey() string   { return e.Property }

type BookingCancelled struct {
	BookingID BookingID `json:"booking_id"`
	Property  string    `json:"property"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }
func (e BookingCancelled) PropertyKey() string   { return e.Property }
