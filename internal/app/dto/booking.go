package dto

import (
	"time"

	domainbooking "opalestay/internal/domain/booking"
	"opalestay/internal/domain/shared/daterange"
)

type Guest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Booking struct {
	ID         string           `json:"id"`
	Property   string           `json:"property"`
	Guest      Guest            `json:"guest"`
	CheckIn    string           `json:"check_in"`
	CheckOut   string           `json:"check_out"`
	Nights     int              `json:"nights"`
	Status     string           `json:"status"`
	Nightly    map[string]int64 `json:"nightly"`
	Price      MoneyDTO         `json:"price"`
	Total      MoneyDTO         `json:"total"`
	PaymentRef string           `json:"payment_ref,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// BookingSummary is the slice of a booking shown as an availability conflict.
type BookingSummary struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
}

type BookingCollection struct {
	Property string    `json:"property"`
	Items    []Booking `json:"items"`
}

// Checkout is the outcome of a cart of stays requested together.
type Checkout struct {
	Bookings []Booking `json:"bookings"`
	Total    MoneyDTO  `json:"total"`
}

func MapBooking(b *domainbooking.Booking) Booking {
	if b == nil {
		return Booking{}
	}
	nightly := make(map[string]int64, len(b.Nightly))
	for _, n := range b.Nightly {
		nightly[daterange.Format(n.Date)] = n.Price.Amount
	}
	return Booking{
		ID:         string(b.ID),
		Property:   string(b.Property),
		Guest:      Guest{Name: b.Guest.Name, Email: b.Guest.Email, Phone: b.Guest.Phone},
		CheckIn:    daterange.Format(b.Range.CheckIn),
		CheckOut:   daterange.Format(b.Range.CheckOut),
		Nights:     b.Range.Nights(),
		Status:     string(b.Status),
		Nightly:    nightly,
		Price:      MapMoney(b.Price),
		Total:      MapMoney(b.Total),
		PaymentRef: b.PaymentRef,
		Reason:     b.Reason,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

func MapBookings(items []*domainbooking.Booking) []Booking {
	out := make([]Booking, 0, len(items))
	for _, b := range items {
		out = append(out, MapBooking(b))
	}
	return out
}

func MapBookingSummaries(items []*domainbooking.Booking) []BookingSummary {
	out := make([]BookingSummary, 0, len(items))
	for _, b := range items {
		out = append(out, BookingSummary{
			ID:       string(b.ID),
			Status:   string(b.Status),
			CheckIn:  daterange.Format(b.Range.CheckIn),
			CheckOut: daterange.Format(b.Range.CheckOut),
		})
	}
	return out
}
