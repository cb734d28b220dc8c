// Package notifications turns booking events into messages for the owner and the guest.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"opalestay/internal/app/outbox"
	"opalestay/internal/app/policies"
	domainbooking "opalestay/internal/domain/booking"
	"opalestay/internal/domain/property"
)

const (
	TemplateOwnerRequest = "booking_request_owner"
	TemplateGuestRequest = "booking_request_guest"
)

const bookingRequestedEvent = "booking.requested"

// Night is one line of the nightly price table.
type Night struct {
	Date  string
	Price int64
}

// RequestMessage is the data both request templates render.
type RequestMessage struct {
	BookingID    string
	PropertyName string
	GuestName    string
	GuestEmail   string
	CheckIn      string
	CheckOut     string
	Nights       []Night
	Total        int64
	Currency     string
	AcceptURL    string
	RefuseURL    string
	BookingURL   string
}

// BookingNotifier handles booking.requested events. Other events are ignored.
type BookingNotifier struct {
	Notifier   policies.Notifier
	Tokens     policies.ActionTokens
	BaseURL    string
	OwnerEmail string
	Logger     *slog.Logger
}

func (n *BookingNotifier) Handle(ctx context.Context, rec outbox.EventRecord) error {
	if rec.Name != bookingRequestedEvent {
		return nil
	}
	var ev domainbooking.BookingRequested
	if err := json.Unmarshal(rec.Payload, &ev); err != nil {
		return fmt.Errorf("notifications: decode %s %s: %w", rec.Name, rec.ID, err)
	}
	msg, err := n.message(ev)
	if err != nil {
		return err
	}
	if n.OwnerEmail != "" {
		if err := n.Notifier.Send(ctx, n.OwnerEmail, TemplateOwnerRequest, msg); err != nil {
			return fmt.Errorf("notifications: owner mail for %s: %w", msg.BookingID, err)
		}
	}
	if msg.GuestEmail != "" {
		if err := n.Notifier.Send(ctx, msg.GuestEmail, TemplateGuestRequest, msg); err != nil {
			return fmt.Errorf("notifications: guest mail for %s: %w", msg.BookingID, err)
		}
	}
	if n.Logger != nil {
		n.Logger.InfoContext(ctx, "booking request notified", "booking_id", msg.BookingID, "event_id", rec.ID)
	}
	return nil
}

func (n *BookingNotifier) message(ev domainbooking.BookingRequested) (RequestMessage, error) {
	id := string(ev.BookingID)
	msg := RequestMessage{
		BookingID:    id,
		PropertyName: ev.Property,
		GuestName:    ev.GuestName,
		GuestEmail:   ev.GuestEmail,
		CheckIn:      ev.CheckIn,
		CheckOut:     ev.CheckOut,
		Total:        ev.Total.Amount,
		Currency:     ev.Total.Currency,
		BookingURL:   n.link("api/v1/bookings/" + url.PathEscape(id)),
	}
	if p, err := property.Lookup(property.Key(ev.Property)); err == nil {
		msg.PropertyName = p.Name
	}
	for date, price := range ev.Nights {
		msg.Nights = append(msg.Nights, Night{Date: date, Price: price})
	}
	sort.Slice(msg.Nights, func(i, j int) bool { return msg.Nights[i].Date < msg.Nights[j].Date })

	if n.Tokens != nil {
		accept, err := n.Tokens.Issue(policies.ActionClaims{BookingID: id, Action: policies.ActionAccept})
		if err != nil {
			return RequestMessage{}, err
		}
		refuse, err := n.Tokens.Issue(policies.ActionClaims{BookingID: id, Action: policies.ActionRefuse})
		if err != nil {
			return RequestMessage{}, err
		}
		msg.AcceptURL = n.link("api/v1/bookings/actions/" + accept)
		msg.RefuseURL = n.link("api/v1/bookings/actions/" + refuse)
	}
	return msg, nil
}

func (n *BookingNotifier) link(path string) string {
	return strings.TrimRight(n.BaseURL, "/") + "/" + path
}
