package notifications

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opalestay/internal/app/outbox"
	"opalestay/internal/app/policies"
	domainbooking "opalestay/internal/domain/booking"
	"opalestay/internal/domain/shared/money"
	"opalestay/internal/infra/mail"
	"opalestay/internal/infra/security"
)

type sent struct {
	to       string
	template string
	data     RequestMessage
}

type recordingNotifier struct {
	sent []sent
	err  error
}

func (r *recordingNotifier) Send(_ context.Context, to, template string, data any) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sent{to: to, template: template, data: data.(RequestMessage)})
	return nil
}

func requestedRecord(t *testing.T) outbox.EventRecord {
	t.Helper()
	rec, err := outbox.JSONEventEncoder{IDGenerator: func() string { return "evt-1" }}.Encode(domainbooking.BookingRequested{
		BookingID:  "b-1",
		Property:   "touquet-pinede",
		GuestName:  "Anne",
		GuestEmail: "anne@example.org",
		CheckIn:    "2025-07-01",
		CheckOut:   "2025-07-03",
		Nights:     map[string]int64{"2025-07-02": 160, "2025-07-01": 150},
		Total:      money.Euros(310),
		At:         time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return rec
}

func TestBookingRequestedNotifiesOwnerAndGuest(t *testing.T) {
	tokens, err := security.NewActionTokens("secret", time.Hour)
	require.NoError(t, err)
	rec := &recordingNotifier{}
	n := &BookingNotifier{Notifier: rec, Tokens: tokens, BaseURL: "https://opalestay.fr/", OwnerEmail: "owner@opalestay.fr"}

	require.NoError(t, n.Handle(context.Background(), requestedRecord(t)))
	require.Len(t, rec.sent, 2)
	assert.Equal(t, "owner@opalestay.fr", rec.sent[0].to)
	assert.Equal(t, TemplateOwnerRequest, rec.sent[0].template)
	assert.Equal(t, "anne@example.org", rec.sent[1].to)
	assert.Equal(t, TemplateGuestRequest, rec.sent[1].template)

	msg := rec.sent[0].data
	assert.Equal(t, "La Pinède", msg.PropertyName)
	assert.Equal(t, []Night{{Date: "2025-07-01", Price: 150}, {Date: "2025-07-02", Price: 160}}, msg.Nights)
	assert.Equal(t, "https://opalestay.fr/api/v1/bookings/b-1", msg.BookingURL)
	require.True(t, strings.HasPrefix(msg.AcceptURL, "https://opalestay.fr/api/v1/bookings/actions/"))

	claims, err := tokens.Verify(strings.TrimPrefix(msg.AcceptURL, "https://opalestay.fr/api/v1/bookings/actions/"))
	require.NoError(t, err)
	assert.Equal(t, policies.ActionClaims{BookingID: "b-1", Action: policies.ActionAccept}, claims)

	rendered, err := mail.Render(TemplateOwnerRequest, msg)
	require.NoError(t, err)
	assert.Contains(t, rendered.Body, msg.AcceptURL)
}

func TestBookingNotifierIgnoresOtherEvents(t *testing.T) {
	rec := &recordingNotifier{}
	n := &BookingNotifier{Notifier: rec, OwnerEmail: "owner@opalestay.fr"}
	require.NoError(t, n.Handle(context.Background(), outbox.EventRecord{Name: "booking.accepted", Payload: []byte(`{}`)}))
	assert.Empty(t, rec.sent)
}

func TestBookingNotifierReportsFailures(t *testing.T) {
	n := &BookingNotifier{Notifier: &recordingNotifier{err: errors.New("relay down")}, OwnerEmail: "owner@opalestay.fr"}
	err := n.Handle(context.Background(), requestedRecord(t))
	assert.ErrorContains(t, err, "relay down")

	err = n.Handle(context.Background(), outbox.EventRecord{ID: "evt-2", Name: "booking.requested", Payload: []byte("{")})
	assert.ErrorContains(t, err, "decode")
}
