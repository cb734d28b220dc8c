package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opalestay/internal/domain/booking"
	"opalestay/internal/domain/shared/events"
)

type collectingBox struct{ records []EventRecord }

func (b *collectingBox) Add(_ context.Context, rec EventRecord) error {
	b.records = append(b.records, rec)
	return nil
}

func (b *collectingBox) Flush(context.Context) error { return nil }

type plainEvent struct{}

func (plainEvent) EventName() string     { return "test.plain" }
func (plainEvent) AggregateID() string   { return "agg-1" }
func (plainEvent) OccurredAt() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

func TestRecordDomainEventsKeysByProperty(t *testing.T) {
	box := &collectingBox{}
	accepted := booking.BookingAccepted{BookingID: "b-1", Property: "valery-sources-baie", At: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	encoder := JSONEventEncoder{IDGenerator: func() string { return "evt" }}

	require.NoError(t, RecordDomainEvents(context.Background(), box, encoder, []events.DomainEvent{accepted, plainEvent{}}))
	require.Len(t, box.records, 2)

	rec := box.records[0]
	assert.Equal(t, "booking.accepted", rec.Name)
	assert.Equal(t, "b-1", rec.Aggregate)
	assert.Equal(t, "valery-sources-baie", rec.Headers[PartitionHeader])
	assert.JSONEq(t, `{"booking_id":"b-1","property":"valery-sources-baie","at":"2025-06-01T09:00:00Z"}`, string(rec.Payload))

	assert.Equal(t, "agg-1", box.records[1].Headers[PartitionHeader])
}

func TestRecordDomainEventsWithoutBox(t *testing.T) {
	assert.NoError(t, RecordDomainEvents(context.Background(), nil, nil, []events.DomainEvent{plainEvent{}}))
}
