package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/IBM/sarama"

	appoutbox "opalestay/internal/app/outbox"
	infraoutbox "opalestay/internal/infra/outbox"
)

var ErrMalformedEvent = errors.New("kafka: malformed cloud event")

// Inbox deduplicates events per consumer.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// EventSink receives decoded outbox records.
type EventSink interface {
	Handle(ctx context.Context, rec appoutbox.EventRecord) error
}

// EventHandler turns CloudEvent messages back into outbox records and hands each one to
// Sink once.
type EventHandler struct {
	Inbox Inbox
	Sink  EventSink
}

func (h EventHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	rec, err := DecodeRecord(msg)
	if err != nil {
		return err
	}
	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, rec.ID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}
	if err := h.Sink.Handle(ctx, rec); err != nil {
		return err
	}
	if h.Inbox != nil {
		return h.Inbox.Mark(ctx, rec.ID)
	}
	return nil
}

// DecodeRecord reads a message published by the outbox worker.
func DecodeRecord(msg *sarama.ConsumerMessage) (appoutbox.EventRecord, error) {
	if msg == nil {
		return appoutbox.EventRecord{}, ErrMalformedEvent
	}
	var evt infraoutbox.CloudEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return appoutbox.EventRecord{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if evt.ID == "" || evt.Type == "" {
		return appoutbox.EventRecord{}, fmt.Errorf("%w: id and type required", ErrMalformedEvent)
	}
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		if h == nil {
			continue
		}
		headers[string(h.Key)] = string(h.Value)
	}
	return appoutbox.EventRecord{
		ID:         evt.ID,
		Name:       strings.TrimSuffix(evt.Type, ".v1"),
		Payload:    []byte(evt.Data),
		OccurredAt: evt.Time,
		Aggregate:  evt.Subject,
		Headers:    headers,
	}, nil
}
