package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	appoutbox "opalestay/internal/app/outbox"
)

// CloudEventContentType is the content type of published messages.
const CloudEventContentType = "application/cloudevents+json"

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Queue is the claim/ack side of the outbox store.
type Queue interface {
	Claim(ctx context.Context, workerID string) (*EventDocument, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

// CloudEvent is the envelope published for every outbox record. ID is the outbox record
// id so consumers can deduplicate redeliveries.
type CloudEvent struct {
	SpecVersion     string            `json:"specversion"`
	ID              string            `json:"id"`
	Type            string            `json:"type"`
	Source          string            `json:"source"`
	Subject         string            `json:"subject,omitempty"`
	Time            time.Time         `json:"time"`
	DataContentType string            `json:"datacontenttype"`
	Data            json.RawMessage   `json:"data"`
	Extensions      map[string]string `json:"extensions,omitempty"`
}

type Worker struct {
	Queue       Queue
	Producer    Producer
	Interval    time.Duration
	BatchSize   int
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	Now         func() time.Time
	Logger      *slog.Logger
}

// Run polls the queue until ctx is done. Store errors are logged and retried on the next
// tick.
func (w *Worker) Run(ctx context.Context) error {
	if w.Queue == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Drain(ctx); err != nil && ctx.Err() == nil {
				w.logger().ErrorContext(ctx, "outbox drain failed", "worker", w.ID, "error", err)
			}
		}
	}
}

// Drain processes up to BatchSize due events and reports how many were published.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	sent := 0
	for i := 0; i < w.batchSize(); i++ {
		ok, published, err := w.processOnce(ctx)
		if err != nil {
			return sent, err
		}
		if !ok {
			break
		}
		if published {
			sent++
		}
	}
	return sent, nil
}

// processOnce reports whether an event was claimed and whether it was published.
func (w *Worker) processOnce(ctx context.Context) (bool, bool, error) {
	doc, err := w.Queue.Claim(ctx, w.ID)
	if err != nil || doc == nil {
		return false, false, err
	}
	topic := w.topicFor(doc.Name)
	payload, headers, err := w.formatPayload(doc)
	if err == nil {
		err = w.Producer.Publish(ctx, topic, partitionKey(doc), payload, headers)
	}
	if err != nil {
		next := w.nextRetry(doc.Attempts)
		w.logger().WarnContext(ctx, "outbox publish failed",
			"event_id", doc.ID, "event", doc.Name, "attempts", doc.Attempts+1, "next_attempt_at", next, "error", err)
		return true, false, w.Queue.MarkFailed(ctx, doc.ID, next, err.Error())
	}
	return true, true, w.Queue.MarkSent(ctx, doc.ID)
}

func (w *Worker) formatPayload(doc *EventDocument) ([]byte, map[string]string, error) {
	if !json.Valid(doc.Payload) {
		return nil, nil, ErrInvalidPayload
	}
	evt := CloudEvent{
		SpecVersion:     "1.0",
		ID:              doc.ID,
		Type:            doc.Name + ".v1",
		Source:          w.source(),
		Subject:         doc.Aggregate,
		Time:            doc.OccurredAt.UTC(),
		DataContentType: "application/json",
		Data:            json.RawMessage(doc.Payload),
	}
	if trace, ok := doc.Headers["traceparent"]; ok {
		evt.Extensions = map[string]string{"traceparent": trace}
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := make(map[string]string, len(doc.Headers)+1)
	for k, v := range doc.Headers {
		headers[k] = v
	}
	headers["content-type"] = CloudEventContentType
	return payload, headers, nil
}

// TopicFor maps an event name to its topic: "booking.requested" goes to
// "booking.events.v1".
func TopicFor(prefix, name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return prefix + base + ".events.v1"
}

func (w *Worker) topicFor(name string) string {
	return TopicFor(w.TopicPrefix, name)
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) batchSize() int {
	if w.BatchSize <= 0 {
		return 50
	}
	return w.BatchSize
}

func (w *Worker) nextRetry(attempts int) time.Time {
	now := w.now()
	if attempts < len(w.Backoff) {
		return now.Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return now.Add(w.Backoff[len(w.Backoff)-1])
	}
	return now.Add(5 * time.Second)
}

func (w *Worker) now() time.Time {
	if w.Now == nil {
		return time.Now().UTC()
	}
	return w.Now().UTC()
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://opalestay"
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}

var (
	ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")
	ErrInvalidPayload      = errors.New("outbox: event payload is not valid JSON")
)

// partitionKey keeps the events of one apartment on one partition. Records stored
// before the header existed fall back to their aggregate.
func partitionKey(doc *EventDocument) string {
	if key := doc.Headers[appoutbox.PartitionHeader]; key != "" {
		return key
	}
	return doc.Aggregate
}
