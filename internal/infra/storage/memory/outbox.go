package memory

import (
	"context"
	"log/slog"
	"sync"

	appoutbox "opalestay/internal/app/outbox"
	"opalestay/internal/app/uow"
)

// DispatchFunc delivers one event record.
type DispatchFunc func(ctx context.Context, rec appoutbox.EventRecord) error

// Outbox keeps events in memory and hands them to Dispatch on Flush. A record added
// inside a memory unit of work stays with that unit and only becomes flushable when the
// unit commits, so a flush never sees the events of a unit still in flight. Delivery
// failures are logged and never fail the flush.
type Outbox struct {
	Dispatch DispatchFunc
	Logger   *slog.Logger

	mu      sync.Mutex
	records []appoutbox.EventRecord
}

func NewOutbox(dispatch DispatchFunc, logger *slog.Logger) *Outbox {
	return &Outbox{Dispatch: dispatch, Logger: logger}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if mu, ok := unit.(*Unit); ok {
			mu.OnCommit(func() { o.enqueue(record) })
			return nil
		}
	}
	o.enqueue(record)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	pending := o.records
	o.records = nil
	o.mu.Unlock()
	if o.Dispatch == nil {
		return nil
	}
	for _, rec := range pending {
		if err := o.Dispatch(ctx, rec); err != nil && o.Logger != nil {
			o.Logger.ErrorContext(ctx, "outbox dispatch failed", "event_id", rec.ID, "event", rec.Name, "error", err)
		}
	}
	return nil
}

// Pending returns a copy of the committed records not flushed yet.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]appoutbox.EventRecord(nil), o.records...)
}

func (o *Outbox) enqueue(rec appoutbox.EventRecord) {
	o.mu.Lock()
	o.records = append(o.records, rec)
	o.mu.Unlock()
}

var _ appoutbox.Outbox = (*Outbox)(nil)
