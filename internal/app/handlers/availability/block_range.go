package availability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"opalestay/internal/app/commands"
	"opalestay/internal/app/dto"
	"opalestay/internal/app/outbox"
	"opalestay/internal/app/uow"
	domaincalendar "opalestay/internal/domain/calendar"
	"opalestay/internal/domain/property"
	"opalestay/internal/domain/shared/daterange"
)

const blockRangeKey = "availability.block"

type BlockRangeCommand struct {
	Property string `validate:"required"`
	Start    string `validate:"required,isodate"`
	End      string `validate:"required,isodate"`
	Reason   string `validate:"max=200"`
}

func (c BlockRangeCommand) Key() string { return blockRangeKey }

func (c BlockRangeCommand) Check() error {
	_, err := daterange.ParseClosed(c.Start, c.End)
	return err
}

// BlockRangeHandler closes a range of dates. A range touching an existing blocked period,
// even on a single day, is refused.
type BlockRangeHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
	NewID      func() string
	Logger     *slog.Logger
}

func (h *BlockRangeHandler) Handle(ctx context.Context, cmd BlockRangeCommand) (dto.BlockedPeriod, error) {
	key, err := property.Parse(cmd.Property)
	if err != nil {
		return dto.BlockedPeriod{}, err
	}
	r, err := daterange.ParseClosed(cmd.Start, cmd.End)
	if err != nil {
		return dto.BlockedPeriod{}, err
	}

	unit, execCtx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.BlockedPeriod{}, err
	}
	period, err := h.block(execCtx, unit, key, r, cmd.Reason)
	if err = finish(err); err != nil {
		return dto.BlockedPeriod{}, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "range blocked", "property", key, "period_id", period.ID, "range", period.Range.String())
	}
	return dto.MapBlockedPeriod(period), nil
}

func (h *BlockRangeHandler) block(ctx context.Context, unit uow.UnitOfWork, key property.Key, r daterange.Closed, reason string) (*domaincalendar.BlockedPeriod, error) {
	existing, err := unit.BlockedPeriods().FindOverlapping(ctx, key, r)
	if err != nil {
		return nil, err
	}
	if err := domaincalendar.EnsureNoOverlap(existing, r); err != nil {
		return nil, err
	}
	period, err := domaincalendar.NewBlockedPeriod(domaincalendar.NewPeriodParams{
		ID:       domaincalendar.PeriodID(newID(h.NewID)),
		Property: key,
		Range:    r,
		Reason:   reason,
		Now:      now(h.Now),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.BlockedPeriods().Insert(ctx, period); err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, period.Drain()); err != nil {
		return nil, err
	}
	return period, nil
}

var _ commands.Handler[BlockRangeCommand, dto.BlockedPeriod] = (*BlockRangeHandler)(nil)

func newID(gen func() string) string {
	if gen == nil {
		return uuid.NewString()
	}
	return gen()
}

func now(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock().UTC()
}
