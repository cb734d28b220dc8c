package availability

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"opalestay/internal/app/commands"
	"opalestay/internal/app/dto"
	"opalestay/internal/app/outbox"
	"opalestay/internal/app/uow"
	domaincalendar "opalestay/internal/domain/calendar"
	"opalestay/internal/domain/property"
	"opalestay/internal/domain/shared/daterange"
	"opalestay/internal/domain/shared/events"
)

const unblockRangeKey = "availability.unblock"

const nothingToUnblock = "nothing to unblock"

type UnblockRangeCommand struct {
	Property string `validate:"required"`
	Start    string `validate:"required,isodate"`
	End      string `validate:"required,isodate"`
}

func (c UnblockRangeCommand) Key() string { return unblockRangeKey }

func (c UnblockRangeCommand) Check() error {
	_, err := daterange.ParseClosed(c.Start, c.End)
	return err
}

// UnblockRangeHandler frees [Start, End] by deleting every overlapping blocked period
// and re-creating the parts of it that lie outside the released range.
//
// The deletions and residual inserts share one unit. When a residual cannot be stored
// the unit is rolled back and a *calendar.SplitError names the residual that failed.
type UnblockRangeHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
	NewID      func() string
	Logger     *slog.Logger
}

func (h *UnblockRangeHandler) Handle(ctx context.Context, cmd UnblockRangeCommand) (*dto.UnblockResult, error) {
	key, err := property.Parse(cmd.Property)
	if err != nil {
		return nil, err
	}
	release, err := daterange.ParseClosed(cmd.Start, cmd.End)
	if err != nil {
		return nil, err
	}

	unit, execCtx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	res, err := h.unblock(execCtx, unit, key, release)
	if err = finish(err); err != nil {
		if h.Logger != nil && errors.Is(err, domaincalendar.ErrPartialSplit) {
			h.Logger.WarnContext(ctx, "unblock rolled back", "property", key, "range", release.String(), "error", err)
		}
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "range unblocked", "property", key, "range", release.String(),
			"deleted", res.DeletedCount, "created", res.CreatedCount)
	}
	return res, nil
}

func (h *UnblockRangeHandler) unblock(ctx context.Context, unit uow.UnitOfWork, key property.Key, release daterange.Closed) (*dto.UnblockResult, error) {
	res := &dto.UnblockResult{
		Property:  string(key),
		Start:     daterange.Format(release.Start),
		End:       daterange.Format(release.End),
		Residuals: []dto.BlockedPeriod{},
	}
	overlapping, err := unit.BlockedPeriods().FindOverlapping(ctx, key, release)
	if err != nil {
		return nil, err
	}
	if len(overlapping) == 0 {
		res.Message = nothingToUnblock
		return res, nil
	}

	ids := make([]domaincalendar.PeriodID, 0, len(overlapping))
	for _, p := range overlapping {
		ids = append(ids, p.ID)
	}
	deleted, err := unit.BlockedPeriods().DeleteMany(ctx, domaincalendar.Filter{Property: key, IDs: ids})
	if err != nil {
		return nil, err
	}
	res.DeletedCount = deleted

	at := now(h.Now)
	for _, p := range overlapping {
		for _, part := range domaincalendar.Residuals(p.Range, release) {
			residual, err := h.storeResidual(ctx, unit, p, part, at)
			if err != nil {
				// the unit is aborted from here on; later residuals are not attempted
				failed := domaincalendar.ResidualFailure{ParentID: p.ID, Range: part, Reason: p.Reason, Err: err}
				return nil, &domaincalendar.SplitError{Failures: []domaincalendar.ResidualFailure{failed}}
			}
			res.CreatedCount++
			res.Residuals = append(res.Residuals, dto.MapBlockedPeriod(residual))
		}
	}

	released := domaincalendar.CalendarReleased{
		Property: string(key),
		Start:    res.Start,
		End:      res.End,
		Deleted:  res.DeletedCount,
		Created:  res.CreatedCount,
		At:       at,
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, []events.DomainEvent{released}); err != nil {
		return nil, err
	}
	return res, nil
}

func (h *UnblockRangeHandler) storeResidual(ctx context.Context, unit uow.UnitOfWork, parent *domaincalendar.BlockedPeriod, part daterange.Closed, at time.Time) (*domaincalendar.BlockedPeriod, error) {
	residual, err := domaincalendar.NewBlockedPeriod(domaincalendar.NewPeriodParams{
		ID:       domaincalendar.PeriodID(newID(h.NewID)),
		Property: parent.Property,
		Range:    part,
		Reason:   parent.Reason,
		Now:      at,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.BlockedPeriods().Insert(ctx, residual); err != nil {
		return nil, err
	}
	// the split is reported once through CalendarReleased
	residual.ClearEvents()
	return residual, nil
}

var _ commands.Handler[UnblockRangeCommand, *dto.UnblockResult] = (*UnblockRangeHandler)(nil)
