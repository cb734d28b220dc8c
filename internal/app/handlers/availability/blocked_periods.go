package availability

import (
	"context"
	"log/slog"
	"time"

	"opalestay/internal/app/commands"
	"opalestay/internal/app/dto"
	"opalestay/internal/app/queries"
	"opalestay/internal/app/uow"
	domaincalendar "opalestay/internal/domain/calendar"
	"opalestay/internal/domain/property"
	"opalestay/internal/domain/shared/daterange"
)

const (
	deleteBlockedPeriodKey = "availability.blocked_period.delete"
	listBlockedPeriodsKey  = "availability.blocked_period.list"
)

type DeleteBlockedPeriodCommand struct {
	ID string `validate:"required"`
}

func (c DeleteBlockedPeriodCommand) Key() string { return deleteBlockedPeriodKey }

type DeleteBlockedPeriodHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *DeleteBlockedPeriodHandler) Handle(ctx context.Context, cmd DeleteBlockedPeriodCommand) (dto.BlockedPeriod, error) {
	unit, execCtx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.BlockedPeriod{}, err
	}
	id := domaincalendar.PeriodID(cmd.ID)
	period, err := unit.BlockedPeriods().ByID(execCtx, id)
	if err == nil {
		err = unit.BlockedPeriods().DeleteByID(execCtx, id)
	}
	if err = finish(err); err != nil {
		return dto.BlockedPeriod{}, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "blocked period deleted", "period_id", id, "property", period.Property)
	}
	return dto.MapBlockedPeriod(period), nil
}

// ListBlockedPeriodsQuery lists the periods of a property ending on or after From. An
// empty From lists every period.
type ListBlockedPeriodsQuery struct {
	Property string `validate:"required"`
	From     string
}

func (q ListBlockedPeriodsQuery) Key() string { return listBlockedPeriodsKey }

type ListBlockedPeriodsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListBlockedPeriodsHandler) Handle(ctx context.Context, q ListBlockedPeriodsQuery) (dto.BlockedPeriodCollection, error) {
	key, err := property.Parse(q.Property)
	if err != nil {
		return dto.BlockedPeriodCollection{}, err
	}
	var from time.Time
	if q.From != "" {
		if from, err = daterange.Parse(q.From); err != nil {
			return dto.BlockedPeriodCollection{}, err
		}
	}
	unit, execCtx, finish, err := uow.Begin(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.BlockedPeriodCollection{}, err
	}
	periods, err := unit.BlockedPeriods().ListFrom(execCtx, key, from)
	if err = finish(err); err != nil {
		return dto.BlockedPeriodCollection{}, err
	}
	return dto.BlockedPeriodCollection{Property: string(key), Items: dto.MapBlockedPeriods(periods)}, nil
}

var (
	_ commands.Handler[DeleteBlockedPeriodCommand, dto.BlockedPeriod]       = (*DeleteBlockedPeriodHandler)(nil)
	_ queries.Handler[ListBlockedPeriodsQuery, dto.BlockedPeriodCollection] = (*ListBlockedPeriodsHandler)(nil)
)
