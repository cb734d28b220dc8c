package uow

import (
	"context"
	"errors"

	domainbooking "opalestay/internal/domain/booking"
	domaincalendar "opalestay/internal/domain/calendar"
	domainpricing "opalestay/internal/domain/pricing"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

// UnitOfWork gives handlers the three calendar sources behind one boundary: a command
// sees its own writes and either all of them land or none do.
type UnitOfWork interface {
	BlockedPeriods() domaincalendar.Repository
	Bookings() domainbooking.Repository
	PriceRules() domainpricing.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure a unit. Snapshot only applies to read-only units: reads of
// several repositories then observe the same point in time, which availability needs
// when it compares blocked periods with bookings.
type TxOptions struct {
	ReadOnly bool
	Snapshot bool
}

// ReadSnapshot is the option set for queries that cross repositories.
func ReadSnapshot() TxOptions {
	return TxOptions{ReadOnly: true, Snapshot: true}
}
