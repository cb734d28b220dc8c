package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"opalestay/internal/app/uow"
	domainbooking "opalestay/internal/domain/booking"
	domaincalendar "opalestay/internal/domain/calendar"
	domainpricing "opalestay/internal/domain/pricing"
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Factory wires Mongo transactions into the generic UnitOfWork interface. Writable units
// need a replica set. Read-only units run without a session unless they ask for a
// snapshot, which opens a snapshot session (MongoDB 5.0+ replica set).
type Factory struct {
	DB *mongo.Database

	periods  *BlockedPeriodRepository
	bookings *BookingRepository
	rules    *PriceRuleRepository
}

func NewFactory(db *mongo.Database) *Factory {
	return &Factory{
		DB:       db,
		periods:  NewBlockedPeriodRepository(db),
		bookings: NewBookingRepository(db),
		rules:    NewPriceRuleRepository(db),
	}
}

func (f *Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f == nil || f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	unit := &Unit{periods: f.periods, bookings: f.bookings, rules: f.rules}
	if opts.ReadOnly {
		if !opts.Snapshot {
			return unit, nil
		}
		session, err := f.DB.Client().StartSession(options.Session().SetSnapshot(true))
		if err != nil {
			return nil, mapError(err, nil)
		}
		unit.session = session
		return unit, nil
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, mapError(err, nil)
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, mapError(err, nil)
	}
	unit.session = session
	unit.inTxn = true
	return unit, nil
}

type Unit struct {
	session mongo.Session
	inTxn   bool

	periods  *BlockedPeriodRepository
	bookings *BookingRepository
	rules    *PriceRuleRepository
}

func (u *Unit) BlockedPeriods() domaincalendar.Repository { return u.periods }

func (u *Unit) Bookings() domainbooking.Repository { return u.bookings }

func (u *Unit) PriceRules() domainpricing.Repository { return u.rules }

func (u *Unit) Commit(ctx context.Context) error {
	if u.session == nil {
		return nil
	}
	defer u.session.EndSession(ctx)
	if !u.inTxn {
		return nil
	}
	return mapError(u.session.CommitTransaction(ctx), nil)
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.session == nil {
		return nil
	}
	defer u.session.EndSession(ctx)
	if !u.inTxn {
		return nil
	}
	return mapError(u.session.AbortTransaction(ctx), nil)
}

// InjectContext binds the session so repository calls join the transaction.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	if u.session == nil {
		return ctx
	}
	return mongo.NewSessionContext(ctx, u.session)
}
