package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"opalestay/internal/app/uow"
	domainbooking "opalestay/internal/domain/booking"
	domaincalendar "opalestay/internal/domain/calendar"
	domainpricing "opalestay/internal/domain/pricing"
	"opalestay/internal/domain/property"
	"opalestay/internal/domain/shared/daterange"
)

// ErrUnitFinished is returned when a unit is used after Commit or Rollback.
var ErrUnitFinished = errors.New("memory: unit of work already finished")

// Store holds the in-memory repositories. Writable units run one at a time and keep an
// undo journal, so a rolled back unit leaves no trace.
type Store struct {
	Periods  *BlockedPeriodRepository
	Bookings *BookingRepository
	Rules    *PriceRuleRepository

	writer sync.Mutex
}

func NewStore() *Store {
	return &Store{
		Periods:  NewBlockedPeriodRepository(),
		Bookings: NewBookingRepository(),
		Rules:    NewPriceRuleRepository(),
	}
}

// Begin starts a unit. Read-only units read the repositories directly.
func (s *Store) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if opts.ReadOnly {
		return &Unit{store: s, readOnly: true}, nil
	}
	s.writer.Lock()
	return &Unit{store: s}, nil
}

// Unit is a uow.UnitOfWork backed by the store.
type Unit struct {
	store    *Store
	readOnly bool

	mu       sync.Mutex
	undo     []func()
	onCommit []func()
	finished bool
}

func (u *Unit) BlockedPeriods() domaincalendar.Repository {
	if u.readOnly {
		return u.store.Periods
	}
	return periodJournal{repo: u.store.Periods, unit: u}
}

func (u *Unit) Bookings() domainbooking.Repository {
	if u.readOnly {
		return u.store.Bookings
	}
	return bookingJournal{repo: u.store.Bookings, unit: u}
}

func (u *Unit) PriceRules() domainpricing.Repository {
	if u.readOnly {
		return u.store.Rules
	}
	return ruleJournal{repo: u.store.Rules, unit: u}
}

// OnRollback registers fn to run if the unit is rolled back. Undo steps run in reverse.
func (u *Unit) OnRollback(fn func()) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.undo = append(u.undo, fn)
}

// OnCommit registers fn to run once the unit commits, in registration order.
func (u *Unit) OnCommit(fn func()) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.onCommit = append(u.onCommit, fn)
}

func (u *Unit) Commit(ctx context.Context) error {
	return u.finish(false)
}

func (u *Unit) Rollback(ctx context.Context) error {
	return u.finish(true)
}

func (u *Unit) finish(rollback bool) error {
	u.mu.Lock()
	if u.finished {
		u.mu.Unlock()
		if rollback {
			return nil
		}
		return ErrUnitFinished
	}
	u.finished = true
	undo, committed := u.undo, u.onCommit
	u.undo, u.onCommit = nil, nil
	u.mu.Unlock()

	if rollback {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	} else {
		for _, fn := range committed {
			fn()
		}
	}
	if !u.readOnly {
		u.store.writer.Unlock()
	}
	return nil
}

type periodJournal struct {
	repo *BlockedPeriodRepository
	unit *Unit
}

func (j periodJournal) ByID(ctx context.Context, id domaincalendar.PeriodID) (*domaincalendar.BlockedPeriod, error) {
	return j.repo.ByID(ctx, id)
}

func (j periodJournal) FindOverlapping(ctx context.Context, key property.Key, r daterange.Closed) ([]*domaincalendar.BlockedPeriod, error) {
	return j.repo.FindOverlapping(ctx, key, r)
}

func (j periodJournal) ListFrom(ctx context.Context, key property.Key, day time.Time) ([]*domaincalendar.BlockedPeriod, error) {
	return j.repo.ListFrom(ctx, key, day)
}

func (j periodJournal) Insert(ctx context.Context, p *domaincalendar.BlockedPeriod) error {
	if err := j.repo.Insert(ctx, p); err != nil {
		return err
	}
	id := p.ID
	j.unit.OnRollback(func() { j.repo.remove(id) })
	return nil
}

func (j periodJournal) DeleteByID(ctx context.Context, id domaincalendar.PeriodID) error {
	prev, err := j.repo.ByID(ctx, id)
	if err != nil {
		return err
	}
	if err := j.repo.DeleteByID(ctx, id); err != nil {
		return err
	}
	j.unit.OnRollback(func() { j.repo.put(prev) })
	return nil
}

func (j periodJournal) DeleteMany(ctx context.Context, filter domaincalendar.Filter) (int, error) {
	victims := j.repo.collect(filter.Matches)
	n, err := j.repo.DeleteMany(ctx, filter)
	if err != nil {
		return n, err
	}
	j.unit.OnRollback(func() {
		for _, p := range victims {
			j.repo.put(p)
		}
	})
	return n, nil
}

type bookingJournal struct {
	repo *BookingRepository
	unit *Unit
}

func (j bookingJournal) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	return j.repo.ByID(ctx, id)
}

func (j bookingJournal) Save(ctx context.Context, b *domainbooking.Booking) error {
	prev, existed := j.repo.get(b.ID)
	if err := j.repo.Save(ctx, b); err != nil {
		return err
	}
	id := b.ID
	j.unit.OnRollback(func() {
		if existed {
			j.repo.put(prev)
			return
		}
		j.repo.remove(id)
	})
	return nil
}

func (j bookingJournal) FindOverlapping(ctx context.Context, key property.Key, r daterange.DateRange, statuses []domainbooking.Status) ([]*domainbooking.Booking, error) {
	return j.repo.FindOverlapping(ctx, key, r, statuses)
}

func (j bookingJournal) ListActiveFrom(ctx context.Context, key property.Key, day time.Time) ([]*domainbooking.Booking, error) {
	return j.repo.ListActiveFrom(ctx, key, day)
}

func (j bookingJournal) ListByProperty(ctx context.Context, key property.Key, status domainbooking.Status) ([]*domainbooking.Booking, error) {
	return j.repo.ListByProperty(ctx, key, status)
}

type ruleJournal struct {
	repo *PriceRuleRepository
	unit *Unit
}

func (j ruleJournal) ByID(ctx context.Context, id domainpricing.RuleID) (*domainpricing.Rule, error) {
	return j.repo.ByID(ctx, id)
}

func (j ruleJournal) ListByProperty(ctx context.Context, key property.Key) ([]*domainpricing.Rule, error) {
	return j.repo.ListByProperty(ctx, key)
}

func (j ruleJournal) Save(ctx context.Context, rule *domainpricing.Rule) error {
	prev, existed := j.repo.get(rule.ID)
	if err := j.repo.Save(ctx, rule); err != nil {
		return err
	}
	id := rule.ID
	j.unit.OnRollback(func() {
		if existed {
			j.repo.put(prev)
			return
		}
		j.repo.remove(id)
	})
	return nil
}

func (j ruleJournal) Delete(ctx context.Context, id domainpricing.RuleID) error {
	prev, existed := j.repo.get(id)
	if err := j.repo.Delete(ctx, id); err != nil {
		return err
	}
	if existed {
		j.unit.OnRollback(func() { j.repo.put(prev) })
	}
	return nil
}

var _ uow.UoWFactory = (*Store)(nil)
