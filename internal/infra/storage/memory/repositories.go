package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domainbooking "opalestay/internal/domain/booking"
	domaincalendar "opalestay/internal/domain/calendar"
	domainpricing "opalestay/internal/domain/pricing"
	"opalestay/internal/domain/property"
	"opalestay/internal/domain/shared/daterange"
	"opalestay/internal/domain/shared/events"
	"opalestay/internal/domain/shared/failure"
)

// BlockedPeriodRepository stores blocked periods in memory. Values are copied in and out
// so callers never share state with the store.
type BlockedPeriodRepository struct {
	mu    sync.RWMutex
	items map[domaincalendar.PeriodID]*domaincalendar.BlockedPeriod
}

func NewBlockedPeriodRepository() *BlockedPeriodRepository {
	return &BlockedPeriodRepository{items: make(map[domaincalendar.PeriodID]*domaincalendar.BlockedPeriod)}
}

func (r *BlockedPeriodRepository) ByID(ctx context.Context, id domaincalendar.PeriodID) (*domaincalendar.BlockedPeriod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domaincalendar.ErrPeriodNotFound, id)
	}
	return clonePeriod(p), nil
}

// FindOverlapping returns the periods of key sharing at least one date with q.
func (r *BlockedPeriodRepository) FindOverlapping(ctx context.Context, key property.Key, q daterange.Closed) ([]*domaincalendar.BlockedPeriod, error) {
	return r.collect(func(p *domaincalendar.BlockedPeriod) bool {
		return p.Property == key && p.Range.Overlaps(q)
	}), nil
}

// ListFrom returns the periods of key ending on or after day; a zero day lists all.
func (r *BlockedPeriodRepository) ListFrom(ctx context.Context, key property.Key, day time.Time) ([]*domaincalendar.BlockedPeriod, error) {
	return r.collect(func(p *domaincalendar.BlockedPeriod) bool {
		return p.Property == key && (day.IsZero() || !p.Range.End.Before(day))
	}), nil
}

func (r *BlockedPeriodRepository) Insert(ctx context.Context, p *domaincalendar.BlockedPeriod) error {
	if p == nil {
		return failure.Validation("memory: nil blocked period")
	}
	if err := p.Range.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.items[p.ID]; dup {
		return failure.Conflict("memory: blocked period %s already exists", p.ID)
	}
	r.items[p.ID] = clonePeriod(p)
	return nil
}

func (r *BlockedPeriodRepository) DeleteByID(ctx context.Context, id domaincalendar.PeriodID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("%w: %s", domaincalendar.ErrPeriodNotFound, id)
	}
	delete(r.items, id)
	return nil
}

func (r *BlockedPeriodRepository) DeleteMany(ctx context.Context, filter domaincalendar.Filter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, p := range r.items {
		if filter.Matches(p) {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}

func (r *BlockedPeriodRepository) collect(match func(*domaincalendar.BlockedPeriod) bool) []*domaincalendar.BlockedPeriod {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domaincalendar.BlockedPeriod, 0)
	for _, p := range r.items {
		if match(p) {
			out = append(out, clonePeriod(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Range.Start.Equal(out[j].Range.Start) {
			return out[i].Range.Start.Before(out[j].Range.Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// put stores p as is; used by fixtures and to undo a deletion.
func (r *BlockedPeriodRepository) put(p *domaincalendar.BlockedPeriod) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = clonePeriod(p)
}

func (r *BlockedPeriodRepository) remove(id domaincalendar.PeriodID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}

// BookingRepository stores bookings in memory.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

// NewBookingRepository builds an empty booking repo.
func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]*domainbooking.Booking)}
}

// ByID fetches a booking.
func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainbooking.ErrBookingNotFound, id)
	}
	return cloneBooking(b), nil
}

// Save stores the current booking state. The stored version must match the one the
// caller loaded; the caller's copy gets the new version.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.items[b.ID]; ok && current.Version != b.Version {
		return failure.Conflict("memory: booking %s was modified concurrently", b.ID)
	} else if !ok && b.Version != 0 {
		return fmt.Errorf("%w: %s", domainbooking.ErrBookingNotFound, b.ID)
	}
	b.Version++
	r.items[b.ID] = cloneBooking(b)
	return nil
}

func (r *BookingRepository) FindOverlapping(ctx context.Context, key property.Key, q daterange.DateRange, statuses []domainbooking.Status) ([]*domainbooking.Booking, error) {
	return r.collect(func(b *domainbooking.Booking) bool {
		return b.Property == key && hasStatus(b.Status, statuses) && b.Range.Overlaps(q)
	}), nil
}

func (r *BookingRepository) ListActiveFrom(ctx context.Context, key property.Key, day time.Time) ([]*domainbooking.Booking, error) {
	return r.collect(func(b *domainbooking.Booking) bool {
		return b.Property == key && b.Status.Active() && !b.Range.CheckOut.Before(day)
	}), nil
}

func (r *BookingRepository) ListByProperty(ctx context.Context, key property.Key, status domainbooking.Status) ([]*domainbooking.Booking, error) {
	return r.collect(func(b *domainbooking.Booking) bool {
		return b.Property == key && (status == "" || b.Status == status)
	}), nil
}

func (r *BookingRepository) collect(match func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	for _, b := range r.items {
		if match(b) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Range.CheckIn.Equal(out[j].Range.CheckIn) {
			return out[i].Range.CheckIn.Before(out[j].Range.CheckIn)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *BookingRepository) get(id domainbooking.BookingID) (*domainbooking.Booking, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, false
	}
	return cloneBooking(b), true
}

func (r *BookingRepository) put(b *domainbooking.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[b.ID] = cloneBooking(b)
}

func (r *BookingRepository) remove(id domainbooking.BookingID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}

// PriceRuleRepository stores price rules in memory.
type PriceRuleRepository struct {
	mu    sync.RWMutex
	items map[domainpricing.RuleID]*domainpricing.Rule
}

func NewPriceRuleRepository() *PriceRuleRepository {
	return &PriceRuleRepository{items: make(map[domainpricing.RuleID]*domainpricing.Rule)}
}

func (r *PriceRuleRepository) ByID(ctx context.Context, id domainpricing.RuleID) (*domainpricing.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainpricing.ErrRuleNotFound, id)
	}
	return cloneRule(rule), nil
}

func (r *PriceRuleRepository) ListByProperty(ctx context.Context, key property.Key) ([]*domainpricing.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainpricing.Rule, 0)
	for _, rule := range r.items {
		if rule.Property == key {
			out = append(out, cloneRule(rule))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *PriceRuleRepository) Save(ctx context.Context, rule *domainpricing.Rule) error {
	r.put(rule)
	return nil
}

func (r *PriceRuleRepository) Delete(ctx context.Context, id domainpricing.RuleID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("%w: %s", domainpricing.ErrRuleNotFound, id)
	}
	delete(r.items, id)
	return nil
}

func (r *PriceRuleRepository) get(id domainpricing.RuleID) (*domainpricing.Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.items[id]
	if !ok {
		return nil, false
	}
	return cloneRule(rule), true
}

func (r *PriceRuleRepository) put(rule *domainpricing.Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[rule.ID] = cloneRule(rule)
}

func (r *PriceRuleRepository) remove(id domainpricing.RuleID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}

func hasStatus(s domainbooking.Status, statuses []domainbooking.Status) bool {
	for _, candidate := range statuses {
		if s == candidate {
			return true
		}
	}
	return false
}

func clonePeriod(p *domaincalendar.BlockedPeriod) *domaincalendar.BlockedPeriod {
	c := *p
	c.EventRecorder = events.EventRecorder{}
	return &c
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	c := *b
	c.Nightly = append([]domainbooking.NightlyPrice(nil), b.Nightly...)
	c.EventRecorder = events.EventRecorder{}
	return &c
}

func cloneRule(r *domainpricing.Rule) *domainpricing.Rule {
	c := *r
	return &c
}

var (
	_ domaincalendar.Repository = (*BlockedPeriodRepository)(nil)
	_ domainbooking.Repository  = (*BookingRepository)(nil)
	_ domainpricing.Repository  = (*PriceRuleRepository)(nil)
)
