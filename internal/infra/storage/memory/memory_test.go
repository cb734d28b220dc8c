package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opalestay/internal/app/middleware"
	appoutbox "opalestay/internal/app/outbox"
	"opalestay/internal/app/uow"
	domainbooking "opalestay/internal/domain/booking"
	domaincalendar "opalestay/internal/domain/calendar"
	domainpricing "opalestay/internal/domain/pricing"
	"opalestay/internal/domain/property"
	"opalestay/internal/domain/shared/daterange"
	"opalestay/internal/domain/shared/failure"
	"opalestay/internal/domain/shared/money"
)

var created = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func period(t *testing.T, id, start, end string) *domaincalendar.BlockedPeriod {
	t.Helper()
	r, err := daterange.ParseClosed(start, end)
	require.NoError(t, err)
	p, err := domaincalendar.NewBlockedPeriod(domaincalendar.NewPeriodParams{
		ID: domaincalendar.PeriodID(id), Property: property.TouquetPinede, Range: r, Now: created,
	})
	require.NoError(t, err)
	return p
}

func booking(t *testing.T, id, in, out string) *domainbooking.Booking {
	t.Helper()
	stay, err := daterange.ParseStay(in, out)
	require.NoError(t, err)
	var nightly []domainbooking.NightlyPrice
	stay.EachNight(func(d time.Time) {
		nightly = append(nightly, domainbooking.NightlyPrice{Date: d, Price: money.Euros(150)})
	})
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        domainbooking.BookingID(id),
		Property:  property.TouquetPinede,
		Guest:     domainbooking.Guest{Name: "Anne", Email: "anne@example.org"},
		Range:     stay,
		Nightly:   nightly,
		CreatedAt: created,
	})
	require.NoError(t, err)
	return b
}

func TestBlockedPeriodQueries(t *testing.T) {
	ctx := context.Background()
	repo := NewBlockedPeriodRepository()
	require.NoError(t, repo.Insert(ctx, period(t, "p1", "2025-07-01", "2025-07-05")))
	require.NoError(t, repo.Insert(ctx, period(t, "p2", "2025-07-10", "2025-07-10")))

	q, err := daterange.ParseClosed("2025-07-05", "2025-07-10")
	require.NoError(t, err)
	found, err := repo.FindOverlapping(ctx, property.TouquetPinede, q)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, domaincalendar.PeriodID("p1"), found[0].ID)

	other, err := repo.FindOverlapping(ctx, property.ValerySourcesBaie, q)
	require.NoError(t, err)
	assert.Empty(t, other)

	from, err := repo.ListFrom(ctx, property.TouquetPinede, time.Date(2025, 7, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, domaincalendar.PeriodID("p2"), from[0].ID)

	err = repo.DeleteByID(ctx, "missing")
	assert.ErrorIs(t, err, failure.ErrNotFound)

	bad := period(t, "p3", "2025-08-01", "2025-08-02")
	bad.Range.End = bad.Range.Start.AddDate(0, 0, -1)
	assert.ErrorIs(t, repo.Insert(ctx, bad), failure.ErrValidation)

	n, err := repo.DeleteMany(ctx, domaincalendar.Filter{Property: property.TouquetPinede, IDs: []domaincalendar.PeriodID{"p1", "nope"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBookingSaveChecksVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository()
	b := booking(t, "b1", "2025-07-01", "2025-07-04")
	require.NoError(t, repo.Save(ctx, b))
	assert.Equal(t, int64(1), b.Version)

	first, err := repo.ByID(ctx, "b1")
	require.NoError(t, err)
	second, err := repo.ByID(ctx, "b1")
	require.NoError(t, err)

	require.NoError(t, first.Accept(created))
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, second.Refuse("late", created))
	assert.ErrorIs(t, repo.Save(ctx, second), failure.ErrConflict)

	stored, err := repo.ByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusAccepted, stored.Status)
}

func TestBookingOverlapIsStrict(t *testing.T) {
	ctx := context.Background()
	repo := NewBookingRepository()
	require.NoError(t, repo.Save(ctx, booking(t, "b1", "2025-07-01", "2025-07-04")))

	turnover, err := daterange.ParseStay("2025-07-04", "2025-07-06")
	require.NoError(t, err)
	found, err := repo.FindOverlapping(ctx, property.TouquetPinede, turnover, domainbooking.ActiveStatuses)
	require.NoError(t, err)
	assert.Empty(t, found)

	inside, err := daterange.ParseStay("2025-07-03", "2025-07-05")
	require.NoError(t, err)
	found, err = repo.FindOverlapping(ctx, property.TouquetPinede, inside, domainbooking.ActiveStatuses)
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = repo.FindOverlapping(ctx, property.TouquetPinede, inside, []domainbooking.Status{domainbooking.StatusRefused})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestUnitRollbackRestoresEverything(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.Periods.put(period(t, "p1", "2025-07-01", "2025-07-10"))
	store.Bookings.put(booking(t, "b1", "2025-08-01", "2025-08-03"))
	rule, err := domainpricing.NewRule(domainpricing.RuleParams{
		ID: "r1", Property: property.TouquetPinede, Name: "summer",
		Range: daterange.Closed{Start: created, End: created.AddDate(0, 3, 0)}, PricePerNight: money.Euros(180), Active: true, Now: created,
	})
	require.NoError(t, err)
	store.Rules.put(rule)
	box := NewOutbox(nil, nil)

	unit, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	uctx := uow.ContextWithUnitOfWork(ctx, unit)

	n, err := unit.BlockedPeriods().DeleteMany(uctx, domaincalendar.Filter{IDs: []domaincalendar.PeriodID{"p1"}})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, unit.BlockedPeriods().Insert(uctx, period(t, "p2", "2025-07-01", "2025-07-03")))
	b, err := unit.Bookings().ByID(uctx, "b1")
	require.NoError(t, err)
	require.NoError(t, b.Cancel("test", created))
	require.NoError(t, unit.Bookings().Save(uctx, b))
	require.NoError(t, unit.PriceRules().Delete(uctx, "r1"))
	require.NoError(t, box.Add(uctx, appoutbox.EventRecord{ID: "e1", Name: "calendar.released"}))

	require.NoError(t, unit.Rollback(uctx))

	_, err = store.Periods.ByID(ctx, "p1")
	assert.NoError(t, err)
	_, err = store.Periods.ByID(ctx, "p2")
	assert.ErrorIs(t, err, failure.ErrNotFound)
	stored, err := store.Bookings.ByID(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPending, stored.Status)
	_, err = store.Rules.ByID(ctx, "r1")
	assert.NoError(t, err)
	assert.Empty(t, box.Pending())

	// the writer lock was released
	next, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, next.Commit(ctx))
	assert.ErrorIs(t, next.Commit(ctx), ErrUnitFinished)
}

func TestOutboxFlushDispatchesAndSwallowsErrors(t *testing.T) {
	ctx := context.Background()
	var delivered []string
	box := NewOutbox(func(_ context.Context, rec appoutbox.EventRecord) error {
		delivered = append(delivered, rec.ID)
		if rec.ID == "e1" {
			return errors.New("smtp down")
		}
		return nil
	}, nil)
	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "e1"}))
	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "e2"}))

	require.NoError(t, box.Flush(ctx))
	assert.Equal(t, []string{"e1", "e2"}, delivered)
	assert.Empty(t, box.Pending())
}

func TestIdempotencyRecordsExpire(t *testing.T) {
	ctx := context.Background()
	now := created
	store := NewIdempotencyStore(time.Hour)
	store.Now = func() time.Time { return now }
	require.NoError(t, store.Save(ctx, middlewareRecord("k", created)))

	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)

	now = created.Add(2 * time.Hour)
	_, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Save(ctx, middlewareRecord("fresh", now)))
	assert.Equal(t, 1, store.Purge())
	_, found, err = store.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, found)
}

func middlewareRecord(key string, at time.Time) middleware.IdempotencyRecord {
	return middleware.IdempotencyRecord{Key: key, Payload: []byte(`{}`), OccurredAt: at}
}

func TestOutboxFlushSkipsUnitsInFlight(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	var delivered []string
	box := NewOutbox(func(_ context.Context, rec appoutbox.EventRecord) error {
		delivered = append(delivered, rec.ID)
		return nil
	}, nil)

	first, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, box.Add(uow.ContextWithUnitOfWork(ctx, first), appoutbox.EventRecord{ID: "committed"}))
	assert.Empty(t, box.Pending(), "records wait for their unit to commit")
	require.NoError(t, first.Commit(ctx))

	second, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, box.Add(uow.ContextWithUnitOfWork(ctx, second), appoutbox.EventRecord{ID: "rolled-back"}))

	require.NoError(t, box.Flush(ctx))
	assert.Equal(t, []string{"committed"}, delivered)

	require.NoError(t, second.Rollback(ctx))
	require.NoError(t, box.Flush(ctx))
	assert.Equal(t, []string{"committed"}, delivered)
}
