package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opalestay/internal/app/uow"
	domainpricing "opalestay/internal/domain/pricing"
	"opalestay/internal/domain/property"
	"opalestay/internal/domain/shared/daterange"
	"opalestay/internal/domain/shared/money"
	cachememory "opalestay/internal/infra/cache/memory"
	"opalestay/internal/infra/storage/memory"
)

// countingFactory counts store reads and can run a hook before each one.
type countingFactory struct {
	store  *memory.Store
	reads  int
	before func()
}

func (f *countingFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	f.reads++
	if f.before != nil {
		f.before()
	}
	return f.store.Begin(ctx, opts)
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("redis: connection refused")
}

func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("redis: connection refused")
}

func (brokenCache) DeletePrefix(context.Context, string) error {
	return errors.New("redis: connection refused")
}

// steppedCache runs afterGet once a read of key has returned, and holds DeletePrefix
// until release is closed.
type steppedCache struct {
	*cachememory.Cache
	key      string
	afterGet func()
	entered  chan struct{}
	release  chan struct{}
}

func (c *steppedCache) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := c.Cache.Get(ctx, key)
	if key == c.key && c.afterGet != nil {
		hook := c.afterGet
		c.afterGet = nil
		hook()
	}
	return raw, err
}

func (c *steppedCache) DeletePrefix(ctx context.Context, prefix string) error {
	if c.release != nil {
		close(c.entered)
		<-c.release
	}
	return c.Cache.DeletePrefix(ctx, prefix)
}

func day(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := daterange.Parse(raw)
	require.NoError(t, err)
	return d
}

func saveRule(t *testing.T, store *memory.Store, id string, price int64, start, end string) {
	t.Helper()
	r, err := daterange.ParseClosed(start, end)
	require.NoError(t, err)
	rule, err := domainpricing.NewRule(domainpricing.RuleParams{
		ID: domainpricing.RuleID(id), Property: property.TouquetPinede, Name: id, Range: r,
		PricePerNight: money.Euros(price), Active: true, Now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, store.Rules.Save(context.Background(), rule))
}

func TestQuoteDateUsesCache(t *testing.T) {
	store := memory.NewStore()
	saveRule(t, store, "summer", 190, "2025-07-01", "2025-08-31")
	factory := &countingFactory{store: store}
	r := &Resolver{UoWFactory: factory, Cache: cachememory.New()}
	ctx := context.Background()

	q, err := r.QuoteDate(ctx, property.TouquetPinede, day(t, "2025-07-14"))
	require.NoError(t, err)
	assert.Equal(t, money.Euros(190), q.Price)
	_, err = r.QuoteDate(ctx, property.TouquetPinede, day(t, "2025-07-14"))
	require.NoError(t, err)
	_, err = r.QuoteDate(ctx, property.TouquetPinede, day(t, "2025-09-01"))
	require.NoError(t, err)
	assert.Equal(t, 1, factory.reads, "the rule set is cached once per property")

	saveRule(t, store, "event", 250, "2025-07-14", "2025-07-14")
	require.NoError(t, r.InvalidateProperty(ctx, string(property.TouquetPinede)))
	q, err = r.QuoteDate(ctx, property.TouquetPinede, day(t, "2025-07-14"))
	require.NoError(t, err)
	assert.Equal(t, money.Euros(250), q.Price)
	assert.Equal(t, 2, factory.reads)
}

func TestInvalidationDuringLookupIsNotOverwritten(t *testing.T) {
	store := memory.NewStore()
	cache := cachememory.New()
	factory := &countingFactory{store: store}
	r := &Resolver{UoWFactory: factory, Cache: cache}
	ctx := context.Background()
	factory.before = func() {
		require.NoError(t, r.InvalidateProperty(ctx, string(property.TouquetPinede)))
	}

	_, err := r.QuoteDate(ctx, property.TouquetPinede, day(t, "2025-07-14"))
	require.NoError(t, err)
	assert.Zero(t, cache.Len(), "a lookup that raced an invalidation must not fill the cache")
}

func TestInvalidationBetweenDateMissAndRulesRead(t *testing.T) {
	store := memory.NewStore()
	saveRule(t, store, "summer", 190, "2025-07-01", "2025-08-31")
	cache := &steppedCache{Cache: cachememory.New(), key: rulesKey(property.TouquetPinede)}
	r := &Resolver{UoWFactory: store, Cache: cache}
	ctx := context.Background()

	_, err := r.QuoteDate(ctx, property.TouquetPinede, day(t, "2025-07-01"))
	require.NoError(t, err)
	saveRule(t, store, "event", 250, "2025-07-14", "2025-07-14")

	// the invalidation bumps the generation and then stalls inside the delete
	cache.entered = make(chan struct{})
	cache.release = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- r.InvalidateProperty(ctx, string(property.TouquetPinede)) }()
	<-cache.entered

	// the lookup misses the date, reads the stale rule set, then lets the delete finish
	// before it writes its quote back
	cache.afterGet = func() {
		close(cache.release)
		require.NoError(t, <-done)
	}
	_, err = r.QuoteDate(ctx, property.TouquetPinede, day(t, "2025-07-14"))
	require.NoError(t, err)

	q, err := r.QuoteDate(ctx, property.TouquetPinede, day(t, "2025-07-14"))
	require.NoError(t, err)
	assert.Equal(t, money.Euros(250), q.Price)
}

func TestResolverWithoutCacheOrWithBrokenCache(t *testing.T) {
	for name, r := range map[string]*Resolver{
		"no cache":     {},
		"broken cache": {Cache: brokenCache{}},
	} {
		t.Run(name, func(t *testing.T) {
			store := memory.NewStore()
			saveRule(t, store, "summer", 190, "2025-07-01", "2025-08-31")
			factory := &countingFactory{store: store}
			r.UoWFactory = factory
			ctx := context.Background()

			stay, err := daterange.ParseStay("2025-06-30", "2025-07-02")
			require.NoError(t, err)
			quotes, total, err := r.QuoteStay(ctx, property.TouquetPinede, stay)
			require.NoError(t, err)
			require.Len(t, quotes, 2)
			assert.Equal(t, money.Euros(150), quotes[0].Price)
			assert.Equal(t, money.Euros(340), total)

			_, _, err = r.QuoteStay(ctx, property.TouquetPinede, stay)
			require.NoError(t, err)
			assert.Equal(t, 2, factory.reads)
		})
	}
}

func TestQuoteUnknownProperty(t *testing.T) {
	r := &Resolver{UoWFactory: memory.NewStore()}
	_, err := r.QuoteDate(context.Background(), property.Key("chalet"), day(t, "2025-07-14"))
	assert.ErrorIs(t, err, property.ErrUnknownProperty)
}
