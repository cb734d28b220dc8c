// Package pricing resolves nightly prices from the rule store through an optional cache.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"opalestay/internal/app/policies"
	"opalestay/internal/app/uow"
	"opalestay/internal/domain/pricing"
	"opalestay/internal/domain/property"
	"opalestay/internal/domain/shared/daterange"
	"opalestay/internal/domain/shared/money"
)

const DefaultTTL = 10 * time.Minute

// PropertyPrefix is the cache key prefix shared by every entry of one property.
func PropertyPrefix(key property.Key) string {
	return "price:" + string(key) + ":"
}

func rulesKey(key property.Key) string {
	return PropertyPrefix(key) + "rules"
}

func dateKey(key property.Key, day time.Time) string {
	return PropertyPrefix(key) + "date:" + daterange.Format(day)
}

// Resolver answers price lookups. A nil Cache disables caching.
type Resolver struct {
	UoWFactory uow.UoWFactory
	Cache      policies.PriceCache
	TTL        time.Duration
	Logger     *slog.Logger

	mu          sync.Mutex
	generations map[property.Key]uint64
}

// QuoteDate resolves the price of one night.
func (r *Resolver) QuoteDate(ctx context.Context, key property.Key, day time.Time) (pricing.Quote, error) {
	fallback, err := property.DefaultPrice(key)
	if err != nil {
		return pricing.Quote{}, err
	}
	day = daterange.Day(day)
	var cached pricing.Quote
	if r.cacheGet(ctx, dateKey(key, day), &cached) {
		return cached, nil
	}
	gen := r.generation(key)
	rules, err := r.Rules(ctx, key)
	if err != nil {
		return pricing.Quote{}, err
	}
	quote := pricing.QuoteFor(rules, day, fallback)
	r.cacheSet(ctx, key, gen, dateKey(key, day), quote)
	return quote, nil
}

// QuoteStay resolves every night of stay, arrival included, departure excluded.
func (r *Resolver) QuoteStay(ctx context.Context, key property.Key, stay daterange.DateRange) ([]pricing.Quote, money.Money, error) {
	fallback, err := property.DefaultPrice(key)
	if err != nil {
		return nil, money.Money{}, err
	}
	if err := stay.Validate(); err != nil {
		return nil, money.Money{}, err
	}
	rules, err := r.Rules(ctx, key)
	if err != nil {
		return nil, money.Money{}, err
	}
	quotes := make([]pricing.Quote, 0, stay.Nights())
	prices := make([]money.Money, 0, stay.Nights())
	stay.EachNight(func(d time.Time) {
		q := pricing.QuoteFor(rules, d, fallback)
		quotes = append(quotes, q)
		prices = append(prices, q.Price)
	})
	total, err := money.Sum(fallback.Currency, prices...)
	if err != nil {
		return nil, money.Money{}, err
	}
	return quotes, total, nil
}

// Rules returns the rule set of a property, from cache when possible.
func (r *Resolver) Rules(ctx context.Context, key property.Key) ([]*pricing.Rule, error) {
	var rules []*pricing.Rule
	if r.cacheGet(ctx, rulesKey(key), &rules) {
		return rules, nil
	}
	gen := r.generation(key)
	unit, execCtx, finish, err := uow.Begin(ctx, r.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	rules, err = unit.PriceRules().ListByProperty(execCtx, key)
	if err = finish(err); err != nil {
		return nil, err
	}
	r.cacheSet(ctx, key, gen, rulesKey(key), rules)
	return rules, nil
}

// InvalidateProperty drops every cached entry of property. Lookups that started before
// the call returned do not write their result back.
func (r *Resolver) InvalidateProperty(ctx context.Context, key string) error {
	prop := property.Key(key)
	r.bump(prop)
	if r.Cache == nil {
		return nil
	}
	err := r.Cache.DeletePrefix(ctx, PropertyPrefix(prop))
	// a lookup may have read stale entries while the delete ran
	r.bump(prop)
	return err
}

func (r *Resolver) bump(key property.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generations == nil {
		r.generations = map[property.Key]uint64{}
	}
	r.generations[key]++
}

func (r *Resolver) generation(key property.Key) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generations[key]
}

func (r *Resolver) cacheGet(ctx context.Context, key string, out any) bool {
	if r.Cache == nil {
		return false
	}
	raw, err := r.Cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, policies.ErrCacheMiss) {
			r.logger().WarnContext(ctx, "price cache read failed, using store", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		r.logger().WarnContext(ctx, "price cache entry unreadable", "key", key, "error", err)
		return false
	}
	return true
}

func (r *Resolver) cacheSet(ctx context.Context, prop property.Key, gen uint64, key string, value any) {
	if r.Cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		r.logger().WarnContext(ctx, "price cache encode failed", "key", key, "error", err)
		return
	}
	// hold the lock so an invalidation cannot slip between the check and the write
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generations[prop] != gen {
		return
	}
	if err := r.Cache.Set(ctx, key, raw, r.ttl()); err != nil {
		r.logger().WarnContext(ctx, "price cache write failed", "key", key, "error", err)
	}
}

func (r *Resolver) ttl() time.Duration {
	if r.TTL <= 0 {
		return DefaultTTL
	}
	return r.TTL
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

var _ policies.PriceInvalidator = (*Resolver)(nil)
