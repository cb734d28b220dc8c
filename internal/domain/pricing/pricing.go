// Package pricing models date-ranged nightly price rules and the pure selection of the
// rule that applies to a given night.
package pricing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"opalestay/internal/domain/property"
	"opalestay/internal/domain/shared/daterange"
	"opalestay/internal/domain/shared/failure"
	"opalestay/internal/domain/shared/money"
)

var (
	ErrRuleNotFound  = fmt.Errorf("%w: pricing: rule not found", failure.ErrNotFound)
	ErrNameRequired  = fmt.Errorf("%w: pricing: rule name required", failure.ErrValidation)
	ErrInvalidAmount = fmt.Errorf("%w: pricing: price per night must be positive", failure.ErrValidation)
)

// DefaultRuleName labels prices that come from the property default.
const DefaultRuleName = "default"

type RuleID string

type Rule struct {
	ID            RuleID
	Property      property.Key
	Name          string
	Range         daterange.Closed
	PricePerNight money.Money
	Active        bool
	Priority      int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Repository interface {
	ByID(ctx context.Context, id RuleID) (*Rule, error)
	ListByProperty(ctx context.Context, key property.Key) ([]*Rule, error)
	Save(ctx context.Context, rule *Rule) error
	Delete(ctx context.Context, id RuleID) error
}

type RuleParams struct {
	ID            RuleID
	Property      property.Key
	Name          string
	Range         daterange.Closed
	PricePerNight money.Money
	Active        bool
	Priority      int
	Now           time.Time
}

func NewRule(params RuleParams) (*Rule, error) {
	now := params.Now.UTC()
	r := &Rule{ID: params.ID, Property: params.Property, CreatedAt: now}
	if err := r.apply(params); err != nil {
		return nil, err
	}
	return r, nil
}

// Update replaces the editable fields; the property and creation time never change.
func (r *Rule) Update(params RuleParams) error {
	params.Property = r.Property
	return r.apply(params)
}

func (r *Rule) Toggle(now time.Time) {
	r.Active = !r.Active
	r.UpdatedAt = now.UTC()
}

func (r *Rule) apply(params RuleParams) error {
	if !params.Property.Valid() {
		return fmt.Errorf("%w: %q", property.ErrUnknownProperty, string(params.Property))
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return ErrNameRequired
	}
	if err := params.Range.Validate(); err != nil {
		return err
	}
	if params.PricePerNight.Amount <= 0 {
		return ErrInvalidAmount
	}
	if params.PricePerNight.Currency == "" {
		params.PricePerNight.Currency = money.EUR
	}
	r.Name = name
	r.Range = daterange.Closed{Start: daterange.Day(params.Range.Start), End: daterange.Day(params.Range.End)}
	r.PricePerNight = params.PricePerNight
	r.Active = params.Active
	r.Priority = params.Priority
	r.UpdatedAt = params.Now.UTC()
	return nil
}

func (r *Rule) Applies(day time.Time) bool {
	return r.Active && r.Range.Contains(day)
}

// Select returns the active rule covering day with the highest priority; ties go to the
// most recently created rule, then to the greater id so the result never depends on the
// order rules were loaded in.
func Select(rules []*Rule, day time.Time) *Rule {
	var best *Rule
	for _, r := range rules {
		if r == nil || !r.Applies(day) {
			continue
		}
		if best == nil || outranks(r, best) {
			best = r
		}
	}
	return best
}

func outranks(a, b *Rule) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// SortByRank orders rules the way Select ranks them.
func SortByRank(rules []*Rule) {
	sort.SliceStable(rules, func(i, j int) bool { return outranks(rules[i], rules[j]) })
}

// Quote is the resolved price of one night.
type Quote struct {
	Date     time.Time
	Price    money.Money
	RuleID   *RuleID
	RuleName string
}

// QuoteFor resolves day against rules, falling back to fallback when nothing applies.
func QuoteFor(rules []*Rule, day time.Time, fallback money.Money) Quote {
	day = daterange.Day(day)
	if r := Select(rules, day); r != nil {
		id := r.ID
		return Quote{Date: day, Price: r.PricePerNight, RuleID: &id, RuleName: r.Name}
	}
	return Quote{Date: day, Price: fallback, RuleName: DefaultRuleName}
}
