package dto

import (
	"time"

	"opalestay/internal/domain/pricing"
	"opalestay/internal/domain/shared/daterange"
)

// NightPrice is the resolved price of one night. RuleID is nil when the property default
// applied.
type NightPrice struct {
	Property string   `json:"property"`
	Date     string   `json:"date"`
	Price    MoneyDTO `json:"price"`
	RuleID   *string  `json:"rule_id"`
	RuleName string   `json:"rule_name"`
}

type RangePrice struct {
	Property string           `json:"property"`
	Start    string           `json:"start"`
	End      string           `json:"end"`
	Nights   map[string]int64 `json:"nights"`
	Total    int64            `json:"total"`
	Currency string           `json:"currency"`
}

type PriceRule struct {
	ID            string    `json:"id"`
	Property      string    `json:"property"`
	Name          string    `json:"name"`
	Start         string    `json:"start"`
	End           string    `json:"end"`
	PricePerNight MoneyDTO  `json:"price_per_night"`
	Active        bool      `json:"active"`
	Priority      int       `json:"priority"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PriceScope names the property whose cached prices a rule change invalidates.
func (r PriceRule) PriceScope() string { return r.Property }

type PriceRuleCollection struct {
	Property string      `json:"property"`
	Items    []PriceRule `json:"items"`
}

func MapQuote(key string, q pricing.Quote) NightPrice {
	out := NightPrice{
		Property: key,
		Date:     daterange.Format(q.Date),
		Price:    MapMoney(q.Price),
		RuleName: q.RuleName,
	}
	if q.RuleID != nil {
		id := string(*q.RuleID)
		out.RuleID = &id
	}
	return out
}

func MapPriceRule(r *pricing.Rule) PriceRule {
	if r == nil {
		return PriceRule{}
	}
	return PriceRule{
		ID:            string(r.ID),
		Property:      string(r.Property),
		Name:          r.Name,
		Start:         daterange.Format(r.Range.Start),
		End:           daterange.Format(r.Range.End),
		PricePerNight: MapMoney(r.PricePerNight),
		Active:        r.Active,
		Priority:      r.Priority,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func MapPriceRules(rules []*pricing.Rule) []PriceRule {
	out := make([]PriceRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, MapPriceRule(r))
	}
	return out
}
