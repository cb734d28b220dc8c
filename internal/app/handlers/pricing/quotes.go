package pricing

import (
	"context"
	"time"

	"opalestay/internal/app/dto"
	"opalestay/internal/app/queries"
	domainpricing "opalestay/internal/domain/pricing"
	"opalestay/internal/domain/property"
	"opalestay/internal/domain/shared/daterange"
	"opalestay/internal/domain/shared/money"
)

const (
	priceForDateKey  = "pricing.date"
	priceForRangeKey = "pricing.range"
)

// Quoter resolves nightly prices.
type Quoter interface {
	QuoteDate(ctx context.Context, key property.Key, day time.Time) (domainpricing.Quote, error)
	QuoteStay(ctx context.Context, key property.Key, stay daterange.DateRange) ([]domainpricing.Quote, money.Money, error)
}

type PriceForDateQuery struct {
	Property string `validate:"required"`
	Date     string `validate:"required,isodate"`
}

func (q PriceForDateQuery) Key() string { return priceForDateKey }

type PriceForDateHandler struct {
	Prices Quoter
}

func (h *PriceForDateHandler) Handle(ctx context.Context, q PriceForDateQuery) (dto.NightPrice, error) {
	key, err := property.Parse(q.Property)
	if err != nil {
		return dto.NightPrice{}, err
	}
	day, err := daterange.Parse(q.Date)
	if err != nil {
		return dto.NightPrice{}, err
	}
	quote, err := h.Prices.QuoteDate(ctx, key, day)
	if err != nil {
		return dto.NightPrice{}, err
	}
	return dto.MapQuote(string(key), quote), nil
}

// PriceForRangeQuery prices the nights of [Start, End); End is the departure day.
type PriceForRangeQuery struct {
	Property string `validate:"required"`
	Start    string `validate:"required,isodate"`
	End      string `validate:"required,isodate"`
}

func (q PriceForRangeQuery) Key() string { return priceForRangeKey }

type PriceForRangeHandler struct {
	Prices Quoter
}

func (h *PriceForRangeHandler) Handle(ctx context.Context, q PriceForRangeQuery) (dto.RangePrice, error) {
	key, err := property.Parse(q.Property)
	if err != nil {
		return dto.RangePrice{}, err
	}
	stay, err := daterange.ParseStay(q.Start, q.End)
	if err != nil {
		return dto.RangePrice{}, err
	}
	quotes, total, err := h.Prices.QuoteStay(ctx, key, stay)
	if err != nil {
		return dto.RangePrice{}, err
	}
	nights := make(map[string]int64, len(quotes))
	for _, qt := range quotes {
		nights[daterange.Format(qt.Date)] = qt.Price.Amount
	}
	return dto.RangePrice{
		Property: string(key),
		Start:    daterange.Format(stay.CheckIn),
		End:      daterange.Format(stay.CheckOut),
		Nights:   nights,
		Total:    total.Amount,
		Currency: total.Currency,
	}, nil
}

var (
	_ queries.Handler[PriceForDateQuery, dto.NightPrice]  = (*PriceForDateHandler)(nil)
	_ queries.Handler[PriceForRangeQuery, dto.RangePrice] = (*PriceForRangeHandler)(nil)
)
