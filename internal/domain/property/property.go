// Package property models the fixed catalogue of rentable apartments. Keys are
// stable slugs used in URLs, periods, bookings and price rules.
package property

import (
	"fmt"
	"sort"
	"strings"

	"opalestay/internal/domain/shared/failure"
	"opalestay/internal/domain/shared/money"
)

var ErrUnknownProperty = fmt.Errorf("%w: property: unknown property key", failure.ErrValidation)

type Key string

const (
	ValerySourcesBaie Key = "valery-sources-baie"
	TouquetPinede     Key = "touquet-pinede"
)

// Property describes one apartment and the nightly price used when no rule applies.
type Property struct {
	Key          Key
	Name         string
	City         string
	GuestsLimit  int
	DefaultPrice money.Money
}

var catalogue = map[Key]Property{
	ValerySourcesBaie: {
		Key:          ValerySourcesBaie,
		Name:         "Les Sources de la Baie",
		City:         "Saint-Valery-sur-Somme",
		GuestsLimit:  4,
		DefaultPrice: money.Euros(120),
	},
	TouquetPinede: {
		Key:          TouquetPinede,
		Name:         "La Pinède",
		City:         "Le Touquet-Paris-Plage",
		GuestsLimit:  6,
		DefaultPrice: money.Euros(150),
	},
}

// Parse validates a raw key against the catalogue.
func Parse(raw string) (Key, error) {
	key := Key(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := catalogue[key]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProperty, raw)
	}
	return key, nil
}

// Lookup returns the catalogue entry for key.
func Lookup(key Key) (Property, error) {
	p, ok := catalogue[key]
	if !ok {
		return Property{}, fmt.Errorf("%w: %q", ErrUnknownProperty, string(key))
	}
	return p, nil
}

// DefaultPrice is the fallback nightly price of key.
func DefaultPrice(key Key) (money.Money, error) {
	p, err := Lookup(key)
	if err != nil {
		return money.Money{}, err
	}
	return p.DefaultPrice, nil
}

// All lists the catalogue ordered by key.
func All() []Property {
	out := make([]Property, 0, len(catalogue))
	for _, p := range catalogue {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (k Key) Valid() bool {
	_, ok := catalogue[k]
	return ok
}

func (k Key) String() string { return string(k) }
