package policies

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by PriceCache.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("policies: cache miss")

// PriceCache stores serialized price lookups. Implementations must make DeletePrefix
// visible to every subsequent Get before it returns.
type PriceCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// PriceInvalidator drops every cached price of one property.
type PriceInvalidator interface {
	InvalidateProperty(ctx context.Context, property string) error
}

// PriceScoped is implemented by commands, or their results, that change the prices of
// one property.
type PriceScoped interface {
	PriceScope() string
}
