// Package redis stores price lookups in Redis so every API instance shares them.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"opalestay/internal/app/policies"
)

const scanBatch = 200

type Options struct {
	Addr      string
	Password  string
	DB        int
	Namespace string
}

// NewClient opens a client from opts; the caller owns Close.
func NewClient(opts Options) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

// Cache implements policies.PriceCache. Keys are stored as "<namespace>:<key>" so one
// Redis database can hold several environments; an empty namespace stores keys as is.
type Cache struct {
	client    goredis.Cmdable
	namespace string
}

// New wraps client with the namespace of opts.
func New(client goredis.Cmdable, opts Options) *Cache {
	ns := strings.TrimSuffix(opts.Namespace, ":")
	if ns != "" {
		ns += ":"
	}
	return &Cache{client: client, namespace: ns}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := c.client.Get(ctx, c.namespace+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, policies.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis cache: get %s: %w", key, err)
	}
	return raw, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, c.namespace+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis cache: set %s: %w", key, err)
	}
	return nil
}

// DeletePrefix scans for matching keys and deletes them batch by batch. It returns only
// once every matching key present when the scan started is gone.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	pattern := escapeGlob(c.namespace+prefix) + "*"
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis cache: scan %s: %w", prefix, err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis cache: delete %s: %w", prefix, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping reports whether Redis answers.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

var _ policies.PriceCache = (*Cache)(nil)
