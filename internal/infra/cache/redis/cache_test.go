package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opalestay/internal/app/policies"
)

// recordingClient answers the commands the cache issues and records their keys.
type recordingClient struct {
	goredis.Cmdable
	gets     []string
	sets     []string
	patterns []string
	deleted  []string
}

func (c *recordingClient) Get(_ context.Context, key string) *goredis.StringCmd {
	c.gets = append(c.gets, key)
	return goredis.NewStringResult("", goredis.Nil)
}

func (c *recordingClient) Set(_ context.Context, key string, _ interface{}, _ time.Duration) *goredis.StatusCmd {
	c.sets = append(c.sets, key)
	return goredis.NewStatusResult("OK", nil)
}

func (c *recordingClient) Scan(_ context.Context, _ uint64, match string, _ int64) *goredis.ScanCmd {
	c.patterns = append(c.patterns, match)
	return goredis.NewScanCmdResult([]string{"opalestay:price:touquet-pinede:rules"}, 0, nil)
}

func (c *recordingClient) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	c.deleted = append(c.deleted, keys...)
	return goredis.NewIntResult(int64(len(keys)), nil)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, "price:touquet-pinede:", escapeGlob("price:touquet-pinede:"))
	assert.Equal(t, `price:\*:\[x\]\?`, escapeGlob("price:*:[x]?"))
}

func TestKeysAreNamespaced(t *testing.T) {
	ctx := context.Background()
	client := &recordingClient{}
	cache := New(client, Options{Addr: "localhost:6379", Namespace: "opalestay"})

	_, err := cache.Get(ctx, "price:touquet-pinede:rules")
	assert.ErrorIs(t, err, policies.ErrCacheMiss)
	require.NoError(t, cache.Set(ctx, "price:touquet-pinede:rules", []byte("[]"), time.Minute))
	require.NoError(t, cache.DeletePrefix(ctx, "price:touquet-pinede:"))

	assert.Equal(t, []string{"opalestay:price:touquet-pinede:rules"}, client.gets)
	assert.Equal(t, []string{"opalestay:price:touquet-pinede:rules"}, client.sets)
	assert.Equal(t, []string{"opalestay:price:touquet-pinede:*"}, client.patterns)
	assert.Equal(t, []string{"opalestay:price:touquet-pinede:rules"}, client.deleted)
}

func TestNamespaceSeparator(t *testing.T) {
	for ns, want := range map[string]string{
		"":           "price:x",
		"opalestay":  "opalestay:price:x",
		"opalestay:": "opalestay:price:x",
	} {
		client := &recordingClient{}
		require.NoError(t, New(client, Options{Namespace: ns}).Set(context.Background(), "price:x", []byte("1"), time.Minute))
		assert.Equal(t, []string{want}, client.sets, ns)
	}
}
