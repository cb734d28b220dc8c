package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_MODE", "")
	t.Setenv("CACHE_MODE", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("ACTION_TOKEN_SECRET", "")
	t.Setenv("REDIS_NAMESPACE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.StoreMode)
	assert.Equal(t, CacheMemory, cfg.CacheMode)
	assert.Equal(t, "opalestay", cfg.RedisNamespace)
	assert.Equal(t, 10*time.Minute, cfg.PriceCacheTTL)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.NotEmpty(t, cfg.ActionTokenSecret)
	assert.False(t, cfg.MailEnabled())
}

func TestLoadMongoRequiresURIAndBrokers(t *testing.T) {
	t.Setenv("STORE_MODE", "mongo")
	t.Setenv("MONGO_URI", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URI")

	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"cache mode": {"CACHE_MODE", "memcached"},
		"duration":   {"PRICE_CACHE_TTL", "ten minutes"},
		"integer":    {"REDIS_DB", "zero"},
		"backoff":    {"RETRY_BACKOFF", "1s,soon"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestProductionRequiresTokenSecret(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("ACTION_TOKEN_SECRET", "")
	_, err := Load()
	assert.ErrorContains(t, err, "ACTION_TOKEN_SECRET")
}

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("OPALESTAY_TEST_A=from-file\nOPALESTAY_TEST_B=from-file\n"), 0o600))
	t.Setenv("OPALESTAY_TEST_A", "from-env")
	t.Setenv("OPALESTAY_TEST_B", "")
	require.NoError(t, os.Unsetenv("OPALESTAY_TEST_B"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-env", os.Getenv("OPALESTAY_TEST_A"))
	assert.Equal(t, "from-file", os.Getenv("OPALESTAY_TEST_B"))
}
