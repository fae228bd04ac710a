package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, LedgerBackendCSV, cfg.LedgerBackend)
	assert.Equal(t, "pool_history.csv", cfg.LedgerPath)
	assert.Equal(t, CacheBackendMemory, cfg.CacheBackend)
	assert.Equal(t, "2025", cfg.MLBSeason)
	assert.Contains(t, cfg.MLBBaseURL, "transform-mlb-standings")
	assert.True(t, cfg.EnableScheduler)
}

func TestValidate_PostgresRequiresPassword(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "postgres")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("DATABASE_PASSWORD", "secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, LedgerBackendPostgres, cfg.LedgerBackend)
}

func TestValidate_UnknownBackends(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "scroll-of-parchment")
	_, err := Load()
	require.Error(t, err)
}

func TestValidate_UnknownCacheBackend(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "memcached")
	_, err := Load()
	require.Error(t, err)
}

func TestRedisAddr(t *testing.T) {
	cfg := &Config{RedisHost: "cache.internal", RedisPort: 6380}
	assert.Equal(t, "cache.internal:6380", cfg.RedisAddr())
}
