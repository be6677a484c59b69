package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.PoolSize)
	assert.Equal(t, "processing-service", cfg.NATSQueueGroup)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.LogJSON)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("RECOMMENDATION_POOL_SIZE", "250")
	t.Setenv("REQUEST_TIMEOUT", "2s")
	t.Setenv("LOG_JSON", "true")
	t.Setenv("CLICKHOUSE_MAX_OPEN_CONNS", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.PoolSize)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, 10, cfg.ClickHouseMaxOpenConns)
}
