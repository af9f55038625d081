package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves into an empty directory so no .env file is picked up.
func chdirTemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(oldWd)
	})
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 15*time.Minute, cfg.Redis.ResultTTL)
	assert.Equal(t, "02:00", cfg.Scheduler.RunTime)
	assert.True(t, cfg.Scheduler.Weekly)
	assert.Empty(t, cfg.Scheduler.StoreIDs)
	assert.Empty(t, cfg.Upstream.BaseURL)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("SNAPSHOT_STORE_IDS", "store-a,store-b,")
	t.Setenv("SNAPSHOT_MONTHLY", "false")
	t.Setenv("REDIS_RESULT_TTL", "1m")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, []string{"store-a", "store-b"}, cfg.Scheduler.StoreIDs)
	assert.False(t, cfg.Scheduler.Monthly)
	assert.Equal(t, time.Minute, cfg.Redis.ResultTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadReadsDotEnv(t *testing.T) {
	chdirTemp(t)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(wd, ".env"), []byte("API_PORT=9191\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("API_PORT") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.API.Port)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad ssl mode", "DB_SSLMODE", "sometimes"},
		{"bad log format", "LOG_FORMAT", "xml"},
		{"bad run time", "SNAPSHOT_RUN_TIME", "25:00"},
		{"unparseable run time", "SNAPSHOT_RUN_TIME", "noon"},
		{"bad upstream url", "UPSTREAM_BASE_URL", "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseTimeOfDay(t *testing.T) {
	h, m, err := ParseTimeOfDay("07:45")
	require.NoError(t, err)
	assert.Equal(t, 7, h)
	assert.Equal(t, 45, m)
}
