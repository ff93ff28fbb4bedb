package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadClean runs Load against a directory with no config file so only
// defaults and environment variables apply.
func loadClean(t *testing.T) (*Config, error) {
	t.Helper()
	viper.Reset()
	t.Chdir(t.TempDir())
	t.Cleanup(viper.Reset)
	return Load()
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadClean(t)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "http://localhost:3001", cfg.CCXT.ServiceURL)
	assert.Equal(t, "naver", cfg.Collector.PriceSource)
	assert.Equal(t, "KRW", cfg.Collector.QuoteCurrency)
	assert.Equal(t, 200, cfg.Collector.OHLCVPageSize)
	assert.Equal(t, "00:00", cfg.Scheduler.SymbolCollectionTime)
	assert.Equal(t, "00:02", cfg.Scheduler.PriceCollectionTime)
	assert.True(t, cfg.KIS.IsDemo)
	assert.Contains(t, cfg.Collector.MasterFileURL, "{market}")
}

func TestLoadRequiresMasterSecretOutsideDevelopment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	_, err := loadClean(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MASTER_SECRET")
}

func TestLoadAcceptsMasterSecretInProduction(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("MASTER_SECRET", "super-secret")

	cfg, err := loadClean(t)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "super-secret", cfg.Security.MasterSecret)
}

func TestLoadBindsKISCredentials(t *testing.T) {
	t.Setenv("KIS_APP_KEY", "app-key")
	t.Setenv("KIS_APP_SECRET", "app-secret")

	cfg, err := loadClean(t)
	require.NoError(t, err)
	assert.Equal(t, "app-key", cfg.KIS.AppKey)
	assert.Equal(t, "app-secret", cfg.KIS.AppSecret)
}

func TestLoadRejectsInvalidDurations(t *testing.T) {
	t.Setenv("COLLECTOR_REQUEST_DELAY", "soon")

	_, err := loadClean(t)
	assert.Error(t, err)
}

func TestLoadRejectsInvalidScheduleTime(t *testing.T) {
	t.Setenv("SCHEDULER_PRICE_COLLECTION_TIME", "25:99")

	_, err := loadClean(t)
	assert.Error(t, err)
}

func TestRequestDelayDuration(t *testing.T) {
	c := CollectorConfig{RequestDelay: "120ms"}
	assert.Equal(t, 120*time.Millisecond, c.RequestDelayDuration())

	// Unset falls back to the upstream-safe default.
	c = CollectorConfig{}
	assert.Equal(t, 50*time.Millisecond, c.RequestDelayDuration())
}
