package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":4600", cfg.Server.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, 30*time.Minute, cfg.DB.ConnMaxLifetime)
	assert.True(t, cfg.Risk.HaltOnDailyLoss)

	limits, err := cfg.Limits()
	require.NoError(t, err)
	assert.Equal(t, "500", limits.MaxDailyLoss.String())
	assert.Equal(t, "300", limits.MaxPositionRisk.String())
	assert.Equal(t, "1000", limits.MaxPortfolioHeat.String())
	assert.Equal(t, 3, limits.ConsecutiveLossThreshold)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ict.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
risk:
  max_daily_loss: "750.50"
trading:
  point_values:
    nq: "20"
    mes: "5"
`), 0o600))
	t.Setenv("ICT_RISK_MAX_POSITION_RISK", "250")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	limits, err := cfg.Limits()
	require.NoError(t, err)
	assert.Equal(t, "750.5", limits.MaxDailyLoss.String())
	assert.Equal(t, "250", limits.MaxPositionRisk.String())

	pv, err := cfg.PointValues()
	require.NoError(t, err)
	assert.Equal(t, "20", pv["NQ"].String())
	assert.Equal(t, "5", pv["MES"].String())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"postgres without dsn", func(c *Config) { c.DB.Driver = "postgres" }, "db.dsn"},
		{"unknown driver", func(c *Config) { c.DB.Driver = "mysql" }, "mysql"},
		{"negative balance", func(c *Config) { c.Account.InitialBalance = "-5" }, "account.initial_balance"},
		{"garbage loss limit", func(c *Config) { c.Risk.MaxDailyLoss = "lots" }, "risk.max_daily_loss"},
		{"zero threshold", func(c *Config) { c.Risk.ConsecutiveLossThreshold = 0 }, "consecutive_loss_threshold"},
		{"bad timezone", func(c *Config) { c.Trading.Timezone = "Mars/Olympus" }, "trading.timezone"},
		{"zero point value", func(c *Config) { c.Trading.PointValues = map[string]string{"nq": "0"} }, "point_values"},
		{"no retries", func(c *Config) { c.Risk.MaxRetries = 0 }, "max_retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.Trading.PointValues = map[string]string{}
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(LogConfig{Level: "debug", Format: "json"})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger = NewLogger(LogConfig{Level: "loud"})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}
