package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "alpaca", cfg.MarketData.Provider)
	assert.Equal(t, 3, cfg.Gateway.RetryAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Gateway.RetryBaseDelay)
	assert.Equal(t, "latest_issued", cfg.Page.RacePolicy)
	assert.Equal(t, "America/New_York", cfg.Calendar.Timezone)
	assert.Equal(t, "09:30", cfg.Calendar.Open)

	// Alpaca credentials are required by default.
	assert.Error(t, cfg.Validate())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: warn
server:
  port: 9090
market_data:
  provider: rest
  rest_base_url: https://example.test/v1
  request_timeout: 3s
gateway:
  retry_attempts: 5
  fundamentals_ttl: 1h
page:
  race_policy: last_resolved
`)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("COMPANYPAGE_SERVER_SERVER_PORT", "9191")
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level, "bare alias overrides yaml")
	assert.Equal(t, 9191, cfg.Server.Port, "prefixed key wins over alias")
	assert.Equal(t, "rest", cfg.MarketData.Provider)
	assert.Equal(t, 3*time.Second, cfg.MarketData.RequestTimeout)
	assert.Equal(t, 5, cfg.Gateway.RetryAttempts)
	assert.Equal(t, time.Hour, cfg.Gateway.FundamentalsTTL)
	assert.Equal(t, "last_resolved", cfg.Page.RacePolicy)
	require.NoError(t, cfg.Validate())

	rp := cfg.RetryPolicy()
	assert.Equal(t, 5, rp.Attempts)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
		require.NoError(t, err)
		cfg.Alpaca.APIKey = "k"
		cfg.Alpaca.APISecret = "s"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.MarketData.Provider = "yahoo" }},
		{"rest without url", func(c *Config) { c.MarketData.Provider = "rest" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"no attempts", func(c *Config) { c.Gateway.RetryAttempts = -1 }},
		{"bad race policy", func(c *Config) { c.Page.RacePolicy = "first" }},
		{"bad timezone", func(c *Config) { c.Calendar.Timezone = "Mars/Olympus" }},
		{"bad open", func(c *Config) { c.Calendar.Open = "9am" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseBuyingPower(t *testing.T) {
	d, err := ParseBuyingPower("2500.75")
	require.NoError(t, err)
	assert.Equal(t, "2500.75", d.String())

	_, err = ParseBuyingPower("-1")
	assert.Error(t, err)
	_, err = ParseBuyingPower("lots")
	assert.Error(t, err)
}
