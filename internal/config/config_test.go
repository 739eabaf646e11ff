package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, cfg.Scan.Pairs)
	assert.Equal(t, []string{"1h", "4h"}, cfg.Scan.Timeframes)
	assert.True(t, cfg.Scan.MultiTimeframe)
	assert.Equal(t, 200, cfg.Scan.Limit)
	assert.Equal(t, 30*time.Minute, cfg.Cooldown())
	assert.True(t, cfg.PaperMode())
	assert.Equal(t, 1_000_000.0, cfg.Features.LiquidityMin30d)
	for _, k := range WeightKeys {
		assert.Equal(t, 1.0, cfg.Weights[k], k)
	}
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
telegram:
  bot_token: file-token
  chat_id: "42"
scan:
  pairs: [SOL/USDT]
  cooldown_minutes: 10
weights:
  volume: 0
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("PAIRS", "BTC/USDT, ETH/USDT")
	t.Setenv("PAPER_MODE", "false")
	t.Setenv("ENABLE_VWAP", "true")
	t.Setenv("WEIGHT_TREND", "2.5")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, cfg.Scan.Pairs)
	assert.Equal(t, 10*time.Minute, cfg.Cooldown())
	assert.False(t, cfg.PaperMode())
	assert.True(t, cfg.Features.VWAP)
	assert.Equal(t, 2.5, cfg.Weights["trend"])
	assert.Equal(t, 0.0, cfg.Weights["volume"])
	assert.Equal(t, 1.0, cfg.Weights["context"])
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
		require.NoError(t, err)
		cfg.Telegram.BotToken = "t"
		cfg.Telegram.ChatID = "c"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"missing token", func(c *Config) { c.Telegram.BotToken = "" }, false},
		{"missing chat", func(c *Config) { c.Telegram.ChatID = "" }, false},
		{"short limit", func(c *Config) { c.Scan.Limit = 20 }, false},
		{"bad mode", func(c *Config) { c.Scan.Mode = "demo" }, false},
		{"bad fomc date", func(c *Config) { c.Macro.FOMCDates = []string{"29/01/2025"} }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
