package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Exchange struct {
		APIKey     string `yaml:"api_key"`
		SecretKey  string `yaml:"secret_key"`
		BaseURL    string `yaml:"base_url"`
		TimeoutSec int    `yaml:"timeout_sec"`
	} `yaml:"exchange"`
	Scan struct {
		Pairs           []string `yaml:"pairs"`
		Timeframes      []string `yaml:"timeframes"`
		Limit           int      `yaml:"limit"`
		Cron            string   `yaml:"cron"`
		MultiTimeframe  bool     `yaml:"multi_timeframe"`
		CooldownMinutes int      `yaml:"cooldown_minutes"`
		Mode            string   `yaml:"mode"` // "paper" or "live"
	} `yaml:"scan"`
	Features struct {
		BBWidth         bool    `yaml:"bb_width"`
		VWAP            bool    `yaml:"vwap"`
		Score100        bool    `yaml:"score_100"`
		MacroOnce       bool    `yaml:"macro_once"`
		LiquidityFilter bool    `yaml:"liquidity_filter"`
		LiquidityMin30d float64 `yaml:"liquidity_min_30d"`
	} `yaml:"features"`
	// Weights for the auxiliary 0-100 score keyed by component name.
	// Missing keys default to 1.0.
	Weights map[string]float64 `yaml:"weights"`
	Storage struct {
		SignalsFile  string `yaml:"signals_file"`
		ThrottleFile string `yaml:"throttle_file"`
		LedgerFile   string `yaml:"ledger_file"`
		SQLitePath   string `yaml:"sqlite_path"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Macro struct {
		FearGreedURL string   `yaml:"fear_greed_url"`
		CoinGeckoURL string   `yaml:"coingecko_url"`
		FOMCDates    []string `yaml:"fomc_dates"`
	} `yaml:"macro"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// WeightKeys lists the auxiliary score components in display order.
var WeightKeys = []string{"trend", "momentum", "volume", "volatility", "context"}

// Load reads an optional .env file and the YAML config, then applies
// environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv("BINANCE_SECRET_KEY"); v != "" {
		c.Exchange.SecretKey = v
	}
	if v := os.Getenv("PAIRS"); v != "" {
		c.Scan.Pairs = splitList(v)
	}
	if v := os.Getenv("SCAN_CRON"); v != "" {
		c.Scan.Cron = v
	}
	if v := os.Getenv("PAPER_MODE"); v != "" {
		if strings.EqualFold(v, "false") {
			c.Scan.Mode = "live"
		} else {
			c.Scan.Mode = "paper"
		}
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Storage.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	envBool("ENABLE_BB_WIDTH", &c.Features.BBWidth)
	envBool("ENABLE_VWAP", &c.Features.VWAP)
	envBool("ENABLE_SCORE_100", &c.Features.Score100)
	envBool("ENABLE_MACRO_ONCE", &c.Features.MacroOnce)
	envBool("ENABLE_LIQUIDITY_FILTER", &c.Features.LiquidityFilter)
	envBool("LOG_PRETTY", &c.Log.Pretty)
	if v := os.Getenv("LIQ_MIN_30D"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Features.LiquidityMin30d = f
		}
	}

	for _, k := range WeightKeys {
		v := os.Getenv("WEIGHT_" + strings.ToUpper(k))
		if v == "" {
			continue
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			if c.Weights == nil {
				c.Weights = map[string]float64{}
			}
			c.Weights[k] = f
		}
	}
}

func (c *Config) applyDefaults() {
	if len(c.Scan.Pairs) == 0 {
		c.Scan.Pairs = []string{"BTC/USDT", "ETH/USDT"}
	}
	if len(c.Scan.Timeframes) == 0 {
		c.Scan.Timeframes = []string{"1h", "4h"}
		c.Scan.MultiTimeframe = true
	}
	if c.Scan.Limit == 0 {
		c.Scan.Limit = 200
	}
	if c.Scan.Cron == "" {
		c.Scan.Cron = "0 */15 * * * *"
	}
	if c.Scan.CooldownMinutes == 0 {
		c.Scan.CooldownMinutes = 30
	}
	if c.Scan.Mode == "" {
		c.Scan.Mode = "paper"
	}
	if c.Exchange.TimeoutSec == 0 {
		c.Exchange.TimeoutSec = 30
	}
	if c.Features.LiquidityMin30d == 0 {
		c.Features.LiquidityMin30d = 1_000_000
	}
	if c.Weights == nil {
		c.Weights = map[string]float64{}
	}
	for _, k := range WeightKeys {
		if _, ok := c.Weights[k]; !ok {
			c.Weights[k] = 1.0
		}
	}
	if c.Storage.SignalsFile == "" {
		c.Storage.SignalsFile = "data/monitored_signals.json"
	}
	if c.Storage.ThrottleFile == "" {
		c.Storage.ThrottleFile = "data/throttle.json"
	}
	if c.Storage.LedgerFile == "" {
		c.Storage.LedgerFile = "data/signal_ledger.csv"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/crypto_sentinel.db"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "crypto-signals"
	}
	if c.Macro.FearGreedURL == "" {
		c.Macro.FearGreedURL = "https://api.alternative.me/fng/?limit=1"
	}
	if c.Macro.CoinGeckoURL == "" {
		c.Macro.CoinGeckoURL = "https://api.coingecko.com/api/v3/global"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if len(c.Scan.Pairs) == 0 {
		return fmt.Errorf("scan.pairs must not be empty")
	}
	if c.Scan.Limit < 50 {
		return fmt.Errorf("scan.limit must be at least 50")
	}
	if c.Scan.Mode != "paper" && c.Scan.Mode != "live" {
		return fmt.Errorf("scan.mode must be paper or live, got %q", c.Scan.Mode)
	}
	if c.Scan.CooldownMinutes < 0 {
		return fmt.Errorf("scan.cooldown_minutes must not be negative")
	}
	if _, err := c.FOMCDates(); err != nil {
		return err
	}
	return nil
}

// PaperMode reports whether alerts should carry the paper-trading prefix.
func (c *Config) PaperMode() bool {
	return c.Scan.Mode != "live"
}

// Cooldown returns the alert throttle window.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Scan.CooldownMinutes) * time.Minute
}

// Timeout returns the per-request exchange timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Exchange.TimeoutSec) * time.Second
}

// FOMCDates parses macro.fomc_dates (YYYY-MM-DD).
func (c *Config) FOMCDates() ([]time.Time, error) {
	out := make([]time.Time, 0, len(c.Macro.FOMCDates))
	for _, s := range c.Macro.FOMCDates {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, fmt.Errorf("macro.fomc_dates: %w", err)
		}
		out = append(out, t)
	}
	return out, nil
}

func envBool(key string, dst *bool) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
