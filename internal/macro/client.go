package macro

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"CryptoSentinel/internal/model"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// CacheTTL bounds how long a computed risk snapshot is reused.
const CacheTTL = 5 * time.Minute

// FailureMultiplier is the position multiplier used when the index feed is down.
const FailureMultiplier = 0.8

// Options configures a Client.
type Options struct {
	FearGreedURL string
	CoinGeckoURL string
	FOMCDates    []time.Time
	Timeout      time.Duration
}

// Client computes macro risk and the market summary from public feeds.
// It also owns the once-per-run flag for the macro block.
type Client struct {
	httpClient   *http.Client
	fearGreedURL string
	coinGeckoURL string
	fomc         []time.Time
	now          func() time.Time
	logger       zerolog.Logger

	mu       sync.Mutex
	cached   *model.MacroRisk
	cachedAt time.Time
	sent     bool
}

// NewClient creates a Client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		fearGreedURL: opts.FearGreedURL,
		coinGeckoURL: opts.CoinGeckoURL,
		fomc:         opts.FOMCDates,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger.With().Str("component", "macro").Logger(),
	}
}

// WithClock replaces the time source.
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

// Risk returns the current macro risk, reusing a snapshot younger than
// CacheTTL. Feed failures degrade the result instead of failing.
func (c *Client) Risk(ctx context.Context) model.MacroRisk {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.cached != nil && now.Sub(c.cachedAt) < CacheTTL {
		return *c.cached
	}

	risk := model.MacroRisk{At: now, FearGreed: -1}
	fg, label, err := c.fearGreed(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("fear & greed unavailable, degrading macro risk")
		risk.Degraded = true
	} else {
		risk.FearGreed, risk.FearGreedLabel = fg, label
	}

	risk.Components = Components(c.fomc, risk.FearGreed, now)
	total := Total(risk.Components)
	risk.Score = min(total, maxRisk)
	risk.Level = Level(total)
	risk.PositionMultiplier = PositionMultiplier(total)
	if risk.Degraded {
		risk.PositionMultiplier = FailureMultiplier
	}
	if next, ok := NextFOMC(c.fomc, now); ok {
		risk.NextFOMC = &next
	}

	c.cached = &risk
	c.cachedAt = now
	return risk
}

// Summary fetches total market cap, BTC dominance and the Fear & Greed index.
func (c *Client) Summary(ctx context.Context) (model.MarketSummary, error) {
	body, err := c.get(ctx, c.coinGeckoURL)
	if err != nil {
		return model.MarketSummary{}, fmt.Errorf("coingecko global: %w", err)
	}
	mcap := gjson.GetBytes(body, "data.total_market_cap.usd")
	dom := gjson.GetBytes(body, "data.market_cap_percentage.btc")
	if !mcap.Exists() || !dom.Exists() {
		return model.MarketSummary{}, fmt.Errorf("coingecko global: unexpected payload")
	}

	s := model.MarketSummary{
		TotalMarketCapUSD: mcap.Float(),
		BTCDominance:      dom.Float(),
		FearGreed:         -1,
	}
	if fg, label, err := c.fearGreed(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("fear & greed unavailable for summary")
	} else {
		s.FearGreed, s.FearGreedLabel = fg, label
	}
	return s, nil
}

// TryMarkSent returns true exactly once per Client.
func (c *Client) TryMarkSent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sent {
		return false
	}
	c.sent = true
	return true
}

func (c *Client) fearGreed(ctx context.Context) (int, string, error) {
	body, err := c.get(ctx, c.fearGreedURL)
	if err != nil {
		return 0, "", fmt.Errorf("fear & greed: %w", err)
	}
	v := gjson.GetBytes(body, "data.0.value")
	if !v.Exists() {
		return 0, "", fmt.Errorf("fear & greed: missing value")
	}
	return int(v.Int()), gjson.GetBytes(body, "data.0.value_classification").String(), nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid json")
	}
	return body, nil
}
